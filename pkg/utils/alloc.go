// pkg/utils/alloc.go

package utils

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

var logger = GetLogger("avecache")

// Buffers below this go through pooled heap slices; larger ones are mapped
// anonymously so releasing them returns the memory to the OS right away.
const mmapThreshold = 128 << 10

var used int64
var pools [27]sync.Pool // power-of-two size classes below the mmap threshold

// Alloc returns a zeroed buffer of the given size. Running out of memory here
// is not recoverable, the process dies.
func Alloc(size int) []byte {
	if size == 0 {
		return nil
	}
	atomic.AddInt64(&used, int64(size))
	z := powerOf2(size)
	if 1<<z >= mmapThreshold {
		b, err := unix.Mmap(-1, 0, 1<<z, unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			logger.Fatalf("mmap %d bytes: %s", size, err)
		}
		return b[:size]
	}
	if v := pools[z].Get(); v != nil {
		b := (*(v.(*[]byte)))[:size]
		for i := range b {
			b[i] = 0
		}
		return b
	}
	return make([]byte, size, 1<<z)
}

// Free returns a buffer obtained from Alloc.
func Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	atomic.AddInt64(&used, -int64(len(b)))
	b = b[:cap(b)]
	if len(b) >= mmapThreshold {
		if err := unix.Munmap(b); err != nil {
			logger.Errorf("munmap %d bytes: %s", len(b), err)
		}
		return
	}
	pools[powerOf2(len(b))].Put(&b)
}

// AllocMemory returns the number of bytes currently handed out by Alloc.
func AllocMemory() int64 {
	return atomic.LoadInt64(&used)
}

// powerOf2 returns the smallest z with 1<<z >= s.
func powerOf2(s int) int {
	var z int
	for (1 << z) < s {
		z++
	}
	return z
}
