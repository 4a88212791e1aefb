// pkg/utils/alloc_test.go

package utils

import "testing"

func TestAllocFree(t *testing.T) {
	before := AllocMemory()
	for _, size := range []int{1, 33, 4096, 100000, 131072, 1 << 21} {
		b := Alloc(size)
		if len(b) != size {
			t.Fatalf("alloc %d: got %d bytes", size, len(b))
		}
		for i := range b {
			if b[i] != 0 {
				t.Fatalf("alloc %d: buffer not zeroed at %d", size, i)
			}
		}
		b[0] = 0xff
		b[size-1] = 0xff
		if AllocMemory() != before+int64(size) {
			t.Fatalf("alloc %d: accounted %d", size, AllocMemory()-before)
		}
		Free(b)
		if AllocMemory() != before {
			t.Fatalf("free %d: accounted %d", size, AllocMemory()-before)
		}
	}
}

func TestAllocReuseIsZeroed(t *testing.T) {
	b := Alloc(100)
	for i := range b {
		b[i] = 0xaa
	}
	Free(b)
	c := Alloc(80)
	defer Free(c)
	for i := range c {
		if c[i] != 0 {
			t.Fatalf("reused buffer not zeroed at %d", i)
		}
	}
}

func TestPowerOf2(t *testing.T) {
	cases := map[int]int{1: 0, 2: 1, 3: 2, 4: 2, 100: 7, 4096: 12, 131072: 17}
	for s, want := range cases {
		if got := powerOf2(s); got != want {
			t.Errorf("powerOf2(%d) = %d, want %d", s, got, want)
		}
	}
}

func TestAllocZero(t *testing.T) {
	b := Alloc(0)
	if b != nil {
		t.Fatalf("alloc 0 should be nil")
	}
	Free(b)
	if AllocMemory() < 0 {
		t.Fatalf("negative accounting")
	}
}
