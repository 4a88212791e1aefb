// pkg/transfer/sparse_test.go

package transfer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func fill(start uint64, length int, b byte) *DenseData {
	d := NewDenseData(NewRange(start, start+uint64(length)))
	buf := d.WritableData()
	for i := range buf {
		buf[i] = b
	}
	return d
}

func TestEmptySet(t *testing.T) {
	s := NewSparseData()
	for _, off := range []uint64{0, 1, 1 << 40} {
		data, run := s.DataAt(off)
		require.Nil(t, data)
		require.Equal(t, uint64(0), run)
	}
	require.Equal(t, uint64(0), s.SpaceUsed())
	require.Equal(t, 0, s.Count())
	require.Equal(t, "empty", s.DebugString())
}

func TestCoalesceAdjacent(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(fill(0, 10, 'a'))
	s.AddValidData(fill(10, 10, 'b'))
	require.Equal(t, 1, s.Count())
	data, run := s.DataAt(0)
	require.Equal(t, uint64(20), run)
	require.Equal(t, byte('a'), data[0])
	require.Equal(t, byte('b'), data[10])
	require.Equal(t, "[0,20)", s.DebugString())
	s.Clear()
}

func TestOverlapNewDataWins(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(fill(0, 10, 'A'))
	s.AddValidData(fill(5, 10, 'B'))
	require.Equal(t, 1, s.Count())

	data, run := s.DataAt(5)
	require.Equal(t, uint64(10), run)
	require.Equal(t, byte('B'), data[0])

	data, run = s.DataAt(0)
	require.Equal(t, uint64(15), run)
	require.Equal(t, byte('A'), data[0])
	require.Equal(t, byte('A'), data[4])
	require.Equal(t, byte('B'), data[5])
	s.Clear()
}

func TestIdempotentInsert(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(fill(30, 20, 'x'))
	s.AddValidData(fill(30, 20, 'x'))
	require.Equal(t, 1, s.Count())
	require.Equal(t, uint64(20), s.SpaceUsed())
	data, run := s.DataAt(30)
	require.Equal(t, uint64(20), run)
	for i := range data {
		require.Equal(t, byte('x'), data[i])
	}
	s.Clear()
}

func TestGapReporting(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(fill(100, 50, 'd'))

	data, run := s.DataAt(90)
	require.Nil(t, data)
	require.Equal(t, uint64(10), run)

	data, run = s.DataAt(120)
	require.NotNil(t, data)
	require.Equal(t, uint64(30), run)

	data, run = s.DataAt(149)
	require.NotNil(t, data)
	require.Equal(t, uint64(1), run)

	// past everything known: the terminal case, not a finite gap
	data, run = s.DataAt(150)
	require.Nil(t, data)
	require.Equal(t, uint64(0), run)
	s.Clear()
}

func TestBridgingInsert(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(fill(0, 10, 'a'))
	s.AddValidData(fill(20, 10, 'c'))
	require.Equal(t, 2, s.Count())
	require.Equal(t, uint64(20), s.SpaceUsed())
	require.Equal(t, "[0,10) gap:10 [20,30)", s.DebugString())

	s.AddValidData(fill(10, 10, 'b'))
	require.Equal(t, 1, s.Count())
	require.Equal(t, uint64(30), s.SpaceUsed())
	data, run := s.DataAt(0)
	require.Equal(t, uint64(30), run)
	require.Equal(t, byte('a'), data[5])
	require.Equal(t, byte('b'), data[15])
	require.Equal(t, byte('c'), data[25])
	s.Clear()
}

func TestWideInsertSubsumesMany(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(fill(0, 10, 'a'))
	s.AddValidData(fill(20, 10, 'b'))
	s.AddValidData(fill(40, 10, 'c'))
	require.Equal(t, 3, s.Count())

	s.AddValidData(fill(5, 40, 'N'))
	require.Equal(t, 1, s.Count())
	require.Equal(t, uint64(50), s.SpaceUsed())
	data, run := s.DataAt(0)
	require.Equal(t, uint64(50), run)
	require.Equal(t, byte('a'), data[0])
	require.Equal(t, byte('a'), data[4])
	for i := 5; i < 45; i++ {
		require.Equal(t, byte('N'), data[i], "offset %d", i)
	}
	require.Equal(t, byte('c'), data[45])
	s.Clear()
}

func TestWholeFileChunk(t *testing.T) {
	s := NewSparseData()
	d := NewDenseData(NewWholeFileRange(100, 50))
	buf := d.WritableData()
	for i := range buf {
		buf[i] = 'w'
	}
	s.AddValidData(d)

	// run reflects only the materialized bytes
	data, run := s.DataAt(120)
	require.NotNil(t, data)
	require.Equal(t, uint64(30), run)

	// past the materialized end nothing is known yet
	data, run = s.DataAt(160)
	require.Nil(t, data)
	require.Equal(t, uint64(0), run)

	// coalescing keeps the whole-file mark when it supplies the tail
	s.AddValidData(fill(150, 20, 'z'))
	require.Equal(t, 1, s.Count())
	var last *DenseData
	for c := range s.All() {
		last = c
	}
	require.False(t, last.Range().WholeFile())
	require.Equal(t, "[100,170)", s.DebugString())
	s.Clear()

	s = NewSparseData()
	s.AddValidData(fill(0, 100, 'a'))
	d = NewDenseData(NewWholeFileRange(100, 50))
	s.AddValidData(d)
	require.Equal(t, 1, s.Count())
	for c := range s.All() {
		require.True(t, c.Range().WholeFile())
	}
	require.Equal(t, "[0,150+)", s.DebugString())
	s.Clear()
}

func TestZeroLengthInsert(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(NewDenseData(NewRange(10, 10)))
	require.Equal(t, 0, s.Count())
	s.AddValidData(fill(0, 10, 'a'))
	s.AddValidData(NewDenseData(NewRange(5, 5)))
	require.Equal(t, 1, s.Count())
	require.Equal(t, uint64(10), s.SpaceUsed())
	s.Clear()
}

func TestPageAtOutlivesMutation(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(fill(0, 10, 'v'))
	p, run := s.PageAt(3)
	require.NotNil(t, p)
	require.Equal(t, uint64(7), run)

	// the merge replaces the entry, the held page keeps the old buffer alive
	s.AddValidData(fill(5, 10, 'w'))
	require.Equal(t, byte('v'), p.Data[0])
	require.Len(t, p.Data, 7)
	p.Release()

	p, run = s.PageAt(20)
	require.Nil(t, p)
	require.Equal(t, uint64(0), run)
	s.Clear()
}

func TestTraversalOrder(t *testing.T) {
	s := NewSparseData()
	s.AddValidData(fill(40, 10, 'c'))
	s.AddValidData(fill(0, 10, 'a'))
	s.AddValidData(fill(20, 10, 'b'))
	var starts []uint64
	for c := range s.All() {
		starts = append(starts, c.Range().Start())
	}
	require.Equal(t, []uint64{0, 20, 40}, starts)
	s.Clear()
}

// checkInvariants verifies order, non-overlap, and that nothing merely touches.
func checkInvariants(t *testing.T, s *SparseData) {
	t.Helper()
	var prev *DenseData
	for c := range s.All() {
		require.Equal(t, uint64(len(c.Data())), c.Range().Length())
		if prev != nil {
			require.Greater(t, c.Range().Start(), prev.Range().End(),
				"%s should not touch %s", c.Range(), prev.Range())
		}
		prev = c
	}
}

func TestRandomizedMerge(t *testing.T) {
	const span = 2000
	rnd := rand.New(rand.NewSource(42))
	s := NewSparseData()
	model := make([]byte, span) // 0 means unknown
	for i := 0; i < 500; i++ {
		length := 1 + rnd.Intn(60)
		start := rnd.Intn(span - length)
		val := byte(1 + rnd.Intn(255))
		s.AddValidData(fill(uint64(start), length, val))
		for j := start; j < start+length; j++ {
			model[j] = val
		}
		checkInvariants(t, s)
	}

	var covered uint64
	for off := 0; off < span; {
		data, run := s.DataAt(uint64(off))
		if data != nil {
			require.Equal(t, uint64(len(data)), run)
			for j := uint64(0); j < run; j++ {
				require.Equal(t, model[uint64(off)+j], data[j], "offset %d", uint64(off)+j)
			}
			covered += run
		} else {
			if run == 0 {
				for j := off; j < span; j++ {
					require.Equal(t, byte(0), model[j])
				}
				break
			}
			for j := uint64(0); j < run; j++ {
				require.Equal(t, byte(0), model[uint64(off)+j])
			}
		}
		off += int(run)
	}
	require.Equal(t, covered, s.SpaceUsed())
	s.Clear()
	require.Equal(t, 0, s.Count())
}
