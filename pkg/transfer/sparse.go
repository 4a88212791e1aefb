// pkg/transfer/sparse.go

package transfer

import (
	"fmt"
	"iter"
	"sort"
	"strings"
)

// SparseData tracks which byte ranges of one remote resource have been
// fetched so far. It keeps an ordered sequence of sealed chunks, ascending by
// start, mutually non-overlapping; chunks that touch are coalesced into one,
// so the sequence is always maximally compact. Everything not covered by a
// chunk is a gap.
//
// The structure does no locking. Writers must be serialized, and readers must
// not run concurrently with AddValidData; one RWMutex per resource in the
// caller is the expected arrangement.
type SparseData struct {
	chunks []*DenseData
}

func NewSparseData() *SparseData {
	return &SparseData{}
}

// AddValidData merges a freshly fetched chunk into the set. The chunk is
// sealed and owned by the set from here on. Where the new chunk overlaps
// bytes already cached, the new bytes win; bytes outside the overlap are
// kept. Any existing chunks the new one overlaps or touches are replaced by
// a single coalesced chunk.
func (s *SparseData) AddValidData(d *DenseData) {
	d.seal()
	if d.rng.Length() == 0 {
		// nothing materialized, nothing to record
		d.Release()
		return
	}
	start, end := d.rng.Start(), d.rng.End()
	// lo is the first chunk reaching start; hi the first chunk strictly past
	// end. Touching counts as mergeable on both sides.
	lo := sort.Search(len(s.chunks), func(i int) bool {
		return s.chunks[i].rng.End() >= start
	})
	hi := lo
	for hi < len(s.chunks) && s.chunks[hi].rng.Start() <= end {
		hi++
	}
	if lo == hi {
		s.chunks = append(s.chunks, nil)
		copy(s.chunks[lo+1:], s.chunks[lo:])
		s.chunks[lo] = d
		return
	}
	s.chunks[lo] = coalesce(s.chunks[lo:hi], d)
	s.chunks = append(s.chunks[:lo+1], s.chunks[hi:]...)
}

// coalesce builds one chunk spanning old and d. Old bytes are copied first
// and the new chunk's bytes on top, so fresh data takes precedence in any
// overlap. All constituent pages are released.
func coalesce(old []*DenseData, d *DenseData) *DenseData {
	newStart := d.rng.Start()
	if first := old[0]; first.rng.Start() < newStart {
		newStart = first.rng.Start()
	}
	newEnd := d.rng.End()
	wholeFile := d.rng.WholeFile()
	if last := old[len(old)-1]; last.rng.End() > newEnd {
		newEnd = last.rng.End()
		wholeFile = last.rng.WholeFile()
	} else if last := old[len(old)-1]; last.rng.End() == newEnd {
		wholeFile = wholeFile || last.rng.WholeFile()
	}
	m := NewDenseData(Range{start: newStart, length: newEnd - newStart, wholeFile: wholeFile})
	for _, c := range old {
		copy(m.page.Data[c.rng.Start()-newStart:], c.page.Data)
	}
	copy(m.page.Data[d.rng.Start()-newStart:], d.page.Data)
	for _, c := range old {
		if c != d {
			c.Release()
		}
	}
	d.Release()
	m.seal()
	return m
}

// DataAt returns the valid bytes at offset and the length of the contiguous
// valid run from there. When offset falls in a gap it returns nil and the gap
// size, so the caller knows exactly what to fetch. nil with a zero length
// means nothing is known at or past offset. For a whole-file chunk the run
// covers only the bytes materialized so far.
func (s *SparseData) DataAt(offset uint64) ([]byte, uint64) {
	i := sort.Search(len(s.chunks), func(i int) bool {
		return s.chunks[i].rng.End() > offset
	})
	if i == len(s.chunks) {
		return nil, 0
	}
	c := s.chunks[i]
	if offset >= c.rng.Start() {
		return c.page.Data[offset-c.rng.Start():], c.rng.End() - offset
	}
	return nil, c.rng.Start() - offset
}

// PageAt is DataAt for consumers that outlive the next mutation: the view is
// returned as a page pinning the backing buffer, which the caller releases.
// It returns nil and the gap size (or zero) exactly like DataAt.
func (s *SparseData) PageAt(offset uint64) (*Page, uint64) {
	i := sort.Search(len(s.chunks), func(i int) bool {
		return s.chunks[i].rng.End() > offset
	})
	if i == len(s.chunks) {
		return nil, 0
	}
	c := s.chunks[i]
	if offset < c.rng.Start() {
		return nil, c.rng.Start() - offset
	}
	run := c.rng.End() - offset
	return c.page.Slice(int(offset-c.rng.Start()), int(run)), run
}

// SpaceUsed returns the total bytes held, for the cache-eviction policy of
// the caller.
func (s *SparseData) SpaceUsed() uint64 {
	var total uint64
	for _, c := range s.chunks {
		total += c.rng.Length()
	}
	return total
}

// Count returns the number of chunks in the set.
func (s *SparseData) Count() int {
	return len(s.chunks)
}

// All iterates the chunks in offset order. The set must not be mutated during
// the iteration.
func (s *SparseData) All() iter.Seq[*DenseData] {
	return func(yield func(*DenseData) bool) {
		for _, c := range s.chunks {
			if !yield(c) {
				return
			}
		}
	}
}

// Clear releases every chunk and empties the set.
func (s *SparseData) Clear() {
	for _, c := range s.chunks {
		c.Release()
	}
	s.chunks = nil
}

// DebugString renders the coverage map, e.g. "[0,10) gap:5 [15,20)".
func (s *SparseData) DebugString() string {
	if len(s.chunks) == 0 {
		return "empty"
	}
	var b strings.Builder
	var pos uint64
	for i, c := range s.chunks {
		if i > 0 {
			b.WriteByte(' ')
		}
		if c.rng.Start() > pos {
			fmt.Fprintf(&b, "gap:%d ", c.rng.Start()-pos)
		}
		b.WriteString(c.rng.String())
		pos = c.rng.End()
	}
	return b.String()
}
