// pkg/transfer/range.go

package transfer

import "fmt"

// Range describes a half-open span [start, end) of bytes within one remote
// resource. A range marked whole-file extends to the end of the resource,
// whose size is not known yet; Length and End then describe only the bytes
// materialized so far.
type Range struct {
	start     uint64
	length    uint64
	wholeFile bool
}

// NewRange creates a bounded range [start, end). start > end is a caller bug.
func NewRange(start, end uint64) Range {
	if start > end {
		panic(fmt.Sprintf("invalid range: start %d > end %d", start, end))
	}
	return Range{start: start, length: end - start}
}

// NewWholeFileRange creates a range starting at start that goes to the end of
// the resource, with length bytes materialized so far.
func NewWholeFileRange(start, length uint64) Range {
	return Range{start: start, length: length, wholeFile: true}
}

func (r Range) Start() uint64 { return r.start }

// End is the offset one past the last materialized byte.
func (r Range) End() uint64 { return r.start + r.length }

func (r Range) Length() uint64 { return r.length }

// WholeFile reports whether the range extends to the (unknown) end of the
// resource.
func (r Range) WholeFile() bool { return r.wholeFile }

// Contains reports whether offset falls within the materialized span.
func (r Range) Contains(offset uint64) bool {
	return offset >= r.start && offset < r.start+r.length
}

// Less orders ranges by start, then by end.
func (r Range) Less(other Range) bool {
	if r.start != other.start {
		return r.start < other.start
	}
	return r.End() < other.End()
}

func (r Range) String() string {
	if r.wholeFile {
		return fmt.Sprintf("[%d,%d+)", r.start, r.End())
	}
	return fmt.Sprintf("[%d,%d)", r.start, r.End())
}
