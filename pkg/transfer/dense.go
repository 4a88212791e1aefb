// pkg/transfer/dense.go

package transfer

import "fmt"

// DenseData is one contiguous block of fetched bytes together with the range
// of the resource it fills. The buffer always holds exactly Range().Length()
// bytes. A chunk is written by a single fetch; once published into a
// SparseData it is sealed and must not be modified again.
type DenseData struct {
	rng    Range
	page   *Page
	sealed bool
}

// NewDenseData allocates a chunk covering r, zero-filled.
func NewDenseData(r Range) *DenseData {
	d := &DenseData{rng: r}
	if r.Length() > 0 {
		d.page = NewOffPage(int(r.Length()))
	} else {
		d.page = NewPage(nil)
	}
	return d
}

// NewDenseDataOf builds a chunk at start filled with a copy of data.
func NewDenseDataOf(start uint64, data []byte) *DenseData {
	d := NewDenseData(NewRange(start, start+uint64(len(data))))
	copy(d.page.Data, data)
	return d
}

func (d *DenseData) Range() Range { return d.rng }

// Data returns the chunk content. The returned slice must not be modified.
func (d *DenseData) Data() []byte { return d.page.Data }

// WritableData returns the buffer for the fetch that is filling the chunk.
// Calling it on a sealed chunk is a bug.
func (d *DenseData) WritableData() []byte {
	if d.sealed {
		panic("write to sealed chunk " + d.rng.String())
	}
	return d.page.Data
}

// DataAt returns the bytes from the absolute offset to the end of the chunk,
// or nil when offset falls outside the materialized range.
func (d *DenseData) DataAt(offset uint64) []byte {
	if !d.rng.Contains(offset) {
		return nil
	}
	return d.page.Data[offset-d.rng.Start():]
}

// SetLength resizes the chunk to length bytes while a streaming fetch is
// still filling it, keeping the bytes already received. wholeFile marks
// whether the final size is still unknown. Illegal on a sealed chunk.
func (d *DenseData) SetLength(length uint64, wholeFile bool) {
	if d.sealed {
		panic("resize of sealed chunk " + d.rng.String())
	}
	if length != d.rng.length {
		var np *Page
		if length > 0 {
			np = NewOffPage(int(length))
			copy(np.Data, d.page.Data)
		} else {
			np = NewPage(nil)
		}
		d.page.Release()
		d.page = np
	}
	d.rng = Range{start: d.rng.start, length: length, wholeFile: wholeFile}
}

// Reader returns an io.ReadCloser over the chunk content, pinning the buffer
// until closed.
func (d *DenseData) Reader() *PageReader {
	return NewPageReader(d.page)
}

// Release drops the chunk's reference to its buffer.
func (d *DenseData) Release() {
	d.page.Release()
}

func (d *DenseData) seal() {
	d.sealed = true
}

func (d *DenseData) String() string {
	return fmt.Sprintf("chunk%s", d.rng)
}
