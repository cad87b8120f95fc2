package progressr

import (
	"io"
	"sync/atomic"
)

// Func is notified after every read with the absolute position reached in
// the underlying stream.
type Func func(position int64)

// Reader forwards reads to the wrapped reader and reports the position
// reached after each one. It can start at a non-zero offset when it wraps
// the tail of a larger stream.
type Reader struct {
	io.Reader
	start   int64
	total   int64
	current atomic.Int64
	notify  Func
}

// NewReaderAt wraps reader whose first byte sits at offset within a stream
// of total bytes.
func NewReaderAt(reader io.Reader, offset, total int64, notify Func) *Reader {
	return &Reader{
		Reader: reader,
		start:  offset,
		total:  total,
		notify: notify,
	}
}

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.Reader.Read(b)
	pos := p.start + p.current.Add(int64(n))
	if p.notify != nil {
		p.notify(pos)
	}
	return n, err
}

// Consumed returns the number of bytes read through this reader.
func (p *Reader) Consumed() int64 {
	return p.current.Load()
}

// Position returns the absolute position reached in the stream.
func (p *Reader) Position() int64 {
	return p.start + p.current.Load()
}

// Progress returns the fraction of the stream reached, 0 for an empty stream.
func (p *Reader) Progress() float64 {
	if p.total <= 0 {
		return 0
	}
	return float64(p.Position()) / float64(p.total)
}
