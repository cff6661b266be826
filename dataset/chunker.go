// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

// Chunk is a classified span of a stream.
type Chunk struct {
	Class  Class
	Span   Span
	Reason string
}

// Chunker buffers the raw bytes of a stream and hands them out as
// classified chunks, in stream order.
//
// Bytes are classified by the sieve of a Format. Bytes the sieve could not
// classify yet (an incomplete trailing record) stay in the chunker until
// more bytes are written or the chunker is flushed.
//
// Contiguous non-data bytes are handed out as a single chunk: a trailing
// non-data chunk is held back until a record or the end of the stream
// closes it.
type Chunker struct {
	f     Format
	buf   []byte
	off   uint64 // absolute offset of buf[0]
	queue []Chunk
	held  *Chunk // trailing non-data, not yet closed
	final bool
}

// NewChunker returns a chunker for a stream whose next byte is at
// absolute offset off.
func NewChunker(f Format, off uint64) *Chunker {
	return &Chunker{f: f, off: off}
}

// Write appends p to the stream.
func (c *Chunker) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	return len(p), nil
}

// Flush declares that no more bytes will be written.
// Pending bytes are then classified even if they do not form a
// complete record.
func (c *Chunker) Flush() {
	c.final = true
}

// Buffered returns the number of bytes written but not yet handed out.
func (c *Chunker) Buffered() int {
	n := len(c.buf)
	if c.held != nil {
		n += len(c.held.Span.Data)
	}
	for _, chk := range c.queue {
		n += len(chk.Span.Data)
	}
	return n
}

// NextData returns the next chunk if it is a complete record.
func (c *Chunker) NextData() (Chunk, bool) {
	c.fill()
	if len(c.queue) == 0 || c.queue[0].Class != Data {
		return Chunk{}, false
	}
	return c.pop(), true
}

// NextNonData returns the next chunk if it is not a record:
// non-data, malformed or metadata bytes.
func (c *Chunker) NextNonData() (Chunk, bool) {
	c.fill()
	if len(c.queue) == 0 || c.queue[0].Class == Data {
		return Chunk{}, false
	}
	return c.pop(), true
}

func (c *Chunker) pop() Chunk {
	chk := c.queue[0]
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		c.queue = nil
	}
	return chk
}

func (c *Chunker) fill() {
	if len(c.queue) > 0 {
		return
	}
	if len(c.buf) == 0 {
		if c.final && c.held != nil {
			c.queue = append(c.queue, *c.held)
			c.held = nil
		}
		return
	}

	if c.held != nil {
		c.queue = append(c.queue, *c.held)
		c.held = nil
	}

	segs, n := c.f.Sieve(c.buf, c.final)
	switch {
	case n < 0:
		n = 0
	case n > len(c.buf):
		n = len(c.buf)
	}

	cur := 0
	for _, seg := range segs {
		if seg.Range.Beg < cur || seg.Range.End > n || seg.Range.Beg >= seg.Range.End {
			// outside of the classified prefix. reclassified on next call.
			break
		}
		if seg.Range.Beg > cur {
			c.push(NonData, cur, seg.Range.Beg, "")
		}
		c.push(seg.Class, seg.Range.Beg, seg.Range.End, seg.Reason)
		cur = seg.Range.End
	}
	if cur < n {
		c.push(NonData, cur, n, "")
	}

	c.off += uint64(n)
	c.buf = append(c.buf[:0], c.buf[n:]...)

	if last := len(c.queue) - 1; !c.final && last >= 0 && c.queue[last].Class == NonData {
		held := c.queue[last]
		c.held = &held
		c.queue = c.queue[:last]
	}
}

func (c *Chunker) push(class Class, beg, end int, reason string) {
	if last := len(c.queue) - 1; class == NonData && last >= 0 {
		prev := &c.queue[last]
		if prev.Class == NonData && prev.Span.End() == c.off+uint64(beg) {
			prev.Span.Data = append(prev.Span.Data, c.buf[beg:end]...)
			return
		}
	}
	data := make([]byte, end-beg)
	copy(data, c.buf[beg:end])
	c.queue = append(c.queue, Chunk{
		Class:  class,
		Span:   Span{Offset: c.off + uint64(beg), Data: data},
		Reason: reason,
	})
}
