// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dataset holds the types shared by the instrument stream decoders:
// byte spans, classified segments, decoded records, the chunk source
// and the resumable parsing session.
package dataset // import "github.com/go-lpc/ocean/dataset"

import "fmt"

// Span is a contiguous, immutable slice of a stream at a known
// absolute byte offset.
type Span struct {
	Offset uint64
	Data   []byte
}

// End returns the absolute offset one past the last byte of the span.
func (s Span) End() uint64 { return s.Offset + uint64(len(s.Data)) }

// Range delimits a byte range [Beg, End) inside a buffer handed to a sieve.
type Range struct {
	Beg int
	End int
}

// Len returns the number of bytes in the range.
func (r Range) Len() int { return r.End - r.Beg }

// Class describes how a sieve classified a range of bytes.
type Class uint8

const (
	Data      Class = iota // one complete record
	NonData                // bytes that belong to no record grammar
	Malformed              // bytes rejected by a record grammar or the burst state machine
	Metadata               // recognised bytes carrying no measurement
)

func (c Class) String() string {
	switch c {
	case Data:
		return "data"
	case NonData:
		return "non-data"
	case Malformed:
		return "malformed"
	case Metadata:
		return "metadata"
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// Segment is a classified range of bytes returned by a sieve.
type Segment struct {
	Class  Class
	Range  Range
	Reason string // why the bytes were rejected, for Malformed segments
}

// Format is the plug-in of one instrument stream family.
type Format interface {
	// Name returns the name of the format.
	Name() string

	// Sieve scans p and returns the ordered, non-overlapping segments it
	// could classify, together with the number n of leading bytes of p that
	// are fully processed.
	// Bytes of p[:n] not covered by a segment are non-data.
	// Bytes of p[n:] are left for a subsequent call with more data.
	// When atEOF is true, no more bytes will ever follow p.
	//
	// Sieve must not retain p and must return the same result when called
	// twice with the same input.
	Sieve(p []byte, atEOF bool) (segs []Segment, n int)

	// Decode converts the bytes of a Data segment into a record.
	Decode(raw []byte) (Record, error)

	// Stream returns the name of the published stream for records of kind k.
	Stream(k Kind) string
}

// DataRanges returns the ranges of the Data segments of segs.
func DataRanges(segs []Segment) []Range {
	var rs []Range
	for _, seg := range segs {
		if seg.Class != Data {
			continue
		}
		rs = append(rs, seg.Range)
	}
	return rs
}
