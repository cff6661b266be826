// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package presf

import (
	"bytes"
	"fmt"

	"github.com/go-lpc/ocean/dataset"
)

// burstState is the state of a wave burst assembly.
type burstState uint8

const (
	idle         burstState = iota // no open burst
	started                        // start line seen
	hasPTFreq                      // ptfreq line seen
	accumulating                   // at least one continuation line seen
)

func (s burstState) String() string {
	switch s {
	case idle:
		return "idle"
	case started:
		return "started"
	case hasPTFreq:
		return "has-ptfreq"
	case accumulating:
		return "accumulating"
	}
	return fmt.Sprintf("burstState(%d)", uint8(s))
}

// assembly tracks the wave burst being assembled by one sieve call.
type assembly struct {
	state burstState
	beg   int // offset of the start line
	n     int // number of continuation lines
}

// sieve accumulates the segments found in a buffer.
type sieve struct {
	segs []dataset.Segment
}

func (s *sieve) add(class dataset.Class, beg, end int, reason string) {
	s.segs = append(s.segs, dataset.Segment{
		Class:  class,
		Range:  dataset.Range{Beg: beg, End: end},
		Reason: reason,
	})
}

// Sieve classifies the complete lines of p.
//
// Tide lines and complete wave bursts are data, metadata lines are
// metadata. Lines that match no grammar or violate the burst state
// machine are malformed. An incomplete trailing line and a burst still
// waiting for its end line are left unprocessed, unless atEOF is true.
func (g *Grammar) Sieve(p []byte, atEOF bool) ([]dataset.Segment, int) {
	var (
		s   sieve
		asm assembly
		n   int // end of the last line processed outside of a burst
		beg int // beginning of the current line
	)

	for beg < len(p) {
		i := bytes.IndexByte(p[beg:], '\n')
		if i < 0 {
			break
		}
		end := beg + i + 1
		kind := g.Classify(p[beg:end])

		if asm.state == idle {
			switch kind {
			case MetadataLine:
				s.add(dataset.Metadata, beg, end, "")
			case TideLine:
				s.add(dataset.Data, beg, end, "")
			case WaveStartLine:
				asm = assembly{state: started, beg: beg}
			case UnknownLine:
				s.add(dataset.Malformed, beg, end, "unrecognized line")
			default:
				s.add(dataset.Malformed, beg, end, fmt.Sprintf("%v line outside of a wave burst", kind))
			}
			beg = end
			if asm.state == idle {
				n = end
			}
			continue
		}

		switch {
		case kind == MetadataLine:
			// part of the burst.

		case kind == WaveStartLine || kind == TideLine:
			s.add(dataset.Malformed, asm.beg, beg, fmt.Sprintf(
				"wave burst aborted by %v line (state=%v)", kind, asm.state,
			))
			asm = assembly{}
			n = beg
			continue // reprocess the line outside of the burst.

		case kind == PTFreqLine && asm.state == started:
			asm.state = hasPTFreq

		case kind == ContLine && (asm.state == hasPTFreq || asm.state == accumulating):
			asm.state = accumulating
			asm.n++

		case kind == EndLine && asm.state == accumulating:
			s.add(dataset.Data, asm.beg, end, "")
			asm = assembly{}
			n = end

		default:
			s.add(dataset.Malformed, asm.beg, end, fmt.Sprintf(
				"unexpected %v line in wave burst (state=%v)", kind, asm.state,
			))
			asm = assembly{}
			n = end
		}
		beg = end
	}

	if !atEOF {
		return s.segs, n
	}

	if asm.state != idle {
		s.add(dataset.Malformed, asm.beg, beg, fmt.Sprintf(
			"unterminated wave burst (state=%v, continuation lines=%d)", asm.state, asm.n,
		))
	}
	return s.segs, len(p)
}
