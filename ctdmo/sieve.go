// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctdmo

import (
	"github.com/go-lpc/ocean/dataset"
)

// Sieve returns the ranges of all the non-overlapping samples of p,
// scanning greedily from left to right.
//
// Bytes before a sample are non-data. The last SampleSize-1 bytes of p
// may still be the beginning of a sample and are left unprocessed,
// unless atEOF is true.
func Sieve(p []byte, atEOF bool) ([]dataset.Segment, int) {
	var (
		segs []dataset.Segment
		last = 0
	)

	for i := 0; i+SampleSize <= len(p); {
		if !match(p[i : i+SampleSize]) {
			i++
			continue
		}
		segs = append(segs, dataset.Segment{
			Class: dataset.Data,
			Range: dataset.Range{Beg: i, End: i + SampleSize},
		})
		i += SampleSize
		last = i
	}

	n := last
	switch {
	case atEOF:
		n = len(p)
	case len(p)-(SampleSize-1) > n:
		n = len(p) - (SampleSize - 1)
	}

	return segs, n
}

// match returns whether the 13 bytes of p form a sample.
func match(p []byte) bool {
	if len(p) != SampleSize {
		return false
	}
	year := p[SampleSize-2]
	return yearMin <= year && year <= yearMax && p[SampleSize-1] == delimiter
}
