// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package presf decodes the ASCII stream of PRESF tide and wave loggers
// recorded by a data concentrator logger (DCL).
//
// Every line starts with a "YYYY/MM/DD HH:MM:SS.mmm" controller timestamp.
// A tide measurement holds on one line. A wave burst spans many lines:
//
//	2014/04/17 17:59:12.334 wave: start time = 17 Apr 2014 17:59:17
//	2014/04/17 17:59:12.362 wave: ptfreq = 171226.968
//	2014/04/17 17:59:12.878   14.6498
//	...
//	2014/04/17 17:59:17.666 wave: end burst
//
// Bracketed metadata lines are recognized and dropped.
package presf // import "github.com/go-lpc/ocean/presf"

import (
	"github.com/go-lpc/ocean/dataset"
)

// Names of the published streams.
const (
	TideStream = "presf_abc_dcl_tide_measurement"
	WaveStream = "presf_abc_dcl_wave_burst"

	recoveredSuffix = "_recovered"
)

// grammar serves the package-level Sieve and Decode helpers.
var grammar = NewGrammar()

// Sieve classifies the lines of p with the PRESF grammar.
func Sieve(p []byte, atEOF bool) ([]dataset.Segment, int) {
	return grammar.Sieve(p, atEOF)
}

// Decode decodes a tide line or a complete wave burst with the PRESF grammar.
func Decode(raw []byte) (dataset.Record, error) {
	return grammar.Decode(raw)
}

// Format is the PRESF stream format.
type Format struct {
	g         *Grammar
	recovered bool
}

// Option configures a Format.
type Option func(*Format)

// WithRecovered selects the stream names of data recovered from the
// instrument, instead of telemetered data.
func WithRecovered(recovered bool) Option {
	return func(f *Format) {
		f.recovered = recovered
	}
}

// New returns the PRESF stream format, with its own grammar.
func New(opts ...Option) *Format {
	f := &Format{g: NewGrammar()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (*Format) Name() string { return "presf" }

func (f *Format) Stream(k dataset.Kind) string {
	var name string
	switch k {
	case dataset.KindTide:
		name = TideStream
	case dataset.KindWave:
		name = WaveStream
	default:
		return ""
	}
	if f.recovered {
		name += recoveredSuffix
	}
	return name
}

func (f *Format) Sieve(p []byte, atEOF bool) ([]dataset.Segment, int) {
	return f.g.Sieve(p, atEOF)
}

func (f *Format) Decode(raw []byte) (dataset.Record, error) {
	return f.g.Decode(raw)
}

var (
	_ dataset.Format = (*Format)(nil)
)
