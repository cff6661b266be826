// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ctdmo decodes the binary sample stream of CTDMO instruments
// (conductivity, temperature, pressure) relayed by a MFLM platform node.
//
// A sample is 13 bytes long:
//
//	[0:8]   packed temperature, conductivity and pressure fields
//	[8:12]  seconds since 2000-01-01, least significant byte first
//	[12]    0x0d delimiter
//
// The most significant time byte encodes the year and is restricted to
// [0x16, 0x40] (2011-2034), so that a 0x0d byte inside the data can not be
// mistaken for a delimiter.
package ctdmo // import "github.com/go-lpc/ocean/ctdmo"

import (
	"github.com/go-lpc/ocean/dataset"
)

const (
	SampleSize = 13 // size in bytes of a sample

	delimiter = 0x0d // sample delimiter
	yearMin   = 0x16 // august 2011
	yearMax   = 0x40 // july 2034
)

const (
	// PressureRange is the full scale of the pressure sensor, for a
	// 1000 psia sensor with a 14 psi offset, in dbar.
	PressureRange = 0.6894757 * (1000 - 14)
)

// Format is the CTDMO stream format.
type Format struct {
	stream string
}

// Option configures a Format.
type Option func(*Format)

// WithStream sets the name of the stream CTD samples are published to.
func WithStream(name string) Option {
	return func(f *Format) {
		f.stream = name
	}
}

// New returns the CTDMO stream format.
func New(opts ...Option) *Format {
	f := &Format{stream: "nose_ctd_external"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (*Format) Name() string { return "ctdmo" }

func (f *Format) Stream(k dataset.Kind) string {
	if k != dataset.KindCTD {
		return ""
	}
	return f.stream
}

func (*Format) Sieve(p []byte, atEOF bool) ([]dataset.Segment, int) {
	return Sieve(p, atEOF)
}

func (*Format) Decode(raw []byte) (dataset.Record, error) {
	rec, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

var (
	_ dataset.Format = (*Format)(nil)
)
