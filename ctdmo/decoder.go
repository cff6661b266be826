// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctdmo

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/go-lpc/ocean/dataset"
	"golang.org/x/xerrors"
)

// Offsets of the sample fields, in hexadecimal digits of the
// hex-encoded sample.
const (
	tempBeg  = 2
	tempEnd  = 7
	condBeg  = 7
	condEnd  = 12
	pressLSB = 12 // least significant pressure byte
	pressMSB = 14 // most significant pressure byte
	timeBeg  = 8  // in bytes
	timeEnd  = 12 // in bytes
)

// Decode decodes one CTDMO sample.
// Decoding failures are fatal sample errors.
func Decode(raw []byte) (*dataset.CTDSample, error) {
	if len(raw) != SampleSize {
		return nil, fatal(xerrors.Errorf(
			"ctdmo: invalid sample size (got=%d, want=%d)", len(raw), SampleSize,
		))
	}
	if !match(raw) {
		return nil, fatal(xerrors.Errorf("ctdmo: no sample match of data 0x%x", raw))
	}

	dec := decoder{hex: hex.EncodeToString(raw)}

	var (
		temp  = dec.field("temperature", tempBeg, tempEnd)
		cond  = dec.field("conductivity", condBeg, condEnd)
		press = dec.swapped("pressure", pressLSB, pressMSB)
	)
	if dec.err != nil {
		return nil, fatal(xerrors.Errorf("ctdmo: could not decode sample 0x%x: %w", raw, dec.err))
	}

	secs := binary.LittleEndian.Uint32(raw[timeBeg:timeEnd])

	return &dataset.CTDSample{
		Time:         dataset.FromEpoch2000(secs),
		Temperature:  Temperature(temp),
		Conductivity: Conductivity(cond),
		Pressure:     Pressure(press),
	}, nil
}

// Temperature converts a raw temperature count to degC.
func Temperature(raw uint64) float64 {
	return float64(raw)/10000 - 10
}

// Conductivity converts a raw conductivity count to S/m.
func Conductivity(raw uint64) float64 {
	return float64(raw)/100000 - 0.5
}

// Pressure converts a raw pressure count to dbar.
func Pressure(raw uint64) float64 {
	return float64(raw)*PressureRange/(0.85*65536) - 0.05*PressureRange
}

// decoder extracts integer fields from a hex-encoded sample.
type decoder struct {
	hex string
	err error
}

func (dec *decoder) field(name string, beg, end int) uint64 {
	if dec.err != nil {
		return 0
	}
	if end > len(dec.hex) {
		dec.err = xerrors.Errorf("truncated %s field [%d:%d]", name, beg, end)
		return 0
	}
	return dec.parse(name, dec.hex[beg:end])
}

// swapped reads a 2-byte field stored least significant byte first.
func (dec *decoder) swapped(name string, lsb, msb int) uint64 {
	if dec.err != nil {
		return 0
	}
	if msb+2 > len(dec.hex) || lsb+2 > len(dec.hex) {
		dec.err = xerrors.Errorf("truncated %s field", name)
		return 0
	}
	return dec.parse(name, dec.hex[msb:msb+2]+dec.hex[lsb:lsb+2])
}

func (dec *decoder) parse(name, s string) uint64 {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		dec.err = xerrors.Errorf("invalid %s field %q: %w", name, s, err)
		return 0
	}
	return v
}

func fatal(err error) error {
	return &dataset.SampleError{Fatal: true, Err: err}
}
