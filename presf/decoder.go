// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package presf

import (
	"bytes"
	"strconv"
	"time"

	"github.com/go-lpc/ocean/dataset"
	"golang.org/x/xerrors"
)

// Decode decodes a tide line or a complete wave burst.
// Decoding failures are recoverable sample errors.
func (g *Grammar) Decode(raw []byte) (dataset.Record, error) {
	line := firstLine(raw)
	kind, m := g.match(line)
	switch kind {
	case TideLine:
		if len(line) != len(raw) {
			return nil, recoverable(xerrors.Errorf("presf: trailing bytes after tide line %q", line))
		}
		rec, err := g.decodeTide(m)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case WaveStartLine:
		rec, err := g.decodeWave(raw)
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, recoverable(xerrors.Errorf("presf: invalid %v record line %q", kind, line))
	}
}

func (g *Grammar) decodeTide(m []string) (*dataset.Tide, error) {
	dec := decoder{m: m}
	var (
		ts    = dec.stamp()
		press = dec.float("absolute pressure", grpFirst+1)
		ptemp = dec.float("pressure temperature", grpFirst+2)
		temp  = dec.float("seawater temperature", grpFirst+3)
	)
	if dec.err != nil {
		return nil, recoverable(xerrors.Errorf("presf: could not decode tide record: %w", dec.err))
	}

	return &dataset.Tide{
		Time:                ts,
		ControllerTimestamp: m[grpStamp],
		DateTime:            m[grpFirst],
		AbsolutePressure:    press,
		PressureTemperature: ptemp,
		SeawaterTemperature: temp,
	}, nil
}

func (g *Grammar) decodeWave(raw []byte) (*dataset.WaveBurst, error) {
	var (
		rec   dataset.WaveBurst
		state = idle
		done  = false
	)

	for len(raw) > 0 {
		line := firstLine(raw)
		raw = raw[len(line):]

		kind, m := g.match(line)
		dec := decoder{m: m}
		switch {
		case done:
			return nil, recoverable(xerrors.Errorf("presf: trailing %v line after wave burst end %q", kind, line))

		case kind == MetadataLine:
			continue

		case kind == WaveStartLine && state == idle:
			rec.Time = dec.stamp()
			rec.StartTimestamp = m[grpStamp]
			rec.DateTime = m[grpFirst]
			state = started

		case kind == PTFreqLine && state == started:
			rec.PTempFrequency = dec.float("ptfreq", grpFirst)
			state = hasPTFreq

		case kind == ContLine && (state == hasPTFreq || state == accumulating):
			rec.Pressures = append(rec.Pressures, dec.float("absolute pressure", grpFirst))
			state = accumulating

		case kind == EndLine && state == accumulating:
			rec.EndTimestamp = m[grpStamp]
			done = true

		default:
			return nil, recoverable(xerrors.Errorf(
				"presf: unexpected %v line in wave burst (state=%v): %q", kind, state, line,
			))
		}

		if dec.err != nil {
			return nil, recoverable(xerrors.Errorf("presf: could not decode wave burst: %w", dec.err))
		}
	}

	if !done {
		return nil, recoverable(xerrors.Errorf("presf: wave burst without end line (state=%v)", state))
	}

	return &rec, nil
}

// decoder extracts typed values from the sub-matches of a line.
type decoder struct {
	m   []string
	err error
}

func (dec *decoder) stamp() time.Time {
	if dec.err != nil {
		return time.Time{}
	}
	t, err := dataset.ParseController(dec.m[grpDate] + " " + dec.m[grpTime])
	if err != nil {
		dec.err = err
	}
	return t
}

func (dec *decoder) float(name string, i int) float64 {
	if dec.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(dec.m[i], 64)
	if err != nil {
		dec.err = xerrors.Errorf("invalid %s %q: %w", name, dec.m[i], err)
		return 0
	}
	return v
}

// firstLine returns the first line of p, newline included.
func firstLine(p []byte) []byte {
	i := bytes.IndexByte(p, '\n')
	if i < 0 {
		return p
	}
	return p[:i+1]
}

func recoverable(err error) error {
	return &dataset.SampleError{Fatal: false, Err: err}
}
