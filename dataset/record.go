// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import "time"

// Kind is the kind of a decoded record.
type Kind string

const (
	KindTide Kind = "tide"
	KindWave Kind = "wave-burst"
	KindCTD  Kind = "ctd-sample"
)

// Record is a decoded measurement.
// The set of records is closed: *Tide, *WaveBurst and *CTDSample.
type Record interface {
	Kind() Kind
	Timestamp() time.Time
	Fields() []Field

	isRecord()
}

// Field is a named value of a record.
// Value holds a string, a float64 or a []float64.
type Field struct {
	Name  string
	Value interface{}
}

// Tide is a single-line tide measurement from a pressure logger.
type Tide struct {
	Time time.Time // controller time, normalized

	ControllerTimestamp string
	DateTime            string // instrument start time of the measurement

	AbsolutePressure    float64
	PressureTemperature float64
	SeawaterTemperature float64
}

func (*Tide) Kind() Kind              { return KindTide }
func (rec *Tide) Timestamp() time.Time { return rec.Time }
func (*Tide) isRecord()               {}

func (rec *Tide) Fields() []Field {
	return []Field{
		{"dcl_controller_timestamp", rec.ControllerTimestamp},
		{"date_time_string", rec.DateTime},
		{"absolute_pressure", rec.AbsolutePressure},
		{"pressure_temperature", rec.PressureTemperature},
		{"seawater_temperature", rec.SeawaterTemperature},
	}
}

// WaveBurst is a multi-line wave burst from a pressure logger.
type WaveBurst struct {
	Time time.Time // controller time of the start line, normalized

	StartTimestamp string
	EndTimestamp   string
	DateTime       string

	PTempFrequency float64
	Pressures      []float64 // waveform, in arrival order
}

func (*WaveBurst) Kind() Kind              { return KindWave }
func (rec *WaveBurst) Timestamp() time.Time { return rec.Time }
func (*WaveBurst) isRecord()               {}

func (rec *WaveBurst) Fields() []Field {
	return []Field{
		{"dcl_controller_start_timestamp", rec.StartTimestamp},
		{"dcl_controller_end_timestamp", rec.EndTimestamp},
		{"date_time_string", rec.DateTime},
		{"ptemp_frequency", rec.PTempFrequency},
		{"absolute_pressure", rec.Pressures},
	}
}

// CTDSample is a binary conductivity, temperature and pressure sample.
type CTDSample struct {
	Time time.Time // instrument time, normalized

	Temperature  float64 // degC
	Conductivity float64 // S/m
	Pressure     float64 // dbar
}

func (*CTDSample) Kind() Kind              { return KindCTD }
func (rec *CTDSample) Timestamp() time.Time { return rec.Time }
func (*CTDSample) isRecord()               {}

func (rec *CTDSample) Fields() []Field {
	return []Field{
		{"temperature", rec.Temperature},
		{"conductivity", rec.Conductivity},
		{"pressure", rec.Pressure},
	}
}

var (
	_ Record = (*Tide)(nil)
	_ Record = (*WaveBurst)(nil)
	_ Record = (*CTDSample)(nil)
)
