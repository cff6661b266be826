// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"fmt"
	"time"
)

const (
	// Epoch2000Offset is the number of seconds added to an instrument
	// time counted from 2000 to obtain a Unix time.
	// It spans 30 years of 365 days.
	Epoch2000Offset = 30 * 365 * 24 * 60 * 60

	// ntpOffset is the number of seconds between 1900-01-01 and 1970-01-01.
	ntpOffset = 2208988800

	// ControllerLayout is the layout of data-logger controller timestamps.
	ControllerLayout = "2006/01/02 15:04:05.000"

	// DateTimeLayout is the layout of instrument date/time strings.
	DateTimeLayout = "02 Jan 2006 15:04:05"
)

// FromEpoch2000 converts a number of seconds counted from the instrument
// epoch to a canonical UTC time.
func FromEpoch2000(sec uint32) time.Time {
	return time.Unix(int64(sec)+Epoch2000Offset, 0).UTC()
}

// ParseController parses a "YYYY/MM/DD HH:MM:SS.mmm" controller timestamp
// as a UTC time.
func ParseController(s string) (time.Time, error) {
	t, err := time.Parse(ControllerLayout, s)
	if err != nil {
		return t, fmt.Errorf("dataset: could not parse controller timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseDateTime parses a "DD Mon YYYY HH:MM:SS" instrument date/time
// as a UTC time.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return t, fmt.Errorf("dataset: could not parse date/time %q: %w", s, err)
	}
	return t, nil
}

// NTP returns the number of seconds elapsed since the NTP epoch
// (1900-01-01 UTC) at time t.
func NTP(t time.Time) float64 {
	return float64(t.Unix()+ntpOffset) + float64(t.Nanosecond())*1e-9
}
