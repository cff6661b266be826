// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert decoded instrument records
// to and from LCIO.
//
// Each record is stored as one LCIO event holding a single generic object
// collection, named after the published stream of the record.
// The numeric fields of the record are stored as float64 values, in
// field order, after the NTP timestamp of the record.
// Waveforms are appended last.
// String fields are stored as event parameters.
package xcnv // import "github.com/go-lpc/ocean/internal/xcnv"

const (
	// Detector is the name of the detector stored in LCIO files.
	Detector = "OOI"

	kindKey   = "kind"   // event parameter holding the record kind
	formatKey = "format" // run parameter holding the stream format
)
