// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when a resume checkpoint can not be used.
	ErrInvalidState = errors.New("dataset: invalid state")
)

// Anomaly reports bytes of a stream that did not yield a record.
// Anomalies are always recoverable: the stream continues after them.
type Anomaly struct {
	Class  Class  // NonData or Malformed
	Beg    uint64 // absolute offset of the first byte
	End    uint64 // absolute offset one past the last byte
	Reason string
}

func (a *Anomaly) Error() string {
	switch a.Class {
	case NonData:
		return fmt.Sprintf("dataset: found %d bytes of non-data at [%d, %d)",
			a.End-a.Beg, a.Beg, a.End,
		)
	default:
		return fmt.Sprintf("dataset: %s record at [%d, %d): %s",
			a.Class, a.Beg, a.End, a.Reason,
		)
	}
}

// SampleError reports bytes framed as a complete record that could not
// be decoded.
type SampleError struct {
	Beg   uint64 // absolute offset of the first byte
	End   uint64 // absolute offset one past the last byte
	Fatal bool   // whether the session should stop
	Err   error
}

func (e *SampleError) Error() string {
	kind := "recoverable"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("dataset: %s sample error at [%d, %d): %+v", kind, e.Beg, e.End, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }

// IsFatal returns whether err holds a fatal sample error.
func IsFatal(err error) bool {
	var serr *SampleError
	if errors.As(err, &serr) {
		return serr.Fatal
	}
	return false
}
