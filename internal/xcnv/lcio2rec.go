// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-lpc/ocean/dataset"
	"go-hep.org/x/hep/lcio"
)

// Event is a record read back from an LCIO file.
type Event struct {
	Number  int32
	Stream  string
	Kind    dataset.Kind
	Time    time.Time
	NTP     float64
	Values  []float64         // numeric fields, waveforms last
	Strings map[string]string // string fields
}

// LCIO2Events reads the record events of r and calls f for each of them.
func LCIO2Events(r *lcio.Reader, freq int, msg *log.Logger, f func(evt Event) error) error {
	i := 0
	for r.Next() {
		if freq > 0 && i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}
		levt := r.Event()
		evt, err := eventFrom(&levt)
		if err != nil {
			return fmt.Errorf("could not convert LCIO event %d: %w", levt.EventNumber, err)
		}
		err = f(evt)
		if err != nil {
			return err
		}
		i++
	}

	err := r.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not read LCIO event %d: %w", i, err)
	}
	return nil
}

func eventFrom(levt *lcio.Event) (Event, error) {
	evt := Event{
		Number:  levt.EventNumber,
		Time:    time.Unix(0, levt.TimeStamp).UTC(),
		Strings: make(map[string]string),
	}

	names := levt.Names()
	if len(names) != 1 {
		return evt, fmt.Errorf("invalid number of collections (got=%d, want=1)", len(names))
	}
	evt.Stream = names[0]

	obj, ok := levt.Get(evt.Stream).(*lcio.GenericObject)
	if !ok || len(obj.Data) != 1 || len(obj.Data[0].F64s) == 0 {
		return evt, fmt.Errorf("invalid %q collection", evt.Stream)
	}
	evt.NTP = obj.Data[0].F64s[0]
	evt.Values = obj.Data[0].F64s[1:]

	for k, v := range levt.Params.Strings {
		if len(v) != 1 {
			return evt, fmt.Errorf("invalid %q parameter", k)
		}
		if k == kindKey {
			evt.Kind = dataset.Kind(v[0])
			continue
		}
		evt.Strings[k] = v[0]
	}

	if evt.Kind == "" {
		return evt, fmt.Errorf("missing record kind")
	}

	return evt, nil
}
