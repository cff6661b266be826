// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"log"

	"github.com/go-lpc/ocean/dataset"
	"go-hep.org/x/hep/lcio"
)

// Records2LCIO decodes all the records of p and writes them to w.
// Records2LCIO returns the number of written events.
func Records2LCIO(w *lcio.Writer, p *dataset.Parser, f dataset.Format, run int32, msg *log.Logger) (int, error) {
	err := w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: run,
		Detector:  Detector,
		Descr:     f.Name(),
		Params: lcio.Params{
			Strings: map[string][]string{
				formatKey: {f.Name()},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("could not write run header: %w", err)
	}

	var (
		n       = 0
		flushed = false
	)
	for {
		recs, _, err := p.Records(100)
		if err != nil {
			return n, fmt.Errorf("could not decode %s stream: %w", f.Name(), err)
		}

		if len(recs) == 0 {
			if flushed {
				return n, nil
			}
			err = p.Flush()
			if err != nil {
				return n, fmt.Errorf("could not flush %s stream: %w", f.Name(), err)
			}
			flushed = true
			continue
		}

		for _, rec := range recs {
			if n%100 == 0 {
				msg.Printf("processing evt %d...", n)
			}
			evt := EventFrom(rec, f.Stream(rec.Kind()), run, int32(n))
			err = w.WriteEvent(&evt)
			if err != nil {
				return n, fmt.Errorf("could not write %s event: %w", rec.Kind(), err)
			}
			n++
		}
	}
}

// EventFrom converts a decoded record into an LCIO event, storing the
// record under the name of its stream.
func EventFrom(rec dataset.Record, stream string, run, ievt int32) lcio.Event {
	var (
		ts   = rec.Timestamp()
		f64s = []float64{dataset.NTP(ts)}
		strs = map[string][]string{
			kindKey: {string(rec.Kind())},
		}
	)

	for _, field := range rec.Fields() {
		switch v := field.Value.(type) {
		case float64:
			f64s = append(f64s, v)
		case []float64:
			f64s = append(f64s, v...)
		case string:
			strs[field.Name] = []string{v}
		default:
			panic(fmt.Errorf("xcnv: invalid field %q type %T", field.Name, v))
		}
	}

	evt := lcio.Event{
		RunNumber:   run,
		EventNumber: ievt,
		TimeStamp:   ts.UnixNano(),
		Detector:    Detector,
		Params: lcio.Params{
			Strings: strs,
		},
	}
	evt.Add(stream, &lcio.GenericObject{
		Data: []lcio.GenericObjectData{
			{F64s: f64s},
		},
	})

	return evt
}
