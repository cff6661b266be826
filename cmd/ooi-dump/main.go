// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ooi-dump decodes and displays instrument stream captures.
//
// Usage: ooi-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//  $> ooi-dump -fmt=presf ./testdata/presf.log
//  === tide (presf_abc_dcl_tide_measurement) ===
//  time: 2014-04-17T17:59:11.323Z
//    dcl_controller_timestamp = "2014/04/17 17:59:11.323"
//    date_time_string = "17 Apr 2014 17:00:00"
//    absolute_pressure = 14.6612
//    pressure_temperature = 11.38
//    seawater_temperature = 11.5248
//  !!! dataset: malformed record at [104, 113): unrecognized line
//  [...]
//  records: 2, anomalies: 1
package main // import "github.com/go-lpc/ocean/cmd/ooi-dump"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/ocean"
	"github.com/go-lpc/ocean/dataset"
	"github.com/go-lpc/ocean/internal/mmap"
)

const usage = `ooi-dump decodes and displays instrument stream captures.

Usage: ooi-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> ooi-dump -fmt=presf ./testdata/presf.log
 === tide (presf_abc_dcl_tide_measurement) ===
 time: 2014-04-17T17:59:11.323Z
   dcl_controller_timestamp = "2014/04/17 17:59:11.323"
   date_time_string = "17 Apr 2014 17:00:00"
   absolute_pressure = 14.6612
   pressure_temperature = 11.38
   seawater_temperature = 11.5248
 !!! dataset: malformed record at [104, 113): unrecognized line
 [...]
 records: 2, anomalies: 1

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("ooi-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("ooi-dump", flag.ExitOnError)

		name = fset.String("fmt", "presf", "stream format (ctdmo, presf)")
		reco = fset.Bool("recovered", false, "use the stream names of recovered data")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input stream file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *name, *reco)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname, name string, recovered bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := ocean.NewFormat(name, recovered)
	if err != nil {
		return fmt.Errorf("could not create stream format: %w", err)
	}

	h, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer h.Close()

	var (
		nrecs   = 0
		nerrs   = 0
		flushed = false
	)

	p, err := dataset.NewParser(f, h.Reader(), nil,
		dataset.WithAnomalyHandler(func(err error) {
			nerrs++
			fmt.Fprintf(wbuf, "!!! %v\n", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("could not create %s parser: %w", name, err)
	}

loop:
	for {
		recs, _, err := p.Records(1)
		if err != nil {
			if !dataset.IsFatal(err) {
				return fmt.Errorf("could not decode %s stream: %w", name, err)
			}
			nerrs++
			fmt.Fprintf(wbuf, "!!! %v\n", err)
			continue
		}

		if len(recs) == 0 {
			if flushed {
				break loop
			}
			err = p.Flush()
			if err != nil {
				return fmt.Errorf("could not flush %s stream: %w", name, err)
			}
			flushed = true
			continue
		}

		for _, rec := range recs {
			nrecs++
			dump(wbuf, f, rec)
		}
	}

	fmt.Fprintf(wbuf, "records: %d, anomalies: %d\n", nrecs, nerrs)

	err = wbuf.Flush()
	if err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}

	return nil
}

func dump(w io.Writer, f dataset.Format, rec dataset.Record) {
	fmt.Fprintf(w, "=== %s (%s) ===\n", rec.Kind(), f.Stream(rec.Kind()))
	fmt.Fprintf(w, "time: %s\n", rec.Timestamp().Format(time.RFC3339Nano))
	for _, field := range rec.Fields() {
		switch v := field.Value.(type) {
		case string:
			fmt.Fprintf(w, "  %s = %q\n", field.Name, v)
		default:
			fmt.Fprintf(w, "  %s = %v\n", field.Name, v)
		}
	}
}
