// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ooi-lcio-dump displays the instrument records embedded in LCIO files.
//
// Usage: ooi-lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//  $> ooi-lcio-dump ./presf_063.lcio
//  === evt 0: tide (presf_abc_dcl_tide_measurement) ===
//  time: 2014-04-17T17:59:11.323Z
//  ntp:  3606746351.323
//    dcl_controller_timestamp = "2014/04/17 17:59:11.323"
//    date_time_string = "17 Apr 2014 17:00:00"
//    values = [14.6612 11.38 11.5248]
//  [...]
package main // import "github.com/go-lpc/ocean/cmd/ooi-lcio-dump"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-lpc/ocean/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

const usage = `ooi-lcio-dump displays the instrument records embedded in LCIO files.

Usage: ooi-lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> ooi-lcio-dump ./presf_063.lcio
 === evt 0: tide (presf_abc_dcl_tide_measurement) ===
 time: 2014-04-17T17:59:11.323Z
 ntp:  3606746351.323
   dcl_controller_timestamp = "2014/04/17 17:59:11.323"
   date_time_string = "17 Apr 2014 17:00:00"
   values = [14.6612 11.38 11.5248]
 [...]

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("ooi-lcio-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("ooi-lcio-dump", flag.ExitOnError)

		kind = fset.String("kind", "", "only display records of this kind (tide, wave-burst, ctd-sample)")
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
		log.Fatalf("missing path to input LCIO file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *kind)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname, kind string) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	msg := log.New(io.Discard, "", 0)
	err = xcnv.LCIO2Events(r, 100, msg, func(evt xcnv.Event) error {
		if kind != "" && string(evt.Kind) != kind {
			return nil
		}

		fmt.Fprintf(wbuf, "=== evt %d: %s (%s) ===\n", evt.Number, evt.Kind, evt.Stream)
		fmt.Fprintf(wbuf, "time: %s\n", evt.Time.Format(time.RFC3339Nano))
		fmt.Fprintf(wbuf, "ntp:  %.3f\n", evt.NTP)

		keys := make([]string, 0, len(evt.Strings))
		for k := range evt.Strings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(wbuf, "  %s = %q\n", k, evt.Strings[k])
		}
		fmt.Fprintf(wbuf, "  values = %v\n", evt.Values)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not read events: %w", err)
	}

	return wbuf.Flush()
}
