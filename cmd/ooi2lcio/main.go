// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ooi2lcio converts an instrument stream capture to an LCIO file.
package main // import "github.com/go-lpc/ocean/cmd/ooi2lcio"

import (
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-lpc/ocean"
	"github.com/go-lpc/ocean/dataset"
	"github.com/go-lpc/ocean/internal/mmap"
	"github.com/go-lpc/ocean/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "ooi2lcio: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.lcio", "path to output LCIO file")
		compr = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		name  = flag.String("fmt", "presf", "stream format (ctdmo, presf)")
		reco  = flag.Bool("recovered", false, "use the stream names of recovered data")
		run   = flag.Int("run", -1, "run number (default: inferred from the input file name)")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: ooi2lcio [OPTIONS] file.log

ex:
 $> ooi2lcio -o out.lcio -lvl=9 -fmt=presf ./presf_063.000.log

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input stream file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	f, err := ocean.NewFormat(*name, *reco)
	if err != nil {
		msg.Fatalf("could not create stream format: %+v", err)
	}

	irun := int32(*run)
	if irun < 0 {
		irun, err = runNbrFrom(flag.Arg(0))
		if err != nil {
			msg.Fatalf("could not infer run from %q: %+v", flag.Arg(0), err)
		}
	}

	err = process(*oname, *compr, f, irun, flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not convert stream file: %+v", err)
	}
}

func process(oname string, lvl int, f dataset.Format, run int32, fname string) error {
	h, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open stream file: %w", err)
	}
	defer h.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	nerrs := 0
	p, err := dataset.NewParser(f, h.Reader(), nil,
		dataset.WithLogger(msg),
		dataset.WithAnomalyHandler(func(error) { nerrs++ }),
	)
	if err != nil {
		return fmt.Errorf("could not create %s parser: %w", f.Name(), err)
	}

	n, err := xcnv.Records2LCIO(w, p, f, run, msg)
	if err != nil {
		return fmt.Errorf("could not convert %s stream to LCIO: %w", f.Name(), err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	msg.Printf("converted %d records (anomalies: %d)", n, nerrs)
	return nil
}

// runNbrFrom extracts the run number from a "<name>_<run>.<ext>" file name.
func runNbrFrom(fname string) (int32, error) {
	name := filepath.Base(fname)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return 0, fmt.Errorf("no run number in %q", fname)
	}
	run, err := strconv.ParseInt(name[i+1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid run number in %q: %w", fname, err)
	}
	return int32(run), nil
}
