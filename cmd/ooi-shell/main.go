// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ooi-shell interactively decodes an instrument stream file.
//
// Usage: ooi-shell [OPTIONS] FILE
//
// Example:
//
//	$> ooi-shell -fmt=presf -state=presf.ckpt ./testdata/presf.log
//	ooi> next 2
//	[...]
//	ooi> pos
//	pos: 113
//	ooi> quit
//
// With -state, the session resumes from the checkpoint file and the
// checkpoint is updated when the session ends.
package main // import "github.com/go-lpc/ocean/cmd/ooi-shell"

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-lpc/ocean"
	"github.com/go-lpc/ocean/dataset"
	"github.com/peterh/liner"
)

const help = `commands:
 next [N]  decode and display the next N records (default: 1)
 pos       display the current stream position
 state     display the checkpoint of the session
 flush     declare the end of the stream
 help      display this help message
 quit      end the session
`

func main() {
	log.SetPrefix("ooi-shell: ")
	log.SetFlags(0)

	var (
		name  = flag.String("fmt", "presf", "stream format (ctdmo, presf)")
		reco  = flag.Bool("recovered", false, "use the stream names of recovered data")
		state = flag.String("state", "", "path to a checkpoint file to resume from and update")
	)

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing path to input stream file")
	}

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	err := run(os.Stdout, &shell{term}, flag.Arg(0), *name, *reco, *state)
	if err != nil {
		term.Close()
		log.Fatalf("%+v", err)
	}
}

type prompter interface {
	Prompt(prompt string) (string, error)
}

type shell struct {
	term *liner.State
}

func (sh *shell) Prompt(prompt string) (string, error) {
	line, err := sh.term.Prompt(prompt)
	if err != nil {
		return line, err
	}
	if line != "" {
		sh.term.AppendHistory(line)
	}
	return line, nil
}

func run(w io.Writer, term prompter, fname, name string, recovered bool, state string) error {
	f, err := ocean.NewFormat(name, recovered)
	if err != nil {
		return fmt.Errorf("could not create stream format: %w", err)
	}

	st, err := loadState(state)
	if err != nil {
		return err
	}

	src, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open stream file: %w", err)
	}
	defer src.Close()

	p, err := dataset.NewParser(f, src, st,
		dataset.WithAnomalyHandler(func(err error) {
			fmt.Fprintf(w, "!!! %v\n", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("could not create %s parser: %w", name, err)
	}

	err = process(w, term, f, p)
	if err != nil {
		return err
	}

	return saveState(state, p.State())
}

func process(w io.Writer, term prompter, f dataset.Format, p *dataset.Parser) error {
	for {
		line, err := term.Prompt("ooi> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}

		toks := strings.Fields(line)
		if len(toks) == 0 {
			continue
		}

		switch cmd, args := toks[0], toks[1:]; cmd {
		case "next", "n":
			n := 1
			if len(args) > 0 {
				n, err = strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					fmt.Fprintf(w, "invalid number of records %q\n", args[0])
					continue
				}
			}
			recs, pos, err := p.Records(n)
			if err != nil {
				if !dataset.IsFatal(err) {
					return fmt.Errorf("could not decode records: %w", err)
				}
				fmt.Fprintf(w, "!!! %v\n", err)
			}
			for _, rec := range recs {
				dump(w, f, rec)
			}
			if len(recs) < n && err == nil {
				fmt.Fprintf(w, "no more records (pos: %d)\n", pos)
			}

		case "pos":
			fmt.Fprintf(w, "pos: %d\n", p.Position())

		case "state":
			raw, err := json.Marshal(p.State())
			if err != nil {
				return fmt.Errorf("could not encode state: %w", err)
			}
			fmt.Fprintf(w, "%s\n", raw)

		case "flush":
			err := p.Flush()
			if err != nil {
				return fmt.Errorf("could not flush stream: %w", err)
			}

		case "help", "?":
			fmt.Fprint(w, help)

		case "quit", "exit", "q":
			return nil

		default:
			fmt.Fprintf(w, "unknown command %q\n", cmd)
		}
	}
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

func loadState(fname string) (*dataset.State, error) {
	if fname == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read checkpoint: %w", err)
	}

	st, err := dataset.ParseState(raw)
	if err != nil {
		return nil, fmt.Errorf("could not parse checkpoint %q: %w", fname, err)
	}
	return &st, nil
}

func saveState(fname string, st dataset.State) error {
	if fname == "" {
		return nil
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("could not encode checkpoint: %w", err)
	}

	err = os.WriteFile(fname, raw, 0644)
	if err != nil {
		return fmt.Errorf("could not write checkpoint: %w", err)
	}
	return nil
}
