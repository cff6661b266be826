// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-lpc/ocean"
	"github.com/go-lpc/ocean/dataset"
	"golang.org/x/sync/errgroup"
)

const nrecs = 100 // max number of records decoded per iteration

type ingester struct {
	msg   *log.Logger
	db    store
	alert func(stream string, err error)
	freq  time.Duration
	once  bool // ingest what the files hold and stop
}

// run ingests all the streams concurrently until ctx is done.
func (ing *ingester) run(ctx context.Context, streams []StreamConfig) error {
	grp, ctx := errgroup.WithContext(ctx)
	for i := range streams {
		cfg := streams[i]
		grp.Go(func() error {
			err := ing.stream(ctx, cfg)
			if err != nil {
				return fmt.Errorf("could not ingest stream %q: %w", cfg.Name, err)
			}
			return nil
		})
	}
	return grp.Wait()
}

func (ing *ingester) stream(ctx context.Context, cfg StreamConfig) error {
	f, err := ocean.NewFormat(cfg.Format, cfg.Recovered)
	if err != nil {
		return fmt.Errorf("could not create stream format: %w", err)
	}

	st, err := ing.db.State(ctx, cfg.Name)
	if err != nil {
		return fmt.Errorf("could not load checkpoint: %w", err)
	}

	src, err := os.Open(cfg.File)
	if err != nil {
		return fmt.Errorf("could not open stream file: %w", err)
	}
	defer src.Close()

	var aerr error
	p, err := dataset.NewParser(f, src, st,
		dataset.WithLogger(ing.msg),
		dataset.WithAnomalyHandler(func(e error) {
			err := ing.db.InsertAnomaly(ctx, cfg.Name, e)
			if err != nil && aerr == nil {
				aerr = err
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("could not create %s parser: %w", f.Name(), err)
	}
	ing.msg.Printf("ingesting stream %q from %q (pos=%d)...", cfg.Name, cfg.File, p.Position())

	sess := session{ing: ing, name: cfg.Name, p: p, aerr: &aerr, pos: p.Position()}

	tick := time.NewTicker(ing.freq)
	defer tick.Stop()

	for {
		err := sess.drain(ctx)
		if err != nil {
			return err
		}

		if ing.once {
			err = p.Flush()
			if err != nil {
				return fmt.Errorf("could not flush stream: %w", err)
			}
			err = sess.drain(ctx)
			if err != nil {
				return err
			}
			ing.msg.Printf("stream %q: ingested %d records (pos=%d)", cfg.Name, sess.nrecs, p.Position())
			return nil
		}

		select {
		case <-ctx.Done():
			ing.msg.Printf("stream %q: ingested %d records (pos=%d)", cfg.Name, sess.nrecs, p.Position())
			return nil
		case <-tick.C:
		}
	}
}

type session struct {
	ing  *ingester
	name string
	p    *dataset.Parser
	aerr *error

	pos   uint64 // last saved position
	nrecs int
}

// drain decodes and stores all the complete records the stream holds.
// The checkpoint is saved once the records before it are stored.
func (s *session) drain(ctx context.Context) error {
	for {
		recs, pos, err := s.p.Records(nrecs)
		if err != nil && !dataset.IsFatal(err) {
			return fmt.Errorf("could not decode records: %w", err)
		}

		for _, rec := range recs {
			e := s.ing.db.InsertRecord(ctx, s.name, rec)
			if e != nil {
				return fmt.Errorf("could not store record: %w", e)
			}
		}
		s.nrecs += len(recs)

		if err != nil {
			s.ing.msg.Printf("stream %q: %+v", s.name, err)
			e := s.ing.db.InsertAnomaly(ctx, s.name, err)
			if e != nil {
				return fmt.Errorf("could not store fatal error: %w", e)
			}
			s.ing.alert(s.name, err)
		}

		if *s.aerr != nil {
			return fmt.Errorf("could not store anomaly: %w", *s.aerr)
		}

		if pos != s.pos {
			e := s.ing.db.SaveState(ctx, s.name, s.p.State())
			if e != nil {
				return fmt.Errorf("could not save checkpoint: %w", e)
			}
			s.pos = pos
		}

		if err == nil && len(recs) < nrecs {
			return nil
		}
	}
}
