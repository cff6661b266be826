// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-lpc/ocean"
	"github.com/go-lpc/ocean/dataset"
)

const nrecs = 100 // max number of records decoded per poll

// publisher decodes a stream file and queues the encoded records.
type publisher struct {
	freq time.Duration // polling period of the stream file

	mu      sync.Mutex
	fname   string
	f       dataset.Format
	src     *os.File
	p       *dataset.Parser
	running bool

	n     int // number of decoded records
	nerrs int // number of anomalies and sample errors
	data  chan []byte
}

func (pub *publisher) configure(fname, format string, recovered bool) error {
	f, err := ocean.NewFormat(format, recovered)
	if err != nil {
		return fmt.Errorf("could not create stream format: %w", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()

	pub.fname = fname
	pub.f = f
	return nil
}

// init opens the configured stream file and starts decoding it from
// its beginning.
func (pub *publisher) init() error {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	if pub.f == nil {
		return fmt.Errorf("no stream configured")
	}

	pub.close()

	src, err := os.Open(pub.fname)
	if err != nil {
		return fmt.Errorf("could not open stream file: %w", err)
	}

	p, err := dataset.NewParser(pub.f, src, nil,
		dataset.WithAnomalyHandler(func(error) { pub.nerrs++ }),
	)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("could not create %s parser: %w", pub.f.Name(), err)
	}

	pub.src = src
	pub.p = p
	pub.n = 0
	pub.nerrs = 0
	pub.data = make(chan []byte, 1024)
	return nil
}

func (pub *publisher) start() error {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	if pub.p == nil {
		return fmt.Errorf("stream not initialized")
	}
	pub.running = true
	return nil
}

func (pub *publisher) stop() {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	pub.running = false
}

func (pub *publisher) quit() error {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	pub.running = false
	return pub.close()
}

func (pub *publisher) close() error {
	if pub.src == nil {
		return nil
	}
	err := pub.src.Close()
	pub.src = nil
	pub.p = nil
	if err != nil {
		return fmt.Errorf("could not close stream file: %w", err)
	}
	return nil
}

func (pub *publisher) stats() (n, nerrs int, pos uint64) {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.p != nil {
		pos = pub.p.Position()
	}
	return pub.n, pub.nerrs, pos
}

// poll decodes the records currently available and queues them.
// poll returns the number of queued records.
func (pub *publisher) poll(ctx context.Context) (int, error) {
	frames, data, err := pub.decode()
	if err != nil {
		return 0, err
	}

	for i, raw := range frames {
		select {
		case <-ctx.Done():
			return i, nil
		case data <- raw:
		}
	}

	return len(frames), nil
}

// decode decodes and encodes the records currently available.
// The queue is filled by the caller, without holding the lock.
func (pub *publisher) decode() ([][]byte, chan []byte, error) {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	if !pub.running || pub.p == nil {
		return nil, nil, nil
	}

	recs, _, err := pub.p.Records(nrecs)
	if err != nil {
		if !dataset.IsFatal(err) {
			return nil, nil, fmt.Errorf("could not decode %s stream: %w", pub.f.Name(), err)
		}
		pub.nerrs++
	}

	frames := make([][]byte, 0, len(recs))
	for _, rec := range recs {
		raw, err := encodeRecord(pub.f.Stream(rec.Kind()), rec)
		if err != nil {
			return nil, nil, fmt.Errorf("could not encode record: %w", err)
		}
		frames = append(frames, raw)
	}
	pub.n += len(frames)

	return frames, pub.data, nil
}

// run polls the stream until ctx is done.
func (pub *publisher) run(ctx context.Context) error {
	for {
		n, err := pub.poll(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pub.freq):
		}
	}
}

// next returns the next queued record, or nil when ctx is done.
func (pub *publisher) next(ctx context.Context) []byte {
	pub.mu.Lock()
	data := pub.data
	pub.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil
	case raw := <-data:
		return raw
	}
}
