// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-lpc/ocean/dataset"
)

// store persists the progress and the output of the ingestion.
// *ckptdb.DB implements store.
type store interface {
	State(ctx context.Context, stream string) (*dataset.State, error)
	SaveState(ctx context.Context, stream string, st dataset.State) error
	InsertRecord(ctx context.Context, stream string, rec dataset.Record) error
	InsertAnomaly(ctx context.Context, stream string, err error) error
}

// fileStore keeps checkpoints as JSON files under a directory and
// journals records and anomalies to a writer.
type fileStore struct {
	dir string

	mu sync.Mutex
	w  io.Writer
}

func newFileStore(dir string, w io.Writer) (*fileStore, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("could not create checkpoint directory: %w", err)
	}
	return &fileStore{dir: dir, w: w}, nil
}

func (db *fileStore) fname(stream string) string {
	return filepath.Join(db.dir, stream+".ckpt")
}

func (db *fileStore) State(ctx context.Context, stream string) (*dataset.State, error) {
	raw, err := os.ReadFile(db.fname(stream))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read checkpoint of stream %q: %w", stream, err)
	}

	st, err := dataset.ParseState(raw)
	if err != nil {
		return nil, fmt.Errorf("could not parse checkpoint of stream %q: %w", stream, err)
	}
	return &st, nil
}

func (db *fileStore) SaveState(ctx context.Context, stream string, st dataset.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("could not encode checkpoint of stream %q: %w", stream, err)
	}

	fname := db.fname(stream)
	err = os.WriteFile(fname+".tmp", raw, 0644)
	if err != nil {
		return fmt.Errorf("could not write checkpoint of stream %q: %w", stream, err)
	}

	err = os.Rename(fname+".tmp", fname)
	if err != nil {
		return fmt.Errorf("could not commit checkpoint of stream %q: %w", stream, err)
	}
	return nil
}

func (db *fileStore) InsertRecord(ctx context.Context, stream string, rec dataset.Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := fmt.Fprintf(db.w, "%s: %s record at %s\n",
		stream, rec.Kind(), rec.Timestamp().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (db *fileStore) InsertAnomaly(ctx context.Context, stream string, e error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := fmt.Fprintf(db.w, "%s: %v\n", stream, e)
	return err
}
