// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ckptdb stores stream checkpoints, decoded records and anomalies
// in a MySQL database.
//
// The database holds three tables:
//
//	checkpoints(stream VARCHAR PRIMARY KEY, position BIGINT UNSIGNED, updated DATETIME)
//	records(stream VARCHAR, kind VARCHAR, time DATETIME(3), ntp DOUBLE, fields JSON)
//	anomalies(stream VARCHAR, class VARCHAR, beg BIGINT UNSIGNED, end BIGINT UNSIGNED, fatal BOOL, msg TEXT)
package ckptdb // import "github.com/go-lpc/ocean/ckptdb"

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-lpc/ocean/dataset"
	"github.com/go-sql-driver/mysql"
)

const timeout = 5 * time.Second

var (
	drvName = "mysql"
)

// Option configures the connection to the database.
type Option func(cfg *mysql.Config)

// WithUser sets the credentials used to connect to the database.
func WithUser(usr, pwd string) Option {
	return func(cfg *mysql.Config) {
		cfg.User = usr
		cfg.Passwd = pwd
	}
}

// WithAddr sets the host:port address of the database server.
func WithAddr(addr string) Option {
	return func(cfg *mysql.Config) {
		cfg.Net = "tcp"
		cfg.Addr = addr
	}
}

// DB persists the progress and the output of decoding sessions.
type DB struct {
	db   *sql.DB
	name string
	now  func() time.Time
}

// Open opens a connection to the checkpoint database dbname.
func Open(dbname string, opts ...Option) (*DB, error) {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = "localhost:3306"
	cfg.DBName = dbname
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open(drvName, cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("ckptdb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dbname, now: time.Now}, nil
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("ckptdb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// State returns the last checkpoint of the provided stream, or nil if the
// stream was never checkpointed.
func (db *DB) State(ctx context.Context, stream string) (*dataset.State, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT position FROM checkpoints WHERE stream=? LIMIT 1",
		stream,
	)
	if err != nil {
		return nil, fmt.Errorf("ckptdb: could not query checkpoint of %q: %w", stream, err)
	}
	defer rows.Close()

	var st *dataset.State
	for rows.Next() {
		var pos uint64
		err = rows.Scan(&pos)
		if err != nil {
			return nil, fmt.Errorf("ckptdb: could not get checkpoint of %q: %w", stream, err)
		}
		st = &dataset.State{Position: pos}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ckptdb: could not scan db for checkpoint of %q: %w", stream, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ckptdb: context error while retrieving checkpoint of %q: %w", stream, err)
	}

	return st, nil
}

// SaveState stores the checkpoint of the provided stream.
func (db *DB) SaveState(ctx context.Context, stream string, st dataset.State) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := db.db.ExecContext(
		ctx,
		`
INSERT INTO checkpoints (stream, position, updated) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE position=VALUES(position), updated=VALUES(updated)
`,
		stream, int64(st.Position), db.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ckptdb: could not save checkpoint of %q: %w", stream, err)
	}
	return nil
}

// InsertRecord stores a decoded record of the provided stream.
func (db *DB) InsertRecord(ctx context.Context, stream string, rec dataset.Record) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fields := make(map[string]interface{}, len(rec.Fields()))
	for _, f := range rec.Fields() {
		fields[f.Name] = f.Value
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("ckptdb: could not encode %s record fields: %w", rec.Kind(), err)
	}

	ts := rec.Timestamp().UTC()
	_, err = db.db.ExecContext(
		ctx,
		"INSERT INTO records (stream, kind, time, ntp, fields) VALUES (?, ?, ?, ?, ?)",
		stream, string(rec.Kind()), ts, dataset.NTP(ts), string(raw),
	)
	if err != nil {
		return fmt.Errorf("ckptdb: could not insert %s record of %q: %w", rec.Kind(), stream, err)
	}
	return nil
}

// InsertAnomaly stores an anomaly or a sample error found in the
// provided stream.
func (db *DB) InsertAnomaly(ctx context.Context, stream string, err error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		class    string
		beg, end uint64
		fatal    bool
	)
	var (
		anomaly *dataset.Anomaly
		serr    *dataset.SampleError
	)
	switch {
	case errors.As(err, &anomaly):
		class = anomaly.Class.String()
		beg, end = anomaly.Beg, anomaly.End
	case errors.As(err, &serr):
		class = "sample"
		beg, end = serr.Beg, serr.End
		fatal = serr.Fatal
	default:
		class = "error"
	}

	_, xerr := db.db.ExecContext(
		ctx,
		"INSERT INTO anomalies (stream, class, beg, end, fatal, msg) VALUES (?, ?, ?, ?, ?, ?)",
		stream, class, int64(beg), int64(end), fatal, err.Error(),
	)
	if xerr != nil {
		return fmt.Errorf("ckptdb: could not insert anomaly of %q: %w", stream, xerr)
	}
	return nil
}
