// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ckptdb

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/ocean/dataset"
	"github.com/go-lpc/ocean/internal/fakedb"
)

func init() {
	drvName = "fakedb"
}

func open(t *testing.T) *DB {
	t.Helper()
	db, err := Open("fakedb", WithUser("ooi", "s3cr3t"), WithAddr("localhost:3307"))
	if err != nil {
		t.Fatalf("could not open ckptdb: %+v", err)
	}
	db.now = func() time.Time {
		return time.Date(2023, time.May, 4, 12, 0, 0, 0, time.UTC)
	}
	return db
}

func TestOpen(t *testing.T) {
	db := open(t)
	defer db.Close()
}

func TestState(t *testing.T) {
	db := open(t)
	defer db.Close()

	for _, tc := range []struct {
		name string
		rows [][]driver.Value
		want *dataset.State
	}{
		{
			name: "checkpoint",
			rows: [][]driver.Value{{int64(1234)}},
			want: &dataset.State{Position: 1234},
		},
		{
			name: "no-checkpoint",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fakedb.Run(context.Background(), fakedb.Rows{
				Names:  []string{"position"},
				Values: tc.rows,
			}, func(ctx context.Context) error {
				st, err := db.State(ctx, "presf")
				if err != nil {
					t.Fatalf("could not retrieve checkpoint: %+v", err)
				}
				if got, want := st, tc.want; !reflect.DeepEqual(got, want) {
					t.Fatalf("invalid checkpoint: got=%v, want=%v", got, want)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("error: %+v", err)
			}
		})
	}
}

func TestSaveState(t *testing.T) {
	db := open(t)
	defer db.Close()

	execs, err := fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		return db.SaveState(ctx, "ctdmo", dataset.State{Position: 42})
	})
	if err != nil {
		t.Fatalf("could not save checkpoint: %+v", err)
	}

	if got, want := len(execs), 1; got != want {
		t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
	}
	if !strings.Contains(execs[0].Query, "INSERT INTO checkpoints") {
		t.Fatalf("invalid statement: %q", execs[0].Query)
	}
	want := []driver.Value{
		"ctdmo", int64(42), time.Date(2023, time.May, 4, 12, 0, 0, 0, time.UTC),
	}
	if got := execs[0].Args; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid arguments:\ngot= %v\nwant=%v", got, want)
	}
}

func TestInsertRecord(t *testing.T) {
	db := open(t)
	defer db.Close()

	rec := &dataset.WaveBurst{
		Time:           time.Date(2014, time.April, 17, 17, 59, 12, 334e6, time.UTC),
		StartTimestamp: "2014/04/17 17:59:12.334",
		EndTimestamp:   "2014/04/17 17:59:17.666",
		DateTime:       "17 Apr 2014 17:59:17",
		PTempFrequency: 171226.968,
		Pressures:      []float64{14.6498, 14.6482},
	}

	execs, err := fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
		return db.InsertRecord(ctx, "presf_abc_dcl_wave_burst", rec)
	})
	if err != nil {
		t.Fatalf("could not insert record: %+v", err)
	}
	if got, want := len(execs), 1; got != want {
		t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
	}

	args := execs[0].Args
	if got, want := len(args), 5; got != want {
		t.Fatalf("invalid number of arguments: got=%d, want=%d", got, want)
	}
	if got, want := args[0], driver.Value("presf_abc_dcl_wave_burst"); got != want {
		t.Fatalf("invalid stream: got=%v, want=%v", got, want)
	}
	if got, want := args[1], driver.Value("wave-burst"); got != want {
		t.Fatalf("invalid kind: got=%v, want=%v", got, want)
	}
	if got, want := args[3], driver.Value(dataset.NTP(rec.Time)); got != want {
		t.Fatalf("invalid NTP time: got=%v, want=%v", got, want)
	}

	var fields struct {
		Start    string    `json:"dcl_controller_start_timestamp"`
		PTFreq   float64   `json:"ptemp_frequency"`
		Pressure []float64 `json:"absolute_pressure"`
	}
	err = json.Unmarshal([]byte(args[4].(string)), &fields)
	if err != nil {
		t.Fatalf("could not decode fields: %+v", err)
	}
	if got, want := fields.Start, rec.StartTimestamp; got != want {
		t.Fatalf("invalid start timestamp: got=%q, want=%q", got, want)
	}
	if got, want := fields.PTFreq, rec.PTempFrequency; got != want {
		t.Fatalf("invalid ptfreq: got=%v, want=%v", got, want)
	}
	if got, want := fields.Pressure, rec.Pressures; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid waveform: got=%v, want=%v", got, want)
	}
}

func TestInsertAnomaly(t *testing.T) {
	db := open(t)
	defer db.Close()

	for _, tc := range []struct {
		name string
		err  error
		want []driver.Value
	}{
		{
			name: "non-data",
			err:  &dataset.Anomaly{Class: dataset.NonData, Beg: 2, End: 5},
			want: []driver.Value{
				"ctdmo", "non-data", int64(2), int64(5), false,
				"dataset: found 3 bytes of non-data at [2, 5)",
			},
		},
		{
			name: "sample-error",
			err: &dataset.SampleError{
				Beg: 13, End: 26, Fatal: true,
				Err: errors.New("invalid sample"),
			},
			want: []driver.Value{
				"ctdmo", "sample", int64(13), int64(26), true,
				"dataset: fatal sample error at [13, 26): invalid sample",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			execs, err := fakedb.Run(context.Background(), fakedb.Rows{}, func(ctx context.Context) error {
				return db.InsertAnomaly(ctx, "ctdmo", tc.err)
			})
			if err != nil {
				t.Fatalf("could not insert anomaly: %+v", err)
			}
			if got, want := len(execs), 1; got != want {
				t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
			}
			if got, want := execs[0].Args, tc.want; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid arguments:\ngot= %#v\nwant=%#v", got, want)
			}
		})
	}
}
