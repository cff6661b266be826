// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ooi-ingest decodes instrument stream files as they grow and
// stores the decoded records, the anomalies and the stream checkpoints.
//
// Usage: ooi-ingest [OPTIONS] -cfg ooi.toml
//
// Example of configuration file:
//
//	freq = "5s"
//	state_dir = "/var/lib/ooi"
//
//	[db]
//	name = "ooi"
//	addr = "localhost:3306"
//	user = "$ENV{OOI_DB_USER:ooi}"
//	password = "$ENV{OOI_DB_PASSWORD}"
//
//	[mail]
//	server = "$ENV{MAIL_SERVER}"
//	port = 587
//	user = "$ENV{MAIL_USERNAME}"
//	password = "$ENV{MAIL_PASSWORD}"
//	targets = ["ops@example.org"]
//
//	[[stream]]
//	name = "presf-a"
//	format = "presf"
//	file = "/data/presf_063.000.log"
//
// Checkpoints are kept in state_dir when no database name is provided.
package main // import "github.com/go-lpc/ocean/cmd/ooi-ingest"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/go-lpc/ocean"
	"github.com/go-lpc/ocean/ckptdb"
	"github.com/sbinet/pmon"
)

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("ooi-ingest: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("ooi-ingest", flag.ExitOnError)

		fname  = fset.String("cfg", "ooi.toml", "path to configuration file")
		once   = fset.Bool("once", false, "ingest the current content of the streams and exit")
		doMon  = fset.Bool("pmon", false, "enable pmon monitoring")
		doFreq = fset.Duration("pmon-freq", 1*time.Second, "pmon frequency")
	)

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	version, _ := ocean.Version()
	log.Printf("ooi-ingest %s", version)

	cfg, err := loadConfig(*fname)
	if err != nil {
		log.Fatalf("could not load configuration %q: %+v", *fname, err)
	}

	if *doMon {
		err = monitor(filepath.Join(cfg.State, "ooi-ingest-pmon.log"), *doFreq)
		if err != nil {
			log.Fatalf("%+v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, w, cfg, *once)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(ctx context.Context, w io.Writer, cfg Config, once bool) error {
	var (
		msg = log.New(w, "ooi-ingest: ", 0)
		db  store
	)

	switch cfg.DB.Name {
	case "":
		fs, err := newFileStore(cfg.State, w)
		if err != nil {
			return err
		}
		db = fs
	default:
		var opts []ckptdb.Option
		if cfg.DB.Addr != "" {
			opts = append(opts, ckptdb.WithAddr(cfg.DB.Addr))
		}
		if cfg.DB.User != "" {
			opts = append(opts, ckptdb.WithUser(cfg.DB.User, cfg.DB.Password))
		}
		sql, err := ckptdb.Open(cfg.DB.Name, opts...)
		if err != nil {
			return fmt.Errorf("could not open checkpoint db: %w", err)
		}
		defer sql.Close()
		db = sql
	}

	ing := ingester{
		msg:   msg,
		db:    db,
		alert: newAlerter(cfg.Mail, msg).alert,
		freq:  cfg.Freq.Duration,
		once:  once,
	}

	err := ing.run(ctx, cfg.Streams)
	if err != nil {
		return fmt.Errorf("could not ingest streams: %w", err)
	}
	return nil
}

// monitor starts monitoring the resources used by this process.
// Monitoring stops with the process.
func monitor(fname string, freq time.Duration) error {
	pid := os.Getpid()
	p, err := pmon.Monitor(pid)
	if err != nil {
		return fmt.Errorf("could not start monitoring (pid=%d): %w", pid, err)
	}

	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		log.Printf("run pmon (pid=%d)...", pid)
		err := p.Run()
		if err != nil {
			log.Printf("could not monitor process: %+v", err)
		}
	}()

	return nil
}
