// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-lpc/ocean"
)

// Config describes the streams to ingest and where to store their output.
type Config struct {
	Freq  duration `toml:"freq"`      // polling period of the stream files
	State string   `toml:"state_dir"` // checkpoint directory, used when no database is configured

	DB      DBConfig       `toml:"db"`
	Mail    MailConfig     `toml:"mail"`
	Streams []StreamConfig `toml:"stream"`
}

// DBConfig describes the MySQL checkpoint database.
type DBConfig struct {
	Name     string `toml:"name"`
	Addr     string `toml:"addr"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// MailConfig describes how fatal errors are reported.
type MailConfig struct {
	Server   string   `toml:"server"`
	Port     int      `toml:"port"`
	User     string   `toml:"user"`
	Password string   `toml:"password"`
	Targets  []string `toml:"targets"`
}

func (cfg MailConfig) valid() bool {
	return cfg.Server != "" && cfg.Port != 0 &&
		cfg.User != "" && cfg.Password != "" &&
		len(cfg.Targets) != 0
}

// StreamConfig describes one instrument stream.
type StreamConfig struct {
	Name      string `toml:"name"`
	Format    string `toml:"format"`
	Recovered bool   `toml:"recovered"`
	File      string `toml:"file"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(p []byte) error {
	v, err := time.ParseDuration(string(p))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// envRe matches $ENV{NAME} and $ENV{NAME:default} placeholders.
var envRe = regexp.MustCompile(`\$ENV\{([^}:]*)(?::([^}]*))?\}`)

func expandEnv(p []byte) []byte {
	return envRe.ReplaceAllFunc(p, func(m []byte) []byte {
		sub := envRe.FindSubmatch(m)
		if v := os.Getenv(string(sub[1])); v != "" {
			return []byte(v)
		}
		return sub[2]
	})
}

func loadConfig(fname string) (Config, error) {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config file: %w", err)
	}
	return parseConfig(raw)
}

func parseConfig(raw []byte) (Config, error) {
	cfg := Config{
		Freq:  duration{time.Second},
		State: ".",
	}

	md, err := toml.NewDecoder(bytes.NewReader(expandEnv(raw))).Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode config: %w", err)
	}
	if keys := md.Undecoded(); len(keys) != 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown config keys: %q", names)
	}

	if len(cfg.Streams) == 0 {
		return cfg, fmt.Errorf("no stream to ingest")
	}
	if cfg.Freq.Duration <= 0 {
		return cfg, fmt.Errorf("invalid polling period %v", cfg.Freq.Duration)
	}

	names := make(map[string]struct{}, len(cfg.Streams))
	for i, s := range cfg.Streams {
		if s.Name == "" {
			return cfg, fmt.Errorf("stream #%d has no name", i)
		}
		if _, dup := names[s.Name]; dup {
			return cfg, fmt.Errorf("duplicate stream %q", s.Name)
		}
		names[s.Name] = struct{}{}
		if s.File == "" {
			return cfg, fmt.Errorf("stream %q has no input file", s.Name)
		}
		_, err := ocean.NewFormat(s.Format, s.Recovered)
		if err != nil {
			return cfg, fmt.Errorf("invalid stream %q: %w", s.Name, err)
		}
	}

	return cfg, nil
}
