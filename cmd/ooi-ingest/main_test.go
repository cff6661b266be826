// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/ocean/dataset"
	"github.com/go-lpc/ocean/presf"
	mail "gopkg.in/gomail.v2"
)

const (
	tide1 = "2014/04/17 17:59:11.323 tide: start time = 17 Apr 2014 17:00:00, p = 14.6612, pt = 11.380, t = 11.5248\r\n"
	tide2 = "2014/04/17 18:14:11.512 tide: start time = 17 Apr 2014 18:00:00, p = 14.6601, pt = 11.381, t = 11.5251\r\n"
	wave  = "2014/04/17 17:59:12.334 wave: start time = 17 Apr 2014 17:59:17\r\n" +
		"2014/04/17 17:59:12.362 wave: ptfreq = 171226.968\r\n" +
		"2014/04/17 17:59:12.878   14.6498\r\n" +
		"2014/04/17 17:59:13.128   14.6482\r\n" +
		"2014/04/17 17:59:17.666 wave: end burst\r\n"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("OOI_TEST_MAIL_USER", "ops@example.org")

	for _, tc := range []struct {
		name string
		raw  string
		want Config
		err  string
	}{
		{
			name: "valid",
			raw: `
freq = "5s"
state_dir = "/var/lib/ooi"

[db]
name = "ooi"
user = "$ENV{OOI_TEST_DB_USER:ooi}"
password = "$ENV{OOI_TEST_DB_PASSWORD}"

[mail]
server = "smtp.example.org"
port = 587
user = "$ENV{OOI_TEST_MAIL_USER}"
targets = ["a@example.org", "b@example.org"]

[[stream]]
name = "presf-a"
format = "presf"
file = "/data/presf_063.000.log"

[[stream]]
name = "ctd-1"
format = "ctdmo"
recovered = true
file = "/data/ctd.raw"
`,
			want: Config{
				Freq:  duration{5 * time.Second},
				State: "/var/lib/ooi",
				DB: DBConfig{
					Name: "ooi",
					User: "ooi",
				},
				Mail: MailConfig{
					Server:  "smtp.example.org",
					Port:    587,
					User:    "ops@example.org",
					Targets: []string{"a@example.org", "b@example.org"},
				},
				Streams: []StreamConfig{
					{Name: "presf-a", Format: "presf", File: "/data/presf_063.000.log"},
					{Name: "ctd-1", Format: "ctdmo", Recovered: true, File: "/data/ctd.raw"},
				},
			},
		},
		{
			name: "defaults",
			raw: `
[[stream]]
name = "presf-a"
format = "presf"
file = "presf.log"
`,
			want: Config{
				Freq:  duration{time.Second},
				State: ".",
				Streams: []StreamConfig{
					{Name: "presf-a", Format: "presf", File: "presf.log"},
				},
			},
		},
		{
			name: "no-stream",
			raw:  `freq = "1s"`,
			err:  "no stream to ingest",
		},
		{
			name: "unknown-key",
			raw: `
freq = "1s"
verbose = true

[[stream]]
name = "presf-a"
format = "presf"
file = "presf.log"
`,
			err: `unknown config keys: ["verbose"]`,
		},
		{
			name: "invalid-freq",
			raw: `
freq = "-1s"

[[stream]]
name = "presf-a"
format = "presf"
file = "presf.log"
`,
			err: "invalid polling period -1s",
		},
		{
			name: "duplicate-stream",
			raw: `
[[stream]]
name = "presf-a"
format = "presf"
file = "presf.log"

[[stream]]
name = "presf-a"
format = "presf"
file = "presf-2.log"
`,
			err: `duplicate stream "presf-a"`,
		},
		{
			name: "no-file",
			raw: `
[[stream]]
name = "presf-a"
format = "presf"
`,
			err: `stream "presf-a" has no input file`,
		},
		{
			name: "invalid-format",
			raw: `
[[stream]]
name = "adcp-1"
format = "adcp"
file = "adcp.log"
`,
			err: `invalid stream "adcp-1": ocean: unknown stream format "adcp" (known: ["ctdmo" "presf"])`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseConfig([]byte(tc.raw))
			switch {
			case err != nil && tc.err != "":
				if got, want := err.Error(), tc.err; got != want {
					t.Fatalf("invalid error:\ngot= %v\nwant=%v\n", got, want)
				}
				return
			case err != nil:
				t.Fatalf("could not parse config: %+v", err)
			case tc.err != "":
				t.Fatalf("expected an error (%s)", tc.err)
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid config:\ngot= %+v\nwant=%+v", got, tc.want)
			}
		})
	}
}

func TestRunOnce(t *testing.T) {
	tmp := t.TempDir()
	fname := filepath.Join(tmp, "presf.log")

	err := os.WriteFile(fname, []byte(tide1+"garbage\r\n"+wave), 0644)
	if err != nil {
		t.Fatalf("could not create stream file: %+v", err)
	}

	cfg := Config{
		Freq:  duration{time.Millisecond},
		State: filepath.Join(tmp, "state"),
		Streams: []StreamConfig{
			{Name: "presf-a", Format: "presf", File: fname},
		},
	}

	out := new(bytes.Buffer)
	err = run(context.Background(), out, cfg, true)
	if err != nil {
		t.Fatalf("could not ingest streams: %+v", err)
	}

	for _, want := range []string{
		"presf-a: tide record at 2014-04-17T17:59:11.323Z\n",
		"presf-a: dataset: malformed record at [104, 113): unrecognized line\n",
		"presf-a: wave-burst record at 2014-04-17T17:59:12.334Z\n",
		`stream "presf-a": ingested 2 records`,
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in output:\n%s", want, out.String())
		}
	}

	db := &fileStore{dir: cfg.State}
	st, err := db.State(context.Background(), "presf-a")
	if err != nil {
		t.Fatalf("could not read checkpoint: %+v", err)
	}
	if st == nil {
		t.Fatalf("missing checkpoint")
	}
	if got, want := st.Position, uint64(len(tide1+"garbage\r\n"+wave)); got != want {
		t.Fatalf("invalid checkpoint: got=%d, want=%d", got, want)
	}

	f, err := os.OpenFile(fname, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("could not open stream file: %+v", err)
	}
	_, err = f.WriteString(tide2)
	if err != nil {
		t.Fatalf("could not append to stream file: %+v", err)
	}
	err = f.Close()
	if err != nil {
		t.Fatalf("could not close stream file: %+v", err)
	}

	out.Reset()
	err = run(context.Background(), out, cfg, true)
	if err != nil {
		t.Fatalf("could not resume ingestion: %+v", err)
	}

	if want := "presf-a: tide record at 2014-04-17T18:14:11.512Z\n"; !strings.Contains(out.String(), want) {
		t.Fatalf("missing %q in output:\n%s", want, out.String())
	}
	for _, bad := range []string{
		"17:59:11.323Z",
		"wave-burst record",
		"malformed",
	} {
		if strings.Contains(out.String(), bad) {
			t.Fatalf("resumed ingestion replayed %q:\n%s", bad, out.String())
		}
	}
}

func TestRunCancel(t *testing.T) {
	tmp := t.TempDir()
	fname := filepath.Join(tmp, "presf.log")

	err := os.WriteFile(fname, []byte(tide1), 0644)
	if err != nil {
		t.Fatalf("could not create stream file: %+v", err)
	}

	cfg := Config{
		Freq:  duration{time.Millisecond},
		State: tmp,
		Streams: []StreamConfig{
			{Name: "presf-a", Format: "presf", File: fname},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := new(bytes.Buffer)
	err = run(ctx, out, cfg, false)
	if err != nil {
		t.Fatalf("could not ingest streams: %+v", err)
	}

	if want := "presf-a: tide record at 2014-04-17T17:59:11.323Z\n"; !strings.Contains(out.String(), want) {
		t.Fatalf("missing %q in output:\n%s", want, out.String())
	}
}

func TestRunMissingFile(t *testing.T) {
	tmp := t.TempDir()
	cfg := Config{
		Freq:  duration{time.Millisecond},
		State: tmp,
		Streams: []StreamConfig{
			{Name: "presf-a", Format: "presf", File: filepath.Join(tmp, "missing.log")},
		},
	}

	err := run(context.Background(), new(bytes.Buffer), cfg, true)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got, want := err.Error(), `could not ingest streams: could not ingest stream "presf-a": could not open stream file`; !strings.HasPrefix(got, want) {
		t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
	}
}

// fatalFormat fails fatally on tide lines with a negative pressure.
type fatalFormat struct {
	dataset.Format
}

func (f fatalFormat) Decode(raw []byte) (dataset.Record, error) {
	if bytes.Contains(raw, []byte("p = -")) {
		return nil, &dataset.SampleError{Fatal: true, Err: errors.New("negative pressure")}
	}
	return f.Format.Decode(raw)
}

func TestSessionFatal(t *testing.T) {
	bad := strings.Replace(tide1, "p = 14.6612", "p = -1.0000", 1)
	raw := tide1 + bad + tide2

	var (
		out    = new(bytes.Buffer)
		alerts []string
		ing    = &ingester{
			msg: log.New(out, "", 0),
			db:  &fileStore{dir: t.TempDir(), w: out},
			alert: func(stream string, err error) {
				alerts = append(alerts, stream+": "+err.Error())
			},
		}
	)

	p, err := dataset.NewParser(fatalFormat{presf.New()}, strings.NewReader(raw), nil)
	if err != nil {
		t.Fatalf("could not create parser: %+v", err)
	}

	s := session{ing: ing, name: "presf-a", p: p, aerr: new(error)}
	err = s.drain(context.Background())
	if err != nil {
		t.Fatalf("could not drain stream: %+v", err)
	}

	if got, want := s.nrecs, 2; got != want {
		t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
	}

	want := []string{
		"presf-a: dataset: fatal sample error at [104, 208): negative pressure",
	}
	if !reflect.DeepEqual(alerts, want) {
		t.Fatalf("invalid alerts:\ngot= %q\nwant=%q", alerts, want)
	}

	st, err := ing.db.State(context.Background(), "presf-a")
	if err != nil {
		t.Fatalf("could not read checkpoint: %+v", err)
	}
	if got, want := st.Position, uint64(len(raw)); got != want {
		t.Fatalf("invalid checkpoint: got=%d, want=%d", got, want)
	}
}

func TestAlert(t *testing.T) {
	var (
		out  = new(bytes.Buffer)
		msg  = log.New(out, "", 0)
		sent []*mail.Message
	)

	a := newAlerter(MailConfig{}, msg)
	a.send = func(m *mail.Message) error {
		sent = append(sent, m)
		return nil
	}
	a.alert("presf-a", errors.New("boom"))
	if got, want := out.String(), "could not send mail alert: missing credentials\n"; got != want {
		t.Fatalf("invalid output: got=%q, want=%q", got, want)
	}
	if len(sent) != 0 {
		t.Fatalf("unexpected mail")
	}

	out.Reset()
	a.cfg = MailConfig{
		Server:   "smtp.example.org",
		Port:     587,
		User:     "ooi@example.org",
		Password: "s3cr3t",
		Targets:  []string{"ops@example.org"},
	}
	a.alert("presf-a", errors.New("boom"))
	if len(sent) != 1 {
		t.Fatalf("invalid number of mails: got=%d, want=1", len(sent))
	}
	if got, want := sent[0].GetHeader("Subject"), []string{`[ooi-ingest] stream alert: "presf-a"`}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid subject: got=%q, want=%q", got, want)
	}
	if got, want := sent[0].GetHeader("Bcc"), []string{"ops@example.org"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid targets: got=%q, want=%q", got, want)
	}

	a.send = func(m *mail.Message) error { return errors.New("no route to host") }
	a.alert("presf-a", errors.New("boom"))
	if got, want := out.String(), "could not send mail alert: no route to host\n"; got != want {
		t.Fatalf("invalid output: got=%q, want=%q", got, want)
	}
}
