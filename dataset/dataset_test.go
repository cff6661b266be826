// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

// lineFormat is a line-oriented format used to exercise the chunker and
// the parser: "meta" lines are metadata, lines starting with '#' are
// malformed, "~" lines are non-data and everything else is a record.
type lineFormat struct{}

func (lineFormat) Name() string        { return "line" }
func (lineFormat) Stream(Kind) string { return "lines" }

func (lineFormat) Sieve(p []byte, atEOF bool) ([]Segment, int) {
	var (
		segs []Segment
		beg  int
	)
	for {
		i := bytes.IndexByte(p[beg:], '\n')
		if i < 0 {
			break
		}
		end := beg + i + 1
		line := string(p[beg : end-1])
		switch {
		case line == "meta":
			segs = append(segs, Segment{Class: Metadata, Range: Range{beg, end}})
		case strings.HasPrefix(line, "#"):
			segs = append(segs, Segment{Class: Malformed, Range: Range{beg, end}, Reason: "comment"})
		case line == "~":
			// non-data
		default:
			segs = append(segs, Segment{Class: Data, Range: Range{beg, end}})
		}
		beg = end
	}
	if atEOF {
		return segs, len(p)
	}
	return segs, beg
}

func (lineFormat) Decode(raw []byte) (Record, error) {
	line := strings.TrimSuffix(string(raw), "\n")
	switch line {
	case "fatal":
		return nil, &SampleError{Fatal: true, Err: errors.New("boom")}
	case "soft":
		return nil, &SampleError{Fatal: false, Err: errors.New("oops")}
	case "plain":
		return nil, errors.New("plain error")
	}
	return &Tide{ControllerTimestamp: line}, nil
}

func names(recs []Record) []string {
	o := make([]string, len(recs))
	for i, rec := range recs {
		o[i] = rec.(*Tide).ControllerTimestamp
	}
	return o
}

func TestParseState(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
		want State
		err  error
	}{
		{
			name: "valid",
			raw:  `{"position": 42}`,
			want: State{Position: 42},
		},
		{
			name: "extra-keys",
			raw:  `{"position": 42, "stream": "presf"}`,
			want: State{Position: 42},
		},
		{
			name: "missing-position",
			raw:  `{"pos": 42}`,
			err:  errors.New("dataset: invalid state: position missing in state keys"),
		},
		{
			name: "invalid-position",
			raw:  `{"position": "42"}`,
			err:  ErrInvalidState,
		},
		{
			name: "invalid-json",
			raw:  `position=42`,
			err:  ErrInvalidState,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			st, err := ParseState([]byte(tc.raw))
			switch {
			case err != nil && tc.err != nil:
				if !errors.Is(err, ErrInvalidState) {
					t.Fatalf("invalid error: got=%+v, want an ErrInvalidState", err)
				}
				if tc.err != ErrInvalidState && err.Error() != tc.err.Error() {
					t.Fatalf("invalid error:\ngot= %v\nwant=%v", err, tc.err)
				}
				return
			case err != nil && tc.err == nil:
				t.Fatalf("could not parse state: %+v", err)
			case err == nil && tc.err != nil:
				t.Fatalf("expected an error (%v)", tc.err)
			}
			if st != tc.want {
				t.Fatalf("invalid state: got=%+v, want=%+v", st, tc.want)
			}
		})
	}
}

func TestTracker(t *testing.T) {
	trk := NewTracker(10)
	trk.Advance(0)
	trk.Advance(5)
	if got, want := trk.Position(), uint64(15); got != want {
		t.Fatalf("invalid position: got=%d, want=%d", got, want)
	}
	if got, want := trk.State(), (State{Position: 15}); got != want {
		t.Fatalf("invalid state: got=%+v, want=%+v", got, want)
	}
}

func TestChunker(t *testing.T) {
	chk := NewChunker(lineFormat{}, 100)

	if _, ok := chk.NextData(); ok {
		t.Fatalf("empty chunker returned data")
	}

	_, _ = chk.Write([]byte("a\n~\nmeta\n#c\nb"))
	if got, want := chk.Buffered(), 13; got != want {
		t.Fatalf("invalid buffered bytes: got=%d, want=%d", got, want)
	}

	type chunk struct {
		class Class
		off   uint64
		data  string
	}
	var chunks []chunk
	next := func() bool {
		if c, ok := chk.NextData(); ok {
			chunks = append(chunks, chunk{c.Class, c.Span.Offset, string(c.Span.Data)})
			return true
		}
		if c, ok := chk.NextNonData(); ok {
			chunks = append(chunks, chunk{c.Class, c.Span.Offset, string(c.Span.Data)})
			return true
		}
		return false
	}
	for next() {
	}

	want := []chunk{
		{Data, 100, "a\n"},
		{NonData, 102, "~\n"},
		{Metadata, 104, "meta\n"},
		{Malformed, 109, "#c\n"},
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Fatalf("invalid chunks:\ngot= %v\nwant=%v", chunks, want)
	}
	if got, want := chk.Buffered(), 1; got != want {
		t.Fatalf("invalid buffered bytes: got=%d, want=%d", got, want)
	}

	// complete the pending record.
	chunks = chunks[:0]
	_, _ = chk.Write([]byte("\nxy"))
	for next() {
	}
	chk.Flush()
	for next() {
	}

	want = []chunk{
		{Data, 112, "b\n"},
		{NonData, 114, "xy"},
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Fatalf("invalid chunks:\ngot= %v\nwant=%v", chunks, want)
	}
	if got, want := chk.Buffered(), 0; got != want {
		t.Fatalf("invalid buffered bytes: got=%d, want=%d", got, want)
	}
}

func TestChunkerNonDataSpan(t *testing.T) {
	chk := NewChunker(lineFormat{}, 0)

	_, _ = chk.Write([]byte("~\n"))
	if c, ok := chk.NextNonData(); ok {
		t.Fatalf("open non-data span handed out: %+v", c)
	}
	if got, want := chk.Buffered(), 2; got != want {
		t.Fatalf("invalid buffered bytes: got=%d, want=%d", got, want)
	}

	_, _ = chk.Write([]byte("~\n~\na\n~\n"))

	c, ok := chk.NextNonData()
	if !ok {
		t.Fatalf("missing non-data chunk")
	}
	if got, want := c.Span, (Span{Offset: 0, Data: []byte("~\n~\n~\n")}); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid non-data span:\ngot= %q\nwant=%q", got.Data, want.Data)
	}

	c, ok = chk.NextData()
	if !ok {
		t.Fatalf("missing data chunk")
	}
	if got, want := c.Span.Offset, uint64(6); got != want {
		t.Fatalf("invalid data offset: got=%d, want=%d", got, want)
	}

	if _, ok := chk.NextNonData(); ok {
		t.Fatalf("open non-data span handed out")
	}

	chk.Flush()
	c, ok = chk.NextNonData()
	if !ok {
		t.Fatalf("missing trailing non-data chunk")
	}
	if got, want := c.Span, (Span{Offset: 8, Data: []byte("~\n")}); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid trailing span: got=%d+%q, want=%d+%q", got.Offset, got.Data, want.Offset, want.Data)
	}
	if got, want := chk.Buffered(), 0; got != want {
		t.Fatalf("invalid buffered bytes: got=%d, want=%d", got, want)
	}
}

func TestParser(t *testing.T) {
	const raw = "a\n~\nmeta\nsoft\n#x\nb\nfatal\nc\nplain\nd\n"

	var (
		anomalies []error
		states    []State
	)
	p, err := NewParser(lineFormat{}, strings.NewReader(raw), nil,
		WithBlockSize(3),
		WithAnomalyHandler(func(err error) { anomalies = append(anomalies, err) }),
		WithStateHandler(func(st State) { states = append(states, st) }),
	)
	if err != nil {
		t.Fatalf("could not create parser: %+v", err)
	}

	recs, pos, err := p.Records(10)
	if err == nil {
		t.Fatalf("expected a fatal error")
	}
	if !IsFatal(err) {
		t.Fatalf("expected a fatal error: %+v", err)
	}
	if got, want := err.Error(), "dataset: fatal sample error at [19, 25): boom"; got != want {
		t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
	}
	if got, want := names(recs), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid records: got=%q, want=%q", got, want)
	}
	if got, want := pos, uint64(25); got != want {
		t.Fatalf("invalid position: got=%d, want=%d", got, want)
	}
	if got, want := len(anomalies), 3; got != want {
		t.Fatalf("invalid number of anomalies: got=%d, want=%d (%v)", got, want, anomalies)
	}
	for i, want := range []string{
		"dataset: found 2 bytes of non-data at [2, 4)",
		"dataset: recoverable sample error at [9, 14): oops",
		"dataset: malformed record at [14, 17): comment",
	} {
		if got := anomalies[i].Error(); got != want {
			t.Fatalf("invalid anomaly %d:\ngot= %v\nwant=%v", i, got, want)
		}
	}
	if got, want := states, []State{{Position: 25}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid states: got=%v, want=%v", got, want)
	}

	// a fatal error does not stop the session.
	recs, pos, err = p.Records(10)
	if err == nil || !IsFatal(err) {
		t.Fatalf("expected a fatal error: %+v", err)
	}
	if got, want := err.Error(), "dataset: fatal sample error at [27, 33): plain error"; got != want {
		t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
	}
	if got, want := names(recs), []string{"c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid records: got=%q, want=%q", got, want)
	}

	recs, pos, err = p.Records(10)
	if err != nil {
		t.Fatalf("could not read records: %+v", err)
	}
	if got, want := names(recs), []string{"d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid records: got=%q, want=%q", got, want)
	}
	if got, want := pos, uint64(len(raw)); got != want {
		t.Fatalf("invalid position: got=%d, want=%d", got, want)
	}
	if got, want := p.State(), (State{Position: uint64(len(raw))}); got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}

	// no more data yet.
	nstates := len(states)
	recs, pos, err = p.Records(10)
	if err != nil {
		t.Fatalf("could not read records: %+v", err)
	}
	if len(recs) != 0 || pos != uint64(len(raw)) {
		t.Fatalf("unexpected records: recs=%d, pos=%d", len(recs), pos)
	}
	if len(states) != nstates {
		t.Fatalf("state handler called without progress")
	}
}

// reader hides the io.Seeker implementation of its underlying reader.
type reader struct {
	r io.Reader
}

func (r reader) Read(p []byte) (int, error) { return r.r.Read(p) }

func TestParserResume(t *testing.T) {
	const raw = "a\nb\nc\n"

	for _, tc := range []struct {
		name string
		r    func() io.Reader
	}{
		{"seeker", func() io.Reader { return strings.NewReader(raw) }},
		{"reader", func() io.Reader { return reader{strings.NewReader(raw)} }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewParser(lineFormat{}, tc.r(), nil)
			if err != nil {
				t.Fatalf("could not create parser: %+v", err)
			}
			recs, pos, err := p.Records(2)
			if err != nil {
				t.Fatalf("could not read records: %+v", err)
			}
			if got, want := names(recs), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid records: got=%q, want=%q", got, want)
			}

			st := p.State()
			if st.Position != pos {
				t.Fatalf("invalid state: got=%d, want=%d", st.Position, pos)
			}

			// resumed sessions never re-emit records.
			q, err := NewParser(lineFormat{}, tc.r(), &st)
			if err != nil {
				t.Fatalf("could not resume parser: %+v", err)
			}
			recs, pos, err = q.Records(10)
			if err != nil {
				t.Fatalf("could not read records: %+v", err)
			}
			if got, want := names(recs), []string{"c"}; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid records: got=%q, want=%q", got, want)
			}
			if got, want := pos, uint64(len(raw)); got != want {
				t.Fatalf("invalid position: got=%d, want=%d", got, want)
			}
		})
	}
}

func TestParserResumeTooFar(t *testing.T) {
	_, err := NewParser(lineFormat{}, reader{strings.NewReader("a\n")}, &State{Position: 10})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestParserFlush(t *testing.T) {
	var anomalies []error
	p, err := NewParser(lineFormat{}, strings.NewReader("a\nb"), nil,
		WithAnomalyHandler(func(err error) { anomalies = append(anomalies, err) }),
	)
	if err != nil {
		t.Fatalf("could not create parser: %+v", err)
	}

	recs, pos, err := p.Records(10)
	if err != nil {
		t.Fatalf("could not read records: %+v", err)
	}
	if len(recs) != 1 || pos != 2 {
		t.Fatalf("invalid records: recs=%d, pos=%d", len(recs), pos)
	}

	err = p.Flush()
	if err != nil {
		t.Fatalf("could not flush: %+v", err)
	}
	recs, pos, err = p.Records(10)
	if err != nil {
		t.Fatalf("could not read records: %+v", err)
	}
	if len(recs) != 0 || pos != 3 {
		t.Fatalf("invalid records: recs=%d, pos=%d", len(recs), pos)
	}
	if got, want := len(anomalies), 1; got != want {
		t.Fatalf("invalid number of anomalies: got=%d, want=%d", got, want)
	}
}

func TestTime(t *testing.T) {
	if got, want := FromEpoch2000(0), time.Date(1999, time.December, 25, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("invalid epoch: got=%v, want=%v", got, want)
	}
	if got, want := FromEpoch2000(0).Location(), time.UTC; got != want {
		t.Fatalf("invalid location: got=%v, want=%v", got, want)
	}

	ts, err := ParseController("2014/04/17 17:59:11.323")
	if err != nil {
		t.Fatalf("could not parse controller timestamp: %+v", err)
	}
	if got, want := ts, time.Date(2014, time.April, 17, 17, 59, 11, 323e6, time.UTC); !got.Equal(want) {
		t.Fatalf("invalid controller timestamp: got=%v, want=%v", got, want)
	}

	dt, err := ParseDateTime("17 Apr 2014 17:00:00")
	if err != nil {
		t.Fatalf("could not parse date/time: %+v", err)
	}
	if got, want := dt, time.Date(2014, time.April, 17, 17, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("invalid date/time: got=%v, want=%v", got, want)
	}

	for _, s := range []string{"2014-04-17 17:59:11.323", "2014/04/17 17:59:11"} {
		_, err := ParseController(s)
		if err == nil {
			t.Fatalf("expected an error for %q", s)
		}
	}

	if got, want := NTP(time.Unix(0, 0)), 2208988800.0; got != want {
		t.Fatalf("invalid NTP time: got=%v, want=%v", got, want)
	}
	if got, want := NTP(time.Unix(1, 5e8)), 2208988801.5; got != want {
		t.Fatalf("invalid NTP time: got=%v, want=%v", got, want)
	}
}
