// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"errors"
	"fmt"
	"io"
	"log"
)

const defaultBlockSize = 4096

// Parser is a resumable decoding session bound to one stream.
// A Parser is not safe for concurrent use.
type Parser struct {
	f   Format
	r   io.Reader
	chk *Chunker
	pos *Tracker
	buf []byte

	msg     *log.Logger
	anomaly func(err error)
	state   func(st State)
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used by the parser.
func WithLogger(msg *log.Logger) Option {
	return func(p *Parser) {
		p.msg = msg
	}
}

// WithAnomalyHandler sets the function called for each anomaly
// and recoverable sample error found in the stream.
func WithAnomalyHandler(f func(err error)) Option {
	return func(p *Parser) {
		p.anomaly = f
	}
}

// WithStateHandler sets the function called each time the
// stream position moved forward during a call to Records.
func WithStateHandler(f func(st State)) Option {
	return func(p *Parser) {
		p.state = f
	}
}

// WithBlockSize sets the number of bytes read at once from the stream.
func WithBlockSize(n int) Option {
	return func(p *Parser) {
		if n <= 0 {
			n = defaultBlockSize
		}
		p.buf = make([]byte, n)
	}
}

// NewParser creates a decoding session for the stream r using format f.
// If st is not nil, decoding resumes at st.Position: r is moved there,
// with Seek when r is an io.Seeker, by skipping bytes otherwise.
func NewParser(f Format, r io.Reader, st *State, opts ...Option) (*Parser, error) {
	var pos uint64
	if st != nil {
		pos = st.Position
	}

	p := &Parser{
		f:       f,
		r:       r,
		buf:     make([]byte, defaultBlockSize),
		msg:     log.New(io.Discard, "dataset: ", 0),
		anomaly: func(error) {},
		state:   func(State) {},
	}

	for _, opt := range opts {
		opt(p)
	}

	if pos > 0 {
		err := seek(r, pos)
		if err != nil {
			return nil, fmt.Errorf("dataset: could not resume %s stream at %d: %w", f.Name(), pos, err)
		}
	}

	p.chk = NewChunker(f, pos)
	p.pos = NewTracker(pos)

	return p, nil
}

func seek(r io.Reader, pos uint64) error {
	if sk, ok := r.(io.Seeker); ok {
		_, err := sk.Seek(int64(pos), io.SeekStart)
		return err
	}
	_, err := io.CopyN(io.Discard, r, int64(pos))
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// Position returns the offset of the first byte not yet processed.
func (p *Parser) Position() uint64 { return p.pos.Position() }

// State returns the state to persist to resume this session.
func (p *Parser) State() State { return p.pos.State() }

// Records returns up to max records decoded from the stream, together
// with the updated stream position.
//
// Records returns fewer records when the stream holds no more complete
// records yet. Anomalies and recoverable sample errors are passed to the
// anomaly handler. A fatal sample error is returned after the position
// moved past the offending record: a subsequent call continues with the
// next record.
func (p *Parser) Records(max int) ([]Record, uint64, error) {
	var (
		recs []Record
		beg  = p.pos.Position()
	)

	err := p.records(&recs, max)
	if p.pos.Position() != beg {
		p.state(p.pos.State())
	}

	return recs, p.pos.Position(), err
}

func (p *Parser) records(recs *[]Record, max int) error {
	for len(*recs) < max {
		if chk, ok := p.chk.NextNonData(); ok {
			p.skip(chk)
			continue
		}

		chk, ok := p.chk.NextData()
		if !ok {
			more, err := p.read()
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
			continue
		}

		rec, err := p.decode(chk)
		if err != nil {
			if IsFatal(err) {
				return err
			}
			p.anomaly(err)
			continue
		}
		*recs = append(*recs, rec)
	}
	return nil
}

// Flush reads the stream until its end and declares that no more bytes
// will be appended to it: a trailing incomplete record is then reported
// by the next call to Records.
func (p *Parser) Flush() error {
	for {
		more, err := p.read()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	p.chk.Flush()
	return nil
}

func (p *Parser) read() (bool, error) {
	n, err := p.r.Read(p.buf)
	if n > 0 {
		_, _ = p.chk.Write(p.buf[:n])
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n > 0, fmt.Errorf("dataset: could not read %s stream at %d: %w",
			p.f.Name(), p.pos.Position()+uint64(p.chk.Buffered()), err,
		)
	}
	return n > 0, nil
}

func (p *Parser) skip(chk Chunk) {
	p.pos.Advance(uint64(len(chk.Span.Data)))
	switch chk.Class {
	case Metadata:
		return
	default:
		a := &Anomaly{
			Class:  chk.Class,
			Beg:    chk.Span.Offset,
			End:    chk.Span.End(),
			Reason: chk.Reason,
		}
		p.msg.Printf("%+v", a)
		p.anomaly(a)
	}
}

func (p *Parser) decode(chk Chunk) (Record, error) {
	rec, err := p.f.Decode(chk.Span.Data)
	p.pos.Advance(uint64(len(chk.Span.Data)))
	if err != nil {
		serr := &SampleError{
			Beg:   chk.Span.Offset,
			End:   chk.Span.End(),
			Fatal: true,
			Err:   err,
		}
		var ferr *SampleError
		if errors.As(err, &ferr) {
			serr.Fatal = ferr.Fatal
			serr.Err = ferr.Err
		}
		p.msg.Printf("%+v", serr)
		return nil, serr
	}
	return rec, nil
}
