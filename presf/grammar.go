// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package presf

import (
	"fmt"
	"regexp"
)

// LineKind is the classification of one physical line.
type LineKind uint8

const (
	UnknownLine LineKind = iota
	MetadataLine
	TideLine
	WaveStartLine
	PTFreqLine
	ContLine
	EndLine
)

func (k LineKind) String() string {
	switch k {
	case UnknownLine:
		return "unknown"
	case MetadataLine:
		return "metadata"
	case TideLine:
		return "tide"
	case WaveStartLine:
		return "wave-start"
	case PTFreqLine:
		return "wave-ptfreq"
	case ContLine:
		return "wave-continuation"
	case EndLine:
		return "wave-end"
	}
	return fmt.Sprintf("LineKind(%d)", uint8(k))
}

const (
	// controller timestamp, with the date and the time as sub-matches.
	stamp    = `((\d{4}/\d{2}/\d{2})\s*(\d{2}:\d{2}:\d{2}\.\d{3}))`
	dateTime = `(\d{2} \D{3} \d{4} \d{2}:\d{2}:\d{2})`
	value    = `([^,\s]+)`
	number   = `([-+]?\d+(?:\.\d*)?)`
	newline  = `[ \t]*(?:\r\n|\n)$`
)

// Sub-matches shared by all the line grammars.
const (
	grpStamp = 1
	grpDate  = 2
	grpTime  = 3
	grpFirst = 4 // first line specific sub-match
)

// Grammar classifies the lines of a PRESF stream.
//
// A Grammar is immutable once created and may be shared by any number of
// sieves and decoders.
type Grammar struct {
	rules []rule
}

type rule struct {
	kind LineKind
	re   *regexp.Regexp
}

// NewGrammar returns the PRESF line grammar.
// Rules are tried in precedence order: metadata, tide, wave-start,
// wave-ptfreq, wave-continuation then wave-end.
func NewGrammar() *Grammar {
	return &Grammar{
		rules: []rule{
			{MetadataLine, regexp.MustCompile(`^` + stamp + `\s*\[.*\].*(?:\r\n|\n)$`)},
			{TideLine, regexp.MustCompile(
				`^` + stamp + `\s*tide:\s*start time =\s*` + dateTime +
					`,\s*p =\s*` + value +
					`,\s*pt =\s*` + value +
					`,\s*t =\s*` + value + newline,
			)},
			{WaveStartLine, regexp.MustCompile(`^` + stamp + `\s*wave:\s*start time =\s*` + dateTime + newline)},
			{PTFreqLine, regexp.MustCompile(`^` + stamp + `\s*wave:\s*ptfreq =\s*` + value + newline)},
			{ContLine, regexp.MustCompile(`^` + stamp + `\s*` + number + newline)},
			{EndLine, regexp.MustCompile(`^` + stamp + `\s*wave: end burst.*(?:\r\n|\n)$`)},
		},
	}
}

// Classify returns the kind of the complete line, newline included.
func (g *Grammar) Classify(line []byte) LineKind {
	kind, _ := g.match(line)
	return kind
}

// match classifies line and returns the sub-matches of the first rule
// accepting it.
func (g *Grammar) match(line []byte) (LineKind, []string) {
	for _, r := range g.rules {
		m := r.re.FindSubmatch(line)
		if m == nil {
			continue
		}
		sub := make([]string, len(m))
		for i, v := range m {
			sub[i] = string(v)
		}
		return r.kind, sub
	}
	return UnknownLine, nil
}
