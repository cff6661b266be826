// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ocean

import (
	"fmt"
	"sort"

	"github.com/go-lpc/ocean/ctdmo"
	"github.com/go-lpc/ocean/dataset"
	"github.com/go-lpc/ocean/presf"
)

var formats = map[string]func(recovered bool) dataset.Format{
	"ctdmo": func(bool) dataset.Format { return ctdmo.New() },
	"presf": func(recovered bool) dataset.Format {
		return presf.New(presf.WithRecovered(recovered))
	},
}

// Formats returns the names of the known stream formats.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewFormat returns the stream format with the provided name.
// recovered selects the stream names of data recovered from the
// instrument instead of telemetered ones, for formats that distinguish them.
func NewFormat(name string, recovered bool) (dataset.Format, error) {
	f, ok := formats[name]
	if !ok {
		return nil, fmt.Errorf("ocean: unknown stream format %q (known: %q)", name, Formats())
	}
	return f(recovered), nil
}
