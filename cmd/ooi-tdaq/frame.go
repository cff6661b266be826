// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/ocean/dataset"
)

// Field value tags of a record frame.
const (
	tagStr uint32 = iota
	tagF64
	tagF64s
)

// encodeRecord encodes a decoded record as the body of a /records frame:
//
//	stream:str kind:str time:i64(unix-ns) ntp:f64 nfields:u32
//	[name:str tag:u32 value]...
func encodeRecord(stream string, rec dataset.Record) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)

	enc.WriteStr(stream)
	enc.WriteStr(string(rec.Kind()))
	enc.WriteI64(rec.Timestamp().UnixNano())
	enc.WriteF64(dataset.NTP(rec.Timestamp()))

	fields := rec.Fields()
	enc.WriteU32(uint32(len(fields)))
	for _, field := range fields {
		enc.WriteStr(field.Name)
		switch v := field.Value.(type) {
		case string:
			enc.WriteU32(tagStr)
			enc.WriteStr(v)
		case float64:
			enc.WriteU32(tagF64)
			enc.WriteF64(v)
		case []float64:
			enc.WriteU32(tagF64s)
			enc.WriteU32(uint32(len(v)))
			for _, x := range v {
				enc.WriteF64(x)
			}
		default:
			return nil, fmt.Errorf("invalid value type %T for field %q", v, field.Name)
		}
	}

	return buf.Bytes(), nil
}
