// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"encoding/json"
	"fmt"
)

// State is the persisted state of a decoding session.
// All the bytes of the stream before Position have been processed.
type State struct {
	Position uint64 `json:"position"`
}

// ParseState decodes a JSON checkpoint.
// ParseState fails with ErrInvalidState when the checkpoint misses a
// required field.
func ParseState(raw []byte) (State, error) {
	var (
		st  State
		doc map[string]json.RawMessage
	)
	err := json.Unmarshal(raw, &doc)
	if err != nil {
		return st, fmt.Errorf("%w: could not decode checkpoint: %v", ErrInvalidState, err)
	}

	pos, ok := doc["position"]
	if !ok {
		return st, fmt.Errorf("%w: position missing in state keys", ErrInvalidState)
	}

	err = json.Unmarshal(pos, &st.Position)
	if err != nil {
		return st, fmt.Errorf("%w: could not decode position: %v", ErrInvalidState, err)
	}

	return st, nil
}

// Tracker tracks how many bytes of a stream have been processed.
type Tracker struct {
	pos uint64
}

// NewTracker returns a tracker starting at the provided position.
func NewTracker(pos uint64) *Tracker {
	return &Tracker{pos: pos}
}

// Position returns the current position.
func (t *Tracker) Position() uint64 { return t.pos }

// Advance moves the position n bytes forward.
func (t *Tracker) Advance(n uint64) {
	t.pos += n
}

// State returns the state to persist for the current position.
func (t *Tracker) State() State { return State{Position: t.pos} }
