/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package dupset implements the per-(message type, originator) sliding
// sequence-number window used to drop duplicate RFC 5444 messages and
// packets before they are re-forwarded.
package dupset

import "fmt"

// MaxTooOld is the count of consecutive too-old classifications at which a
// window gives up on its current baseline and resets around the incoming
// sequence number (the MaxTooOld-th one in a row is reported Newest),
// matching the original duplicate set's
// MAXIMUM_TOO_OLD constant.
const MaxTooOld = 32

// historyBits is the fixed size of the seen-sequence-number bitmap. It is
// independent of Width: a window always remembers 32 trailing sequence
// numbers, however wide the sequence-number space itself is.
const historyBits = 32

// Width is the bit width of the peer's sequence-number space (8, 16, 32 or
// 64 bits), used only to compute the rollover-safe signed difference
// between two sequence numbers. It does not affect how much history a
// window remembers, which is always historyBits.
type Width uint8

// Supported sequence-number widths.
const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

func (w Width) valid() bool {
	switch w {
	case Width8, Width16, Width32, Width64:
		return true
	default:
		return false
	}
}

// Result classifies one sequence number against a Window.
type Result int

// Possible classifications returned by Window.Test and Window.Add.
const (
	// New means the sequence number has not been seen and should be
	// processed/forwarded.
	New Result = iota
	// Newest means the sequence number is newer than anything seen so
	// far, advancing the window's current baseline.
	Newest
	// Current means the sequence number equals the window's current
	// baseline exactly.
	Current
	// Duplicate means the sequence number was already seen within the
	// window and must be dropped.
	Duplicate
	// TooOld means the sequence number is older than the window can
	// remember; treated as a duplicate but tracked separately so a
	// persistently-behind sender can trigger a window reset.
	TooOld
)

func (r Result) String() string {
	switch r {
	case New:
		return "new"
	case Newest:
		return "newest"
	case Current:
		return "current"
	case Duplicate:
		return "duplicate"
	case TooOld:
		return "too-old"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// windowState is a Window's mutable state, held by value so classify can
// compute a candidate next state without committing it — the split Test
// (peek) and Add (commit) need to share the exact same decision logic.
type windowState struct {
	initialized    bool
	current        uint64
	history        uint32 // bit i set => (current - i) has been seen, i in [0, historyBits)
	consecutiveOld int
}

// Window is a single sliding sequence-number window, keyed externally by
// whatever (message type, originator) tuple owns it.
type Window struct {
	width Width
	state windowState
}

// NewWindow creates an empty window whose sequence numbers are width bits
// wide. width must be one of Width8/16/32/64.
func NewWindow(width Width) (*Window, error) {
	if !width.valid() {
		return nil, fmt.Errorf("invalid duplicate window width %d", width)
	}
	return &Window{width: width}, nil
}

// maskSeq reduces seq to width bits, the peer's actual sequence-number
// space.
func maskSeq(seq uint64, w Width) uint64 {
	if w == Width64 {
		return seq
	}
	return seq & ((uint64(1) << uint(w)) - 1)
}

// signedDiff returns seq-current as a rollover-safe signed difference
// within a width-bit sequence-number space: the unsigned difference is
// masked to width bits, then re-centred around zero so a difference past
// half the range reads as negative, the standard TCP/RFC 5444
// sequence-number comparison trick generalized to an arbitrary width.
func signedDiff(seq, current uint64, w Width) int64 {
	if w == Width64 {
		return int64(seq - current)
	}
	bits := uint(w)
	mod := uint64(1) << bits
	diff := (seq - current) & (mod - 1)
	half := mod / 2
	if diff >= half {
		diff -= mod
	}
	return int64(diff)
}

// classify decides how seq relates to s without mutating it, returning
// both the classification and the state that committing it would produce.
func classify(s windowState, seq uint64, width Width) (Result, windowState) {
	seq = maskSeq(seq, width)
	if !s.initialized {
		return New, windowState{initialized: true, current: seq, history: 1}
	}

	diff := signedDiff(seq, s.current, width)
	switch {
	case diff == 0:
		return Current, s
	case diff < -31:
		next := s
		next.consecutiveOld++
		if next.consecutiveOld >= MaxTooOld {
			return Newest, windowState{initialized: true, current: seq, history: 1}
		}
		return TooOld, next
	case diff <= 0:
		age := uint(-diff)
		bit := uint32(1) << age
		if s.history&bit != 0 {
			return Duplicate, s
		}
		next := s
		next.history |= bit
		next.consecutiveOld = 0
		return New, next
	case diff < historyBits:
		next := windowState{
			initialized: true,
			current:     seq,
			history:     (s.history << uint(diff)) | 1,
		}
		return Newest, next
	default:
		return Newest, windowState{initialized: true, current: seq, history: 1}
	}
}

// Test reports how seq relates to the window without recording it: the
// non-mutating half of the spec's test/add split, for callers that need
// to know whether a sequence number is new before committing to process
// it.
func (w *Window) Test(seq uint64) Result {
	result, _ := classify(w.state, seq, w.width)
	return result
}

// Add records seq and reports how it relates to what the window has
// already seen.
func (w *Window) Add(seq uint64) Result {
	result, next := classify(w.state, seq, w.width)
	w.state = next
	return result
}

// Current returns the highest sequence number seen so far and whether the
// window has seen anything at all.
func (w *Window) Current() (uint64, bool) {
	return w.state.current, w.state.initialized
}
