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

package dupset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvalidWidthRejected(t *testing.T) {
	_, err := NewWindow(17)
	require.Error(t, err)
}

func TestFirstSeqIsNew(t *testing.T) {
	w, err := NewWindow(Width16)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(100))
}

func TestExactSeqIsCurrent(t *testing.T) {
	w, err := NewWindow(Width16)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(100))
	require.Equal(t, Current, w.Add(100))
}

func TestAdvancingSeqIsNewest(t *testing.T) {
	w, err := NewWindow(Width16)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(100))
	require.Equal(t, Newest, w.Add(105))
}

func TestExactDuplicateDetected(t *testing.T) {
	w, err := NewWindow(Width16)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(100))
	require.Equal(t, Newest, w.Add(105))
	require.Equal(t, Duplicate, w.Add(100))
}

func TestOutOfOrderWithinWindowIsNew(t *testing.T) {
	w, err := NewWindow(Width16)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(100))
	require.Equal(t, Newest, w.Add(110))
	require.Equal(t, New, w.Add(105)) // arrived late, within the history
	require.Equal(t, Duplicate, w.Add(105))
}

func TestTooOldBeyondHistory(t *testing.T) {
	w, err := NewWindow(Width16)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(1000))
	require.Equal(t, TooOld, w.Add(1000-32))
}

func TestHistoryIsFixedAt32RegardlessOfWidth(t *testing.T) {
	// The 32-bit history bitmap is independent of width: a sequence
	// number 31 behind current is still remembered, not reported TooOld,
	// even for an 8-bit peer.
	w, err := NewWindow(Width8)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(0))
	require.Equal(t, Newest, w.Add(31))
	require.Equal(t, Duplicate, w.Add(0)) // 31 behind current, still inside history
}

func TestSequenceRolloverWidth16(t *testing.T) {
	w, err := NewWindow(Width16)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(65530))
	require.Equal(t, Newest, w.Add(5)) // wraps past 65535
	require.Equal(t, Duplicate, w.Add(65530))
}

func TestSequenceRolloverWidth8(t *testing.T) {
	// An 8-bit peer rolls over at 256, not 65536: width must drive the
	// rollover math, not just the bitmap.
	w, err := NewWindow(Width8)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(250))
	require.Equal(t, Newest, w.Add(3)) // wraps past 255
	require.Equal(t, Duplicate, w.Add(250))
}

func TestSequenceRolloverWidth32(t *testing.T) {
	w, err := NewWindow(Width32)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(0xfffffffa))
	require.Equal(t, Newest, w.Add(5)) // wraps past 0xffffffff
	require.Equal(t, Duplicate, w.Add(0xfffffffa))
}

func TestSequenceRolloverWidth64(t *testing.T) {
	w, err := NewWindow(Width64)
	require.NoError(t, err)
	first := ^uint64(0) - 4
	require.Equal(t, New, w.Add(first))
	require.Equal(t, Newest, w.Add(5)) // wraps past the 64-bit max
	require.Equal(t, Duplicate, w.Add(first))
}

func TestResetAfterMaxTooOld(t *testing.T) {
	w, err := NewWindow(Width8)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(200))

	const stale = 160 // 40 behind current, unambiguously old (not a rollover)
	for i := 0; i < MaxTooOld-1; i++ {
		require.Equal(t, TooOld, w.Add(stale))
	}
	// the MaxTooOld-th consecutive too-old classification resets the window
	require.Equal(t, Newest, w.Add(stale))
	require.Equal(t, Current, w.Add(stale))
}

func TestTestDoesNotMutate(t *testing.T) {
	w, err := NewWindow(Width16)
	require.NoError(t, err)
	require.Equal(t, New, w.Add(100))

	require.Equal(t, Newest, w.Test(105)) // peek: would advance the window
	require.Equal(t, Newest, w.Test(105)) // unchanged by the peek
	require.Equal(t, Newest, w.Add(105))  // committing gives the same answer
	require.Equal(t, Current, w.Test(105))
}
