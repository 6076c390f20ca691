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

// Package timerwheel schedules one-shot and periodic callbacks against the
// monotonic clock shared by the readiness loop. Deadlines are rounded up to
// the engine's slice granularity so that timers armed within the same
// window coalesce into a single heap entry population, mirroring how the
// original routing daemon batches its timer wheel.
package timerwheel

import (
	"container/heap"
	"math/rand"
	"time"

	"github.com/facebook/oonf-go/monoclock"
)

// DefaultSlice is the default rounding granularity for timer deadlines.
const DefaultSlice = 100 * time.Millisecond

// Timer is a single scheduled callback. Callers receive a *Timer from
// Engine.Start and may later Stop it, including from within the callback
// itself.
type Timer struct {
	name     string
	deadline monoclock.Millis
	period   monoclock.Millis
	jitter   int
	callback  func()
	index     int
	active    bool
	cancelled bool
}

// Name returns the timer's diagnostic name.
func (t *Timer) Name() string {
	return t.name
}

// Periodic reports whether the timer reschedules itself after firing.
func (t *Timer) Periodic() bool {
	return t.period > 0
}

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Engine is an ordered set of timers driven by a monoclock.Clock. It is not
// safe for concurrent use; the readiness loop is the sole driver.
type Engine struct {
	clock *monoclock.Clock
	slice monoclock.Millis
	heap  timerHeap
	rng   *rand.Rand
}

// NewEngine creates a timer engine rounding deadlines to slice. slice <= 0
// selects DefaultSlice.
func NewEngine(clock *monoclock.Clock, slice time.Duration) *Engine {
	if slice <= 0 {
		slice = DefaultSlice
	}
	return &Engine{
		clock: clock,
		slice: monoclock.Millis(slice / time.Millisecond),
		rng:   rand.New(rand.NewSource(1)),
	}
}

func (e *Engine) round(deadline monoclock.Millis) monoclock.Millis {
	if e.slice <= 0 {
		return deadline
	}
	rem := deadline % e.slice
	if rem == 0 {
		return deadline
	}
	return deadline + (e.slice - rem)
}

func (e *Engine) applyJitter(d monoclock.Millis, jitterPct int) monoclock.Millis {
	if jitterPct <= 0 || d <= 0 {
		return d
	}
	if jitterPct > 100 {
		jitterPct = 100
	}
	span := int64(d) * int64(jitterPct) / 100
	if span <= 0 {
		return d
	}
	offset := e.rng.Int63n(span*2+1) - span
	return d + monoclock.Millis(offset)
}

// Start arms a new timer. period of 0 makes it one-shot. jitterPct applies a
// uniform +/-jitterPct% randomization to every firing, including periodic
// reschedules, the same way the original timer wheel jitters interval
// timers to avoid thundering-herd retransmissions.
func (e *Engine) Start(name string, delay, period time.Duration, jitterPct int, cb func()) *Timer {
	d := monoclock.Millis(delay / time.Millisecond)
	d = e.applyJitter(d, jitterPct)
	t := &Timer{
		name:     name,
		deadline: e.round(e.clock.Now() + d),
		period:   monoclock.Millis(period / time.Millisecond),
		jitter:   jitterPct,
		callback: cb,
		active:   true,
		index:    -1,
	}
	heap.Push(&e.heap, t)
	return t
}

// Stop cancels t. It is safe to call from within t's own callback and safe
// to call more than once.
func (e *Engine) Stop(t *Timer) {
	if t == nil {
		return
	}
	t.cancelled = true
	if !t.active || t.index < 0 {
		return
	}
	t.active = false
	heap.Remove(&e.heap, t.index)
}

// NextDeadline returns the soonest armed deadline, used by the readiness
// loop to bound its wait. The second return is false when no timer is
// armed.
func (e *Engine) NextDeadline() (monoclock.Millis, bool) {
	if len(e.heap) == 0 {
		return 0, false
	}
	return e.heap[0].deadline, true
}

// Expire fires every timer whose deadline is at or before the clock's
// current cached "now", rescheduling periodic timers. Safe against a
// callback stopping itself or any other timer.
func (e *Engine) Expire() {
	now := e.clock.Now()
	for len(e.heap) > 0 && e.heap[0].deadline <= now {
		t := heap.Pop(&e.heap).(*Timer)
		t.active = false
		if t.callback != nil {
			t.callback()
		}
		if !t.cancelled && t.period > 0 {
			d := e.applyJitter(t.period, t.jitter)
			t.deadline = e.round(now + d)
			t.active = true
			heap.Push(&e.heap, t)
		}
	}
}

// Len returns the number of currently armed timers.
func (e *Engine) Len() int {
	return len(e.heap)
}
