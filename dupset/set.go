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
	"fmt"
	"sync"
	"time"

	"github.com/facebook/oonf-go/timerwheel"
)

// Key identifies one sliding window inside a Set: typically a (message
// type, originator address) pair.
type Key struct {
	MessageType uint8
	Originator  string
}

// Recorder observes classification outcomes. *metrics.Registry implements
// it; Set defaults to a no-op so metrics wiring stays optional.
type Recorder interface {
	ObserveDuplicateClassification(result string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveDuplicateClassification(string) {}

// Set holds one Window per Key, creating windows lazily on first use, and
// expires an entry once its validity timer runs out. It is safe for
// concurrent use.
type Set struct {
	mu     sync.Mutex
	width  Width
	timers *timerwheel.Engine
	byKey  map[Key]*Window
	vtimer map[Key]*timerwheel.Timer
	stats  Recorder
}

// NewSet creates a Set whose windows all share the given width. Entries
// are expired against timers, the daemon's shared timer engine.
func NewSet(width Width, timers *timerwheel.Engine) (*Set, error) {
	if !width.valid() {
		return nil, errInvalidWidth(width)
	}
	if timers == nil {
		return nil, fmt.Errorf("dupset: nil timer engine")
	}
	return &Set{
		width:  width,
		timers: timers,
		byKey:  make(map[Key]*Window),
		vtimer: make(map[Key]*timerwheel.Timer),
		stats:  noopRecorder{},
	}, nil
}

// SetStats wires a metrics recorder into the set, replacing the default
// no-op.
func (s *Set) SetStats(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = r
}

func errInvalidWidth(w Width) error {
	_, err := NewWindow(w)
	return err
}

// Test reports how seq relates to key's window without recording it. A
// key with no window yet is reported New, since nothing has been seen
// from it.
func (s *Set) Test(key Key, seq uint64) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byKey[key]
	if !ok {
		return New
	}
	return w.Test(seq)
}

// Add looks up (or creates) the window for key, records seq against it,
// and reports the classification. Every New or Newest result (re)arms
// key's validity timer to vtime; when the timer fires the whole entry,
// window included, is forgotten — the validity timer is reset exactly
// when a message is accepted as new or newest.
func (s *Set) Add(key Key, seq uint64, vtime time.Duration) Result {
	s.mu.Lock()
	w, ok := s.byKey[key]
	if !ok {
		w, _ = NewWindow(s.width) // width already validated by NewSet
		s.byKey[key] = w
	}
	result := w.Add(seq)
	if result == New || result == Newest {
		s.armVtime(key, vtime)
	}
	stats := s.stats
	s.mu.Unlock()

	stats.ObserveDuplicateClassification(result.String())
	return result
}

// armVtime (re)starts key's validity timer. Callers must hold s.mu.
func (s *Set) armVtime(key Key, vtime time.Duration) {
	if t, ok := s.vtimer[key]; ok {
		s.timers.Stop(t)
	}
	s.vtimer[key] = s.timers.Start("dupset-vtime", vtime, 0, 0, func() {
		s.expire(key)
	})
}

// expire drops key's entry entirely; it runs as a timer callback on the
// readiness loop's goroutine, so it takes s.mu itself rather than
// assuming the caller holds it.
func (s *Set) expire(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKey, key)
	delete(s.vtimer, key)
}

// Forget immediately removes the window for key and cancels its validity
// timer, e.g. when its originator's neighbor record expires out of band.
func (s *Set) Forget(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.vtimer[key]; ok {
		s.timers.Stop(t)
		delete(s.vtimer, key)
	}
	delete(s.byKey, key)
}

// Len returns the number of distinct windows currently tracked.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey)
}
