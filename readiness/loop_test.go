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

package readiness

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebook/oonf-go/monoclock"
	"github.com/facebook/oonf-go/timerwheel"
)

func newLoop(t *testing.T) (*Loop, *monoclock.Clock, *timerwheel.Engine) {
	c, err := monoclock.New()
	require.NoError(t, err)
	require.NoError(t, c.Update())
	timers := timerwheel.NewEngine(c, time.Millisecond)
	l, err := New(c, timers)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, c, timers
}

func TestRegisterDispatchesReadable(t *testing.T) {
	l, _, _ := newLoop(t)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	fired := make(chan struct{}, 1)
	require.NoError(t, l.Register(int(r.Fd()), EventRead, func(fd int, readable, writable bool) {
		require.True(t, readable)
		fired <- struct{}{}
	}))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	more, err := l.Tick()
	require.NoError(t, err)
	require.True(t, more)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestUnregisterStopsDispatch(t *testing.T) {
	l, _, _ := newLoop(t)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	called := false
	require.NoError(t, l.Register(int(r.Fd()), EventRead, func(fd int, readable, writable bool) { called = true }))
	l.Unregister(int(r.Fd()))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	_, err = l.Tick()
	require.NoError(t, err)
	require.False(t, called)
}

func TestStopEndsLoopAfterGrace(t *testing.T) {
	l, _, _ := newLoop(t)
	l.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		more, err := l.Tick()
		require.NoError(t, err)
		if !more {
			return
		}
	}
	t.Fatal("loop did not stop within expected grace window")
}

func TestWaitTimeoutRespectsNextTimer(t *testing.T) {
	l, c, timers := newLoop(t)
	timers.Start("x", 50*time.Millisecond, 0, 0, func() {})
	require.LessOrEqual(t, l.waitTimeout(), 50)
	_ = c
}

type fakeRecorder struct {
	wakes int
}

func (f *fakeRecorder) ObserveReadinessWake() {
	f.wakes++
}

func TestTickRecordsWakeWhenStatsWired(t *testing.T) {
	l, _, _ := newLoop(t)
	rec := &fakeRecorder{}
	l.SetStats(rec)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	require.NoError(t, l.Register(int(r.Fd()), EventRead, func(fd int, readable, writable bool) {}))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	_, err = l.Tick()
	require.NoError(t, err)
	require.Equal(t, 1, rec.wakes)
}
