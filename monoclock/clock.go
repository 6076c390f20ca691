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

// Package monoclock provides the single monotonic-millisecond time source
// every other component in this daemon reads "now" from.
package monoclock

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/sys/unix"
)

// overflowDisplay is returned by String when a duration can no longer be
// represented without ambiguity.
const overflowDisplay = "(duration overflow)"

// overflowThreshold is the point past which we stop printing a duration and
// return overflowDisplay instead of wrapping silently.
const overflowThreshold = int64(1) << 55

// Millis is a count of milliseconds since a Clock's anchor time. It is only
// meaningful relative to the Clock that produced it.
type Millis int64

// String renders a Millis value as a human duration, saturating rather than
// wrapping once the value exceeds overflowThreshold or no longer fits in a
// time.Duration (about 292 years).
func (m Millis) String() string {
	if int64(m) < 0 || int64(m) > overflowThreshold || int64(m) > math.MaxInt64/int64(time.Millisecond) {
		return overflowDisplay
	}
	return time.Duration(m * Millis(time.Millisecond)).String()
}

// rawNow reads CLOCK_MONOTONIC_RAW, unaffected by NTP/PTP slewing.
func rawNow() (time.Time, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return time.Time{}, fmt.Errorf("reading monotonic clock: %w", err)
	}
	return time.Unix(ts.Unix()), nil
}

// Clock is a monotonic millisecond clock anchored at construction time. A
// single Clock is shared by the readiness loop (readiness.Loop) and the
// timer engine (timerwheel.Engine) so that every component in one readiness
// iteration observes the same "now".
type Clock struct {
	anchor time.Time
	cached Millis
}

// New creates a Clock anchored to the current monotonic time.
func New() (*Clock, error) {
	anchor, err := rawNow()
	if err != nil {
		return nil, err
	}
	return &Clock{anchor: anchor}, nil
}

// Update reads the underlying clock source and caches the result; it should
// be called exactly once per readiness-loop iteration (component D).
func (c *Clock) Update() error {
	now, err := rawNow()
	if err != nil {
		return err
	}
	c.cached = Millis(now.Sub(c.anchor) / time.Millisecond)
	return nil
}

// Now returns the last value cached by Update, without touching the OS
// clock. Callers within the same readiness-loop tick always see a
// consistent value.
func (c *Clock) Now() Millis {
	return c.cached
}

// Since returns how many milliseconds have elapsed since mark, using the
// cached "now" value. A negative result means mark is in the future.
func (c *Clock) Since(mark Millis) Millis {
	return c.cached - mark
}

// After reports whether the cached "now" is strictly after mark.
func (c *Clock) After(mark Millis) bool {
	return c.cached > mark
}

// In returns the Millis value d in the future relative to the cached "now".
func (c *Clock) In(d time.Duration) Millis {
	return c.cached + Millis(d/time.Millisecond)
}
