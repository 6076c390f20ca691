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

// Package readiness is the single-threaded event loop every socket-owning
// subsystem (DLEP sessions, RFC 5444 packet sockets) registers against. One
// Loop iteration: wait for readiness or the next timer deadline, update the
// shared clock exactly once, dispatch ready file descriptors, then expire
// due timers.
package readiness

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/facebook/oonf-go/monoclock"
	"github.com/facebook/oonf-go/timerwheel"
)

// Event is the readiness condition a registration is interested in.
type Event int

// Events a file descriptor can be registered for.
const (
	EventRead Event = 1 << iota
	EventWrite
)

// Handler is invoked when a registered fd becomes ready. readable/writable
// reflect which of the requested events actually fired.
type Handler func(fd int, readable, writable bool)

// ShutdownGrace is how long Loop.Run keeps dispatching after Stop is called,
// to let in-flight subsystems flush (e.g. a DLEP session's final Terminate
// message), mirroring the daemon's graceful-shutdown window.
const ShutdownGrace = 500 * time.Millisecond

type registration struct {
	fd      int
	events  Event
	handler Handler
}

// Recorder observes readiness loop activity. *metrics.Registry implements
// it; Loop defaults to a no-op so metrics wiring stays optional.
type Recorder interface {
	ObserveReadinessWake()
}

type noopRecorder struct{}

func (noopRecorder) ObserveReadinessWake() {}

// Loop is a non-blocking readiness loop backed by epoll.
type Loop struct {
	epfd    int
	clock   *monoclock.Clock
	timers  *timerwheel.Engine
	regs    map[int]*registration
	stopAt  monoclock.Millis
	stopped bool
	stats   Recorder
}

// New creates a Loop sharing clock and timers with the rest of the daemon.
func New(clock *monoclock.Clock, timers *timerwheel.Engine) (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("creating epoll instance: %w", err)
	}
	return &Loop{
		epfd:   epfd,
		clock:  clock,
		timers: timers,
		regs:   make(map[int]*registration),
		stats:  noopRecorder{},
	}, nil
}

// SetStats wires a metrics recorder into the loop, replacing the default
// no-op.
func (l *Loop) SetStats(r Recorder) {
	l.stats = r
}

func toEpollEvents(e Event) uint32 {
	var m uint32
	if e&EventRead != 0 {
		m |= unix.EPOLLIN
	}
	if e&EventWrite != 0 {
		m |= unix.EPOLLOUT
	}
	return m
}

// Register arms fd for the given events, invoking handler whenever it
// becomes ready. Registering an already-registered fd replaces its handler.
func (l *Loop) Register(fd int, events Event, handler Handler) error {
	op := uint32(unix.EPOLL_CTL_ADD)
	if _, exists := l.regs[fd]; exists {
		op = unix.EPOLL_CTL_MOD
	}
	ev := &unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, int(op), fd, ev); err != nil {
		return fmt.Errorf("registering fd %d: %w", fd, err)
	}
	l.regs[fd] = &registration{fd: fd, events: events, handler: handler}
	return nil
}

// Unregister removes fd from the loop. It is a no-op if fd is unknown.
func (l *Loop) Unregister(fd int) {
	if _, exists := l.regs[fd]; !exists {
		return
	}
	_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	delete(l.regs, fd)
}

// Stop requests the loop to exit after ShutdownGrace has elapsed, allowing
// handlers already scheduled to run first.
func (l *Loop) Stop() {
	if l.stopped {
		return
	}
	l.stopped = true
	l.stopAt = l.clock.In(ShutdownGrace)
}

// Tick runs exactly one iteration of the loop: wait for readiness or the
// next timer, refresh the clock, dispatch ready fds, and expire due
// timers. It returns false once Stop's grace period has elapsed.
func (l *Loop) Tick() (bool, error) {
	timeout := l.waitTimeout()
	events := make([]unix.EpollEvent, 32)
	n, err := unix.EpollWait(l.epfd, events, timeout)
	if err != nil {
		if err == unix.EINTR {
			return !l.expired(), nil
		}
		return false, fmt.Errorf("epoll_wait: %w", err)
	}
	l.stats.ObserveReadinessWake()
	if err := l.clock.Update(); err != nil {
		return false, err
	}
	for i := 0; i < n; i++ {
		reg, ok := l.regs[int(events[i].Fd)]
		if !ok {
			continue
		}
		readable := events[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0
		writable := events[i].Events&unix.EPOLLOUT != 0
		reg.handler(reg.fd, readable, writable)
	}
	l.timers.Expire()
	return !l.expired(), nil
}

func (l *Loop) expired() bool {
	return l.stopped && l.clock.After(l.stopAt)
}

// waitTimeout computes the epoll_wait timeout in milliseconds: the sooner
// of the next armed timer deadline or the shutdown deadline, capped so the
// loop always re-checks Stop at least once per second.
func (l *Loop) waitTimeout() int {
	const maxWaitMs = 1000
	wait := maxWaitMs

	if d, ok := l.timers.NextDeadline(); ok {
		if remain := int(d - l.clock.Now()); remain < wait {
			wait = remain
		}
	}
	if l.stopped {
		if remain := int(l.stopAt - l.clock.Now()); remain < wait {
			wait = remain
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Run drives Tick in a loop until Stop's grace period elapses or Tick
// returns an error.
func (l *Loop) Run() error {
	for {
		more, err := l.Tick()
		if err != nil {
			log.WithError(err).Error("readiness loop iteration failed")
			return err
		}
		if !more {
			return nil
		}
	}
}

// Close releases the epoll instance.
func (l *Loop) Close() error {
	return unix.Close(l.epfd)
}
