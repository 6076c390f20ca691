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

package daemon

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/oonf-go/dlep"
	"github.com/facebook/oonf-go/metrics"
	"github.com/facebook/oonf-go/mpr"
	"github.com/facebook/oonf-go/readiness"
	"github.com/facebook/oonf-go/timerwheel"
)

// metricsSubsystem serves the Prometheus registry over HTTP for the
// lifetime of the daemon.
type metricsSubsystem struct {
	reg  *metrics.Registry
	port int
}

func (*metricsSubsystem) Name() string           { return "metrics" }
func (*metricsSubsystem) Dependencies() []string { return nil }

func (m *metricsSubsystem) Init(entry *log.Entry) error {
	entry.Infof("serving metrics on :%d", m.port)
	go m.reg.Serve(m.port)
	return nil
}

func (*metricsSubsystem) Teardown(*log.Entry) error { return nil }

// readinessSubsystem has no startup work of its own: the readiness loop
// is driven by Daemon.Run, which blocks on it after every other subsystem
// is up. Its only job here is to release the epoll instance on shutdown.
type readinessSubsystem struct {
	loop *readiness.Loop
}

func (*readinessSubsystem) Name() string           { return "readiness" }
func (*readinessSubsystem) Dependencies() []string { return nil }
func (*readinessSubsystem) Init(*log.Entry) error  { return nil }

func (r *readinessSubsystem) Teardown(*log.Entry) error {
	return r.loop.Close()
}

// dlepSubsystem runs one DLEP interface's discovery and session traffic
// for as long as the subsystem is up.
type dlepSubsystem struct {
	name string
	ifc  *dlep.Interface
	deps []string

	cancel context.CancelFunc
}

func (s *dlepSubsystem) Name() string           { return "dlep:" + s.name }
func (s *dlepSubsystem) Dependencies() []string { return s.deps }

func (s *dlepSubsystem) Init(entry *log.Entry) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		if err := s.ifc.Run(ctx); err != nil && ctx.Err() == nil {
			entry.WithError(err).Error("dlep interface exited")
		}
	}()
	return nil
}

func (s *dlepSubsystem) Teardown(*log.Entry) error {
	s.cancel()
	s.ifc.Close()
	return nil
}

// mprSubsystem periodically recomputes one routing domain's MPR set from
// its neighbor graph, which is populated externally as NHDP neighborhood
// discovery learns and loses links.
type mprSubsystem struct {
	domain   string
	graph    *mpr.Graph
	timers   *timerwheel.Engine
	rec      mpr.Recorder
	interval time.Duration
	deps     []string

	timer *timerwheel.Timer
}

func (s *mprSubsystem) Name() string           { return "mpr:" + s.domain }
func (s *mprSubsystem) Dependencies() []string { return s.deps }

func (s *mprSubsystem) Init(entry *log.Entry) error {
	s.timer = s.timers.Start("mpr-"+s.domain, s.interval, s.interval, 10, func() {
		selected := mpr.SelectRecorded(s.domain, s.graph, s.rec)
		entry.WithField("selected", len(selected)).Debug("recomputed mpr set")
	})
	return nil
}

func (s *mprSubsystem) Teardown(*log.Entry) error {
	s.timers.Stop(s.timer)
	return nil
}
