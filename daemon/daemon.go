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
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/oonf-go/dlep"
	"github.com/facebook/oonf-go/dupset"
	"github.com/facebook/oonf-go/metrics"
	"github.com/facebook/oonf-go/monoclock"
	"github.com/facebook/oonf-go/mpr"
	"github.com/facebook/oonf-go/readiness"
	"github.com/facebook/oonf-go/subsystem"
	"github.com/facebook/oonf-go/timerwheel"
)

// Daemon owns every long-lived component and the subsystem.Registry that
// sequences their startup and shutdown.
type Daemon struct {
	cfg *Config

	clock   *monoclock.Clock
	timers  *timerwheel.Engine
	loop    *readiness.Loop
	dupSet  *dupset.Set
	metrics *metrics.Registry
	ifaces  map[string]*dlep.Interface
	graphs  map[string]*mpr.Graph

	registry *subsystem.Registry
}

// New constructs every component New wires but does not start any of
// them; call Run to bring the daemon up.
func New(cfg *Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clock, err := monoclock.New()
	if err != nil {
		return nil, fmt.Errorf("creating clock: %w", err)
	}
	timers := timerwheel.NewEngine(clock, 100*time.Millisecond)

	loop, err := readiness.New(clock, timers)
	if err != nil {
		return nil, fmt.Errorf("creating readiness loop: %w", err)
	}

	dupSet, err := dupset.NewSet(cfg.DuplicateSetWidth, timers)
	if err != nil {
		return nil, fmt.Errorf("creating duplicate set: %w", err)
	}

	reg := metrics.New()
	loop.SetStats(reg)
	dupSet.SetStats(reg)

	ifaces := make(map[string]*dlep.Interface, len(cfg.DLEPInterfaces))
	for name, ifcCfg := range cfg.DLEPInterfaces {
		role, err := ifcCfg.role()
		if err != nil {
			return nil, err
		}
		ifcConfig := ifcCfg.Config
		ifc, err := dlep.NewInterface(name, role, &ifcConfig, clock, timers)
		if err != nil {
			return nil, fmt.Errorf("creating dlep interface %q: %w", name, err)
		}
		ifc.SetStats(reg)
		ifaces[name] = ifc
	}

	graphs := make(map[string]*mpr.Graph, len(cfg.MPRDomains))
	for _, domain := range cfg.MPRDomains {
		graphs[domain] = mpr.NewGraph()
	}

	d := &Daemon{
		cfg:     cfg,
		clock:   clock,
		timers:  timers,
		loop:    loop,
		dupSet:  dupSet,
		metrics: reg,
		ifaces:  ifaces,
		graphs:  graphs,
	}

	registry := subsystem.New(log.StandardLogger())
	if err := registry.Register(&metricsSubsystem{reg: reg, port: cfg.MetricsPort}); err != nil {
		return nil, err
	}
	if err := registry.Register(&readinessSubsystem{loop: loop}); err != nil {
		return nil, err
	}
	for name, ifc := range ifaces {
		if err := registry.Register(&dlepSubsystem{name: name, ifc: ifc, deps: []string{"readiness"}}); err != nil {
			return nil, err
		}
	}
	for domain, graph := range graphs {
		sub := &mprSubsystem{
			domain:  domain,
			graph:   graph,
			timers:  timers,
			rec:     reg,
			interval: cfg.MPRInterval,
			deps:    []string{"readiness"},
		}
		if err := registry.Register(sub); err != nil {
			return nil, err
		}
	}
	d.registry = registry

	return d, nil
}

// Graph returns the MPR two-hop neighbor graph for domain, so NHDP
// neighborhood discovery (out of scope here) can populate it as links
// come and go.
func (d *Daemon) Graph(domain string) (*mpr.Graph, bool) {
	g, ok := d.graphs[domain]
	return g, ok
}

// Interface returns the DLEP interface registered under name.
func (d *Daemon) Interface(name string) (*dlep.Interface, bool) {
	ifc, ok := d.ifaces[name]
	return ifc, ok
}

// DuplicateSet returns the daemon's shared duplicate set.
func (d *Daemon) DuplicateSet() *dupset.Set {
	return d.dupSet
}

// Run starts every subsystem and blocks on the readiness loop until ctx is
// cancelled, then tears every subsystem down in reverse order.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.registry.InitAll(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	defer d.registry.TeardownAll()

	go func() {
		<-ctx.Done()
		d.loop.Stop()
	}()

	return d.loop.Run()
}
