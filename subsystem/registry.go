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

// Package subsystem is the plugin registry that orchestrates startup and
// shutdown of every named component (RFC 5444 reader/writer, DLEP
// interfaces, MPR selector, ...), ordering Init calls so a subsystem's
// dependencies are always ready before it runs, and tearing down in the
// opposite order.
package subsystem

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Subsystem is one independently loadable component of the daemon.
type Subsystem interface {
	// Name is the subsystem's unique registry key.
	Name() string
	// Dependencies lists the Name of every subsystem that must be
	// initialized before this one.
	Dependencies() []string
	// Init starts the subsystem. log is pre-tagged with the subsystem's
	// name, following the teacher's per-component contextual logging.
	Init(log *log.Entry) error
	// Teardown stops the subsystem. It is only called after Init
	// succeeded.
	Teardown(log *log.Entry) error
}

// Registry holds the set of registered subsystems and their resolved
// startup order.
type Registry struct {
	subsystems map[string]Subsystem
	log        *log.Entry
	started    []string // Name()s in Init order, for Teardown
}

// New creates an empty registry. Logger is the base logger each subsystem's
// per-name entry is derived from; nil selects log.StandardLogger().
func New(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Registry{
		subsystems: make(map[string]Subsystem),
		log:        log.NewEntry(logger),
	}
}

// Register adds a subsystem. Registering a duplicate Name is an error.
func (r *Registry) Register(s Subsystem) error {
	if _, exists := r.subsystems[s.Name()]; exists {
		return fmt.Errorf("subsystem %q already registered", s.Name())
	}
	r.subsystems[s.Name()] = s
	return nil
}

// order resolves a dependency-respecting init order via Kahn's algorithm,
// and groups it into levels (subsystems with no unresolved dependency among
// each other) so InitAll can run each level's Init calls concurrently.
func (r *Registry) order() ([][]string, error) {
	remaining := make(map[string][]string, len(r.subsystems))
	for name, s := range r.subsystems {
		for _, dep := range s.Dependencies() {
			if _, ok := r.subsystems[dep]; !ok {
				return nil, fmt.Errorf("subsystem %q depends on unregistered %q", name, dep)
			}
		}
		remaining[name] = append([]string(nil), s.Dependencies()...)
	}

	var levels [][]string
	done := make(map[string]bool, len(remaining))
	for len(done) < len(remaining) {
		var level []string
		for name, deps := range remaining {
			if done[name] {
				continue
			}
			ready := true
			for _, d := range deps {
				if !done[d] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, name)
			}
		}
		if len(level) == 0 {
			return nil, fmt.Errorf("dependency cycle detected among subsystems")
		}
		for _, name := range level {
			done[name] = true
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// InitAll initializes every registered subsystem in dependency order,
// running each level's subsystems concurrently via errgroup. If any Init
// fails, already-started subsystems are torn down in reverse order before
// the error is returned.
func (r *Registry) InitAll() error {
	levels, err := r.order()
	if err != nil {
		return err
	}
	for _, level := range levels {
		var eg errgroup.Group
		done := make([]bool, len(level))
		for i, name := range level {
			i, name := i, name
			eg.Go(func() error {
				s := r.subsystems[name]
				entry := r.log.WithField("subsystem", name)
				entry.Debug("initializing subsystem")
				if err := s.Init(entry); err != nil {
					return err
				}
				done[i] = true
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			for i, name := range level {
				if done[i] {
					r.started = append(r.started, name)
				}
			}
			r.TeardownAll()
			return fmt.Errorf("initializing subsystems: %w", err)
		}
		r.started = append(r.started, level...)
	}
	return nil
}

// TeardownAll tears down every successfully started subsystem in reverse
// Init order, logging but not aborting on individual Teardown errors so one
// misbehaving subsystem cannot block the rest of shutdown.
func (r *Registry) TeardownAll() {
	for i := len(r.started) - 1; i >= 0; i-- {
		name := r.started[i]
		s := r.subsystems[name]
		entry := r.log.WithField("subsystem", name)
		entry.Debug("tearing down subsystem")
		if err := s.Teardown(entry); err != nil {
			entry.WithError(err).Error("subsystem teardown failed")
		}
	}
	r.started = nil
}

// Get returns a registered subsystem by name, or nil if unknown.
func (r *Registry) Get(name string) Subsystem {
	return r.subsystems[name]
}
