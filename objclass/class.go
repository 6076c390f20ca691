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

// Package objclass is the object-class allocator backing every long-lived
// record in this daemon (neighbors, links, sessions, routes). Records are
// allocated from a named Class, which reuses freed slots instead of
// returning them to the garbage collector, and which other subsystems may
// extend at runtime with side-car data keyed by the same handle.
package objclass

import (
	"fmt"
	"sync"
)

// Handle identifies one allocation inside a Class. The generation field lets
// Get detect use of a Handle whose slot has since been freed and reused.
type Handle struct {
	index      int32
	generation uint32
}

// Valid reports whether h refers to any slot at all (the zero Handle never
// does).
func (h Handle) Valid() bool {
	return h.generation != 0
}

type slot[T any] struct {
	value      T
	generation uint32
	alive      bool
}

// Class is a named pool of T instances. A freed instance's slot is recycled
// by the next New call instead of being discarded, so long-running
// subsystems do not churn the garbage collector under steady-state churn
// (neighbor flapping, route recomputation).
type Class[T any] struct {
	mu          sync.Mutex
	name        string
	slots       []slot[T]
	free        []int32
	count       int
	toKeyString func(*T) string
}

// NewClass creates an empty class. toKeyString is an optional diagnostic
// hook used only by ToKeyString for debug logging; with nil, ToKeyString
// prints the slot index and generation instead.
func NewClass[T any](name string, toKeyString func(*T) string) *Class[T] {
	return &Class[T]{name: name, toKeyString: toKeyString}
}

// Name returns the class's registered name.
func (c *Class[T]) Name() string {
	return c.name
}

// New allocates an instance, reusing a freed slot when one is available.
func (c *Class[T]) New() (Handle, *T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var idx int32
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
		c.slots[idx].value = *new(T)
	} else {
		idx = int32(len(c.slots))
		c.slots = append(c.slots, slot[T]{})
	}
	c.slots[idx].alive = true
	c.slots[idx].generation++
	c.count++
	return Handle{index: idx, generation: c.slots[idx].generation}, &c.slots[idx].value
}

// Free returns h's slot to the freelist. Freeing an already-free or stale
// handle is a no-op.
func (c *Class[T]) Free(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isLive(h) {
		return
	}
	c.slots[h.index].alive = false
	c.free = append(c.free, h.index)
	c.count--
}

// Get returns the instance behind h, or nil if h is stale or already freed.
func (c *Class[T]) Get(h Handle) *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isLive(h) {
		return nil
	}
	return &c.slots[h.index].value
}

// isLive must be called with c.mu held.
func (c *Class[T]) isLive(h Handle) bool {
	if h.index < 0 || int(h.index) >= len(c.slots) {
		return false
	}
	s := &c.slots[h.index]
	return s.alive && s.generation == h.generation
}

// Count returns the number of live instances.
func (c *Class[T]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// ToKeyString renders h for debug logging using the class's registered
// hook, or a generic placeholder if none was configured.
func (c *Class[T]) ToKeyString(h Handle) string {
	t := c.Get(h)
	if t == nil {
		return fmt.Sprintf("%s[freed %d/%d]", c.name, h.index, h.generation)
	}
	if c.toKeyString != nil {
		return fmt.Sprintf("%s[%s]", c.name, c.toKeyString(t))
	}
	return fmt.Sprintf("%s[%d/%d]", c.name, h.index, h.generation)
}

// Walk calls fn for every currently live instance in slot order. fn must
// not call New or Free on c.
func (c *Class[T]) Walk(fn func(Handle, *T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if !c.slots[i].alive {
			continue
		}
		fn(Handle{index: int32(i), generation: c.slots[i].generation}, &c.slots[i].value)
	}
}
