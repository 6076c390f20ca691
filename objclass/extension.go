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

package objclass

import "sync"

// Extension attaches side-car data of type E to instances of a Class[T]
// without modifying T itself. Subsystems register an Extension the way the
// original C allocator let callers append bytes to a class's instance size;
// here each subsystem gets its own map instead, keyed by the same Handle.
type Extension[T any, E any] struct {
	mu    sync.Mutex
	owner *Class[T]
	data  map[Handle]E
}

// NewExtension creates an extension slot bound to owner. Handles not
// currently live in owner are rejected by Set.
func NewExtension[T any, E any](owner *Class[T]) *Extension[T, E] {
	return &Extension[T, E]{owner: owner, data: make(map[Handle]E)}
}

// Set attaches value to h. It is a no-op if h is not currently live in the
// owning class.
func (e *Extension[T, E]) Set(h Handle, value E) {
	if e.owner.Get(h) == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data[h] = value
}

// Get returns the extension value attached to h and whether one is present.
func (e *Extension[T, E]) Get(h Handle) (E, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.data[h]
	return v, ok
}

// Remove detaches any extension value from h. Callers that free h from the
// owning class should also call Remove to release the side-car entry.
func (e *Extension[T, E]) Remove(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.data, h)
}
