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

package dlep

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// Extension IDs, RFC 8175 section 12.5, plus the vendor items
// original_source names as "L1 statistics", "L2 statistics", "radio
// attributes" and the link-identifier extension.
const (
	ExtBaseMetrics     uint16 = 1
	ExtBaseIPv4        uint16 = 2
	ExtBaseIPv6        uint16 = 3
	ExtL1Statistics    uint16 = 4096
	ExtL2Statistics    uint16 = 4097
	ExtRadioAttributes uint16 = 4098
	ExtLinkIdentifier  uint16 = 4099
)

// Descriptor names one DLEP extension this peer can speak: its wire id,
// a human name, and a semantic version string used only for compatibility
// logging (the wire protocol negotiates ids, not version strings). It
// carries no data-item definitions of its own.
type Descriptor struct {
	ID      uint16
	Name    string
	Version *version.Version
}

// NewDescriptor parses verStr as a semantic version; an invalid string
// is a programming error in the extension's registration, not a runtime
// condition, so it panics.
func NewDescriptor(id uint16, name, verStr string) Descriptor {
	v, err := version.NewVersion(verStr)
	if err != nil {
		panic(fmt.Sprintf("dlep: invalid extension version %q for %s: %v", verStr, name, err))
	}
	return Descriptor{ID: id, Name: name, Version: v}
}

// Registry is the set of extensions one Interface offers during
// negotiation.
type Registry struct {
	byID map[uint16]Descriptor
}

// NewRegistry builds a Registry from descs.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{byID: make(map[uint16]Descriptor, len(descs))}
	for _, d := range descs {
		r.byID[d.ID] = d
	}
	return r
}

// IDs returns every registered extension id, the list carried in the
// Extensions-Supported data item.
func (r *Registry) IDs() []uint16 {
	out := make([]uint16, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	return out
}

// Negotiate returns the subset of peerIDs this registry also supports,
// the set both sides will honor for the life of the session.
func (r *Registry) Negotiate(peerIDs []uint16) []uint16 {
	var out []uint16
	for _, id := range peerIDs {
		if _, ok := r.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Supports reports whether id is in this registry.
func (r *Registry) Supports(id uint16) bool {
	_, ok := r.byID[id]
	return ok
}
