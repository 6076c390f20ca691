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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryNegotiateKeepsOnlySupported(t *testing.T) {
	r := NewRegistry(
		NewDescriptor(ExtBaseMetrics, "base metric", "1.0.0"),
		NewDescriptor(ExtLinkIdentifier, "link identifier", "1.0.0"),
	)
	got := r.Negotiate([]uint16{ExtBaseMetrics, ExtRadioAttributes, ExtLinkIdentifier})
	require.ElementsMatch(t, []uint16{ExtBaseMetrics, ExtLinkIdentifier}, got)
}

func TestRegistrySupports(t *testing.T) {
	r := NewRegistry(NewDescriptor(ExtL2Statistics, "l2 statistics", "2.1.0"))
	require.True(t, r.Supports(ExtL2Statistics))
	require.False(t, r.Supports(ExtL1Statistics))
}

func TestRegistryIDs(t *testing.T) {
	r := NewRegistry(
		NewDescriptor(ExtBaseMetrics, "base metric", "1.0.0"),
		NewDescriptor(ExtBaseIPv4, "base ip", "1.0.0"),
	)
	require.ElementsMatch(t, []uint16{ExtBaseMetrics, ExtBaseIPv4}, r.IDs())
}

func TestNewDescriptorPanicsOnInvalidVersion(t *testing.T) {
	require.Panics(t, func() {
		NewDescriptor(ExtBaseMetrics, "base metric", "not-a-version")
	})
}
