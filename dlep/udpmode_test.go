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

func TestParseUDPMode(t *testing.T) {
	cases := map[string]UDPMode{
		"none":           UDPModeNone,
		"single_session": UDPModeSingleSession,
		"always":         UDPModeAlways,
	}
	for s, want := range cases {
		got, err := ParseUDPMode(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestParseUDPModeRejectsUnknown(t *testing.T) {
	_, err := ParseUDPMode("sometimes")
	require.Error(t, err)
}

func TestUDPModeShouldListen(t *testing.T) {
	require.False(t, UDPModeNone.shouldListen(0))
	require.False(t, UDPModeNone.shouldListen(1))

	require.True(t, UDPModeSingleSession.shouldListen(0))
	require.False(t, UDPModeSingleSession.shouldListen(1))

	require.True(t, UDPModeAlways.shouldListen(0))
	require.True(t, UDPModeAlways.shouldListen(3))
}
