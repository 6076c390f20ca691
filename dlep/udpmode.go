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

import "fmt"

// UDPMode controls when a radio-side Interface listens for Peer-Discovery.
type UDPMode int

// UDP-mode policies.
const (
	// UDPModeNone never listens on the discovery socket.
	UDPModeNone UDPMode = iota
	// UDPModeSingleSession listens only while no TCP session is active.
	UDPModeSingleSession
	// UDPModeAlways listens unconditionally and may establish multiple
	// parallel TCP sessions.
	UDPModeAlways
)

func (m UDPMode) String() string {
	switch m {
	case UDPModeNone:
		return "none"
	case UDPModeSingleSession:
		return "single_session"
	case UDPModeAlways:
		return "always"
	default:
		return fmt.Sprintf("udp_mode(%d)", int(m))
	}
}

// ParseUDPMode parses the configuration strings named in the DLEP interface
// configuration surface.
func ParseUDPMode(s string) (UDPMode, error) {
	switch s {
	case "none":
		return UDPModeNone, nil
	case "single_session":
		return UDPModeSingleSession, nil
	case "always":
		return UDPModeAlways, nil
	default:
		return 0, fmt.Errorf("dlep: unknown udp_mode %q", s)
	}
}

// shouldListen reports whether mode permits listening given the number of
// currently active sessions.
func (m UDPMode) shouldListen(activeSessions int) bool {
	switch m {
	case UDPModeNone:
		return false
	case UDPModeSingleSession:
		return activeSessions == 0
	case UDPModeAlways:
		return true
	default:
		return false
	}
}
