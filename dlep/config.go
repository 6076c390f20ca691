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
	"time"
)

// InterfaceConfig specifies one DLEP interface's run options, split into
// the fields every interface needs and the radio-only fields.
type InterfaceConfig struct {
	PeerType          string        `yaml:"peer_type"`
	DiscoveryMCV4     string        `yaml:"discovery_mc_v4"`
	DiscoveryMCV6     string        `yaml:"discovery_mc_v6"`
	DiscoveryPort     int           `yaml:"discovery_port"`
	DiscoveryBindTo   string        `yaml:"discovery_bindto"`
	DiscoveryInterval time.Duration `yaml:"discovery_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	UDPModeName       string        `yaml:"udp_mode"`
	DatapathIf        string        `yaml:"datapath_if"`
	ConnectTo         string        `yaml:"connect_to"`
	ConnectToPort     int           `yaml:"connect_to_port"`

	// Radio side only.
	SessionPort   int    `yaml:"session_port"`
	SessionBindTo string `yaml:"session_bindto"`
	Proxied       bool   `yaml:"proxied"`
	NotProxied    bool   `yaml:"not_proxied"`
	LIDLength     int    `yaml:"lid_length"`
}

// DefaultInterfaceConfig returns the IANA well-known defaults for DLEP.
func DefaultInterfaceConfig() *InterfaceConfig {
	return &InterfaceConfig{
		PeerType:          "oonf-go",
		DiscoveryMCV4:     "224.0.0.117",
		DiscoveryMCV6:     "ff02::1:117",
		DiscoveryPort:     854,
		DiscoveryInterval: 5 * time.Second,
		HeartbeatInterval: 5 * time.Second,
		UDPModeName:       "single_session",
		SessionPort:       0, // ephemeral; offered by Peer-Offer
		LIDLength:         defaultLIDLength,
	}
}

// Validate checks c for self-consistency, mirroring the range checks the
// RFC places on discovery/heartbeat intervals and lid length.
func (c *InterfaceConfig) Validate() error {
	if c.PeerType == "" {
		return fmt.Errorf("peer_type must be specified")
	}
	if c.DiscoveryInterval < time.Second {
		return fmt.Errorf("discovery_interval must be at least 1s")
	}
	if c.HeartbeatInterval < time.Second || c.HeartbeatInterval > 65*time.Second {
		return fmt.Errorf("heartbeat_interval must be between 1s and 65s")
	}
	if _, err := ParseUDPMode(c.UDPModeName); err != nil {
		return err
	}
	if c.LIDLength < 0 || c.LIDLength > maxLIDLength {
		return fmt.Errorf("lid_length must be between 0 and %d", maxLIDLength)
	}
	if c.Proxied && c.NotProxied {
		return fmt.Errorf("proxied and not_proxied are mutually exclusive")
	}
	return nil
}
