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

// Package daemon wires the readiness loop, duplicate set, DLEP interfaces
// and MPR selector into one process via the subsystem registry.
package daemon

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/facebook/oonf-go/dlep"
	"github.com/facebook/oonf-go/dupset"
)

// DLEPInterfaceConfig names which role an interface plays in addition to
// the interface's own options.
type DLEPInterfaceConfig struct {
	Role   string               `yaml:"role"`
	Config dlep.InterfaceConfig `yaml:"config"`
}

// UnmarshalYAML seeds Config from dlep's own IANA defaults before
// applying the YAML body, so a dlep_interfaces entry only needs to name
// what it overrides.
func (c *DLEPInterfaceConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		Role   string `yaml:"role"`
		Config *dlep.InterfaceConfig
	}
	p := plain{Config: dlep.DefaultInterfaceConfig()}
	if err := unmarshal(&p); err != nil {
		return err
	}
	c.Role = p.Role
	c.Config = *p.Config
	return nil
}

func (c *DLEPInterfaceConfig) role() (dlep.Role, error) {
	switch c.Role {
	case "router":
		return dlep.Router, nil
	case "radio":
		return dlep.Radio, nil
	default:
		return 0, fmt.Errorf("dlep interface role must be %q or %q, got %q", "router", "radio", c.Role)
	}
}

// Config is the daemon's top-level configuration: one duplicate-set width
// shared by every reader, a named DLEP interface per configured radio
// link, the set of MPR domains to recompute, and the metrics listener.
type Config struct {
	LogLevel          string                         `yaml:"log_level"`
	MetricsPort       int                             `yaml:"metrics_port"`
	DuplicateSetWidth dupset.Width                    `yaml:"duplicate_set_width"`
	DLEPInterfaces    map[string]*DLEPInterfaceConfig `yaml:"dlep_interfaces"`
	MPRDomains        []string                        `yaml:"mpr_domains"`
	MPRInterval       time.Duration                   `yaml:"mpr_interval"`
}

// DefaultConfig returns the daemon defaults: info-level logging, the
// well-known metrics port, a 16-bit-wide duplicate set, the "flooding" MPR
// domain recomputed every two seconds, and no DLEP interfaces configured.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		MetricsPort:       9100,
		DuplicateSetWidth: dupset.Width16,
		DLEPInterfaces:    map[string]*DLEPInterfaceConfig{},
		MPRDomains:        []string{"flooding"},
		MPRInterval:       2 * time.Second,
	}
}

// ReadConfig loads a Config from path over the defaults, so an omitted
// section keeps its default rather than zeroing out.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(cData, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks c for self-consistency, delegating to each DLEP
// interface's own Validate and rejecting an unroutable role name early
// rather than failing later at interface construction.
func (c *Config) Validate() error {
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port must be between 1 and 65535")
	}
	if c.MPRInterval <= 0 {
		return fmt.Errorf("mpr_interval must be positive")
	}
	if len(c.MPRDomains) == 0 {
		return fmt.Errorf("mpr_domains must name at least one domain")
	}
	for name, ifcCfg := range c.DLEPInterfaces {
		if _, err := ifcCfg.role(); err != nil {
			return fmt.Errorf("dlep interface %q: %w", name, err)
		}
		if err := ifcCfg.Config.Validate(); err != nil {
			return fmt.Errorf("dlep interface %q: %w", name, err)
		}
	}
	return nil
}
