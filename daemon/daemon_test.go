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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/oonf-go/dlep"
)

func TestNewWiresComponentsWithoutDLEPInterfaces(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MPRDomains = []string{"flooding", "routing"}

	d, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, d.DuplicateSet())

	for _, domain := range cfg.MPRDomains {
		g, ok := d.Graph(domain)
		require.True(t, ok, "missing graph for domain %s", domain)
		require.NotNil(t, g)
	}

	_, ok := d.Graph("unconfigured")
	require.False(t, ok)

	_, ok = d.Interface("wlan0")
	require.False(t, ok)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsPort = -1
	_, err := New(cfg)
	require.Error(t, err)
}

func TestNewBuildsOneDLEPInterfacePerEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DLEPInterfaces["wlan0"] = &DLEPInterfaceConfig{
		Role:   "radio",
		Config: *dlep.DefaultInterfaceConfig(),
	}

	d, err := New(cfg)
	require.NoError(t, err)

	ifc, ok := d.Interface("wlan0")
	require.True(t, ok)
	require.NotNil(t, ifc)
}
