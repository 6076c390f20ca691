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

package mpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDXYComputesSumOfHops(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 1)
	y := g.N2Node("X")
	y.AddEdge("A", 2)

	require.Equal(t, Metric(3), g.dXY(0, y))
}

func TestDXYUnreachableIsInfinite(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 1)
	g.AddN1("B", WillingnessDefault, 1)
	y := g.N2Node("X")
	y.AddEdge("A", 2)

	require.Equal(t, MetricInfinite, g.dXY(1, y))
}

func TestDXYCachesAcrossCalls(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 5)
	y := g.N2Node("X")
	y.AddEdge("A", 5)

	first := g.dXY(0, y)
	// mutate the edge after the first (memoized) read; the cached value
	// must not change underneath a second call for the same run.
	y.AddEdge("A", 1)
	second := g.dXY(0, y)
	require.Equal(t, first, second)
}

func TestAddEdgeKeepsCheapestForDuplicateVia(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 0)
	y := g.N2Node("X")
	y.AddEdge("A", 4)
	y.AddEdge("A", 2)
	require.Equal(t, []string{"A"}, y.Reachers())
	require.Equal(t, Metric(2), g.dXY(0, y))
}

func TestDOfYSPrefersDirectLinkWhenCheaper(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 10)
	y := g.N2Node("X")
	y.D1 = 1
	y.AddEdge("A", 1)

	subset := map[string]bool{"A": true}
	require.Equal(t, Metric(1), g.dOfYS(y, subset))
}

func TestDOfYSUsesBestOfSubset(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 5)
	g.AddN1("B", WillingnessDefault, 1)
	y := g.N2Node("X")
	y.AddEdge("A", 1)
	y.AddEdge("B", 1)

	require.Equal(t, Metric(2), g.dOfYS(y, map[string]bool{"B": true}))
	require.Equal(t, Metric(2), g.dOfYS(y, map[string]bool{"A": true, "B": true}))
}
