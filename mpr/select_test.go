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

// assertOptimal checks the selection invariant every test in this file
// leans on: for every y in N2, d(y,M) must equal d(y,N1).
func assertOptimal(t *testing.T, g *Graph, m map[string]bool) {
	t.Helper()
	n1All := g.n1Set()
	for _, y := range g.n2 {
		require.Equal(t, g.dOfYS(y, n1All), g.dOfYS(y, m), "mismatch at %s", y.Addr)
	}
}

func TestSelectAlwaysWillingNeighborIsAlwaysIncluded(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 1)
	g.AddN1("C", WillingnessAlways, 1)

	m := Select(g)
	require.True(t, m["C"])
}

func TestSelectEmptyGraphSelectsNothing(t *testing.T) {
	g := NewGraph()
	m := Select(g)
	require.Empty(t, m)
}

func TestSelectUniqueAccessNeighborIsSeeded(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 1)
	g.AddN1("B", WillingnessDefault, 1)

	// Y has no direct N1 link and exactly one way in: via B.
	y := g.N2Node("Y")
	y.AddEdge("B", 1)

	m := Select(g)
	require.True(t, m["B"])
	require.False(t, m["A"])
	assertOptimal(t, g, m)
}

// TestSelectClassicTriangle exercises a small topology with an
// always-willing neighbor, a two-hop neighbor reachable from two
// one-hop neighbors, a uniquely-reachable two-hop neighbor, and a
// two-hop neighbor reachable through only the remaining candidate.
func TestSelectClassicTriangle(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 1)
	g.AddN1("B", WillingnessDefault, 1)
	g.AddN1("C", WillingnessAlways, 1)

	x := g.N2Node("X")
	x.AddEdge("A", 1)
	x.AddEdge("B", 1)

	y := g.N2Node("Y")
	y.AddEdge("B", 1)

	z := g.N2Node("Z")
	z.AddEdge("A", 2)

	m := Select(g)

	require.True(t, m["C"], "always-willing neighbor must be selected")
	require.True(t, m["B"], "unique access to Y must select B")
	require.True(t, m["A"], "only A reaches Z")
	assertOptimal(t, g, m)
}

func TestSelectDoesNotAddUnnecessaryNeighbors(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 1)
	g.AddN1("B", WillingnessDefault, 1)

	// Both A and B reach X equally well; either suffices, so one of
	// them should not be selected once the other already covers X.
	x := g.N2Node("X")
	x.AddEdge("A", 1)
	x.AddEdge("B", 1)

	m := Select(g)
	require.Len(t, m, 1)
	assertOptimal(t, g, m)
}

func TestSelectUnreachableN2DoesNotLoopForever(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 1)

	// Z has no N1 link whatsoever: d(Z,N1) is infinite, so the
	// selection must still terminate with the invariant holding
	// vacuously rather than spin trying to "cover" it.
	g.N2Node("Z")

	m := Select(g)
	assertOptimal(t, g, m)
}

func TestSelectMetricTieBreakDoesNotOverrideUniqueAccess(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessDefault, 1)
	g.AddN1("B", WillingnessDefault, 10)

	// Both A and B are the sole path to their own two-hop neighbor, so
	// both get seeded regardless of metric; this exercises that the
	// aggregate-metric tie-break does not override a unique-access
	// requirement.
	x := g.N2Node("X")
	x.AddEdge("A", 1)
	y := g.N2Node("Y")
	y.AddEdge("B", 1)

	m := Select(g)
	require.True(t, m["A"])
	require.True(t, m["B"])
	assertOptimal(t, g, m)
}

type fakeSelectionRecorder struct {
	domain   string
	selected int
	calls    int
}

func (f *fakeSelectionRecorder) ObserveMPRSelection(domain string, selected int) {
	f.domain = domain
	f.selected = selected
	f.calls++
}

func TestSelectRecordedReportsSelectionSize(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessAlways, 1)
	rec := &fakeSelectionRecorder{}

	m := SelectRecorded("flooding", g, rec)

	require.Equal(t, 1, rec.calls)
	require.Equal(t, "flooding", rec.domain)
	require.Equal(t, len(m), rec.selected)
}

func TestSelectHigherWillingnessPreferredWhenCoverageTies(t *testing.T) {
	g := NewGraph()
	g.AddN1("A", WillingnessLow, 1)
	g.AddN1("B", WillingnessHigh, 1)

	// Both A and B reach X and Y identically; a non-seeded selection
	// round should prefer the higher-willingness neighbor.
	x := g.N2Node("X")
	x.AddEdge("A", 1)
	x.AddEdge("B", 1)
	y := g.N2Node("Y")
	y.AddEdge("A", 1)
	y.AddEdge("B", 1)

	m := Select(g)
	require.True(t, m["B"])
	require.False(t, m["A"])
	assertOptimal(t, g, m)
}
