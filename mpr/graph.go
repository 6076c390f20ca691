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

// Package mpr selects a Multi-Point Relay set from a two-hop neighbor
// graph, following RFC 7181 Appendix B. One Graph is built per flooding
// or routing domain; the same selection runs over either.
package mpr

// N1 is one one-hop neighbor: a direct MPR candidate with its own
// declared willingness and the cost of reaching it directly (d1(x)).
type N1 struct {
	Addr        string
	Willingness Willingness
	D1          Metric
}

// n2Edge is one link from an N1 neighbor to a two-hop neighbor: d2(x,y).
type n2Edge struct {
	via    string
	metric Metric
}

// N2 is one two-hop neighbor: reachable only through one or more N1
// neighbors, plus (rarely) directly if it also happens to be an N1
// neighbor under a different link.
type N2 struct {
	Addr string
	D1   Metric // direct reachability cost, MetricInfinite if none
	via  []n2Edge
}

// AddEdge records that the N1 neighbor at addr reaches this N2 neighbor
// at the given cost (d2(addr, y)), keeping the cheapest edge if called
// more than once for the same via address.
func (n *N2) AddEdge(via string, metric Metric) {
	for i, e := range n.via {
		if e.via == via {
			if metric < e.metric {
				n.via[i].metric = metric
			}
			return
		}
	}
	n.via = append(n.via, n2Edge{via: via, metric: metric})
}

// Reachers returns the N1 addresses with an edge to this N2 neighbor.
func (n *N2) Reachers() []string {
	out := make([]string, len(n.via))
	for i, e := range n.via {
		out[i] = e.via
	}
	return out
}

// Graph is the N1/N2 neighbor graph for one domain (flooding, or one
// routing metric). Build it with NewGraph, AddN1 and the N2 map, then
// hand it to Select.
type Graph struct {
	n1     []N1
	n1Idx  map[string]int
	n2     []*N2
	n2Idx  map[string]int
	dCache []Metric // flat d(x,y) = d1(x)+d2(x,y) cache, len(n1)*len(n2)
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		n1Idx: make(map[string]int),
		n2Idx: make(map[string]int),
	}
}

// AddN1 adds or updates a one-hop neighbor.
func (g *Graph) AddN1(addr string, w Willingness, d1 Metric) {
	if i, ok := g.n1Idx[addr]; ok {
		g.n1[i].Willingness = w
		g.n1[i].D1 = d1
		return
	}
	g.n1Idx[addr] = len(g.n1)
	g.n1 = append(g.n1, N1{Addr: addr, Willingness: w, D1: d1})
}

// N2Node returns (creating if necessary) the two-hop neighbor at addr.
func (g *Graph) N2Node(addr string) *N2 {
	if i, ok := g.n2Idx[addr]; ok {
		return g.n2[i]
	}
	g.n2Idx[addr] = len(g.n2)
	n := &N2{Addr: addr, D1: MetricInfinite}
	g.n2 = append(g.n2, n)
	return n
}

// N1Neighbors returns the one-hop neighbor set.
func (g *Graph) N1Neighbors() []N1 {
	return g.n1
}

// N2Neighbors returns the two-hop neighbor set.
func (g *Graph) N2Neighbors() []*N2 {
	return g.n2
}

// dXY returns d(x,y) = d1(x) + d2(x,y), memoizing the sum in a flat
// table_offset(x)*len(N2)+table_offset(y) cache for the life of one
// selection run, as the original implementation's d_x_y_cache does.
func (g *Graph) dXY(xIdx int, y *N2) Metric {
	yIdx, ok := g.n2Idx[y.Addr]
	if !ok {
		return MetricInfinite
	}
	if g.dCache == nil {
		g.dCache = make([]Metric, len(g.n1)*len(g.n2))
		for i := range g.dCache {
			g.dCache[i] = metricUnset
		}
	}
	off := xIdx*len(g.n2) + yIdx
	if g.dCache[off] != metricUnset {
		return g.dCache[off]
	}
	d := MetricInfinite
	for _, e := range y.via {
		if e.via != g.n1[xIdx].Addr {
			continue
		}
		d = g.n1[xIdx].D1.Add(e.metric)
		break
	}
	g.dCache[off] = d
	return d
}

// metricUnset marks a dCache slot that has not been computed yet; it is
// one above MetricInfinite so it can never collide with a real value.
const metricUnset Metric = MetricInfinite + 1

// dOfYS computes d(y,S) = min(d1(y), min_{x in S} d(x,y)) for the
// one-hop neighbor subset named by subsetAddrs.
func (g *Graph) dOfYS(y *N2, subsetAddrs map[string]bool) Metric {
	best := y.D1
	for xIdx, x := range g.n1 {
		if !subsetAddrs[x.Addr] {
			continue
		}
		if d := g.dXY(xIdx, y); d < best {
			best = d
		}
	}
	return best
}
