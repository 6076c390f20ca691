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

// Recorder observes completed selection runs. *metrics.Registry
// implements it; callers that don't care about metrics just call Select
// directly instead of SelectRecorded.
type Recorder interface {
	ObserveMPRSelection(domain string, selected int)
}

// SelectRecorded runs Select and reports the resulting MPR set size for
// domain (e.g. "flooding" or a routing domain name) through rec.
func SelectRecorded(domain string, g *Graph, rec Recorder) map[string]bool {
	m := Select(g)
	rec.ObserveMPRSelection(domain, len(m))
	return m
}

// Select runs the RFC 7181 Appendix B greedy selection over g and
// returns the chosen MPR set as a set of N1 addresses.
//
// Three properties hold on return: every WillingnessAlways neighbor is
// selected; every N2 neighbor with no direct N1 link has some selected
// neighbor reaching it; and for every N2 neighbor y, d(y,M) == d(y,N1) —
// the selection never lengthens a shortest two-hop path.
func Select(g *Graph) map[string]bool {
	g.dCache = nil // the d(x,y) memo covers one selection run
	m := make(map[string]bool)

	for _, x := range g.n1 {
		if x.Willingness.Always() {
			m[x.Addr] = true
		}
	}

	// Seed with the unique N1 neighbor reaching any y that has no
	// direct N1 link of its own and exactly one way in.
	for _, y := range g.n2 {
		if y.D1.Finite() {
			continue
		}
		reachers := y.Reachers()
		if len(reachers) == 1 {
			m[reachers[0]] = true
		}
	}

	for {
		uncovered := uncoveredN2(g, m)
		if len(uncovered) == 0 {
			break
		}
		cand, ok := bestCandidate(g, m, uncovered)
		if !ok {
			// No remaining candidate improves coverage. An N2
			// neighbor with no path through N1 at all never counts
			// as uncovered (d(y,M) and d(y,N1) are both infinite),
			// so this is only a defensive exit.
			break
		}
		m[cand] = true
	}

	return m
}

func (g *Graph) n1Set() map[string]bool {
	all := make(map[string]bool, len(g.n1))
	for _, x := range g.n1 {
		all[x.Addr] = true
	}
	return all
}

// uncoveredY pairs an N2 neighbor with d(y,N1), the best distance the
// full one-hop set achieves — the value the selection must reproduce.
type uncoveredY struct {
	n2  *N2
	dN1 Metric
}

// uncoveredN2 returns the N2 neighbors where the current selection m
// has not yet matched d(y,N1).
func uncoveredN2(g *Graph, m map[string]bool) []uncoveredY {
	n1All := g.n1Set()
	var out []uncoveredY
	for _, y := range g.n2 {
		dN1 := g.dOfYS(y, n1All)
		if g.dOfYS(y, m) != dN1 {
			out = append(out, uncoveredY{n2: y, dN1: dN1})
		}
	}
	return out
}

// bestCandidate scores every N1 neighbor not already in m by
// (willingness, newly-covered count, aggregate metric over the
// uncovered set) and returns the highest-ranked one, following the
// candidate-scoring-loop shape used elsewhere in this codebase for
// best-of-N selection.
func bestCandidate(g *Graph, m map[string]bool, uncovered []uncoveredY) (string, bool) {
	var bestAddr string
	var bestScore *candidateScore
	found := false

	for xIdx, x := range g.n1 {
		if m[x.Addr] {
			continue
		}
		score := scoreCandidate(g, xIdx, x, uncovered)
		if score.newlyCovered == 0 {
			continue
		}
		if bestScore == nil || score.less(*bestScore) {
			bestScore = &score
			bestAddr = x.Addr
			found = true
		}
	}
	return bestAddr, found
}

type candidateScore struct {
	willingness  Willingness
	newlyCovered int
	aggregate    Metric
}

// less reports whether s ranks strictly better than other: higher
// willingness wins, then more newly-covered N2 neighbors, then lower
// aggregate metric as the final tie-break.
func (s candidateScore) less(other candidateScore) bool {
	if s.willingness != other.willingness {
		return s.willingness > other.willingness
	}
	if s.newlyCovered != other.newlyCovered {
		return s.newlyCovered > other.newlyCovered
	}
	return s.aggregate < other.aggregate
}

func scoreCandidate(g *Graph, xIdx int, x N1, uncovered []uncoveredY) candidateScore {
	score := candidateScore{willingness: x.Willingness}
	var aggregate Metric
	for _, u := range uncovered {
		d := g.dXY(xIdx, u.n2)
		if !d.Finite() || d != u.dN1 {
			continue
		}
		score.newlyCovered++
		aggregate = aggregate.Add(d)
	}
	score.aggregate = aggregate
	return score
}
