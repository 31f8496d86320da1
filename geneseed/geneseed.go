// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package geneseed implements the anchor/candidate refinement loop that
// recovers gene-length hit clusters out of many individually-weak HSPs
// against one intron-bearing DNA target (spec.md §4.H). A confident first
// pass of HSPs ("anchors") proposes target regions to re-scan at a lower
// threshold; newly found HSPs near an anchor's own span are promoted to
// keepers and become next round's anchors, until a round finds nothing
// new or has nothing left to scan.
//
// geneseed owns none of the index/automaton machinery that actually
// produces HSPs from a region: the caller supplies that through a
// Reseeder, keeping this package testable against a synthetic target
// without a real dataset or word index.
package geneseed

import (
	"github.com/kortschak/seedcore/hsp"
	"github.com/kortschak/seedcore/rangetree"
)

// Params bounds one target's refinement run.
type Params struct {
	// MaxQuerySpan and MaxTargetSpan are the proximity box half-widths
	// used both to grow a search region around an anchor and to decide
	// whether a new candidate is "near" its parent anchor.
	MaxQuerySpan  int
	MaxTargetSpan int
	// MaxRounds caps refinement rounds. Zero derives the bound spec.md's
	// termination invariant names: at most len(anchors)+1 rounds (one
	// target per Refine call), since each round either promotes at
	// least one new keeper or halts.
	MaxRounds int
}

// Reseeder re-seeds HSPs inside one target region at the normal (lower)
// hsp_threshold, matching spec.md's "read_occurrences with the interval
// filter" step. The caller closes over the query, dataset and automaton
// needed to do this; geneseed only decides which regions to ask for.
type Reseeder func(region Span) ([]hsp.HSP, error)

// anchor is one refinement work-list entry: a keeper HSP plus which
// directions still need exploring (spec.md's per-anchor go_fwd/go_rev).
type anchor struct {
	hit          hsp.HSP
	goFwd, goRev bool
}

// SelectAnchors keeps the HSPs of every set whose accumulated seed count
// meets minSeeds (spec.md §4.H step 1's elevated seed_repeat), finalising
// each kept set against query and target.
func SelectAnchors(sets []*hsp.HSPSet, minSeeds int, query, target []byte) ([]hsp.HSP, error) {
	var out []hsp.HSP
	for _, s := range sets {
		if s.SeedCount() < minSeeds {
			continue
		}
		hits, err := s.Finalise(query, target)
		if err != nil {
			return nil, err
		}
		out = append(out, hits...)
	}
	return out, nil
}

// Refine runs the refinement loop for one target, starting from anchors
// (confident HSPs from an elevated-threshold, elevated-seed_repeat
// pass), and returns every keeper HSP found — the final per-target
// output spec.md step 4 describes as "one HSPset per target built from
// the keeper range tree".
func Refine(anchors []hsp.HSP, targetLen int, p Params, reseed Reseeder) ([]hsp.HSP, error) {
	keepers := rangetree.New()
	candidates := rangetree.New()
	cov := newSearched()

	work := make([]anchor, len(anchors))
	for i, a := range anchors {
		work[i] = anchor{hit: a, goFwd: true, goRev: true}
		keepers.Add(int(a.CobsQ), int(a.CobsT), a)
	}

	maxRounds := p.MaxRounds
	if maxRounds <= 0 {
		maxRounds = len(anchors) + 1
	}

	for round := 0; round < maxRounds && len(work) > 0; round++ {
		var delta []Span
		for _, a := range work {
			lo, hi := searchRegion(a, targetLen, p.MaxTargetSpan)
			delta = append(delta, cov.Add(lo, hi)...)
		}
		if len(delta) == 0 {
			break
		}

		var found []hsp.HSP
		for _, region := range delta {
			hits, err := reseed(region)
			if err != nil {
				return nil, err
			}
			found = append(found, hits...)
		}
		if len(found) == 0 {
			break
		}
		for _, c := range found {
			candidates.Add(int(c.CobsQ), int(c.CobsT), c)
		}

		var next []anchor
		for _, a := range work {
			qLo, qHi, tLo, tHi := proximityBox(a, p.MaxQuerySpan, p.MaxTargetSpan)
			candidates.Find(qLo, qHi, tLo, tHi, func(x, y int, info interface{}) bool {
				cand := info.(hsp.HSP)
				if keepers.CheckPos(int(cand.CobsQ), int(cand.CobsT)) {
					return false
				}
				keepers.Add(int(cand.CobsQ), int(cand.CobsT), cand)
				next = append(next, anchor{
					hit:   cand,
					goFwd: cand.CobsT >= a.hit.CobsT,
					goRev: cand.CobsT <= a.hit.CobsT,
				})
				return false
			})
		}
		if len(next) == 0 {
			break
		}
		work = next
	}

	var out []hsp.HSP
	keepers.Traverse(func(x, y int, info interface{}) bool {
		out = append(out, info.(hsp.HSP))
		return false
	})
	return out, nil
}

// searchRegion proposes the target span to union into the searched set
// for anchor a: its own reach, extended by maxTargetSpan on whichever
// sides a.goFwd/a.goRev enable (spec.md §4.H step 3a).
func searchRegion(a anchor, targetLen, maxTargetSpan int) (lo, hi int) {
	lo = int(a.hit.TStart)
	hi = lo + int(a.hit.Length)
	if a.goRev {
		lo -= maxTargetSpan
		if lo < 0 {
			lo = 0
		}
	}
	if a.goFwd {
		hi += maxTargetSpan
		if hi > targetLen {
			hi = targetLen
		}
	}
	return lo, hi
}

// proximityBox is the max_query_span x max_target_span box around
// anchor a's cobs, restricted to the target-axis directions a.goFwd /
// a.goRev still permit (spec.md §4.H step 3c).
func proximityBox(a anchor, maxQuerySpan, maxTargetSpan int) (qLo, qHi, tLo, tHi int) {
	q, t := int(a.hit.CobsQ), int(a.hit.CobsT)
	qLo, qHi = q-maxQuerySpan, q+maxQuerySpan
	tLo, tHi = t, t
	if a.goRev {
		tLo = t - maxTargetSpan
	}
	if a.goFwd {
		tHi = t + maxTargetSpan
	}
	if qLo < 0 {
		qLo = 0
	}
	if tLo < 0 {
		tLo = 0
	}
	return qLo, qHi, tLo, tHi
}
