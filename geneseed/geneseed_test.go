// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geneseed

import (
	"testing"

	"github.com/kortschak/seedcore/hsp"
)

func TestSearchedAddReturnsDeltaOnce(t *testing.T) {
	s := newSearched()
	d1 := s.Add(10, 20)
	if len(d1) != 1 || d1[0] != (Span{10, 20}) {
		t.Fatalf("first Add delta = %v, want [{10 20}]", d1)
	}
	d2 := s.Add(10, 20)
	if len(d2) != 0 {
		t.Fatalf("re-adding the same span returned delta %v, want none", d2)
	}
}

func TestSearchedAddCoalescesOverlap(t *testing.T) {
	s := newSearched()
	s.Add(0, 10)
	s.Add(20, 30)
	// Bridges the gap between the two existing spans; only [10,20) is new.
	d := s.Add(5, 25)
	if len(d) != 1 || d[0] != (Span{10, 20}) {
		t.Fatalf("bridging Add delta = %v, want [{10 20}]", d)
	}
	// The whole [0,30) run is now covered; adding any sub-range is empty.
	if d := s.Add(2, 28); len(d) != 0 {
		t.Fatalf("Add within a fully covered span returned delta %v, want none", d)
	}
}

func TestSearchedAddRejectsEmptyRange(t *testing.T) {
	s := newSearched()
	if d := s.Add(5, 5); d != nil {
		t.Fatalf("Add(5,5) returned %v, want nil", d)
	}
	if d := s.Add(5, 3); d != nil {
		t.Fatalf("Add(5,3) returned %v, want nil", d)
	}
}

// TestRefinePromotesNearbyCandidate exercises the core refinement step:
// a weak HSP near a confident anchor's cobs gets promoted to keeper and
// itself seeds the next round, expanding the scanned region.
func TestRefinePromotesNearbyCandidate(t *testing.T) {
	anchor := hsp.HSP{QStart: 100, TStart: 1000, Length: 20, Score: 40, CobsQ: 110, CobsT: 1010}
	// A candidate that sits inside the anchor's downstream search delta.
	candidate := hsp.HSP{QStart: 140, TStart: 1040, Length: 10, Score: 12, CobsQ: 145, CobsT: 1045}

	calls := 0
	reseed := func(region Span) ([]hsp.HSP, error) {
		calls++
		if region.Start <= int(candidate.TStart) && int(candidate.TStart) < region.End {
			return []hsp.HSP{candidate}, nil
		}
		return nil, nil
	}

	p := Params{MaxQuerySpan: 100, MaxTargetSpan: 100}
	out, err := Refine([]hsp.HSP{anchor}, 5000, p, reseed)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if calls == 0 {
		t.Fatal("Reseeder was never called")
	}

	foundAnchor, foundCandidate := false, false
	for _, h := range out {
		if h.CobsQ == anchor.CobsQ && h.CobsT == anchor.CobsT {
			foundAnchor = true
		}
		if h.CobsQ == candidate.CobsQ && h.CobsT == candidate.CobsT {
			foundCandidate = true
		}
	}
	if !foundAnchor {
		t.Error("original anchor missing from keepers")
	}
	if !foundCandidate {
		t.Error("nearby candidate was not promoted to keeper")
	}
}

// TestRefineTerminatesWithoutNewCandidates checks the loop halts cleanly
// when the reseeder never finds anything, rather than spinning to
// MaxRounds.
func TestRefineTerminatesWithoutNewCandidates(t *testing.T) {
	anchor := hsp.HSP{QStart: 0, TStart: 0, Length: 10, Score: 20, CobsQ: 5, CobsT: 5}
	calls := 0
	reseed := func(region Span) ([]hsp.HSP, error) {
		calls++
		return nil, nil
	}
	out, err := Refine([]hsp.HSP{anchor}, 1000, Params{MaxQuerySpan: 50, MaxTargetSpan: 50}, reseed)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d keepers, want 1 (the original anchor)", len(out))
	}
	if calls != 1 {
		t.Fatalf("reseeder called %d times, want exactly 1 (one round then halt)", calls)
	}
}

// TestSelectAnchorsFiltersBySeedCount exercises the seed_repeat floor.
func TestSelectAnchorsFiltersBySeedCount(t *testing.T) {
	weak := hsp.New(hsp.Params{Scorer: hsp.Scorer{Mode: hsp.DNA2DNA, DNA: matchMismatch}, Threshold: -100, Dropoff: 5})
	weak.SeedHSP(0, 0)

	strong := hsp.New(hsp.Params{Scorer: hsp.Scorer{Mode: hsp.DNA2DNA, DNA: matchMismatch}, Threshold: -100, Dropoff: 5})
	strong.SeedHSP(0, 0)
	strong.SeedHSP(4, 4)
	strong.SeedHSP(8, 8)

	query := []byte("ACGTACGTACGT")
	target := []byte("ACGTACGTACGT")

	out, err := SelectAnchors([]*hsp.HSPSet{weak, strong}, 2, query, target)
	if err != nil {
		t.Fatalf("SelectAnchors: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("SelectAnchors dropped the set meeting the seed_repeat floor")
	}
}

func matchMismatch(a, b byte) int {
	if a == b {
		return 1
	}
	return -1
}
