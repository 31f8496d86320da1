// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package seeder

import (
	"testing"

	"github.com/kortschak/seedcore/automaton"
	"github.com/kortschak/seedcore/hsp"
	"github.com/kortschak/seedcore/neighborhood"
	"github.com/kortschak/seedcore/submat"
)

func dnaScorer() hsp.Scorer {
	return hsp.Scorer{Mode: hsp.DNA2DNA, DNA: submat.Nucleic(2, -1).Score}
}

func newAuto(t *testing.T, depth int) *automaton.VFSM {
	t.Helper()
	auto, err := automaton.NewAlphabet([]byte("ACGT"), depth)
	if err != nil {
		t.Fatalf("automaton.NewAlphabet: %v", err)
	}
	return auto
}

func TestAddQueryThenAddTargetFindsExactHit(t *testing.T) {
	depth := 4
	auto := newAuto(t, depth)
	s := New(Params{
		Auto:         auto,
		Scorer:       dnaScorer(),
		HSPThreshold: 4,
		HSPDropoff:   5,
	})

	query := []byte("ACGTACGTACGT")
	if _, err := s.AddQuery(query, IdentityPos(depth)); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	if err := s.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	target := []byte("TTTTACGTACGTACGTTTTT")
	var reported []hsp.HSP
	err := s.AddTarget(target, IdentityPos(depth), func(qidx int, hits []hsp.HSP) error {
		if qidx != 0 {
			t.Errorf("unexpected query index %d", qidx)
		}
		reported = append(reported, hits...)
		return nil
	})
	if err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	if len(reported) == 0 {
		t.Fatal("AddTarget reported no HSPs for an exact repeated match")
	}
}

func TestAddQueryAfterPrepareErrors(t *testing.T) {
	auto := newAuto(t, 4)
	s := New(Params{Auto: auto, Scorer: dnaScorer(), HSPThreshold: 1, HSPDropoff: 5})
	if err := s.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := s.AddQuery([]byte("ACGTACGT"), IdentityPos(4)); err == nil {
		t.Fatal("AddQuery after Prepare succeeded, want an error")
	}
}

func TestAddTargetBeforePrepareErrors(t *testing.T) {
	auto := newAuto(t, 4)
	s := New(Params{Auto: auto, Scorer: dnaScorer(), HSPThreshold: 1, HSPDropoff: 5})
	if _, err := s.AddQuery([]byte("ACGTACGT"), IdentityPos(4)); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	err := s.AddTarget([]byte("ACGTACGT"), IdentityPos(4), func(int, []hsp.HSP) error { return nil })
	if err == nil {
		t.Fatal("AddTarget before Prepare succeeded, want an error")
	}
}

// TestQueryExpectBlocksSaturatedWord exercises the query-load-time
// mailbox: a word occurring more than QueryExpect times in the loaded
// query set is permanently blocked, so it never contributes a seed even
// though the target repeats it too.
func TestQueryExpectBlocksSaturatedWord(t *testing.T) {
	depth := 4
	auto := newAuto(t, depth)
	s := New(Params{
		Auto:         auto,
		Scorer:       dnaScorer(),
		HSPThreshold: -100,
		HSPDropoff:   5,
		QueryExpect:  1,
	})

	// "AAAA" occurs 9 times in this query, exceeding QueryExpect=1.
	query := []byte("AAAAAAAAAAAA")
	if _, err := s.AddQuery(query, IdentityPos(depth)); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	if err := s.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	var calls int
	target := []byte("AAAAAAAAAAAA")
	err := s.AddTarget(target, IdentityPos(depth), func(int, []hsp.HSP) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	if calls != 0 {
		t.Fatalf("report called %d times, want 0 (word should be blocked by QueryExpect)", calls)
	}
}

// TestTargetExpectResetsPerTarget checks the target-scan mailbox blocks
// a saturated word only within the target it saturated in, not across
// targets.
func TestTargetExpectResetsPerTarget(t *testing.T) {
	depth := 4
	auto := newAuto(t, depth)
	s := New(Params{
		Auto:         auto,
		Scorer:       dnaScorer(),
		HSPThreshold: -100,
		HSPDropoff:   5,
		TargetExpect: 1,
	})

	if _, err := s.AddQuery([]byte("AAAA"), IdentityPos(depth)); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	if err := s.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	// First target: "AAAA" occurs five times; every occurrence after the
	// first saturates.
	var firstCalls int
	err := s.AddTarget([]byte("AAAAAAAA"), IdentityPos(depth), func(int, []hsp.HSP) error {
		firstCalls++
		return nil
	})
	if err != nil {
		t.Fatalf("AddTarget (first): %v", err)
	}

	// Second target: fresh mailbox, a single occurrence should still seed.
	var secondCalls int
	err = s.AddTarget([]byte("TTTTAAAATTTT"), IdentityPos(depth), func(int, []hsp.HSP) error {
		secondCalls++
		return nil
	})
	if err != nil {
		t.Fatalf("AddTarget (second): %v", err)
	}
	if secondCalls == 0 {
		t.Fatal("word blocked in the second target, want the mailbox to have reset")
	}
}

// TestNeighbourhoodLinksApproximateMatch verifies that a target word one
// substitution away from the loaded query word still seeds a hit, via
// the neighbor-link mechanism.
func TestNeighbourhoodLinksApproximateMatch(t *testing.T) {
	depth := 4
	auto := newAuto(t, depth)
	nh := neighborhood.FromScoreFunc([]byte("ACGT"), submat.Nucleic(2, -1).Score)
	s := New(Params{
		Auto:               auto,
		Neighbourhood:      &nh,
		NeighbourThreshold: 4, // one mismatch: score 3*2-1=5 >= 4
		Scorer:             dnaScorer(),
		HSPThreshold:       -100,
		HSPDropoff:         5,
	})

	if _, err := s.AddQuery([]byte("ACGTACGT"), IdentityPos(depth)); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	if err := s.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	// "ACGA" is one substitution away from query word "ACGT".
	target := []byte("TTTTACGATTTT")
	var calls int
	err := s.AddTarget(target, IdentityPos(depth), func(int, []hsp.HSP) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	if calls == 0 {
		t.Fatal("approximate target word via neighbor link produced no report")
	}
}

func TestCloseReleasesWords(t *testing.T) {
	auto := newAuto(t, 4)
	s := New(Params{Auto: auto, Scorer: dnaScorer(), HSPThreshold: 1, HSPDropoff: 5})
	if _, err := s.AddQuery([]byte("ACGTACGT"), IdentityPos(4)); err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	s.Close()
	if len(s.words) != 0 {
		t.Fatalf("words map has %d entries after Close, want 0", len(s.words))
	}
	if s.st != stateDone {
		t.Fatalf("state after Close = %v, want stateDone", s.st)
	}
}

// TestReuseAfterCloseRecyclesWordInfo checks that a Seeder accepts a new
// AddQuery after Close, drawing its word-info records from the free list
// Close populated, and still produces correct hits for the new query.
func TestReuseAfterCloseRecyclesWordInfo(t *testing.T) {
	depth := 4
	auto := newAuto(t, depth)
	s := New(Params{
		Auto:         auto,
		Scorer:       dnaScorer(),
		HSPThreshold: 4,
		HSPDropoff:   5,
	})

	if _, err := s.AddQuery([]byte("ACGTACGTACGT"), IdentityPos(depth)); err != nil {
		t.Fatalf("AddQuery (first): %v", err)
	}
	if err := s.Prepare(); err != nil {
		t.Fatalf("Prepare (first): %v", err)
	}
	if err := s.AddTarget([]byte("ACGTACGTACGT"), IdentityPos(depth), func(int, []hsp.HSP) error { return nil }); err != nil {
		t.Fatalf("AddTarget (first): %v", err)
	}
	s.Close()
	if n := len(s.freeWordInfo); n == 0 {
		t.Fatal("Close left no word-info records on the free list")
	}

	if _, err := s.AddQuery([]byte("TTTTTTTTTTTT"), IdentityPos(depth)); err != nil {
		t.Fatalf("AddQuery (second): %v", err)
	}
	if err := s.Prepare(); err != nil {
		t.Fatalf("Prepare (second): %v", err)
	}

	var reported []hsp.HSP
	err := s.AddTarget([]byte("TTTTTTTTTTTT"), IdentityPos(depth), func(qidx int, hits []hsp.HSP) error {
		reported = append(reported, hits...)
		return nil
	})
	if err != nil {
		t.Fatalf("AddTarget (second): %v", err)
	}
	if len(reported) == 0 {
		t.Fatal("reused Seeder reported no HSPs for the second query")
	}
}
