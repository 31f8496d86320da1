// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hsp

import (
	"errors"
	"testing"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/submat"
)

// These two sequences and their seeds are the DNA2DNA fixture from
// comparison/hspset.test.c, one query gapless except for scattered
// mismatches against its target.
const (
	ntQuery  = "AAAAGTGAGAGAGAGAGAGAGGCGAAAAAAAAAACCCCCCCCCCACCCCGCGA"
	ntTarget = "TTTTGTGAGAGTGTGAGAGAGGCGTTTTTTTTTTCCCCCCCCCCTCCCCGCCT"
)

func TestDNA2DNAExtendsAcrossMismatches(t *testing.T) {
	sc := Scorer{Mode: DNA2DNA, DNA: submat.Nucleic(1, -1).Score}
	h := New(Params{Scorer: sc, Threshold: 3, Dropoff: 5})
	if err := h.SeedHSP(8, 8); err != nil {
		t.Fatalf("SeedHSP: %v", err)
	}
	if err := h.SeedHSP(36, 36); err != nil {
		t.Fatalf("SeedHSP: %v", err)
	}

	hsps, err := h.Finalise([]byte(ntQuery), []byte(ntTarget))
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	if len(hsps) == 0 {
		t.Fatal("no HSPs emitted for a seed on a long near-identical run")
	}
	for _, hp := range hsps {
		if hp.Score < 3 {
			t.Errorf("HSP %+v scored below threshold", hp)
		}
		if hp.CobsQ < hp.QStart || hp.CobsQ >= hp.QStart+hp.Length {
			t.Errorf("HSP %+v: CobsQ outside its own span", hp)
		}
	}
}

func TestFinaliseIsIdempotent(t *testing.T) {
	sc := Scorer{Mode: DNA2DNA, DNA: submat.Nucleic(1, -1).Score}
	h := New(Params{Scorer: sc, Threshold: 3, Dropoff: 5})
	h.SeedHSP(8, 8)

	first, err := h.Finalise([]byte(ntQuery), []byte(ntTarget))
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	second, err := h.Finalise([]byte(ntQuery), []byte(ntTarget))
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("Finalise not idempotent: %d HSPs then %d", len(first), len(second))
	}
}

func TestSeedAfterFinaliseErrors(t *testing.T) {
	sc := Scorer{Mode: DNA2DNA, DNA: submat.Nucleic(1, -1).Score}
	h := New(Params{Scorer: sc, Threshold: 1, Dropoff: 2})
	h.SeedHSP(0, 0)
	if _, err := h.Finalise([]byte("ACGT"), []byte("ACGT")); err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	err := h.SeedHSP(1, 1)
	if err == nil {
		t.Fatal("SeedHSP after Finalise did not error")
	}
	var serr *seedcore.Error
	if !errors.As(err, &serr) || serr.Kind != seedcore.AfterPrepare {
		t.Fatalf("SeedHSP after Finalise error = %v, want Kind=AfterPrepare", err)
	}
}

func TestThresholdDiscardsWeakSeed(t *testing.T) {
	sc := Scorer{Mode: DNA2DNA, DNA: submat.Nucleic(1, -1).Score}
	// "ACGT" vs "TGCA" mismatches at every position: no extension can
	// reach a positive score.
	h := New(Params{Scorer: sc, Threshold: 1, Dropoff: 0})
	h.SeedHSP(0, 0)
	hsps, err := h.Finalise([]byte("ACGT"), []byte("TGCA"))
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	if len(hsps) != 0 {
		t.Fatalf("got %d HSPs from an all-mismatch seed, want 0", len(hsps))
	}
}

func TestDiagonalDedupMergesOverlaps(t *testing.T) {
	sc := Scorer{Mode: DNA2DNA, DNA: submat.Nucleic(1, -1).Score}
	h := New(Params{Scorer: sc, Threshold: 1, Dropoff: 10})
	query := "ACGTACGTACGTACGTACGT"
	target := "ACGTACGTACGTACGTACGT"
	// Two seeds on the same diagonal (qpos - tpos == 0), one a few bases
	// into the other's extension span.
	h.SeedHSP(2, 2)
	h.SeedHSP(10, 10)
	hsps, err := h.Finalise([]byte(query), []byte(target))
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	if len(hsps) != 1 {
		t.Fatalf("got %d HSPs for two overlapping same-diagonal seeds, want 1", len(hsps))
	}
}

func TestProtein2DNASeed(t *testing.T) {
	query := "PNKDEGSCPIECDFLCRHQYISDP"
	target := "ACGTACGTACGTACGAGTGCGTGCCCCCTTNNNTGTGACTACATCTGCAAAACGTACGTACGT"
	sc := Scorer{
		Mode:      Protein2DNA,
		Protein:   submat.Blosum62Like.Score,
		Translate: submat.StandardCode,
	}
	h := New(Params{Scorer: sc, Threshold: -1000, Dropoff: 20})
	if err := h.SeedHSP(8, 24); err != nil {
		t.Fatalf("SeedHSP: %v", err)
	}
	hsps, err := h.Finalise([]byte(query), []byte(target))
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	if len(hsps) == 0 {
		t.Fatal("no HSP emitted for protein-vs-DNA seed")
	}
	hp := hsps[0]
	if int(hp.TStart)%1 != 0 {
		t.Fatalf("unexpected target start %d", hp.TStart)
	}
	if hp.TStart+hp.Length*3 > uint64(len(target)) {
		t.Fatalf("HSP target span %d..%d runs past target length %d", hp.TStart, hp.TStart+hp.Length*3, len(target))
	}
}

func TestEmptySet(t *testing.T) {
	sc := Scorer{Mode: DNA2DNA, DNA: submat.Nucleic(1, -1).Score}
	h := New(Params{Scorer: sc, Threshold: 1, Dropoff: 1})
	if !h.Empty() {
		t.Fatal("new HSPSet is not empty")
	}
	hsps, err := h.Finalise([]byte("ACGT"), []byte("ACGT"))
	if err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	if len(hsps) != 0 {
		t.Fatalf("got %d HSPs from an unseeded set, want 0", len(hsps))
	}
}
