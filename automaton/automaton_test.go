// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package automaton

import (
	"bytes"
	"testing"
)

func TestVFSMWordRoundTrip(t *testing.T) {
	v, err := newVFSMAlphabet([]byte("ACGT"), 4)
	if err != nil {
		t.Fatal(err)
	}
	words := [][]byte{
		[]byte("AAAA"), []byte("ACGT"), []byte("TTTT"), []byte("GTCA"),
	}
	for _, w := range words {
		state, ok := v.WordToState(w)
		if !ok {
			t.Fatalf("WordToState(%s): not ok", w)
		}
		if !v.IsAccepting(state) {
			t.Fatalf("state for %s not accepting", w)
		}
		got, ok := v.Word(state)
		if !ok || !bytes.Equal(got, w) {
			t.Fatalf("Word(%d) = %q, %v, want %q", state, got, ok, w)
		}
	}
}

func TestVFSMAdvanceEmitsWordAtEveryWindow(t *testing.T) {
	v, err := newVFSMAlphabet([]byte("ACGT"), 3)
	if err != nil {
		t.Fatal(err)
	}
	seq := "ACGTAC"
	var state uint64
	var seen []string
	for i := 0; i < len(seq); i++ {
		state = v.Advance(state, seq[i])
		if v.IsAccepting(state) {
			w, ok := v.Word(state)
			if !ok {
				t.Fatal("accepting state has no word")
			}
			seen = append(seen, string(w))
		}
	}
	want := []string{"ACG", "CGT", "GTA", "TAC"}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("window %d: got %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestVFSMInvalidSymbolResets(t *testing.T) {
	v, err := newVFSMAlphabet([]byte("ACGT"), 3)
	if err != nil {
		t.Fatal(err)
	}
	state := v.Advance(0, 'A')
	state = v.Advance(state, 'C')
	state = v.Advance(state, 'N') // not in alphabet
	if state != 0 {
		t.Fatalf("invalid symbol should reset to root, got %d", state)
	}
}

func TestVFSMPowerOfTwoFastPathSelected(t *testing.T) {
	pow2, err := newVFSMAlphabet([]byte("ACGT"), 5) // alphabet size 4, power of two
	if err != nil {
		t.Fatal(err)
	}
	nonPow2, err := newVFSMAlphabet([]byte("ACG"), 5) // alphabet size 3
	if err != nil {
		t.Fatal(err)
	}
	if !pow2.isPow2 {
		t.Fatal("expected power-of-two fast path for alphabet size 4")
	}
	if nonPow2.isPow2 {
		t.Fatal("alphabet size 3 should not take the power-of-two path")
	}
}

func TestNewWordlenOverflow(t *testing.T) {
	_, err := New(256, 32) // 256^32 vastly exceeds uint64
	if err == nil {
		t.Fatal("expected WordlenOverflow")
	}
}

func TestCFSMMatchesInsertedWords(t *testing.T) {
	c := NewCompressed(3)
	words := [][]byte{[]byte("ACG"), []byte("CGT"), []byte("TAA")}
	for _, w := range words {
		c.Insert(w)
	}
	c.Build()

	seq := "ACGTAA"
	var state uint64
	var found []string
	for i := 0; i < len(seq); i++ {
		state = c.Advance(state, seq[i])
		if c.IsAccepting(state) {
			w, _ := c.Word(state)
			found = append(found, string(w))
		}
	}
	want := map[string]bool{"ACG": true, "CGT": true, "TAA": true}
	if len(found) != len(want) {
		t.Fatalf("found %v, want one of each of %v", found, want)
	}
	for _, f := range found {
		if !want[f] {
			t.Errorf("unexpected match %s", f)
		}
	}
}

func TestAmbiguityWalkerFindsUnambiguousMatch(t *testing.T) {
	v, err := newVFSMAlphabet([]byte("ACGT"), 3)
	if err != nil {
		t.Fatal(err)
	}
	w := NewAmbiguityWalker(v, 8)
	var hits int
	for _, b := range []byte("ACGT") {
		w.Step([]byte{b}, func(state uint64) { hits++ })
	}
	if hits != 2 { // ACG and CGT
		t.Fatalf("hits = %d, want 2", hits)
	}
}

func TestAmbiguityWalkerExpandsAndResetsOnBudget(t *testing.T) {
	v, err := newVFSMAlphabet([]byte("ACGT"), 3)
	if err != nil {
		t.Fatal(err)
	}
	w := NewAmbiguityWalker(v, 2)
	// R expands to {A,G}; with only one live state this fits the budget.
	w.Step([]byte{'A', 'G'}, func(uint64) {})
	if len(w.states) == 0 {
		t.Fatal("expected live states after first ambiguous step")
	}
	// Now branching 2 live states by 2 symbols exceeds budget 2, so the
	// walker must reset to the root rather than track 4 states.
	w.Step([]byte{'A', 'G'}, func(uint64) {})
	if len(w.states) != 1 || w.states[0] != 0 {
		t.Fatalf("expected reset to root, got %v", w.states)
	}
}

func TestCFSMUnmatchedSequenceStaysAtRoot(t *testing.T) {
	c := NewCompressed(3)
	c.Insert([]byte("ACG"))
	c.Build()

	var state uint64
	for _, b := range []byte("TTTTTT") {
		state = c.Advance(state, b)
		if c.IsAccepting(state) {
			t.Fatalf("unexpected accept on non-matching sequence at state %d", state)
		}
	}
}
