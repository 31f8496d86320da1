// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package automaton

// AmbiguityWalker drives an Automaton across a batch of concurrently-live
// states for IUPAC-ambiguous input, implementing spec.md §4.C's traversal:
// at each position, every live state branches over every substitution
// symbol the input's ambiguity code implies; the resulting batch is
// deduplicated only against its own head and tail (a deliberately
// approximate, non-exhaustive dedup — spec.md §9's "open question"), and
// reset to the root state alone if the branching factor would exceed the
// configured ambiguity budget.
type AmbiguityWalker struct {
	a      Automaton
	budget int
	states []uint64
}

// NewAmbiguityWalker returns a walker starting at the root state, willing
// to track up to budget concurrently-live states before resetting.
func NewAmbiguityWalker(a Automaton, budget int) *AmbiguityWalker {
	if budget < 1 {
		budget = 1
	}
	return &AmbiguityWalker{a: a, budget: budget, states: []uint64{0}}
}

// Reset discards all live states, returning the walker to just the root.
func (w *AmbiguityWalker) Reset() { w.states = []uint64{0} }

// Step advances every live state by every symbol in expansions (the
// canonical substitutions an ambiguous input base implies; a single-byte
// slice for an unambiguous base), invoking visit for every state that
// becomes accepting as a result.
func (w *AmbiguityWalker) Step(expansions []byte, visit func(state uint64)) {
	if len(w.states)*len(expansions) > w.budget {
		w.Reset()
		return
	}
	next := make([]uint64, 0, len(w.states)*len(expansions))
	for _, s := range w.states {
		for _, sym := range expansions {
			ns := w.a.Advance(s, sym)
			next = append(next, ns)
			if w.a.IsAccepting(ns) {
				visit(ns)
			}
		}
	}
	w.states = dedupHeadTail(next)
}

// dedupHeadTail drops entries equal to the batch's current head or tail,
// the cheap approximate dedup spec.md §4.C and §9 call for in place of an
// exhaustive set.
func dedupHeadTail(states []uint64) []uint64 {
	if len(states) <= 1 {
		return states
	}
	out := states[:1:1]
	head, tail := states[0], states[0]
	for _, s := range states[1:] {
		if s == head || s == tail {
			continue
		}
		out = append(out, s)
		tail = s
	}
	return out
}
