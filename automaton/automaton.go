// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package automaton implements the word-scanning finite-state machine at
// the heart of index building and target scanning: a dense virtual trie
// (VFSM) over small alphabet×depth products, and a transition-compressed
// FSM (CFSM) for the cases a dense trie would overflow or the word set is
// sparse (spec.md §4.C). Both implement the Automaton interface.
package automaton

// Automaton is the unified scan contract shared by VFSM and CFSM.
type Automaton interface {
	// Advance moves from state on input symbol sym, returning the new
	// state. An unrecognised symbol resets to the root state (state 0);
	// this is a silent data decision, never an error (spec.md §7).
	Advance(state uint64, sym byte) uint64
	// IsAccepting reports whether state is a leaf: a full k-length word has
	// just been read.
	IsAccepting(state uint64) bool
	// Word returns the k-length word spelled by an accepting state. ok is
	// false if state is not accepting.
	Word(state uint64) (word []byte, ok bool)
	// Depth is the fixed word length k this automaton recognises.
	Depth() int
}

// New returns a VFSM for the given alphabet size and depth if the trie
// fits within a uint64 state space, or a WordlenOverflow error if the
// caller should fall back to NewCompressed. The trie is built over the
// symbol codes [0, alphabetSize), not over any particular residue
// alphabet's letters; callers scanning real sequence data want
// NewAlphabet instead.
func New(alphabetSize, depth int) (*VFSM, error) {
	return newVFSM(alphabetSize, depth)
}

// NewAlphabet returns a VFSM over the given explicit alphabet letters
// (e.g. a residue alphabet's canonical symbols), recognising the same
// byte values Advance and WordToState will be called with.
func NewAlphabet(letters []byte, depth int) (*VFSM, error) {
	return newVFSMAlphabet(letters, depth)
}
