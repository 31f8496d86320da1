// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package automaton

import (
	"math/bits"

	"github.com/kortschak/seedcore"
)

// VFSM is a dense virtual trie over an alphabet of size n and fixed depth
// k: every one of the n^k possible k-words is a distinct, directly
// addressable leaf state, and non-leaf states are numbered row by row so
// that the whole trie needs no stored transition table (spec.md §4.C).
// Grounded on struct/vfsm.c's row-arithmetic encoding.
type VFSM struct {
	codeOf       [256]int8 // -1 if symbol not in alphabet, else 0-based code
	letters      []byte    // alphabet letters, index == code
	alphabetSize int
	depth        int

	prs uint64 // penultimate row start
	prw uint64 // penultimate row width (== alphabetSize^(depth-1))
	lrs uint64 // last row start (first leaf state)
	lrw uint64 // last row width (== alphabetSize^depth, leaf count)

	isPow2 bool
	log2   uint
}

// newVFSM builds a VFSM over the byte values [0, alphabetSize). It
// fails with WordlenOverflow if alphabetSize^depth would not fit a uint64.
func newVFSM(alphabetSize, depth int) (*VFSM, error) {
	return newVFSMAlphabet(defaultLetters(alphabetSize), depth)
}

// newVFSMAlphabet builds a VFSM over an explicit alphabet (letters, each
// byte distinct) and fixed word depth.
func newVFSMAlphabet(letters []byte, depth int) (*VFSM, error) {
	if depth < 1 {
		return nil, seedcore.Errorf(seedcore.InvalidAlphabet, "automaton: depth must be >= 1")
	}
	n := uint64(len(letters))
	if n == 0 {
		return nil, seedcore.Errorf(seedcore.InvalidAlphabet, "automaton: empty alphabet")
	}

	// Row i (0-indexed, root is row 0) has n^i states. lrs is the start of
	// row `depth` (the leaves); prs is the start of row `depth-1`.
	rowStart := make([]uint64, depth+1)
	rowSize := uint64(1)
	for i := 0; i < depth; i++ {
		rowStart[i+1] = rowStart[i] + rowSize
		next := rowSize * n
		if rowSize != 0 && next/n != rowSize {
			return nil, seedcore.Errorf(seedcore.WordlenOverflow, "automaton: alphabet %d ^ depth %d overflows uint64", n, depth)
		}
		rowSize = next
	}
	lrs := rowStart[depth]
	lrw := rowSize
	var prs, prw uint64
	if depth == 0 {
		prs, prw = 0, 1
	} else {
		prs = rowStart[depth-1]
		prw = lrs - prs
	}
	if lrs+lrw < lrs { // overflow check for total state count
		return nil, seedcore.Errorf(seedcore.WordlenOverflow, "automaton: state space overflows uint64")
	}

	v := &VFSM{
		letters:      append([]byte(nil), letters...),
		alphabetSize: len(letters),
		depth:        depth,
		prs:          prs,
		prw:          prw,
		lrs:          lrs,
		lrw:          lrw,
	}
	for i := range v.codeOf {
		v.codeOf[i] = -1
	}
	for i, c := range letters {
		v.codeOf[c] = int8(i)
	}
	if n&(n-1) == 0 {
		v.isPow2 = true
		v.log2 = uint(bits.TrailingZeros64(n))
	}
	return v, nil
}

func defaultLetters(alphabetSize int) []byte {
	letters := make([]byte, alphabetSize)
	for i := range letters {
		letters[i] = byte(i)
	}
	return letters
}

// Depth returns k, the fixed word length.
func (v *VFSM) Depth() int { return v.depth }

func (v *VFSM) isLeaf(state uint64) bool { return state >= v.lrs }

// Advance implements VFSM_change_state / VFSM_change_state_POW2: leaves
// first shift to the longest non-leaf suffix state, then descend by the
// new symbol; an unrecognised symbol resets to the root.
func (v *VFSM) Advance(state uint64, sym byte) uint64 {
	code := v.codeOf[sym]
	if code < 0 {
		return 0
	}
	if v.isLeaf(state) {
		if v.isPow2 {
			state = v.prs + ((state - v.lrs) & (v.prw - 1))
		} else {
			state = v.prs + (state-v.lrs)%v.prw
		}
	}
	if v.isPow2 {
		return (state << v.log2) + 1 + uint64(code)
	}
	return state*uint64(v.alphabetSize) + 1 + uint64(code)
}

// IsAccepting reports whether state is one of the n^depth leaves.
func (v *VFSM) IsAccepting(state uint64) bool { return v.isLeaf(state) }

// WordToState returns the leaf state for a depth-length word, by
// positional-numeral encoding (VFSM_word2state).
func (v *VFSM) WordToState(word []byte) (state uint64, ok bool) {
	if len(word) != v.depth {
		return 0, false
	}
	var pos uint64
	for _, b := range word {
		code := v.codeOf[b]
		if code < 0 {
			return 0, false
		}
		pos = pos*uint64(v.alphabetSize) + uint64(code)
	}
	return v.lrs + pos, true
}

// Word implements the Automaton contract's state→word inverse
// (VFSM_state2word): extract base-alphabetSize digits from the leaf offset,
// most-significant first.
func (v *VFSM) Word(state uint64) (word []byte, ok bool) {
	if !v.isLeaf(state) {
		return nil, false
	}
	pos := state - v.lrs
	word = make([]byte, v.depth)
	for i := v.depth - 1; i >= 0; i-- {
		word[i] = v.letters[pos%uint64(v.alphabetSize)]
		pos /= uint64(v.alphabetSize)
	}
	return word, true
}
