// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wordindex implements the disk-resident inverted word index: a
// two-pass, memory-bounded builder (spec.md §4.D) and a random-access
// reader (spec.md §4.E) mapping fixed-length words to sorted
// (sequence_id, position) occurrence lists.
package wordindex

import (
	"github.com/kortschak/seedcore/alphabet"
	"github.com/kortschak/seedcore/automaton"
	"github.com/kortschak/seedcore/submat"
)

const (
	magic   = "esi"
	version = uint64(3)

	flagTranslated = uint64(1) << 0
)

// Params configures an index build: the automaton driving word
// recognition, whether DNA is translated to protein before indexing, and
// the thresholds controlling desaturation and memory use.
type Params struct {
	// Auto recognises words of the fixed length the index is built over.
	// Typically an *automaton.VFSM from automaton.NewAlphabet.
	Auto automaton.Automaton
	// AlphabetSize is |Σ| for the alphabet Auto was built over; used to
	// compute the statistical desaturation threshold.
	AlphabetSize int
	// Kind is the alphabet untranslated frames are drawn from: the
	// dataset's own residue alphabet. Ignored when Translate is set, since
	// translated frames are always amino acids.
	Kind alphabet.Kind
	// Translate, when set, translates DNA to protein (via Translate) in
	// three frames before indexing, and additionally builds a
	// reverse-complement strand (spec.md §3's IndexStrand invariant).
	Translate submat.TranslateFunc
	// WordJump skips this many symbols between successive scan windows
	// (1 means every position).
	WordJump int
	// WordAmbiguity bounds concurrently-tracked ambiguity-expansion states
	// (automaton.AmbiguityWalker's budget); 1 disables ambiguity expansion.
	WordAmbiguity int
	// SaturateThreshold is desaturation's additive slack over the
	// statistically expected word frequency. <= 0 disables desaturation.
	SaturateThreshold int64
	// MemoryLimit bounds the working set of any single reporting-pass
	// interval, in bytes. <= 0 means unbounded (single interval).
	MemoryLimit int64
}

// occurrence is one (sequence, position) hit, recorded in sequence-order
// (the dataset's id-sorted index) and sequence-relative position.
type occurrence struct {
	seq uint64
	pos uint64
}

// wordEntry is one present word's survey record: its automaton state
// (spec.md's IndexEntry key), observed frequency, and assigned running
// offset (in occurrence records) into the strand's occurrence region.
type wordEntry struct {
	state  uint64
	freq   int64
	offset uint64
}
