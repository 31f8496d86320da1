// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wordindex

import (
	"math"
	"sort"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/alphabet"
	"github.com/kortschak/seedcore/automaton"
	"github.com/kortschak/seedcore/bitpack"
	"github.com/kortschak/seedcore/dataset"
)

// sequenceSource is the slice of the Dataset API Build needs: enough to
// scan every sequence twice without pulling in the whole package surface.
type sequenceSource interface {
	Sequences() []dataset.Sequence
	Fetch(id string) ([]byte, error)
}

// builtStrand is one complete, in-memory IndexStrand ready to be
// serialized: the surveyed word list plus its packed occurrence bits.
type builtStrand struct {
	maxIndexLength   uint64
	wordListLength   uint64
	totalIndexLength uint64
	words            []wordEntry
	occBits          *bitpack.Writer
	numSeqsWidth     uint8
	maxSeqLenWidth   uint8
}

// buildStrand runs the two-pass construction (spec.md §4.D) over every
// sequence's frames (forward or reverse-complement, depending on which
// frame generator the caller supplies), producing one complete strand.
func buildStrand(ds sequenceSource, p Params, framesOf func([]byte, Params) []frame) (*builtStrand, error) {
	seqs := ds.Sequences()
	numSeqsWidth := bitpack.Width(uint64(len(seqs)))
	var maxSeqLen uint64
	for _, s := range seqs {
		if uint64(s.Length) > maxSeqLen {
			maxSeqLen = uint64(s.Length)
		}
	}
	maxSeqLenWidth := bitpack.Width(maxSeqLen)

	// Pass 1: counting. The scanned alphabet is DNA for an untranslated
	// index, protein for a translated one: frames never mix the two, so
	// one Alphabet serves the whole pass (spec.md §4.C's ambiguity
	// expansion is defined per input alphabet, not per symbol).
	alph := scanAlphabet(p)
	counts := make(map[uint64]int64)
	var totalKmers int64
	jump := p.WordJump
	if jump < 1 {
		jump = 1
	}
	walker := automaton.NewAmbiguityWalker(p.Auto, ambiguityBudget(p))
	for _, s := range seqs {
		raw, err := ds.Fetch(s.ID)
		if err != nil {
			return nil, err
		}
		for _, fr := range framesOf(raw, p) {
			walker.Reset()
			for i := 0; i < len(fr.symbols); i += jump {
				for j := 0; j < jump && i+j < len(fr.symbols); j++ {
					sym := fr.symbols[i+j]
					exp := expand(alph, sym)
					walker.Step(exp, func(state uint64) {
						counts[state]++
						totalKmers++
					})
				}
			}
		}
	}

	// Desaturation, skipped when SaturateThreshold <= 0.
	if p.SaturateThreshold > 0 {
		possible := math.Pow(float64(p.AlphabetSize), float64(p.Auto.Depth()))
		expected := float64(totalKmers) / possible
		threshold := expected + float64(p.SaturateThreshold)
		for state, c := range counts {
			if float64(c) > threshold {
				delete(counts, state)
			}
		}
	}

	// Survey: build the sorted word list and bit widths.
	words := make([]wordEntry, 0, len(counts))
	var maxIndexLength uint64
	for state, c := range counts {
		words = append(words, wordEntry{state: state, freq: c})
		if uint64(c) > maxIndexLength {
			maxIndexLength = uint64(c)
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].state < words[j].state })

	recordWidth := int(numSeqsWidth) + int(maxSeqLenWidth)
	intervals, err := splitIntervals(words, recordWidth, p.MemoryLimit)
	if err != nil {
		return nil, err
	}

	// Offset assignment: running occurrence-record offset by ascending
	// word state id.
	var running uint64
	for i := range words {
		words[i].offset = running
		running += uint64(words[i].freq)
	}
	totalIndexLength := running

	occBits := bitpack.NewWriter(totalIndexLength * uint64(recordWidth))
	// Pre-size the output in record-order; each interval's pass fills its
	// own words' buffers then appends to occBits in ascending word order so
	// offsets computed above stay correct regardless of interval split.
	for _, iv := range intervals {
		lo, hi := iv[0], iv[1]
		if hi == lo {
			continue
		}
		buffers := make(map[uint64][]occurrence, hi-lo)
		for _, w := range words[lo:hi] {
			buffers[w.state] = make([]occurrence, 0, w.freq)
		}
		loState, hiState := words[lo].state, words[hi-1].state
		depth := p.Auto.Depth()

		for seqIdx, s := range seqs {
			raw, err := ds.Fetch(s.ID)
			if err != nil {
				return nil, err
			}
			for _, fr := range framesOf(raw, p) {
				iwalker := automaton.NewAmbiguityWalker(p.Auto, ambiguityBudget(p))
				for i := 0; i < len(fr.symbols); i += jump {
					for j := 0; j < jump && i+j < len(fr.symbols); j++ {
						pos := i + j
						sym := fr.symbols[pos]
						exp := expand(alph, sym)
						iwalker.Step(exp, func(state uint64) {
							if state < loState || state > hiState {
								return
							}
							buf, ok := buffers[state]
							if !ok {
								return
							}
							// pos is the scan index of the word's last symbol;
							// occurrence positions are recorded at the word's
							// start, matching seeder.ToPos's wordEnd-depth+1
							// convention for the same automaton walk.
							buffers[state] = append(buf, occurrence{seq: uint64(seqIdx), pos: fr.toSeqPos(pos - depth + 1)})
						})
					}
				}
			}
		}

		for _, w := range words[lo:hi] {
			occs := buffers[w.state]
			if p.Translate != nil {
				sort.Slice(occs, func(i, j int) bool {
					if occs[i].seq != occs[j].seq {
						return occs[i].seq < occs[j].seq
					}
					return occs[i].pos < occs[j].pos
				})
			}
			for _, o := range occs {
				occBits.Append(o.seq, numSeqsWidth)
				occBits.Append(o.pos, maxSeqLenWidth)
			}
		}
	}

	return &builtStrand{
		maxIndexLength:   maxIndexLength,
		wordListLength:   uint64(len(words)),
		totalIndexLength: totalIndexLength,
		words:            words,
		occBits:          occBits,
		numSeqsWidth:     numSeqsWidth,
		maxSeqLenWidth:   maxSeqLenWidth,
	}, nil
}

// ambiguityBudget derives the AmbiguityWalker budget from Params,
// disabling ambiguity expansion entirely (budget 1) when WordAmbiguity is
// unset.
func ambiguityBudget(p Params) int {
	if p.WordAmbiguity < 1 {
		return 1
	}
	return p.WordAmbiguity
}

// scanAlphabet is the alphabet a strand's frames are drawn from: protein
// once translated (amino acid frames), else whatever alphabet the dataset
// itself holds. A single buildStrand call never mixes the two, so the
// choice is made once per strand rather than per symbol.
func scanAlphabet(p Params) alphabet.Alphabet {
	if p.Translate != nil {
		return alphabet.Protein
	}
	if p.Kind == alphabet.ProteinKind {
		return alphabet.Protein
	}
	return alphabet.DNA
}

// expand returns the canonical substitution symbols sym's ambiguity code
// implies under alph (a single-element slice for an unambiguous symbol),
// spec.md §4.C's "for each substitution symbol implied by the input IUPAC
// base".
func expand(alph alphabet.Alphabet, sym byte) []byte {
	if set := alph.Expand(sym); set != nil {
		return set
	}
	return []byte{alphabet.Unmask(sym)}
}

// splitIntervals partitions words (sorted by state) into contiguous
// ranges whose estimated occurrence-buffer footprint fits within
// memLimit bytes (spec.md §4.D's reporting-pass memory bound). memLimit
// <= 0 means unbounded: a single interval covering every word.
func splitIntervals(words []wordEntry, recordWidthBits int, memLimit int64) ([][2]int, error) {
	if len(words) == 0 {
		return [][2]int{{0, 0}}, nil
	}
	if memLimit <= 0 {
		return [][2]int{{0, len(words)}}, nil
	}
	var intervals [][2]int
	start := 0
	var bitsAcc int64
	for i, w := range words {
		wordBits := w.freq * int64(recordWidthBits)
		if wordBits/8 > memLimit {
			return nil, seedcore.Errorf(seedcore.MemoryBudget, "word state %d alone (%d occurrences) exceeds memory budget", w.state, w.freq)
		}
		if i > start && (bitsAcc+wordBits)/8 > memLimit {
			intervals = append(intervals, [2]int{start, i})
			start = i
			bitsAcc = 0
		}
		bitsAcc += wordBits
	}
	intervals = append(intervals, [2]int{start, len(words)})
	return intervals, nil
}

// Build constructs a full Index (forward strand, and a reverse-complement
// strand when Params.Translate is set) from ds. dsPath is recorded in the
// index header so a Reader opening it later can locate the dataset it was
// built over (spec.md §6).
func Build(ds *dataset.Dataset, dsPath string, p Params) (*Index, error) {
	if p.Auto == nil {
		return nil, seedcore.Errorf(seedcore.InvalidAlphabet, "wordindex: Params.Auto is required")
	}
	p.Kind = ds.Kind()
	fwd, err := buildStrand(ds, p, framesFor)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		params:  p,
		dsPath:  dsPath,
		forward: fwd,
	}
	if p.Translate != nil {
		rev, err := buildStrand(ds, p, reverseFramesFor)
		if err != nil {
			return nil, err
		}
		idx.reverse = rev
	}
	return idx, nil
}
