// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wordindex

import (
	"github.com/kortschak/seedcore/alphabet"
)

// frame is one scannable symbol stream derived from a sequence: either the
// sequence itself (untranslated indexing) or one of its three
// translated reading frames (translated indexing), paired with the
// function mapping a position in the frame back to a position in the
// original, stored sequence coordinate (spec.md's WordOccurrence.position).
type frame struct {
	symbols []byte
	toSeqPos func(i int) uint64
}

// framesFor returns the scan frames for seq under params: seq itself when
// untranslated, else its three translated reading frames.
func framesFor(seq []byte, p Params) []frame {
	if p.Translate == nil {
		return []frame{{symbols: unmaskAll(seq), toSeqPos: func(i int) uint64 { return uint64(i) }}}
	}
	frames := make([]frame, 3)
	for f := 0; f < 3; f++ {
		frames[f] = translateFrame(seq, f, p.Translate)
	}
	return frames
}

// reverseFramesFor returns the scan frames over the reverse complement of
// seq, positions expressed in reverse-complement coordinates (spec.md §3:
// "reverse-complement strand exists iff index was built translated").
func reverseFramesFor(seq []byte, p Params) []frame {
	rc := alphabet.ReverseComplement(seq)
	return framesFor(rc, p)
}

func unmaskAll(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[i] = alphabet.Unmask(b)
	}
	return out
}

// translateFrame translates seq in reading frame f (0, 1 or 2) into amino
// acids using translate, recording each codon's DNA start offset.
func translateFrame(seq []byte, f int, translate func(a, b, c byte) byte) frame {
	n := (len(seq) - f) / alphabet.CodonLen
	if n < 0 {
		n = 0
	}
	aa := make([]byte, n)
	starts := make([]int, n)
	for i := 0; i < n; i++ {
		off := f + i*alphabet.CodonLen
		starts[i] = off
		a := alphabet.Unmask(seq[off])
		b := alphabet.Unmask(seq[off+1])
		c := alphabet.Unmask(seq[off+2])
		aa[i] = translate(a, b, c)
	}
	return frame{
		symbols: aa,
		toSeqPos: func(i int) uint64 { return uint64(starts[i]) },
	}
}
