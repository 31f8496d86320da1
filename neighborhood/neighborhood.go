// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package neighborhood enumerates a seed word's substitution neighborhood:
// every word of the same length within a substitution-score threshold of
// the seed, by pruned depth-first search over the implicit trie of
// alphabet-letter substitutions at each position (spec.md §4.F). Grounded
// on comparison/wordhood.c's WordHood traversal.
package neighborhood

import "github.com/kortschak/seedcore/submat"

// Alphabet is the output alphabet a neighborhood is enumerated over: the
// set of single-position symbols (letters for nucleotide/protein words,
// codons for codon words) substituted at each advance-wide position.
type Alphabet struct {
	// Advance is the number of input bytes one position spans: 1 for
	// nucleotide or protein words, 3 for codon words.
	Advance int
	// Members lists every substitutable symbol, each Advance bytes long.
	Members [][]byte
	// Score scores one position: a against b, both Advance bytes long.
	Score func(a, b []byte) int
}

// FromScoreFunc builds a single-residue Alphabet (Advance 1) from a
// submat.ScoreFunc and the alphabet's canonical letters.
func FromScoreFunc(letters []byte, score submat.ScoreFunc) Alphabet {
	members := make([][]byte, len(letters))
	for i, l := range letters {
		members[i] = []byte{l}
	}
	return Alphabet{
		Advance: 1,
		Members: members,
		Score:   func(a, b []byte) int { return score(a[0], b[0]) },
	}
}

// FromCodonScore builds a codon Alphabet (Advance 3) over every 3-letter
// combination of bases, scored by a composed codon scorer (spec.md §4.G's
// "scoring is translation-composed").
func FromCodonScore(bases []byte, score func(a, b [3]byte) int) Alphabet {
	members := make([][]byte, 0, len(bases)*len(bases)*len(bases))
	for _, a := range bases {
		for _, b := range bases {
			for _, c := range bases {
				members = append(members, []byte{a, b, c})
			}
		}
	}
	return Alphabet{
		Advance: 3,
		Members: members,
		Score: func(a, b []byte) int {
			return score([3]byte{a[0], a[1], a[2]}, [3]byte{b[0], b[1], b[2]})
		},
	}
}

// Visitor is invoked once per enumerated neighbor, in DFS order. Returning
// true stops the traversal early (spec.md §4.F: "Visitor may return stop").
type Visitor func(word []byte, score int) (stop bool)
