// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package submat defines the substitution-scoring and translation
// contracts that spec.md treats as external collaborators
// ("score(a,b) → int, translate(a,b,c) → aa"). The core hsp, neighborhood
// and automaton packages depend only on the ScoreFunc and TranslateFunc
// function types here; production callers are expected to supply their own
// tables. The two concrete matrices in this package (Nucleic, a
// match/mismatch pair grounded on cmd/reefer's align.SW-style
// makeTable, and Blosum62Like, a coarse protein matrix) exist only so the
// rest of the module is independently testable.
package submat

import "github.com/kortschak/seedcore/alphabet"

// ScoreFunc scores the substitution of residue b for residue a. It is the
// single contract the neighborhood enumerator and HSP builder have with the
// (externally supplied) scoring matrix tables.
type ScoreFunc func(a, b byte) int

// TranslateFunc maps a codon (three nucleotide bytes) to an amino acid
// letter. It is the single contract the codon/protein alignment modes have
// with the (externally supplied) translation table.
type TranslateFunc func(a, b, c byte) byte

// Matrix is a simple square substitution matrix over an Alphabet's
// canonical symbols, indexable by residue byte.
type Matrix struct {
	Alphabet alphabet.Alphabet
	scores   [][]int
}

// NewMatrix builds a Matrix from a square score table indexed in the same
// order as a.Len() canonical symbols.
func NewMatrix(a alphabet.Alphabet, scores [][]int) *Matrix {
	return &Matrix{Alphabet: a, scores: scores}
}

// Score implements ScoreFunc. Unknown or ambiguous residues score as the
// least favourable entry in the matrix, so a word containing them is never
// favoured by the neighborhood enumerator's optimistic pruning.
func (m *Matrix) Score(a, b byte) int {
	ca, aok := m.Alphabet.Code(alphabet.Unmask(a))
	cb, bok := m.Alphabet.Code(alphabet.Unmask(b))
	if !aok || !bok {
		return m.worst()
	}
	return m.scores[ca][cb]
}

func (m *Matrix) worst() int {
	w := 0
	first := true
	for _, row := range m.scores {
		for _, v := range row {
			if first || v < w {
				w = v
				first = false
			}
		}
	}
	return w
}

// Nucleic returns a DNA substitution matrix built from a single
// match/mismatch pair, the same shape as cmd/reefer's makeTable for
// align.SW: a diagonal of match scores and a uniform mismatch elsewhere.
func Nucleic(match, mismatch int) *Matrix {
	n := alphabet.DNA.Len()
	scores := make([][]int, n)
	for i := range scores {
		row := make([]int, n)
		for j := range row {
			if i == j {
				row[j] = match
			} else {
				row[j] = mismatch
			}
		}
		scores[i] = row
	}
	return NewMatrix(alphabet.DNA, scores)
}

// blosum62Diag is a coarse stand-in for BLOSUM62: identical residues score
// their approximate diagonal value, everything else scores a fixed
// mismatch penalty. It exists only to exercise protein-mode code paths in
// tests; it is not a substitute for a real substitution matrix.
func blosum62Diag() *Matrix {
	diag := map[byte]int{
		'A': 4, 'R': 5, 'N': 6, 'D': 6, 'C': 9, 'Q': 5, 'E': 5, 'G': 6,
		'H': 8, 'I': 4, 'L': 4, 'K': 5, 'M': 5, 'F': 6, 'P': 7, 'S': 4,
		'T': 5, 'W': 11, 'Y': 7, 'V': 4, '*': 1, 'U': 9,
	}
	n := alphabet.Protein.Len()
	scores := make([][]int, n)
	for i := range scores {
		scores[i] = make([]int, n)
		for j := range scores[i] {
			scores[i][j] = -1
		}
	}
	for i := int8(0); int(i) < n; i++ {
		scores[i][i] = diag[alphabet.Protein.Letter(i)]
	}
	return NewMatrix(alphabet.Protein, scores)
}

// Blosum62Like is a coarse protein substitution matrix used as a default
// for tests and examples; see blosum62Diag.
var Blosum62Like = blosum62Diag()

// standardCode is the standard nuclear genetic code, keyed by upper-case
// codon.
var standardCode = map[string]byte{
	"TTT": 'F', "TTC": 'F', "TTA": 'L', "TTG": 'L',
	"CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"ATT": 'I', "ATC": 'I', "ATA": 'I', "ATG": 'M',
	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"TAT": 'Y', "TAC": 'Y', "TAA": '*', "TAG": '*',
	"CAT": 'H', "CAC": 'H', "CAA": 'Q', "CAG": 'Q',
	"AAT": 'N', "AAC": 'N', "AAA": 'K', "AAG": 'K',
	"GAT": 'D', "GAC": 'D', "GAA": 'E', "GAG": 'E',
	"TGT": 'C', "TGC": 'C', "TGA": '*', "TGG": 'W',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R',
	"AGT": 'S', "AGC": 'S', "AGA": 'R', "AGG": 'R',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

// StandardCode implements TranslateFunc using the standard nuclear genetic
// code. Codons containing a symbol outside ACGT (ambiguity codes,
// soft-mask aside) translate to 'X'.
func StandardCode(a, b, c byte) byte {
	codon := []byte{alphabet.Unmask(a), alphabet.Unmask(b), alphabet.Unmask(c)}
	aa, ok := standardCode[string(codon)]
	if !ok {
		return 'X'
	}
	return aa
}

// CodonScore composes two TranslateFuncs with a protein ScoreFunc, matching
// spec.md's design note: codon scoring is defined as "translate both
// codons, then look up in the protein matrix" (the disabled CodonSubmat
// path in the original is not reinstated).
func CodonScore(translate TranslateFunc, protein ScoreFunc) func(a, b [3]byte) int {
	return func(a, b [3]byte) int {
		aaA := translate(a[0], a[1], a[2])
		aaB := translate(b[0], b[1], b[2])
		return protein(aaA, aaB)
	}
}
