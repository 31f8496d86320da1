// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alphabet holds the symbol tables shared by the packed sequence
// store, the word automaton and the neighborhood enumerator: DNA and
// protein residue codes, IUPAC ambiguity expansion, and the
// masked/unmasked/ambiguity-clean filter views spec.md's data model calls
// for.
//
// The shape mirrors github.com/biogo/biogo/alphabet (an Alphabet that knows
// its Len and can map bytes to small integer codes), but is its own type:
// this package additionally needs IUPAC expansion and softmask filtering
// that biogo's alphabet does not expose as part of its public contract.
package alphabet

import "github.com/kortschak/seedcore"

// Kind distinguishes the two residue alphabets a Dataset can hold, matching
// the dataset header's type_flags bit 0.
type Kind uint8

const (
	DNAKind Kind = iota
	ProteinKind
)

func (k Kind) String() string {
	if k == ProteinKind {
		return "protein"
	}
	return "dna"
}

// Alphabet maps residue bytes to and from dense integer codes and exposes
// IUPAC-style ambiguity expansion. Implementations are immutable and safe
// for concurrent use.
type Alphabet interface {
	// Kind reports which family this alphabet belongs to.
	Kind() Kind
	// Len returns the number of canonical (non-ambiguous) symbols.
	Len() int
	// Code maps an upper- or lower-case residue byte to a dense code in
	// [0, Len()). Ambiguous symbols do not have a single code; ok is false
	// for them.
	Code(b byte) (sym int8, ok bool)
	// Letter is the inverse of Code, always returning the upper-case form.
	Letter(sym int8) byte
	// IsValid reports whether b (in either case) is any symbol of this
	// alphabet, canonical or ambiguous.
	IsValid(b byte) bool
	// IsAmbiguous reports whether b is an IUPAC ambiguity code rather than
	// a canonical symbol.
	IsAmbiguous(b byte) bool
	// Expand returns the set of canonical symbols (upper case) an
	// ambiguity code stands for. For a canonical symbol it returns a
	// single-element slice containing its upper-case form.
	Expand(b byte) []byte
}

// IsMasked reports whether b is a soft-masked (lower-case) residue.
func IsMasked(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// Unmask returns the upper-case form of a residue, stripping any
// soft-mask.
func Unmask(b byte) byte {
	if IsMasked(b) {
		return b - ('a' - 'A')
	}
	return b
}

// Mask returns the soft-masked (lower-case) form of a residue.
func Mask(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

type table struct {
	kind     Kind
	letters  []byte       // canonical letters, index == code
	codeOf   [256]int8    // -1 if not canonical
	ambig    map[byte][]byte
	validSet [256]bool
}

func newTable(kind Kind, letters string, ambig map[byte][]byte) *table {
	t := &table{kind: kind, letters: []byte(letters), ambig: ambig}
	for i := range t.codeOf {
		t.codeOf[i] = -1
	}
	for i, c := range t.letters {
		t.codeOf[c] = int8(i)
		t.codeOf[Mask(c)] = int8(i)
		t.validSet[c] = true
		t.validSet[Mask(c)] = true
	}
	for c := range ambig {
		t.validSet[c] = true
		t.validSet[Mask(c)] = true
	}
	return t
}

func (t *table) Kind() Kind { return t.kind }
func (t *table) Len() int   { return len(t.letters) }

func (t *table) Code(b byte) (int8, bool) {
	c := t.codeOf[b]
	return c, c >= 0
}

func (t *table) Letter(sym int8) byte {
	if sym < 0 || int(sym) >= len(t.letters) {
		return 0
	}
	return t.letters[sym]
}

func (t *table) IsValid(b byte) bool { return t.validSet[b] }

func (t *table) IsAmbiguous(b byte) bool {
	_, ok := t.ambig[Unmask(b)]
	return ok
}

func (t *table) Expand(b byte) []byte {
	u := Unmask(b)
	if set, ok := t.ambig[u]; ok {
		return set
	}
	if c, ok := t.Code(u); ok {
		return []byte{t.Letter(c)}
	}
	return nil
}

// dnaAmbiguity is the standard IUPAC nucleotide ambiguity table, grounded
// on exonerate's Alphabet_Filter_VALID_DNA_IUPAC filter.
var dnaAmbiguity = map[byte][]byte{
	'R': {'A', 'G'},
	'Y': {'C', 'T'},
	'S': {'G', 'C'},
	'W': {'A', 'T'},
	'K': {'G', 'T'},
	'M': {'A', 'C'},
	'B': {'C', 'G', 'T'},
	'D': {'A', 'G', 'T'},
	'H': {'A', 'C', 'T'},
	'V': {'A', 'C', 'G'},
	'N': {'A', 'C', 'G', 'T'},
}

// proteinAmbiguity covers the two standard protein ambiguity codes plus the
// translation stop/placeholder symbols spec.md's data model names
// ("20 AA + *UX").
var proteinAmbiguity = map[byte][]byte{
	'B': {'D', 'N'},
	'Z': {'E', 'Q'},
	'X': {
		'A', 'R', 'N', 'D', 'C', 'Q', 'E', 'G', 'H', 'I',
		'L', 'K', 'M', 'F', 'P', 'S', 'T', 'W', 'Y', 'V',
	},
}

// DNA is the 4-letter nucleotide alphabet with IUPAC ambiguity codes.
var DNA Alphabet = newTable(DNAKind, "ACGT", dnaAmbiguity)

// Protein is the 20 amino acid alphabet plus the stop (*) and
// selenocysteine (U) symbols spec.md's data model names.
var Protein Alphabet = newTable(ProteinKind, "ARNDCQEGHILKMFPSTWYV*U", proteinAmbiguity)

// Letters returns a's canonical symbols in code order (Letters(a)[i] ==
// a.Letter(int8(i))), the form automaton.NewAlphabet wants to build a
// word-scanning trie directly over a's residues.
func Letters(a Alphabet) []byte {
	letters := make([]byte, a.Len())
	for i := range letters {
		letters[i] = a.Letter(int8(i))
	}
	return letters
}

// Complement returns the Watson-Crick complement of a single DNA base,
// preserving soft-mask case. Ambiguity codes complement symmetrically
// (e.g. R, a purine code, complements to Y, a pyrimidine code).
func Complement(b byte) byte {
	masked := IsMasked(b)
	u := Unmask(b)
	var c byte
	switch u {
	case 'A':
		c = 'T'
	case 'T':
		c = 'A'
	case 'C':
		c = 'G'
	case 'G':
		c = 'C'
	case 'R':
		c = 'Y'
	case 'Y':
		c = 'R'
	case 'S':
		c = 'S'
	case 'W':
		c = 'W'
	case 'K':
		c = 'M'
	case 'M':
		c = 'K'
	case 'B':
		c = 'V'
	case 'V':
		c = 'B'
	case 'D':
		c = 'H'
	case 'H':
		c = 'D'
	case 'N':
		c = 'N'
	default:
		c = u
	}
	if masked {
		return Mask(c)
	}
	return c
}

// ReverseComplement returns the reverse complement of a DNA sequence.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	n := len(seq)
	for i, b := range seq {
		out[n-1-i] = Complement(b)
	}
	return out
}

// CodonLen is the fixed width, in nucleotides, of a codon word.
const CodonLen = 3

// ErrBadFrame is the InvalidAlphabet error for a reading frame outside [0,2].
var ErrBadFrame = seedcore.Errorf(seedcore.InvalidAlphabet, "frame must be 0, 1 or 2")
