// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import "github.com/kortschak/seedcore/bitpack"

// pageSize is the number of residues held by one PackedPage, matching
// spec.md's "4096-symbol region of a sequence".
const pageSize = 4096

// encoding is the tagged variant selecting a PackedPage's storage scheme.
// spec.md's data model describes five encodings "chosen by composition";
// rather than dispatch through a function-pointer table (the C original's
// approach) each is a case in get/copy, per the tagged-variant guidance in
// spec.md §9.
type encoding uint8

const (
	encRaw8    encoding = iota // 8-bit raw: one byte per residue, any alphabet
	enc4Mixed                  // 4-bit: {A,C,G,T,N} in either case
	enc2Upper                  // 2-bit: {A,C,G,T} upper case only
	enc2Lower                  // 2-bit: {a,c,g,t} lower case only
	encAllN                    // 0-bit: whole page is all-N (or all-n); length only
)

var mixed4Alphabet = []byte{'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n'}

func mixed4Code(b byte) (uint64, bool) {
	for i, c := range mixed4Alphabet {
		if c == b {
			return uint64(i), true
		}
	}
	return 0, false
}

var twoBitUpper = []byte{'A', 'C', 'G', 'T'}
var twoBitLower = []byte{'a', 'c', 'g', 't'}

func twoBitCode(alphabetBytes []byte, b byte) (uint64, bool) {
	for i, c := range alphabetBytes {
		if c == b {
			return uint64(i), true
		}
	}
	return 0, false
}

// packedPage is one fixed-length region of a sequence, held in whichever of
// the five encodings best fits its residue composition.
type packedPage struct {
	enc    encoding
	length int    // number of residues held (== pageSize except the last page)
	allN   byte   // 'N' or 'n', valid only when enc == encAllN
	bits   *bitpack.Reader
}

// fillPage chooses the smallest viable encoding for raw (a run of at most
// pageSize residues exactly as read from the source file, soft-mask
// preserved) and packs it.
func fillPage(raw []byte) *packedPage {
	p := &packedPage{length: len(raw)}

	if allSameN(raw, 'N') {
		p.enc, p.allN = encAllN, 'N'
		return p
	}
	if allSameN(raw, 'n') {
		p.enc, p.allN = encAllN, 'n'
		return p
	}
	if w, ok := pack(raw, twoBitUpper, 2); ok {
		p.enc, p.bits = enc2Upper, w
		return p
	}
	if w, ok := pack(raw, twoBitLower, 2); ok {
		p.enc, p.bits = enc2Lower, w
		return p
	}
	if w, ok := packMixed4(raw); ok {
		p.enc, p.bits = enc4Mixed, w
		return p
	}
	w := bitpack.NewWriter(uint64(len(raw)) * 8)
	for _, b := range raw {
		w.Append(uint64(b), 8)
	}
	p.enc, p.bits = encRaw8, bitpack.FromWriter(w)
	return p
}

func allSameN(raw []byte, n byte) bool {
	if len(raw) == 0 {
		return false
	}
	for _, b := range raw {
		if b != n {
			return false
		}
	}
	return true
}

func pack(raw, alphabetBytes []byte, width uint8) (*bitpack.Reader, bool) {
	w := bitpack.NewWriter(uint64(len(raw)) * uint64(width))
	for _, b := range raw {
		code, ok := twoBitCode(alphabetBytes, b)
		if !ok {
			return nil, false
		}
		w.Append(code, width)
	}
	return bitpack.FromWriter(w), true
}

func packMixed4(raw []byte) (*bitpack.Reader, bool) {
	w := bitpack.NewWriter(uint64(len(raw)) * 4)
	for _, b := range raw {
		code, ok := mixed4Code(b)
		if !ok {
			return nil, false
		}
		w.Append(code, 4)
	}
	return bitpack.FromWriter(w), true
}

// get returns the residue at position i within the page.
func (p *packedPage) get(i int) byte {
	switch p.enc {
	case encAllN:
		return p.allN
	case enc2Upper:
		return twoBitUpper[p.bits.Get(uint64(i)*2, 2)]
	case enc2Lower:
		return twoBitLower[p.bits.Get(uint64(i)*2, 2)]
	case enc4Mixed:
		return mixed4Alphabet[p.bits.Get(uint64(i)*4, 4)]
	case encRaw8:
		return byte(p.bits.Get(uint64(i)*8, 8))
	default:
		panic("dataset: unknown page encoding")
	}
}

// copy fills dst (which must have length <= length-start) with the
// residues [start, start+len(dst)) of the page.
func (p *packedPage) copy(start int, dst []byte) {
	for i := range dst {
		dst[i] = p.get(start + i)
	}
}
