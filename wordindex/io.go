// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wordindex

import (
	"io"
	"os"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/bitpack"
)

// Index is the in-memory result of Build: the forward strand always
// present, plus a reverse-complement strand iff the index was built
// translated (spec.md §3's IndexStrand invariant). Write it out with
// WriteTo and read it back with Open, which returns the lazy Reader form.
type Index struct {
	params  Params
	dsPath  string
	forward *builtStrand
	reverse *builtStrand
}

// WriteTo serializes idx in the .esi format spec.md §6 describes: an
// 8-field 64-bit big-endian header, the source dataset's path, then one
// or two IndexStrand sections (forward always, reverse iff translated).
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	var written int64

	flags := uint64(0)
	if idx.params.Translate != nil {
		flags |= flagTranslated
	}

	header := []uint64{
		0, // magic, written separately below
		version,
		uint64(len(idx.dsPath)),
		uint64(idx.params.Auto.Depth()),
		uint64(wordJumpOf(idx.params)),
		uint64(idx.params.WordAmbiguity),
		uint64(idx.params.SaturateThreshold),
		flags,
	}

	magicField := make([]byte, 8)
	copy(magicField, magic)
	n, err := w.Write(magicField)
	written += int64(n)
	if err != nil {
		return written, seedcore.Wrap(seedcore.IoError, err)
	}
	for _, f := range header[1:] {
		if err := bitpack.WriteHeaderInt(w, f); err != nil {
			return written, err
		}
		written += 8
	}

	n, err = w.Write([]byte(idx.dsPath))
	written += int64(n)
	if err != nil {
		return written, seedcore.Wrap(seedcore.IoError, err)
	}

	n64, err := writeStrand(w, idx.forward)
	written += n64
	if err != nil {
		return written, err
	}

	if idx.params.Translate != nil {
		n64, err = writeStrand(w, idx.reverse)
		written += n64
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func wordJumpOf(p Params) int {
	if p.WordJump < 1 {
		return 1
	}
	return p.WordJump
}

// writeStrand writes one IndexStrand: its header (word count, total
// occurrence record count, max index length, and the two field widths),
// the word list (state, frequency, offset triples), then the packed
// occurrence bits.
func writeStrand(w io.Writer, s *builtStrand) (int64, error) {
	var written int64
	fields := []uint64{
		s.wordListLength,
		s.totalIndexLength,
		s.maxIndexLength,
		uint64(s.numSeqsWidth),
		uint64(s.maxSeqLenWidth),
	}
	for _, f := range fields {
		if err := bitpack.WriteHeaderInt(w, f); err != nil {
			return written, err
		}
		written += 8
	}

	freqWidth := bitpack.Width(uint64(s.maxIndexLength))
	offWidth := bitpack.Width(s.totalIndexLength)
	wl := bitpack.NewWriter(uint64(len(s.words)) * (64 + uint64(freqWidth) + uint64(offWidth)))
	for _, e := range s.words {
		wl.Append(e.state, 64)
		wl.Append(uint64(e.freq), freqWidth)
		wl.Append(e.offset, offWidth)
	}
	n, err := wl.WriteTo(w)
	written += n
	if err != nil {
		return written, seedcore.Wrap(seedcore.IoError, err)
	}

	n, err = s.occBits.WriteTo(w)
	written += n
	if err != nil {
		return written, seedcore.Wrap(seedcore.IoError, err)
	}
	return written, nil
}

// Open reads the .esi header and word lists from path (the occurrence
// regions are read lazily by ReadOccurrences), returning a Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, seedcore.Wrap(seedcore.IoError, err)
	}
	closeOnErr := func(err error) (*Reader, error) {
		f.Close()
		return nil, err
	}

	magicField := make([]byte, 8)
	if _, err := io.ReadFull(f, magicField); err != nil {
		return closeOnErr(seedcore.Wrap(seedcore.ShortRead, err))
	}
	if string(magicField[:len(magic)]) != magic {
		return closeOnErr(seedcore.Errorf(seedcore.BadMagic, "wordindex: path %s", path))
	}

	fields := make([]uint64, 7)
	for i := range fields {
		v, err := bitpack.ReadHeaderInt(f)
		if err != nil {
			return closeOnErr(err)
		}
		fields[i] = v
	}
	if fields[0] != version {
		return closeOnErr(seedcore.Errorf(seedcore.IncompatibleVersion, "wordindex: got version %d", fields[0]))
	}
	dsPathLen := fields[1]
	depth := int(fields[2])
	wordJump := int(fields[3])
	wordAmbiguity := int(fields[4])
	saturateThreshold := int64(fields[5])
	flags := fields[6]

	dsPathBuf := make([]byte, dsPathLen)
	if _, err := io.ReadFull(f, dsPathBuf); err != nil {
		return closeOnErr(seedcore.Wrap(seedcore.ShortRead, err))
	}

	r := &Reader{
		path: path,
		file: f,
		params: Params{
			WordJump:          wordJump,
			WordAmbiguity:     wordAmbiguity,
			SaturateThreshold: saturateThreshold,
		},
		depth:      depth,
		dsPath:     string(dsPathBuf),
		translated: flags&flagTranslated != 0,
	}

	fwd, _, err := readStrandHeader(f)
	if err != nil {
		return closeOnErr(err)
	}
	r.forward = fwd

	if r.translated {
		if _, err := f.Seek(fwd.occEnd, io.SeekStart); err != nil {
			return closeOnErr(seedcore.Wrap(seedcore.IoError, err))
		}
		rev, _, err := readStrandHeader(f)
		if err != nil {
			return closeOnErr(err)
		}
		r.reverse = rev
	}

	return r, nil
}

// strandMeta is the lazily-backed form of builtStrand a Reader keeps: the
// word list decoded eagerly, the occurrence bits read on demand via
// ReadAt on the open file.
type strandMeta struct {
	wordListLength   uint64
	totalIndexLength uint64
	maxIndexLength   uint64
	numSeqsWidth     uint8
	maxSeqLenWidth   uint8

	words []wordEntry

	occStart int64 // byte offset of the packed occurrence region
	occEnd   int64 // byte offset immediately after it
}

func readStrandHeader(f *os.File) (*strandMeta, int64, error) {
	fields := make([]uint64, 5)
	for i := range fields {
		v, err := bitpack.ReadHeaderInt(f)
		if err != nil {
			return nil, 0, err
		}
		fields[i] = v
	}
	s := &strandMeta{
		wordListLength:   fields[0],
		totalIndexLength: fields[1],
		maxIndexLength:   fields[2],
		numSeqsWidth:     uint8(fields[3]),
		maxSeqLenWidth:   uint8(fields[4]),
	}

	freqWidth := bitpack.Width(s.maxIndexLength)
	offWidth := bitpack.Width(s.totalIndexLength)
	recordBits := uint64(64) + uint64(freqWidth) + uint64(offWidth)
	wlBytes := int64((s.wordListLength*recordBits + 7) / 8)
	wlr, err := bitpack.ReadFrom(f, wlBytes)
	if err != nil {
		return nil, 0, err
	}
	s.words = make([]wordEntry, s.wordListLength)
	var off uint64
	for i := range s.words {
		state := wlr.Get(off, 64)
		off += 64
		freq := wlr.Get(off, freqWidth)
		off += uint64(freqWidth)
		offset := wlr.Get(off, offWidth)
		off += uint64(offWidth)
		s.words[i] = wordEntry{state: state, freq: int64(freq), offset: offset}
	}

	recordWidth := int64(s.numSeqsWidth) + int64(s.maxSeqLenWidth)
	occBytes := (int64(s.totalIndexLength)*recordWidth + 7) / 8
	cur, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, seedcore.Wrap(seedcore.IoError, err)
	}
	s.occStart = cur
	s.occEnd = cur + occBytes
	if _, err := f.Seek(occBytes, io.SeekCurrent); err != nil {
		return nil, 0, seedcore.Wrap(seedcore.IoError, err)
	}
	return s, s.occEnd, nil
}
