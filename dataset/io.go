// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"io"
	"os"
	"strings"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/alphabet"
	"github.com/kortschak/seedcore/bitpack"
)

// WriteTo serializes the dataset to w in the format described by spec.md
// §6: a 15-field big-endian header, a path section, a seq-data section and
// a bit-packed seq-info section. The seq-info section carries each
// sequence's own LineLength/RawLength alongside its offset and checksum, so
// Open restores per-record wrap width instead of collapsing every sequence
// onto one dataset-wide value.
func (d *Dataset) WriteTo(w io.Writer) (int64, error) {
	var maxDbLen, totalDbLen uint64
	for _, sz := range d.fileSizes {
		if uint64(sz) > maxDbLen {
			maxDbLen = uint64(sz)
		}
		totalDbLen += uint64(sz)
	}

	var maxSeqLen, totalSeqLen uint64
	var maxLineLen, maxRawLen uint64
	for _, id := range d.order {
		l := uint64(d.seqs[id].Length)
		if l > maxSeqLen {
			maxSeqLen = l
		}
		k := d.keys[id]
		if ll := uint64(k.LineLength); ll > maxLineLen {
			maxLineLen = ll
		}
		if rl := uint64(k.RawLength); rl > maxRawLen {
			maxRawLen = rl
		}
		totalSeqLen += l
	}

	numDbWidth := bitpack.Width(uint64(len(d.paths)))
	maxDbLenWidth := bitpack.Width(maxDbLen)
	maxSeqLenWidth := bitpack.Width(maxSeqLen)
	lineLenWidth := bitpack.Width(maxLineLen)
	rawLenWidth := bitpack.Width(maxRawLen)
	recordWidth := numDbWidth + maxDbLenWidth + maxSeqLenWidth + 14 + lineLenWidth + rawLenWidth

	var pathBuf strings.Builder
	for _, p := range d.paths {
		pathBuf.WriteString(p)
		pathBuf.WriteByte('\n')
	}

	var seqDataBuf strings.Builder
	for _, id := range d.order {
		s := d.seqs[id]
		seqDataBuf.WriteString(s.ID)
		if s.Description != "" {
			seqDataBuf.WriteByte(' ')
			seqDataBuf.WriteString(s.Description)
		}
		seqDataBuf.WriteByte('\n')
	}

	bw := bitpack.NewWriter(uint64(len(d.order)) * uint64(recordWidth))
	for _, id := range d.order {
		k := d.keys[id]
		bw.Append(uint64(k.ElementID), numDbWidth)
		bw.Append(uint64(k.ElementOffset), maxDbLenWidth)
		bw.Append(uint64(k.Length), maxSeqLenWidth)
		bw.Append(uint64(d.checksums[id]), 14)
		bw.Append(uint64(k.LineLength), lineLenWidth)
		bw.Append(uint64(k.RawLength), rawLenWidth)
	}

	const headerFields = 16
	pathDataOffset := uint64(headerFields * 8)
	seqDataOffset := pathDataOffset + uint64(pathBuf.Len())
	seqInfoOffset := seqDataOffset + uint64(seqDataBuf.Len())
	totalFileLength := seqInfoOffset + uint64(bw.Bytes())

	var typeFlags uint64
	if d.kind == alphabet.ProteinKind {
		typeFlags |= flagProtein
	}
	if d.softmask {
		typeFlags |= flagSoftmask
	}

	fields := []uint64{
		version,
		typeFlags,
		uint64(d.lineLength),
		uint64(len(d.paths)), maxDbLen, totalDbLen,
		uint64(len(d.order)), maxSeqLen, totalSeqLen,
		maxLineLen, maxRawLen,
		pathDataOffset, seqDataOffset, seqInfoOffset, totalFileLength,
	}

	var written int64
	// The magic field occupies one full 64-bit slot: its first 3 bytes are
	// "esd", the rest zero padding.
	magicField := make([]byte, 8)
	copy(magicField, magic)
	if _, err := w.Write(magicField); err != nil {
		return written, seedcore.Wrap(seedcore.IoError, err)
	}
	written += 8
	for _, v := range fields {
		if err := bitpack.WriteHeaderInt(w, v); err != nil {
			return written, seedcore.Wrap(seedcore.IoError, err)
		}
		written += 8
	}

	if _, err := w.Write([]byte(pathBuf.String())); err != nil {
		return written, seedcore.Wrap(seedcore.IoError, err)
	}
	written += int64(pathBuf.Len())
	if _, err := w.Write([]byte(seqDataBuf.String())); err != nil {
		return written, seedcore.Wrap(seedcore.IoError, err)
	}
	written += int64(seqDataBuf.Len())
	n, err := bw.WriteTo(w)
	written += n
	if err != nil {
		return written, seedcore.Wrap(seedcore.IoError, err)
	}

	return written, nil
}

// Open reads a .esd file previously produced by WriteTo, reconstructing the
// in-memory Dataset without loading any sequence residue data (that stays
// lazily paged through the dataset's element files, opened from the path
// section recorded at build time).
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, seedcore.Wrap(seedcore.IoError, err)
	}
	defer f.Close()

	header := make([]byte, 16*8)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, seedcore.Wrap(seedcore.ShortRead, err)
	}
	if string(header[:len(magic)]) != magic {
		return nil, seedcore.Errorf(seedcore.BadMagic, "%s: bad magic", path)
	}

	fields := make([]uint64, 15)
	for i := range fields {
		fields[i] = beUint64(header[8+i*8 : 8+(i+1)*8])
	}
	gotVersion := fields[0]
	if gotVersion != version {
		return nil, seedcore.Errorf(seedcore.IncompatibleVersion, "%s: version %d, want %d", path, gotVersion, version)
	}
	typeFlags := fields[1]
	lineLength := int(fields[2])
	numDbs := int(fields[3])
	numSeqs := int(fields[6])
	maxLineLen := fields[9]
	maxRawLen := fields[10]
	pathDataOffset := fields[11]
	seqDataOffset := fields[12]
	seqInfoOffset := fields[13]
	totalFileLength := fields[14]

	d := &Dataset{
		kind:       alphabet.DNAKind,
		softmask:   typeFlags&flagSoftmask != 0,
		lineLength: lineLength,
		seqs:       make(map[string]Sequence, numSeqs),
		keys:       make(map[string]Key, numSeqs),
		checksums:  make(map[string]uint16, numSeqs),
	}
	if typeFlags&flagProtein != 0 {
		d.kind = alphabet.ProteinKind
	}

	pathBuf := make([]byte, seqDataOffset-pathDataOffset)
	if _, err := io.ReadFull(f, pathBuf); err != nil {
		return nil, seedcore.Wrap(seedcore.ShortRead, err)
	}
	paths := strings.Split(strings.TrimRight(string(pathBuf), "\n"), "\n")
	if numDbs > 0 {
		d.paths = paths[:numDbs]
	}

	seqDataBuf := make([]byte, seqInfoOffset-seqDataOffset)
	if _, err := io.ReadFull(f, seqDataBuf); err != nil {
		return nil, seedcore.Wrap(seedcore.ShortRead, err)
	}
	var headers []string
	if len(seqDataBuf) > 0 {
		headers = strings.Split(strings.TrimRight(string(seqDataBuf), "\n"), "\n")
	}
	if len(headers) != numSeqs {
		return nil, seedcore.Errorf(seedcore.IoError, "%s: seq-data section has %d records, header says %d", path, len(headers), numSeqs)
	}

	seqInfoBuf := make([]byte, totalFileLength-seqInfoOffset)
	if _, err := io.ReadFull(f, seqInfoBuf); err != nil {
		return nil, seedcore.Wrap(seedcore.ShortRead, err)
	}

	for _, p := range d.paths {
		if fi, err := os.Stat(p); err == nil {
			d.fileSizes = append(d.fileSizes, fi.Size())
		} else {
			d.fileSizes = append(d.fileSizes, 0)
		}
	}

	// Field widths are re-derived from the header's recorded max_db_len and
	// max_seq_len rather than rescanning the element files, exactly
	// reproducing the widths WriteTo chose when it packed this section.
	maxDbLen := fields[4]
	maxSeqLen := fields[7]
	numDbWidth := bitpack.Width(uint64(numDbs))
	maxDbLenWidth := bitpack.Width(maxDbLen)
	maxSeqLenWidth := bitpack.Width(maxSeqLen)
	lineLenWidth := bitpack.Width(maxLineLen)
	rawLenWidth := bitpack.Width(maxRawLen)

	d.order = make([]string, numSeqs)
	r := bitpack.NewReader(seqInfoBuf)
	bitPos := uint64(0)
	type rawRecord struct {
		elementID     int
		elementOffset int64
		length        int
		checksum      uint16
		lineLength    int
		rawLength     int64
	}
	raws := make([]rawRecord, numSeqs)
	for i := 0; i < numSeqs; i++ {
		elementID := int(r.Get(bitPos, numDbWidth))
		bitPos += uint64(numDbWidth)
		elementOffset := int64(r.Get(bitPos, maxDbLenWidth))
		bitPos += uint64(maxDbLenWidth)
		length := int(r.Get(bitPos, maxSeqLenWidth))
		bitPos += uint64(maxSeqLenWidth)
		checksum := uint16(r.Get(bitPos, 14))
		bitPos += 14
		recLineLength := int(r.Get(bitPos, lineLenWidth))
		bitPos += uint64(lineLenWidth)
		recRawLength := int64(r.Get(bitPos, rawLenWidth))
		bitPos += uint64(rawLenWidth)
		raws[i] = rawRecord{elementID, elementOffset, length, checksum, recLineLength, recRawLength}
	}

	for i, h := range headers {
		id, desc := splitHeader(h)
		rec := raws[i]
		d.seqs[id] = Sequence{ID: id, Description: desc, Length: rec.length}
		d.keys[id] = Key{
			ElementID:     rec.elementID,
			ElementOffset: rec.elementOffset,
			Length:        rec.length,
			LineLength:    rec.lineLength,
			RawLength:     rec.rawLength,
		}
		d.checksums[id] = rec.checksum
		d.order[i] = id
	}

	if err := d.openElements(); err != nil {
		return nil, err
	}
	return d, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
