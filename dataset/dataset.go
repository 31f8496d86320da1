// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dataset implements the packed sequence store: a persistent,
// checksummed container of Sequences that references its underlying FASTA
// element files rather than duplicating their residue bytes, decoding pages
// of sequence content lazily and on demand (spec.md §4.B).
package dataset

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/alphabet"
)

const (
	magic   = "esd"
	version = uint64(4)
)

// type_flags bits, matching spec.md §6.
const (
	flagProtein   = uint64(1) << 0
	flagSoftmask  = uint64(1) << 1
)

// Strand tags a Sequence's orientation, spec.md §3.
type Strand uint8

const (
	Forward Strand = iota
	Reverse
	UnknownStrand
)

// CDS records an annotated coding region on a Sequence.
type CDS struct {
	Start, Length int
}

// Sequence is the immutable metadata record spec.md §3 describes: a stable
// id, optional description, length, strand tag and optional CDS
// annotation. Residue content is fetched separately through Dataset.Fetch,
// since it may not be resident in memory.
type Sequence struct {
	ID          string
	Description string
	Length      int
	Strand      Strand
	CDS         *CDS
}

// Key locates a Sequence's residue bytes within its source element file:
// which element, the byte offset of its first residue, its length in
// residues, and the line-wrap width used to compute file offsets in O(1).
// This is spec.md §4.B's "(compound_file_location, strand,
// byte_offset_into_line_wrapped_fasta, length)".
type Key struct {
	ElementID     int
	ElementOffset int64
	Length        int
	// LineLength is the uniform FASTA wrap width for this sequence's raw
	// bytes, enabling O(1) byte-offset arithmetic. 0 means the record's wrap
	// width varies line to line; readResidues then falls back to reading
	// the whole RawLength-byte span once and stripping newlines.
	LineLength int
	// RawLength is the number of raw bytes (residues plus newlines) from
	// ElementOffset to the end of this record, used only by the
	// LineLength == 0 fallback.
	RawLength int64
}

// Dataset is a persistent container of Sequences built once and read many
// times. Reads are safe for concurrent use by multiple goroutines.
type Dataset struct {
	kind     alphabet.Kind
	softmask bool
	// lineLength is the dataset-wide uniform FASTA wrap width, 0 if the
	// source files did not share one (each record then keeps its own wrap
	// width in its Key).
	lineLength int

	paths     []string
	fileSizes []int64
	elements  []io.ReaderAt
	closers   []io.Closer

	order     []string // ids, sorted (on-disk SeqData order)
	seqs      map[string]Sequence
	keys      map[string]Key
	checksums map[string]uint16

	cache *sparseCache
}

// Kind reports whether the dataset holds DNA or protein sequences.
func (d *Dataset) Kind() alphabet.Kind { return d.kind }

// Softmasked reports whether the dataset preserves soft-mask case.
func (d *Dataset) Softmasked() bool { return d.softmask }

// Len returns the number of sequences in the dataset.
func (d *Dataset) Len() int { return len(d.order) }

// Sequences returns the dataset's sequence metadata in on-disk (id-sorted)
// order.
func (d *Dataset) Sequences() []Sequence {
	out := make([]Sequence, len(d.order))
	for i, id := range d.order {
		out[i] = d.seqs[id]
	}
	return out
}

// Get returns the metadata for sequence id, if present.
func (d *Dataset) Get(id string) (Sequence, bool) {
	s, ok := d.seqs[id]
	return s, ok
}

// builderRecord accumulates one sequence's metadata while scanning a FASTA
// element file during Build.
type builderRecord struct {
	id, description string
	elementID       int
	elementOffset   int64
	length          int
	checksum        uint16
	lineLength      int
	irregularWrap   bool
	lastLineLength  int
	rawLength       int64
}

// Build scans the given FASTA element files (paths, in order) and returns
// an in-memory Dataset ready to be persisted with WriteTo. Scanning here is
// limited to locating '>' header lines and computing byte offsets by
// arithmetic on line length, exactly the bookkeeping spec.md §4.B assigns
// to the packed sequence store; it is not a general FASTA parser (that
// remains an external collaborator per spec.md §1).
func Build(paths []string, kind alphabet.Kind, softmask bool) (*Dataset, error) {
	d := &Dataset{
		kind:     kind,
		softmask: softmask,
		paths:     append([]string(nil), paths...),
		seqs:      make(map[string]Sequence),
		keys:      make(map[string]Key),
		checksums: make(map[string]uint16),
	}

	var records []builderRecord
	commonLine := -1 // -1: not yet seen, 0: irregular, >0: candidate uniform width
	for elementID, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, seedcore.Wrap(seedcore.IoError, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, seedcore.Wrap(seedcore.IoError, err)
		}
		d.fileSizes = append(d.fileSizes, info.Size())
		rs, lineLens, err := scanFasta(f, elementID)
		f.Close()
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
		for _, w := range lineLens {
			if w <= 0 {
				continue
			}
			switch {
			case commonLine == -1:
				commonLine = w
			case commonLine != 0 && commonLine != w:
				commonLine = 0
			}
		}
	}
	if commonLine <= 0 {
		d.lineLength = 0
	} else {
		d.lineLength = commonLine
	}

	d.order = make([]string, 0, len(records))
	for _, r := range records {
		if _, dup := d.seqs[r.id]; dup {
			return nil, seedcore.Errorf(seedcore.DuplicateId, "%s", r.id)
		}
		d.seqs[r.id] = Sequence{ID: r.id, Description: r.description, Length: r.length}
		lineLen := d.lineLength
		if lineLen == 0 {
			lineLen = r.lineLength
		}
		if r.irregularWrap {
			lineLen = 0
		}
		d.keys[r.id] = Key{
			ElementID:     r.elementID,
			ElementOffset: r.elementOffset,
			Length:        r.length,
			LineLength:    lineLen,
			RawLength:     r.rawLength,
		}
		d.checksums[r.id] = r.checksum
		d.order = append(d.order, r.id)
	}
	sort.Strings(d.order)

	if err := d.openElements(); err != nil {
		return nil, err
	}

	return d, nil
}

// scanFasta reads one FASTA element file and returns one builderRecord per
// sequence along with each sequence's detected line-wrap width (0 if the
// sequence had no residue lines).
func scanFasta(f *os.File, elementID int) ([]builderRecord, []int, error) {
	var records []builderRecord
	var lineLens []int
	var cur *builderRecord
	var pos int64

	finalize := func(endPos int64) {
		if cur == nil {
			return
		}
		cur.rawLength = endPos - cur.elementOffset
		records = append(records, *cur)
		lineLens = append(lineLens, cur.lineLength)
	}

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		lineBytes := int64(len(line))
		trimmed := strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(trimmed, ">") {
			finalize(pos)
			header := trimmed[1:]
			id, desc := splitHeader(header)
			cur = &builderRecord{
				id:            id,
				description:   desc,
				elementID:     elementID,
				elementOffset: pos + lineBytes,
			}
		} else if cur != nil && trimmed != "" {
			w := len(trimmed)
			if cur.lineLength == 0 {
				cur.lineLength = w
			} else if cur.lastLineLength != 0 && cur.lastLineLength != cur.lineLength {
				cur.irregularWrap = true
			}
			cur.lastLineLength = w
			for i := 0; i < w; i++ {
				b := trimmed[i]
				cur.checksum = uint16((int(cur.checksum) + (cur.length%57+1)*int(alphabet.Unmask(b))) % 10000)
				cur.length++
			}
		}

		pos += lineBytes
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, seedcore.Wrap(seedcore.IoError, err)
		}
	}
	finalize(pos)
	return records, lineLens, nil
}

func splitHeader(header string) (id, desc string) {
	i := strings.IndexAny(header, " \t")
	if i < 0 {
		return header, ""
	}
	return header[:i], strings.TrimSpace(header[i+1:])
}

// openElements lazily opens every element file referenced by the dataset's
// path section and installs the sparse page cache over them.
func (d *Dataset) openElements() error {
	d.elements = make([]io.ReaderAt, len(d.paths))
	d.closers = make([]io.Closer, len(d.paths))
	for i, p := range d.paths {
		f, err := os.Open(p)
		if err != nil {
			return seedcore.Wrap(seedcore.IoError, err)
		}
		d.elements[i] = f
		d.closers[i] = f
	}
	d.cache = newSparseCache(d.elements)
	return nil
}

// Close releases the dataset's open element files.
func (d *Dataset) Close() error {
	var first error
	for _, c := range d.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Fetch returns the full residue content of sequence id, reverifying its
// GCG checksum against the value recorded at build time (spec.md invariant
// 1: "read_back(s).checksum == s.checksum").
func (d *Dataset) Fetch(id string) ([]byte, error) {
	s, ok := d.seqs[id]
	if !ok {
		return nil, seedcore.Errorf(seedcore.IoError, "no such sequence %q", id)
	}
	buf, err := d.FetchRange(id, 0, s.Length)
	if err != nil {
		return nil, err
	}
	if want, ok := d.checksums[id]; ok {
		if got := gcgChecksum(buf); got != want {
			return nil, seedcore.Errorf(seedcore.ChecksumMismatch, "%s: got %d want %d", id, got, want)
		}
	}
	return buf, nil
}

// FetchRange returns residues [start, start+length) of sequence id without
// checksum verification (verification only makes sense over the whole
// sequence).
func (d *Dataset) FetchRange(id string, start, length int) ([]byte, error) {
	k, ok := d.keys[id]
	if !ok {
		return nil, seedcore.Errorf(seedcore.IoError, "no such sequence %q", id)
	}
	if start < 0 || length < 0 || start+length > k.Length {
		return nil, seedcore.Errorf(seedcore.IoError, "range [%d,%d) out of bounds for %q (len %d)", start, start+length, id, k.Length)
	}
	buf := make([]byte, length)
	if err := d.cache.copyRange(k, start, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Verify re-reads sequence id in full and compares its GCG checksum against
// the value stored in the dataset's SeqInfo section.
func (d *Dataset) Verify(id string) error {
	want, ok := d.checksums[id]
	if !ok {
		return seedcore.Errorf(seedcore.IoError, "no such sequence %q", id)
	}
	buf, err := d.Fetch(id)
	if err != nil {
		return err
	}
	got := gcgChecksum(buf)
	if got != want {
		return seedcore.Errorf(seedcore.ChecksumMismatch, "%s: got %d want %d", id, got, want)
	}
	return nil
}

// Preload walks every sequence in on-disk order (sorted by (element_id,
// offset), the sequential I/O order spec.md §4.B calls for) and fills its
// page cache.
func (d *Dataset) Preload() error {
	ordered := make([]string, len(d.order))
	copy(ordered, d.order)
	sort.Slice(ordered, func(i, j int) bool {
		ki, kj := d.keys[ordered[i]], d.keys[ordered[j]]
		if ki.ElementID != kj.ElementID {
			return ki.ElementID < kj.ElementID
		}
		return ki.ElementOffset < kj.ElementOffset
	})
	for _, id := range ordered {
		if _, err := d.Fetch(id); err != nil {
			return err
		}
	}
	return nil
}
