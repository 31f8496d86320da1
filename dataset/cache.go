// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"io"
	"sync"

	"github.com/kortschak/seedcore"
)

// pageKey identifies one page of one sequence's residue data.
type pageKey struct {
	elementID int
	offset    int64 // elementOffset of the owning sequence's Key
	page      int   // page index within the sequence
}

// sparseCache lazily materializes fixed-size PackedPages of sequence data
// read from the dataset's element files. A miss reads the underlying file
// under ioMu, strips line-wrap whitespace, and compresses the result into
// the smallest viable page encoding; page contents are immutable after
// that, so hits proceed without the I/O mutex (spec.md §5: "page contents
// immutable post-fill, read lock-free").
type sparseCache struct {
	mu    sync.Mutex
	pages map[pageKey]*packedPage

	ioMu     sync.Mutex
	elements []io.ReaderAt
}

func newSparseCache(elements []io.ReaderAt) *sparseCache {
	return &sparseCache{pages: make(map[pageKey]*packedPage), elements: elements}
}

// page returns the filled page covering residue position pos of the
// sequence identified by k, loading it on first access.
func (c *sparseCache) page(k Key, pos int) (*packedPage, int, error) {
	pageIdx := pos / pageSize
	key := pageKey{elementID: k.ElementID, offset: k.ElementOffset, page: pageIdx}

	c.mu.Lock()
	p, ok := c.pages[key]
	c.mu.Unlock()
	if ok {
		return p, pageIdx * pageSize, nil
	}

	start := pageIdx * pageSize
	end := start + pageSize
	if end > k.Length {
		end = k.Length
	}
	raw, err := c.readResidues(k, start, end)
	if err != nil {
		return nil, 0, err
	}
	p = fillPage(raw)

	c.mu.Lock()
	if existing, ok := c.pages[key]; ok {
		p = existing
	} else {
		c.pages[key] = p
	}
	c.mu.Unlock()
	return p, start, nil
}

// readResidues reads the residue bytes [start,end) of sequence k from its
// underlying element file, stripping FASTA line-wrap newlines, exploiting
// the dataset-wide uniform line length for O(1) offset computation when one
// is recorded (spec.md §4.B).
func (c *sparseCache) readResidues(k Key, start, end int) ([]byte, error) {
	if start >= end {
		return nil, nil
	}
	if k.ElementID < 0 || k.ElementID >= len(c.elements) {
		return nil, seedcore.Errorf(seedcore.IoError, "element id %d out of range", k.ElementID)
	}
	r := c.elements[k.ElementID]

	if k.LineLength <= 0 {
		// No uniform wrap width for this record: read its whole raw span
		// once and strip newlines, since irregular line widths rule out
		// O(1) offset arithmetic. This also correctly covers truly
		// unwrapped records, where RawLength == Length.
		raw := make([]byte, k.RawLength)
		c.ioMu.Lock()
		_, err := r.ReadAt(raw, k.ElementOffset)
		c.ioMu.Unlock()
		if err != nil {
			return nil, seedcore.Wrap(seedcore.ShortRead, err)
		}
		clean := make([]byte, 0, k.Length)
		for _, b := range raw {
			if b == '\n' || b == '\r' {
				continue
			}
			clean = append(clean, b)
		}
		if len(clean) != k.Length {
			return nil, seedcore.Errorf(seedcore.IoError,
				"irregular-wrap scan produced %d residues, want %d", len(clean), k.Length)
		}
		if end > len(clean) {
			end = len(clean)
		}
		return clean[start:end], nil
	}

	byteStart := k.ElementOffset + int64(start) + int64(start/k.LineLength)
	lastResidue := end - 1
	byteEnd := k.ElementOffset + int64(lastResidue) + int64(lastResidue/k.LineLength) + 1

	raw := make([]byte, byteEnd-byteStart)
	c.ioMu.Lock()
	_, err := r.ReadAt(raw, byteStart)
	c.ioMu.Unlock()
	if err != nil {
		return nil, seedcore.Wrap(seedcore.ShortRead, err)
	}

	out := make([]byte, 0, end-start)
	for _, b := range raw {
		if b == '\n' || b == '\r' {
			continue
		}
		out = append(out, b)
	}
	if len(out) != end-start {
		return nil, seedcore.Errorf(seedcore.IoError,
			"line-wrap offset computation produced %d residues, want %d", len(out), end-start)
	}
	return out, nil
}

// copyRange fills dst with the residues [start, start+len(dst)) of
// sequence k, spanning pages as needed.
func (c *sparseCache) copyRange(k Key, start int, dst []byte) error {
	remaining := dst
	pos := start
	for len(remaining) > 0 {
		p, pageStart, err := c.page(k, pos)
		if err != nil {
			return err
		}
		offsetInPage := pos - pageStart
		n := p.length - offsetInPage
		if n > len(remaining) {
			n = len(remaining)
		}
		if n <= 0 {
			return seedcore.Errorf(seedcore.IoError, "short page at position %d", pos)
		}
		p.copy(offsetInPage, remaining[:n])
		remaining = remaining[n:]
		pos += n
	}
	return nil
}
