// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wordindex

import (
	"os"
	"sort"
	"sync"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/bitpack"
)

// Reader is a random-access handle onto an on-disk .esi index, opened by
// Open. Word lists are decoded by Open; occurrence data is read lazily,
// one word's occurrence list at a time, so
// opening an index costs only its header and word-list sizes, not its
// full occurrence region (spec.md §4.E).
type Reader struct {
	path   string
	dsPath string
	file   *os.File
	params Params
	depth  int

	translated bool
	forward    *strandMeta
	reverse    *strandMeta

	mu      sync.Mutex
	cacheFw []byte // preloaded raw occurrence region bytes, if Preload was called
	cacheRv []byte
}

// DatasetPath returns the path of the dataset this index was built over.
func (r *Reader) DatasetPath() string { return r.dsPath }

// Depth returns the fixed word length the index was built over.
func (r *Reader) Depth() int { return r.depth }

// Translated reports whether the index carries a reverse-complement
// strand.
func (r *Reader) Translated() bool { return r.translated }

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Strand selects which of an index's strands a lookup targets.
type Strand int

const (
	// Forward is the index's forward-strand word list.
	Forward Strand = iota
	// Reverse is the reverse-complement strand, present only when the
	// index was built translated.
	Reverse
)

func (r *Reader) strand(s Strand) (*strandMeta, error) {
	switch s {
	case Forward:
		return r.forward, nil
	case Reverse:
		if !r.translated {
			return nil, seedcore.Errorf(seedcore.InvalidAlphabet, "wordindex: index has no reverse strand")
		}
		return r.reverse, nil
	default:
		return nil, seedcore.Errorf(seedcore.InvalidAlphabet, "wordindex: unknown strand %d", s)
	}
}

// IndexEntry is one surveyed word's record: the automaton state it
// corresponds to, its observed frequency, and where its occurrence
// records begin.
type IndexEntry struct {
	State  uint64
	Freq   int64
	offset uint64
}

// Lookup returns the IndexEntry for state on the given strand, and
// whether the word was present (it may have been dropped during
// desaturation, or never seen).
func (r *Reader) Lookup(s Strand, state uint64) (IndexEntry, bool) {
	sm, err := r.strand(s)
	if err != nil {
		return IndexEntry{}, false
	}
	i := sort.Search(len(sm.words), func(i int) bool { return sm.words[i].state >= state })
	if i == len(sm.words) || sm.words[i].state != state {
		return IndexEntry{}, false
	}
	w := sm.words[i]
	return IndexEntry{State: w.state, Freq: w.freq, offset: w.offset}, true
}

// Occurrence is one (sequence index, position) hit, where sequence index
// is the position of the hit sequence in the dataset's id-sorted order.
type Occurrence struct {
	SeqIndex uint64
	Position uint64
}

// ReadOccurrences returns every occurrence recorded for entry, satisfying
// spec.md's invariant 2: len(result) == entry.Freq, and each occurrence
// addresses a substring equal to the indexed word (or one of its
// ambiguity expansions).
func (r *Reader) ReadOccurrences(s Strand, entry IndexEntry) ([]Occurrence, error) {
	sm, err := r.strand(s)
	if err != nil {
		return nil, err
	}
	recordWidth := int64(sm.numSeqsWidth) + int64(sm.maxSeqLenWidth)
	startBit := entry.offset * uint64(recordWidth)
	nBits := uint64(entry.Freq) * uint64(recordWidth)

	r.mu.Lock()
	cache := r.cacheFw
	if s == Reverse {
		cache = r.cacheRv
	}
	r.mu.Unlock()

	var reader *bitpack.Reader
	var baseBit uint64
	if cache != nil {
		reader = bitpack.NewReader(cache)
		baseBit = startBit
	} else {
		startByte := sm.occStart + int64(startBit/8)
		bitSkew := startBit % 8
		nBytes := (bitSkew + nBits + 7) / 8
		buf := make([]byte, nBytes)
		r.mu.Lock()
		_, err = r.file.ReadAt(buf, startByte)
		r.mu.Unlock()
		if err != nil {
			return nil, seedcore.Wrap(seedcore.ShortRead, err)
		}
		reader = bitpack.NewReader(buf)
		baseBit = bitSkew
	}

	out := make([]Occurrence, entry.Freq)
	off := baseBit
	for i := range out {
		seq := reader.Get(off, sm.numSeqsWidth)
		off += uint64(sm.numSeqsWidth)
		pos := reader.Get(off, sm.maxSeqLenWidth)
		off += uint64(sm.maxSeqLenWidth)
		out[i] = Occurrence{SeqIndex: seq, Position: pos}
	}
	return out, nil
}

// ReadOccurrencesInRange is ReadOccurrences filtered to only the
// occurrences whose SeqIndex falls within [loSeq, hiSeq), letting callers
// (geneseed's candidate scan) avoid materialising whole occurrence lists
// for words shared across the full dataset.
func (r *Reader) ReadOccurrencesInRange(s Strand, entry IndexEntry, loSeq, hiSeq uint64) ([]Occurrence, error) {
	all, err := r.ReadOccurrences(s, entry)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, o := range all {
		if o.SeqIndex >= loSeq && o.SeqIndex < hiSeq {
			out = append(out, o)
		}
	}
	return out, nil
}

// Preload reads a strand's entire occurrence region into memory up
// front, trading the index's configured memory ceiling for the lower
// per-lookup latency of an in-core scan (spec.md §4.E's preload_index).
// Subsequent ReadOccurrences calls on that strand read from the cached
// bytes instead of issuing a ReadAt.
func (r *Reader) Preload(s Strand) error {
	sm, err := r.strand(s)
	if err != nil {
		return err
	}
	nBytes := sm.occEnd - sm.occStart
	buf := make([]byte, nBytes)
	r.mu.Lock()
	_, err = r.file.ReadAt(buf, sm.occStart)
	r.mu.Unlock()
	if err != nil {
		return seedcore.Wrap(seedcore.ShortRead, err)
	}

	r.mu.Lock()
	if s == Forward {
		r.cacheFw = buf
	} else {
		r.cacheRv = buf
	}
	r.mu.Unlock()
	return nil
}

// WordCount returns the number of distinct words recorded on the given
// strand.
func (r *Reader) WordCount(s Strand) int {
	sm, err := r.strand(s)
	if err != nil {
		return 0
	}
	return len(sm.words)
}
