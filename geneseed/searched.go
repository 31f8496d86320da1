// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geneseed

import (
	"sort"

	"github.com/biogo/store/interval"
)

// Span is a half-open [Start, End) region on a target sequence.
type Span struct {
	Start, End int
}

func (s Span) Len() int { return s.End - s.Start }

// coveredSpan is the interval.IntInterface backing one entry of a
// searched set: a single maximal already-covered run.
type coveredSpan struct {
	start, end int
	id         uintptr
}

func (s coveredSpan) ID() uintptr { return s.id }
func (s coveredSpan) Range() interval.IntRange {
	return interval.IntRange{Start: s.start, End: s.end}
}
func (s coveredSpan) Overlap(b interval.IntRange) bool {
	return s.end > b.Start && s.start < b.End
}

// searched tracks the non-overlapping union of target regions already
// scanned for one target sequence (spec.md §4.H's "non-overlapping
// interval tree tracking 'already searched' regions"), wrapping
// biogo/store/interval.IntTree the way cmd/rinse and cmd/press-global
// index GFF features. Unlike those read-only uses, searched mutates: each
// Add call unions in a new region and coalesces it with whatever it
// overlaps.
type searched struct {
	tree   *interval.IntTree
	nextID uintptr
}

func newSearched() *searched {
	return &searched{tree: &interval.IntTree{}, nextID: 1}
}

// Add unions [start, end) into the searched set, returning the delta:
// the sub-spans of [start, end) that were not already covered (spec.md
// §4.H step 3a, "the delta ... is what needs scanning"). Add is a no-op
// returning nil for an empty or reversed range.
func (s *searched) Add(start, end int) []Span {
	if start >= end {
		return nil
	}
	overlapping := s.tree.Get(interval.IntRange{Start: start, End: end})

	lo, hi := start, end
	existing := make([]coveredSpan, 0, len(overlapping))
	for _, iv := range overlapping {
		cs := iv.(coveredSpan)
		if cs.start < lo {
			lo = cs.start
		}
		if cs.end > hi {
			hi = cs.end
		}
		existing = append(existing, cs)
		s.tree.Delete(cs, true)
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].start < existing[j].start })

	var delta []Span
	cursor := start
	for _, cs := range existing {
		if cs.start > cursor {
			delta = append(delta, Span{Start: cursor, End: cs.start})
		}
		if cs.end > cursor {
			cursor = cs.end
		}
	}
	if cursor < end {
		delta = append(delta, Span{Start: cursor, End: end})
	}

	merged := coveredSpan{start: lo, end: hi, id: s.nextID}
	s.nextID++
	s.tree.Insert(merged, true)
	s.tree.AdjustRanges()
	return delta
}
