// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hsp builds high-scoring segment pairs (HSPs) from seed
// diagonals: greedy dropoff-trimmed extension in each of the five
// alignment modes, followed by same-diagonal merge and cobs-keyed
// duplicate rejection (spec.md §4.G). Grounded on comparison/match.c's
// Match_Type dispatch and comparison/hspset.test.c's seed/finalise
// lifecycle.
package hsp

import (
	"sort"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/rangetree"
	"github.com/kortschak/seedcore/submat"
)

// Mode selects which of the five alignment geometries a Scorer compares,
// matching comparison/match.h's Match_Type enum.
type Mode int

const (
	DNA2DNA Mode = iota
	Protein2Protein
	Protein2DNA
	DNA2Protein
	Codon2Codon
)

func (m Mode) String() string {
	switch m {
	case DNA2DNA:
		return "dna2dna"
	case Protein2Protein:
		return "protein2protein"
	case Protein2DNA:
		return "protein2dna"
	case DNA2Protein:
		return "dna2protein"
	case Codon2Codon:
		return "codon2codon"
	default:
		return "unknown"
	}
}

// Scorer composes the substitution tables and translation function one
// Mode needs to score a (query position, target position) pair, and
// reports the query/target advance (stride) each mode steps by.
type Scorer struct {
	Mode      Mode
	DNA       submat.ScoreFunc
	Protein   submat.ScoreFunc
	Translate submat.TranslateFunc
}

// Advance returns the number of query and target bytes one position of
// this mode spans: 3 on the translated side of a split mode, 1 otherwise.
func (s Scorer) Advance() (q, t int) {
	switch s.Mode {
	case Protein2DNA:
		return 1, 3
	case DNA2Protein:
		return 3, 1
	case Codon2Codon:
		return 3, 3
	default:
		return 1, 1
	}
}

// Score scores the single position (qpos, tpos), translating codons as
// the mode requires. ok is false if the position runs off either
// sequence's end.
func (s Scorer) Score(query, target []byte, qpos, tpos int) (score int, ok bool) {
	qa, ta := s.Advance()
	if qpos < 0 || tpos < 0 || qpos+qa > len(query) || tpos+ta > len(target) {
		return 0, false
	}
	switch s.Mode {
	case DNA2DNA:
		return s.DNA(query[qpos], target[tpos]), true
	case Protein2Protein:
		return s.Protein(query[qpos], target[tpos]), true
	case Protein2DNA:
		aa := s.Translate(target[tpos], target[tpos+1], target[tpos+2])
		return s.Protein(query[qpos], aa), true
	case DNA2Protein:
		aa := s.Translate(query[qpos], query[qpos+1], query[qpos+2])
		return s.Protein(aa, target[tpos]), true
	case Codon2Codon:
		aaQ := s.Translate(query[qpos], query[qpos+1], query[qpos+2])
		aaT := s.Translate(target[tpos], target[tpos+1], target[tpos+2])
		return s.Protein(aaQ, aaT), true
	default:
		return 0, false
	}
}

// extendForward walks from (qpos, tpos) inclusive in the direction of
// increasing position, returning the best cumulative score reached and
// the step count (inclusive) at which it was reached. bestLen 0 means no
// prefix of the walk reached a positive cumulative score (including when
// the starting position is already off one sequence's end).
func (s Scorer) extendForward(query, target []byte, qpos, tpos, dropoff int) (best, bestLen int) {
	qa, ta := s.Advance()
	score := 0
	length := 0
	for {
		sc, ok := s.Score(query, target, qpos, tpos)
		if !ok {
			break
		}
		score += sc
		length++
		if score > best {
			best = score
			bestLen = length
		} else if score < best-dropoff {
			break
		}
		qpos += qa
		tpos += ta
	}
	return best, bestLen
}

// extendBackward walks strictly before (qpos, tpos) in the direction of
// decreasing position, with the same best-tracking and dropoff-trimming
// as extendForward.
func (s Scorer) extendBackward(query, target []byte, qpos, tpos, dropoff int) (best, bestLen int) {
	qa, ta := s.Advance()
	score := 0
	length := 0
	for {
		qpos -= qa
		tpos -= ta
		sc, ok := s.Score(query, target, qpos, tpos)
		if !ok {
			break
		}
		score += sc
		length++
		if score > best {
			best = score
			bestLen = length
		} else if score < best-dropoff {
			break
		}
	}
	return best, bestLen
}

// Seed is a single word-match diagonal anchor: one (query, target)
// position pair an HSPSet extends outward from.
type Seed struct {
	QPos, TPos uint64
}

// HSP is one emitted high-scoring segment pair. CobsQ/CobsT mark the
// position of maximum cumulative score within the pair (spec.md §4.G),
// used as a canonical anchor for diagonal dedup and by geneseed.
type HSP struct {
	QStart, TStart uint64
	Length         uint64
	Score          int
	CobsQ, CobsT   uint64
}

func (h HSP) diagonal() int64 { return int64(h.QStart) - int64(h.TStart) }

func (h HSP) qEnd() uint64 { return h.QStart + h.Length }

// Params configures one HSPSet's extension and filtering behaviour.
type Params struct {
	Scorer    Scorer
	Threshold int // minimum trimmed score to keep an HSP
	Dropoff   int // X-drop: stop extending once running score falls this far below its running best
	WordLimit int // skip seeding from a word whose occurrence list exceeds this many hits (0: unbounded)
}

// HSPSet accumulates seeds for one (query, target) pair and, once
// Finalise is called, extends and dedups them into a final set of HSPs.
// An HSPSet is single-use: Finalise transitions it from seeding to
// finalised and it cannot be re-seeded afterward (matches
// comparison/hspset.test.c's create/seed.../finalise lifecycle).
type HSPSet struct {
	params    Params
	seeds     []Seed
	finalised bool
	hsps      []HSP
}

// New returns an empty HSPSet in seeding state.
func New(p Params) *HSPSet {
	return &HSPSet{params: p}
}

// ErrAfterFinalise is returned by SeedHSP and SeedAllQYSorted once the
// set has been finalised.
var ErrAfterFinalise = seedcore.Errorf(seedcore.AfterPrepare, "hsp: seeded after Finalise")

// SeedHSP appends a single seed diagonal at (q, t).
func (h *HSPSet) SeedHSP(q, t uint64) error {
	if h.finalised {
		return ErrAfterFinalise
	}
	h.seeds = append(h.seeds, Seed{QPos: q, TPos: t})
	return nil
}

// SeedAllQYSorted appends a batch of seeds, assumed already sorted by
// query position (matches HSPset_seed_all_qy_sorted's contract: the
// caller guarantees the order, this does not re-sort).
func (h *HSPSet) SeedAllQYSorted(seeds []Seed) error {
	if h.finalised {
		return ErrAfterFinalise
	}
	h.seeds = append(h.seeds, seeds...)
	return nil
}

// Empty reports whether the set holds no seeds.
func (h *HSPSet) Empty() bool { return len(h.seeds) == 0 }

// SeedCount returns the number of seeds accumulated so far, the quantity
// geneseed's elevated seed_repeat floor filters on (spec.md §4.H step 1).
func (h *HSPSet) SeedCount() int { return len(h.seeds) }

// Finalise extends every seed, trims to its best-scoring span, discards
// spans below Params.Threshold, deduplicates same-diagonal overlaps to
// their higher-scoring representative, and rejects duplicate (CobsQ,
// CobsT) anchors via a rangetree. Calling Finalise more than once
// returns the same result without re-extending.
func (h *HSPSet) Finalise(query, target []byte) ([]HSP, error) {
	if h.finalised {
		return h.hsps, nil
	}
	h.finalised = true

	var raw []HSP
	for _, seed := range h.seeds {
		hit, ok := h.extend(query, target, seed)
		if ok {
			raw = append(raw, hit)
		}
	}
	h.hsps = dedup(raw)
	return h.hsps, nil
}

func (h *HSPSet) extend(query, target []byte, seed Seed) (HSP, bool) {
	sc := h.params.Scorer
	qpos, tpos := int(seed.QPos), int(seed.TPos)

	fwdBest, fwdLen := sc.extendForward(query, target, qpos, tpos, h.params.Dropoff)
	if fwdLen == 0 {
		return HSP{}, false
	}
	bwdBest, bwdLen := sc.extendBackward(query, target, qpos, tpos, h.params.Dropoff)

	total := fwdBest + bwdBest
	if total < h.params.Threshold {
		return HSP{}, false
	}

	qa, ta := sc.Advance()
	qStart := qpos - bwdLen*qa
	tStart := tpos - bwdLen*ta
	length := bwdLen + fwdLen
	cobsQ, cobsT := computeCobs(sc, query, target, qStart, tStart, length)

	return HSP{
		QStart: uint64(qStart),
		TStart: uint64(tStart),
		Length: uint64(length),
		Score:  total,
		CobsQ:  cobsQ,
		CobsT:  cobsT,
	}, true
}

// computeCobs re-walks the trimmed span to find the position of maximum
// cumulative score, spec.md §4.G's "center of best score".
func computeCobs(sc Scorer, query, target []byte, qStart, tStart, length int) (cobsQ, cobsT uint64) {
	qa, ta := sc.Advance()
	score, best := 0, 0
	bestQ, bestT := qStart, tStart
	qp, tp := qStart, tStart
	for i := 0; i < length; i++ {
		s, ok := sc.Score(query, target, qp, tp)
		if !ok {
			break
		}
		score += s
		if i == 0 || score > best {
			best = score
			bestQ, bestT = qp, tp
		}
		qp += qa
		tp += ta
	}
	return uint64(bestQ), uint64(bestT)
}

// dedup merges same-diagonal overlapping HSPs to their higher-scoring
// representative, then rejects any duplicate (CobsQ, CobsT) anchor via a
// rangetree (spec.md §4.G's "Diagonal dedup").
func dedup(hsps []HSP) []HSP {
	if len(hsps) == 0 {
		return nil
	}
	byDiag := make(map[int64][]HSP)
	for _, h := range hsps {
		byDiag[h.diagonal()] = append(byDiag[h.diagonal()], h)
	}

	var merged []HSP
	for _, group := range byDiag {
		sort.Slice(group, func(i, j int) bool { return group[i].QStart < group[j].QStart })
		cur := group[0]
		for _, next := range group[1:] {
			if next.QStart <= cur.qEnd() {
				if next.Score > cur.Score {
					cur = mergeSpan(next, cur)
				} else {
					cur = mergeSpan(cur, next)
				}
				continue
			}
			merged = append(merged, cur)
			cur = next
		}
		merged = append(merged, cur)
	}

	anchors := rangetree.New()
	var out []HSP
	for _, h := range merged {
		if anchors.CheckPos(int(h.CobsQ), int(h.CobsT)) {
			continue
		}
		anchors.Add(int(h.CobsQ), int(h.CobsT), nil)
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QStart < out[j].QStart })
	return out
}

// mergeSpan keeps winner's score and cobs but widens its span to cover
// loser's extent too, so overlap merging never shrinks the diagonal's
// covered range.
func mergeSpan(winner, loser HSP) HSP {
	start := winner.QStart
	tStart := winner.TStart
	if loser.QStart < start {
		start = loser.QStart
		tStart = loser.TStart
	}
	end := winner.qEnd()
	if loser.qEnd() > end {
		end = loser.qEnd()
	}
	winner.QStart = start
	winner.TStart = tStart
	winner.Length = end - start
	return winner
}
