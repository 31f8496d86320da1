// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package seeder coordinates turning one set of loaded queries into HSPs
// against a stream of targets: an in-memory word index built by walking
// each query through a shared automaton, a per-word saturation mailbox
// distinct from index-time desaturation, and an optional neighborhood
// expansion linking approximate word matches back to their exact-match
// owners (spec.md §4.I). Grounded on comparison/seeder.c's
// Seeder_WordInfo/Seeder_add_query/Seeder_add_target state machine.
package seeder

import (
	"sync"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/automaton"
	"github.com/kortschak/seedcore/hsp"
	"github.com/kortschak/seedcore/neighborhood"
)

// state is the query lifecycle spec.md §4.I names:
// FREE -> LOADING [AddQuery*] -> READY [Prepare] -> SCANNING [AddTarget*] -> DONE [Close].
type state int

const (
	stateFree state = iota
	stateLoading
	stateReady
	stateScanning
	stateDone
)

// ToPos maps the end position of a just-matched word (the automaton's
// raw scan index) to the coordinate a seed should be recorded at: the
// word's start in untranslated coordinates, or a translated frame's
// underlying nucleotide coordinate. IdentityPos covers the common
// untranslated case.
type ToPos func(wordEnd int) uint64

// IdentityPos returns a ToPos for untranslated frames, converting a
// matched word's end position to its start: wordEnd - depth + 1.
func IdentityPos(depth int) ToPos {
	return func(end int) uint64 { return uint64(end - depth + 1) }
}

// Params configures one Seeder's automaton, optional neighborhood
// expansion, per-(query,target) HSP extension, and saturation ceilings.
type Params struct {
	// Auto recognises the fixed-length words both queries and targets
	// are scanned with.
	Auto automaton.Automaton
	// Neighbourhood, if non-nil, is traversed once per distinct query
	// word (spec.md §4.I's "if this is the word's first seed") to link
	// approximate matches back to it.
	Neighbourhood      *neighborhood.Alphabet
	NeighbourThreshold int
	NeighbourDropoff   bool

	// Scorer, HSPThreshold and HSPDropoff configure every per-(query,
	// target) HSPSet's extension.
	Scorer       hsp.Scorer
	HSPThreshold int
	HSPDropoff   int

	// QueryExpect bounds a word's seed-list length during query
	// loading; exceeding it permanently blocks that word for the rest
	// of this Seeder's life. Zero disables the check.
	QueryExpect int
	// TargetExpect bounds a word's match count within a single target
	// scan (spec.md's saturation mailbox, reset every target). Zero
	// disables the check.
	TargetExpect int
	// MemoryCeiling aborts AddQuery once the seed-list memory estimate
	// would exceed it. Zero disables the check.
	MemoryCeiling int64
}

// hit is one recorded query seed: the query it belongs to and its
// coordinate-mapped position.
type hit struct {
	query int
	pos   uint64
}

// wordInfo is the seed list and neighbor links for one automaton
// accepting state, plus its saturation mailbox (spec.md §4.I).
type wordInfo struct {
	seeds      []hit
	neighbours []*wordInfo

	blocked bool // permanently blocked: query-load time saturation tripped

	matchMailbox int // last comparisonCount this word's matchCount was reset for
	matchCount   int // matches seen in the current target scan
}

// ReportFunc is called once per non-empty (query, target) comparison at
// a target's scan boundary (spec.md's "finalise and report each
// non-empty Comparison via the client-supplied callback").
type ReportFunc func(queryIndex int, hits []hsp.HSP) error

// Seeder is the query/target coordinator. The zero value is not usable;
// construct with New.
type Seeder struct {
	mu sync.Mutex

	params Params
	st     state

	words   map[uint64]*wordInfo
	queries [][]byte

	comparisonCount int

	freeWordInfo []*wordInfo
}

// New returns a Seeder in the FREE state.
func New(p Params) *Seeder {
	return &Seeder{
		params: p,
		words:  make(map[uint64]*wordInfo),
	}
}

// ErrAfterPrepare reports a query mutation attempted after Prepare.
var ErrAfterPrepare = seedcore.Errorf(seedcore.AfterPrepare, "seeder: AddQuery after Prepare")

func (s *Seeder) wordInfoFor(state uint64) *wordInfo {
	wi, ok := s.words[state]
	if ok {
		return wi
	}
	if n := len(s.freeWordInfo); n > 0 {
		wi = s.freeWordInfo[n-1]
		s.freeWordInfo = s.freeWordInfo[:n-1]
		*wi = wordInfo{matchMailbox: -1}
	} else {
		wi = &wordInfo{matchMailbox: -1}
	}
	s.words[state] = wi
	return wi
}

// stateFor computes the automaton state word would reach, using only
// the Automaton interface (Advance/IsAccepting/Word) so it works for any
// implementation, not just *automaton.VFSM.
func stateFor(auto automaton.Automaton, word []byte) (uint64, bool) {
	state := uint64(0)
	for _, b := range word {
		state = auto.Advance(state, b)
	}
	if !auto.IsAccepting(state) {
		return 0, false
	}
	got, ok := auto.Word(state)
	if !ok || string(got) != string(word) {
		return 0, false
	}
	return state, true
}

// AddQuery walks seq through the automaton, recording a seed at every
// accepting state and, for a word's first seed, linking its
// neighborhood back to it. toPos converts a match's raw end position to
// the coordinate recorded in the seed. It returns the query's index,
// used later to identify its hits in AddTarget's ReportFunc.
func (s *Seeder) AddQuery(seq []byte, toPos ToPos) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == stateFree || s.st == stateDone {
		s.st = stateLoading
	}
	if s.st != stateLoading {
		return 0, ErrAfterPrepare
	}

	qidx := len(s.queries)
	s.queries = append(s.queries, seq)

	var cur uint64
	for pos := 0; pos < len(seq); pos++ {
		cur = s.params.Auto.Advance(cur, seq[pos])
		if !s.params.Auto.IsAccepting(cur) {
			continue
		}
		wi := s.wordInfoFor(cur)
		if wi.blocked {
			continue
		}
		first := len(wi.seeds) == 0
		wi.seeds = append(wi.seeds, hit{query: qidx, pos: toPos(pos)})
		if s.params.QueryExpect > 0 && len(wi.seeds) > s.params.QueryExpect {
			wi.blocked = true
			wi.seeds = nil
		}
		if first && !wi.blocked && s.params.Neighbourhood != nil {
			word, ok := s.params.Auto.Word(cur)
			if ok {
				if err := s.linkNeighbours(word, wi); err != nil {
					return qidx, err
				}
			}
		}
	}

	if s.params.MemoryCeiling > 0 && s.memoryEstimate() > s.params.MemoryCeiling {
		return qidx, seedcore.Errorf(seedcore.MemoryBudget, "seeder: AddQuery exceeded memory ceiling")
	}
	return qidx, nil
}

// linkNeighbours traverses word's neighborhood and, for every distinct
// neighbor the automaton recognises, appends wi (the word actually
// seeded) to the neighbor's link list, so a target hit on the neighbor
// also reports against wi's seeds.
func (s *Seeder) linkNeighbours(word []byte, wi *wordInfo) error {
	return neighborhood.Enumerate(*s.params.Neighbourhood, word, s.params.NeighbourThreshold, s.params.NeighbourDropoff,
		func(nb []byte, score int) bool {
			if string(nb) == string(word) {
				return false
			}
			nstate, ok := stateFor(s.params.Auto, nb)
			if !ok {
				return false
			}
			nwi := s.wordInfoFor(nstate)
			nwi.neighbours = append(nwi.neighbours, wi)
			return false
		})
}

// memoryEstimate approximates the loaded word index's footprint: one
// hit per seed plus one pointer per neighbor link, across every word.
func (s *Seeder) memoryEstimate() int64 {
	const hitSize, ptrSize = 16, 8
	var total int64
	for _, wi := range s.words {
		total += int64(len(wi.seeds)) * hitSize
		total += int64(len(wi.neighbours)) * ptrSize
	}
	return total
}

// Prepare transitions the Seeder from LOADING to READY. Calling
// AddQuery afterward fails with ErrAfterPrepare.
func (s *Seeder) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != stateFree && s.st != stateLoading {
		return seedcore.Errorf(seedcore.AfterPrepare, "seeder: Prepare called more than once")
	}
	s.st = stateReady
	return nil
}

// AddTarget walks target through the automaton, seeds every Comparison
// (one HSPSet per hit query) implied by direct and neighbor-linked word
// matches, then finalises and reports each non-empty one through
// report, in query-index order. toPos converts a match's raw end
// position the same way AddQuery's did.
func (s *Seeder) AddTarget(target []byte, toPos ToPos, report ReportFunc) error {
	s.mu.Lock()
	if s.st == stateReady {
		s.st = stateScanning
	}
	if s.st != stateScanning {
		s.mu.Unlock()
		return seedcore.Errorf(seedcore.AfterPrepare, "seeder: AddTarget before Prepare")
	}
	s.comparisonCount++
	cc := s.comparisonCount

	comparisons := make(map[int]*hsp.HSPSet)
	var cur uint64
	for pos := 0; pos < len(target); pos++ {
		cur = s.params.Auto.Advance(cur, target[pos])
		if !s.params.Auto.IsAccepting(cur) {
			continue
		}
		wi, ok := s.words[cur]
		if !ok {
			continue
		}
		tpos := toPos(pos)
		s.visitWord(wi, cc, tpos, comparisons)
		for _, nb := range wi.neighbours {
			s.visitWord(nb, cc, tpos, comparisons)
		}
	}
	s.mu.Unlock()

	for qidx := 0; qidx < len(s.queries); qidx++ {
		set, ok := comparisons[qidx]
		if !ok || set.Empty() {
			continue
		}
		hits, err := set.Finalise(s.queries[qidx], target)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			continue
		}
		if err := report(qidx, hits); err != nil {
			return err
		}
	}
	return nil
}

// visitWord applies wi's saturation mailbox for the current target
// comparison cc, then, if not blocked, seeds a Comparison for every hit
// in wi's seed list at tpos.
func (s *Seeder) visitWord(wi *wordInfo, cc int, tpos uint64, comparisons map[int]*hsp.HSPSet) {
	if wi.matchMailbox != cc {
		wi.matchMailbox = cc
		wi.matchCount = 0
	}
	if s.params.TargetExpect > 0 {
		wi.matchCount++
		if wi.matchCount > s.params.TargetExpect {
			return
		}
	}
	for _, h := range wi.seeds {
		set, ok := comparisons[h.query]
		if !ok {
			set = hsp.New(hsp.Params{
				Scorer:    s.params.Scorer,
				Threshold: s.params.HSPThreshold,
				Dropoff:   s.params.HSPDropoff,
			})
			comparisons[h.query] = set
		}
		set.SeedHSP(h.pos, tpos)
	}
}

// Close transitions the Seeder to DONE and returns its word-info
// allocations to an internal free list rather than to the garbage
// collector. A Seeder in the DONE state accepts a further AddQuery,
// which restarts it in LOADING and draws from that free list, so calling
// Close then AddQuery on the same Seeder recycles its word-info records
// across a run of queries (spec.md §4.I's "recycling allocators for
// WordInfo ... records") instead of allocating a fresh set for each one.
func (s *Seeder) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, wi := range s.words {
		s.freeWordInfo = append(s.freeWordInfo, wi)
	}
	s.words = make(map[uint64]*wordInfo)
	s.queries = nil
	s.st = stateDone
}
