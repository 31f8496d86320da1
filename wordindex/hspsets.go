// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wordindex

import (
	"sort"

	"github.com/kortschak/seedcore/alphabet"
	"github.com/kortschak/seedcore/automaton"
	"github.com/kortschak/seedcore/geneseed"
	"github.com/kortschak/seedcore/hsp"
)

// HSPParam bundles the scoring configuration and word automaton
// GetHSPSets and GetHSPSetsGeneseed need on top of the Reader's own index
// parameters. The automaton isn't serialized into the .esi file (spec.md
// §6's header records only depth, jump, ambiguity and saturation, not the
// automaton itself), so the caller supplies the same fixed-depth automaton
// the index was built against, exactly as cmd/seedcore-seed already does
// for the seeder package.
type HSPParam struct {
	Auto      automaton.Automaton
	Scorer    hsp.Scorer
	Threshold int
	Dropoff   int
	WordLimit int
	// MinSeeds drops a target's HSPSet before it is even built unless it
	// accumulated at least this many seed diagonals (comparison/index.c's
	// Index_get_HSPset "has->seed_repeat" check, shared by both the plain
	// and geneseed entry points). Zero means no minimum.
	MinSeeds int
}

// IndexHSPSet is one target's seeded result from GetHSPSets: which
// sequence in the dataset it names, whether it was matched against the
// reverse-complement strand (in which case the target bytes passed to
// Set.Finalise must themselves be reverse-complemented first, matching
// comparison/index.c's Index_get_HSPset "target = Sequence_revcomp(target)"
// when revcomp_target is set), and the HSPSet itself, seeded but not yet
// finalised.
type IndexHSPSet struct {
	TargetIndex uint64
	Reverse     bool
	Set         *hsp.HSPSet
}

// GetHSPSets implements spec.md §6's Index::get_hspsets: scan query
// against the forward strand's persisted occurrence lists (and the
// reverse-complement strand too when revcompTarget is set and the index
// carries one), grouping every matched occurrence by the target sequence
// it falls in, and return one seeded HSPSet per target that clears
// p.MinSeeds. Sets are seeded but not finalised: call Set.Finalise(query,
// target) — using the reverse complement of target when Reverse is true —
// to extend them into HSPs.
func (r *Reader) GetHSPSets(p HSPParam, query []byte, revcompTarget bool) ([]IndexHSPSet, error) {
	bySeq := make(map[uint64][]hsp.Seed)
	if err := r.scanWords(p, query, Forward, bySeq); err != nil {
		return nil, err
	}
	reverseSeqs := make(map[uint64]bool)
	if revcompTarget && r.translated {
		revBySeq := make(map[uint64][]hsp.Seed)
		if err := r.scanWords(p, query, Reverse, revBySeq); err != nil {
			return nil, err
		}
		for seqIdx, seeds := range revBySeq {
			bySeq[seqIdx] = append(bySeq[seqIdx], seeds...)
			reverseSeqs[seqIdx] = true
		}
	}

	order := make([]uint64, 0, len(bySeq))
	for seqIdx := range bySeq {
		order = append(order, seqIdx)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]IndexHSPSet, 0, len(order))
	for _, seqIdx := range order {
		seeds := bySeq[seqIdx]
		if len(seeds) < p.MinSeeds {
			continue
		}
		sort.Slice(seeds, func(i, j int) bool { return seeds[i].QPos < seeds[j].QPos })
		set := hsp.New(hsp.Params{Scorer: p.Scorer, Threshold: p.Threshold, Dropoff: p.Dropoff, WordLimit: p.WordLimit})
		if err := set.SeedAllQYSorted(seeds); err != nil {
			return nil, err
		}
		out = append(out, IndexHSPSet{TargetIndex: seqIdx, Reverse: reverseSeqs[seqIdx], Set: set})
	}
	return out, nil
}

// scanWords walks query through p.Auto one symbol at a time (the same
// raw scan seeder.Seeder.AddQuery performs, rather than wordindex's
// build-time frame translation: a query is always presented to the
// automaton in the alphabet it already matches, the way cmd/seedcore-seed
// already drives it), and for every accepting state looks the word up on
// strand, filing each occurrence's seed under its target sequence index.
func (r *Reader) scanWords(p HSPParam, query []byte, strand Strand, bySeq map[uint64][]hsp.Seed) error {
	depth := r.depth
	var cur uint64
	for pos := 0; pos < len(query); pos++ {
		cur = p.Auto.Advance(cur, query[pos])
		if !p.Auto.IsAccepting(cur) {
			continue
		}
		entry, ok := r.Lookup(strand, cur)
		if !ok {
			continue
		}
		if p.WordLimit > 0 && entry.Freq > int64(p.WordLimit) {
			continue
		}
		occs, err := r.ReadOccurrences(strand, entry)
		if err != nil {
			return err
		}
		qpos := uint64(pos - depth + 1)
		for _, o := range occs {
			bySeq[o.SeqIndex] = append(bySeq[o.SeqIndex], hsp.Seed{QPos: qpos, TPos: o.Position})
		}
	}
	return nil
}

// GetHSPSetsGeneseed implements spec.md §6's Index::get_hspsets_geneseed:
// an elevated-threshold, elevated-seed-count first pass (geneseedThreshold,
// geneseedRepeat) selects confident per-target anchors, then
// geneseed.Refine grows each target's keeper set by re-seeding nearby
// regions straight off the persisted occurrence lists through
// ReadOccurrencesInRange, rather than rescanning the whole target through
// a fresh in-memory automaton walk (comparison/index.c's
// Index_get_HSPsets_geneseed / Index_Geneseed_get_regions).
func (r *Reader) GetHSPSetsGeneseed(ds sequenceSource, p HSPParam, query []byte, revcompTarget bool,
	geneseedThreshold, geneseedRepeat, maxQuerySpan, maxTargetSpan int) ([]IndexHSPSet, error) {

	anchorParam := p
	anchorParam.Threshold = geneseedThreshold
	anchorParam.MinSeeds = geneseedRepeat

	initial, err := r.GetHSPSets(anchorParam, query, revcompTarget)
	if err != nil {
		return nil, err
	}
	if len(initial) == 0 {
		return nil, nil
	}

	seqs := ds.Sequences()
	out := make([]IndexHSPSet, 0, len(initial))
	for _, ihs := range initial {
		target, err := ds.Fetch(seqs[ihs.TargetIndex].ID)
		if err != nil {
			return nil, err
		}
		if ihs.Reverse {
			target = alphabet.ReverseComplement(target)
		}

		anchors, err := geneseed.SelectAnchors([]*hsp.HSPSet{ihs.Set}, geneseedRepeat, query, target)
		if err != nil {
			return nil, err
		}
		if len(anchors) == 0 {
			continue
		}

		strand := Forward
		if ihs.Reverse {
			strand = Reverse
		}
		reseed := r.reseederFor(p, strand, ihs.TargetIndex, query, target)

		hits, err := geneseed.Refine(anchors, len(target), geneseed.Params{
			MaxQuerySpan:  maxQuerySpan,
			MaxTargetSpan: maxTargetSpan,
		}, reseed)
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			continue
		}

		seeds := make([]hsp.Seed, len(hits))
		for i, h := range hits {
			seeds[i] = hsp.Seed{QPos: h.QStart, TPos: h.TStart}
		}
		sort.Slice(seeds, func(i, j int) bool { return seeds[i].QPos < seeds[j].QPos })

		set := hsp.New(hsp.Params{Scorer: p.Scorer, Threshold: p.Threshold, Dropoff: p.Dropoff, WordLimit: p.WordLimit})
		if err := set.SeedAllQYSorted(seeds); err != nil {
			return nil, err
		}
		if _, err := set.Finalise(query, target); err != nil {
			return nil, err
		}
		out = append(out, IndexHSPSet{TargetIndex: ihs.TargetIndex, Reverse: ihs.Reverse, Set: set})
	}
	return out, nil
}

// reseederFor returns a geneseed.Reseeder that re-seeds query against a
// requested sub-region of target by reading just that target's occurrence
// list (ReadOccurrencesInRange, restricted to [targetIdx, targetIdx+1)
// rather than the whole strand) and filtering locally to the region's
// position range, then extends the result at the caller's normal (lower)
// threshold — spec.md's "read_occurrences with the interval filter" step.
func (r *Reader) reseederFor(p HSPParam, strand Strand, targetIdx uint64, query, target []byte) geneseed.Reseeder {
	depth := r.depth
	return func(region geneseed.Span) ([]hsp.HSP, error) {
		if region.Start >= region.End || region.End > len(target) {
			return nil, nil
		}
		var seeds []hsp.Seed
		var cur uint64
		for pos := 0; pos < len(query); pos++ {
			cur = p.Auto.Advance(cur, query[pos])
			if !p.Auto.IsAccepting(cur) {
				continue
			}
			entry, ok := r.Lookup(strand, cur)
			if !ok {
				continue
			}
			occs, err := r.ReadOccurrencesInRange(strand, entry, targetIdx, targetIdx+1)
			if err != nil {
				return nil, err
			}
			qpos := uint64(pos - depth + 1)
			for _, o := range occs {
				if int(o.Position) < region.Start || int(o.Position) >= region.End {
					continue
				}
				seeds = append(seeds, hsp.Seed{QPos: qpos, TPos: o.Position})
			}
		}
		if len(seeds) == 0 {
			return nil, nil
		}
		sort.Slice(seeds, func(i, j int) bool { return seeds[i].QPos < seeds[j].QPos })

		set := hsp.New(hsp.Params{Scorer: p.Scorer, Threshold: p.Threshold, Dropoff: p.Dropoff, WordLimit: p.WordLimit})
		if err := set.SeedAllQYSorted(seeds); err != nil {
			return nil, err
		}
		return set.Finalise(query, target)
	}
}
