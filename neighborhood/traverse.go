// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package neighborhood

import "github.com/kortschak/seedcore"

// Enumerate runs the pruned DFS described in spec.md §4.F over word,
// invoking visit for every neighbor within the threshold. threshold and
// dropoff select one of the two membership conditions:
//
//   - dropoff=false: Σ alph.Score(word[i], w'[i]) ≥ threshold
//   - dropoff=true:  selfScore(word) − Σ alph.Score(word[i], w'[i]) ≤ threshold
//
// word's length must be a multiple of alph.Advance.
func Enumerate(alph Alphabet, word []byte, threshold int, dropoff bool, visit Visitor) error {
	if len(alph.Members) == 0 {
		return seedcore.Errorf(seedcore.InvalidAlphabet, "neighborhood: empty alphabet")
	}
	if len(word)%alph.Advance != 0 {
		return seedcore.Errorf(seedcore.InvalidAlphabet, "neighborhood: word length %d not a multiple of advance %d", len(word), alph.Advance)
	}
	for i := 0; i < len(word); i += alph.Advance {
		if !isMember(alph, word[i:i+alph.Advance]) {
			return nil // matches WordHood_word_is_valid: silently skip invalid words
		}
	}

	actualThreshold := threshold
	if dropoff {
		actualThreshold = selfScore(alph, word) - threshold
	}

	t := newTraverser(alph, word, actualThreshold)
	t.run(visit)
	return nil
}

func isMember(alph Alphabet, pos []byte) bool {
	for _, m := range alph.Members {
		if string(m) == string(pos) {
			return true
		}
	}
	return false
}

func selfScore(alph Alphabet, word []byte) int {
	score := 0
	for i := 0; i < len(word); i += alph.Advance {
		score += alph.Score(word[i:i+alph.Advance], word[i:i+alph.Advance])
	}
	return score
}

// traverser holds the mutable state of one enumeration: the original word,
// the candidate word being built, the per-position suffix-optimistic
// threshold, and the current position and partial score.
type traverser struct {
	alph     Alphabet
	orig     []byte
	curr     []byte
	depthMin []int // depthMin[pos] = actualThreshold - best possible score of positions > pos
	index    map[string]int

	pos   int
	score int
}

func newTraverser(alph Alphabet, word []byte, actualThreshold int) *traverser {
	positions := len(word) / alph.Advance
	depthMin := make([]int, positions)
	depthMin[positions-1] = actualThreshold
	for i := positions - 2; i >= 0; i-- {
		next := (i + 1) * alph.Advance
		self := alph.Score(word[next:next+alph.Advance], word[next:next+alph.Advance])
		depthMin[i] = depthMin[i+1] - self
	}
	index := make(map[string]int, len(alph.Members))
	for i, m := range alph.Members {
		index[string(m)] = i
	}
	return &traverser{
		alph:     alph,
		orig:     word,
		curr:     append([]byte(nil), word...),
		depthMin: depthMin,
		index:    index,
	}
}

func (t *traverser) adv() int { return t.alph.Advance }

func (t *traverser) posAt(p int) []byte { return t.curr[p*t.adv() : p*t.adv()+t.adv()] }

func (t *traverser) origAt(p int) []byte { return t.orig[p*t.adv() : p*t.adv()+t.adv()] }

func (t *traverser) scoreAt(p int) int {
	return t.alph.Score(t.origAt(p), t.posAt(p))
}

func (t *traverser) setMember(p, member int) {
	copy(t.posAt(p), t.alph.Members[member])
}

// next ascends while the current position holds the alphabet's last
// member, then advances to the next member at the position it stops on.
// It reports whether the traversal is exhausted (ascended past the root).
func (t *traverser) next() (done bool) {
	lastMember := t.alph.Members[len(t.alph.Members)-1]
	for string(t.posAt(t.pos)) == string(lastMember) {
		t.score -= t.scoreAt(t.pos)
		if t.pos == 0 {
			return true
		}
		t.pos--
	}
	t.score -= t.scoreAt(t.pos)
	member := t.memberIndex(t.posAt(t.pos)) + 1
	t.setMember(t.pos, member)
	t.score += t.scoreAt(t.pos)
	return false
}

func (t *traverser) memberIndex(pos []byte) int {
	i, ok := t.index[string(pos)]
	if !ok {
		return -1
	}
	return i
}

func (t *traverser) run(visit Visitor) {
	t.setMember(0, 0)
	t.pos = 0
	t.score = t.scoreAt(0)
	last := len(t.depthMin) - 1
	for {
		switch {
		case t.score < t.depthMin[t.pos]:
			if t.next() {
				return
			}
		case t.pos == last:
			if visit(append([]byte(nil), t.curr...), t.score) {
				return
			}
			if t.next() {
				return
			}
		default:
			t.pos++
			t.setMember(t.pos, 0)
			t.score += t.scoreAt(t.pos)
		}
	}
}
