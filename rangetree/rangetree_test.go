// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rangetree

import (
	"sort"
	"testing"
)

type pt struct{ x, y int }

func bruteFind(pts []pt, xLo, xHi, yLo, yHi int) []pt {
	var out []pt
	for _, p := range pts {
		if p.x >= xLo && p.x <= xHi && p.y >= yLo && p.y <= yHi {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].x != out[j].x {
			return out[i].x < out[j].x
		}
		return out[i].y < out[j].y
	})
	return out
}

func TestFindMatchesBruteForce(t *testing.T) {
	pts := []pt{
		{1, 5}, {2, 2}, {2, 8}, {3, 3}, {5, 5}, {5, 1}, {7, 9}, {9, 0}, {4, 4}, {6, 6},
	}
	rt := New()
	for i, p := range pts {
		rt.Add(p.x, p.y, i)
	}

	boxes := [][4]int{
		{0, 10, 0, 10},
		{2, 5, 1, 6},
		{3, 3, 0, 10},
		{0, 1, 0, 1},
		{5, 9, 0, 9},
	}
	for _, b := range boxes {
		want := bruteFind(pts, b[0], b[1], b[2], b[3])
		var got []pt
		rt.Find(b[0], b[1], b[2], b[3], func(x, y int, info interface{}) bool {
			got = append(got, pt{x, y})
			return false
		})
		sort.Slice(got, func(i, j int) bool {
			if got[i].x != got[j].x {
				return got[i].x < got[j].x
			}
			return got[i].y < got[j].y
		})
		if len(got) != len(want) {
			t.Fatalf("box %v: got %v, want %v", b, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("box %v: got %v, want %v", b, got, want)
			}
		}
	}
}

func TestFindStopsEarly(t *testing.T) {
	rt := New()
	for i := 0; i < 20; i++ {
		rt.Add(i, i, nil)
	}
	calls := 0
	rt.Find(0, 19, 0, 19, func(x, y int, info interface{}) bool {
		calls++
		return true
	})
	if calls != 1 {
		t.Fatalf("Find called report %d times after stop=true, want 1", calls)
	}
}

func TestCheckPos(t *testing.T) {
	rt := New()
	rt.Add(3, 4, "a")
	rt.Add(5, 6, "b")
	if !rt.CheckPos(3, 4) {
		t.Error("CheckPos(3,4) = false, want true")
	}
	if rt.CheckPos(3, 5) {
		t.Error("CheckPos(3,5) = true, want false")
	}
}

func TestIsEmpty(t *testing.T) {
	rt := New()
	if !rt.IsEmpty() {
		t.Error("new tree is not empty")
	}
	rt.Add(1, 1, nil)
	if rt.IsEmpty() {
		t.Error("tree with one point reports empty")
	}
}

func TestTraverseVisitsEveryPoint(t *testing.T) {
	rt := New()
	n := 0
	for i := 0; i < 15; i++ {
		rt.Add(i, -i, i)
		n++
	}
	seen := make(map[int]bool)
	rt.Traverse(func(x, y int, info interface{}) bool {
		seen[info.(int)] = true
		return false
	})
	if len(seen) != n {
		t.Fatalf("Traverse visited %d points, want %d", len(seen), n)
	}
}

func TestEmptyTreeFind(t *testing.T) {
	rt := New()
	found := rt.Find(0, 10, 0, 10, func(int, int, interface{}) bool { return true })
	if found {
		t.Error("Find on empty tree reported a match")
	}
}
