// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rangetree implements a static 2D range tree over (x, y) integer
// points, queried by axis-aligned box (spec.md §4.H's "2D range trees give
// output-sensitive proximity queries"). It is a classic two-level range
// tree: a primary tree over points sorted on x, each node carrying a
// y-sorted slice of its subtree, both levels searched with sort.Search.
// Grounded on struct/rangetree.c's RangeTree_add/RangeTree_find contract;
// the balanced binary split on the x-sorted array replaces the original's
// unbalanced insertion BST, since points here are known ahead of each
// query round rather than truly streamed one at a time.
package rangetree

import "sort"

type point struct {
	x, y int
	info interface{}
}

// node covers the half-open index range [start, end) of the tree's
// x-sorted point array and holds that range's points re-sorted by y.
type node struct {
	start, end  int
	left, right *node
	byY         []point
}

// Tree is a 2D range tree. The zero value is an empty, ready-to-use tree.
type Tree struct {
	pts   []point
	root  *node
	dirty bool
}

// New returns an empty Tree.
func New() *Tree {
	return &Tree{}
}

// Add inserts a point carrying an arbitrary info value. The tree is
// rebuilt lazily on the next query, so a batch of Add calls costs one
// rebuild rather than one per point.
func (t *Tree) Add(x, y int, info interface{}) {
	t.pts = append(t.pts, point{x, y, info})
	t.dirty = true
}

// IsEmpty reports whether the tree holds no points.
func (t *Tree) IsEmpty() bool {
	return len(t.pts) == 0
}

func (t *Tree) rebuild() {
	sort.Slice(t.pts, func(i, j int) bool { return t.pts[i].x < t.pts[j].x })
	t.root = build(t.pts, 0)
	t.dirty = false
}

func build(pts []point, start int) *node {
	if len(pts) == 0 {
		return nil
	}
	byY := append([]point(nil), pts...)
	sort.Slice(byY, func(i, j int) bool { return byY[i].y < byY[j].y })
	n := &node{start: start, end: start + len(pts), byY: byY}
	if len(pts) == 1 {
		return n
	}
	mid := len(pts) / 2
	n.left = build(pts[:mid], start)
	n.right = build(pts[mid:], start+mid)
	return n
}

// ReportFunc is called once per point found by Find or Traverse. Returning
// true stops the search early.
type ReportFunc func(x, y int, info interface{}) (stop bool)

// Find calls report for every point with x in [xLo,xHi] and y in
// [yLo,yHi], in unspecified order. It returns true if report returned true
// for some point, stopping the search early (matches
// struct/rangetree.h's RangeTree_find).
func (t *Tree) Find(xLo, xHi, yLo, yHi int, report ReportFunc) bool {
	if t.dirty {
		t.rebuild()
	}
	if t.root == nil {
		return false
	}
	lo := sort.Search(len(t.pts), func(i int) bool { return t.pts[i].x >= xLo })
	hi := sort.Search(len(t.pts), func(i int) bool { return t.pts[i].x > xHi })
	if lo >= hi {
		return false
	}
	return findRange(t.root, lo, hi, yLo, yHi, report)
}

func findRange(n *node, lo, hi, yLo, yHi int, report ReportFunc) bool {
	if n == nil || n.end <= lo || n.start >= hi {
		return false
	}
	if lo <= n.start && n.end <= hi {
		return scanY(n.byY, yLo, yHi, report)
	}
	if findRange(n.left, lo, hi, yLo, yHi, report) {
		return true
	}
	return findRange(n.right, lo, hi, yLo, yHi, report)
}

func scanY(pts []point, yLo, yHi int, report ReportFunc) bool {
	start := sort.Search(len(pts), func(i int) bool { return pts[i].y >= yLo })
	for i := start; i < len(pts) && pts[i].y <= yHi; i++ {
		if report(pts[i].x, pts[i].y, pts[i].info) {
			return true
		}
	}
	return false
}

// CheckPos reports whether (x, y) is present in the tree, without
// otherwise filtering by a box (matches RangeTree_check_pos).
func (t *Tree) CheckPos(x, y int) bool {
	return t.Find(x, x, y, y, func(int, int, interface{}) bool { return true })
}

// Traverse calls report for every point in the tree, in unspecified
// order, stopping early if report returns true.
func (t *Tree) Traverse(report ReportFunc) bool {
	if t.dirty {
		t.rebuild()
	}
	for _, p := range t.pts {
		if report(p.x, p.y, p.info) {
			return true
		}
	}
	return false
}
