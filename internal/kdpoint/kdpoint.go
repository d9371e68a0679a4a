// Package kdpoint adapts indexed 3D points to gonum's kd-tree.
package kdpoint

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a kd-tree point carrying the index of the item it was built from.
// Query points use ID -1.
type Point struct {
	P  kdtree.Point
	ID int
}

// At returns the point at v with identifier id.
func At(v r3.Vec, id int) Point {
	return Point{P: kdtree.Point{v.X, v.Y, v.Z}, ID: id}
}

func (p Point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.P.Compare(c.(Point).P, d)
}
func (p Point) Dims() int { return 3 }
func (p Point) Distance(c kdtree.Comparable) float64 {
	return p.P.Distance(c.(Point).P)
}

// Points implements kdtree.Interface. Building a tree reorders it.
type Points []Point

// Tree builds a kd-tree over pos with every point's ID set to its index in pos.
func Tree(pos []r3.Vec) *kdtree.Tree {
	pts := make(Points, len(pos))
	for i, v := range pos {
		pts[i] = At(v, i)
	}
	return kdtree.New(pts, false)
}

// Nearest returns the ID of the point in t closest to v and the squared
// distance to it. It returns -1 for an empty tree.
func Nearest(t *kdtree.Tree, v r3.Vec) (id int, dist2 float64) {
	got, d := t.Nearest(At(v, -1))
	if got == nil {
		return -1, d
	}
	return got.(Point).ID, d
}

// Within returns the IDs of the points of t within distance r of v.
func Within(t *kdtree.Tree, v r3.Vec, r float64) []int {
	keep := kdtree.NewDistKeeper(r * r)
	t.NearestSet(keep, At(v, -1))
	var ids []int
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		ids = append(ids, c.Comparable.(Point).ID)
	}
	return ids
}

func (p Points) Index(i int) kdtree.Comparable { return p[i] }
func (p Points) Len() int                      { return len(p) }
func (p Points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{points: p, dim: d}, kdtree.MedianOfMedians(plane{points: p, dim: d}))
}
func (p Points) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	points Points
	dim    kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.points[i].P[p.dim] < p.points[j].P[p.dim] }
func (p plane) Len() int           { return len(p.points) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
