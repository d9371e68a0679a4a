package grainmesh

import (
	"fmt"
	"math"

	"github.com/soypat/grainmesh/internal/kdpoint"
)

type edgeUse struct {
	tri     int32
	forward bool // triangle traverses the edge from low to high node index.
}

// Verify checks the structural invariants of m: valid distinct triangle
// vertices, distinct labels, consistent edge references and, for every
// region, a manifold and consistently wound boundary. Each mesh edge may be
// shared by at most two triangles bounding the same region, and those two
// must traverse it in opposite directions relative to that region.
func Verify(m *Mesh) error {
	nn := int32(len(m.Nodes))
	uses := make(map[[2]int32][]edgeUse)
	for ti, t := range m.Triangles {
		for i, v := range t.Verts {
			if v < 0 || v >= nn {
				return NewError(CodeTopology, "triangle %d vertex %d out of range", ti, v)
			}
			if v == t.Verts[(i+1)%3] {
				return NewError(CodeTopology, "triangle %d repeats vertex %d", ti, v)
			}
		}
		if t.Labels[0] == t.Labels[1] {
			return NewError(CodeLabelPair, "triangle %d separates label %d from itself", ti, t.Labels[0])
		}
		for i := range t.Verts {
			a, b := t.Verts[i], t.Verts[(i+1)%3]
			key := [2]int32{a, b}
			if a > b {
				key = [2]int32{b, a}
			}
			uses[key] = append(uses[key], edgeUse{tri: int32(ti), forward: a < b})
			if len(m.Edges) == 0 {
				continue
			}
			ei := t.Edges[i]
			if ei < 0 || ei >= int64(len(m.Edges)) || m.Edges[ei].Nodes != key {
				return NewError(CodeTopology, "triangle %d edge %d does not reference edge %v", ti, i, key)
			}
		}
	}
	var labels [8]int32
	for key, us := range uses {
		// Gather the distinct labels around the edge.
		nl := labels[:0]
		for _, u := range us {
			for _, l := range m.Triangles[u.tri].Labels {
				if !containsLabel(nl, l) {
					nl = append(nl, l)
				}
			}
		}
		for _, l := range nl {
			var found [2]edgeUse
			n := 0
			for _, u := range us {
				if !m.Triangles[u.tri].HasLabel(l) {
					continue
				}
				if n == 2 {
					return NewError(CodeTopology, "edge %v has more than two triangles bounding label %d", key, l)
				}
				found[n] = u
				n++
			}
			if n == 2 && orientation(m, found[0], l) == orientation(m, found[1], l) {
				return NewError(CodeTopology, "triangles %d and %d bounding label %d are wound inconsistently across edge %v",
					found[0].tri, found[1].tri, l, key)
			}
		}
	}
	return nil
}

// orientation returns the direction the edge is traversed as seen from region l.
func orientation(m *Mesh, u edgeUse, l int32) bool {
	return u.forward == (m.Triangles[u.tri].Labels[0] == l)
}

func containsLabel(s []int32, l int32) bool {
	for _, v := range s {
		if v == l {
			return true
		}
	}
	return false
}

// DuplicateNodes returns the pairs of distinct nodes closer than tol to
// each other. A mesh built from a voxel lattice should have none.
func DuplicateNodes(m *Mesh, tol float64) ([][2]int, error) {
	if tol < 0 || math.IsNaN(tol) {
		return nil, fmt.Errorf("invalid tolerance %g", tol)
	}
	if len(m.Nodes) < 2 {
		return nil, nil
	}
	tree := kdpoint.Tree(m.Positions())
	var dups [][2]int
	for i, n := range m.Nodes {
		for _, j := range kdpoint.Within(tree, n.Pos, tol) {
			if j > i {
				dups = append(dups, [2]int{i, j})
			}
		}
	}
	return dups, nil
}
