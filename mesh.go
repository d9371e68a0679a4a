// Package grainmesh holds the surface mesh of a labelled voxel volume:
// nodes, edges and triangles separating regions, the node to triangle
// index and quality and consistency checks over them. Extraction lives in
// package m3c and smoothing in package smooth.
package grainmesh

import (
	"math"
	"slices"
	"strconv"

	"github.com/soypat/grainmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// NodeKind classifies a mesh node by the number of regions meeting at it and
// whether it lies on the outer boundary of the voxel volume. Values follow the
// numbering used by legacy node files.
type NodeKind int8

const (
	KindUnused             NodeKind = 0
	KindDefault            NodeKind = 2
	KindTriplePoint        NodeKind = 3
	KindQuadPoint          NodeKind = 4
	KindSurfaceDefault     NodeKind = 12
	KindSurfaceTriplePoint NodeKind = 13
	KindSurfaceQuadPoint   NodeKind = 14
)

const surfaceOffset = 10

// KindFor returns the node kind of a node where nlabels distinct regions meet.
func KindFor(nlabels int, surface bool) NodeKind {
	var k NodeKind
	switch {
	case nlabels <= 0:
		return KindUnused
	case nlabels <= 2:
		k = KindDefault
	case nlabels == 3:
		k = KindTriplePoint
	default:
		k = KindQuadPoint
	}
	if surface {
		k += surfaceOffset
	}
	return k
}

// IsSurface reports whether the node lies on the boundary of the volume.
func (k NodeKind) IsSurface() bool { return k >= KindSurfaceDefault }

// IsJunction reports whether three or more regions meet at the node.
func (k NodeKind) IsJunction() bool {
	base := k
	if k.IsSurface() {
		base -= surfaceOffset
	}
	return base == KindTriplePoint || base == KindQuadPoint
}

func (k NodeKind) String() string {
	switch k {
	case KindUnused:
		return "unused"
	case KindDefault:
		return "default"
	case KindTriplePoint:
		return "triple"
	case KindQuadPoint:
		return "quad"
	case KindSurfaceDefault:
		return "surface-default"
	case KindSurfaceTriplePoint:
		return "surface-triple"
	case KindSurfaceQuadPoint:
		return "surface-quad"
	}
	return "NodeKind(" + strconv.Itoa(int(k)) + ")"
}

// Node is a mesh vertex.
type Node struct {
	Pos  r3.Vec
	Kind NodeKind
}

// EdgeKind tells where an edge lies relative to the voxel lattice.
type EdgeKind uint8

const (
	// EdgeFace edges lie on a lattice square.
	EdgeFace EdgeKind = iota
	// EdgeInterior edges cross the inside of a lattice cube.
	EdgeInterior
)

// NoLabel marks an absent region label.
const NoLabel int32 = math.MinInt32

// Edge is a unique undirected mesh edge.
type Edge struct {
	Nodes [2]int32
	Kind  EdgeKind
	// Labels is the (high, low) pair separated by the edge. Edges on a
	// junction line between three or more regions carry NoLabel twice.
	Labels [2]int32
}

// IsJunction reports whether the edge lies on a triple line.
func (e Edge) IsJunction() bool { return e.Labels[0] == NoLabel }

// Triangle is a mesh face separating two regions.
type Triangle struct {
	Verts [3]int32
	// Edges[i] indexes the mesh edge from Verts[i] to Verts[(i+1)%3].
	Edges [3]int64
	// Labels holds the (high, low) region pair. The right hand normal of
	// Verts points into the region of Labels[0].
	Labels [2]int32
	// EdgePlace bit i is set when Edges[i] is an EdgeFace edge.
	EdgePlace uint8
}

// Flip swaps the triangle labels and reverses its winding so that the
// orientation convention still holds. Flipping twice is a no-op.
func (t *Triangle) Flip() {
	t.Labels[0], t.Labels[1] = t.Labels[1], t.Labels[0]
	t.Verts[1], t.Verts[2] = t.Verts[2], t.Verts[1]
	t.Edges[0], t.Edges[2] = t.Edges[2], t.Edges[0]
	p := t.EdgePlace
	t.EdgePlace = p&0b010 | (p&1)<<2 | (p>>2)&1
}

// HasLabel reports whether the triangle bounds region l.
func (t Triangle) HasLabel(l int32) bool { return t.Labels[0] == l || t.Labels[1] == l }

// Mesh is the surface mesh of a labelled volume.
type Mesh struct {
	Nodes     []Node
	Edges     []Edge
	Triangles []Triangle
}

// Triangle3 returns the vertex positions of the ith triangle.
func (m *Mesh) Triangle3(i int) [3]r3.Vec {
	t := m.Triangles[i]
	return [3]r3.Vec{
		m.Nodes[t.Verts[0]].Pos,
		m.Nodes[t.Verts[1]].Pos,
		m.Nodes[t.Verts[2]].Pos,
	}
}

// Normal returns the unit normal of the ith triangle. It points into the
// region of the triangle's first label.
func (m *Mesh) Normal(i int) r3.Vec {
	return d3.Triangle(m.Triangle3(i)).Normal()
}

// Bounds returns the bounding box of the mesh nodes.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Nodes) == 0 {
		return r3.Box{}
	}
	bb := d3.Box{Min: m.Nodes[0].Pos, Max: m.Nodes[0].Pos}
	for _, n := range m.Nodes[1:] {
		bb = bb.Include(n.Pos)
	}
	return r3.Box(bb)
}

// Labels returns the sorted set of region labels bounded by the mesh.
func (m *Mesh) Labels() []int32 {
	seen := make(map[int32]struct{})
	var labels []int32
	for _, t := range m.Triangles {
		for _, l := range t.Labels {
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				labels = append(labels, l)
			}
		}
	}
	slices.Sort(labels)
	return labels
}

// Positions returns a copy of the node positions.
func (m *Mesh) Positions() []r3.Vec {
	pos := make([]r3.Vec, len(m.Nodes))
	for i := range m.Nodes {
		pos[i] = m.Nodes[i].Pos
	}
	return pos
}

// Links builds the vertex to triangle index of the mesh.
func (m *Mesh) Links() *VertexLinks {
	return NewVertexLinks(len(m.Nodes), m.Triangles)
}
