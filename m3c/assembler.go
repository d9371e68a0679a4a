package m3c

import (
	"github.com/soypat/grainmesh"
)

// Assembler merges cube fragments into a single mesh with contiguous node,
// edge and triangle indices. Nodes are deduplicated by lattice key and edges
// by their node pair.
type Assembler struct {
	wrap  bool
	index map[int64]int32
	hull  []bool
	edges map[[2]int32]int64
	mesh  grainmesh.Mesh
}

// NewAssembler returns an empty Assembler. With wrap set, nodes touching
// ExteriorLabel regions are classified as surface nodes.
func NewAssembler(wrap bool) *Assembler {
	return &Assembler{
		wrap:  wrap,
		index: make(map[int64]int32),
		edges: make(map[[2]int32]int64),
	}
}

// Add merges f into the mesh. A fragment with an invalid triangle is rejected
// as a whole and leaves the Assembler unchanged.
func (a *Assembler) Add(f *Fragment) error {
	for i, t := range f.Triangles {
		if t.Labels[0] == t.Labels[1] {
			return grainmesh.NewError(grainmesh.CodeLabelPair, "fragment triangle %d separates label %d from itself", i, t.Labels[0])
		}
		for _, k := range t.Keys {
			if _, ok := a.index[k]; !ok && !fragmentHas(f, k) {
				return grainmesh.NewError(grainmesh.CodeTopology, "fragment triangle %d references unknown node key %d", i, k)
			}
		}
		if t.Keys[0] == t.Keys[1] || t.Keys[1] == t.Keys[2] || t.Keys[2] == t.Keys[0] {
			return grainmesh.NewError(grainmesh.CodeTopology, "fragment triangle %d repeats a node", i)
		}
	}
	for _, n := range f.Nodes {
		if _, ok := a.index[n.Key]; ok {
			continue
		}
		a.index[n.Key] = int32(len(a.mesh.Nodes))
		a.mesh.Nodes = append(a.mesh.Nodes, grainmesh.Node{Pos: n.Pos})
		a.hull = append(a.hull, n.Hull)
	}
	for _, ft := range f.Triangles {
		t := grainmesh.Triangle{Labels: ft.Labels, EdgePlace: ft.FaceEdges}
		for i, k := range ft.Keys {
			t.Verts[i] = a.index[k]
		}
		for i := range t.Verts {
			t.Edges[i] = a.edge(t.Verts[i], t.Verts[(i+1)%3], ft.FaceEdges>>i&1 == 1, ft.Labels)
		}
		if t.Labels[0] < t.Labels[1] {
			t.Flip()
		}
		a.mesh.Triangles = append(a.mesh.Triangles, t)
	}
	return nil
}

func fragmentHas(f *Fragment, key int64) bool {
	for i := range f.Nodes {
		if f.Nodes[i].Key == key {
			return true
		}
	}
	return false
}

func (a *Assembler) edge(u, v int32, face bool, labels [2]int32) int64 {
	key := [2]int32{u, v}
	if u > v {
		key = [2]int32{v, u}
	}
	if labels[0] < labels[1] {
		labels[0], labels[1] = labels[1], labels[0]
	}
	ei, ok := a.edges[key]
	if !ok {
		ei = int64(len(a.mesh.Edges))
		a.edges[key] = ei
		kind := grainmesh.EdgeInterior
		if face {
			kind = grainmesh.EdgeFace
		}
		a.mesh.Edges = append(a.mesh.Edges, grainmesh.Edge{Nodes: key, Kind: kind, Labels: labels})
		return ei
	}
	e := &a.mesh.Edges[ei]
	if face {
		e.Kind = grainmesh.EdgeFace
	}
	if e.Labels != labels {
		e.Labels = [2]int32{grainmesh.NoLabel, grainmesh.NoLabel}
	}
	return ei
}

// NumNodes returns the number of distinct nodes merged so far.
func (a *Assembler) NumNodes() int { return len(a.mesh.Nodes) }

// Finish classifies the nodes and returns the assembled mesh with its vertex
// links. The Assembler must not be used afterwards.
func (a *Assembler) Finish() (*grainmesh.Mesh, *grainmesh.VertexLinks) {
	m := &a.mesh
	links := grainmesh.NewVertexLinks(len(m.Nodes), m.Triangles)
	var labels []int32
	for n := range m.Nodes {
		labels = labels[:0]
		for _, ti := range links.Cells(n) {
			for _, l := range m.Triangles[ti].Labels {
				if !containsLabel(labels, l) {
					labels = append(labels, l)
				}
			}
		}
		surface := a.hull[n] || (a.wrap && containsLabel(labels, ExteriorLabel))
		m.Nodes[n].Kind = grainmesh.KindFor(len(labels), surface)
	}
	a.index, a.edges, a.hull = nil, nil, nil
	return m, links
}

func containsLabel(s []int32, l int32) bool {
	for _, v := range s {
		if v == l {
			return true
		}
	}
	return false
}
