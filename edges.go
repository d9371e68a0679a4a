package grainmesh

// BuildEdges rebuilds the edge list of m and the edge references of its
// triangles from triangle connectivity alone. Lattice placement is not
// recoverable from connectivity, so every edge gets EdgeInterior and
// triangle EdgePlace is cleared.
func BuildEdges(m *Mesh) {
	index := make(map[[2]int32]int64, len(m.Triangles)*3/2)
	m.Edges = m.Edges[:0]
	for ti := range m.Triangles {
		t := &m.Triangles[ti]
		t.EdgePlace = 0
		labels := t.Labels
		if labels[0] < labels[1] {
			labels[0], labels[1] = labels[1], labels[0]
		}
		for i := range t.Verts {
			u, v := t.Verts[i], t.Verts[(i+1)%3]
			key := [2]int32{u, v}
			if u > v {
				key = [2]int32{v, u}
			}
			ei, ok := index[key]
			if !ok {
				ei = int64(len(m.Edges))
				index[key] = ei
				m.Edges = append(m.Edges, Edge{Nodes: key, Kind: EdgeInterior, Labels: labels})
			} else if m.Edges[ei].Labels != labels {
				m.Edges[ei].Labels = [2]int32{NoLabel, NoLabel}
			}
			t.Edges[i] = ei
		}
	}
}
