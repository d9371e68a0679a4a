package grainmesh

// VertexLinks maps each node to the triangles referencing it. All triangle
// indices live in one shared array partitioned per node. It is immutable:
// any topology change needs a new VertexLinks.
type VertexLinks struct {
	// offsets[n]:offsets[n+1] is the range of node n in cells.
	offsets []int32
	cells   []int32
}

// NewVertexLinks indexes triangles over numNodes nodes. It panics if a
// triangle references a node out of range.
func NewVertexLinks(numNodes int, triangles []Triangle) *VertexLinks {
	offsets := make([]int32, numNodes+1)
	// Counting pass.
	for _, t := range triangles {
		for _, v := range t.Verts {
			if v < 0 || int(v) >= numNodes {
				panic("triangle vertex index out of range")
			}
			offsets[v+1]++
		}
	}
	for n := 0; n < numNodes; n++ {
		offsets[n+1] += offsets[n]
	}
	cells := make([]int32, offsets[numNodes])
	next := make([]int32, numNodes)
	copy(next, offsets[:numNodes])
	// Fill pass.
	for ti, t := range triangles {
		for _, v := range t.Verts {
			cells[next[v]] = int32(ti)
			next[v]++
		}
	}
	return &VertexLinks{offsets: offsets, cells: cells}
}

// Cells returns the triangles referencing node n. The slice aliases the
// shared index and must not be modified.
func (vl *VertexLinks) Cells(n int) []int32 {
	lo, hi := vl.offsets[n], vl.offsets[n+1]
	return vl.cells[lo:hi:hi]
}

// NCells returns the number of triangles referencing node n.
func (vl *VertexLinks) NCells(n int) int { return int(vl.offsets[n+1] - vl.offsets[n]) }

// NumNodes returns the number of nodes indexed.
func (vl *VertexLinks) NumNodes() int { return len(vl.offsets) - 1 }

// NumIncidences returns the total number of (node, triangle) pairs.
func (vl *VertexLinks) NumIncidences() int { return len(vl.cells) }

// Neighbors appends to dst the distinct nodes sharing a triangle with node n.
// seen must have length NumNodes and be all false; it is restored on return.
func (vl *VertexLinks) Neighbors(dst []int32, n int, triangles []Triangle, seen []bool) []int32 {
	start := len(dst)
	seen[n] = true
	for _, ti := range vl.Cells(n) {
		for _, v := range triangles[ti].Verts {
			if !seen[v] {
				seen[v] = true
				dst = append(dst, v)
			}
		}
	}
	seen[n] = false
	for _, v := range dst[start:] {
		seen[v] = false
	}
	return dst
}
