package m3c

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Fragment is the locally consistent piece of mesh produced by one lattice
// cube. Nodes are identified by global lattice keys so fragments of
// neighbouring cubes agree on shared nodes.
type Fragment struct {
	Nodes     []FragmentNode
	Triangles []FragmentTriangle
}

// FragmentNode is a node referenced by a fragment.
type FragmentNode struct {
	Key int64
	Pos r3.Vec
	// Hull is set for nodes on the boundary of the voxel volume.
	Hull bool
}

// FragmentTriangle is a triangle over fragment node keys. Labels follow the
// Triangle convention: the right hand normal points into Labels[0].
type FragmentTriangle struct {
	Keys   [3]int64
	Labels [2]int32
	// FaceEdges bit i is set when the edge Keys[i]->Keys[(i+1)%3] lies on a
	// lattice square.
	FaceEdges uint8
}

// Reset empties the fragment keeping its storage.
func (f *Fragment) Reset() {
	f.Nodes = f.Nodes[:0]
	f.Triangles = f.Triangles[:0]
}

// Empty reports whether the fragment holds no triangles.
func (f *Fragment) Empty() bool { return len(f.Triangles) == 0 }

func (f *Fragment) addNode(n FragmentNode) {
	for i := range f.Nodes {
		if f.Nodes[i].Key == n.Key {
			return
		}
	}
	f.Nodes = append(f.Nodes, n)
}
