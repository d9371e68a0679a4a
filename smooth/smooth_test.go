package smooth_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/soypat/grainmesh"
	"github.com/soypat/grainmesh/internal/d3"
	"github.com/soypat/grainmesh/m3c"
	"github.com/soypat/grainmesh/smooth"
	"gonum.org/v1/gonum/spatial/r3"
)

// flatPatch returns a planar 3x3 node patch triangulated with every
// diagonal meeting the centre node 4.
func flatPatch(border grainmesh.NodeKind) *grainmesh.Mesh {
	m := &grainmesh.Mesh{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			kind := border
			if r == 1 && c == 1 {
				kind = grainmesh.KindDefault
			}
			m.Nodes = append(m.Nodes, grainmesh.Node{Pos: r3.Vec{X: float64(c), Y: float64(r)}, Kind: kind})
		}
	}
	for _, v := range [][3]int32{
		{0, 1, 4}, {0, 4, 3}, {1, 2, 4}, {2, 5, 4},
		{3, 4, 6}, {4, 7, 6}, {4, 5, 8}, {4, 8, 7},
	} {
		m.Triangles = append(m.Triangles, grainmesh.Triangle{Verts: v, Labels: [2]int32{2, 1}})
	}
	return m
}

func tripleMesh(t *testing.T) (*grainmesh.Mesh, *grainmesh.VertexLinks) {
	t.Helper()
	g := grainmesh.NewGrid(5, 5, 5, d3.Elem(1))
	g.Fill(func(i, j, k int) int32 {
		switch {
		case i < 2:
			return 1
		case j < 3:
			return 2
		}
		return 3
	})
	res, err := m3c.Extract(context.Background(), g, m3c.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return res.Mesh, res.Links
}

func randomMesh(t *testing.T, seed int64) (*grainmesh.Mesh, *grainmesh.VertexLinks) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	g := grainmesh.NewGrid(6, 5, 4, r3.Vec{X: 1, Y: 0.5, Z: 2})
	g.Fill(func(i, j, k int) int32 { return int32(rng.Intn(3)) })
	res, err := m3c.Extract(context.Background(), g, m3c.Options{WrapBoundary: true})
	if err != nil {
		t.Fatal(err)
	}
	return res.Mesh, res.Links
}

func TestFlatPatchEquilibrium(t *testing.T) {
	m := flatPatch(grainmesh.KindDefault)
	start := m.Positions()
	_, err := smooth.Smooth(context.Background(), m, m.Links(), smooth.Options{Iterations: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !d3.EqualWithin(m.Nodes[4].Pos, start[4], 1e-12) {
		t.Errorf("centre node moved from %v to %v", start[4], m.Nodes[4].Pos)
	}
	for i, n := range m.Nodes {
		if n.Pos.Z != 0 {
			t.Errorf("node %d left the plane: %v", i, n.Pos)
		}
	}
}

func TestFlatPatchPinnedBorder(t *testing.T) {
	m := flatPatch(grainmesh.KindSurfaceDefault)
	start := m.Positions()
	res, err := smooth.Smooth(context.Background(), m, m.Links(), smooth.Options{Iterations: 5, LockQuadPoints: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Moved != 1 {
		t.Errorf("got %d movable nodes, want 1", res.Moved)
	}
	for i, n := range m.Nodes {
		if !d3.EqualWithin(n.Pos, start[i], 1e-12) {
			t.Errorf("node %d moved from %v to %v", i, start[i], n.Pos)
		}
	}
}

func TestLockedJunctionsBitIdentical(t *testing.T) {
	m, links := tripleMesh(t)
	start := m.Positions()
	triples := 0
	for _, n := range m.Nodes {
		if n.Kind == grainmesh.KindTriplePoint {
			triples++
		}
	}
	if triples == 0 {
		t.Fatal("test mesh has no triple points")
	}
	_, err := smooth.Smooth(context.Background(), m, links, smooth.Options{Iterations: 6, LockQuadPoints: true})
	if err != nil {
		t.Fatal(err)
	}
	moved := 0
	for i, n := range m.Nodes {
		locked := n.Kind.IsJunction() || n.Kind.IsSurface()
		if locked && n.Pos != start[i] {
			t.Errorf("locked %v node %d moved from %v to %v", n.Kind, i, start[i], n.Pos)
		}
		if n.Pos != start[i] {
			moved++
		}
	}
	if moved == 0 {
		t.Error("no free node moved")
	}
}

func TestZeroLambdaBitIdentical(t *testing.T) {
	m, links := randomMesh(t, 3)
	start := m.Positions()
	lambdas := smooth.DefaultLambdas()
	lambdas.TriplePoint = 0
	lambdas.SurfaceTriplePoint = 0
	_, err := smooth.Smooth(context.Background(), m, links, smooth.Options{Iterations: 4, Lambdas: &lambdas})
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range m.Nodes {
		if (n.Kind == grainmesh.KindTriplePoint || n.Kind == grainmesh.KindSurfaceTriplePoint) && n.Pos != start[i] {
			t.Errorf("triple node %d moved", i)
		}
	}
}

func TestZeroIterations(t *testing.T) {
	m, links := randomMesh(t, 1)
	start := m.Positions()
	res, err := smooth.Smooth(context.Background(), m, links, smooth.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Iterations != 0 {
		t.Errorf("got %d iterations", res.Iterations)
	}
	for i, n := range m.Nodes {
		if n.Pos != start[i] {
			t.Fatalf("node %d moved without iterating", i)
		}
	}
}

func TestIterationsCompose(t *testing.T) {
	const n = 3
	a, la := randomMesh(t, 2)
	b, lb := randomMesh(t, 2)
	ctx := context.Background()
	if _, err := smooth.Smooth(ctx, a, la, smooth.Options{Iterations: n}); err != nil {
		t.Fatal(err)
	}
	if _, err := smooth.Smooth(ctx, a, la, smooth.Options{Iterations: n}); err != nil {
		t.Fatal(err)
	}
	if _, err := smooth.Smooth(ctx, b, lb, smooth.Options{Iterations: 2 * n}); err != nil {
		t.Fatal(err)
	}
	for i := range a.Nodes {
		if a.Nodes[i].Pos != b.Nodes[i].Pos {
			t.Fatalf("node %d: %v after %d+%d iterations, %v after %d", i, a.Nodes[i].Pos, n, n, b.Nodes[i].Pos, 2*n)
		}
	}
}

func TestNeighbourHullBound(t *testing.T) {
	m, links := randomMesh(t, 4)
	start := m.Positions()
	if _, err := smooth.Smooth(context.Background(), m, links, smooth.Options{Iterations: 1}); err != nil {
		t.Fatal(err)
	}
	seen := make([]bool, len(m.Nodes))
	var nbrs []int32
	var pts []r3.Vec
	for n := range m.Nodes {
		nbrs = links.Neighbors(nbrs[:0], n, m.Triangles, seen)
		pts = pts[:0]
		for _, v := range nbrs {
			pts = append(pts, start[v])
		}
		if !d3.InHull(m.Nodes[n].Pos, 1e-9, pts...) {
			t.Errorf("node %d moved to %v outside the hull of its neighbours", n, m.Nodes[n].Pos)
		}
	}
}

func TestSnapshots(t *testing.T) {
	m, links := randomMesh(t, 5)
	var got []int
	_, err := smooth.Smooth(context.Background(), m, links, smooth.Options{
		Iterations:       7,
		SnapshotInterval: 2,
		Snapshot: func(it int, sm *grainmesh.Mesh) error {
			if sm != m {
				t.Error("snapshot of a different mesh")
			}
			got = append(got, it)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 2 || got[1] != 4 || got[2] != 6 {
		t.Errorf("snapshots at %v, want [2 4 6]", got)
	}

	errDisk := errors.New("disk full")
	res, err := smooth.Smooth(context.Background(), m, links, smooth.Options{
		Iterations:       5,
		SnapshotInterval: 1,
		Snapshot:         func(int, *grainmesh.Mesh) error { return errDisk },
	})
	if !errors.Is(err, errDisk) || grainmesh.ErrorCode(err) != grainmesh.CodeIO {
		t.Errorf("got error %v", err)
	}
	if res.Iterations != 1 {
		t.Errorf("run continued to iteration %d after snapshot failure", res.Iterations)
	}
}

func TestCanceled(t *testing.T) {
	m, links := randomMesh(t, 6)
	start := m.Positions()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := smooth.Smooth(ctx, m, links, smooth.Options{Iterations: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != grainmesh.Canceled || res.Iterations != 0 {
		t.Errorf("got %+v", res)
	}
	for i := range m.Nodes {
		if m.Nodes[i].Pos != start[i] {
			t.Fatal("canceled run moved nodes")
		}
	}
}

func TestPreconditions(t *testing.T) {
	m, links := randomMesh(t, 7)
	short := grainmesh.NewVertexLinks(len(m.Nodes)-1, nil)
	_, err := smooth.Smooth(context.Background(), m, short, smooth.Options{Iterations: 1})
	if grainmesh.ErrorCode(err) != grainmesh.CodeBadLinks {
		t.Errorf("mismatched links: got %v", err)
	}
	bad := smooth.DefaultLambdas()
	bad.QuadPoint = 1.5
	_, err = smooth.Smooth(context.Background(), m, links, smooth.Options{Iterations: 1, Lambdas: &bad})
	if grainmesh.ErrorCode(err) != grainmesh.CodeBadOption {
		t.Errorf("bad lambda: got %v", err)
	}
	_, err = smooth.Smooth(context.Background(), m, links, smooth.Options{Iterations: -1})
	if grainmesh.ErrorCode(err) != grainmesh.CodeBadOption {
		t.Errorf("negative iterations: got %v", err)
	}
}
