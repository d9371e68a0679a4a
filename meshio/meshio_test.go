package meshio_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/soypat/grainmesh"
	"github.com/soypat/grainmesh/m3c"
	"github.com/soypat/grainmesh/meshio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func quadMesh() *grainmesh.Mesh {
	m := &grainmesh.Mesh{
		Nodes: []grainmesh.Node{
			{Pos: r3.Vec{}, Kind: grainmesh.KindSurfaceDefault},
			{Pos: r3.Vec{X: 1}, Kind: grainmesh.KindDefault},
			{Pos: r3.Vec{X: 1, Y: 1}, Kind: grainmesh.KindTriplePoint},
			{Pos: r3.Vec{Y: 1}, Kind: grainmesh.KindSurfaceTriplePoint},
		},
		Triangles: []grainmesh.Triangle{
			{Verts: [3]int32{0, 1, 2}, Labels: [2]int32{2, 1}},
			{Verts: [3]int32{0, 2, 3}, Labels: [2]int32{5, 2}},
		},
	}
	grainmesh.BuildEdges(m)
	return m
}

const wantNodes = `4
0 12 0.000000 0.000000 0.000000
1 2 1.000000 0.000000 0.000000
2 3 1.000000 1.000000 0.000000
3 13 0.000000 1.000000 0.000000
`

const wantTriangles = `2
0 0 1 2 2 1
1 0 2 3 5 2
`

func TestWriteNodesTriangles(t *testing.T) {
	m := quadMesh()
	var b bytes.Buffer
	require.NoError(t, meshio.WriteNodes(&b, m.Nodes))
	assert.Equal(t, wantNodes, b.String())
	b.Reset()
	require.NoError(t, meshio.WriteTriangles(&b, m.Triangles))
	assert.Equal(t, wantTriangles, b.String())
}

func TestReadMesh(t *testing.T) {
	m, err := meshio.ReadMesh(strings.NewReader(wantNodes), strings.NewReader(wantTriangles))
	require.NoError(t, err)
	want := quadMesh()
	assert.Equal(t, want.Nodes, m.Nodes)
	assert.Equal(t, want.Triangles, m.Triangles)
	require.Len(t, m.Edges, 5)
	for _, e := range m.Edges {
		if e.Nodes == [2]int32{0, 2} {
			assert.True(t, e.IsJunction(), "shared edge between different label pairs is a junction")
		} else {
			assert.False(t, e.IsJunction())
		}
	}
}

func TestReadTextErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		nodes string
	}{
		{"short", "3\n0 2 0 0 0\n"},
		{"long", "1\n0 2 0 0 0\n1 2 0 0 0\n"},
		{"fields", "1\n0 2 0 0\n"},
		{"id", "1\n4 2 0 0 0\n"},
		{"header", "x\n"},
		{"empty", ""},
		{"float", "1\n0 2 a 0 0\n"},
	} {
		_, err := meshio.ReadNodes(strings.NewReader(tc.nodes))
		assert.Equal(t, grainmesh.CodeFormat, grainmesh.ErrorCode(err), tc.name)
	}
	_, err := meshio.ReadMesh(strings.NewReader("1\n0 2 0 0 0\n"), strings.NewReader(wantTriangles))
	assert.Equal(t, grainmesh.CodeFormat, grainmesh.ErrorCode(err), "triangles referencing missing nodes")
}

const wantPolyData = `# vtk DataFile Version 2.0
test mesh
ASCII
DATASET POLYDATA
POINTS 4 float
0.000000 0.000000 0.000000
1.000000 0.000000 0.000000
1.000000 1.000000 0.000000
0.000000 1.000000 0.000000
POLYGONS 2 8
3 0 1 2
3 0 2 3

CELL_DATA 2
SCALARS GrainID int 1
LOOKUP_TABLE default
2
5
SCALARS TriangleID int 1
LOOKUP_TABLE default
0
1

POINT_DATA 4
SCALARS Node_Type int 1
LOOKUP_TABLE default
12
2
3
13
`

func TestWriteVTKPolyData(t *testing.T) {
	m := quadMesh()
	var b bytes.Buffer
	require.NoError(t, meshio.WriteVTKPolyData(&b, m, meshio.VTKOptions{Title: "test mesh"}))
	assert.Equal(t, wantPolyData, b.String())

	b.Reset()
	require.NoError(t, meshio.WriteVTKPolyData(&b, m, meshio.VTKOptions{NonConformal: true}))
	s := b.String()
	assert.Contains(t, s, "POLYGONS 4 16\n3 0 1 2\n3 0 2 1\n3 0 2 3\n3 0 3 2\n")
	assert.Contains(t, s, "CELL_DATA 4\nSCALARS GrainID int 1\nLOOKUP_TABLE default\n2\n1\n5\n2\n")
}

func TestWriteVTKPolyDataNonConformalWinding(t *testing.T) {
	g := grainmesh.NewGrid(1, 1, 1, r3.Vec{X: 1, Y: 1, Z: 1})
	g.Set(0, 0, 0, 4)
	res, err := m3c.Extract(context.Background(), g, m3c.Options{WrapBoundary: true})
	require.NoError(t, err)
	m := res.Mesh
	var b bytes.Buffer
	require.NoError(t, meshio.WriteVTKPolyData(&b, m, meshio.VTKOptions{NonConformal: true}))
	lines := strings.Split(b.String(), "\n")
	at := func(prefix string) int {
		for i, l := range lines {
			if strings.HasPrefix(l, prefix) {
				return i
			}
		}
		t.Fatalf("no %q line", prefix)
		return -1
	}
	ncells := 2 * len(m.Triangles)
	poly, grain := at("POLYGONS")+1, at("SCALARS GrainID")+2
	centre := g.Center(0, 0, 0)
	for c := 0; c < ncells; c++ {
		var n, a, bv, cv int
		_, err := fmt.Sscan(lines[poly+c], &n, &a, &bv, &cv)
		require.NoError(t, err)
		id, err := strconv.Atoi(lines[grain+c])
		require.NoError(t, err)
		pa, pb, pc := m.Nodes[a].Pos, m.Nodes[bv].Pos, m.Nodes[cv].Pos
		normal := r3.Cross(r3.Sub(pb, pa), r3.Sub(pc, pa))
		inward := r3.Dot(normal, r3.Sub(centre, pa)) > 0
		switch int32(id) {
		case 4:
			assert.True(t, inward, "cell %d of the voxel shell points away from the voxel", c)
		case m3c.ExteriorLabel:
			assert.False(t, inward, "cell %d of the exterior shell points into the voxel", c)
		default:
			t.Fatalf("cell %d has GrainID %d", c, id)
		}
	}
}

func TestWriteVTKPolyDataBinary(t *testing.T) {
	m := quadMesh()
	var b bytes.Buffer
	require.NoError(t, meshio.WriteVTKPolyData(&b, m, meshio.VTKOptions{Binary: true}))
	data := b.Bytes()
	const head = "BINARY\nDATASET POLYDATA\nPOINTS 4 float\n"
	i := bytes.Index(data, []byte(head))
	require.GreaterOrEqual(t, i, 0)
	pts := data[i+len(head):]
	require.GreaterOrEqual(t, len(pts), 48)
	for n, node := range m.Nodes {
		for c, want := range [3]float64{node.Pos.X, node.Pos.Y, node.Pos.Z} {
			got := math.Float32frombits(binary.BigEndian.Uint32(pts[12*n+4*c:]))
			assert.Equal(t, float32(want), got)
		}
	}
	rest := pts[48:]
	require.True(t, bytes.HasPrefix(rest, []byte("\nPOLYGONS 2 8\n")))
	cells := rest[len("\nPOLYGONS 2 8\n"):]
	var got [8]int32
	require.NoError(t, binary.Read(bytes.NewReader(cells[:32]), binary.BigEndian, &got))
	assert.Equal(t, [8]int32{3, 0, 1, 2, 3, 0, 2, 3}, got)
}

func TestWriteVTKUnstructured(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, meshio.WriteVTKUnstructured(&b, quadMesh(), ""))
	s := b.String()
	assert.True(t, strings.HasPrefix(s, "# vtk DataFile Version 2.0\n"))
	assert.Contains(t, s, "DATASET UNSTRUCTURED_GRID\nPOINTS 4 float\n")
	assert.Contains(t, s, "CELLS 2 8\n3 0 1 2\n3 0 2 3\nCELL_TYPES 2\n5\n5\n")
	assert.Contains(t, s, "SCALARS GrainID int 1\nLOOKUP_TABLE default\n2\n5\n")
	assert.Contains(t, s, "SCALARS NeighborID int 1\nLOOKUP_TABLE default\n1\n2\n")
}

func testGrid() *grainmesh.Grid {
	g := grainmesh.NewGrid(3, 2, 2, r3.Vec{X: 0.5, Y: 1, Z: 2})
	g.Orig = r3.Vec{X: -1, Y: 0, Z: 3}
	g.Fill(func(i, j, k int) int32 { return int32(i*100 - j*7 + k) })
	return g
}

func TestStructuredPointsRoundTrip(t *testing.T) {
	for _, bin := range []bool{false, true} {
		g := testGrid()
		var b bytes.Buffer
		require.NoError(t, meshio.WriteStructuredPoints(&b, g, "volume", bin))
		got, hdr, err := meshio.ReadStructuredPoints(&b)
		require.NoError(t, err)
		assert.Equal(t, "volume", hdr.Title)
		assert.Equal(t, bin, hdr.Binary)
		assert.Equal(t, "GrainID", hdr.ScalarName)
		assert.Equal(t, g, got)
	}
}

func TestReadStructuredPointsHeader(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("# vtk DataFile Version 3.0\n\nBINARY\nDATASET STRUCTURED_POINTS\n" +
		"DIMENSIONS 2 2 1\nASPECT_RATIO 1 2 3\nORIGIN 0.5 0.5 0.5\nPOINT_DATA 4\n\n" +
		"SCALARS FeatureIds unsigned_char\nLOOKUP_TABLE default\n")
	b.Write([]byte{1, 2, 250, 4})
	g, hdr, err := meshio.ReadStructuredPoints(&b)
	require.NoError(t, err)
	assert.Equal(t, "", hdr.Title)
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, g.Res)
	assert.Equal(t, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, g.Orig)
	assert.Equal(t, []int32{1, 2, 250, 4}, g.Labels)

	bad := "# vtk DataFile Version 2.0\nx\nASCII\nDATASET STRUCTURED_POINTS\nDIMENSIONS 2 2 2\nPOINT_DATA 7\nSCALARS a int 1\nLOOKUP_TABLE default\n"
	_, _, err = meshio.ReadStructuredPoints(strings.NewReader(bad))
	assert.Equal(t, grainmesh.CodeFormat, grainmesh.ErrorCode(err))

	short := "# vtk DataFile Version 2.0\nx\nASCII\nDATASET STRUCTURED_POINTS\nDIMENSIONS 2 1 1\nPOINT_DATA 2\nSCALARS a int 1\nLOOKUP_TABLE default\n5\n"
	_, _, err = meshio.ReadStructuredPoints(strings.NewReader(short))
	assert.Equal(t, grainmesh.CodeFormat, grainmesh.ErrorCode(err))
}

func TestSTLWriteReadback(t *testing.T) {
	m := quadMesh()
	var b bytes.Buffer
	n, err := meshio.WriteSTL(&b, m)
	require.NoError(t, err)
	assert.Equal(t, 84+50*len(m.Triangles), n)
	assert.Equal(t, n, b.Len())
	model, err := meshio.ReadBinarySTL(&b)
	require.NoError(t, err)
	require.Len(t, model, len(m.Triangles))
	for i, tri := range model {
		want := m.Triangle3(i)
		for j := range tri {
			assert.Equal(t, float32(want[j].X), tri[j].X)
			assert.Equal(t, float32(want[j].Y), tri[j].Y)
			assert.Equal(t, float32(want[j].Z), tri[j].Z)
		}
	}
	_, err = meshio.WriteSTL(io.Discard, &grainmesh.Mesh{})
	assert.Error(t, err)
	assert.Len(t, meshio.STLTriangles(m, true), 2*len(m.Triangles))
}

func TestWriteHistogram(t *testing.T) {
	var b bytes.Buffer
	values := []float64{1, 1.5, 2, 2, 2.5, math.Inf(1), 3}
	require.NoError(t, meshio.WriteHistogram(&b, values, 4, "aspect", "ratio"))
	assert.True(t, bytes.HasPrefix(b.Bytes(), []byte("\x89PNG")))
	assert.Error(t, meshio.WriteHistogram(io.Discard, []float64{math.NaN()}, 4, "", ""))
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestWriteQualityHistograms(t *testing.T) {
	outputs := make(map[string]*bytes.Buffer)
	err := meshio.WriteQualityHistograms(quadMesh(), 8, func(metric string) (io.WriteCloser, error) {
		b := new(bytes.Buffer)
		outputs[metric] = b
		return nopCloser{b}, nil
	})
	require.NoError(t, err)
	for _, name := range []string{"area", "aspect", "circularity"} {
		require.Contains(t, outputs, name)
		assert.True(t, bytes.HasPrefix(outputs[name].Bytes(), []byte("\x89PNG")), name)
	}
}

func TestRenderPreview(t *testing.T) {
	view := meshio.DefaultView
	view.Width, view.Height = 64, 48
	img, err := meshio.RenderPreview(quadMesh(), view)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
	_, err = meshio.RenderPreview(&grainmesh.Mesh{}, view)
	assert.Error(t, err)
}
