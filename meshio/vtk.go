package meshio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/soypat/grainmesh"
)

// VTKOptions configures the legacy VTK polydata writer.
type VTKOptions struct {
	// Title is the second header line. Newlines are not allowed.
	Title string
	// Binary writes big-endian binary data blocks instead of ASCII.
	Binary bool
	// NonConformal writes every triangle once per region it bounds, the copy
	// for Labels[1] with reversed winding, so each region gets its own shell
	// with normals pointing into the region named by GrainID.
	NonConformal bool
}

const defaultVTKTitle = "Surface mesh of a labelled volume"

// vtkWriter writes legacy VTK sections in ASCII or big-endian binary.
// Errors are sticky in the underlying bufio.Writer.
type vtkWriter struct {
	bw     *bufio.Writer
	binary bool
}

func (vw *vtkWriter) line(format string, args ...any) {
	fmt.Fprintf(vw.bw, format, args...)
	vw.bw.WriteByte('\n')
}

func (vw *vtkWriter) ints(data []int32) {
	if vw.binary {
		binary.Write(vw.bw, binary.BigEndian, data)
		vw.bw.WriteByte('\n')
		return
	}
	for _, v := range data {
		fmt.Fprintf(vw.bw, "%d\n", v)
	}
}

func (vw *vtkWriter) points(m *grainmesh.Mesh) {
	vw.line("POINTS %d float", len(m.Nodes))
	if vw.binary {
		var buf [12]byte
		for _, n := range m.Nodes {
			put3F32BE(buf[:], [3]float32{float32(n.Pos.X), float32(n.Pos.Y), float32(n.Pos.Z)})
			vw.bw.Write(buf[:])
		}
		vw.bw.WriteByte('\n')
		return
	}
	for _, n := range m.Nodes {
		fmt.Fprintf(vw.bw, "%f %f %f\n", n.Pos.X, n.Pos.Y, n.Pos.Z)
	}
}

func (vw *vtkWriter) header(title, dataset string) {
	if title == "" {
		title = defaultVTKTitle
	}
	vw.line("# vtk DataFile Version 2.0")
	vw.line("%s", title)
	if vw.binary {
		vw.line("BINARY")
	} else {
		vw.line("ASCII")
	}
	vw.line("DATASET %s", dataset)
}

func (vw *vtkWriter) scalars(name string, data []int32) {
	vw.line("SCALARS %s int 1", name)
	vw.line("LOOKUP_TABLE default")
	vw.ints(data)
}

// WriteVTKPolyData writes m as a legacy VTK POLYDATA file with GrainID and
// TriangleID cell scalars and Node_Type point scalars.
func WriteVTKPolyData(w io.Writer, m *grainmesh.Mesh, opts VTKOptions) error {
	vw := &vtkWriter{bw: bufio.NewWriter(w), binary: opts.Binary}
	vw.header(opts.Title, "POLYDATA")
	vw.points(m)
	ncells := len(m.Triangles)
	if opts.NonConformal {
		ncells *= 2
	}
	vw.line("POLYGONS %d %d", ncells, 4*ncells)
	cells := make([]int32, 0, 4*ncells)
	grainID := make([]int32, 0, ncells)
	triID := make([]int32, 0, ncells)
	for i, t := range m.Triangles {
		cells = append(cells, 3, t.Verts[0], t.Verts[1], t.Verts[2])
		grainID = append(grainID, t.Labels[0])
		triID = append(triID, int32(i))
		if opts.NonConformal {
			cells = append(cells, 3, t.Verts[0], t.Verts[2], t.Verts[1])
			grainID = append(grainID, t.Labels[1])
			triID = append(triID, int32(i))
		}
	}
	if vw.binary {
		vw.ints(cells)
	} else {
		for c := 0; c < len(cells); c += 4 {
			fmt.Fprintf(vw.bw, "3 %d %d %d\n", cells[c+1], cells[c+2], cells[c+3])
		}
	}
	vw.line("")
	vw.line("CELL_DATA %d", ncells)
	vw.scalars("GrainID", grainID)
	vw.scalars("TriangleID", triID)
	vw.line("")
	vw.line("POINT_DATA %d", len(m.Nodes))
	kinds := make([]int32, len(m.Nodes))
	for i, n := range m.Nodes {
		kinds[i] = int32(n.Kind)
	}
	vw.scalars("Node_Type", kinds)
	return grainmesh.WrapError(grainmesh.CodeIO, "writing VTK polydata", vw.bw.Flush())
}

// WriteVTKUnstructured writes m as an ASCII legacy VTK UNSTRUCTURED_GRID of
// triangle cells with GrainID and NeighborID cell scalars.
func WriteVTKUnstructured(w io.Writer, m *grainmesh.Mesh, title string) error {
	vw := &vtkWriter{bw: bufio.NewWriter(w)}
	vw.header(title, "UNSTRUCTURED_GRID")
	vw.points(m)
	nt := len(m.Triangles)
	vw.line("CELLS %d %d", nt, 4*nt)
	for _, t := range m.Triangles {
		fmt.Fprintf(vw.bw, "3 %d %d %d\n", t.Verts[0], t.Verts[1], t.Verts[2])
	}
	vw.line("CELL_TYPES %d", nt)
	const vtkTriangle = 5
	for i := 0; i < nt; i++ {
		fmt.Fprintf(vw.bw, "%d\n", vtkTriangle)
	}
	grainID := make([]int32, nt)
	nbrID := make([]int32, nt)
	for i, t := range m.Triangles {
		grainID[i], nbrID[i] = t.Labels[0], t.Labels[1]
	}
	vw.line("CELL_DATA %d", nt)
	vw.scalars("GrainID", grainID)
	vw.scalars("NeighborID", nbrID)
	return grainmesh.WrapError(grainmesh.CodeIO, "writing VTK unstructured grid", vw.bw.Flush())
}
