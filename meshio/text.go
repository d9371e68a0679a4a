// Package meshio reads and writes surface meshes and labelled voxel volumes.
package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soypat/grainmesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// WriteNodes writes the nodes file: a line with the node count followed by
// one "id kind x y z" line per node.
func WriteNodes(w io.Writer, nodes []grainmesh.Node) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(nodes))
	for i, n := range nodes {
		fmt.Fprintf(bw, "%d %d %f %f %f\n", i, n.Kind, n.Pos.X, n.Pos.Y, n.Pos.Z)
	}
	return grainmesh.WrapError(grainmesh.CodeIO, "writing nodes", bw.Flush())
}

// WriteTriangles writes the triangles file: a line with the triangle count
// followed by one "id n0 n1 n2 label0 label1" line per triangle.
func WriteTriangles(w io.Writer, triangles []grainmesh.Triangle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(triangles))
	for i, t := range triangles {
		fmt.Fprintf(bw, "%d %d %d %d %d %d\n", i, t.Verts[0], t.Verts[1], t.Verts[2], t.Labels[0], t.Labels[1])
	}
	return grainmesh.WrapError(grainmesh.CodeIO, "writing triangles", bw.Flush())
}

// ReadNodes reads a nodes file written by WriteNodes. Node ids must be in
// range of the header count.
func ReadNodes(r io.Reader) ([]grainmesh.Node, error) {
	var nodes []grainmesh.Node
	err := readRecords(r, "nodes", 5, func(n int) {
		nodes = make([]grainmesh.Node, n)
	}, func(f []string) error {
		id, err := parseID(f[0], len(nodes))
		if err != nil {
			return err
		}
		kind, err := strconv.Atoi(f[1])
		if err != nil {
			return err
		}
		var xyz [3]float64
		for i := range xyz {
			if xyz[i], err = strconv.ParseFloat(f[2+i], 64); err != nil {
				return err
			}
		}
		nodes[id] = grainmesh.Node{Pos: r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, Kind: grainmesh.NodeKind(kind)}
		return nil
	})
	return nodes, err
}

// ReadTriangles reads a triangles file written by WriteTriangles. The edge
// fields of the returned triangles are left zero; see BuildEdges.
func ReadTriangles(r io.Reader) ([]grainmesh.Triangle, error) {
	var tris []grainmesh.Triangle
	err := readRecords(r, "triangles", 6, func(n int) {
		tris = make([]grainmesh.Triangle, n)
	}, func(f []string) error {
		id, err := parseID(f[0], len(tris))
		if err != nil {
			return err
		}
		var v [5]int64
		for i := range v {
			if v[i], err = strconv.ParseInt(f[1+i], 10, 32); err != nil {
				return err
			}
		}
		tris[id] = grainmesh.Triangle{
			Verts:  [3]int32{int32(v[0]), int32(v[1]), int32(v[2])},
			Labels: [2]int32{int32(v[3]), int32(v[4])},
		}
		return nil
	})
	return tris, err
}

func parseID(s string, n int) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if id < 0 || id >= n {
		return 0, fmt.Errorf("id %d out of range [0,%d)", id, n)
	}
	return id, nil
}

// readRecords parses a count header and count records of nfields fields.
func readRecords(r io.Reader, what string, nfields int, header func(n int), record func(fields []string) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	count := -1
	read := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if count < 0 {
			n, err := strconv.Atoi(text)
			if err != nil || n < 0 {
				return grainmesh.NewError(grainmesh.CodeFormat, "%s line %d: bad count %q", what, line, text)
			}
			count = n
			header(n)
			continue
		}
		if read == count {
			return grainmesh.NewError(grainmesh.CodeFormat, "%s line %d: more records than the %d announced", what, line, count)
		}
		fields := strings.Fields(text)
		if len(fields) != nfields {
			return grainmesh.NewError(grainmesh.CodeFormat, "%s line %d: got %d fields, want %d", what, line, len(fields), nfields)
		}
		if err := record(fields); err != nil {
			return grainmesh.WrapError(grainmesh.CodeFormat, fmt.Sprintf("%s line %d", what, line), err)
		}
		read++
	}
	if err := sc.Err(); err != nil {
		return grainmesh.WrapError(grainmesh.CodeIO, "reading "+what, err)
	}
	if count < 0 {
		return grainmesh.NewError(grainmesh.CodeFormat, "%s: missing count header", what)
	}
	if read != count {
		return grainmesh.NewError(grainmesh.CodeFormat, "%s: got %d records, header announced %d", what, read, count)
	}
	return nil
}

// ReadMesh reads a nodes and a triangles file into a mesh with its edge
// list rebuilt.
func ReadMesh(nodes, triangles io.Reader) (*grainmesh.Mesh, error) {
	ns, err := ReadNodes(nodes)
	if err != nil {
		return nil, err
	}
	ts, err := ReadTriangles(triangles)
	if err != nil {
		return nil, err
	}
	for i, t := range ts {
		for _, v := range t.Verts {
			if v < 0 || int(v) >= len(ns) {
				return nil, grainmesh.NewError(grainmesh.CodeFormat, "triangle %d references node %d of %d", i, v, len(ns))
			}
		}
	}
	m := &grainmesh.Mesh{Nodes: ns, Triangles: ts}
	grainmesh.BuildEdges(m)
	return m, nil
}
