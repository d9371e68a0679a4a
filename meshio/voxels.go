package meshio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/soypat/grainmesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// StructuredPointsHeader is the header of a legacy VTK STRUCTURED_POINTS file.
type StructuredPointsHeader struct {
	Title      string
	Binary     bool
	Dims       [3]int
	Origin     r3.Vec
	Spacing    r3.Vec
	ScalarName string
	ScalarType string
}

// scalarSize returns the byte size of a VTK scalar type.
func scalarSize(typ string) int {
	switch typ {
	case "char", "unsigned_char", "bit":
		return 1
	case "short", "unsigned_short":
		return 2
	case "int", "unsigned_int", "float":
		return 4
	case "long", "unsigned_long", "double":
		return 8
	}
	return 0
}

// ReadStructuredPoints reads a labelled voxel volume from a legacy VTK
// STRUCTURED_POINTS file with one scalar component per point. Labels must
// fit in an int32.
func ReadStructuredPoints(r io.Reader) (*grainmesh.Grid, StructuredPointsHeader, error) {
	br := bufio.NewReader(r)
	hdr, err := readSPHeader(br)
	if err != nil {
		return nil, hdr, err
	}
	g := grainmesh.NewGrid(hdr.Dims[0], hdr.Dims[1], hdr.Dims[2], hdr.Spacing)
	g.Orig = hdr.Origin
	if hdr.Binary {
		err = readBinaryLabels(br, hdr.ScalarType, g.Labels)
	} else {
		err = readASCIILabels(br, g.Labels)
	}
	if err != nil {
		return nil, hdr, err
	}
	return g, hdr, nil
}

func readSPHeader(br *bufio.Reader) (hdr StructuredPointsHeader, err error) {
	formatErr := func(format string, args ...any) error {
		return grainmesh.NewError(grainmesh.CodeFormat, "VTK structured points: "+format, args...)
	}
	line := func() (string, error) {
		for {
			s, err := br.ReadString('\n')
			s = strings.TrimSpace(s)
			if s != "" || err != nil {
				if err == io.EOF && s != "" {
					err = nil
				}
				return s, err
			}
		}
	}
	magic, err := line()
	if err != nil || !strings.HasPrefix(magic, "# vtk DataFile") {
		return hdr, formatErr("missing '# vtk DataFile' header")
	}
	// The title may legally be empty, so it is read raw.
	title, err := br.ReadString('\n')
	if err != nil {
		return hdr, formatErr("missing title line")
	}
	hdr.Title = strings.TrimSpace(title)
	format, err := line()
	switch {
	case err != nil:
		return hdr, formatErr("missing ASCII/BINARY line")
	case strings.EqualFold(format, "BINARY"):
		hdr.Binary = true
	case !strings.EqualFold(format, "ASCII"):
		return hdr, formatErr("unknown data format %q", format)
	}
	hdr.Spacing = r3.Vec{X: 1, Y: 1, Z: 1}
	npoints := -1
	for {
		s, err := line()
		if err != nil {
			return hdr, formatErr("header ended before LOOKUP_TABLE: %v", err)
		}
		f := strings.Fields(s)
		switch strings.ToUpper(f[0]) {
		case "DATASET":
			if len(f) != 2 || !strings.EqualFold(f[1], "STRUCTURED_POINTS") {
				return hdr, formatErr("unsupported dataset %q", s)
			}
		case "DIMENSIONS":
			if len(f) != 4 {
				return hdr, formatErr("bad DIMENSIONS %q", s)
			}
			for i := range hdr.Dims {
				if hdr.Dims[i], err = strconv.Atoi(f[1+i]); err != nil || hdr.Dims[i] <= 0 {
					return hdr, formatErr("bad DIMENSIONS %q", s)
				}
			}
		case "ORIGIN":
			if hdr.Origin, err = parseVec(f); err != nil {
				return hdr, formatErr("bad ORIGIN %q", s)
			}
		case "SPACING", "ASPECT_RATIO":
			if hdr.Spacing, err = parseVec(f); err != nil {
				return hdr, formatErr("bad SPACING %q", s)
			}
		case "POINT_DATA":
			if len(f) != 2 {
				return hdr, formatErr("bad POINT_DATA %q", s)
			}
			if npoints, err = strconv.Atoi(f[1]); err != nil {
				return hdr, formatErr("bad POINT_DATA %q", s)
			}
		case "SCALARS":
			if len(f) < 3 || len(f) > 4 || (len(f) == 4 && f[3] != "1") {
				return hdr, formatErr("only single component SCALARS supported, got %q", s)
			}
			hdr.ScalarName, hdr.ScalarType = f[1], strings.ToLower(f[2])
			if scalarSize(hdr.ScalarType) == 0 {
				return hdr, formatErr("unknown scalar type %q", f[2])
			}
		case "LOOKUP_TABLE":
			if hdr.ScalarType == "" {
				return hdr, formatErr("LOOKUP_TABLE before SCALARS")
			}
			n := hdr.Dims[0] * hdr.Dims[1] * hdr.Dims[2]
			if n == 0 {
				return hdr, formatErr("missing DIMENSIONS")
			}
			if npoints != n {
				return hdr, formatErr("POINT_DATA %d does not match dimensions %v", npoints, hdr.Dims)
			}
			return hdr, nil
		default:
			return hdr, formatErr("unexpected header line %q", s)
		}
	}
}

func parseVec(f []string) (v r3.Vec, err error) {
	if len(f) != 4 {
		return v, fmt.Errorf("want 3 components, got %d", len(f)-1)
	}
	var c [3]float64
	for i := range c {
		if c[i], err = strconv.ParseFloat(f[1+i], 64); err != nil {
			return v, err
		}
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

func readASCIILabels(br *bufio.Reader, labels []int32) error {
	sc := bufio.NewScanner(br)
	sc.Split(bufio.ScanWords)
	for i := range labels {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return grainmesh.WrapError(grainmesh.CodeIO, "reading voxel labels", err)
			}
			return grainmesh.NewError(grainmesh.CodeFormat, "got %d of %d voxel labels", i, len(labels))
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil || v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return grainmesh.NewError(grainmesh.CodeFormat, "voxel %d: bad label %q", i, sc.Text())
		}
		labels[i] = int32(v)
	}
	return nil
}

func readBinaryLabels(br *bufio.Reader, typ string, labels []int32) error {
	size := scalarSize(typ)
	buf := make([]byte, size)
	for i := range labels {
		if _, err := io.ReadFull(br, buf); err != nil {
			return grainmesh.WrapError(grainmesh.CodeFormat, fmt.Sprintf("reading binary voxel %d of %d", i, len(labels)), err)
		}
		var v float64
		switch typ {
		case "char":
			v = float64(int8(buf[0]))
		case "unsigned_char", "bit":
			v = float64(buf[0])
		case "short":
			v = float64(int16(binary.BigEndian.Uint16(buf)))
		case "unsigned_short":
			v = float64(binary.BigEndian.Uint16(buf))
		case "int":
			v = float64(int32(binary.BigEndian.Uint32(buf)))
		case "unsigned_int":
			v = float64(binary.BigEndian.Uint32(buf))
		case "float":
			v = float64(math.Float32frombits(binary.BigEndian.Uint32(buf)))
		case "long":
			v = float64(int64(binary.BigEndian.Uint64(buf)))
		case "unsigned_long":
			v = float64(binary.BigEndian.Uint64(buf))
		case "double":
			v = math.Float64frombits(binary.BigEndian.Uint64(buf))
		}
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return grainmesh.NewError(grainmesh.CodeFormat, "voxel %d: label %g does not fit int32", i, v)
		}
		labels[i] = int32(v)
	}
	return nil
}

// WriteStructuredPoints writes g as a legacy VTK STRUCTURED_POINTS file with
// int GrainID scalars.
func WriteStructuredPoints(w io.Writer, g *grainmesh.Grid, title string, binaryData bool) error {
	if err := g.Validate(); err != nil {
		return err
	}
	vw := &vtkWriter{bw: bufio.NewWriter(w), binary: binaryData}
	vw.header(title, "STRUCTURED_POINTS")
	vw.line("DIMENSIONS %d %d %d", g.Nx, g.Ny, g.Nz)
	vw.line("ORIGIN %g %g %g", g.Orig.X, g.Orig.Y, g.Orig.Z)
	vw.line("SPACING %g %g %g", g.Res.X, g.Res.Y, g.Res.Z)
	vw.line("POINT_DATA %d", len(g.Labels))
	vw.line("")
	if binaryData {
		vw.scalars("GrainID", g.Labels)
	} else {
		vw.line("SCALARS GrainID int 1")
		vw.line("LOOKUP_TABLE default")
		// One x row per line.
		for n, l := range g.Labels {
			vw.bw.WriteString(strconv.Itoa(int(l)))
			if (n+1)%g.Nx == 0 {
				vw.bw.WriteByte('\n')
			} else {
				vw.bw.WriteByte(' ')
			}
		}
	}
	return grainmesh.WrapError(grainmesh.CodeIO, "writing VTK structured points", vw.bw.Flush())
}
