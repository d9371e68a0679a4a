package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/soypat/grainmesh"
	"github.com/soypat/grainmesh/m3c"
	"github.com/soypat/grainmesh/meshio"
	"github.com/soypat/grainmesh/smooth"
	"github.com/soypat/grainmesh/synth"
	"gonum.org/v1/gonum/spatial/r3"
)

// Output file names inside the output directory.
const (
	nodesFile     = "nodes.txt"
	trianglesFile = "triangles.txt"
	vtkFile       = "mesh.vtk"
	stlFile       = "mesh.stl"
	previewFile   = "preview.png"
)

func snapshotFile(iteration int) string { return fmt.Sprintf("smooth_%d.vtk", iteration) }

func (a *app) runMesh(ctx context.Context) error {
	cfg := &a.cfg
	if cfg.Input == "" {
		return grainmesh.NewError(grainmesh.CodeBadOption, "no input volume given")
	}
	fp, err := os.Open(cfg.Input)
	if err != nil {
		return grainmesh.WrapError(grainmesh.CodeIO, "opening input volume", err)
	}
	g, hdr, err := meshio.ReadStructuredPoints(fp)
	fp.Close()
	if err != nil {
		return err
	}
	a.log.Info("read voxel volume", "path", cfg.Input, "dims", hdr.Dims, "scalars", hdr.ScalarName, "type", hdr.ScalarType)
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return grainmesh.WrapError(grainmesh.CodeIO, "creating output directory", err)
	}
	res, err := m3c.Extract(ctx, g, m3c.Options{
		WrapBoundary: cfg.WrapBoundary,
		Observer:     newLogObserver(a.log, "mesh"),
	})
	if err != nil {
		return err
	}
	if res.Status == grainmesh.Canceled {
		a.log.Warn("surface extraction interrupted", "layers", res.Layers)
		return errInterrupted
	}
	m := res.Mesh
	a.log.Info("extracted surface mesh", "nodes", len(m.Nodes), "edges", len(m.Edges), "triangles", len(m.Triangles))
	if cfg.SmoothMesh {
		if err := a.smooth(ctx, m, res.Links); err != nil {
			return err
		}
	}
	return a.writeMesh(m)
}

func (a *app) runSmooth(ctx context.Context, nodesPath, trianglesPath string) error {
	m, err := readMesh(nodesPath, trianglesPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return grainmesh.WrapError(grainmesh.CodeIO, "creating output directory", err)
	}
	if err := a.smooth(ctx, m, m.Links()); err != nil {
		return err
	}
	return a.writeMesh(m)
}

func (a *app) smooth(ctx context.Context, m *grainmesh.Mesh, links *grainmesh.VertexLinks) error {
	cfg := &a.cfg
	opts := cfg.smoothOptions()
	opts.Observer = newLogObserver(a.log, "smooth")
	opts.Snapshot = func(iteration int, m *grainmesh.Mesh) error {
		path := filepath.Join(cfg.OutputDir, snapshotFile(iteration))
		a.log.Debug("writing snapshot", "path", path)
		return writeFile(path, func(w io.Writer) error {
			return meshio.WriteVTKPolyData(w, m, cfg.vtkOptions(fmt.Sprintf("Smoothed surface mesh, iteration %d", iteration)))
		})
	}
	res, err := smooth.Smooth(ctx, m, links, opts)
	if err != nil {
		return err
	}
	if res.Status == grainmesh.Canceled {
		a.log.Warn("smoothing interrupted", "iterations", res.Iterations)
		return errInterrupted
	}
	a.log.Info("smoothed mesh", "iterations", res.Iterations, "moving nodes", res.Moved)
	return nil
}

type output struct {
	name  string
	write func(io.Writer) error
}

// writeMesh writes m and the optional outputs selected in the configuration.
func (a *app) writeMesh(m *grainmesh.Mesh) error {
	cfg := &a.cfg
	dir := cfg.OutputDir
	outputs := []output{
		{nodesFile, func(w io.Writer) error { return meshio.WriteNodes(w, m.Nodes) }},
		{trianglesFile, func(w io.Writer) error { return meshio.WriteTriangles(w, m.Triangles) }},
		{vtkFile, func(w io.Writer) error { return meshio.WriteVTKPolyData(w, m, cfg.vtkOptions("")) }},
	}
	if cfg.STL {
		outputs = append(outputs, output{stlFile, func(w io.Writer) error {
			_, err := meshio.WriteSTL(w, m)
			return err
		}})
	}
	for _, out := range outputs {
		path := filepath.Join(dir, out.name)
		if err := writeFile(path, out.write); err != nil {
			return err
		}
		a.log.Info("wrote output", "path", path)
	}
	if cfg.Preview {
		path := filepath.Join(dir, previewFile)
		if err := meshio.SavePreviewPNG(path, m, cfg.View); err != nil {
			return grainmesh.WrapError(grainmesh.CodeIO, "writing preview", err)
		}
		a.log.Info("wrote output", "path", path)
	}
	if cfg.Histograms {
		err := meshio.WriteQualityHistograms(m, cfg.HistogramBins, func(metric string) (io.WriteCloser, error) {
			path := filepath.Join(dir, "quality_"+metric+".png")
			a.log.Info("writing histogram", "path", path)
			return os.Create(path)
		})
		if err != nil {
			return grainmesh.WrapError(grainmesh.CodeIO, "writing quality histograms", err)
		}
	}
	return nil
}

func (a *app) runQuality(w io.Writer, nodesPath, trianglesPath string) error {
	m, err := readMesh(nodesPath, trianglesPath)
	if err != nil {
		return err
	}
	if err := grainmesh.Verify(m); err != nil {
		a.log.Warn("mesh failed verification", "err", err)
	}
	rep := grainmesh.Report(m)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "nodes\t%d\n", len(m.Nodes))
	fmt.Fprintf(tw, "triangles\t%d\n", rep.Triangles)
	fmt.Fprintf(tw, "degenerate\t%d\n", rep.Degenerate)
	fmt.Fprintf(tw, "metric\tmin\tmax\tmean\tstddev\n")
	for _, row := range []struct {
		name string
		s    grainmesh.Summary
	}{{"area", rep.Area}, {"aspect", rep.Aspect}, {"circularity", rep.Circularity}} {
		fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.4g\t%.4g\n", row.name, row.s.Min, row.s.Max, row.s.Mean, row.s.StdDev)
	}
	if err := tw.Flush(); err != nil {
		return grainmesh.WrapError(grainmesh.CodeIO, "writing report", err)
	}
	if a.cfg.Histograms {
		if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
			return grainmesh.WrapError(grainmesh.CodeIO, "creating output directory", err)
		}
		return grainmesh.WrapError(grainmesh.CodeIO, "writing quality histograms",
			meshio.WriteQualityHistograms(m, a.cfg.HistogramBins, func(metric string) (io.WriteCloser, error) {
				return os.Create(filepath.Join(a.cfg.OutputDir, "quality_"+metric+".png"))
			}))
	}
	return nil
}

type synthOptions struct {
	grains    int
	dims      []int
	res       float64
	seed      uint64
	inclusion float64
	name      string
}

func (o *synthOptions) validate() error {
	if len(o.dims) != 3 || o.dims[0] <= 0 || o.dims[1] <= 0 || o.dims[2] <= 0 {
		return grainmesh.NewError(grainmesh.CodeBadDims, "--dims needs 3 positive values, got %v", o.dims)
	}
	if o.grains <= 0 {
		return grainmesh.NewError(grainmesh.CodeBadOption, "--grains must be positive, got %d", o.grains)
	}
	if !(o.res > 0) {
		return grainmesh.NewError(grainmesh.CodeBadOption, "--res must be positive, got %g", o.res)
	}
	return nil
}

func (a *app) runSynth(o synthOptions) error {
	if err := o.validate(); err != nil {
		return err
	}
	nx, ny, nz := o.dims[0], o.dims[1], o.dims[2]
	res := r3.Vec{X: o.res, Y: o.res, Z: o.res}
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	g, err := synth.RandomGrains(rng, o.grains, nx, ny, nz, res)
	if err != nil {
		return err
	}
	if o.inclusion > 0 {
		center := g.Center(nx/2, ny/2, nz/2)
		sphere, err := synth.Sphere(int32(o.grains+1), center, o.inclusion)
		if err != nil {
			return grainmesh.WrapError(grainmesh.CodeBadOption, "inclusion", err)
		}
		inc := synth.Voxelize(nx, ny, nz, res, 0, sphere)
		for i, l := range inc.Labels {
			if l != 0 {
				g.Labels[i] = l
			}
		}
	}
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return grainmesh.WrapError(grainmesh.CodeIO, "creating output directory", err)
	}
	path := filepath.Join(a.cfg.OutputDir, o.name)
	err = writeFile(path, func(w io.Writer) error {
		return meshio.WriteStructuredPoints(w, g, fmt.Sprintf("Voronoi grains: %d seeds, seed %d", o.grains, o.seed), a.cfg.BinaryVTK)
	})
	if err != nil {
		return err
	}
	a.log.Info("wrote synthetic volume", "path", path, "dims", o.dims, "grains", o.grains)
	return nil
}

func readMesh(nodesPath, trianglesPath string) (*grainmesh.Mesh, error) {
	nf, err := os.Open(nodesPath)
	if err != nil {
		return nil, grainmesh.WrapError(grainmesh.CodeIO, "opening nodes file", err)
	}
	defer nf.Close()
	tf, err := os.Open(trianglesPath)
	if err != nil {
		return nil, grainmesh.WrapError(grainmesh.CodeIO, "opening triangles file", err)
	}
	defer tf.Close()
	return meshio.ReadMesh(nf, tf)
}

// writeFile creates path and hands it to write. A failing Close is
// reported when write succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	fp, err := os.Create(path)
	if err != nil {
		return grainmesh.WrapError(grainmesh.CodeIO, "creating output", err)
	}
	defer func() {
		if cerr := fp.Close(); err == nil && cerr != nil {
			err = grainmesh.WrapError(grainmesh.CodeIO, "closing "+path, cerr)
		}
	}()
	return write(fp)
}
