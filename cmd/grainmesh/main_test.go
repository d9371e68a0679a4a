package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/soypat/grainmesh"
	"github.com/soypat/grainmesh/meshio"
	"github.com/soypat/grainmesh/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	t.Log(stderr.String())
	return stdout.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "grainmesh.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeVolume(t *testing.T, dir string) string {
	t.Helper()
	g, err := synth.RandomGrains(rand.New(rand.NewPCG(3, 4)), 6, 8, 8, 8, r3.Vec{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	path := filepath.Join(dir, "volume.vtk")
	require.NoError(t, writeFile(path, func(w io.Writer) error {
		return meshio.WriteStructuredPoints(w, g, "test grains", true)
	}))
	return path
}

func TestConfigLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
input = 'grains.vtk'
outputDir = 'out'
smoothMesh = true
smoothIterations = 7
lockQuadPoints = true

[lambdas]
triple_point = 0.5
`)
	c := DefaultConfig()
	require.NoError(t, c.Load(path))
	assert.Equal(t, "grains.vtk", c.Input)
	assert.Equal(t, "out", c.OutputDir)
	assert.True(t, c.SmoothMesh)
	assert.Equal(t, 7, c.SmoothIterations)
	assert.True(t, c.LockQuadPoints)
	assert.Equal(t, 0.5, c.Lambdas.TriplePoint)
	assert.Equal(t, 1.0, c.Lambdas.Default, "keys missing from the file keep their default")
	assert.Equal(t, 32, c.HistogramBins)
	assert.NoError(t, c.Validate())

	opts := c.smoothOptions()
	assert.Equal(t, 7, opts.Iterations)
	require.NotNil(t, opts.Lambdas)
	assert.Equal(t, 0.5, opts.Lambdas.TriplePoint)
}

func TestConfigErrors(t *testing.T) {
	dir := t.TempDir()
	c := DefaultConfig()
	err := c.Load(writeConfig(t, dir, "smoothIteration = 3\n"))
	assert.Equal(t, grainmesh.CodeBadOption, grainmesh.ErrorCode(err), "unknown key")

	err = c.Load(filepath.Join(dir, "missing.toml"))
	assert.Equal(t, grainmesh.CodeIO, grainmesh.ErrorCode(err))

	c = DefaultConfig()
	c.SmoothIterations = -1
	assert.Equal(t, grainmesh.CodeBadOption, grainmesh.ErrorCode(c.Validate()))
	c = DefaultConfig()
	c.SmoothFileOutputIncrement = -2
	assert.Error(t, c.Validate())
}

func TestLevelFromFlags(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, levelFromFlags(true, true, true))
	assert.Equal(t, slog.LevelInfo, levelFromFlags(false, true, true))
	assert.Equal(t, slog.LevelError, levelFromFlags(false, false, true))
	assert.Equal(t, slog.LevelWarn, levelFromFlags(false, false, false))
}

func TestMeshCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	cfg := writeConfig(t, dir, fmt.Sprintf(`
input = '%s'
outputDir = '%s'
wrapBoundary = true
smoothMesh = true
smoothIterations = 9
smoothFileOutputIncrement = 2
stl = true
histograms = true
histogramBins = 10
`, writeVolume(t, dir), out))

	_, err := run(t, "mesh", "-c", cfg, "--iterations", "4", "--preview", "-v")
	require.NoError(t, err)
	for _, name := range []string{nodesFile, trianglesFile, vtkFile, stlFile, previewFile,
		snapshotFile(2), snapshotFile(4), "quality_area.png", "quality_aspect.png", "quality_circularity.png"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, snapshotFile(6)), "--iterations overrides the config file")

	nodes, tris := filepath.Join(out, nodesFile), filepath.Join(out, trianglesFile)
	m, err := readMesh(nodes, tris)
	require.NoError(t, err)
	require.NotEmpty(t, m.Triangles)
	assert.NoError(t, grainmesh.Verify(m))

	report, err := run(t, "quality", nodes, tris)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^triangles +`+strconv.Itoa(len(m.Triangles))+`$`, report)
	assert.Contains(t, report, "circularity")

	smoothed := filepath.Join(dir, "smoothed")
	_, err = run(t, "smooth", nodes, tris, "-o", smoothed, "--iterations", "2", "--lock-quad-points")
	require.NoError(t, err)
	m2, err := readMesh(filepath.Join(smoothed, nodesFile), filepath.Join(smoothed, trianglesFile))
	require.NoError(t, err)
	assert.Equal(t, m.Triangles, m2.Triangles, "smoothing keeps topology")
	for i, n := range m2.Nodes {
		if n.Kind.IsJunction() || n.Kind.IsSurface() {
			assert.Equal(t, m.Nodes[i].Pos, n.Pos, "locked node %d moved", i)
		}
	}
}

func TestMeshCommandErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "mesh", "-o", dir)
	assert.Equal(t, grainmesh.CodeBadOption, grainmesh.ErrorCode(err))

	_, err = run(t, "mesh", "-o", dir, "-i", filepath.Join(dir, "nope.vtk"))
	assert.Equal(t, grainmesh.CodeIO, grainmesh.ErrorCode(err))

	bad := filepath.Join(dir, "bad.vtk")
	require.NoError(t, os.WriteFile(bad, []byte("not a volume\n"), 0o644))
	_, err = run(t, "mesh", "-o", dir, "-i", bad)
	assert.Equal(t, grainmesh.CodeFormat, grainmesh.ErrorCode(err))

	_, err = run(t, "mesh", "-o", dir, "-i", bad, "--iterations", "-3")
	assert.Equal(t, grainmesh.CodeBadOption, grainmesh.ErrorCode(err))
}

func TestSynthCommand(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "synth", "-o", dir, "--dims", "6,5,4", "--grains", "3", "--inclusion", "1.5", "--binary", "--name", "g.vtk")
	require.NoError(t, err)
	fp, err := os.Open(filepath.Join(dir, "g.vtk"))
	require.NoError(t, err)
	defer fp.Close()
	g, hdr, err := meshio.ReadStructuredPoints(fp)
	require.NoError(t, err)
	assert.True(t, hdr.Binary)
	assert.Equal(t, [3]int{6, 5, 4}, hdr.Dims)
	assert.Equal(t, int32(4), g.Label(3, 2, 2), "inclusion at the volume centre")
	for _, l := range g.Labels {
		assert.True(t, l >= 1 && l <= 4, "label %d", l)
	}

	_, err = run(t, "synth", "-o", dir, "--dims", "6,5")
	assert.Equal(t, grainmesh.CodeBadDims, grainmesh.ErrorCode(err))
}
