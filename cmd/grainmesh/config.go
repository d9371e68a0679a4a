package main

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/grainmesh"
	"github.com/soypat/grainmesh/meshio"
	"github.com/soypat/grainmesh/smooth"
)

// Config is the TOML configuration of a meshing run. Command line flags
// override the values read from file.
type Config struct {
	// Input is the VTK STRUCTURED_POINTS voxel volume to mesh.
	Input     string `toml:"input"`
	OutputDir string `toml:"outputDir"`
	// WrapBoundary also meshes the outer surface of the volume.
	WrapBoundary bool `toml:"wrapBoundary"`

	SmoothMesh       bool `toml:"smoothMesh"`
	SmoothIterations int  `toml:"smoothIterations"`
	// SmoothFileOutputIncrement writes smooth_<iteration>.vtk every that
	// many iterations. Zero disables snapshots.
	SmoothFileOutputIncrement int            `toml:"smoothFileOutputIncrement"`
	LockQuadPoints            bool           `toml:"lockQuadPoints"`
	Lambdas                   smooth.Lambdas `toml:"lambdas"`

	BinaryVTK    bool `toml:"binaryVTK"`
	NonConformal bool `toml:"nonConformal"`
	STL          bool `toml:"stl"`
	Preview      bool `toml:"preview"`
	Histograms   bool `toml:"histograms"`
	// HistogramBins is the number of bins of the quality histograms.
	HistogramBins int `toml:"histogramBins"`

	View meshio.View `toml:"-"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		OutputDir:        ".",
		SmoothIterations: 20,
		Lambdas:          smooth.DefaultLambdas(),
		HistogramBins:    32,
		View:             meshio.DefaultView,
	}
}

// Load decodes the TOML file at path over c. Keys missing from the file
// keep their current value and unknown keys are an error.
func (c *Config) Load(path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return grainmesh.WrapError(grainmesh.CodeIO, "opening config", err)
	}
	defer fp.Close()
	dec := toml.NewDecoder(fp)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return grainmesh.WrapError(grainmesh.CodeBadOption, "decoding config "+path, err)
	}
	return nil
}

// Validate checks the numeric options.
func (c *Config) Validate() error {
	switch {
	case c.SmoothIterations < 0:
		return grainmesh.NewError(grainmesh.CodeBadOption, "smoothIterations must not be negative, got %d", c.SmoothIterations)
	case c.SmoothFileOutputIncrement < 0:
		return grainmesh.NewError(grainmesh.CodeBadOption, "smoothFileOutputIncrement must not be negative, got %d", c.SmoothFileOutputIncrement)
	case c.HistogramBins <= 0:
		return grainmesh.NewError(grainmesh.CodeBadOption, "histogramBins must be positive, got %d", c.HistogramBins)
	case c.OutputDir == "":
		return grainmesh.NewError(grainmesh.CodeBadOption, "empty outputDir")
	}
	return nil
}

func (c *Config) smoothOptions() smooth.Options {
	lambdas := c.Lambdas
	return smooth.Options{
		Iterations:       c.SmoothIterations,
		LockQuadPoints:   c.LockQuadPoints,
		Lambdas:          &lambdas,
		SnapshotInterval: c.SmoothFileOutputIncrement,
	}
}

func (c *Config) vtkOptions(title string) meshio.VTKOptions {
	return meshio.VTKOptions{Title: title, Binary: c.BinaryVTK, NonConformal: c.NonConformal}
}
