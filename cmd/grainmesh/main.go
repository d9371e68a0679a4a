// Command grainmesh extracts conforming surface meshes from labelled voxel
// volumes, smooths them and reports their triangle quality.
//
// Usage:
//
//	grainmesh mesh -i volume.vtk -o out --smooth --iterations 50
//	grainmesh smooth out/nodes.txt out/triangles.txt -o smoothed
//	grainmesh quality out/nodes.txt out/triangles.txt
//	grainmesh synth --grains 40 --dims 64,64,64 -o volume.vtk
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/soypat/grainmesh"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	code := 1
	var gerr *grainmesh.Error
	switch {
	case errors.Is(err, errInterrupted):
		code = 130
	case errors.As(err, &gerr):
		code = -gerr.Code
	}
	os.Exit(code)
}

var errInterrupted = errors.New("interrupted")

// app holds the state shared by all subcommands.
type app struct {
	cfg        Config
	flags      Config
	configPath string
	debug      bool
	verbose    bool
	quiet      bool
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: DefaultConfig(), flags: DefaultConfig()}
	root := &cobra.Command{
		Use:           "grainmesh",
		Short:         "Surface meshes of labelled voxel volumes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: levelFromFlags(a.debug, a.verbose, a.quiet),
			}))
			if a.configPath != "" {
				if err := a.cfg.Load(a.configPath); err != nil {
					return err
				}
				a.log.Debug("loaded config", "path", a.configPath)
			}
			a.override(cmd)
			return a.cfg.Validate()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "TOML configuration `file`")
	pf.BoolVar(&a.debug, "vv", false, "debug output")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "only log errors")
	pf.StringVarP(&a.flags.OutputDir, "output", "o", a.flags.OutputDir, "output directory")
	pf.BoolVar(&a.flags.BinaryVTK, "binary", false, "write binary VTK files")
	pf.BoolVar(&a.flags.NonConformal, "non-conformal", false, "write every VTK triangle once per bounding region")
	pf.BoolVar(&a.flags.STL, "stl", false, "also write the mesh as binary STL")
	pf.BoolVar(&a.flags.Preview, "preview", false, "render a PNG preview of the mesh")
	pf.BoolVar(&a.flags.Histograms, "histograms", false, "plot triangle quality histograms")
	pf.IntVar(&a.flags.SmoothIterations, "iterations", a.flags.SmoothIterations, "smoothing iterations")
	pf.IntVar(&a.flags.SmoothFileOutputIncrement, "increment", 0, "write a smoothing snapshot every `n` iterations")
	pf.BoolVar(&a.flags.LockQuadPoints, "lock-quad-points", false, "pin junction and boundary nodes while smoothing")

	root.AddCommand(a.meshCmd(), a.smoothCmd(), a.qualityCmd(), a.synthCmd())
	return root
}

// override copies every flag given on the command line over the configuration.
func (a *app) override(cmd *cobra.Command) {
	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("input", func() { a.cfg.Input = a.flags.Input })
	set("output", func() { a.cfg.OutputDir = a.flags.OutputDir })
	set("wrap", func() { a.cfg.WrapBoundary = a.flags.WrapBoundary })
	set("smooth", func() { a.cfg.SmoothMesh = a.flags.SmoothMesh })
	set("iterations", func() { a.cfg.SmoothIterations = a.flags.SmoothIterations })
	set("increment", func() { a.cfg.SmoothFileOutputIncrement = a.flags.SmoothFileOutputIncrement })
	set("lock-quad-points", func() { a.cfg.LockQuadPoints = a.flags.LockQuadPoints })
	set("binary", func() { a.cfg.BinaryVTK = a.flags.BinaryVTK })
	set("non-conformal", func() { a.cfg.NonConformal = a.flags.NonConformal })
	set("stl", func() { a.cfg.STL = a.flags.STL })
	set("preview", func() { a.cfg.Preview = a.flags.Preview })
	set("histograms", func() { a.cfg.Histograms = a.flags.Histograms })
}

func (a *app) meshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "Extract the surface mesh of a voxel volume",
		Long: "Extract the conforming surface mesh between all labelled regions of a VTK\n" +
			"STRUCTURED_POINTS volume, optionally smooth it, and write nodes.txt,\n" +
			"triangles.txt and mesh.vtk to the output directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMesh(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&a.flags.Input, "input", "i", "", "voxel volume `file`")
	cmd.Flags().BoolVar(&a.flags.WrapBoundary, "wrap", false, "mesh the outer surface of the volume")
	cmd.Flags().BoolVar(&a.flags.SmoothMesh, "smooth", false, "smooth the extracted mesh")
	return cmd
}

func (a *app) smoothCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smooth NODES TRIANGLES",
		Short: "Smooth a mesh read from nodes and triangles files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSmooth(cmd.Context(), args[0], args[1])
		},
	}
}

func (a *app) qualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quality NODES TRIANGLES",
		Short: "Report triangle quality of a mesh read from nodes and triangles files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuality(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func (a *app) synthCmd() *cobra.Command {
	var opts synthOptions
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic grain volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSynth(opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.grains, "grains", 20, "number of Voronoi grains")
	f.IntSliceVar(&opts.dims, "dims", []int{32, 32, 32}, "voxel counts along x,y,z")
	f.Float64Var(&opts.res, "res", 1, "voxel edge length")
	f.Uint64Var(&opts.seed, "seed", 1, "random seed")
	f.Float64Var(&opts.inclusion, "inclusion", 0, "radius of a spherical inclusion at the volume centre, 0 for none")
	f.StringVar(&opts.name, "name", "volume.vtk", "output file name inside the output directory")
	return cmd
}
