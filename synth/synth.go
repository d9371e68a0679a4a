// Package synth builds labelled voxel volumes out of signed distance
// functions and Voronoi tessellations. The volumes serve as test input and
// demo material for surface extraction.
package synth

import (
	"errors"
	"math/rand/v2"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/grainmesh"
	"github.com/soypat/grainmesh/internal/d3"
	"github.com/soypat/grainmesh/internal/kdpoint"
	"gonum.org/v1/gonum/spatial/r3"
)

// Region labels the voxels whose centre lies inside Shape.
type Region struct {
	Label int32
	Shape sdf.SDF3
}

// Voxelize returns a grid of nx*ny*nz voxels of size res with the first
// voxel centred at the origin. Every voxel starts as background and is then
// overwritten by each region containing its centre, so later regions win.
func Voxelize(nx, ny, nz int, res r3.Vec, background int32, regions ...Region) *grainmesh.Grid {
	g := grainmesh.NewGrid(nx, ny, nz, res)
	g.Fill(func(i, j, k int) int32 {
		c := v3.Vec(g.Center(i, j, k))
		label := background
		for _, r := range regions {
			if r.Shape.Evaluate(c) <= 0 {
				label = r.Label
			}
		}
		return label
	})
	return g
}

// Sphere returns a spherical region.
func Sphere(label int32, center r3.Vec, radius float64) (Region, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return Region{}, err
	}
	return Region{Label: label, Shape: sdf.Transform3D(s, sdf.Translate3d(v3.Vec(center)))}, nil
}

// Box returns the axis aligned box spanning min to max.
func Box(label int32, min, max r3.Vec) (Region, error) {
	bb := d3.Box{Min: min, Max: max}
	s, err := sdf.Box3D(v3.Vec(bb.Size()), 0)
	if err != nil {
		return Region{}, err
	}
	// sdf.Box3D is centred at the origin.
	return Region{Label: label, Shape: sdf.Transform3D(s, sdf.Translate3d(v3.Vec(bb.Center())))}, nil
}

// Cylinder returns a cylinder of the given height along z centred at center.
func Cylinder(label int32, center r3.Vec, height, radius float64) (Region, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return Region{}, err
	}
	return Region{Label: label, Shape: sdf.Transform3D(s, sdf.Translate3d(v3.Vec(center)))}, nil
}

// Seed is a Voronoi site.
type Seed struct {
	Pos   r3.Vec
	Label int32
}

// RandomSeeds returns n seeds uniformly distributed in the box spanned by
// the voxel centres of an nx*ny*nz grid of spacing res, labelled 1 to n.
func RandomSeeds(rng *rand.Rand, n, nx, ny, nz int, res r3.Vec) []Seed {
	seeds := make([]Seed, n)
	for i := range seeds {
		seeds[i] = Seed{
			Pos: r3.Vec{
				X: rng.Float64() * float64(nx-1) * res.X,
				Y: rng.Float64() * float64(ny-1) * res.Y,
				Z: rng.Float64() * float64(nz-1) * res.Z,
			},
			Label: int32(i + 1),
		}
	}
	return seeds
}

// Voronoi returns a grid in which every voxel carries the label of the seed
// nearest to its centre. Ties go to whichever seed the tree finds first.
func Voronoi(nx, ny, nz int, res r3.Vec, seeds []Seed) (*grainmesh.Grid, error) {
	if len(seeds) == 0 {
		return nil, errors.New("no Voronoi seeds")
	}
	pos := make([]r3.Vec, len(seeds))
	for i, s := range seeds {
		pos[i] = s.Pos
	}
	tree := kdpoint.Tree(pos)
	g := grainmesh.NewGrid(nx, ny, nz, res)
	g.Fill(func(i, j, k int) int32 {
		id, _ := kdpoint.Nearest(tree, g.Center(i, j, k))
		return seeds[id].Label
	})
	return g, nil
}

// RandomGrains is Voronoi over n random seeds drawn from rng.
func RandomGrains(rng *rand.Rand, n, nx, ny, nz int, res r3.Vec) (*grainmesh.Grid, error) {
	return Voronoi(nx, ny, nz, res, RandomSeeds(rng, n, nx, ny, nz, res))
}
