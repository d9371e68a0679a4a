package grainmesh

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// VoxelGrid is read-only access to a labelled voxel volume. Voxel (i,j,k)
// is centred at Origin + (i*dx, j*dy, k*dz), where Origin is the zero vector
// unless the grid also implements Originer.
type VoxelGrid interface {
	Dims() (nx, ny, nz int)
	Resolution() r3.Vec
	Label(i, j, k int) int32
}

// Originer is implemented by grids whose first voxel is not centred at the origin.
type Originer interface {
	Origin() r3.Vec
}

// GridOrigin returns the origin of g.
func GridOrigin(g VoxelGrid) r3.Vec {
	if o, ok := g.(Originer); ok {
		return o.Origin()
	}
	return r3.Vec{}
}

// Grid is a dense VoxelGrid with x varying fastest.
type Grid struct {
	Nx, Ny, Nz int
	Res        r3.Vec
	Orig       r3.Vec
	Labels     []int32
}

var (
	_ VoxelGrid = (*Grid)(nil)
	_ Originer  = (*Grid)(nil)
)

// NewGrid allocates a grid of nx*ny*nz voxels labelled 0.
func NewGrid(nx, ny, nz int, res r3.Vec) *Grid {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		panic("grid dimensions must be positive")
	}
	return &Grid{
		Nx:     nx,
		Ny:     ny,
		Nz:     nz,
		Res:    res,
		Labels: make([]int32, nx*ny*nz),
	}
}

func (g *Grid) Dims() (nx, ny, nz int) { return g.Nx, g.Ny, g.Nz }
func (g *Grid) Resolution() r3.Vec      { return g.Res }
func (g *Grid) Origin() r3.Vec          { return g.Orig }

// Index returns the position of voxel (i,j,k) in Labels.
func (g *Grid) Index(i, j, k int) int { return (k*g.Ny+j)*g.Nx + i }

func (g *Grid) Label(i, j, k int) int32 { return g.Labels[g.Index(i, j, k)] }

func (g *Grid) Set(i, j, k int, label int32) { g.Labels[g.Index(i, j, k)] = label }

// Fill calls f for every voxel and stores the returned label.
func (g *Grid) Fill(f func(i, j, k int) int32) {
	n := 0
	for k := 0; k < g.Nz; k++ {
		for j := 0; j < g.Ny; j++ {
			for i := 0; i < g.Nx; i++ {
				g.Labels[n] = f(i, j, k)
				n++
			}
		}
	}
}

// Center returns the position of the centre of voxel (i,j,k).
func (g *Grid) Center(i, j, k int) r3.Vec {
	return r3.Vec{
		X: g.Orig.X + float64(i)*g.Res.X,
		Y: g.Orig.Y + float64(j)*g.Res.Y,
		Z: g.Orig.Z + float64(k)*g.Res.Z,
	}
}

// Validate checks the grid is usable for surface extraction.
func (g *Grid) Validate() error {
	if g == nil {
		return NewError(CodeBadGrid, "nil grid")
	}
	if err := ValidateGrid(g); err != nil {
		return err
	}
	if len(g.Labels) != g.Nx*g.Ny*g.Nz {
		return NewError(CodeBadDims, "grid holds %d labels, dimensions %dx%dx%d need %d",
			len(g.Labels), g.Nx, g.Ny, g.Nz, g.Nx*g.Ny*g.Nz)
	}
	return nil
}

// ValidateGrid checks dimensions and resolution of any VoxelGrid.
func ValidateGrid(g VoxelGrid) error {
	if g == nil {
		return NewError(CodeBadGrid, "nil voxel grid")
	}
	nx, ny, nz := g.Dims()
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return NewError(CodeBadDims, "non-positive grid dimensions %dx%dx%d", nx, ny, nz)
	}
	res := g.Resolution()
	if res.X <= 0 || res.Y <= 0 || res.Z <= 0 {
		return NewError(CodeBadDims, "non-positive grid resolution %v", res)
	}
	return nil
}
