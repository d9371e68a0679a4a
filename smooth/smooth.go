// Package smooth relaxes surface mesh nodes toward the centroid of their
// one-ring neighbours while keeping mesh topology fixed.
package smooth

import (
	"context"
	"fmt"

	"github.com/soypat/grainmesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Lambdas holds the relaxation factor of every node kind. A node moves
// lambda of the way from its position to the centroid of its neighbours.
type Lambdas struct {
	Default            float64 `toml:"default"`
	TriplePoint        float64 `toml:"triple_point"`
	QuadPoint          float64 `toml:"quad_point"`
	SurfaceDefault     float64 `toml:"surface_default"`
	SurfaceTriplePoint float64 `toml:"surface_triple_point"`
	SurfaceQuadPoint   float64 `toml:"surface_quad_point"`
}

// DefaultLambdas moves every node all the way to its neighbour centroid.
func DefaultLambdas() Lambdas {
	return Lambdas{
		Default:            1,
		TriplePoint:        1,
		QuadPoint:          1,
		SurfaceDefault:     1,
		SurfaceTriplePoint: 1,
		SurfaceQuadPoint:   1,
	}
}

// For returns the lambda of kind k. Unused nodes never move.
func (l *Lambdas) For(k grainmesh.NodeKind) float64 {
	switch k {
	case grainmesh.KindDefault:
		return l.Default
	case grainmesh.KindTriplePoint:
		return l.TriplePoint
	case grainmesh.KindQuadPoint:
		return l.QuadPoint
	case grainmesh.KindSurfaceDefault:
		return l.SurfaceDefault
	case grainmesh.KindSurfaceTriplePoint:
		return l.SurfaceTriplePoint
	case grainmesh.KindSurfaceQuadPoint:
		return l.SurfaceQuadPoint
	}
	return 0
}

func (l *Lambdas) validate() error {
	for _, v := range [...]float64{l.Default, l.TriplePoint, l.QuadPoint, l.SurfaceDefault, l.SurfaceTriplePoint, l.SurfaceQuadPoint} {
		if !(v >= 0 && v <= 1) {
			return grainmesh.NewError(grainmesh.CodeBadOption, "smoothing lambda %g outside [0, 1]", v)
		}
	}
	return nil
}

// Options configures Smooth.
type Options struct {
	Iterations int
	// LockQuadPoints pins junction nodes (triple and quad points) and every
	// node on the volume boundary.
	LockQuadPoints bool
	// Lambdas defaults to DefaultLambdas when nil.
	Lambdas *Lambdas
	// SnapshotInterval > 0 calls Snapshot after every SnapshotInterval
	// iterations with the number of iterations done so far.
	SnapshotInterval int
	Snapshot         func(iteration int, m *grainmesh.Mesh) error
	Observer         grainmesh.Observer
}

// Result reports how a smoothing run ended.
type Result struct {
	Iterations int
	Status     grainmesh.Status
	// Moved is the number of nodes free to move.
	Moved int
}

// Smooth runs Jacobi Laplacian smoothing on the node positions of m. Every
// iteration computes all new positions from the positions of the previous
// iteration, so the result does not depend on node order. links must have
// been built from m's current topology. Cancellation of ctx is checked
// before every iteration and ends the run with status Canceled and a nil
// error, leaving m with the positions of the last completed iteration.
// A Snapshot error stops the run and is returned.
func Smooth(ctx context.Context, m *grainmesh.Mesh, links *grainmesh.VertexLinks, opts Options) (Result, error) {
	if m == nil || links == nil {
		panic("smooth: nil mesh or links")
	}
	if links.NumNodes() != len(m.Nodes) {
		return Result{}, grainmesh.NewError(grainmesh.CodeBadLinks, "links index %d nodes, mesh has %d", links.NumNodes(), len(m.Nodes))
	}
	if opts.Iterations < 0 {
		return Result{}, grainmesh.NewError(grainmesh.CodeBadOption, "negative iteration count %d", opts.Iterations)
	}
	lambdas := DefaultLambdas()
	if opts.Lambdas != nil {
		lambdas = *opts.Lambdas
	}
	if err := lambdas.validate(); err != nil {
		return Result{}, err
	}
	obs := opts.Observer
	if obs == nil {
		obs = grainmesh.NopObserver{}
	}
	r := newRelaxer(m, links, &lambdas, opts.LockQuadPoints)
	res := Result{Status: grainmesh.Completed, Moved: r.movable()}
	obs.Status(fmt.Sprintf("smoothing %d nodes for %d iterations", res.Moved, opts.Iterations))
	for res.Iterations < opts.Iterations {
		if ctx.Err() != nil {
			res.Status = grainmesh.Canceled
			obs.Status("smoothing canceled")
			return res, nil
		}
		r.step()
		res.Iterations++
		obs.Progress(100 * res.Iterations / opts.Iterations)
		if opts.SnapshotInterval > 0 && opts.Snapshot != nil && res.Iterations%opts.SnapshotInterval == 0 {
			if err := opts.Snapshot(res.Iterations, m); err != nil {
				err = grainmesh.WrapError(grainmesh.CodeIO, fmt.Sprintf("snapshot at iteration %d", res.Iterations), err)
				obs.Error(err.Error(), grainmesh.ErrorCode(err))
				return res, err
			}
		}
	}
	return res, nil
}

// relaxer holds the fixed one-ring neighbourhoods of the mesh nodes in
// compressed form and the double buffer of positions.
type relaxer struct {
	m       *grainmesh.Mesh
	lambda  []float64
	offsets []int32
	nbrs    []int32
	next    []r3.Vec
}

func newRelaxer(m *grainmesh.Mesh, links *grainmesh.VertexLinks, l *Lambdas, lock bool) *relaxer {
	nn := len(m.Nodes)
	r := &relaxer{
		m:       m,
		lambda:  make([]float64, nn),
		offsets: make([]int32, nn+1),
		nbrs:    make([]int32, 0, 2*links.NumIncidences()),
		next:    make([]r3.Vec, nn),
	}
	seen := make([]bool, nn)
	for n := range m.Nodes {
		r.nbrs = links.Neighbors(r.nbrs, n, m.Triangles, seen)
		r.offsets[n+1] = int32(len(r.nbrs))
		kind := m.Nodes[n].Kind
		if lock && (kind.IsJunction() || kind.IsSurface()) {
			continue
		}
		if r.offsets[n+1] > r.offsets[n] {
			r.lambda[n] = l.For(kind)
		}
	}
	return r
}

func (r *relaxer) movable() (n int) {
	for _, l := range r.lambda {
		if l != 0 {
			n++
		}
	}
	return n
}

func (r *relaxer) step() {
	nodes := r.m.Nodes
	for n := range nodes {
		pos := nodes[n].Pos
		lambda := r.lambda[n]
		if lambda == 0 {
			r.next[n] = pos
			continue
		}
		nb := r.nbrs[r.offsets[n]:r.offsets[n+1]]
		var sum r3.Vec
		for _, v := range nb {
			sum = r3.Add(sum, nodes[v].Pos)
		}
		centroid := r3.Scale(1/float64(len(nb)), sum)
		if lambda == 1 {
			r.next[n] = centroid
		} else {
			r.next[n] = r3.Add(pos, r3.Scale(lambda, r3.Sub(centroid, pos)))
		}
	}
	for n := range nodes {
		nodes[n].Pos = r.next[n]
	}
}
