// Package m3c extracts the conforming surface mesh between all regions of
// a labelled voxel volume. Cubes of the dual lattice, whose corners are
// voxel centres, are meshed one at a time and their fragments merged so
// shared nodes and edges are stored once.
package m3c

import (
	"context"
	"math"

	"github.com/soypat/grainmesh"
)

// ExteriorLabel is the label of the padding layer added around the volume
// when wrapping its boundary.
const ExteriorLabel int32 = -1

// Options configures surface extraction.
type Options struct {
	// WrapBoundary pads the volume with ExteriorLabel voxels so the outer
	// surface of every region touching the volume boundary is meshed too.
	WrapBoundary bool
	// Observer receives progress. May be nil.
	Observer grainmesh.Observer
}

// segment is a directed square segment. The higher label lies on its left
// as seen from outside the cube.
type segment struct {
	p, q   [3]int
	pk, qk int64
	hi, lo int32
}

// Builder scans a voxel grid cube by cube and resolves every cube face into
// segments, then closes the segments of each cube into triangles.
type Builder struct {
	grid grainmesh.VoxelGrid
	lat  lattice
	wrap bool
	obs  grainmesh.Observer
	// scratch
	segs []segment
	used []bool
	loop []int
}

// NewBuilder validates g and returns a Builder over it. g must not be
// modified while the Builder is in use.
func NewBuilder(g grainmesh.VoxelGrid, opts Options) (*Builder, error) {
	if gg, ok := g.(*grainmesh.Grid); ok {
		if err := gg.Validate(); err != nil {
			return nil, err
		}
	} else if err := grainmesh.ValidateGrid(g); err != nil {
		return nil, err
	}
	nx, ny, nz := g.Dims()
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				l := g.Label(i, j, k)
				if l == grainmesh.NoLabel {
					return nil, grainmesh.NewError(grainmesh.CodeBadLabel, "voxel (%d,%d,%d) holds reserved label %d", i, j, k, l)
				}
				if opts.WrapBoundary && l == ExteriorLabel {
					return nil, grainmesh.NewError(grainmesh.CodeBadLabel, "voxel (%d,%d,%d) holds exterior label %d", i, j, k, l)
				}
			}
		}
	}
	b := &Builder{
		grid: g,
		wrap: opts.WrapBoundary,
		obs:  opts.Observer,
		lat: lattice{
			nx: nx, ny: ny, nz: nz,
			origin: grainmesh.GridOrigin(g),
			res:    g.Resolution(),
		},
	}
	if b.obs == nil {
		b.obs = grainmesh.NopObserver{}
	}
	if b.wrap {
		b.lat.nx += 2
		b.lat.ny += 2
		b.lat.nz += 2
		b.lat.origin.X -= b.lat.res.X
		b.lat.origin.Y -= b.lat.res.Y
		b.lat.origin.Z -= b.lat.res.Z
	}
	if int64(b.lat.nx)*int64(b.lat.ny)*int64(b.lat.nz) > math.MaxInt64/slotsPerSite {
		return nil, grainmesh.NewError(grainmesh.CodeBadDims, "grid too large to number nodes")
	}
	return b, nil
}

// label returns the label at lattice site (i,j,k).
func (b *Builder) label(i, j, k int) int32 {
	if !b.wrap {
		return b.grid.Label(i, j, k)
	}
	if i == 0 || j == 0 || k == 0 || i == b.lat.nx-1 || j == b.lat.ny-1 || k == b.lat.nz-1 {
		return ExteriorLabel
	}
	return b.grid.Label(i-1, j-1, k-1)
}

// CubeLayers returns the number of cube layers along z.
func (b *Builder) CubeLayers() int { return b.lat.nz - 1 }

// Cube resets f and fills it with the fragment of the lattice cube whose
// first voxel is at lattice site (i,j,k).
func (b *Builder) Cube(i, j, k int, f *Fragment) {
	f.Reset()
	var labels [8]int32
	uniform := true
	for c := uint8(0); c < 8; c++ {
		off := cornerOffset(c)
		labels[c] = b.label(i+off[0], j+off[1], k+off[2])
		uniform = uniform && labels[c] == labels[0]
	}
	if uniform {
		return
	}
	base := [3]int{2 * i, 2 * j, 2 * k}
	b.segs = b.segs[:0]
	body := false
	for fi := range cubeFaces {
		face := &cubeFaces[fi]
		var fl [4]int32
		for m, c := range face.corners {
			fl[m] = labels[c]
		}
		idx := squareIndex(&fl)
		sc := &squareCases[idx]
		if sc.nseg == 0 && idx != 0 {
			panic("m3c: impossible square configuration")
		}
		// A square split into two segments has all four of its edge nodes
		// on the surface, so a fan chord between two of them could lie in
		// the square and be shared with the neighbouring cube.
		body = body || sc.centre || sc.nseg > 1
		for s := 0; s < int(sc.nseg); s++ {
			b.segs = append(b.segs, b.segment(base, face, &fl, sc.seg[s]))
		}
	}
	for _, s := range b.segs {
		b.node(f, s.p, s.pk)
		b.node(f, s.q, s.qk)
	}
	if body {
		b.fanBody(base, f)
	} else {
		b.fanLoops(f)
	}
}

// segment orients square segment e of face so its higher label is on the left.
func (b *Builder) segment(base [3]int, face *cubeFace, fl *[4]int32, e [2]uint8) segment {
	m := e[0]
	la, lb := fl[m], fl[(m+1)&3]
	hiCorner := face.corners[(m+1)&3]
	hi, lo := lb, la
	if la > lb {
		hiCorner = face.corners[m]
		hi, lo = la, lb
	}
	off := cornerOffset(hiCorner)
	c := [3]int{base[0] + 2*off[0], base[1] + 2*off[1], base[2] + 2*off[2]}
	p, q := face.point(base, e[0]), face.point(base, e[1])
	side := dot3(cross3(sub3(q, p), sub3(c, p)), face.normal)
	switch {
	case side < 0:
		p, q = q, p
	case side == 0:
		panic("m3c: segment collinear with its edge")
	}
	return segment{p: p, q: q, pk: b.lat.key(p), qk: b.lat.key(q), hi: hi, lo: lo}
}

func (b *Builder) node(f *Fragment, d [3]int, key int64) {
	f.addNode(FragmentNode{
		Key:  key,
		Pos:  b.lat.pos(d),
		Hull: !b.wrap && b.lat.onHull(d),
	})
}

// fanBody joins every segment to a node at the cube centre.
func (b *Builder) fanBody(base [3]int, f *Fragment) {
	body := [3]int{base[0] + 1, base[1] + 1, base[2] + 1}
	bk := b.lat.key(body)
	b.node(f, body, bk)
	for _, s := range b.segs {
		f.Triangles = append(f.Triangles, FragmentTriangle{
			Keys:      [3]int64{s.pk, s.qk, bk},
			Labels:    [2]int32{s.hi, s.lo},
			FaceEdges: 0b001,
		})
	}
}

// fanLoops chains segments into closed loops and triangulates each as a fan
// from its smallest key. Every face must hold at most one segment.
func (b *Builder) fanLoops(f *Fragment) {
	n := len(b.segs)
	b.used = append(b.used[:0], make([]bool, n)...)
	for s0 := 0; s0 < n; s0++ {
		if b.used[s0] {
			continue
		}
		first := &b.segs[s0]
		b.loop = b.loop[:0]
		s := s0
		for {
			b.used[s] = true
			seg := &b.segs[s]
			if seg.hi != first.hi || seg.lo != first.lo {
				panic("m3c: segment loop separates more than two labels")
			}
			b.loop = append(b.loop, s)
			next := -1
			for t := 0; t < n; t++ {
				if !b.used[t] && b.segs[t].pk == seg.qk {
					next = t
					break
				}
			}
			if next < 0 {
				if seg.qk != first.pk {
					panic("m3c: open segment loop")
				}
				break
			}
			s = next
		}
		nl := len(b.loop)
		if nl < 3 {
			panic("m3c: degenerate segment loop")
		}
		start := 0
		for i := 1; i < nl; i++ {
			if b.segs[b.loop[i]].pk < b.segs[b.loop[start]].pk {
				start = i
			}
		}
		key := func(i int) int64 { return b.segs[b.loop[(start+i)%nl]].pk }
		for t := 1; t < nl-1; t++ {
			var faceEdges uint8 = 0b010
			if t == 1 {
				faceEdges |= 0b001
			}
			if t == nl-2 {
				faceEdges |= 0b100
			}
			f.Triangles = append(f.Triangles, FragmentTriangle{
				Keys:      [3]int64{key(0), key(t), key(t + 1)},
				Labels:    [2]int32{first.hi, first.lo},
				FaceEdges: faceEdges,
			})
		}
	}
}

// Result is the outcome of a surface extraction.
type Result struct {
	Mesh   *grainmesh.Mesh
	Links  *grainmesh.VertexLinks
	Status grainmesh.Status
	// Layers is the number of cube layers along z that were meshed.
	Layers int
}

// Build meshes the whole grid. Cancellation of ctx is checked between cube
// layers; a canceled build returns the mesh of the completed layers with
// status Canceled and a nil error.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	asm := NewAssembler(b.wrap)
	var frag Fragment
	layers := b.CubeLayers()
	res := Result{Status: grainmesh.Completed}
	b.obs.Status("extracting surface mesh")
	for k := 0; k < layers; k++ {
		if ctx.Err() != nil {
			res.Status = grainmesh.Canceled
			b.obs.Status("surface extraction canceled")
			break
		}
		for j := 0; j < b.lat.ny-1; j++ {
			for i := 0; i < b.lat.nx-1; i++ {
				b.Cube(i, j, k, &frag)
				if frag.Empty() {
					continue
				}
				if err := asm.Add(&frag); err != nil {
					b.obs.Error(err.Error(), grainmesh.ErrorCode(err))
					return Result{}, err
				}
			}
		}
		res.Layers++
		b.obs.Progress(100 * (k + 1) / layers)
	}
	res.Mesh, res.Links = asm.Finish()
	return res, nil
}

// Extract builds the surface mesh of g. Errors rejecting g or opts are
// reported to opts.Observer before being returned.
func Extract(ctx context.Context, g grainmesh.VoxelGrid, opts Options) (Result, error) {
	b, err := NewBuilder(g, opts)
	if err != nil {
		if opts.Observer != nil {
			opts.Observer.Error(err.Error(), grainmesh.ErrorCode(err))
		}
		return Result{}, err
	}
	return b.Build(ctx)
}
