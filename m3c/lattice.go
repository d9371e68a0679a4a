package m3c

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Node slots of a lattice site.
const (
	slotEdgeX = iota
	slotEdgeY
	slotEdgeZ
	slotFaceXY
	slotFaceXZ
	slotFaceYZ
	slotBody
	slotsPerSite
)

// paritySlot maps the parity bits px | py<<1 | pz<<2 of a doubled
// coordinate to its node slot. Even parity is a voxel centre.
var paritySlot = [8]int8{-1, slotEdgeX, slotEdgeY, slotFaceXY, slotEdgeZ, slotFaceXZ, slotFaceYZ, slotBody}

var slotParity = [slotsPerSite]int{1, 2, 4, 3, 5, 6, 7}

// lattice numbers the nodes that may appear between voxel centres. Points are
// addressed in doubled integer coordinates: voxel (i,j,k) sits at
// (2i,2j,2k), so edge midpoints and face and body centres are integral.
type lattice struct {
	nx, ny, nz int
	origin     r3.Vec
	res        r3.Vec
}

// key returns the global node key of doubled coordinate d.
func (l *lattice) key(d [3]int) int64 {
	slot := paritySlot[d[0]&1|(d[1]&1)<<1|(d[2]&1)<<2]
	if slot < 0 {
		panic("m3c: voxel centre is not a node")
	}
	site := (int64(d[2]>>1)*int64(l.ny)+int64(d[1]>>1))*int64(l.nx) + int64(d[0]>>1)
	return site*slotsPerSite + int64(slot)
}

// coords inverts key.
func (l *lattice) coords(key int64) [3]int {
	slot := int(key % slotsPerSite)
	site := key / slotsPerSite
	i := int(site % int64(l.nx))
	j := int(site / int64(l.nx) % int64(l.ny))
	k := int(site / (int64(l.nx) * int64(l.ny)))
	p := slotParity[slot]
	return [3]int{2*i + p&1, 2*j + (p>>1)&1, 2*k + (p>>2)&1}
}

func (l *lattice) pos(d [3]int) r3.Vec {
	return r3.Vec{
		X: l.origin.X + 0.5*float64(d[0])*l.res.X,
		Y: l.origin.Y + 0.5*float64(d[1])*l.res.Y,
		Z: l.origin.Z + 0.5*float64(d[2])*l.res.Z,
	}
}

// onHull reports whether d lies on the boundary of the lattice's bounding box.
func (l *lattice) onHull(d [3]int) bool {
	return d[0] == 0 || d[0] == 2*(l.nx-1) ||
		d[1] == 0 || d[1] == 2*(l.ny-1) ||
		d[2] == 0 || d[2] == 2*(l.nz-1)
}

// Cube corner c sits at offset (c&1, c>>1&1, c>>2&1) from the cube's first voxel.
func cornerOffset(c uint8) [3]int {
	return [3]int{int(c & 1), int(c>>1) & 1, int(c>>2) & 1}
}

type cubeFace struct {
	// corners counter-clockwise as seen from outside the cube.
	corners [4]uint8
	normal  [3]int
}

var cubeFaces = [6]cubeFace{
	{corners: [4]uint8{0, 2, 3, 1}, normal: [3]int{0, 0, -1}},
	{corners: [4]uint8{4, 5, 7, 6}, normal: [3]int{0, 0, 1}},
	{corners: [4]uint8{0, 1, 5, 4}, normal: [3]int{0, -1, 0}},
	{corners: [4]uint8{2, 6, 7, 3}, normal: [3]int{0, 1, 0}},
	{corners: [4]uint8{0, 4, 6, 2}, normal: [3]int{-1, 0, 0}},
	{corners: [4]uint8{1, 3, 7, 5}, normal: [3]int{1, 0, 0}},
}

// point returns the doubled coordinate of square endpoint e of face f in the
// cube whose first voxel is at doubled coordinate base.
func (f *cubeFace) point(base [3]int, e uint8) [3]int {
	d := base
	if e == faceCentre {
		for _, c := range f.corners {
			off := cornerOffset(c)
			for ax := range d {
				d[ax] += off[ax]
			}
		}
		for ax := range d {
			// Corners contributed 0, 2 or 4 per axis above base.
			d[ax] = base[ax] + (d[ax]-base[ax])/2
		}
		return d
	}
	oa, ob := cornerOffset(f.corners[e]), cornerOffset(f.corners[(e+1)&3])
	for ax := range d {
		d[ax] += oa[ax] + ob[ax]
	}
	return d
}

func sub3(a, b [3]int) [3]int { return [3]int{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func cross3(a, b [3]int) [3]int {
	return [3]int{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]int) int { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
