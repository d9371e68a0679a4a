package m3c

// Square resolution table.
//
// A square is one face of a lattice cube, its four corners being voxel
// centres listed counter-clockwise as seen from outside the cube. Edge m
// joins corner m and corner (m+1)%4 and is active when their labels differ.
// Segment endpoints 0 to 3 are edge midpoints and endpoint 4 is the face
// centre. The first endpoint of every segment is an edge midpoint.

const faceCentre = 4

const (
	// Mask 15 sub-cases.
	caseCheckerEven = 15 // two labels, corners 0 and 2 hold the higher one.
	caseCheckerOdd  = 16 // two labels, corners 1 and 3 hold the higher one.
	caseEvenPair    = 17 // corners 0 and 2 share a label, 1 and 3 differ.
	caseOddPair     = 18 // corners 1 and 3 share a label, 0 and 2 differ.
	caseFourLabels  = 19

	numSquareCases = 20
)

type segs [4][2]uint8

type squareCase struct {
	nseg   uint8
	centre bool
	seg    segs
}

// squareCases is indexed by squareIndex. Masks 1, 2, 4 and 8 are impossible
// since labels cannot change exactly once around a closed loop.
var squareCases = [numSquareCases]squareCase{
	3:  {nseg: 1, seg: segs{{0, 1}}},
	5:  {nseg: 1, seg: segs{{0, 2}}},
	6:  {nseg: 1, seg: segs{{1, 2}}},
	7:  {nseg: 3, centre: true, seg: segs{{0, 4}, {1, 4}, {2, 4}}},
	9:  {nseg: 1, seg: segs{{3, 0}}},
	10: {nseg: 1, seg: segs{{1, 3}}},
	11: {nseg: 3, centre: true, seg: segs{{0, 4}, {1, 4}, {3, 4}}},
	12: {nseg: 1, seg: segs{{2, 3}}},
	13: {nseg: 3, centre: true, seg: segs{{0, 4}, {2, 4}, {3, 4}}},
	14: {nseg: 3, centre: true, seg: segs{{1, 4}, {2, 4}, {3, 4}}},
	// The higher label of a checkerboard stays connected across the square,
	// so the lower label corners are cut off.
	caseCheckerEven: {nseg: 2, seg: segs{{0, 1}, {2, 3}}},
	caseCheckerOdd:  {nseg: 2, seg: segs{{3, 0}, {1, 2}}},
	caseEvenPair:    {nseg: 2, seg: segs{{0, 1}, {2, 3}}},
	caseOddPair:     {nseg: 2, seg: segs{{3, 0}, {1, 2}}},
	caseFourLabels:  {nseg: 4, centre: true, seg: segs{{0, 4}, {1, 4}, {2, 4}, {3, 4}}},
}

// activeMask returns the bitmask of active square edges.
func activeMask(l *[4]int32) int {
	mask := 0
	for m := 0; m < 4; m++ {
		if l[m] != l[(m+1)&3] {
			mask |= 1 << m
		}
	}
	return mask
}

// squareIndex returns the squareCases index of a square with corner labels l.
// The result only depends on the labels and their cyclic order, so both
// cubes sharing a square resolve it identically.
func squareIndex(l *[4]int32) int {
	mask := activeMask(l)
	if mask != 15 {
		return mask
	}
	even, odd := l[0] == l[2], l[1] == l[3]
	switch {
	case even && odd:
		if l[0] > l[1] {
			return caseCheckerEven
		}
		return caseCheckerOdd
	case even:
		return caseEvenPair
	case odd:
		return caseOddPair
	}
	return caseFourLabels
}
