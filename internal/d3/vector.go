package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// R3 vector helpers missing from gonum's r3 package.

// Elem returns a vector with all components set to v.
func Elem(v float64) r3.Vec {
	return r3.Vec{X: v, Y: v, Z: v}
}

// EqualWithin reports whether all components of a and b differ by at most tol.
func EqualWithin(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// Centroid returns the arithmetic mean of a set of points. It returns the
// zero vector for an empty set.
func Centroid(pts ...r3.Vec) r3.Vec {
	if len(pts) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, p := range pts {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(pts)), sum)
}

// InHull reports whether p lies in the convex hull of pts. It looks for a
// segment, triangle or tetrahedron of pts holding p, which exists whenever
// p is in the hull, so it is meant for small point sets such as a one-ring.
// tol bounds both the distance from p to the simplex and the negative slack
// allowed on p's barycentric weights.
func InHull(p r3.Vec, tol float64, pts ...r3.Vec) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		if r3.Norm(r3.Sub(p, pts[i])) <= tol {
			return true
		}
		for j := i + 1; j < n; j++ {
			if inSimplex(p, tol, pts[i], pts[j]) {
				return true
			}
			for k := j + 1; k < n; k++ {
				if inSimplex(p, tol, pts[i], pts[j], pts[k]) {
					return true
				}
				for l := k + 1; l < n; l++ {
					if inSimplex(p, tol, pts[i], pts[j], pts[k], pts[l]) {
						return true
					}
				}
			}
		}
	}
	return false
}

// inSimplex computes the barycentric weights of p, projected onto the span
// of the 2 to 4 vertices in s, and checks them. Degenerate simplices never
// hold p.
func inSimplex(p r3.Vec, tol float64, s ...r3.Vec) bool {
	var w [4]float64
	a := s[0]
	e1, dp := r3.Sub(s[1], a), r3.Sub(p, a)
	switch len(s) {
	case 2:
		l2 := r3.Norm2(e1)
		if l2 == 0 {
			return false
		}
		w[1] = r3.Dot(dp, e1) / l2
	case 3:
		e2 := r3.Sub(s[2], a)
		nrm := r3.Cross(e1, e2)
		nn := r3.Norm2(nrm)
		if nn == 0 {
			return false
		}
		w[1] = r3.Dot(r3.Cross(dp, e2), nrm) / nn
		w[2] = r3.Dot(r3.Cross(e1, dp), nrm) / nn
	case 4:
		e2, e3 := r3.Sub(s[2], a), r3.Sub(s[3], a)
		vol := r3.Dot(e1, r3.Cross(e2, e3))
		if vol == 0 {
			return false
		}
		w[1] = r3.Dot(dp, r3.Cross(e2, e3)) / vol
		w[2] = r3.Dot(e1, r3.Cross(dp, e3)) / vol
		w[3] = r3.Dot(e1, r3.Cross(e2, dp)) / vol
	default:
		panic("d3: simplex needs 2 to 4 vertices")
	}
	w[0] = 1
	q := a
	for i := 1; i < len(s); i++ {
		w[0] -= w[i]
		q = r3.Add(q, r3.Scale(w[i], r3.Sub(s[i], a)))
	}
	for _, v := range w[:len(s)] {
		if v < -tol {
			return false
		}
	}
	return r3.Norm(r3.Sub(p, q)) <= tol
}
