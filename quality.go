package grainmesh

import (
	"math"

	"github.com/soypat/grainmesh/internal/d3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Quality holds shape metrics of a triangle.
type Quality struct {
	Area float64
	// Aspect is the longest edge length over the shortest. 1 for equilateral triangles.
	Aspect float64
	// Circularity is the circumradius over the inradius. 2 for equilateral triangles.
	Circularity float64
}

// TriangleQuality computes the shape metrics of the triangle with vertices v.
// Degenerate triangles have infinite Aspect and Circularity.
func TriangleQuality(v [3]r3.Vec) Quality {
	a := r3.Norm(r3.Sub(v[1], v[0]))
	b := r3.Norm(r3.Sub(v[2], v[1]))
	c := r3.Norm(r3.Sub(v[0], v[2]))
	area := d3.Triangle(v).Area()
	q := Quality{Area: area, Aspect: math.Inf(1), Circularity: math.Inf(1)}
	minEdge := math.Min(a, math.Min(b, c))
	if minEdge > 0 {
		q.Aspect = math.Max(a, math.Max(b, c)) / minEdge
	}
	if area > 0 {
		s := 0.5 * (a + b + c)
		inradius := area / s
		circumradius := a * b * c / (4 * area)
		q.Circularity = circumradius / inradius
	}
	return q
}

// Summary aggregates one metric over a mesh.
type Summary struct {
	Min, Max, Mean, StdDev float64
}

// QualityReport summarizes the triangle metrics of a mesh.
type QualityReport struct {
	Triangles   int
	Degenerate  int
	Area        Summary
	Aspect      Summary
	Circularity Summary
}

// MeshQuality returns per-triangle area, aspect and circularity slices of m.
func MeshQuality(m *Mesh) (area, aspect, circularity []float64) {
	n := len(m.Triangles)
	area = make([]float64, n)
	aspect = make([]float64, n)
	circularity = make([]float64, n)
	for i := range m.Triangles {
		q := TriangleQuality(m.Triangle3(i))
		area[i], aspect[i], circularity[i] = q.Area, q.Aspect, q.Circularity
	}
	return area, aspect, circularity
}

// Report computes a QualityReport. Degenerate triangles are counted and
// left out of the aspect and circularity summaries.
func Report(m *Mesh) QualityReport {
	area, aspect, circ := MeshQuality(m)
	rep := QualityReport{Triangles: len(area), Area: summarize(area)}
	finiteAspect := aspect[:0:0]
	finiteCirc := circ[:0:0]
	for i := range aspect {
		if math.IsInf(circ[i], 0) || math.IsInf(aspect[i], 0) {
			rep.Degenerate++
			continue
		}
		finiteAspect = append(finiteAspect, aspect[i])
		finiteCirc = append(finiteCirc, circ[i])
	}
	rep.Aspect = summarize(finiteAspect)
	rep.Circularity = summarize(finiteCirc)
	return rep
}

func summarize(x []float64) Summary {
	if len(x) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		std = 0
	}
	return Summary{
		Min:    floats.Min(x),
		Max:    floats.Max(x),
		Mean:   mean,
		StdDev: std,
	}
}
