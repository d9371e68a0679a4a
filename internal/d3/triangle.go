package d3

import "gonum.org/v1/gonum/spatial/r3"

// Triangle is a triangle by its vertex positions.
type Triangle [3]r3.Vec

// Normal returns the right hand unit normal of the triangle.
func (t Triangle) Normal() r3.Vec {
	return r3.Unit(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

// Area returns the area of the triangle.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}
