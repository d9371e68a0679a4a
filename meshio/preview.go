package meshio

import (
	"errors"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/grainmesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// View configures a preview render. The mesh is scaled to fit a bi-unit
// cube centred at the origin before rendering.
type View struct {
	// what position (point) to look at
	LookAt r3.Vec
	// which way is up (direction)
	Up r3.Vec
	// where the camera/eye located at (point)
	Eye           r3.Vec
	Near, Far     float64
	Width, Height int
	// Supersample renders at this multiple of the output size and
	// downsamples for antialiasing.
	Supersample int
	Color       string
	Background  string
}

// DefaultView is an isometric view.
var DefaultView = View{
	Up:          r3.Vec{Z: 1},
	Eye:         r3.Vec{X: 2.4, Y: 2.4, Z: 2.4},
	Near:        1,
	Far:         10,
	Width:       768,
	Height:      432,
	Supersample: 2,
	Color:       "#468966",
	Background:  "#FFF8E3",
}

// RenderPreview renders a shaded image of m. Both sides of every triangle
// are drawn so interior grain boundaries show regardless of winding.
func RenderPreview(m *grainmesh.Mesh, view View) (image.Image, error) {
	if len(m.Triangles) == 0 {
		return nil, errors.New("empty mesh")
	}
	if view.Width <= 0 || view.Height <= 0 {
		return nil, errors.New("preview size must be positive")
	}
	scale := view.Supersample
	if scale < 1 {
		scale = 1
	}
	tris := make([]*fauxgl.Triangle, 0, 2*len(m.Triangles))
	for i := range m.Triangles {
		v := m.Triangle3(i)
		a, b, c := fvec(v[0]), fvec(v[1]), fvec(v[2])
		tris = append(tris, fauxgl.NewTriangleForPoints(a, b, c), fauxgl.NewTriangleForPoints(a, c, b))
	}
	mesh := fauxgl.NewTriangleMesh(tris)
	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()

	const fovy = 30 // vertical field of view in degrees
	var (
		eye    = fvec(view.Eye)
		center = fvec(view.LookAt)
		up     = fvec(view.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
	)
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(view.Background))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(view.Color)
	context.Shader = shader
	context.DrawMesh(mesh)
	img := context.Image()
	if scale > 1 {
		img = resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear)
	}
	return img, nil
}

// SavePreviewPNG renders m and saves it as a PNG file.
func SavePreviewPNG(path string, m *grainmesh.Mesh, view View) error {
	img, err := RenderPreview(m, view)
	if err != nil {
		return err
	}
	return grainmesh.WrapError(grainmesh.CodeIO, "saving preview", fauxgl.SavePNG(path, img))
}

func fvec(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
