package meshio

import (
	"errors"
	"io"
	"math"

	"github.com/soypat/grainmesh"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteHistogram plots a PNG histogram of the finite values with the given
// number of bins.
func WriteHistogram(w io.Writer, values []float64, bins int, title, xlabel string) error {
	finite := make(plotter.Values, 0, len(values))
	for _, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return errors.New("no finite values to plot")
	}
	if bins <= 0 {
		bins = 32
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "triangles"
	h, err := plotter.NewHist(finite, bins)
	if err != nil {
		return err
	}
	p.Add(h)
	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return grainmesh.WrapError(grainmesh.CodeIO, "writing histogram", err)
}

// WriteQualityHistograms writes one histogram per triangle quality metric.
// create opens the destination of each metric by name: "area", "aspect"
// and "circularity".
func WriteQualityHistograms(m *grainmesh.Mesh, bins int, create func(metric string) (io.WriteCloser, error)) error {
	area, aspect, circ := grainmesh.MeshQuality(m)
	for _, q := range []struct {
		name   string
		label  string
		values []float64
	}{
		{"area", "triangle area", area},
		{"aspect", "max edge / min edge", aspect},
		{"circularity", "circumradius / inradius", circ},
	} {
		wc, err := create(q.name)
		if err != nil {
			return grainmesh.WrapError(grainmesh.CodeIO, "creating "+q.name+" histogram", err)
		}
		err = WriteHistogram(wc, q.values, bins, "Triangle "+q.name, q.label)
		if cerr := wc.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
