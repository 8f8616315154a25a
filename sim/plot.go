package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// New2DPlot creates new plot of the tracking run from the three data sources:
// target:   target trajectory positions
// observed: observer estimated positions
// samples:  dataset sample positions
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * either of the supplied data matrices is nil
// * either of the supplied data matrices does not have at least 2 columns
// * gonum plot fails to be created
func New2DPlot(target, observed, samples *mat.Dense) (*plot.Plot, error) {
	if target == nil || observed == nil || samples == nil {
		return nil, fmt.Errorf("Invalid data supplied")
	}

	_, ct := target.Dims()
	_, co := observed.Dims()
	_, cs := samples.Dims()

	if ct < 2 || co < 2 || cs < 2 {
		return nil, fmt.Errorf("Invalid data dimensions")
	}

	p := plot.New()

	p.Title.Text = "Visual pursuit"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	// Make a scatter plotter for target data
	targetData := makePoints(target)
	targetScatter, err := plotter.NewScatter(targetData)
	if err != nil {
		return nil, err
	}
	targetScatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	targetScatter.Shape = draw.PyramidGlyph{}
	targetScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(targetScatter)
	p.Legend.Add("target", targetScatter)

	// Make a scatter plotter for observer data
	obsData := makePoints(observed)
	obsScatter, err := plotter.NewScatter(obsData)
	if err != nil {
		return nil, err
	}
	obsScatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	obsScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(obsScatter)
	p.Legend.Add("observer", obsScatter)

	// Make a scatter plotter for dataset samples
	samplePoints := makePoints(samples)
	sampleScatter, err := plotter.NewScatter(samplePoints)
	if err != nil {
		return nil, fmt.Errorf("Failed to create scatter: %v", err)
	}
	sampleScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169}
	sampleScatter.Shape = draw.CrossGlyph{}
	sampleScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(sampleScatter)
	p.Legend.Add("samples", sampleScatter)

	return p, nil
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
