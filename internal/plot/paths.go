// Package plot renders reconstructed drive paths as PNG figures.
package plot

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/corrdash/corrdash/internal/drivepath"
)

// palette cycles across overlaid drives.
var palette = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
}

// RenderPaths draws the named trajectories overlaid on one equal-aspect
// figure and returns the encoded PNG. names fixes the drawing and
// legend order; every name must be present in the set.
func RenderPaths(names []string, set drivepath.NamedTrajectorySet) ([]byte, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("plot: no trajectories to render")
	}

	p := plot.New()
	p.Title.Text = "Reconstructed Paths"
	p.X.Label.Text = "X Position (m)"
	p.Y.Label.Text = "Y Position (m)"

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)

	for i, name := range names {
		path, ok := set[name]
		if !ok {
			return nil, fmt.Errorf("plot: no trajectory named %q", name)
		}

		pts := make(plotter.XYs, len(path))
		for j, pt := range path {
			pts[j] = plotter.XY{X: pt.X, Y: pt.Y}
			minX = math.Min(minX, pt.X)
			maxX = math.Max(maxX, pt.X)
			minY = math.Min(minY, pt.Y)
			maxY = math.Max(maxY, pt.Y)
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plot: building line for %q: %w", name, err)
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	setEqualAspect(p, minX, maxX, minY, maxY)

	var buf bytes.Buffer
	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("plot: encoding png: %w", err)
	}
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("plot: writing png: %w", err)
	}
	return buf.Bytes(), nil
}

// setEqualAspect pads both axes to the same span so paths keep their
// true geometry on the square canvas.
func setEqualAspect(p *plot.Plot, minX, maxX, minY, maxY float64) {
	spanX := maxX - minX
	spanY := maxY - minY
	span := math.Max(spanX, spanY)
	if span == 0 {
		span = 1
	}
	pad := span * 0.05
	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2
	p.X.Min = cx - span/2 - pad
	p.X.Max = cx + span/2 + pad
	p.Y.Min = cy - span/2 - pad
	p.Y.Max = cy + span/2 + pad
}
