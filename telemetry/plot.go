package telemetry

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// percentileLines are the percentiles drawn on the history plot, with the
// best and worst creatures emphasised.
var percentileLines = []struct {
	p     int
	width vg.Length
	color color.RGBA
}{
	{0, 2, color.RGBA{R: 255, G: 200, A: 255}},
	{10, 1, color.RGBA{R: 200, G: 120, B: 40, A: 255}},
	{50, 2, color.RGBA{R: 220, A: 255}},
	{90, 1, color.RGBA{R: 80, G: 80, B: 200, A: 255}},
	{100, 2, color.RGBA{B: 200, A: 255}},
}

// WritePercentilePlot draws fitness percentiles across generations and
// saves the figure; the format follows the file extension. history[g] holds
// generation g's percentiles with index 0 the best, resolution+1 entries.
func WritePercentilePlot(path string, history [][]float64, unitsPerMeter float64) error {
	if len(history) == 0 {
		return errors.New("plot: no generations")
	}
	resolution := len(history[0]) - 1

	p := plot.New()
	p.Title.Text = "Fitness percentiles"
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Distance (cm)"

	for _, pl := range percentileLines {
		idx := pl.p * resolution / 100
		pts := make(plotter.XYs, len(history))
		for g, row := range history {
			pts[g].X = float64(g)
			pts[g].Y = row[idx] / unitsPerMeter
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot p%d: %w", pl.p, err)
		}
		line.LineStyle.Width = vg.Points(float64(pl.width))
		line.LineStyle.Color = pl.color
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("p%d", pl.p), line)
	}
	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}
