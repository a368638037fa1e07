package ui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/jelly/species"
)

// percentileLines are drawn on the fitness graph; the best, median and
// worst lines are thicker.
var percentileLines = []struct {
	p     int
	thick float32
	color rl.Color
}{
	{0, 3, rl.Color{R: 255, G: 200, A: 255}},
	{10, 1, rl.Color{R: 200, G: 120, B: 40, A: 255}},
	{50, 3, rl.Color{R: 220, A: 255}},
	{90, 1, rl.Color{R: 80, G: 80, B: 200, A: 255}},
	{100, 3, rl.Color{B: 200, A: 255}},
}

// FitnessGraph draws fitness percentiles over generations.
type FitnessGraph struct {
	renderer *Renderer
}

// NewFitnessGraph creates a fitness graph.
func NewFitnessGraph() *FitnessGraph {
	return &FitnessGraph{renderer: NewRenderer()}
}

// Draw renders history[g] (percentiles, index 0 best) into bounds. Distances
// are divided by unitsPerMeter and labelled in cm. selected marks a
// generation with a vertical line.
func (fg *FitnessGraph) Draw(bounds rl.Rectangle, history [][]float64, unitsPerMeter float64, selected int) {
	th := fg.renderer.Theme
	rl.DrawRectangleRec(bounds, th.GraphBg)
	rl.DrawRectangleLinesEx(bounds, 1, th.PanelBorder)
	rl.DrawText("Fitness (cm)", int32(bounds.X)+6, int32(bounds.Y)+4, th.HeaderFontSize, th.SectionHeader)
	if len(history) == 0 {
		return
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range history {
		lo = math.Min(lo, row[len(row)-1]/unitsPerMeter)
		hi = math.Max(hi, row[0]/unitsPerMeter)
	}
	lo = math.Min(lo, 0)
	if hi <= lo {
		hi = lo + 1
	}

	pad := float32(24)
	plot := rl.Rectangle{X: bounds.X + 40, Y: bounds.Y + pad, Width: bounds.Width - 48, Height: bounds.Height - 2*pad}
	toX := func(g int) float32 {
		if len(history) == 1 {
			return plot.X + plot.Width/2
		}
		return plot.X + plot.Width*float32(g)/float32(len(history)-1)
	}
	toY := func(v float64) float32 {
		return plot.Y + plot.Height*float32((hi-v)/(hi-lo))
	}

	// Zero line and axis labels
	zero := toY(0)
	rl.DrawLineV(rl.Vector2{X: plot.X, Y: zero}, rl.Vector2{X: plot.X + plot.Width, Y: zero}, th.GraphAxis)
	rl.DrawText(fmt.Sprintf("%.0f", hi), int32(bounds.X)+4, int32(plot.Y)-6, th.FontSize, th.LabelColor)
	rl.DrawText(fmt.Sprintf("%.0f", lo), int32(bounds.X)+4, int32(plot.Y+plot.Height)-6, th.FontSize, th.LabelColor)

	resolution := len(history[0]) - 1
	for _, pl := range percentileLines {
		idx := pl.p * resolution / 100
		for g := 1; g < len(history); g++ {
			a := rl.Vector2{X: toX(g - 1), Y: toY(history[g-1][idx] / unitsPerMeter)}
			b := rl.Vector2{X: toX(g), Y: toY(history[g][idx] / unitsPerMeter)}
			rl.DrawLineEx(a, b, pl.thick, pl.color)
		}
		if len(history) == 1 {
			rl.DrawCircleV(rl.Vector2{X: toX(0), Y: toY(history[0][idx] / unitsPerMeter)}, pl.thick+1, pl.color)
		}
	}

	if selected >= 0 && selected < len(history) {
		x := toX(selected)
		rl.DrawLineV(rl.Vector2{X: x, Y: plot.Y}, rl.Vector2{X: x, Y: plot.Y + plot.Height}, th.Highlight)
	}
}

// SpeciesGraph draws the species share of each generation as a stacked area.
type SpeciesGraph struct {
	renderer *Renderer
}

// NewSpeciesGraph creates a species graph.
func NewSpeciesGraph() *SpeciesGraph {
	return &SpeciesGraph{renderer: NewRenderer()}
}

// Draw renders pops[g] (buckets laid end to end) into bounds. Species above
// visibleFraction of the selected generation are labelled on its column.
func (sg *SpeciesGraph) Draw(bounds rl.Rectangle, pops [][]species.Bucket, populationSize int, salt string, visibleFraction float64, selected int) {
	th := sg.renderer.Theme
	rl.DrawRectangleRec(bounds, th.GraphBg)
	rl.DrawRectangleLinesEx(bounds, 1, th.PanelBorder)
	if len(pops) == 0 || populationSize == 0 {
		rl.DrawText("Species", int32(bounds.X)+6, int32(bounds.Y)+4, th.HeaderFontSize, th.SectionHeader)
		return
	}

	colW := bounds.Width / float32(len(pops))
	unit := bounds.Height / float32(populationSize)
	for g, buckets := range pops {
		x := bounds.X + colW*float32(g)
		for _, b := range buckets {
			rect := rl.Rectangle{X: x, Y: bounds.Y + unit*float32(b.Start), Width: colW + 1, Height: unit * float32(b.Count)}
			rl.DrawRectangleRec(rect, ToColor(species.Color(b.Species, salt)))
		}
	}

	label := func(g int) {
		x := bounds.X + colW*float32(g)
		for _, b := range species.Visible(pops[g], populationSize, visibleFraction) {
			y := bounds.Y + unit*(float32(b.Start)+float32(b.Count)/2) - float32(th.FontSize)/2
			rl.DrawText(species.Name(b.Species, salt), int32(x)+2, int32(y), th.FontSize, rl.Black)
		}
	}
	if selected >= 0 && selected < len(pops) {
		x := bounds.X + colW*float32(selected)
		rl.DrawRectangleLinesEx(rl.Rectangle{X: x, Y: bounds.Y, Width: max(colW, 2), Height: bounds.Height}, 2, th.Highlight)
		label(selected)
	}
	rl.DrawText("Species", int32(bounds.X)+6, int32(bounds.Y)+4, th.HeaderFontSize, rl.White)
}
