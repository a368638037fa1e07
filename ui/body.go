package ui

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/jelly/physics"
)

// CellColorFunc returns the display colour of cell (x, y).
type CellColorFunc func(x, y int) color.RGBA

// ProjectFunc maps world coordinates to the screen.
type ProjectFunc func(wx, wy float32) (sx, sy float32)

// DrawBody draws every cell of a pose as a filled quad, then the outline.
func DrawBody(p physics.Pose, cellColor CellColorFunc, project ProjectFunc) {
	node := func(x, y int) rl.Vector2 {
		i := p.Node(x, y)
		sx, sy := project(float32(p.X[i]), float32(p.Y[i]))
		return rl.Vector2{X: sx, Y: sy}
	}

	for x := 0; x < p.CellsX; x++ {
		for y := 0; y < p.CellsY; y++ {
			a, b := node(x, y), node(x+1, y)
			c, d := node(x+1, y+1), node(x, y+1)
			col := ToColor(cellColor(x, y))
			drawTriangle(a, b, c, col)
			drawTriangle(a, c, d, col)
		}
	}

	edge := rl.Color{R: 0, G: 0, B: 0, A: 120}
	for x := 0; x <= p.CellsX; x++ {
		for y := 0; y <= p.CellsY; y++ {
			if x < p.CellsX {
				rl.DrawLineV(node(x, y), node(x+1, y), edge)
			}
			if y < p.CellsY {
				rl.DrawLineV(node(x, y), node(x, y+1), edge)
			}
		}
	}
}

// drawTriangle draws a filled triangle regardless of winding; raylib culls
// clockwise triangles.
func drawTriangle(a, b, c rl.Vector2, col rl.Color) {
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	if cross > 0 {
		b, c = c, b
	}
	rl.DrawTriangle(a, b, c, col)
}
