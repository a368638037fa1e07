package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/jelly/physics"
	"github.com/pthm-cable/jelly/species"
)

// IconFunc returns the icon pose and colouring of a species, if one is
// available.
type IconFunc func(speciesID int) (physics.Pose, CellColorFunc, bool)

// AncestryTree draws prominent species by level, each linked to its
// ancestor.
type AncestryTree struct {
	renderer *Renderer
}

// NewAncestryTree creates an ancestry tree panel.
func NewAncestryTree() *AncestryTree {
	return &AncestryTree{renderer: NewRenderer()}
}

// Layout assigns every prominent species a coordinate inside bounds.
// Level l occupies row l; species in a row are spaced evenly in level order.
func (at *AncestryTree) Layout(bounds rl.Rectangle, reg *species.Registry) {
	levels := reg.Levels()
	if len(levels) == 0 {
		return
	}
	rowH := bounds.Height / float32(len(levels))
	for l, ids := range levels {
		colW := bounds.Width / float32(len(ids))
		for i, id := range ids {
			// Ids come from the registry, so this cannot fail.
			_ = reg.SetCoord(id, species.Coord{
				X:      bounds.X + colW*(float32(i)+0.5),
				Y:      bounds.Y + rowH*(float32(l)+0.5),
				Placed: true,
			})
		}
	}
}

// Draw renders the tree inside bounds. selected species is outlined.
func (at *AncestryTree) Draw(bounds rl.Rectangle, reg *species.Registry, salt string, icon IconFunc, selected int) {
	th := at.renderer.Theme
	rl.DrawRectangleRec(bounds, th.GraphBg)
	rl.DrawRectangleLinesEx(bounds, 1, th.PanelBorder)
	rl.DrawText("Ancestry", int32(bounds.X)+6, int32(bounds.Y)+4, th.HeaderFontSize, th.SectionHeader)

	inner := rl.Rectangle{X: bounds.X, Y: bounds.Y + 20, Width: bounds.Width, Height: bounds.Height - 20}
	at.Layout(inner, reg)
	levels := reg.Levels()
	if len(levels) == 0 {
		return
	}
	nodeH := inner.Height / float32(len(levels))
	size := min(nodeH*0.6, 48)

	for _, ids := range levels {
		for _, id := range ids {
			info, _ := reg.Get(id)
			if info.Ancestor == species.NoAncestor {
				continue
			}
			parent, ok := reg.Get(info.Ancestor)
			if !ok || !parent.Coord.Placed {
				continue
			}
			rl.DrawLineV(
				rl.Vector2{X: parent.Coord.X, Y: parent.Coord.Y},
				rl.Vector2{X: info.Coord.X, Y: info.Coord.Y},
				th.GraphAxis,
			)
		}
	}

	for _, ids := range levels {
		for _, id := range ids {
			info, _ := reg.Get(id)
			cx, cy := info.Coord.X, info.Coord.Y
			col := ToColor(species.Color(id, salt))
			rl.DrawCircleV(rl.Vector2{X: cx, Y: cy}, size/2, col)
			if pose, cellColor, ok := icon(id); ok {
				drawIcon(pose, cellColor, cx, cy, size)
			}
			if id == selected {
				rl.DrawCircleLines(int32(cx), int32(cy), size/2+2, th.Highlight)
			}
			name := species.Name(id, salt)
			w := rl.MeasureText(name, th.FontSize)
			rl.DrawText(name, int32(cx)-w/2, int32(cy+size/2)+2, th.FontSize, th.LabelColor)
		}
	}
}

// drawIcon fits a pose into a size x size box centred on (cx, cy).
func drawIcon(p physics.Pose, cellColor CellColorFunc, cx, cy, size float32) {
	minX, maxX := p.X[0], p.X[0]
	minY, maxY := p.Y[0], p.Y[0]
	for i := range p.X {
		minX, maxX = min(minX, p.X[i]), max(maxX, p.X[i])
		minY, maxY = min(minY, p.Y[i]), max(maxY, p.Y[i])
	}
	extent := max(maxX-minX, maxY-minY, 1e-6)
	scale := float32(float64(size) * 0.8 / extent)
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	DrawBody(p, cellColor, func(wx, wy float32) (float32, float32) {
		return cx + (wx-float32(midX))*scale, cy + (wy-float32(midY))*scale
	})
}
