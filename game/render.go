package game

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/jelly/physics"
	"github.com/pthm-cable/jelly/sim"
	"github.com/pthm-cable/jelly/species"
	"github.com/pthm-cable/jelly/ui"
)

var (
	skyColor    = rl.Color{R: 28, G: 36, B: 48, A: 255}
	groundColor = rl.Color{R: 52, G: 44, B: 34, A: 255}
	markerColor = rl.Color{R: 120, G: 120, B: 120, A: 255}
)

// Draw renders the game state.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	g.drawReplay()
	g.drawControls()
	g.drawGraphs()
	g.drawUI()

	rl.EndDrawing()
}

// drawReplay renders the selected creature walking on the floor.
func (g *Game) drawReplay() {
	cam := g.camera
	rl.BeginScissorMode(int32(cam.OriginX), int32(cam.OriginY), int32(cam.ViewportW), int32(cam.ViewportH))
	defer rl.EndScissorMode()

	rl.DrawRectangle(int32(cam.OriginX), int32(cam.OriginY), int32(cam.ViewportW), int32(cam.ViewportH), skyColor)
	g.drawGround()

	if g.replay == nil {
		return
	}
	c := g.replay.Creature()
	frame := g.replay.Frame()
	ui.DrawBody(g.replay.Pose(), func(x, y int) color.RGBA {
		return c.CellColor(x, y, frame)
	}, cam.WorldToScreen)
}

// drawGround draws the floor and a distance marker every metre.
func (g *Game) drawGround() {
	cam := g.camera
	floorY := float32(g.cfg.Physics.FloorY)
	_, sy := cam.WorldToScreen(0, floorY)
	if sy < cam.OriginY+cam.ViewportH {
		rl.DrawRectangle(int32(cam.OriginX), int32(sy), int32(cam.ViewportW), int32(cam.OriginY+cam.ViewportH-sy), groundColor)
	}

	// Distances are shown in cm as units/UnitsPerMeter, so a metre is
	// 100*UnitsPerMeter units.
	metre := 100 * g.cfg.Display.UnitsPerMeter
	minX, _, maxX, _ := cam.VisibleWorldBounds()
	first := int(math.Floor(float64(minX) / metre))
	last := int(math.Ceil(float64(maxX) / metre))
	if last-first > 200 {
		return
	}
	for k := first; k <= last; k++ {
		sx, _ := cam.WorldToScreen(float32(float64(k)*metre), floorY)
		rl.DrawLine(int32(sx), int32(sy), int32(sx), int32(sy)+12, markerColor)
		rl.DrawText(fmt.Sprintf("%dm", k), int32(sx)+3, int32(sy)+4, 12, markerColor)
	}
}

// drawControls renders the evolution buttons and selection sliders under
// the replay.
func (g *Game) drawControls() {
	x := float32(10)
	y := g.camera.OriginY + g.camera.ViewportH + 10

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 140, Height: 30}, "Do generation") {
		g.RequestGeneration()
	}
	if gui.Button(rl.Rectangle{X: x + 150, Y: y, Width: 140, Height: 30}, toggleText(g.alap, "Stop ALAP", "ALAP")) {
		g.ToggleALAP()
	}
	if gui.Button(rl.Rectangle{X: x + 300, Y: y, Width: 100, Height: 30}, toggleText(g.paused, "Play", "Pause")) {
		g.paused = !g.paused
	}
	y += 45

	evaluated := g.m.EvaluatedGenerations()
	if evaluated > 1 {
		rl.DrawText("Generation", int32(x), int32(y), 14, rl.Gray)
		v := gui.SliderBar(
			rl.Rectangle{X: x + 90, Y: y, Width: 260, Height: 20},
			"", fmt.Sprint(g.selectedGen),
			float32(g.selectedGen), 0, float32(evaluated-1),
		)
		if gen := int(v + 0.5); gen != g.selectedGen {
			g.selectGeneration(gen)
		}
		y += 30
	}

	rl.DrawText(rankLabel(evaluated), int32(x), int32(y), 14, rl.Gray)
	v := gui.SliderBar(
		rl.Rectangle{X: x + 90, Y: y, Width: 260, Height: 20},
		"", fmt.Sprint(g.selectedRank),
		float32(g.selectedRank), 0, float32(g.m.PopulationSize()-1),
	)
	g.selectedRank = int(v + 0.5)
	g.clampSelection()
}

func rankLabel(evaluated int) string {
	if evaluated == 0 {
		return "Slot"
	}
	return "Rank"
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}

// drawGraphs renders the fitness, species and ancestry panels.
func (g *Game) drawGraphs() {
	if err := g.history.Sync(g.m); err != nil {
		slog.Error("sync graph history failed", "error", err)
	}
	history := g.history.Percentiles
	pops := g.history.Species
	n := g.history.Len()

	selected := -1
	if n > 0 {
		selected = g.selectedGen
	}
	g.fitnessGraph.Draw(g.fitnessRect(), history, g.cfg.Display.UnitsPerMeter, selected)
	g.speciesGraph.Draw(g.speciesRect(), pops, g.m.PopulationSize(), g.m.Salt(), g.cfg.Species.VisibleFraction, selected)

	selectedSpecies := -1
	if c := g.selectedCreature(); c != nil {
		selectedSpecies = c.Species()
	}
	g.tree.Draw(g.treeRect(), g.m.Registry(), g.m.Salt(), g.icon, selectedSpecies)

	g.drawTooltip(pops)
}

// icon returns the cached icon pose of a species' first representative.
func (g *Game) icon(speciesID int) (physics.Pose, ui.CellColorFunc, bool) {
	c, ok := g.iconCreature(speciesID)
	if !ok {
		return physics.Pose{}, nil, false
	}
	pose, ok := c.Icon(0).(physics.Pose)
	if !ok {
		pose = c.IconPose()
		c.SetIcon(0, pose)
	}
	frame := c.IconFrame()
	return pose, func(x, y int) color.RGBA { return c.CellColor(x, y, frame) }, true
}

// drawTooltip names the species under the cursor on the species graph.
func (g *Game) drawTooltip(pops [][]species.Bucket) {
	rect := g.speciesRect()
	mouse := rl.GetMousePosition()
	if len(pops) == 0 || !rl.CheckCollisionPointRec(mouse, rect) {
		return
	}
	gen := min(int((mouse.X-rect.X)/rect.Width*float32(len(pops))), len(pops)-1)
	pos := int((mouse.Y - rect.Y) / rect.Height * float32(g.m.PopulationSize()))

	var hit *species.Bucket
	for i := range pops[gen] {
		if b := &pops[gen][i]; pos >= b.Start && pos < b.End {
			hit = b
			break
		}
	}
	if hit == nil {
		return
	}

	lines := []string{
		species.Name(hit.Species, g.m.Salt()),
		fmt.Sprintf("Generation %d", gen),
		fmt.Sprintf("%d creatures (%.0f%%)", hit.Count, 100*float64(hit.Count)/float64(g.m.PopulationSize())),
	}

	const fontSize = 14
	const padding = 8
	const lineHeight = 16

	maxWidth := int32(0)
	for _, line := range lines {
		maxWidth = max(maxWidth, rl.MeasureText(line, fontSize))
	}
	w := maxWidth + padding*2
	h := int32(len(lines)*lineHeight + padding*2)

	// Position tooltip (offset from cursor, keep on screen)
	tx := int32(mouse.X) + 15
	ty := int32(mouse.Y) + 15
	if tx+w > int32(g.screenWidth)-10 {
		tx = int32(mouse.X) - w - 10
	}
	if ty+h > int32(g.screenHeight)-10 {
		ty = int32(mouse.Y) - h - 10
	}

	rl.DrawRectangle(tx, ty, w, h, rl.Color{R: 20, G: 25, B: 30, A: 230})
	rl.DrawRectangleLines(tx, ty, w, h, rl.Color{R: 60, G: 70, B: 80, A: 255})
	for i, line := range lines {
		col := rl.LightGray
		if i == 0 {
			col = ui.ToColor(species.Color(hit.Species, g.m.Salt()))
		}
		rl.DrawText(line, tx+padding, ty+padding+int32(i*lineHeight), fontSize, col)
	}
}

// drawUI renders the HUD and the creature inspector.
func (g *Game) drawUI() {
	data := ui.HUDData{
		Title:      "Jelly",
		Generation: g.m.MaxGeneration(),
		Evaluated:  g.m.EvaluatedGenerations(),
		State:      g.m.State().String(),
		Simulated:  humanize.Comma(g.simulated),
		LastGen:    g.m.LastDuration(),
		FPS:        rl.GetFPS(),
		ALAP:       g.alap,
	}
	if g.eval != nil {
		data.Frame = g.eval.Frame()
		data.Frames = g.eval.Frames()
	}
	g.hud.Draw(data)

	if c := g.selectedCreature(); c != nil {
		g.inspector.Draw(g.creatureView(c))
	}

	g.hud.DrawControls(int32(g.screenWidth), int32(g.screenHeight),
		"SPACE: Generation | A: ALAP | Arrows: Select | P: Pause | R: Restart | < >: Replay speed | Wheel: Zoom")
}

// creatureView collects inspector values for c.
func (g *Game) creatureView(c *sim.Creature) ui.CreatureView {
	upm := g.cfg.Display.UnitsPerMeter
	v := ui.CreatureView{
		ID:          c.ID(),
		Generation:  c.Generation(),
		SpeciesName: species.Name(c.Species(), g.m.Salt()),
		SpeciesCol:  ui.ToColor(species.Color(c.Species(), g.m.Salt())),
		Parent:      c.Parent(),
		Locus:       c.Locus(),
		Living:      c.Living(),
	}
	if fitness, ok := c.Fitness(); ok {
		rank, _ := c.Rank()
		v.Evaluated = true
		v.FitnessCM = fitness / upm
		v.Rank = rank
		v.Percentile = float32(rank) / float32(max(g.m.PopulationSize()-1, 1))
	}
	if g.replay != nil && g.replay.Creature() == c {
		v.Frame = g.replay.Frame()
		v.DistanceCM = g.replay.Distance() / upm
	}
	return v
}
