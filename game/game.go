// Package game hosts the generation manager: a raylib viewer that steps
// evaluations between UI frames, and a headless loop.
package game

import (
	"context"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/jelly/camera"
	"github.com/pthm-cable/jelly/config"
	"github.com/pthm-cable/jelly/sim"
	"github.com/pthm-cable/jelly/telemetry"
	"github.com/pthm-cable/jelly/ui"
)

// Viewer constants
const (
	BaseZoom        = 40   // pixels per world unit in the replay
	FollowRate      = 0.15 // camera catch-up per UI frame
	ReplayHoldTicks = 30   // UI frames a finished replay stays on screen
	MaxReplaySpeed  = 8
)

// Options configures a Game.
type Options struct {
	Collector *telemetry.Collector // may be nil
}

// Game holds the viewer state around a manager.
type Game struct {
	ctx       context.Context
	m         *sim.Manager
	cfg       *config.Config
	collector *telemetry.Collector

	// Evolution
	eval      *sim.Evaluation
	alap      bool
	pending   bool
	simulated int64

	// Selection
	selectedGen  int
	selectedRank int
	followLatest bool

	// Replay
	replay      *sim.Replay
	replayID    int
	replaySpeed int
	replayHold  int
	paused      bool

	// Rendering
	history      sim.History
	camera       *camera.Camera
	hud          *ui.HUD
	inspector    *ui.Inspector
	fitnessGraph *ui.FitnessGraph
	speciesGraph *ui.SpeciesGraph
	tree         *ui.AncestryTree

	screenWidth, screenHeight float32
}

// NewGame creates a viewer for m. The raylib window must already be open.
func NewGame(ctx context.Context, m *sim.Manager, opts Options) *Game {
	cfg := m.Config()
	w := float32(cfg.Display.ScreenWidth)
	h := float32(cfg.Display.ScreenHeight)

	g := &Game{
		ctx:          ctx,
		m:            m,
		cfg:          cfg,
		collector:    opts.Collector,
		followLatest: true,
		replayID:     -1,
		replaySpeed:  1,
		camera:       camera.New(w/2, h/2, BaseZoom),
		hud:          ui.NewHUD(),
		inspector:    ui.NewInspector(0, 0, 260),
		fitnessGraph: ui.NewFitnessGraph(),
		speciesGraph: ui.NewSpeciesGraph(),
		tree:         ui.NewAncestryTree(),
		screenWidth:  w,
		screenHeight: h,
	}
	g.layout()
	return g
}

// Update advances the simulation and the replay by one UI frame.
func (g *Game) Update() {
	g.handleInput()
	if g.collector != nil {
		g.collector.Perf().RecordFrame()
	}

	g.stepEvolution()
	g.updateReplay()
}

// stepEvolution starts, advances or finishes the running evaluation. Each UI
// frame runs at most FramesPerUITick trial frames so the window stays
// responsive.
func (g *Game) stepEvolution() {
	if g.eval == nil {
		if !g.pending && !g.alap {
			return
		}
		eval, err := g.m.Begin()
		if err != nil {
			slog.Error("begin generation failed", "error", err)
			g.alap = false
			g.pending = false
			return
		}
		g.eval = eval
		g.pending = false
	}

	if !g.eval.Advance(g.cfg.Display.FramesPerUITick) {
		return
	}

	eval := g.eval
	g.eval = nil
	s, err := eval.Finish(g.ctx)
	if err != nil {
		slog.Error("finish generation failed", "generation", eval.Generation(), "error", err)
		g.alap = false
		return
	}
	g.simulated += s.FramesSimulated
	if g.followLatest {
		g.selectedGen = s.Generation
	}
}

// RequestGeneration queues one generation; it starts on the next Update.
func (g *Game) RequestGeneration() {
	if g.eval == nil {
		g.pending = true
	}
}

// ToggleALAP switches continuous evolution on or off.
func (g *Game) ToggleALAP() {
	g.alap = !g.alap
}

// Unload releases the replay and abandons any running evaluation.
func (g *Game) Unload() {
	if g.replay != nil {
		g.replay.Close()
		g.replay = nil
	}
	if g.eval != nil {
		g.m.Cancel()
		g.eval = nil
	}
}

// Generations returns how many generations have been evaluated.
func (g *Game) Generations() int {
	return g.m.EvaluatedGenerations()
}

// layout positions the replay viewport and panels for the current size.
func (g *Game) layout() {
	w, h := g.screenWidth, g.screenHeight
	g.camera.Place(0, 100, w/2, h*0.55)
	g.inspector.SetPosition(int32(w/2)-270, int32(100+h*0.55)+60)
}

// Rectangles for the right-hand column.
func (g *Game) fitnessRect() rl.Rectangle {
	return rl.Rectangle{X: g.screenWidth/2 + 10, Y: 10, Width: g.screenWidth/2 - 20, Height: g.screenHeight*0.36 - 10}
}

func (g *Game) speciesRect() rl.Rectangle {
	return rl.Rectangle{X: g.screenWidth/2 + 10, Y: g.screenHeight * 0.36, Width: g.screenWidth/2 - 20, Height: g.screenHeight * 0.28}
}

func (g *Game) treeRect() rl.Rectangle {
	return rl.Rectangle{X: g.screenWidth/2 + 10, Y: g.screenHeight*0.64 + 10, Width: g.screenWidth/2 - 20, Height: g.screenHeight*0.36 - 20}
}
