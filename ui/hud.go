package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title      string
	Generation int    // newest generation
	Evaluated  int    // generations with results
	State      string // manager state
	Frame      int    // trial frame of the running evaluation
	Frames     int    // trial length
	Simulated  string // frames simulated so far, human readable
	LastGen    time.Duration
	FPS        int32
	ALAP       bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD at the top left of the screen.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Generation: %d | Evaluated: %d | State: %s", data.Generation, data.Evaluated, data.State),
		10, 35, 16, rl.LightGray,
	)

	rl.DrawText(
		fmt.Sprintf("Last generation: %s | Simulated: %s frames | FPS: %d",
			data.LastGen.Round(time.Millisecond), data.Simulated, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	if data.Frames > 0 && data.State == "evaluating" {
		h.renderer.DrawBar(10, 75, "Trial", float32(data.Frame)/float32(data.Frames), 300)
	}
	if data.ALAP {
		rl.DrawText("ALAP", 320, 75, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
