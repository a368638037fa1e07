package game

import rl "github.com/gen2brain/raylib-go/raylib"

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	// Window resize propagation
	g.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.RequestGeneration()
	}
	if rl.IsKeyPressed(rl.KeyA) {
		g.ToggleALAP()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.paused = !g.paused
	}
	if rl.IsKeyPressed(rl.KeyR) && g.replay != nil {
		g.replay.Seek(0)
		g.replayHold = 0
	}

	// Replay speed with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.replaySpeed > 1 {
		g.replaySpeed--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.replaySpeed < MaxReplaySpeed {
		g.replaySpeed++
	}

	// Selection: left/right generation, up/down rank
	if rl.IsKeyPressed(rl.KeyLeft) {
		g.selectGeneration(g.selectedGen - 1)
	}
	if rl.IsKeyPressed(rl.KeyRight) {
		g.selectGeneration(g.selectedGen + 1)
	}
	if rl.IsKeyPressed(rl.KeyUp) {
		g.selectedRank--
	}
	if rl.IsKeyPressed(rl.KeyDown) {
		g.selectedRank++
	}
	g.clampSelection()

	g.handleGraphClick()
	g.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h
	g.layout()
}

// handleGraphClick selects the generation under the cursor on either graph.
func (g *Game) handleGraphClick() {
	if !rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		return
	}
	n := g.m.EvaluatedGenerations()
	if n == 0 {
		return
	}
	mouse := rl.GetMousePosition()
	for _, rect := range []rl.Rectangle{g.fitnessRect(), g.speciesRect()} {
		if !rl.CheckCollisionPointRec(mouse, rect) {
			continue
		}
		frac := (mouse.X - rect.X) / rect.Width
		g.selectGeneration(int(frac * float32(n)))
		return
	}
}

// handleCameraInput processes replay zoom controls.
func (g *Game) handleCameraInput() {
	mouse := rl.GetMousePosition()
	if wheelMove := rl.GetMouseWheelMove(); wheelMove != 0 && g.camera.Contains(mouse.X, mouse.Y) {
		g.camera.ZoomBy(1 + wheelMove*0.1)
	}

	// Keyboard zoom with +/- (= and - keys)
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	// Home key to reset camera
	if rl.IsKeyPressed(rl.KeyHome) && g.replay != nil {
		g.camera.Reset(float32(g.replay.Pose().MeanX()), g.cameraY())
	}
}
