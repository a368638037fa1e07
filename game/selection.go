package game

import (
	"github.com/pthm-cable/jelly/sim"
	"github.com/pthm-cable/jelly/species"
)

// selectedCreature resolves the generation and rank sliders to a creature.
// Before any generation is evaluated the rank slider walks slots of
// generation zero.
func (g *Game) selectedCreature() *sim.Creature {
	g.clampSelection()
	if g.m.EvaluatedGenerations() == 0 {
		gen, err := g.m.Generation(0)
		if err != nil {
			return nil
		}
		return gen[g.selectedRank]
	}
	c, err := g.m.CreatureAtRank(g.selectedGen, g.selectedRank)
	if err != nil {
		return nil
	}
	return c
}

func (g *Game) clampSelection() {
	last := max(g.m.EvaluatedGenerations()-1, 0)
	g.selectedGen = min(max(g.selectedGen, 0), last)
	g.selectedRank = min(max(g.selectedRank, 0), g.m.PopulationSize()-1)
}

// selectGeneration pins the generation slider; selecting the newest
// generation resumes following new results.
func (g *Game) selectGeneration(gen int) {
	g.selectedGen = gen
	g.clampSelection()
	g.followLatest = g.selectedGen >= g.m.EvaluatedGenerations()-1
}

// updateReplay keeps the replay on the selected creature and steps it.
func (g *Game) updateReplay() {
	c := g.selectedCreature()
	if c == nil {
		return
	}
	if c.ID() != g.replayID {
		if g.replay != nil {
			g.replay.Close()
		}
		g.replay = sim.NewReplay(c)
		g.replayID = c.ID()
		g.replayHold = 0
		pose := g.replay.Pose()
		g.camera.Reset(float32(pose.MeanX()), g.cameraY())
	}

	if g.paused {
		return
	}
	if g.replay.Done() {
		g.replayHold++
		if g.replayHold > ReplayHoldTicks {
			g.replay.Seek(0)
			g.replayHold = 0
		}
		return
	}
	for i := 0; i < g.replaySpeed && !g.replay.Done(); i++ {
		g.replay.Step()
	}
	g.camera.Follow(float32(g.replay.Pose().MeanX()), g.cameraY(), FollowRate)
}

// cameraY keeps the floor in the lower part of the replay viewport.
func (g *Game) cameraY() float32 {
	return float32(g.cfg.Physics.FloorY) - float32(g.cfg.Grid.CellsY)
}

// iconCreature returns a species' first representative.
func (g *Game) iconCreature(speciesID int) (*sim.Creature, bool) {
	info, ok := g.m.Registry().Get(speciesID)
	if !ok {
		return nil, false
	}
	c, err := g.m.Creature(info.Reps[species.RepFirst])
	if err != nil {
		return nil, false
	}
	return c, true
}
