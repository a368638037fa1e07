package sim

import (
	"context"
	"image/color"

	"github.com/pthm-cable/jelly/genome"
	"github.com/pthm-cable/jelly/physics"
)

// NoParent is the parent id of generation 0 creatures.
const NoParent = -1

// env carries the run-wide values every creature needs for replay and colour.
type env struct {
	layout       genome.Layout
	physics      physics.Params
	trialSteps   int
	beatFadeTime int
}

// Creature is one member of one generation.
type Creature struct {
	id         int
	generation int
	slot       int
	genome     genome.Genome
	muscles    []physics.Muscle
	species    int
	parent     int
	locus      int

	fitness   float64
	rank      int
	evaluated bool
	living    bool

	calm  physics.Pose
	icons [2]any

	env *env
}

func newCreature(e *env, generation, slot, populationSize int, g genome.Genome, species, parent, locus int) *Creature {
	return &Creature{
		id:         generation*populationSize + slot,
		generation: generation,
		slot:       slot,
		genome:     g,
		muscles:    physics.Muscles(e.layout, g),
		species:    species,
		parent:     parent,
		locus:      locus,
		living:     true,
		env:        e,
	}
}

// ID returns the global id: generation*populationSize + slot.
func (c *Creature) ID() int { return c.id }

// Generation returns the generation index.
func (c *Creature) Generation() int { return c.generation }

// Slot returns the population slot.
func (c *Creature) Slot() int { return c.slot }

// Species returns the species id.
func (c *Creature) Species() int { return c.species }

// Parent returns the id of the creature this one was cloned or mutated from,
// or NoParent.
func (c *Creature) Parent() int { return c.parent }

// Locus returns the absolute gene index of the cell-beat whose big mutation
// founded this creature's species, or -1.
func (c *Creature) Locus() int { return c.locus }

// Genome returns a copy of the genome.
func (c *Creature) Genome() genome.Genome { return c.genome.Clone() }

// Living reports whether the creature has not been displaced as a loser.
func (c *Creature) Living() bool { return c.living }

// Fitness returns the trial score. ok is false until the creature's
// generation has been evaluated.
func (c *Creature) Fitness() (fitness float64, ok bool) {
	return c.fitness, c.evaluated
}

// Rank returns the 0-based rank within the generation, best first.
func (c *Creature) Rank() (rank int, ok bool) {
	return c.rank, c.evaluated
}

// setResult records fitness and rank once.
func (c *Creature) setResult(fitness float64, rank int) {
	if c.evaluated {
		panic("sim: creature result written twice")
	}
	c.fitness = fitness
	c.rank = rank
	c.evaluated = true
}

// CalmPose returns a copy of the rest pose.
func (c *Creature) CalmPose() physics.Pose {
	return c.calm.Clone()
}

// Icon returns a cached thumbnail. The value is owned by the renderer.
func (c *Creature) Icon(i int) any {
	return c.icons[i]
}

// SetIcon caches a thumbnail.
func (c *Creature) SetIcon(i int, v any) {
	c.icons[i] = v
}

// IconFrame is the frame whose colours an icon should show: far enough into
// beat 0 that the fade from the last beat has finished.
func (c *Creature) IconFrame() int {
	return c.env.beatFadeTime
}

// IconPose returns the pose after a short trial replay, for thumbnails.
func (c *Creature) IconPose() physics.Pose {
	return c.PoseAt(c.IconFrame())
}

// PoseAt replays the trial and returns the node grid after frame steps.
func (c *Creature) PoseAt(frame int) physics.Pose {
	r := NewReplay(c)
	defer r.Close()
	r.Seek(frame)
	return r.Pose()
}

// CellColor returns the colour of cell (x, y) at a trial frame. Trait values
// blend from the previous beat into the active one over the fade time; the
// cell that founded the species is tinted green.
func (c *Creature) CellColor(x, y, frame int) color.RGBA {
	l := c.env.layout
	p := c.env.physics

	beat := p.BeatAt(frame)
	prevBeat := (beat + l.Beats - 1) % l.Beats
	fade := min(float64(frame%p.BeatTime)/float64(c.env.beatFadeTime), 1)

	cur := l.Index(x, y, beat)
	prev := l.Index(x, y, prevBeat)
	trait := func(i int) float64 {
		return lerp(c.genome[prev+i], c.genome[cur+i], fade)
	}

	r := clampF(128+trait(genome.TraitHorizontal)*128, 0, 255)
	g := clampF(128+trait(genome.TraitVertical)*128, 0, 255)
	b := 255.0
	a := clampF(155+trait(genome.TraitRigidity)*100, 64, 255)

	if c.locus >= 0 {
		inCur := boolFloat(c.locus >= cur && c.locus < cur+l.Traits)
		inPrev := boolFloat(c.locus >= prev && c.locus < prev+l.Traits)
		green := lerp(inPrev, inCur, fade)
		r = lerp(r, 0, green)
		g = lerp(g, 255, green)
		b = lerp(b, 0, green)
		a = lerp(a, 255, green)
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}
}

// Replay steps one creature's trial forward for display.
type Replay struct {
	c     *Creature
	batch *physics.Batch
}

// NewReplay starts a replay at frame 0.
func NewReplay(c *Creature) *Replay {
	r := &Replay{c: c}
	r.reset()
	return r
}

func (r *Replay) reset() {
	if r.batch != nil {
		r.batch.Close()
	}
	p := r.c.env.physics
	spec := physics.BodySpec{Pose: r.c.calm.Lifted(p.FloorY), Muscles: r.c.muscles}
	// Shape is guaranteed by construction.
	r.batch, _ = physics.NewBatch(p, physics.Trial, []physics.BodySpec{spec})
}

// Creature returns the creature being replayed.
func (r *Replay) Creature() *Creature { return r.c }

// Frame returns the current frame.
func (r *Replay) Frame() int { return r.batch.Frame() }

// Done reports whether the full trial length has been replayed.
func (r *Replay) Done() bool { return r.batch.Frame() >= r.c.env.trialSteps }

// Step advances one frame.
func (r *Replay) Step() { r.batch.Step() }

// Seek moves to frame, restarting when frame is behind the current one.
func (r *Replay) Seek(frame int) {
	if frame < r.batch.Frame() {
		r.reset()
	}
	r.batch.Advance(frame - r.batch.Frame())
}

// Pose returns the current node grid.
func (r *Replay) Pose() physics.Pose { return r.batch.Pose(0) }

// Distance returns the current mean node x.
func (r *Replay) Distance() float64 { return r.batch.Fitness()[0] }

// Close releases the replay.
func (r *Replay) Close() { r.batch.Close() }

// calmGeneration computes the rest pose of every creature in gen.
func calmGeneration(ctx context.Context, e *env, steps int, gen []*Creature) error {
	specs := make([]physics.BodySpec, len(gen))
	for i, c := range gen {
		specs[i] = physics.BodySpec{
			Pose:    physics.GridPose(e.layout.CellsX, e.layout.CellsY),
			Muscles: c.muscles,
		}
	}
	poses, err := physics.Calm(ctx, e.physics, steps, specs)
	if err != nil {
		return err
	}
	for i, c := range gen {
		c.calm = poses[i]
	}
	return nil
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clampF(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
