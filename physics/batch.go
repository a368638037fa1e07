package physics

import (
	"context"
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/jelly/components"
)

// minEdgeLength is the length below which an edge has no usable direction.
// Such edges contribute no force instead of producing NaN velocities.
const minEdgeLength = 1e-12

// ctxCheckInterval is how many steps Run takes between cancellation checks.
const ctxCheckInterval = 32

// BodySpec describes one body to add to a batch.
type BodySpec struct {
	Pose    Pose
	Muscles []Muscle // Params.MusclesPerBody() entries
}

// Batch holds the evolving state of a set of bodies under one mode.
type Batch struct {
	params   Params
	mode     Mode
	friction float64
	nodes    int // nodes per body

	X, Y, VX, VY []float64
	muscles      []Muscle
	frame        int

	world      *ecs.World
	bodyMap    *ecs.Map2[components.Body, components.Settling]
	bodyFilter *ecs.Filter2[components.Body, components.Settling]
	entities   []ecs.Entity
	bodies     []components.Body // read from the world once; offsets never change after NewBatch

	pool *workerPool
}

// NewBatch creates a batch from starting poses and muscle arrays.
func NewBatch(p Params, mode Mode, specs []BodySpec) (*Batch, error) {
	nodes := p.NodesPerBody()
	perBody := p.MusclesPerBody()

	world := ecs.NewWorld()
	b := &Batch{
		params:     p,
		mode:       mode,
		friction:   p.Friction(mode),
		nodes:      nodes,
		X:          make([]float64, 0, nodes*len(specs)),
		Y:          make([]float64, 0, nodes*len(specs)),
		VX:         make([]float64, 0, nodes*len(specs)),
		VY:         make([]float64, 0, nodes*len(specs)),
		muscles:    make([]Muscle, 0, perBody*len(specs)),
		world:      world,
		bodyMap:    ecs.NewMap2[components.Body, components.Settling](world),
		bodyFilter: ecs.NewFilter2[components.Body, components.Settling](world),
		entities:   make([]ecs.Entity, 0, len(specs)),
	}

	for i, spec := range specs {
		if spec.Pose.Len() != nodes {
			return nil, fmt.Errorf("body %d: pose has %d nodes, want %d", i, spec.Pose.Len(), nodes)
		}
		if len(spec.Muscles) != perBody {
			return nil, fmt.Errorf("body %d: %d muscles, want %d", i, len(spec.Muscles), perBody)
		}

		body := components.Body{Index: i, Node: len(b.X), Muscle: len(b.muscles)}
		b.X = append(b.X, spec.Pose.X...)
		b.Y = append(b.Y, spec.Pose.Y...)
		b.VX = append(b.VX, spec.Pose.VX...)
		b.VY = append(b.VY, spec.Pose.VY...)
		b.muscles = append(b.muscles, spec.Muscles...)

		settling := components.Settling{}
		b.entities = append(b.entities, b.bodyMap.NewEntity(&body, &settling))
	}
	b.bodies = b.collectBodies()

	if len(specs) >= p.ParallelThreshold && p.ParallelThreshold > 0 {
		b.pool = newWorkerPool(p.Workers)
	}
	return b, nil
}

// collectBodies lists the Body components in batch order for the force pass.
func (b *Batch) collectBodies() []components.Body {
	out := make([]components.Body, len(b.entities))
	query := b.bodyFilter.Query()
	for query.Next() {
		body, _ := query.Get()
		out[body.Index] = *body
	}
	return out
}

// Len returns the number of bodies.
func (b *Batch) Len() int {
	return len(b.bodies)
}

// Mode returns the batch mode.
func (b *Batch) Mode() Mode {
	return b.mode
}

// Frame returns how many steps have been taken.
func (b *Batch) Frame() int {
	return b.frame
}

// Beat returns the beat whose targets the next step will use.
func (b *Batch) Beat() int {
	if b.mode == Calming {
		return 0
	}
	return b.params.BeatAt(b.frame)
}

// Step advances every body by one frame.
func (b *Batch) Step() {
	b.applyMuscles(b.Beat())

	if b.mode == Trial {
		floats.AddConst(b.params.Gravity, b.VY)
	}

	floats.Scale(b.friction, b.VX)
	floats.Scale(b.friction, b.VY)
	floats.Add(b.X, b.VX)
	floats.Add(b.Y, b.VY)

	if b.mode == Trial {
		b.collide()
	}
	b.frame++
}

// Advance takes up to frames steps. It is the unit a host loop uses to
// interleave a long run with other work.
func (b *Batch) Advance(frames int) {
	for i := 0; i < frames; i++ {
		b.Step()
	}
}

// Run takes frames steps, stopping early if ctx is cancelled.
func (b *Batch) Run(ctx context.Context, frames int) error {
	for i := 0; i < frames; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		b.Step()
	}
	return nil
}

// collide clamps nodes that passed the floor (or ceiling) and applies ground
// friction. A node that would have sunk depth units below the floor has its
// velocity scaled by 0.5^(depth*GroundFriction). The vx term is the sliding
// friction a creature pushes against to walk; vy is damped too so a grounded
// node does not bounce.
func (b *Batch) collide() {
	floor := b.params.FloorY
	ceiling := b.params.CeilingY
	groundFriction := b.params.GroundFriction

	for i, y := range b.Y {
		switch {
		case y >= floor:
			damp := math.Pow(0.5, (y-floor)*groundFriction)
			b.Y[i] = floor
			b.VX[i] *= damp
			b.VY[i] *= damp
		case y < ceiling:
			b.Y[i] = ceiling
		}
	}
}

// applyMuscles adds the spring forces of every body for the given beat.
func (b *Batch) applyMuscles(beat int) {
	if b.pool != nil {
		b.pool.run(b, beat)
		return
	}
	b.applyRange(0, len(b.bodies), beat)
}

// applyRange applies muscle forces to bodies [i0, i1). Bodies never share
// nodes, so disjoint ranges may run concurrently.
func (b *Batch) applyRange(i0, i1, beat int) {
	for i := i0; i < i1; i++ {
		b.applyBody(b.bodies[i], beat)
	}
}

// applyBody adds the six spring forces of every cell of one body. Shared
// edges between neighbouring cells are pulled once by each cell.
func (b *Batch) applyBody(body components.Body, beat int) {
	p := b.params
	rows := p.CellsY + 1
	v := edgeView{
		x:    b.X[body.Node : body.Node+b.nodes],
		y:    b.Y[body.Node : body.Node+b.nodes],
		vx:   b.VX[body.Node : body.Node+b.nodes],
		vy:   b.VY[body.Node : body.Node+b.nodes],
		coef: p.MuscleCoef,
	}

	for cx := 0; cx < p.CellsX; cx++ {
		for cy := 0; cy < p.CellsY; cy++ {
			m := b.muscles[body.Muscle+(cx*p.CellsY+cy)*p.Beats+beat]

			topLeft := cx*rows + cy
			topRight := (cx+1)*rows + cy
			bottomLeft := topLeft + 1
			bottomRight := topRight + 1

			v.pull(topLeft, topRight, m.Horizontal)
			v.pull(bottomLeft, bottomRight, m.Horizontal)
			v.pull(topLeft, bottomLeft, m.Vertical)
			v.pull(topRight, bottomRight, m.Vertical)
			v.pull(topLeft, bottomRight, m.Diagonal)
			v.pull(bottomLeft, topRight, m.Diagonal)
		}
	}
}

// edgeView is one body's slice of the batch buffers.
type edgeView struct {
	x, y, vx, vy []float64
	coef         float64
}

// pull moves nodes i and j toward the target distance apart with equal and
// opposite velocity changes along the edge.
func (v edgeView) pull(i, j int, target float64) {
	dx := v.x[i] - v.x[j]
	dy := v.y[i] - v.y[j]
	dist := math.Hypot(dx, dy)
	if dist < minEdgeLength {
		return
	}

	force := (target - dist) * v.coef
	fx := dx / dist * force
	fy := dy / dist * force
	v.vx[i] += fx
	v.vy[i] += fy
	v.vx[j] -= fx
	v.vy[j] -= fy
}

// Recenter shifts every body so its mean node x is 0, removing any drift a
// calming run introduced. The shift is recorded on the body's Settling.
func (b *Batch) Recenter() {
	query := b.bodyFilter.Query()
	for query.Next() {
		body, settling := query.Get()
		xs := b.X[body.Node : body.Node+b.nodes]
		mean := stat.Mean(xs, nil)
		floats.AddConst(-mean, xs)
		settling.ShiftX += mean
	}
}

// Fitness returns each body's mean node x in batch order: after a trial,
// how far the body travelled forward from its centred start.
func (b *Batch) Fitness() []float64 {
	out := make([]float64, len(b.bodies))
	query := b.bodyFilter.Query()
	for query.Next() {
		body, _ := query.Get()
		out[body.Index] = stat.Mean(b.X[body.Node:body.Node+b.nodes], nil)
	}
	return out
}

// Shift returns the total x shift Recenter applied to body i.
func (b *Batch) Shift(i int) float64 {
	_, settling := b.bodyMap.Get(b.entities[i])
	return settling.ShiftX
}

// Pose copies body i out of the batch.
func (b *Batch) Pose(i int) Pose {
	body, _ := b.bodyMap.Get(b.entities[i])
	out := NewPose(b.params.CellsX, b.params.CellsY)
	copy(out.X, b.X[body.Node:body.Node+b.nodes])
	copy(out.Y, b.Y[body.Node:body.Node+b.nodes])
	copy(out.VX, b.VX[body.Node:body.Node+b.nodes])
	copy(out.VY, b.VY[body.Node:body.Node+b.nodes])
	return out
}

// Poses copies every body out of the batch in batch order.
func (b *Batch) Poses() []Pose {
	out := make([]Pose, len(b.bodies))
	for i := range out {
		out[i] = b.Pose(i)
	}
	return out
}

// Close stops the worker pool. The batch must not be stepped afterwards.
func (b *Batch) Close() {
	if b.pool != nil {
		b.pool.stop()
		b.pool = nil
	}
}

// Calm runs a calming batch for steps frames, recentres every body and
// returns the resulting rest poses in input order.
func Calm(ctx context.Context, p Params, steps int, specs []BodySpec) ([]Pose, error) {
	b, err := NewBatch(p, Calming, specs)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := b.Run(ctx, steps); err != nil {
		return nil, fmt.Errorf("calming run: %w", err)
	}
	b.Recenter()
	return b.Poses(), nil
}
