// Package physics advances batches of soft bodies: grids of point masses tied
// together by muscle springs whose rest lengths change once per beat.
//
// Every body in a batch receives the same operation each step, so node state
// is kept in one contiguous buffer per field (x, y, vx, vy) indexed by
// (body, node). Per-node passes (damping, integration, collision) run over
// whole buffers; the muscle force pass fans out across bodies on a worker pool.
package physics

import (
	"github.com/pthm-cable/jelly/config"
)

// Mode selects the rule set for a run.
type Mode int

const (
	// Calming runs settle a body into its rest pose: no gravity, no ground,
	// beat 0 targets and the calming friction.
	Calming Mode = iota
	// Trial runs measure locomotion: gravity, ground contact and cycling beats.
	Trial
)

func (m Mode) String() string {
	switch m {
	case Calming:
		return "calming"
	case Trial:
		return "trial"
	default:
		return "unknown"
	}
}

// Params holds integrator constants. The y axis points down and the floor
// sits at FloorY, so gravity is added to vy.
type Params struct {
	CellsX   int
	CellsY   int
	Beats    int
	BeatTime int

	MuscleCoef      float64
	Gravity         float64
	CalmingFriction float64
	TrialFriction   float64
	GroundFriction  float64
	FloorY          float64
	CeilingY        float64

	Workers           int // 0 = GOMAXPROCS
	ParallelThreshold int // minimum bodies before the worker pool is used
}

// ParamsFromConfig extracts integrator parameters.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		CellsX:            cfg.Grid.CellsX,
		CellsY:            cfg.Grid.CellsY,
		Beats:             cfg.Grid.BeatsPerCycle,
		BeatTime:          cfg.Timing.BeatTime,
		MuscleCoef:        cfg.Physics.MuscleCoef,
		Gravity:           cfg.Physics.Gravity,
		CalmingFriction:   cfg.Physics.CalmingFriction,
		TrialFriction:     cfg.Physics.TrialFriction,
		GroundFriction:    cfg.Physics.GroundFriction,
		FloorY:            cfg.Physics.FloorY,
		CeilingY:          cfg.Physics.CeilingY,
		Workers:           cfg.Parallel.Workers,
		ParallelThreshold: cfg.Parallel.Threshold,
	}
}

// NodesPerBody returns (CellsX+1)*(CellsY+1).
func (p Params) NodesPerBody() int {
	return (p.CellsX + 1) * (p.CellsY + 1)
}

// MusclesPerBody returns the muscle count for one body (cells x beats).
func (p Params) MusclesPerBody() int {
	return p.CellsX * p.CellsY * p.Beats
}

// BeatAt returns the active beat for a trial frame.
func (p Params) BeatAt(frame int) int {
	return (frame / p.BeatTime) % p.Beats
}

// Friction returns the velocity damping factor for a mode.
func (p Params) Friction(m Mode) float64 {
	if m == Calming {
		return p.CalmingFriction
	}
	return p.TrialFriction
}
