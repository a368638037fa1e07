// Package sim runs the evolution loop: it evaluates a generation of creatures
// on the physics integrator, ranks them, records species statistics and
// breeds the next generation.
package sim

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/pthm-cable/jelly/config"
	"github.com/pthm-cable/jelly/genome"
	"github.com/pthm-cable/jelly/physics"
	"github.com/pthm-cable/jelly/species"
)

var (
	// ErrInvalidID is returned when a creature id or generation index does
	// not exist.
	ErrInvalidID = errors.New("invalid creature id")
	// ErrNotYetEvaluated is returned when statistics are requested for a
	// generation that has not been ranked.
	ErrNotYetEvaluated = errors.New("generation not yet evaluated")
	// ErrBusy is returned when an evaluation is started while one is in
	// flight, or finished when none is.
	ErrBusy = errors.New("generation in progress")
)

// State is the generation cycle phase.
type State int

const (
	Idle State = iota
	Evaluating
	Ranking
	Reproducing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Evaluating:
		return "evaluating"
	case Ranking:
		return "ranking"
	case Reproducing:
		return "reproducing"
	default:
		return "unknown"
	}
}

// Observer receives a summary after each completed generation.
type Observer interface {
	OnGeneration(Summary)
}

// Manager owns every generation of a run.
type Manager struct {
	cfg      *config.Config
	env      *env
	mutation genome.Params
	size     int
	rng      *rand.Rand
	salt     string

	generations [][]*Creature
	nextSpecies int
	registry    *species.Registry

	rankings    [][]int
	percentiles [][]float64
	speciesPops [][]species.Bucket

	state        State
	eval         *Evaluation
	lastDuration time.Duration
	bestEver     float64
	observers    []Observer
}

// NewManager builds generation 0 from random genomes and calms it. Every
// slot founds its own root species, numbered by slot. The manager keeps its
// own copy of cfg; later changes to cfg do not affect the run.
func NewManager(ctx context.Context, cfg *config.Config, seed uint64) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	own := *cfg
	cfg = &own
	cfg.ComputeDerived()
	layout := genome.LayoutFromConfig(cfg)
	size := cfg.Population.Size
	m := &Manager{
		cfg: cfg,
		env: &env{
			layout:       layout,
			physics:      physics.ParamsFromConfig(cfg),
			trialSteps:   cfg.Timing.TrialSteps,
			beatFadeTime: cfg.Timing.BeatFadeTime,
		},
		mutation:    genome.ParamsFromConfig(cfg),
		size:        size,
		rng:         rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)),
		nextSpecies: size,
		registry:    species.NewRegistry(cfg.Species.NotableFraction),
	}
	m.salt = species.NewSalt(m.rng)

	gen := make([]*Creature, size)
	for slot := range gen {
		c := newCreature(m.env, 0, slot, size, genome.Random(layout, m.rng), slot, NoParent, -1)
		gen[slot] = c
		if err := m.registry.AddRoot(slot, c.id); err != nil {
			return nil, err
		}
	}
	if err := calmGeneration(ctx, m.env, cfg.Timing.StabilizationSteps, gen); err != nil {
		return nil, fmt.Errorf("calming generation 0: %w", err)
	}
	m.generations = append(m.generations, gen)

	slog.Info("population created",
		"size", size,
		"genome_length", layout.Len(),
		"seed", seed,
	)
	return m, nil
}

// AddObserver registers an observer for generation summaries.
func (m *Manager) AddObserver(o Observer) {
	m.observers = append(m.observers, o)
}

// Config returns the run configuration.
func (m *Manager) Config() *config.Config { return m.cfg }

// Layout returns the genome layout.
func (m *Manager) Layout() genome.Layout { return m.env.layout }

// PopulationSize returns the fixed number of creatures per generation.
func (m *Manager) PopulationSize() int { return m.size }

// State returns the current cycle phase.
func (m *Manager) State() State { return m.state }

// Salt returns the per-run salt for species names and colours.
func (m *Manager) Salt() string { return m.salt }

// Registry returns the species registry. Callers must treat it as read-only.
func (m *Manager) Registry() *species.Registry { return m.registry }

// MaxGeneration returns the index of the newest generation.
func (m *Manager) MaxGeneration() int { return len(m.generations) - 1 }

// EvaluatedGenerations returns how many generations have been ranked.
func (m *Manager) EvaluatedGenerations() int { return len(m.rankings) }

// LastDuration returns the wall-clock time of the last completed generation.
func (m *Manager) LastDuration() time.Duration { return m.lastDuration }

// Evaluation returns the in-flight evaluation, or nil.
func (m *Manager) Evaluation() *Evaluation { return m.eval }

// Creature resolves a global id.
func (m *Manager) Creature(id int) (*Creature, error) {
	if id < 0 {
		return nil, fmt.Errorf("creature %d: %w", id, ErrInvalidID)
	}
	gen, slot := id/m.size, id%m.size
	if gen >= len(m.generations) {
		return nil, fmt.Errorf("creature %d: %w", id, ErrInvalidID)
	}
	return m.generations[gen][slot], nil
}

// Generation returns the creatures of generation g in slot order.
func (m *Manager) Generation(g int) ([]*Creature, error) {
	if g < 0 || g >= len(m.generations) {
		return nil, fmt.Errorf("generation %d: %w", g, ErrInvalidID)
	}
	return slices.Clone(m.generations[g]), nil
}

// Ranking returns the slots of generation g ordered best first.
func (m *Manager) Ranking(g int) ([]int, error) {
	if err := m.checkEvaluated(g); err != nil {
		return nil, err
	}
	return slices.Clone(m.rankings[g]), nil
}

// Percentiles returns the fitness at each percentile of generation g; entry
// 0 is the best creature.
func (m *Manager) Percentiles(g int) ([]float64, error) {
	if err := m.checkEvaluated(g); err != nil {
		return nil, err
	}
	return slices.Clone(m.percentiles[g]), nil
}

// SpeciesPopulation returns the species buckets of generation g.
func (m *Manager) SpeciesPopulation(g int) ([]species.Bucket, error) {
	if err := m.checkEvaluated(g); err != nil {
		return nil, err
	}
	return slices.Clone(m.speciesPops[g]), nil
}

// CreatureAtRank returns the creature ranked r in generation g.
func (m *Manager) CreatureAtRank(g, r int) (*Creature, error) {
	if err := m.checkEvaluated(g); err != nil {
		return nil, err
	}
	if r < 0 || r >= m.size {
		return nil, fmt.Errorf("rank %d: %w", r, ErrInvalidID)
	}
	return m.generations[g][m.rankings[g][r]], nil
}

func (m *Manager) checkEvaluated(g int) error {
	if g < 0 || g >= len(m.rankings) {
		return fmt.Errorf("generation %d (evaluated %d): %w", g, len(m.rankings), ErrNotYetEvaluated)
	}
	return nil
}

// Begin starts the trial of the newest generation.
func (m *Manager) Begin() (*Evaluation, error) {
	if m.state != Idle {
		return nil, fmt.Errorf("begin: %s: %w", m.state, ErrBusy)
	}

	gen := len(m.generations) - 1
	creatures := m.generations[gen]
	p := m.env.physics
	specs := make([]physics.BodySpec, len(creatures))
	for i, c := range creatures {
		specs[i] = physics.BodySpec{Pose: c.calm.Lifted(p.FloorY), Muscles: c.muscles}
	}
	batch, err := physics.NewBatch(p, physics.Trial, specs)
	if err != nil {
		return nil, fmt.Errorf("begin generation %d: %w", gen, err)
	}

	m.eval = &Evaluation{
		m:          m,
		generation: gen,
		batch:      batch,
		frames:     m.cfg.Timing.TrialSteps,
		started:    time.Now(),
	}
	m.state = Evaluating
	return m.eval, nil
}

// Cancel abandons the in-flight evaluation. Nothing it computed is kept.
func (m *Manager) Cancel() {
	if m.eval == nil {
		return
	}
	m.eval.batch.Close()
	m.eval = nil
	m.state = Idle
}

// DoGeneration evaluates, ranks and reproduces the newest generation.
func (m *Manager) DoGeneration(ctx context.Context) (Summary, error) {
	e, err := m.Begin()
	if err != nil {
		return Summary{}, err
	}
	return e.Finish(ctx)
}

// Evaluation is one generation's trial in progress. A host may step it a
// few frames at a time between UI frames, then Finish it.
type Evaluation struct {
	m          *Manager
	generation int
	batch      *physics.Batch
	frames     int

	started   time.Time
	trialTime time.Duration
}

// Generation returns the index of the generation being evaluated.
func (e *Evaluation) Generation() int { return e.generation }

// Frame returns how many trial frames have run.
func (e *Evaluation) Frame() int { return e.batch.Frame() }

// Frames returns the trial length.
func (e *Evaluation) Frames() int { return e.frames }

// Done reports whether the trial has run its full length.
func (e *Evaluation) Done() bool { return e.batch.Frame() >= e.frames }

// Advance runs up to n more trial frames and reports whether the trial is done.
func (e *Evaluation) Advance(n int) bool {
	t := time.Now()
	e.batch.Advance(min(n, e.frames-e.batch.Frame()))
	e.trialTime += time.Since(t)
	return e.Done()
}

// Finish completes the trial if needed, then ranks the generation, breeds
// and calms the next one and records history. If ctx is cancelled first,
// the evaluation is abandoned and the manager is left as it was before Begin.
func (e *Evaluation) Finish(ctx context.Context) (Summary, error) {
	m := e.m
	if m.eval != e {
		return Summary{}, fmt.Errorf("finish generation %d: %w", e.generation, ErrBusy)
	}

	t := time.Now()
	if err := e.batch.Run(ctx, e.frames-e.batch.Frame()); err != nil {
		m.Cancel()
		return Summary{}, fmt.Errorf("trial generation %d: %w", e.generation, err)
	}
	e.trialTime += time.Since(t)
	scores := e.batch.Fitness()
	e.batch.Close()

	timing := Timing{Trial: e.trialTime}

	m.state = Ranking
	t = time.Now()
	res := m.rank(scores)
	timing.Rank = time.Since(t)

	m.state = Reproducing
	t = time.Now()
	next := m.breed(e.generation, res.ranking)
	timing.Reproduce = time.Since(t)

	t = time.Now()
	if err := calmGeneration(ctx, m.env, m.cfg.Timing.StabilizationSteps, next.creatures); err != nil {
		m.nextSpecies = next.firstSpecies
		m.Cancel()
		return Summary{}, fmt.Errorf("calming generation %d: %w", e.generation+1, err)
	}
	timing.Calm = time.Since(t)

	summary, err := m.commit(e.generation, scores, res, next)
	if err != nil {
		m.nextSpecies = next.firstSpecies
		m.Cancel()
		return Summary{}, err
	}
	m.lastDuration = time.Since(e.started)
	summary.Timing = timing
	summary.Duration = m.lastDuration

	m.eval = nil
	m.state = Idle

	for _, o := range m.observers {
		o.OnGeneration(summary)
	}
	return summary, nil
}

// rankResult is a generation's ranking before it is committed.
type rankResult struct {
	ranking     []int
	percentiles []float64
	buckets     []species.Bucket
}

// rank orders slots by descending fitness. Ties keep slot order.
func (m *Manager) rank(scores []float64) rankResult {
	ranking := make([]int, len(scores))
	for i := range ranking {
		ranking[i] = i
	}
	slices.SortStableFunc(ranking, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	res := m.cfg.Telemetry.PercentileResolution
	percentiles := make([]float64, res+1)
	for p := range percentiles {
		r := min(m.size*p/res, m.size-1)
		percentiles[p] = scores[ranking[r]]
	}

	gen := m.generations[len(m.generations)-1]
	tally := species.NewTally()
	for _, slot := range ranking {
		c := gen[slot]
		tally.Add(c.species, c.id)
	}

	return rankResult{ranking: ranking, percentiles: percentiles, buckets: tally.Buckets()}
}

// offspring is a bred generation before it is committed.
type offspring struct {
	creatures    []*Creature
	losers       []int
	newSpecies   []*Creature // founders, in species id order
	firstSpecies int
}

// breed pairs rank r with rank size-1-r. The winner's slot gets a clone or,
// increasingly towards the middle of the ranking, a mutant; the loser's slot
// always gets a mutant of the winner.
func (m *Manager) breed(gen int, ranking []int) offspring {
	cur := m.generations[gen]
	out := offspring{
		creatures:    make([]*Creature, m.size),
		firstSpecies: m.nextSpecies,
	}
	size := float64(m.size)

	for r := 0; r < m.size/2; r++ {
		winner := ranking[r]
		loser := ranking[m.size-1-r]
		if m.rng.Float64() < float64(r)/size {
			winner, loser = loser, winner
		}
		parent := cur[winner]

		if m.rng.Float64() < float64(r)/size*2 {
			out.creatures[winner] = m.mutant(parent, gen+1, winner, &out)
		} else {
			out.creatures[winner] = m.clone(parent, gen+1, winner)
		}
		out.creatures[loser] = m.mutant(parent, gen+1, loser, &out)
		out.losers = append(out.losers, loser)
	}
	return out
}

func (m *Manager) clone(parent *Creature, gen, slot int) *Creature {
	return newCreature(m.env, gen, slot, m.size, parent.genome.Clone(), parent.species, parent.id, -1)
}

func (m *Manager) mutant(parent *Creature, gen, slot int, out *offspring) *Creature {
	mut := genome.Mutate(parent.genome, m.env.layout, m.mutation, m.rng, parent.species, m.nextSpecies)
	if !mut.Speciated {
		return newCreature(m.env, gen, slot, m.size, mut.Genome, parent.species, parent.id, -1)
	}
	m.nextSpecies++
	c := newCreature(m.env, gen, slot, m.size, mut.Genome, mut.Species, parent.id, mut.Locus)
	out.newSpecies = append(out.newSpecies, c)
	return c
}

// checkOffspring verifies that the registry can take a generation's buckets
// and founders, so commit fails before it has written anything.
func (m *Manager) checkOffspring(res rankResult, next offspring) error {
	known := m.registry.Len()
	for _, b := range res.buckets {
		if b.Species < 0 || b.Species >= known {
			return fmt.Errorf("observe species %d: %w", b.Species, species.ErrUnknownSpecies)
		}
	}
	for i, c := range next.newSpecies {
		if c.species != known+i {
			return fmt.Errorf("register species %d (next is %d): %w", c.species, known+i, species.ErrNonDenseID)
		}
		if _, err := m.Creature(c.parent); err != nil {
			return err
		}
	}
	return nil
}

// commit writes a finished generation into the manager.
func (m *Manager) commit(gen int, scores []float64, res rankResult, next offspring) (Summary, error) {
	if err := m.checkOffspring(res, next); err != nil {
		return Summary{}, err
	}

	cur := m.generations[gen]
	for r, slot := range res.ranking {
		cur[slot].setResult(scores[slot], r)
	}
	for _, slot := range next.losers {
		cur[slot].living = false
	}

	promoted, err := m.registry.Observe(res.buckets, m.size)
	if err != nil {
		return Summary{}, fmt.Errorf("observe species: %w", err)
	}

	founded := make([]int, 0, len(next.newSpecies))
	for _, c := range next.newSpecies {
		parent, err := m.Creature(c.parent)
		if err != nil {
			return Summary{}, err
		}
		if err := m.registry.AddChild(c.species, parent.species, c.id, parent.id); err != nil {
			return Summary{}, fmt.Errorf("register species: %w", err)
		}
		founded = append(founded, c.species)
	}

	var extinct []int
	if gen > 0 {
		for _, b := range m.speciesPops[gen-1] {
			if _, ok := species.Find(res.buckets, b.Species); !ok {
				extinct = append(extinct, b.Species)
			}
		}
	}

	m.generations = append(m.generations, next.creatures)
	m.rankings = append(m.rankings, res.ranking)
	m.percentiles = append(m.percentiles, res.percentiles)
	m.speciesPops = append(m.speciesPops, res.buckets)

	best := res.percentiles[0]
	record := gen == 0 || best > m.bestEver
	if record {
		m.bestEver = best
	}

	return Summary{
		Generation:      gen,
		Fitness:         slices.Clone(scores),
		Percentiles:     slices.Clone(res.percentiles),
		Species:         slices.Clone(res.buckets),
		NewSpecies:      founded,
		Promoted:        promoted,
		Extinct:         extinct,
		Record:          record,
		FramesSimulated: int64(m.size) * int64(m.cfg.Timing.TrialSteps+m.cfg.Timing.StabilizationSteps),
	}, nil
}
