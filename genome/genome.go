// Package genome defines the fixed-length real-valued genome that encodes a
// creature's muscle traits, along with random generation and mutation.
package genome

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/jelly/config"
)

// Trait slots within one cell-beat block.
const (
	TraitHorizontal = 0 // target length of horizontal edges
	TraitVertical   = 1 // target length of vertical edges
	TraitRigidity   = 2
)

// Clipping bounds for sampled values.
const (
	initialClip      = 3.0
	perturbationClip = 99.0
)

// Layout describes the shape of a genome. It is fixed for the lifetime of a run.
type Layout struct {
	CellsX int
	CellsY int
	Beats  int
	Traits int
	Extra  int
}

// LayoutFromConfig extracts the genome layout from the grid section.
func LayoutFromConfig(cfg *config.Config) Layout {
	return Layout{
		CellsX: cfg.Grid.CellsX,
		CellsY: cfg.Grid.CellsY,
		Beats:  cfg.Grid.BeatsPerCycle,
		Traits: cfg.Grid.TraitsPerCell,
		Extra:  cfg.Grid.TraitsExtra,
	}
}

// CellGenes is the number of genes tied to grid cells (everything but Extra).
func (l Layout) CellGenes() int {
	return l.CellsX * l.CellsY * l.Beats * l.Traits
}

// Len returns the total genome length.
func (l Layout) Len() int {
	return l.CellGenes() + l.Extra
}

// Index returns the absolute gene index of the first trait for a cell and beat.
func (l Layout) Index(x, y, beat int) int {
	return ((x*l.CellsY+y)*l.Beats + beat) * l.Traits
}

// Genome is a creature's gene vector.
type Genome []float64

// Clone returns a deep copy.
func (g Genome) Clone() Genome {
	out := make(Genome, len(g))
	copy(out, g)
	return out
}

// Trait returns the gene for one trait slot of a cell and beat.
func (g Genome) Trait(l Layout, x, y, beat, trait int) float64 {
	return g[l.Index(x, y, beat)+trait]
}

// TraitValue maps a raw gene onto its physical value (1 is the neutral length).
func TraitValue(gene float64) float64 {
	return 1 + gene/3
}

// standardNormal returns a N(0,1) sampler drawing from rng.
func standardNormal(rng *rand.Rand) distuv.Normal {
	return distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
}

// Random creates a genome with every gene drawn from N(0,1), clipped to [-3, 3].
func Random(l Layout, rng *rand.Rand) Genome {
	normal := standardNormal(rng)
	g := make(Genome, l.Len())
	for i := range g {
		g[i] = clip(normal.Rand(), initialClip)
	}
	return g
}

// Params controls mutation strength.
type Params struct {
	Rate    float64 // scale of the per-gene perturbation
	BigRate float64 // probability of a speciating mutation
}

// ParamsFromConfig extracts mutation parameters.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{Rate: cfg.Mutation.Rate, BigRate: cfg.Mutation.BigRate}
}

// Mutation is the result of Mutate.
type Mutation struct {
	Genome    Genome
	Speciated bool
	Species   int // the nextSpecies argument when Speciated, otherwise the parent species
	Locus     int // absolute gene index of the speciating cell-beat, -1 when not speciated
}

// Mutate derives a child genome from parent.
//
// Every gene receives a perturbation drawn from N(0,1), clipped to [-99, 99]
// and scaled by p.Rate. The sum is not clipped, so genes may drift beyond the
// range of freshly generated genomes over many generations.
//
// With probability p.BigRate one random cell-beat is pushed by at least 0.5
// on every trait and its rigidity is raised to at least 0.5; the child then
// founds species nextSpecies. The caller owns the species counter and must
// advance it when Speciated is set.
func Mutate(parent Genome, l Layout, p Params, rng *rand.Rand, parentSpecies, nextSpecies int) Mutation {
	normal := standardNormal(rng)
	child := make(Genome, len(parent))
	for i, gene := range parent {
		child[i] = gene + p.Rate*clip(normal.Rand(), perturbationClip)
	}

	m := Mutation{Genome: child, Species: parentSpecies, Locus: -1}
	if rng.Float64() >= p.BigRate {
		return m
	}

	x := rng.IntN(l.CellsX)
	y := rng.IntN(l.CellsY)
	beat := rng.IntN(l.Beats)
	locus := l.Index(x, y, beat)

	for i := 0; i < l.Traits; i++ {
		delta := 0.0
		for math.Abs(delta) < 0.5 {
			delta = normal.Rand()
		}
		child[locus+i] += delta

		// A speciated cell must be rigid enough for its new shape to matter.
		if i == TraitRigidity && child[locus+i] < 0.5 {
			child[locus+i] = 0.5
		}
	}

	m.Speciated = true
	m.Species = nextSpecies
	m.Locus = locus
	return m
}

func clip(v, bound float64) float64 {
	return math.Max(-bound, math.Min(bound, v))
}
