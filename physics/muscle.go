package physics

import (
	"math"

	"github.com/pthm-cable/jelly/genome"
)

// Muscle holds the target lengths of one cell for one beat.
type Muscle struct {
	Horizontal float64
	Vertical   float64
	Rigidity   float64
	Diagonal   float64 // hypot(Horizontal, Vertical)
}

// Muscles expands a genome into its per cell-beat muscle array. Muscle
// (x, y, beat) is stored at (x*CellsY+y)*Beats+beat, the same order the
// genome uses for its cell-beat blocks.
func Muscles(l genome.Layout, g genome.Genome) []Muscle {
	out := make([]Muscle, l.CellsX*l.CellsY*l.Beats)
	for x := 0; x < l.CellsX; x++ {
		for y := 0; y < l.CellsY; y++ {
			for beat := 0; beat < l.Beats; beat++ {
				base := l.Index(x, y, beat)
				h := genome.TraitValue(g[base+genome.TraitHorizontal])
				v := genome.TraitValue(g[base+genome.TraitVertical])
				out[(x*l.CellsY+y)*l.Beats+beat] = Muscle{
					Horizontal: h,
					Vertical:   v,
					Rigidity:   genome.TraitValue(g[base+genome.TraitRigidity]),
					Diagonal:   math.Hypot(h, v),
				}
			}
		}
	}
	return out
}
