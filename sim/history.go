package sim

import "github.com/pthm-cable/jelly/species"

// History mirrors a manager's per-generation statistics for a viewer. Each
// generation is copied once, when Sync first sees it.
type History struct {
	Percentiles [][]float64
	Species     [][]species.Bucket
}

// Len returns the number of generations mirrored.
func (h *History) Len() int { return len(h.Percentiles) }

// Sync appends every generation m has evaluated since the last call.
func (h *History) Sync(m *Manager) error {
	for g := len(h.Percentiles); g < m.EvaluatedGenerations(); g++ {
		p, err := m.Percentiles(g)
		if err != nil {
			return err
		}
		b, err := m.SpeciesPopulation(g)
		if err != nil {
			return err
		}
		h.Percentiles = append(h.Percentiles, p)
		h.Species = append(h.Species, b)
	}
	return nil
}
