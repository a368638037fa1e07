package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/jelly/sim"
)

// GenerationStats holds aggregated statistics for one evaluated generation.
// Distances are in centimetres: simulation units divided by units_per_meter.
type GenerationStats struct {
	RunID      string `csv:"run_id"`
	Generation int    `csv:"generation"`

	// Fitness distribution
	BestCM   float64 `csv:"best_cm"`
	P10CM    float64 `csv:"p10_cm"`
	MedianCM float64 `csv:"median_cm"`
	P90CM    float64 `csv:"p90_cm"`
	WorstCM  float64 `csv:"worst_cm"`
	MeanCM   float64 `csv:"mean_cm"`
	StdCM    float64 `csv:"std_cm"`

	// Species
	LivingSpecies    int     `csv:"living_species"`
	NewSpecies       int     `csv:"new_species"`
	PromotedSpecies  int     `csv:"promoted_species"`
	ExtinctSpecies   int     `csv:"extinct_species"`
	DominantSpecies  int     `csv:"dominant_species"`
	DominantFraction float64 `csv:"dominant_fraction"`

	// Timing
	DurationMS int64 `csv:"duration_ms"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeFitnessStats calculates mean, population std and percentiles.
func ComputeFitnessStats(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// NewGenerationStats flattens a generation summary. unitsPerMeter converts
// simulation distance to centimetres as value/unitsPerMeter.
func NewGenerationStats(runID string, s sim.Summary, unitsPerMeter float64) GenerationStats {
	cm := func(v float64) float64 { return v / unitsPerMeter }

	mean, std, p10, p50, p90 := ComputeFitnessStats(s.Fitness)

	dominant, dominantCount, total := -1, 0, 0
	for _, b := range s.Species {
		total += b.Count
		if b.Count > dominantCount {
			dominant, dominantCount = b.Species, b.Count
		}
	}
	var fraction float64
	if total > 0 {
		fraction = float64(dominantCount) / float64(total)
	}

	return GenerationStats{
		RunID:            runID,
		Generation:       s.Generation,
		BestCM:           cm(s.Best()),
		P10CM:            cm(p10),
		MedianCM:         cm(p50),
		P90CM:            cm(p90),
		WorstCM:          cm(s.Worst()),
		MeanCM:           cm(mean),
		StdCM:            cm(std),
		LivingSpecies:    len(s.Species),
		NewSpecies:       len(s.NewSpecies),
		PromotedSpecies:  len(s.Promoted),
		ExtinctSpecies:   len(s.Extinct),
		DominantSpecies:  dominant,
		DominantFraction: fraction,
		DurationMS:       s.Duration.Milliseconds(),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Float64("best_cm", s.BestCM),
		slog.Float64("median_cm", s.MedianCM),
		slog.Float64("worst_cm", s.WorstCM),
		slog.Float64("mean_cm", s.MeanCM),
		slog.Float64("std_cm", s.StdCM),
		slog.Int("living_species", s.LivingSpecies),
		slog.Int("new_species", s.NewSpecies),
		slog.Int("dominant_species", s.DominantSpecies),
		slog.Float64("dominant_fraction", s.DominantFraction),
		slog.Int64("duration_ms", s.DurationMS),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("generation",
		"generation", s.Generation,
		"best_cm", s.BestCM,
		"median_cm", s.MedianCM,
		"worst_cm", s.WorstCM,
		"living_species", s.LivingSpecies,
		"new_species", s.NewSpecies,
		"duration_ms", s.DurationMS,
	)
}
