package sim

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/jelly/species"
)

// Timing breaks a generation's wall-clock time into phases.
type Timing struct {
	Trial     time.Duration
	Rank      time.Duration
	Reproduce time.Duration
	Calm      time.Duration
}

// Summary describes one completed generation.
type Summary struct {
	Generation  int
	Fitness     []float64 // by slot
	Percentiles []float64 // index 0 is the best creature
	Species     []species.Bucket

	NewSpecies []int // founded while breeding the next generation
	Promoted   []int // became prominent this generation
	Extinct    []int // present last generation, absent now
	Record     bool  // best fitness exceeds every earlier generation

	FramesSimulated int64
	Timing          Timing
	Duration        time.Duration
}

// Best returns the top fitness.
func (s Summary) Best() float64 { return s.Percentiles[0] }

// Median returns the middle fitness.
func (s Summary) Median() float64 { return s.Percentiles[len(s.Percentiles)/2] }

// Worst returns the bottom fitness.
func (s Summary) Worst() float64 { return s.Percentiles[len(s.Percentiles)-1] }

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Float64("best", s.Best()),
		slog.Float64("median", s.Median()),
		slog.Float64("worst", s.Worst()),
		slog.Int("species", len(s.Species)),
		slog.Int("new_species", len(s.NewSpecies)),
		slog.Int("promoted", len(s.Promoted)),
		slog.Int("extinct", len(s.Extinct)),
		slog.Bool("record", s.Record),
		slog.Duration("duration", s.Duration),
	)
}
