package telemetry

import (
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/pthm-cable/jelly/sim"
)

// Collector turns generation summaries into stats, perf samples and
// milestones. It implements sim.Observer; register it with
// Manager.AddObserver.
type Collector struct {
	runID         string
	unitsPerMeter float64
	quiet         bool

	perf       *PerfCollector
	milestones *MilestoneDetector
	output     *OutputManager

	history     []GenerationStats
	percentiles [][]float64
	found       []Milestone
	err         error
}

// CollectorOptions configures a Collector.
type CollectorOptions struct {
	RunID         string // generated when empty
	Salt          string // for species names in milestone descriptions
	UnitsPerMeter float64
	PerfWindow    int
	HistorySize   int            // milestone rolling window
	Output        *OutputManager // may be nil
	Quiet         bool           // suppress per-generation logging
}

// NewCollector creates a collector.
func NewCollector(opts CollectorOptions) *Collector {
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if opts.UnitsPerMeter <= 0 {
		opts.UnitsPerMeter = 1
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 10
	}
	return &Collector{
		runID:         opts.RunID,
		unitsPerMeter: opts.UnitsPerMeter,
		quiet:         opts.Quiet,
		perf:          NewPerfCollector(opts.PerfWindow),
		milestones:    NewMilestoneDetector(opts.HistorySize, opts.Salt),
		output:        opts.Output,
	}
}

// OnGeneration implements sim.Observer.
func (c *Collector) OnGeneration(s sim.Summary) {
	stats := NewGenerationStats(c.runID, s, c.unitsPerMeter)
	c.history = append(c.history, stats)
	c.percentiles = append(c.percentiles, slices.Clone(s.Percentiles))

	c.perf.Record(SampleFromSummary(s))
	perf := c.perf.Stats()

	found := c.milestones.Check(stats, s)
	c.found = append(c.found, found...)

	if !c.quiet {
		stats.LogStats()
		for _, m := range found {
			m.LogMilestone()
		}
	}

	c.keep(c.output.WriteGeneration(stats))
	c.keep(c.output.WritePerf(perf, c.runID, s.Generation))
	for _, m := range found {
		c.keep(c.output.WriteMilestone(m))
	}
}

// keep remembers the first output error; later generations still run.
func (c *Collector) keep(err error) {
	if err == nil || c.err != nil {
		return
	}
	slog.Error("telemetry output failed", "error", err)
	c.err = err
}

// RunID returns the run identifier written to every CSV row.
func (c *Collector) RunID() string { return c.runID }

// History returns stats for every observed generation.
func (c *Collector) History() []GenerationStats { return c.history }

// Milestones returns every milestone detected so far.
func (c *Collector) Milestones() []Milestone { return c.found }

// Perf returns the rolling performance stats.
func (c *Collector) Perf() *PerfCollector { return c.perf }

// Err returns the first output error, if any.
func (c *Collector) Err() error { return c.err }

// WritePlot saves the percentile history figure to path.
func (c *Collector) WritePlot(path string) error {
	return WritePercentilePlot(path, c.percentiles, c.unitsPerMeter)
}
