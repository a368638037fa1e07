package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/jelly/sim"
)

// Phase names for one generation.
const (
	PhaseTrial     = "trial"
	PhaseRank      = "rank"
	PhaseReproduce = "reproduce"
	PhaseCalm      = "calm"
)

var phases = []string{PhaseTrial, PhaseRank, PhaseReproduce, PhaseCalm}

// PerfSample holds timing data for a single generation.
type PerfSample struct {
	Duration time.Duration
	Frames   int64
	Phases   map[string]time.Duration
}

// SampleFromSummary converts a generation summary's timing into a sample.
func SampleFromSummary(s sim.Summary) PerfSample {
	return PerfSample{
		Duration: s.Duration,
		Frames:   s.FramesSimulated,
		Phases: map[string]time.Duration{
			PhaseTrial:     s.Timing.Trial,
			PhaseRank:      s.Timing.Rank,
			PhaseReproduce: s.Timing.Reproduce,
			PhaseCalm:      s.Timing.Calm,
		},
	}
}

// PerfCollector tracks performance metrics over a rolling window of
// generations.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	// Frame timing (for graphics mode)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of generations to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 16
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
	}
}

// Record adds one generation's sample to the window.
func (p *PerfCollector) Record(sample PerfSample) {
	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records frame timing for graphics mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Generation timing
	AvgDuration time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total generation time
	PhasePct map[string]float64

	// Throughput
	FramesPerSecond float64

	// Frame timing (graphics mode)
	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg:      make(map[string]time.Duration),
			PhasePct:      make(map[string]float64),
			FrameDuration: p.frameDuration,
			FPS:           fps,
		}
	}

	var total time.Duration
	var minDur, maxDur time.Duration
	var frames int64
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.Duration
		frames += s.Frames

		if i == 0 || s.Duration < minDur {
			minDur = s.Duration
		}
		if s.Duration > maxDur {
			maxDur = s.Duration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var framesPerSec float64
	if total > 0 {
		framesPerSec = float64(frames) / total.Seconds()
	}

	return PerfStats{
		AvgDuration:     avg,
		MinDuration:     minDur,
		MaxDuration:     maxDur,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		FramesPerSecond: framesPerSec,
		FrameDuration:   p.frameDuration,
		FPS:             fps,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_gen_ms", s.AvgDuration.Milliseconds()),
		slog.Int64("min_gen_ms", s.MinDuration.Milliseconds()),
		slog.Int64("max_gen_ms", s.MaxDuration.Milliseconds()),
		slog.Float64("frames_per_sec", s.FramesPerSecond),
	}

	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}

	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	RunID        string  `csv:"run_id"`
	Generation   int     `csv:"generation"`
	AvgGenMS     int64   `csv:"avg_gen_ms"`
	MinGenMS     int64   `csv:"min_gen_ms"`
	MaxGenMS     int64   `csv:"max_gen_ms"`
	FramesPerSec float64 `csv:"frames_per_sec"`
	TrialPct     float64 `csv:"trial_pct"`
	RankPct      float64 `csv:"rank_pct"`
	ReproducePct float64 `csv:"reproduce_pct"`
	CalmPct      float64 `csv:"calm_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(runID string, generation int) PerfStatsCSV {
	return PerfStatsCSV{
		RunID:        runID,
		Generation:   generation,
		AvgGenMS:     s.AvgDuration.Milliseconds(),
		MinGenMS:     s.MinDuration.Milliseconds(),
		MaxGenMS:     s.MaxDuration.Milliseconds(),
		FramesPerSec: s.FramesPerSecond,
		TrialPct:     s.PhasePct[PhaseTrial],
		RankPct:      s.PhasePct[PhaseRank],
		ReproducePct: s.PhasePct[PhaseReproduce],
		CalmPct:      s.PhasePct[PhaseCalm],
	}
}
