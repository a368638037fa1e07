package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/jelly/sim"
)

// RunHeadless evaluates generations back to back until n more have
// completed, or until ctx is done when n <= 0. It returns the number of
// frames simulated. A cancelled context ends the run without error.
func RunHeadless(ctx context.Context, m *sim.Manager, n int) (int64, error) {
	var frames int64
	start := time.Now()

	for done := 0; n <= 0 || done < n; done++ {
		s, err := m.DoGeneration(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("headless run interrupted", "generations", done)
				return frames, nil
			}
			return frames, err
		}
		frames += s.FramesSimulated

		elapsed := time.Since(start)
		slog.Info("progress",
			"generation", s.Generation,
			"best", s.Best(),
			"median", s.Median(),
			"species", len(s.Species),
			"frames", humanize.Comma(frames),
			"frames_per_sec", humanize.SIWithDigits(float64(frames)/max(elapsed.Seconds(), 1e-9), 1, ""),
		)
	}
	return frames, nil
}
