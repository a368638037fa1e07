package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/pthm-cable/jelly/config"
	"github.com/pthm-cable/jelly/game"
	"github.com/pthm-cable/jelly/sim"
	"github.com/pthm-cable/jelly/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	generations := flag.Int("generations", 0, "Stop after N generations (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and plots")
	population := flag.Int("population", 0, "Override population.size (must be even)")
	quiet := flag.Bool("quiet", false, "Suppress per-generation stats logging")

	flag.Parse()

	setupLogging()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *population > 0 {
		cfg.Population.Size = *population
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid population override", "error", err)
			os.Exit(1)
		}
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, rngSeed, *headless, *generations, *outputDir, *quiet); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs a text handler on terminals and JSON otherwise.
func setupLogging() {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}

func run(ctx context.Context, cfg *config.Config, seed uint64, headless bool, generations int, outputDir string, quiet bool) error {
	runID := uuid.New().String()
	started := time.Now()

	output, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer output.Close()

	m, err := sim.NewManager(ctx, cfg, seed)
	if err != nil {
		return err
	}

	if err := output.WriteConfig(cfg); err != nil {
		return err
	}
	if err := output.WriteManifest(telemetry.Manifest{
		RunID:     runID,
		Seed:      seed,
		StartedAt: started,
		Headless:  headless,
	}); err != nil {
		return err
	}

	collector := telemetry.NewCollector(telemetry.CollectorOptions{
		RunID:         runID,
		Salt:          m.Salt(),
		UnitsPerMeter: cfg.Display.UnitsPerMeter,
		PerfWindow:    cfg.Telemetry.PerfWindow,
		Output:        output,
		Quiet:         quiet,
	})
	m.AddObserver(collector)

	slog.Info("starting",
		"run_id", runID,
		"seed", seed,
		"headless", headless,
		"population", cfg.Population.Size,
		"generations", generations,
		"output_dir", outputDir,
	)

	if headless {
		frames, err := game.RunHeadless(ctx, m, generations)
		if err != nil {
			return err
		}
		slog.Info("headless run complete",
			"generations", m.EvaluatedGenerations(),
			"frames", humanize.Comma(frames),
			"elapsed", time.Since(started).Round(time.Millisecond),
			"perf", collector.Perf().Stats(),
		)
	} else {
		runGraphical(ctx, m, collector, generations)
	}

	if output != nil && m.EvaluatedGenerations() > 0 {
		if err := collector.WritePlot(filepath.Join(output.Dir(), "fitness.png")); err != nil {
			return err
		}
	}
	return collector.Err()
}

func runGraphical(ctx context.Context, m *sim.Manager, collector *telemetry.Collector, generations int) {
	cfg := m.Config()
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Display.ScreenWidth), int32(cfg.Display.ScreenHeight), "Jelly")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Display.TargetFPS))

	g := game.NewGame(ctx, m, game.Options{Collector: collector})
	defer g.Unload()

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		g.Update()
		g.Draw()

		if generations > 0 && g.Generations() >= generations {
			slog.Info("generation limit reached", "generations", g.Generations())
			break
		}
	}
}
