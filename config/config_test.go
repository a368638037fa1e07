package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
population:
  size: 10
grid:
  cells_x: 4
  cells_y: 3
  beats_per_cycle: 3
  traits_per_cell: 3
  traits_extra: 1
timing:
  stabilization_steps: 100
  trial_steps: 200
  beat_time: 20
  beat_fade_time: 5
physics:
  calming_friction: 0.7
  trial_friction: 0.8
  ground_friction: 25
  gravity: 0.002
  muscle_coef: 0.08
  floor_y: 0
  ceiling_y: -1000
mutation:
  rate: 0.07
  big_rate: 0.025
display:
  units_per_meter: 0.05
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}

	want := cfg.Grid.CellsX*cfg.Grid.CellsY*cfg.Grid.BeatsPerCycle*cfg.Grid.TraitsPerCell + cfg.Grid.TraitsExtra
	if cfg.Derived.GenomeLength != want {
		t.Errorf("GenomeLength = %d, want %d", cfg.Derived.GenomeLength, want)
	}
	if cfg.Derived.NodesPerBody != (cfg.Grid.CellsX+1)*(cfg.Grid.CellsY+1) {
		t.Errorf("NodesPerBody = %d", cfg.Derived.NodesPerBody)
	}
}

func TestParseComplete(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Derived.GenomeLength != 4*3*3*3+1 {
		t.Errorf("GenomeLength = %d, want %d", cfg.Derived.GenomeLength, 4*3*3*3+1)
	}
	if cfg.Telemetry.PercentileResolution != 100 {
		t.Errorf("PercentileResolution = %d, want 100", cfg.Telemetry.PercentileResolution)
	}
}

func TestParseMissingField(t *testing.T) {
	tests := []struct {
		name   string
		remove string
	}{
		{"missing trial steps", "  trial_steps: 200\n"},
		{"missing muscle coef", "  muscle_coef: 0.08\n"},
		{"missing population", "population:\n  size: 10\n"},
		{"missing units", "  units_per_meter: 0.05\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(fullYAML, tt.remove, "", 1)
			if doc == fullYAML {
				t.Fatalf("fixture does not contain %q", tt.remove)
			}
			_, err := Parse([]byte(doc))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"odd population", func(c *Config) { c.Population.Size = 5 }},
		{"too few traits", func(c *Config) { c.Grid.TraitsPerCell = 2 }},
		{"negative gravity", func(c *Config) { c.Physics.Gravity = -1 }},
		{"big rate above one", func(c *Config) { c.Mutation.BigRate = 1.5 }},
		{"ceiling below floor", func(c *Config) { c.Physics.CeilingY = c.Physics.FloorY + 1 }},
		{"zero percentile resolution", func(c *Config) { c.Telemetry.PercentileResolution = 0 }},
		{"zero perf window", func(c *Config) { c.Telemetry.PerfWindow = 0 }},
		{"zero frames per ui tick", func(c *Config) { c.Display.FramesPerUITick = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestComputeDerivedAfterGridChange(t *testing.T) {
	cfg := Default()
	cfg.Grid.CellsX = 2
	cfg.Grid.CellsY = 5
	cfg.ComputeDerived()

	want := 2*5*cfg.Grid.BeatsPerCycle*cfg.Grid.TraitsPerCell + cfg.Grid.TraitsExtra
	if cfg.Derived.GenomeLength != want {
		t.Errorf("GenomeLength = %d, want %d", cfg.Derived.GenomeLength, want)
	}
	if cfg.Derived.NodesPerBody != 3*6 {
		t.Errorf("NodesPerBody = %d, want %d", cfg.Derived.NodesPerBody, 3*6)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("population:\n  size: 40\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Population.Size != 40 {
		t.Errorf("Population.Size = %d, want 40", cfg.Population.Size)
	}
	// Untouched fields keep their defaults
	if cfg.Timing.TrialSteps != Default().Timing.TrialSteps {
		t.Errorf("TrialSteps = %d, want default", cfg.Timing.TrialSteps)
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg := Default()
	cfg.Population.Size = 12
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Population.Size != 12 {
		t.Errorf("Population.Size = %d, want 12", back.Population.Size)
	}
}

