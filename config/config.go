// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure. A config that fails
// validation must stop the process before any simulation starts.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all simulation configuration parameters.
type Config struct {
	Population PopulationConfig `yaml:"population"`
	Grid       GridConfig       `yaml:"grid"`
	Timing     TimingConfig     `yaml:"timing"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Species    SpeciesConfig    `yaml:"species"`
	Display    DisplayConfig    `yaml:"display"`
	Parallel   ParallelConfig   `yaml:"parallel"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PopulationConfig holds population parameters. The size is fixed for a run.
type PopulationConfig struct {
	Size int `yaml:"size"`
}

// GridConfig describes the creature body and genome shape.
type GridConfig struct {
	CellsX        int `yaml:"cells_x"`         // Body width in cells
	CellsY        int `yaml:"cells_y"`         // Body height in cells
	BeatsPerCycle int `yaml:"beats_per_cycle"` // Muscle phases per actuation cycle
	TraitsPerCell int `yaml:"traits_per_cell"` // Genes per cell per beat (>= 3)
	TraitsExtra   int `yaml:"traits_extra"`    // Trailing genes not tied to a cell
}

// TimingConfig holds frame counts for the simulation phases.
type TimingConfig struct {
	StabilizationSteps int `yaml:"stabilization_steps"` // Calming run length
	TrialSteps         int `yaml:"trial_steps"`         // Fitness trial length
	BeatTime           int `yaml:"beat_time"`           // Frames per beat
	BeatFadeTime       int `yaml:"beat_fade_time"`      // Frames for colour blending between beats (display only)
}

// PhysicsConfig holds mass-spring integrator parameters.
// The y axis points down; the floor sits at FloorY.
type PhysicsConfig struct {
	CalmingFriction float64 `yaml:"calming_friction"`
	TrialFriction   float64 `yaml:"trial_friction"`
	GroundFriction  float64 `yaml:"ground_friction"`
	Gravity         float64 `yaml:"gravity"`
	MuscleCoef      float64 `yaml:"muscle_coef"`
	FloorY          float64 `yaml:"floor_y"`
	CeilingY        float64 `yaml:"ceiling_y"`
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate    float64 `yaml:"rate"`     // Scale of the per-gene perturbation
	BigRate float64 `yaml:"big_rate"` // Probability of a speciating mutation
}

// SpeciesConfig holds population-fraction thresholds for species display.
type SpeciesConfig struct {
	VisibleFraction float64 `yaml:"visible_fraction"` // Labelled in the stacked area chart
	NotableFraction float64 `yaml:"notable_fraction"` // Becomes prominent in the ancestry tree
}

// DisplayConfig holds settings used only by the viewer and for unit conversion.
type DisplayConfig struct {
	UnitsPerMeter   float64 `yaml:"units_per_meter"`
	ScreenWidth     int     `yaml:"screen_width"`
	ScreenHeight    int     `yaml:"screen_height"`
	TargetFPS       int     `yaml:"target_fps"`
	FramesPerUITick int     `yaml:"frames_per_ui_tick"` // Trial frames advanced per rendered frame
}

// ParallelConfig controls the physics worker pool.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
	Threshold int `yaml:"threshold"` // Minimum bodies per batch before fanning out
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PercentileResolution int `yaml:"percentile_resolution"`
	PerfWindow           int `yaml:"perf_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	GenomeLength int // CellsX*CellsY*BeatsPerCycle*TraitsPerCell + TraitsExtra
	NodesPerBody int // (CellsX+1)*(CellsY+1)
	CellsPerBody int // CellsX*CellsY
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()
	return cfg, nil
}

// Parse decodes a complete configuration document without applying defaults.
// Any required field left out of data fails validation.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()
	return cfg, nil
}

// Validate checks every required field. The first problem found is returned
// wrapped around ErrInvalid.
func (c *Config) Validate() error {
	positiveInts := []struct {
		name string
		v    int
	}{
		{"population.size", c.Population.Size},
		{"grid.cells_x", c.Grid.CellsX},
		{"grid.cells_y", c.Grid.CellsY},
		{"grid.beats_per_cycle", c.Grid.BeatsPerCycle},
		{"grid.traits_per_cell", c.Grid.TraitsPerCell},
		{"timing.stabilization_steps", c.Timing.StabilizationSteps},
		{"timing.trial_steps", c.Timing.TrialSteps},
		{"timing.beat_time", c.Timing.BeatTime},
		{"timing.beat_fade_time", c.Timing.BeatFadeTime},
		{"display.frames_per_ui_tick", c.Display.FramesPerUITick},
		{"telemetry.percentile_resolution", c.Telemetry.PercentileResolution},
		{"telemetry.perf_window", c.Telemetry.PerfWindow},
	}
	for _, f := range positiveInts {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be > 0 (got %d)", ErrInvalid, f.name, f.v)
		}
	}

	positiveFloats := []struct {
		name string
		v    float64
	}{
		{"physics.calming_friction", c.Physics.CalmingFriction},
		{"physics.trial_friction", c.Physics.TrialFriction},
		{"physics.ground_friction", c.Physics.GroundFriction},
		{"physics.muscle_coef", c.Physics.MuscleCoef},
		{"display.units_per_meter", c.Display.UnitsPerMeter},
	}
	for _, f := range positiveFloats {
		if !(f.v > 0) {
			return fmt.Errorf("%w: %s must be > 0 (got %v)", ErrInvalid, f.name, f.v)
		}
	}

	if c.Population.Size < 2 || c.Population.Size%2 != 0 {
		return fmt.Errorf("%w: population.size must be even and >= 2 (got %d)", ErrInvalid, c.Population.Size)
	}
	if c.Grid.TraitsPerCell < 3 {
		return fmt.Errorf("%w: grid.traits_per_cell must be >= 3 (got %d)", ErrInvalid, c.Grid.TraitsPerCell)
	}
	if c.Grid.TraitsExtra < 0 {
		return fmt.Errorf("%w: grid.traits_extra must be >= 0 (got %d)", ErrInvalid, c.Grid.TraitsExtra)
	}
	if c.Physics.Gravity < 0 {
		return fmt.Errorf("%w: physics.gravity must be >= 0 (got %v)", ErrInvalid, c.Physics.Gravity)
	}
	if c.Physics.CeilingY > c.Physics.FloorY {
		return fmt.Errorf("%w: physics.ceiling_y must not be below physics.floor_y", ErrInvalid)
	}
	if c.Mutation.Rate < 0 {
		return fmt.Errorf("%w: mutation.rate must be >= 0 (got %v)", ErrInvalid, c.Mutation.Rate)
	}
	if c.Mutation.BigRate < 0 || c.Mutation.BigRate > 1 {
		return fmt.Errorf("%w: mutation.big_rate must be in [0, 1] (got %v)", ErrInvalid, c.Mutation.BigRate)
	}
	if c.Species.NotableFraction < 0 || c.Species.NotableFraction > 1 {
		return fmt.Errorf("%w: species.notable_fraction must be in [0, 1] (got %v)", ErrInvalid, c.Species.NotableFraction)
	}
	return nil
}

// ComputeDerived recalculates Derived from the grid. Call it again after
// changing Grid on a loaded config.
func (c *Config) ComputeDerived() {
	g := c.Grid
	c.Derived.CellsPerBody = g.CellsX * g.CellsY
	c.Derived.NodesPerBody = (g.CellsX + 1) * (g.CellsY + 1)
	c.Derived.GenomeLength = c.Derived.CellsPerBody*g.BeatsPerCycle*g.TraitsPerCell + g.TraitsExtra
}

// applyDefaults fills optional fields a document may leave out. It runs
// before validation; a config built in code must set them itself.
func (c *Config) applyDefaults() {
	if c.Telemetry.PercentileResolution <= 0 {
		c.Telemetry.PercentileResolution = 100
	}
	if c.Telemetry.PerfWindow <= 0 {
		c.Telemetry.PerfWindow = 16
	}
	if c.Display.FramesPerUITick <= 0 {
		c.Display.FramesPerUITick = 200
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
