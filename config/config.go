// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/grapple/physics"
	"github.com/pthm-cable/grapple/tether"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig            `yaml:"screen"`
	Physics   physics.SchedulerParams `yaml:"physics"`
	Craft     CraftConfig             `yaml:"craft"`
	Tether    tether.Params           `yaml:"tether"`
	Collision physics.ResolverParams  `yaml:"collision"`
	Scene     SceneConfig             `yaml:"scene"`
	Telemetry TelemetryConfig         `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// CraftConfig holds the craft body and its mounts.
type CraftConfig struct {
	physics.BodyParams `yaml:",inline"`

	ThrustForce float64      `yaml:"thrust_force"` // force at full throttle
	Tethers     int          `yaml:"tethers"`      // 1 or 2
	Emitters    [][3]float64 `yaml:"emitters"`     // tether mounts relative to the craft centre
	Start       [3]float64   `yaml:"start"`
}

// SceneConfig holds the demo world generation parameters.
type SceneConfig struct {
	Seed           int64      `yaml:"seed"`
	Asteroids      int        `yaml:"asteroids"`
	FieldRadius    float64    `yaml:"field_radius"`    // asteroids are placed inside this sphere
	ClearRadius    float64    `yaml:"clear_radius"`    // no asteroid centre closer than this to the craft start
	MinRadius      float64    `yaml:"min_radius"`
	MaxRadius      float64    `yaml:"max_radius"`
	Subdivisions   int        `yaml:"subdivisions"`    // icosphere refinement levels
	NoiseScale     float64    `yaml:"noise_scale"`     // opensimplex frequency on the unit sphere
	NoiseAmplitude float64    `yaml:"noise_amplitude"` // radial displacement as a fraction of radius
	MaxSpin        float64    `yaml:"max_spin"`        // radians per second
	ReelThrottle   float64    `yaml:"reel_throttle"`   // counter-thrust in the reel scenario, [0,1]
	Wall           WallConfig `yaml:"wall"`
}

// WallConfig describes the flat target used by the reel scenario.
type WallConfig struct {
	Distance  float64 `yaml:"distance"` // along +Z from the craft start
	HalfSize  float64 `yaml:"half_size"`
	Thickness float64 `yaml:"thickness"`
}

// TelemetryConfig holds trace and performance output settings.
type TelemetryConfig struct {
	TraceEvery          int     `yaml:"trace_every"`  // record every Nth fixed step (0 = off)
	StatsWindow         float64 `yaml:"stats_window"` // seconds summarised at the end of a run
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	SettleTolerance     float64 `yaml:"settle_tolerance"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	StepsPerSecond float64  // 1 / Physics.FixedDT
	Tethers        int      // Craft.Tethers clamped to 1..tether.MaxTethers
	Emitters       []r3.Vec // one mount per tether slot
	Start          r3.Vec
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

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.ComputeDerived()
	return cfg, nil
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	section := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	section("craft", c.Craft.Validate())
	section("tether", c.Tether.Validate())
	section("collision", c.Collision.Validate())

	if !(c.Physics.FixedDT > 0) {
		errs = append(errs, fmt.Errorf("physics: fixed_dt must be > 0, got %v", c.Physics.FixedDT))
	}
	if c.Physics.MaxFrameTime < c.Physics.FixedDT {
		errs = append(errs, fmt.Errorf("physics: max_frame_time must be >= fixed_dt"))
	}
	if c.Craft.Tethers < 1 || c.Craft.Tethers > tether.MaxTethers {
		errs = append(errs, fmt.Errorf("craft: tethers must be in [1,%d], got %d", tether.MaxTethers, c.Craft.Tethers))
	}
	if c.Craft.ThrustForce < 0 {
		errs = append(errs, fmt.Errorf("craft: thrust_force must be >= 0"))
	}
	if c.Scene.Asteroids < 0 {
		errs = append(errs, fmt.Errorf("scene: asteroids must be >= 0"))
	}
	if c.Scene.MinRadius <= 0 || c.Scene.MaxRadius < c.Scene.MinRadius {
		errs = append(errs, fmt.Errorf("scene: need 0 < min_radius <= max_radius"))
	}
	if c.Scene.Subdivisions < 0 || c.Scene.Subdivisions > 5 {
		errs = append(errs, fmt.Errorf("scene: subdivisions must be in [0,5], got %d", c.Scene.Subdivisions))
	}
	if c.Scene.ReelThrottle < 0 || c.Scene.ReelThrottle > 1 {
		errs = append(errs, fmt.Errorf("scene: reel_throttle must be in [0,1], got %v", c.Scene.ReelThrottle))
	}
	if c.Telemetry.TraceEvery < 0 {
		errs = append(errs, fmt.Errorf("telemetry: trace_every must be >= 0"))
	}
	return errors.Join(errs...)
}

// ComputeDerived calculates values derived from loaded config.
func (c *Config) ComputeDerived() {
	c.Derived.StepsPerSecond = 1 / c.Physics.FixedDT
	c.Derived.Tethers = min(max(c.Craft.Tethers, 1), tether.MaxTethers)
	c.Derived.Start = vec(c.Craft.Start)

	// missing mounts fire from the craft centre
	c.Derived.Emitters = make([]r3.Vec, c.Derived.Tethers)
	for i := range c.Derived.Emitters {
		if i < len(c.Craft.Emitters) {
			c.Derived.Emitters[i] = vec(c.Craft.Emitters[i])
		}
	}
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
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
