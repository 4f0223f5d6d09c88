package tether

import (
	"errors"
	"fmt"
)

// Params are the tunables of one tether. They can be changed live with SetParams.
type Params struct {
	Stiffness        float64 `yaml:"stiffness"`          // spring constant k, N per unit of stretch
	DampingRatio     float64 `yaml:"damping_ratio"`      // ζ along the tether
	PerpDampingRatio float64 `yaml:"perp_damping_ratio"` // ζ across the tether
	MaxForce         float64 `yaml:"max_force"`
	SlackEpsilon     float64 `yaml:"slack_epsilon"` // stretch below this is treated as slack
	ReelRate         float64 `yaml:"reel_rate"`     // rest length shrink per second while pulling
	MinRestLength    float64 `yaml:"min_rest_length"`

	ProjectileSpeed float64 `yaml:"projectile_speed"`
	MaxRange        float64 `yaml:"max_range"`
	AABBInflation   float64 `yaml:"aabb_inflation"` // broad-phase margin

	FrontFaceOnly        bool `yaml:"front_face_only"`
	RetryOppositeWinding bool `yaml:"retry_opposite_winding"`
	AABBFallback         bool `yaml:"aabb_fallback"` // accept the inflated box entry when a mesh raycast misses

	PersistMiss  bool    `yaml:"persist_miss"`  // keep drawing a missed shot
	PersistRange float64 `yaml:"persist_range"` // extra distance a persisted miss travels
}

// DefaultParams returns values tuned for a 100 kg craft over a few hundred units.
func DefaultParams() Params {
	return Params{
		Stiffness:        400,
		DampingRatio:     0.7,
		PerpDampingRatio: 0.3,
		MaxForce:         20000,
		SlackEpsilon:     0.05,
		ReelRate:         60,
		MinRestLength:    5,

		ProjectileSpeed: 1500,
		MaxRange:        2000,
		AABBInflation:   0.5,

		FrontFaceOnly:        true,
		RetryOppositeWinding: true,
		AABBFallback:         false,

		PersistMiss:  false,
		PersistRange: 200,
	}
}

// Validate reports values the state machine cannot run with.
func (p Params) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}
	positive("stiffness", p.Stiffness)
	positive("max_force", p.MaxForce)
	positive("projectile_speed", p.ProjectileSpeed)
	positive("max_range", p.MaxRange)
	nonNegative("damping_ratio", p.DampingRatio)
	nonNegative("perp_damping_ratio", p.PerpDampingRatio)
	nonNegative("slack_epsilon", p.SlackEpsilon)
	nonNegative("reel_rate", p.ReelRate)
	nonNegative("min_rest_length", p.MinRestLength)
	nonNegative("aabb_inflation", p.AABBInflation)
	nonNegative("persist_range", p.PersistRange)
	return errors.Join(errs...)
}
