// Package main tunes tether spring parameters with CMA-ES against the reel scenario.
package main

import (
	"github.com/pthm-cable/grapple/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name string  // Human-readable name
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tether tunables.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{
				Name: "stiffness", Path: "tether.stiffness", Min: 100, Max: 3000,
				get: func(c *config.Config) float64 { return c.Tether.Stiffness },
				set: func(c *config.Config, v float64) { c.Tether.Stiffness = v },
			},
			{
				Name: "damping_ratio", Path: "tether.damping_ratio", Min: 0, Max: 2,
				get: func(c *config.Config) float64 { return c.Tether.DampingRatio },
				set: func(c *config.Config, v float64) { c.Tether.DampingRatio = v },
			},
			{
				Name: "perp_damping_ratio", Path: "tether.perp_damping_ratio", Min: 0, Max: 2,
				get: func(c *config.Config) float64 { return c.Tether.PerpDampingRatio },
				set: func(c *config.Config, v float64) { c.Tether.PerpDampingRatio = v },
			},
			{
				Name: "reel_rate", Path: "tether.reel_rate", Min: 5, Max: 120,
				get: func(c *config.Config) float64 { return c.Tether.ReelRate },
				set: func(c *config.Config, v float64) { c.Tether.ReelRate = v },
			},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// FromConfig reads the current parameter values from cfg.
func (pv *ParamVector) FromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.get(cfg)
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
}
