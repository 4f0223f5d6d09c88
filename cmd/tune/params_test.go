package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/scene"
	"github.com/pthm-cable/grapple/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Defaults()

	raw := pv.FromConfig(cfg)
	require.Len(t, raw, pv.Dim())
	assert.Equal(t, cfg.Tether.Stiffness, raw[0])

	norm := pv.Normalize(raw)
	for i, v := range norm {
		assert.GreaterOrEqual(t, v, 0.0, pv.Specs[i].Name)
		assert.LessOrEqual(t, v, 1.0, pv.Specs[i].Name)
	}
	assert.InDeltaSlice(t, raw, pv.Denormalize(norm), 1e-9)
}

func TestParamVectorClamp(t *testing.T) {
	pv := NewParamVector()
	in := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		if i%2 == 0 {
			in[i] = spec.Min - 1
		} else {
			in[i] = spec.Max + 1
		}
	}
	out := pv.Clamp(in)
	for i, spec := range pv.Specs {
		if i%2 == 0 {
			assert.Equal(t, spec.Min, out[i], spec.Name)
		} else {
			assert.Equal(t, spec.Max, out[i], spec.Name)
		}
	}
}

func TestApplyToConfigWritesTetherFields(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Defaults()

	pv.ApplyToConfig(cfg, []float64{1200, 0.9, 0.4, 1e6})

	assert.Equal(t, 1200.0, cfg.Tether.Stiffness)
	assert.Equal(t, 0.9, cfg.Tether.DampingRatio)
	assert.Equal(t, 0.4, cfg.Tether.PerpDampingRatio)
	assert.Equal(t, pv.Specs[3].Max, cfg.Tether.ReelRate)
}

func TestParseThrottles(t *testing.T) {
	got, err := parseThrottles(" 0.25, 1 ,")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 1}, got)

	_, err = parseThrottles("")
	assert.Error(t, err)
	_, err = parseThrottles("1.5")
	assert.Error(t, err)
	_, err = parseThrottles("fast")
	assert.Error(t, err)
}

func TestScoreResult(t *testing.T) {
	const dt = 1.0 / 120

	settled := &scene.Result{
		Events:     map[string]int{"attached": 1},
		Target:     10,
		Settled:    true,
		SettleTime: 30,
		Overshoot:  0.5,
		Trace:      []telemetry.StepSample{{Tether0Span: 10}, {Tether0Span: 10, Contacts: 1}},
	}
	assert.InDelta(t, 30+overshootWeight*0.5+contactWeight*dt, scoreResult(settled, 60, dt), 1e-9)

	unsettled := &scene.Result{
		Events: map[string]int{"attached": 1},
		Target: 10,
		Trace:  []telemetry.StepSample{{Tether0Span: 14}},
	}
	assert.InDelta(t, 60+unsettledWeight*4, scoreResult(unsettled, 60, dt), 1e-9)
	assert.Greater(t, scoreResult(unsettled, 60, dt), scoreResult(settled, 60, dt))

	lost := &scene.Result{Events: map[string]int{"attached": 1, "lost": 1}}
	assert.Equal(t, failurePenalty, scoreResult(lost, 60, dt))
	assert.Equal(t, failurePenalty, scoreResult(&scene.Result{Events: map[string]int{}}, 60, dt))
}

func TestEvaluateRejectsInvalidParams(t *testing.T) {
	pv := NewParamVector()
	// only the reel throttle is checked before a run, so push it out of range
	fe := NewFitnessEvaluator(pv, 1, []float64{2}, config.Defaults())
	assert.Equal(t, invalidPenalty, fe.Evaluate(pv.FromConfig(config.Defaults())))
	assert.Equal(t, 0, fe.LastSettled())
}
