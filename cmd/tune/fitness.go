package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/scene"
)

// Fitness weights. Lower fitness is better.
const (
	overshootWeight = 5.0  // per metre the span dips below target
	contactWeight   = 20.0 // per second spent touching geometry
	unsettledWeight = 10.0 // per metre of final span error when never settled
	failurePenalty  = 1e4  // tether never attached or was lost
	invalidPenalty  = 1e6  // parameters fail validation
)

// trialResult holds the outcome of one throttle run.
type trialResult struct {
	fitness float64
	settled bool
}

// FitnessEvaluator runs the reel scenario headless and scores how quickly and
// cleanly the tether settles.
type FitnessEvaluator struct {
	params     *ParamVector
	duration   float64
	throttles  []float64
	baseConfig *config.Config
	logger     *slog.Logger

	mu          sync.Mutex
	lastSettled int // trials settled in the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Each evaluation runs one trial
// per counter-thrust throttle.
func NewFitnessEvaluator(params *ParamVector, duration float64, throttles []float64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		duration:   duration,
		throttles:  throttles,
		baseConfig: baseCfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LastSettled returns how many trials settled in the most recent evaluation.
func (fe *FitnessEvaluator) LastSettled() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSettled
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]trialResult, len(fe.throttles))
	var wg sync.WaitGroup

	for i, throttle := range fe.throttles {
		wg.Add(1)
		go func(idx int, th float64) {
			defer wg.Done()
			results[idx] = fe.runTrial(x, th)
		}(i, throttle)
	}
	wg.Wait()

	var total float64
	settled := 0
	for _, r := range results {
		total += r.fitness
		if r.settled {
			settled++
		}
	}
	avg := total / float64(len(results))

	fe.mu.Lock()
	fe.lastSettled = settled
	fe.mu.Unlock()

	return avg
}

// runTrial executes one reel scenario with the given counter-thrust.
func (fe *FitnessEvaluator) runTrial(x []float64, throttle float64) trialResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Scene.ReelThrottle = throttle
	if err := cfg.Validate(); err != nil {
		return trialResult{fitness: invalidPenalty}
	}
	cfg.ComputeDerived()

	res, err := scene.RunScenario(context.Background(), cfg, scene.ScenarioReel, scene.RunOptions{
		Duration: fe.duration,
		Seed:     cfg.Scene.Seed,
		Logger:   fe.logger,
	})
	if err != nil || res == nil {
		return trialResult{fitness: invalidPenalty}
	}
	return trialResult{
		fitness: scoreResult(res, fe.duration, cfg.Physics.FixedDT),
		settled: res.Settled,
	}
}

// scoreResult turns a finished reel run into a fitness value.
func scoreResult(res *scene.Result, duration, dt float64) float64 {
	if res.Events["attached"] == 0 || res.Events["lost"] > 0 {
		return failurePenalty
	}

	var contactSteps int
	for _, sm := range res.Trace {
		if sm.Contacts > 0 {
			contactSteps++
		}
	}

	f := overshootWeight*res.Overshoot + contactWeight*float64(contactSteps)*dt
	if res.Settled {
		return f + res.SettleTime
	}

	finalErr := res.Target
	if n := len(res.Trace); n > 0 {
		finalErr = math.Abs(res.Trace[n-1].Tether0Span - res.Target)
	}
	return f + duration + unsettledWeight*finalErr
}

// copyConfig returns a copy of the base config whose slices are not shared.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Craft.Emitters = append([][3]float64(nil), fe.baseConfig.Craft.Emitters...)
	return &cfg
}
