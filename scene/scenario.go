package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/physics"
	"github.com/pthm-cable/grapple/telemetry"
)

// Scenario names a scripted headless run.
type Scenario string

const (
	// ScenarioReel fires at a wall ahead, reels in and holds against counter-thrust.
	ScenarioReel Scenario = "reel"
	// ScenarioMiss fires one tether into empty space and the other at the wall.
	ScenarioMiss Scenario = "miss"
	// ScenarioField spins up an asteroid field and swings from the two nearest rocks.
	ScenarioField Scenario = "field"
)

// Scenarios lists every known scenario.
func Scenarios() []Scenario {
	return []Scenario{ScenarioReel, ScenarioMiss, ScenarioField}
}

// ParseScenario resolves a scenario by name.
func ParseScenario(name string) (Scenario, error) {
	sc := Scenario(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Scenarios(), sc) {
		return sc, nil
	}
	return "", fmt.Errorf("unknown scenario %q", name)
}

// AddWall places the configured wall ahead of the craft start along +Z.
func (s *Scene) AddWall() uint64 {
	w := s.cfg.Scene.Wall
	box := geom.AABB{
		Min: r3.Vec{X: -w.HalfSize, Y: -w.HalfSize},
		Max: r3.Vec{X: w.HalfSize, Y: w.HalfSize, Z: w.Thickness},
	}
	frame := geom.Translation(r3.Add(s.cfg.Derived.Start, r3.Vec{Z: w.Distance}))
	return s.world.AddBox(components.KindWall, box, frame)
}

// PopulateField scatters the configured number of asteroids around the craft
// start. Asteroids never overlap each other or the clear zone. It returns the
// ids placed, which may be fewer than configured in a crowded field.
func (s *Scene) PopulateField(rng *rand.Rand) []uint64 {
	sc := s.cfg.Scene
	start := s.cfg.Derived.Start

	type placed struct {
		pos    r3.Vec
		radius float64
	}
	var field []placed
	var ids []uint64

	for attempts := 0; len(ids) < sc.Asteroids && attempts < sc.Asteroids*20; attempts++ {
		p := AsteroidParams{
			Radius:       sc.MinRadius + rng.Float64()*(sc.MaxRadius-sc.MinRadius),
			Subdivisions: sc.Subdivisions,
			NoiseScale:   sc.NoiseScale,
			Amplitude:    sc.NoiseAmplitude,
			Seed:         rng.Int63(),
		}
		bound := p.BoundingRadius()
		pos := r3.Add(start, r3.Scale(sc.FieldRadius, randomInBall(rng)))
		if geom.Distance(pos, start) < sc.ClearRadius+bound {
			continue
		}
		clear := true
		for _, f := range field {
			if geom.Distance(pos, f.pos) < bound+f.radius {
				clear = false
				break
			}
		}
		if !clear {
			continue
		}

		spin := components.Spin{
			Axis: randomInBall(rng),
			Rate: (rng.Float64()*2 - 1) * sc.MaxSpin,
		}
		ids = append(ids, s.world.AddAsteroid(p, geom.Translation(pos), spin))
		field = append(field, placed{pos: pos, radius: bound})
	}
	return ids
}

func randomInBall(rng *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
		if n := r3.Norm(v); n <= 1 && n > geom.Epsilon {
			return v
		}
	}
}

// Setup builds the scenario's world and queues its opening intents.
func (sc Scenario) Setup(s *Scene, rng *rand.Rand) error {
	forward := r3.Vec{Z: 1}
	switch sc {
	case ScenarioReel:
		s.AddWall()
		s.Fire(0, forward)
		s.SetReel(0, true)
		if t := s.cfg.Scene.ReelThrottle; t > 0 {
			s.SetThrust(r3.Scale(-1, forward), t)
		}
	case ScenarioMiss:
		s.AddWall()
		s.Fire(0, r3.Scale(-1, forward))
		if s.tethers.Len() > 1 {
			s.Fire(1, forward)
		}
	case ScenarioField:
		s.PopulateField(rng)
		targets := s.nearest(s.tethers.Len())
		for i, id := range targets {
			h, _ := s.world.Get(id)
			origin := r3.Add(s.body.Position(), s.Emitter(i))
			s.Fire(i, r3.Sub(h.Transform().Position, origin))
			s.SetReel(i, true)
		}
	default:
		return fmt.Errorf("unknown scenario %q", string(sc))
	}
	return nil
}

// Target returns the span tether 0 should settle at, or 0 if the scenario has
// no steady state. With the reel bottomed out the spring balances the
// counter-thrust.
func (sc Scenario) Target(cfg *config.Config) float64 {
	if sc != ScenarioReel || cfg.Tether.Stiffness <= 0 {
		return 0
	}
	return cfg.Tether.MinRestLength + cfg.Craft.ThrustForce*cfg.Scene.ReelThrottle/cfg.Tether.Stiffness
}

// nearest returns up to n collidable ids ordered by distance from the craft.
func (s *Scene) nearest(n int) []uint64 {
	pos := s.body.Position()
	list := slices.Clone(s.world.Collidables())
	slices.SortFunc(list, func(a, b physics.Collidable) int {
		da := geom.Distance(a.Transform().Position, pos)
		db := geom.Distance(b.Transform().Position, pos)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	ids := make([]uint64, 0, n)
	for _, c := range list[:min(n, len(list))] {
		ids = append(ids, c.ID())
	}
	return ids
}

// RunOptions controls a headless scenario run.
type RunOptions struct {
	Duration   float64 // simulated seconds
	TraceEvery int     // write every Nth step to trace.csv (0 = off)
	Seed       int64   // field placement seed
	LogStats   bool    // log window stats via slog

	Output *telemetry.OutputManager
	Logger *slog.Logger
	Perf   *telemetry.PerfCollector
}

// Result is the outcome of a scenario run.
type Result struct {
	Scenario Scenario
	Steps    uint64
	SimTime  float64

	Events    map[string]int
	Trace     []telemetry.StepSample // every step
	Summary   telemetry.Summary      // over the configured stats window at the end
	Bookmarks []telemetry.Bookmark

	Target     float64 // expected final span of tether 0, 0 if none
	SettleTime float64
	Settled    bool
	Overshoot  float64

	Final *telemetry.Snapshot
}

// RunScenario builds a scene for sc and steps it headless for opts.Duration
// simulated seconds. A cancelled ctx stops the run early and returns the
// partial result with ctx's error.
func RunScenario(ctx context.Context, cfg *config.Config, sc Scenario, opts RunOptions) (*Result, error) {
	res := &Result{
		Scenario: sc,
		Target:   sc.Target(cfg),
	}
	out := opts.Output
	rec := NewRecorder(cfg, RecorderOptions{
		TraceEvery: opts.TraceEvery,
		KeepTrace:  true,
		LogStats:   opts.LogStats,
		Output:     out,
		Perf:       opts.Perf,
	})

	s := New(cfg, Options{
		Logger:  opts.Logger,
		Perf:    opts.Perf,
		OnEvent: rec.OnEvent,
		OnStep:  rec.OnStep,
	})

	rng := rand.New(rand.NewSource(opts.Seed))
	if err := sc.Setup(s, rng); err != nil {
		return nil, err
	}
	cfgErr := out.WriteConfig(cfg)

	n := int(math.Round(opts.Duration / cfg.Physics.FixedDT))
	var runErr error
	for i := 0; i < n; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
		}
		s.Step()
	}

	res.Steps = s.Steps()
	res.SimTime = s.SimTime()
	res.Events = rec.Events
	res.Trace = rec.Trace
	res.Bookmarks = rec.Bookmarks
	res.Summary = telemetry.Summarize(telemetry.Tail(res.Trace, cfg.Telemetry.StatsWindow))
	if res.Target > 0 {
		res.SettleTime, res.Settled = telemetry.SettleTime(res.Trace, res.Target, cfg.Telemetry.SettleTolerance)
		res.Overshoot = telemetry.Overshoot(res.Trace, res.Target)
	}
	res.Final = s.Snapshot()
	_, snapErr := out.WriteSnapshot(res.Final)

	if runErr != nil {
		return res, runErr
	}
	if err := errors.Join(cfgErr, rec.Err(), snapErr); err != nil {
		return res, fmt.Errorf("writing output: %w", err)
	}
	return res, nil
}
