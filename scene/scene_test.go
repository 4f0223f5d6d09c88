package scene

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/telemetry"
	"github.com/pthm-cable/grapple/tether"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type eventLog struct {
	events []tether.Event
	steps  []uint64
}

func (l *eventLog) record(step uint64, _ float64, e tether.Event) {
	l.events = append(l.events, e)
	l.steps = append(l.steps, step)
}

func (l *eventLog) kinds() []tether.EventKind {
	out := make([]tether.EventKind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}

func newTestScene(t *testing.T, log *eventLog) *Scene {
	t.Helper()
	opts := Options{Logger: quietLogger()}
	if log != nil {
		opts.OnEvent = log.record
	}
	return New(config.Defaults(), opts)
}

func stepUntil(t *testing.T, s *Scene, max int, done func() bool) {
	t.Helper()
	for i := 0; i < max; i++ {
		if done() {
			return
		}
		s.Step()
	}
	require.True(t, done(), "condition not reached in %d steps", max)
}

func TestSceneContributorOrder(t *testing.T) {
	s := newTestScene(t, nil)
	assert.Equal(t, []string{
		telemetry.PhaseSpin,
		telemetry.PhaseThruster,
		telemetry.PhaseTethers,
		telemetry.PhaseCollision,
		telemetry.PhaseIntegrate,
	}, s.Scheduler().Contributors())
}

func TestSceneUpdateAndPause(t *testing.T) {
	s := newTestScene(t, nil)

	assert.Equal(t, 2, s.Update(1.0/60))
	assert.Equal(t, uint64(2), s.Steps())

	s.SetPaused(true)
	assert.True(t, s.Paused())
	assert.Equal(t, 0, s.Update(0.1))
	assert.False(t, s.Step())

	s.SetPaused(false)
	assert.Equal(t, 1, s.Update(1.0/120))
	assert.Equal(t, uint64(3), s.Steps())
}

func TestSceneFireAttachesToWall(t *testing.T) {
	log := &eventLog{}
	s := newTestScene(t, log)
	wall := s.AddWall()

	s.Fire(0, r3.Vec{Z: 1})
	assert.Empty(t, log.events, "intents wait for the next step")

	tt := s.Tethers().Tether(0)
	stepUntil(t, s, 200, func() bool { return tt.State() == tether.Attached })

	require.Equal(t, []tether.EventKind{tether.EventFired, tether.EventAttached}, log.kinds())
	assert.Equal(t, uint64(1), log.steps[0], "fired in the first step")
	id, ok := tt.AttachedID()
	require.True(t, ok)
	assert.Equal(t, wall, id)
	assert.InDelta(t, 500, tt.AnchorWorld().Z, 1e-9)
	assert.InDelta(t, -1.5, tt.AnchorWorld().X, 1e-9, "fired from the left mount")
	assert.InDelta(t, 500, s.Span(0), 1e-6)
	assert.Zero(t, s.Span(1))
}

func TestSceneLostWhenAnchorRemoved(t *testing.T) {
	log := &eventLog{}
	s := newTestScene(t, log)
	wall := s.AddWall()
	s.Fire(1, r3.Vec{Z: 1})
	tt := s.Tethers().Tether(1)
	stepUntil(t, s, 200, func() bool { return tt.State() == tether.Attached })

	require.True(t, s.World().Remove(wall))
	s.Step()

	assert.Equal(t, tether.EventLost, log.events[len(log.events)-1].Kind)
	assert.Equal(t, wall, log.events[len(log.events)-1].Entity)
	assert.NotEqual(t, tether.Attached, tt.State())
}

func TestSceneAnchorFollowsDriftingWall(t *testing.T) {
	s := newTestScene(t, nil)
	wall := s.AddWall()
	s.Fire(0, r3.Vec{Z: 1})
	tt := s.Tethers().Tether(0)
	stepUntil(t, s, 200, func() bool { return tt.State() == tether.Attached })

	start := tt.AnchorWorld()
	s.World().SetDrift(wall, r3.Vec{X: 12})
	for range 120 {
		s.Step()
	}
	moved := r3.Sub(tt.AnchorWorld(), start)
	assert.InDelta(t, 12, moved.X, 1e-6)
	assert.InDelta(t, 0, moved.Z, 1e-9)
}

func TestSceneTeleportKeepsSpringTension(t *testing.T) {
	jump := func(teleport bool) float64 {
		s := newTestScene(t, nil)
		wall := s.AddWall()
		s.Fire(0, r3.Vec{Z: 1})
		tt := s.Tethers().Tether(0)
		stepUntil(t, s, 200, func() bool { return tt.State() == tether.Attached })

		frame, ok := s.World().Transform(wall)
		require.True(t, ok)
		frame.Position = r3.Add(frame.Position, r3.Vec{Z: 2})
		if teleport {
			require.True(t, s.Teleport(wall, frame))
		} else {
			require.True(t, s.World().SetTransform(wall, frame))
		}
		s.Step()
		require.Equal(t, tether.Attached, tt.State())
		return tt.Tension()
	}

	// two units of stretch on a resting craft
	k := config.Defaults().Tether.Stiffness
	assert.InDelta(t, 2*k, jump(true), 1)
	assert.Greater(t, jump(false), 10*k)

	s := newTestScene(t, nil)
	assert.False(t, s.Teleport(999, geom.Identity()))
}

func TestSceneRejectsInvalidParams(t *testing.T) {
	s := newTestScene(t, nil)

	p := s.Config().Tether
	p.Stiffness = -1
	assert.Error(t, s.SetTetherParams(p))
	assert.Equal(t, 400.0, s.Tethers().Tether(0).Params().Stiffness)

	p.Stiffness = 900
	require.NoError(t, s.SetTetherParams(p))
	assert.Equal(t, 900.0, s.Tethers().Tether(1).Params().Stiffness)

	rp := s.Config().Collision
	rp.Restitution = 2
	assert.Error(t, s.SetResolverParams(rp))
	rp.Restitution = 0.5
	require.NoError(t, s.SetResolverParams(rp))
	assert.Equal(t, 0.5, s.Resolver().Params().Restitution)
}

func TestSceneSnapshot(t *testing.T) {
	s := newTestScene(t, nil)
	wall := s.AddWall()
	s.World().AddAsteroid(AsteroidParams{Radius: 10, Seed: 5}, geom.Translation(r3.Vec{X: 300}),
		components.Spin{Axis: r3.Vec{Y: 1}, Rate: 0.5})
	s.Fire(0, r3.Vec{Z: 1})
	tt := s.Tethers().Tether(0)
	stepUntil(t, s, 200, func() bool { return tt.State() == tether.Attached })

	snap := s.Snapshot()
	assert.Equal(t, telemetry.SnapshotVersion, snap.Version)
	assert.Equal(t, s.Steps(), snap.Step)
	require.Len(t, snap.Tethers, 2)
	assert.Equal(t, "attached", snap.Tethers[0].State)
	assert.Equal(t, wall, snap.Tethers[0].Entity)
	assert.Equal(t, tt.ShotID().String(), snap.Tethers[0].Shot)
	assert.Equal(t, "idle", snap.Tethers[1].State)
	assert.Empty(t, snap.Tethers[1].Shot)

	require.Len(t, snap.Bodies, 2)
	assert.Equal(t, "Wall", snap.Bodies[0].Kind)
	assert.Equal(t, "Asteroid", snap.Bodies[1].Kind)
	q := snap.Bodies[1].Rotation
	assert.InDelta(t, 1, q[0]*q[0]+q[1]*q[1]+q[2]*q[2]+q[3]*q[3], 1e-9)
}

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario(" Reel ")
	require.NoError(t, err)
	assert.Equal(t, ScenarioReel, sc)

	_, err = ParseScenario("orbit")
	assert.Error(t, err)
}

func TestScenarioReelSettlesAtSpringBalance(t *testing.T) {
	cfg := config.Defaults()
	cfg.Tether.ReelRate = 10 // slow enough for counter-thrust to stop the craft short of the wall

	res, err := RunScenario(context.Background(), cfg, ScenarioReel, RunOptions{
		Duration: 65,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	// spring balances thrust: k * (span - minRest) = F
	require.InDelta(t, 10, res.Target, 1e-9)
	assert.Equal(t, 1, res.Events["fired"])
	assert.Equal(t, 1, res.Events["attached"])
	assert.Zero(t, res.Events["lost"])

	final := res.Final
	assert.Equal(t, "attached", final.Tethers[0].State)
	assert.InDelta(t, 5, final.Tethers[0].RestLength, 1e-9)
	assert.InDelta(t, 10, final.Tethers[0].Span, 0.01)
	assert.InDelta(t, 2000, final.Tethers[0].Tension, 5)
	assert.InDelta(t, 490, final.Craft.Position[2], 0.01)
	assert.Less(t, final.Craft.Speed, 0.01)
	assert.Zero(t, final.Craft.Contacts)

	assert.True(t, res.Settled)
	assert.Greater(t, res.SettleTime, 40.0, "reeling 495 units at 10 u/s")
	assert.Less(t, res.Overshoot, 1.0)
	assert.True(t, res.Summary.Settled(cfg.Telemetry.SettleTolerance))
	assert.Equal(t, uint64(65*120), res.Steps)
}

func TestScenarioMiss(t *testing.T) {
	res, err := RunScenario(context.Background(), config.Defaults(), ScenarioMiss, RunOptions{
		Duration: 3,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Events["fired"])
	assert.Equal(t, 1, res.Events["missed"])
	assert.Equal(t, 1, res.Events["attached"])
	assert.Equal(t, "idle", res.Final.Tethers[0].State)
	assert.Equal(t, "attached", res.Final.Tethers[1].State)
	assert.Zero(t, res.Target)
	assert.False(t, res.Settled)
}

func TestScenarioFieldDeterministic(t *testing.T) {
	run := func() *Result {
		res, err := RunScenario(context.Background(), config.Defaults(), ScenarioField, RunOptions{
			Duration: 2,
			Seed:     7,
			Logger:   quietLogger(),
		})
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()

	assert.NotEmpty(t, a.Final.Bodies)
	assert.Equal(t, 2, a.Events["fired"])
	assert.Equal(t, 2, a.Events["attached"])
	assert.Equal(t, a.Final.Craft, b.Final.Craft)
	assert.Equal(t, a.Final.Bodies, b.Final.Bodies)
}

func TestRunScenarioHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := RunScenario(ctx, config.Defaults(), ScenarioReel, RunOptions{Duration: 10, Logger: quietLogger()})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Zero(t, res.Steps)
}

func TestRunScenarioWritesOutput(t *testing.T) {
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir)
	require.NoError(t, err)

	cfg := config.Defaults()
	res, err := RunScenario(context.Background(), cfg, ScenarioMiss, RunOptions{
		Duration:   4,
		TraceEvery: 12,
		Output:     out,
		Perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, out.Close())

	assert.Len(t, res.Trace, 480)
	assert.NotEmpty(t, res.Bookmarks, "first attach is bookmarked")
	loaded, err := telemetry.LoadSnapshot(dir + "/snapshot_480.json")
	require.NoError(t, err)
	assert.Equal(t, res.Final.Craft, loaded.Craft)
}
