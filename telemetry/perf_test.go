package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/physics"
)

func timedStep(pc *PerfCollector, phases map[string]time.Duration, order ...string) {
	pc.StartTick()
	for _, name := range order {
		pc.StartPhase(name)
		time.Sleep(phases[name])
	}
	pc.EndTick()
}

func TestPerfCollectorPhases(t *testing.T) {
	pc := NewPerfCollector(10)
	costs := map[string]time.Duration{
		PhaseTethers:   50 * time.Microsecond,
		PhaseCollision: 400 * time.Microsecond,
	}
	for range 5 {
		timedStep(pc, costs, PhaseTethers, PhaseCollision)
	}

	stats := pc.Stats()
	assert.Equal(t, 5, stats.Steps)
	assert.Positive(t, stats.AvgTickDuration)
	assert.Positive(t, stats.TicksPerSecond)
	require.Contains(t, stats.PhaseAvg, PhaseTethers)
	require.Contains(t, stats.PhaseAvg, PhaseCollision)
	assert.Greater(t, stats.PhasePct[PhaseCollision], stats.PhasePct[PhaseTethers])
	assert.LessOrEqual(t, stats.PhasePct[PhaseTethers]+stats.PhasePct[PhaseCollision], 100.0+1e-9)
}

func TestPerfCollectorWindowIsBounded(t *testing.T) {
	pc := NewPerfCollector(4)
	for range 10 {
		timedStep(pc, nil, PhaseIntegrate)
	}
	stats := pc.Stats()
	assert.Equal(t, 4, stats.Steps)
	assert.LessOrEqual(t, stats.MinTickDuration, stats.P95TickDuration)
	assert.LessOrEqual(t, stats.P95TickDuration, stats.MaxTickDuration)
}

func TestPerfCollectorEmpty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()
	assert.Zero(t, stats.Steps)
	assert.Zero(t, stats.AvgTickDuration)
	assert.NotNil(t, stats.PhaseAvg)
	assert.NotNil(t, stats.PhasePct)
}

func TestPerfCollectorFrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)
	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	assert.GreaterOrEqual(t, stats.FrameDuration, 15*time.Millisecond)
	assert.Positive(t, stats.FPS)
	// sleep never returns early
	assert.LessOrEqual(t, stats.FPS, 63.0)
}

func TestPerfCollectorDrivesScheduler(t *testing.T) {
	pc := NewPerfCollector(10)
	body := physics.NewKinematicBody(physics.BodyParams{Mass: 1, MaxSpeed: 10, Radius: 1}, r3.Vec{})
	sched := physics.NewScheduler(physics.DefaultSchedulerParams(), body)
	sched.Register(PhaseTethers, physics.ContributorFunc(func(float64) {}))
	sched.SetPhaseTimer(pc)

	sched.StepOnce()
	sched.StepOnce()

	stats := pc.Stats()
	assert.Equal(t, 2, stats.Steps)
	assert.Contains(t, stats.PhaseAvg, PhaseTethers)
	assert.Contains(t, stats.PhaseAvg, PhaseIntegrate)
}

func TestPerfStatsCSVColumns(t *testing.T) {
	row := PerfStats{
		AvgTickDuration: 120 * time.Microsecond,
		P95TickDuration: 300 * time.Microsecond,
		PhasePct:        map[string]float64{PhaseCollision: 40, PhaseIntegrate: 10},
	}.ToCSV(240)

	assert.Equal(t, uint64(240), row.WindowEnd)
	assert.Equal(t, int64(120), row.AvgTickUS)
	assert.Equal(t, int64(300), row.P95TickUS)
	assert.Equal(t, 40.0, row.CollisionPct)
	assert.Equal(t, 10.0, row.IntegratePct)
	assert.Zero(t, row.SpinPct)
}
