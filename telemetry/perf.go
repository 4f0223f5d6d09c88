package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/grapple/physics"
)

// Phase names for the fixed step, in scheduler order.
const (
	PhaseSpin      = "spin"
	PhaseThruster  = "thruster"
	PhaseTethers   = "tethers"
	PhaseCollision = "collision"
	PhaseIntegrate = physics.PhaseIntegrate
)

// Phases lists the phase names in scheduler order.
var Phases = []string{
	PhaseSpin, PhaseThruster, PhaseTethers, PhaseCollision, PhaseIntegrate,
}

// stepTiming is the wall-clock cost of one fixed step.
type stepTiming struct {
	total  time.Duration
	phases map[string]time.Duration
}

// PerfCollector keeps a ring of recent step timings. It implements
// physics.PhaseTimer so a scheduler can drive it directly.
type PerfCollector struct {
	ring  []stepTiming
	next  int
	count int

	cur        stepTiming
	stepStart  time.Time
	phase      string
	phaseStart time.Time

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over the last window steps.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 120
	}
	return &PerfCollector{ring: make([]stepTiming, window)}
}

// StartTick implements physics.PhaseTimer.
func (p *PerfCollector) StartTick() {
	p.stepStart = time.Now()
	p.cur = stepTiming{phases: make(map[string]time.Duration, len(Phases))}
	p.phase = ""
}

// StartPhase implements physics.PhaseTimer. It closes the running phase.
func (p *PerfCollector) StartPhase(name string) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseStart = name, now
}

// EndTick implements physics.PhaseTimer and stores the finished step.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.stepStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
	p.phase = ""
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase != "" && p.cur.phases != nil {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// RecordFrame marks a rendered frame.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarises the collector window.
type PerfStats struct {
	Steps int // samples in the window

	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	P95TickDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // share of the average step

	TicksPerSecond float64 // steps the host could run per wall second

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		Steps:         p.count,
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frame,
	}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.count == 0 {
		return s
	}

	totals := make([]float64, p.count)
	phaseSum := make(map[string]time.Duration)
	for i, st := range p.ring[:p.count] {
		totals[i] = float64(st.total)
		for name, d := range st.phases {
			phaseSum[name] += d
		}
	}
	slices.Sort(totals)

	s.AvgTickDuration = time.Duration(stat.Mean(totals, nil))
	s.MinTickDuration = time.Duration(totals[0])
	s.MaxTickDuration = time.Duration(totals[len(totals)-1])
	s.P95TickDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, totals, nil))

	n := time.Duration(p.count)
	for name, sum := range phaseSum {
		avg := sum / n
		s.PhaseAvg[name] = avg
		if s.AvgTickDuration > 0 {
			s.PhasePct[name] = 100 * float64(avg) / float64(s.AvgTickDuration)
		}
	}
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}
	return s
}

// LogStats logs the window through the default logger.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("steps", s.Steps),
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, name := range Phases {
		if pct := s.PhasePct[name]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(name+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd    uint64  `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	P95TickUS    int64   `csv:"p95_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	FPS          float64 `csv:"fps"`
	SpinPct      float64 `csv:"spin_pct"`
	ThrusterPct  float64 `csv:"thruster_pct"`
	TethersPct   float64 `csv:"tethers_pct"`
	CollisionPct float64 `csv:"collision_pct"`
	IntegratePct float64 `csv:"integrate_pct"`
}

// ToCSV flattens the stats for perf.csv.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		P95TickUS:    s.P95TickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		FPS:          s.FPS,
		SpinPct:      s.PhasePct[PhaseSpin],
		ThrusterPct:  s.PhasePct[PhaseThruster],
		TethersPct:   s.PhasePct[PhaseTethers],
		CollisionPct: s.PhasePct[PhaseCollision],
		IntegratePct: s.PhasePct[PhaseIntegrate],
	}
}
