package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StepSample is one traced fixed step as written to trace.csv.
// Span is the distance from the emission point to the anchor; it is 0 while
// the tether is not attached.
type StepSample struct {
	Step     uint64  `csv:"step"`
	SimTime  float64 `csv:"sim_time"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
	VX       float64 `csv:"vx"`
	VY       float64 `csv:"vy"`
	VZ       float64 `csv:"vz"`
	Speed    float64 `csv:"speed"`
	Contacts int     `csv:"contacts"`

	Tether0State   string  `csv:"t0_state"`
	Tether0Rest    float64 `csv:"t0_rest"`
	Tether0Span    float64 `csv:"t0_span"`
	Tether0Tension float64 `csv:"t0_tension"`

	Tether1State   string  `csv:"t1_state"`
	Tether1Rest    float64 `csv:"t1_rest"`
	Tether1Span    float64 `csv:"t1_span"`
	Tether1Tension float64 `csv:"t1_tension"`
}

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartStep uint64  `csv:"-"`
	WindowEndStep   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Tether events during window
	Fired    int     `csv:"fired"`
	Attached int     `csv:"attached"`
	Missed   int     `csv:"missed"`
	Released int     `csv:"released"`
	Lost     int     `csv:"lost"`
	HitRate  float64 `csv:"hit_rate"`

	// Collision
	Contacts int `csv:"contacts"`

	// Motion and load
	SpeedMean   float64 `csv:"speed_mean"`
	SpeedMax    float64 `csv:"speed_max"`
	TensionP50  float64 `csv:"tension_p50"`
	TensionP90  float64 `csv:"tension_p90"`
	TensionMax  float64 `csv:"tension_max"`
	PullingFrac float64 `csv:"pulling_frac"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// meanStd returns the mean and sample standard deviation, with std 0 for fewer
// than two values.
func meanStd(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// Distribution calculates mean, std and percentiles of values.
func Distribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	mean, std = meanStd(values)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, std, p10, p50, p90
}

// Summary describes a run of trace samples, usually the tail of a run.
type Summary struct {
	Samples  int
	From     float64
	To       float64
	Contacts int

	SpeedMean float64
	SpeedStd  float64
	SpeedMax  float64

	// tether 0 span while attached
	SpanMean float64
	SpanStd  float64
	SpanP10  float64
	SpanP50  float64
	SpanP90  float64

	TensionMean float64
	TensionP90  float64
}

// Summarize computes a Summary over samples.
func Summarize(samples []StepSample) Summary {
	s := Summary{Samples: len(samples)}
	if len(samples) == 0 {
		return s
	}
	s.From = samples[0].SimTime
	s.To = samples[len(samples)-1].SimTime

	speeds := make([]float64, 0, len(samples))
	spans := make([]float64, 0, len(samples))
	tensions := make([]float64, 0, len(samples))
	for _, sm := range samples {
		speeds = append(speeds, sm.Speed)
		s.SpeedMax = math.Max(s.SpeedMax, sm.Speed)
		s.Contacts += sm.Contacts
		if sm.Tether0Span > 0 {
			spans = append(spans, sm.Tether0Span)
			tensions = append(tensions, sm.Tether0Tension)
		}
	}
	s.SpeedMean, s.SpeedStd = meanStd(speeds)
	s.SpanMean, s.SpanStd, s.SpanP10, s.SpanP50, s.SpanP90 = Distribution(spans)
	s.TensionMean, _, _, _, s.TensionP90 = Distribution(tensions)
	return s
}

// Settled reports whether the craft held still on a steady tether over the
// summarised samples.
func (s Summary) Settled(tol float64) bool {
	return s.Samples > 0 && s.SpeedMax <= tol && s.SpanStd <= tol
}

// Tail returns the samples covering the last seconds of the trace.
func Tail(samples []StepSample, seconds float64) []StepSample {
	if len(samples) == 0 {
		return nil
	}
	cutoff := samples[len(samples)-1].SimTime - seconds
	i := sort.Search(len(samples), func(i int) bool { return samples[i].SimTime >= cutoff })
	return samples[i:]
}

// SettleTime returns the sim time after which tether 0's span stays within tol
// of target for the rest of the trace. ok is false if the final sample is
// still outside the band or the tether never attached.
func SettleTime(samples []StepSample, target, tol float64) (t float64, ok bool) {
	settled := -1
	for i := len(samples) - 1; i >= 0; i-- {
		span := samples[i].Tether0Span
		if span <= 0 || math.Abs(span-target) > tol {
			break
		}
		settled = i
	}
	if settled < 0 {
		return 0, false
	}
	return samples[settled].SimTime, true
}

// Overshoot returns how far tether 0's span dipped below target while attached.
func Overshoot(samples []StepSample, target float64) float64 {
	var worst float64
	for _, sm := range samples {
		if sm.Tether0Span > 0 {
			worst = math.Max(worst, target-sm.Tether0Span)
		}
	}
	return worst
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("samples", s.Samples),
		slog.Float64("from", s.From),
		slog.Float64("to", s.To),
		slog.Int("contacts", s.Contacts),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("span_mean", s.SpanMean),
		slog.Float64("span_std", s.SpanStd),
		slog.Float64("span_p50", s.SpanP50),
		slog.Float64("tension_mean", s.TensionMean),
		slog.Float64("tension_p90", s.TensionP90),
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartStep),
		slog.Uint64("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("fired", s.Fired),
		slog.Int("attached", s.Attached),
		slog.Int("missed", s.Missed),
		slog.Int("released", s.Released),
		slog.Int("lost", s.Lost),
		slog.Float64("hit_rate", s.HitRate),
		slog.Int("contacts", s.Contacts),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("tension_p50", s.TensionP50),
		slog.Float64("tension_p90", s.TensionP90),
		slog.Float64("tension_max", s.TensionMax),
		slog.Float64("pulling_frac", s.PullingFrac),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndStep,
		"sim_time", s.SimTimeSec,
		"fired", s.Fired,
		"attached", s.Attached,
		"missed", s.Missed,
		"released", s.Released,
		"lost", s.Lost,
		"hit_rate", s.HitRate,
		"contacts", s.Contacts,
		"speed_mean", s.SpeedMean,
		"speed_max", s.SpeedMax,
		"tension_p50", s.TensionP50,
		"tension_p90", s.TensionP90,
		"tension_max", s.TensionMax,
	)
}
