package scene

import (
	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/telemetry"
	"github.com/pthm-cable/grapple/tether"
)

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	TraceEvery int  // write every Nth step to trace.csv (0 = off)
	KeepTrace  bool // retain every step sample in memory
	LogStats   bool // log window stats via slog

	Output *telemetry.OutputManager
	Perf   *telemetry.PerfCollector
}

// Recorder turns scene hooks into windowed stats, bookmarks and CSV output.
// Wire OnEvent and OnStep into Options.
type Recorder struct {
	opts      RecorderOptions
	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector

	Events    map[string]int
	Trace     []telemetry.StepSample
	Bookmarks []telemetry.Bookmark

	last    telemetry.WindowStats
	hasLast bool
	err     error
}

// NewRecorder creates a recorder using cfg's telemetry windows.
func NewRecorder(cfg *config.Config, opts RecorderOptions) *Recorder {
	return &Recorder{
		opts:      opts,
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.FixedDT),
		bookmarks: telemetry.NewBookmarkDetector(10, cfg.Telemetry.SettleTolerance),
		Events:    make(map[string]int),
	}
}

// Err returns the first output error, if any.
func (r *Recorder) Err() error { return r.err }

// LastWindow returns the most recently flushed stats window.
func (r *Recorder) LastWindow() (telemetry.WindowStats, bool) { return r.last, r.hasLast }

func (r *Recorder) keep(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}

// OnEvent counts and writes a tether event.
func (r *Recorder) OnEvent(step uint64, simTime float64, e tether.Event) {
	r.Events[e.Kind.String()]++
	r.collector.RecordEvent(e.Kind)
	r.keep(r.opts.Output.WriteEvent(telemetry.NewEventRecord(step, simTime, e)))
}

// OnStep samples s and flushes a stats window when one completes.
func (r *Recorder) OnStep(s *Scene) {
	sample := s.Sample()
	if r.opts.KeepTrace {
		r.Trace = append(r.Trace, sample)
	}
	tension, pulling := s.MaxTension()
	r.collector.RecordStep(sample.Speed, tension, sample.Contacts, pulling)

	if r.opts.TraceEvery > 0 && sample.Step%uint64(r.opts.TraceEvery) == 0 {
		r.keep(r.opts.Output.WriteTrace(sample))
	}
	if r.collector.ShouldFlush(sample.Step) {
		r.flush(s, sample.Step)
	}
}

func (r *Recorder) flush(s *Scene, step uint64) {
	stats := r.collector.Flush(step)
	r.last, r.hasLast = stats, true
	r.keep(r.opts.Output.WriteTelemetry(stats))

	if r.opts.Perf != nil {
		perf := r.opts.Perf.Stats()
		r.keep(r.opts.Output.WritePerf(perf, step))
		if r.opts.LogStats {
			perf.LogStats()
		}
	}
	if r.opts.LogStats {
		stats.LogStats()
	}

	for _, b := range r.bookmarks.Check(stats) {
		b.LogBookmark()
		r.Bookmarks = append(r.Bookmarks, b)
		r.keep(r.opts.Output.WriteBookmark(b))
		if b.Type == telemetry.BookmarkTensionSpike || b.Type == telemetry.BookmarkImpact {
			snap := s.Snapshot()
			snap.Bookmark = &b
			_, err := r.opts.Output.WriteSnapshot(snap)
			r.keep(err)
		}
	}
}
