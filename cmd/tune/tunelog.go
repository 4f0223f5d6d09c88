package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/grapple/config"
)

// evalRow is one line of tune_log.csv: an evaluation and the tether
// parameters it ran with.
type evalRow struct {
	Eval             int     `csv:"eval"`
	Fitness          float64 `csv:"fitness"`
	Settled          int     `csv:"settled"`
	Stiffness        float64 `csv:"stiffness"`
	DampingRatio     float64 `csv:"damping_ratio"`
	PerpDampingRatio float64 `csv:"perp_damping_ratio"`
	ReelRate         float64 `csv:"reel_rate"`
}

// tuneLog appends evaluations to a CSV stream, flushing every row so a killed
// run keeps its history.
type tuneLog struct {
	w      io.Writer
	closer io.Closer
	header bool
}

func createTuneLog(path string) (*tuneLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating tune log: %w", err)
	}
	return &tuneLog{w: f, closer: f}, nil
}

// Append writes one row. The tether fields come from cfg.
func (l *tuneLog) Append(eval int, fitness float64, settled int, cfg *config.Config) error {
	rows := []evalRow{{
		Eval:             eval,
		Fitness:          fitness,
		Settled:          settled,
		Stiffness:        cfg.Tether.Stiffness,
		DampingRatio:     cfg.Tether.DampingRatio,
		PerpDampingRatio: cfg.Tether.PerpDampingRatio,
		ReelRate:         cfg.Tether.ReelRate,
	}}
	if !l.header {
		if err := gocsv.Marshal(rows, l.w); err != nil {
			return err
		}
		l.header = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(rows, l.w)
}

func (l *tuneLog) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// progress tracks the best evaluation so far and reports each one.
type progress struct {
	total   int
	trials  int
	started time.Time
	evals   int
	bestFit float64
	best    []float64
	logger  *slog.Logger
	nowFunc func() time.Time
}

func newProgress(total, trials int) *progress {
	return &progress{
		total:   total,
		trials:  trials,
		started: time.Now(),
		logger:  slog.Default(),
		nowFunc: time.Now,
	}
}

func (p *progress) record(fitness float64, values []float64, settled int) {
	p.evals++
	if p.best == nil || fitness < p.bestFit {
		p.bestFit = fitness
		p.best = append([]float64(nil), values...)
	}
	elapsed := p.nowFunc().Sub(p.started)
	left := time.Duration(max(p.total-p.evals, 0)) * (elapsed / time.Duration(p.evals))
	p.logger.Info("eval",
		"n", fmt.Sprintf("%d/%d", p.evals, p.total),
		"fitness", fitness,
		"settled", fmt.Sprintf("%d/%d", settled, p.trials),
		"best", p.bestFit,
		"elapsed", clock(elapsed),
		"eta", clock(left),
	)
}

func (p *progress) summary(pv *ParamVector, best []float64) {
	attrs := []any{"evals", p.evals, "took", clock(p.nowFunc().Sub(p.started)), "fitness", p.bestFit}
	for i, spec := range pv.Specs {
		attrs = append(attrs, spec.Path, best[i])
	}
	p.logger.Info("tuning complete", attrs...)
}

// clock renders d rounded to the second, e.g. 1h02m03s or 4m05s.
func clock(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%dh%02dm%02ds", secs/3600, secs/60%60, secs%60)
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
