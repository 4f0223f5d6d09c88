package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/grapple/config"
)

type options struct {
	configPath string
	duration   float64
	throttles  []float64
	maxEvals   int
	population int
	outputDir  string
}

// parseThrottles parses a comma-separated list of throttles in [0,1].
func parseThrottles(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("throttle %q: %w", field, err)
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("throttle %v out of [0,1]", v)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no throttles given")
	}
	return out, nil
}

func main() {
	var opts options
	throttleList := flag.String("throttles", "0.5,1", "Comma-separated counter-thrust throttles, one trial each")
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.Float64Var(&opts.duration, "duration", 60, "Simulated seconds per trial")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.Parse()

	var err error
	if opts.throttles, err = parseThrottles(*throttleList); err != nil {
		slog.Error("invalid --throttles", "error", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		slog.Error("tune failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.outputDir == "" {
		return errors.New("--output is required")
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(opts.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	base := config.Cfg()

	pv := NewParamVector()
	evaluator := NewFitnessEvaluator(pv, opts.duration, opts.throttles, base)

	evals, err := createTuneLog(filepath.Join(opts.outputDir, "tune_log.csv"))
	if err != nil {
		return err
	}
	defer evals.Close()

	pop := opts.population
	if pop == 0 {
		pop = 4 + 3*pv.Dim()/2
	}
	prog := newProgress(opts.maxEvals, len(opts.throttles))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			// trials run on the clamped values, so those are what gets logged
			values := pv.Clamp(pv.Denormalize(x))
			fitness := evaluator.Evaluate(values)
			settled := evaluator.LastSettled()

			cfg := evaluator.copyConfig()
			pv.ApplyToConfig(cfg, values)
			if err := evals.Append(prog.evals+1, fitness, settled, cfg); err != nil {
				slog.Warn("tune log write failed", "error", err)
			}
			prog.record(fitness, values, settled)
			return fitness
		},
	}

	slog.Info("tuning",
		"params", pv.Dim(),
		"population", pop,
		"max_evals", opts.maxEvals,
		"throttles", opts.throttles,
		"trial_seconds", opts.duration,
	)
	settings := &optimize.Settings{
		FuncEvaluations: opts.maxEvals,
		Concurrent:      0, // trials already run in parallel
	}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: pop}
	result, err := optimize.Minimize(problem, pv.Normalize(pv.FromConfig(base)), settings, method)
	if err != nil {
		slog.Warn("optimizer stopped", "error", err)
	}

	best := prog.best
	if best == nil && result != nil {
		best = pv.Clamp(pv.Denormalize(result.X))
	}
	if best == nil {
		return errors.New("no evaluations completed")
	}
	prog.summary(pv, best)

	out, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	pv.ApplyToConfig(out, best)
	path := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := out.WriteYAML(path); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	slog.Info("best config saved", "path", path)
	return nil
}
