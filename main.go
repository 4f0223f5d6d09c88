package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/game"
	"github.com/pthm-cable/grapple/scene"
	"github.com/pthm-cable/grapple/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run a scenario without graphics")
	scenarioName := flag.String("scenario", string(scene.ScenarioField), "Scenario: reel, miss, field")
	duration := flag.Float64("duration", 30, "Simulated seconds to run headless")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, snapshots and config")
	seed := flag.Int64("seed", 0, "Field RNG seed (0 = config seed, -1 = time-based)")
	traceEvery := flag.Int("trace-every", -1, "Write every Nth step to trace.csv (-1 = use config, 0 = off)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		slog.Error("invalid log level", "level", *logLevel, "error", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	sc, err := scene.ParseScenario(*scenarioName)
	if err != nil {
		slog.Error("invalid scenario", "error", err)
		os.Exit(2)
	}

	rngSeed := cfg.Scene.Seed
	switch {
	case *seed == -1:
		rngSeed = time.Now().UnixNano()
	case *seed != 0:
		rngSeed = *seed
	}
	cfg.Scene.Seed = rngSeed

	trace := cfg.Telemetry.TraceEvery
	if *traceEvery >= 0 {
		trace = *traceEvery
	}

	if *headless {
		os.Exit(runHeadless(cfg, sc, *duration, rngSeed, trace, *logStats, *outputDir, logger))
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Grapple")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	rl.SetExitKey(0)

	g, err := game.NewGameWithOptions(game.Options{
		Config:     cfg,
		Seed:       rngSeed,
		Scenario:   sc,
		LogStats:   *logStats,
		OutputDir:  *outputDir,
		TraceEvery: trace,
		Logger:     logger,
	})
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()
	}
}

func runHeadless(cfg *config.Config, sc scene.Scenario, duration float64, seed int64, trace int, logStats bool, outputDir string, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		logger.Error("failed to create output", "error", err)
		return 1
	}
	defer out.Close()

	logger.Info("starting headless scenario",
		"scenario", sc,
		"seed", seed,
		"duration", duration,
		"output_dir", outputDir,
	)

	start := time.Now()
	res, err := scene.RunScenario(ctx, cfg, sc, scene.RunOptions{
		Duration:   duration,
		TraceEvery: trace,
		Seed:       seed,
		LogStats:   logStats,
		Output:     out,
		Logger:     logger,
		Perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
	})
	if res != nil {
		logger.Info("scenario finished",
			"scenario", res.Scenario,
			"steps", res.Steps,
			"sim_time", res.SimTime,
			"wall_time", time.Since(start).Round(time.Millisecond).String(),
			"events", res.Events,
			"summary", res.Summary,
			"target", res.Target,
			"settled", res.Settled,
			"settle_time", res.SettleTime,
			"overshoot", res.Overshoot,
		)
	}
	if err != nil {
		logger.Error("scenario failed", "error", err)
		return 1
	}
	return 0
}
