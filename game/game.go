// Package game is the interactive raylib shell around a scene.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/camera"
	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/scene"
	"github.com/pthm-cable/grapple/telemetry"
	"github.com/pthm-cable/grapple/tether"
	"github.com/pthm-cable/grapple/ui"
)

const feedSize = 6

// Game holds the complete interactive session.
type Game struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	scene  *scene.Scene
	rec    *scene.Recorder
	output *telemetry.OutputManager
	perf   *telemetry.PerfCollector
	camera *camera.Camera

	// UI
	overlays   *ui.OverlayRegistry
	hud        *ui.HUD
	perfPanel  *ui.PerfPanel
	controls   *ui.ControlsPanel
	statsPanel *ui.WindowStatsPanel
	inspector  *ui.Inspector
	tuning     *ui.TuningPanel
	tuned      ui.TuningValues

	// Input state
	thrustDir r3.Vec
	reeling   bool
	selected  uint64 // 0 = none

	feed []string

	screenWidth, screenHeight float32
}

// NewGameWithOptions builds a session. The raylib window must already be open.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	w, h := float32(cfg.Screen.Width), float32(cfg.Screen.Height)
	g := &Game{
		cfg:          cfg,
		opts:         opts,
		logger:       logger,
		output:       output,
		perf:         telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		camera:       camera.New(float64(w), float64(h)),
		overlays:     ui.NewOverlayRegistry(),
		hud:          ui.NewHUD(),
		perfPanel:    ui.NewPerfPanel(int32(w)-260, 10),
		controls:     ui.NewControlsPanel(10, 100, 220),
		statsPanel:   ui.NewWindowStatsPanel(int32(w)-260, 150, 250),
		inspector:    ui.NewInspector(10, 100, 220),
		tuning:       ui.NewTuningPanel(int32(w)/2-160, 60, 320),
		tuned:        ui.TuningValues{Tether: cfg.Tether, Collision: cfg.Collision},
		screenWidth:  w,
		screenHeight: h,
	}

	g.rec = scene.NewRecorder(cfg, scene.RecorderOptions{
		TraceEvery: opts.TraceEvery,
		LogStats:   opts.LogStats,
		Output:     output,
		Perf:       g.perf,
	})
	g.scene = scene.New(cfg, scene.Options{
		Logger:  logger,
		Perf:    g.perf,
		OnEvent: g.onEvent,
		OnStep:  g.rec.OnStep,
	})

	if opts.Scenario != "" {
		rng := rand.New(rand.NewSource(opts.Seed))
		if err := opts.Scenario.Setup(g.scene, rng); err != nil {
			output.Close()
			return nil, err
		}
	}
	if err := output.WriteConfig(cfg); err != nil {
		logger.Error("failed to write config", "error", err)
	}

	g.camera.Target = g.scene.Body().Position()
	return g, nil
}

// Scene returns the simulated scene.
func (g *Game) Scene() *scene.Scene { return g.scene }

// Steps returns the number of fixed steps run.
func (g *Game) Steps() uint64 { return g.scene.Steps() }

// Update handles input and advances the simulation by the frame time.
func (g *Game) Update() {
	g.handleInput()

	dt := rl.GetFrameTime()
	g.scene.Update(float64(dt))
	g.perf.RecordFrame()

	g.camera.Follow(g.scene.Body().Position(), 6, float64(dt))
}

// Unload flushes and closes output files.
func (g *Game) Unload() {
	if err := g.rec.Err(); err != nil {
		g.logger.Error("telemetry output failed", "error", err)
	}
	if err := g.output.Close(); err != nil {
		g.logger.Error("failed to close output", "error", err)
	}
}

// onEvent forwards a tether event to the recorder and the on-screen feed.
func (g *Game) onEvent(step uint64, simTime float64, e tether.Event) {
	g.rec.OnEvent(step, simTime, e)

	line := fmt.Sprintf("%6.2fs  tether %d %s", simTime, e.Tether, e.Kind)
	if e.Kind == tether.EventAttached {
		line += fmt.Sprintf(" #%d at %.0f", e.Entity, e.Distance)
	}
	g.feed = append(g.feed, line)
	if len(g.feed) > feedSize {
		g.feed = g.feed[len(g.feed)-feedSize:]
	}
}

// applyTuning pushes edited parameters into the scene, reverting on error.
func (g *Game) applyTuning() {
	if err := g.scene.SetTetherParams(g.tuned.Tether); err != nil {
		g.logger.Warn("rejected tether params", "error", err)
		g.tuned.Tether = g.cfg.Tether
	}
	if err := g.scene.SetResolverParams(g.tuned.Collision); err != nil {
		g.logger.Warn("rejected collision params", "error", err)
		g.tuned.Collision = g.cfg.Collision
	}
}

// resetTuning restores default tether and collision parameters.
func (g *Game) resetTuning() {
	d := config.Defaults()
	g.tuned = ui.TuningValues{Tether: d.Tether, Collision: d.Collision}
	g.applyTuning()
}
