package game

import (
	"log/slog"

	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/scene"
)

// Options configures a windowed session.
type Options struct {
	Config     *config.Config // nil uses config.Cfg()
	Seed       int64
	Scenario   scene.Scenario // opening setup; empty starts an empty world
	LogStats   bool
	OutputDir  string // CSV logs and snapshots; empty disables output
	TraceEvery int
	Logger     *slog.Logger
}
