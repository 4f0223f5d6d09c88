package game

import (
	"github.com/pthm-cable/grapple/telemetry"
)

// saveSnapshot writes the current state to the output directory, or the
// working directory when output is disabled.
func (g *Game) saveSnapshot() {
	snap := g.scene.Snapshot()

	var (
		path string
		err  error
	)
	if g.output != nil {
		path, err = g.output.WriteSnapshot(snap)
	} else {
		path, err = telemetry.SaveSnapshot(snap, ".")
	}
	if err != nil {
		g.logger.Error("failed to save snapshot", "error", err)
		return
	}
	g.logger.Info("snapshot saved", "path", path, "step", snap.Step)
}
