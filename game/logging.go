package game

import (
	"fmt"
	"io"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/telemetry"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// logState dumps a human-readable summary of the session.
func (g *Game) logState() {
	body := g.scene.Body()
	pos, vel := body.Position(), body.Velocity()
	Logf("=== Step %d (%.2fs) | FPS: %d ===", g.scene.Steps(), g.scene.SimTime(), rl.GetFPS())
	Logf("Craft pos (%.2f, %.2f, %.2f) vel (%.2f, %.2f, %.2f) speed %.2f",
		pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z, body.Speed())
	Logf("Bodies: %d | Contacts: %d", g.scene.World().Len(), g.scene.Resolver().Contacts())

	for _, t := range g.tetherInfo() {
		Logf("  tether %d %-9s rest %8.2f span %8.2f tension %8.1f reel %v",
			t.Index, t.State, t.Rest, t.Span, t.Tension, t.Pulling)
	}

	g.logPerfStats(g.perf.Stats())
	Logf("")
}

// logPerfStats logs step phase timing.
func (g *Game) logPerfStats(stats telemetry.PerfStats) {
	Logf("Step time: %s avg, %s max", stats.AvgTickDuration.Round(time.Microsecond), stats.MaxTickDuration.Round(time.Microsecond))
	for _, name := range telemetry.Phases {
		Logf("  %-12s %10s  %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), stats.PhasePct[name])
	}
}
