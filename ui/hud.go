package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title    string
	Steps    uint64
	SimTime  float64
	FPS      int32
	Paused   bool
	Speed    float64
	Throttle float64
	Braking  bool
	Contacts int
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Step: %d | Time: %.1fs | FPS: %d", data.Steps, data.SimTime, data.FPS),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Speed: %.1f | Throttle: %.0f%% | Contacts: %d", data.Speed, data.Throttle*100, data.Contacts),
		10, 55, 16, rl.LightGray,
	)

	status := "Running"
	color := rl.Green
	switch {
	case data.Paused:
		status, color = "PAUSED", rl.Yellow
	case data.Braking:
		status, color = "BRAKING", rl.Orange
	}
	rl.DrawText(status, 10, 75, 16, color)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// DrawCrosshair marks the screen centre.
func (h *HUD) DrawCrosshair(screenWidth, screenHeight int32) {
	cx, cy := screenWidth/2, screenHeight/2
	rl.DrawLine(cx-8, cy, cx-3, cy, rl.RayWhite)
	rl.DrawLine(cx+3, cy, cx+8, cy, rl.RayWhite)
	rl.DrawLine(cx, cy-8, cx, cy-3, rl.RayWhite)
	rl.DrawLine(cx, cy+3, cx, cy+8, rl.RayWhite)
}

// PerfPanel renders the per-phase step timing panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel in step phase order.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y

	rl.DrawText("Step Phases", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s | p95: %s | %.0f steps/s",
		stats.AvgTickDuration.Round(time.Microsecond), stats.P95TickDuration.Round(time.Microsecond),
		stats.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 16

	for _, name := range telemetry.Phases {
		pct := stats.PhasePct[name]
		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
