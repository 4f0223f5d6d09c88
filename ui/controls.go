package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/telemetry"
)

// ControlsPanel renders the overlay toggle panel.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the controls panel and returns the Y below it.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry) int32 {
	if !c.visible {
		return c.y
	}

	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := overlays.Categories()
	totalItems := len(overlays.All()) + len(categories)
	panelHeight := int32(totalItems)*lineHeight + padding*3 + lineHeight

	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	y := c.y + padding
	rl.DrawText("Overlays", c.x+padding, y, 16, rl.White)
	y += lineHeight + 4

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), c.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight

		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(c.x+padding, y, desc, overlays.IsEnabled(desc.ID), c.width-padding*2)
			y += lineHeight
		}
		y += 4
	}

	return c.y + panelHeight
}

// drawToggle draws a single overlay toggle line.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)

	nameColor := r.Theme.LabelColor
	if enabled {
		nameColor = rl.White
	}
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

func categoryLabel(cat string) string {
	switch cat {
	case "visual":
		return "Visual"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}

// windowSections describes the last telemetry window.
var windowSections = []SectionDescriptor{
	{
		Title: "Shots",
		Fields: []FieldDescriptor{
			{Label: "Fired", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).Fired) }},
			{Label: "Attached", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).Attached) }},
			{Label: "Missed", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).Missed) }},
			{Label: "Hit rate", Widget: WidgetBar, Range: DefaultRange(), Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).HitRate) }},
		},
	},
	{
		Title: "Motion",
		Fields: []FieldDescriptor{
			{Label: "Speed avg", Widget: WidgetText, Format: "%.1f", Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).SpeedMean) }},
			{Label: "Speed max", Widget: WidgetText, Format: "%.1f", Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).SpeedMax) }},
			{Label: "Tension p90", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).TensionP90) }},
			{Label: "Reeling", Widget: WidgetBar, Range: DefaultRange(), Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).PullingFrac) }},
			{Label: "Contacts", Widget: WidgetText, Format: "%.0f", Getter: func(d any) float32 { return float32(d.(telemetry.WindowStats).Contacts) }},
		},
	},
}

// WindowStatsPanel renders the most recent telemetry window.
type WindowStatsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewWindowStatsPanel creates a new window stats panel.
func NewWindowStatsPanel(x, y, width int32) *WindowStatsPanel {
	return &WindowStatsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (q *WindowStatsPanel) SetPosition(x, y int32) {
	q.x = x
	q.y = y
}

// Draw renders the panel.
func (q *WindowStatsPanel) Draw(stats telemetry.WindowStats) int32 {
	r := q.renderer
	padding := r.Theme.Padding

	height := r.Theme.LineHeight + 2 + padding*2
	for _, sd := range windowSections {
		height += r.SectionHeight(sd, stats)
	}
	r.DrawPanel(q.x, q.y, q.width, height)

	y := q.y + padding
	rl.DrawText(fmt.Sprintf("Window @ %.0fs", stats.SimTimeSec), q.x+padding, y, 14, rl.White)
	y += r.Theme.LineHeight + 2

	for _, sd := range windowSections {
		y = r.DrawSection(q.x+padding, y, sd, stats, q.width-padding*2)
	}
	return y
}
