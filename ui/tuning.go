package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/grapple/physics"
	"github.com/pthm-cable/grapple/tether"
)

// slider binds a raygui slider to one float parameter.
type slider struct {
	label    string
	min, max float32
	format   string
	value    func(*TuningValues) *float64
}

// TuningValues are the live-editable parameters.
type TuningValues struct {
	Tether    tether.Params
	Collision physics.ResolverParams
}

var tuningSliders = []slider{
	{"Stiffness", 50, 3000, "%.0f", func(v *TuningValues) *float64 { return &v.Tether.Stiffness }},
	{"Damping", 0, 2, "%.2f", func(v *TuningValues) *float64 { return &v.Tether.DampingRatio }},
	{"Perp damping", 0, 2, "%.2f", func(v *TuningValues) *float64 { return &v.Tether.PerpDampingRatio }},
	{"Max force", 1000, 60000, "%.0f", func(v *TuningValues) *float64 { return &v.Tether.MaxForce }},
	{"Reel rate", 0, 200, "%.0f", func(v *TuningValues) *float64 { return &v.Tether.ReelRate }},
	{"Min rest", 0, 50, "%.1f", func(v *TuningValues) *float64 { return &v.Tether.MinRestLength }},
	{"Shot speed", 100, 5000, "%.0f", func(v *TuningValues) *float64 { return &v.Tether.ProjectileSpeed }},
	{"Restitution", 0, 1, "%.2f", func(v *TuningValues) *float64 { return &v.Collision.Restitution }},
	{"Friction", 0, 1, "%.2f", func(v *TuningValues) *float64 { return &v.Collision.Friction }},
}

// TuningPanel edits tether and collision parameters with raygui sliders.
type TuningPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewTuningPanel creates a hidden tuning panel.
func NewTuningPanel(x, y, width int32) *TuningPanel {
	return &TuningPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// Toggle switches panel visibility.
func (p *TuningPanel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// IsVisible returns whether the panel is shown.
func (p *TuningPanel) IsVisible() bool { return p.visible }

// Contains reports whether a screen point is over the visible panel.
func (p *TuningPanel) Contains(x, y float32) bool {
	if !p.visible {
		return false
	}
	return rl.CheckCollisionPointRec(rl.Vector2{X: x, Y: y}, p.bounds())
}

func (p *TuningPanel) height() int32 {
	return int32(len(tuningSliders))*42 + 3*22 + 90
}

func (p *TuningPanel) bounds() rl.Rectangle {
	return rl.Rectangle{X: float32(p.x), Y: float32(p.y), Width: float32(p.width), Height: float32(p.height())}
}

// Draw renders the panel and applies edits to v. It reports whether any
// value changed and whether reset was pressed.
func (p *TuningPanel) Draw(v *TuningValues) (changed, reset bool) {
	if !p.visible {
		return false, false
	}
	r := p.renderer
	pad := float32(r.Theme.Padding)
	r.DrawPanel(p.x, p.y, p.width, p.height())

	x := float32(p.x) + pad
	y := float32(p.y) + pad
	w := float32(p.width) - 2*pad

	rl.DrawText("Tuning", int32(x), int32(y), 16, rl.White)
	y += 26

	for _, s := range tuningSliders {
		ptr := s.value(v)
		rl.DrawText(s.label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		y += 14
		cur := float32(*ptr)
		next := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w - 70, Height: 18}, "", "", cur, s.min, s.max)
		rl.DrawText(fmt.Sprintf(s.format, *ptr), int32(x+w-64), int32(y+2), r.Theme.FontSize, r.Theme.ValueColor)
		if next != cur {
			*ptr = float64(next)
			changed = true
		}
		y += 28
	}

	toggles := []struct {
		label string
		value *bool
	}{
		{"Front faces only", &v.Tether.FrontFaceOnly},
		{"Box fallback", &v.Tether.AABBFallback},
		{"Persist misses", &v.Tether.PersistMiss},
	}
	for _, t := range toggles {
		next := gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 14, Height: 14}, t.label, *t.value)
		if next != *t.value {
			*t.value = next
			changed = true
		}
		y += 22
	}

	y += 8
	reset = gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 26}, "Reset")
	return changed, reset
}
