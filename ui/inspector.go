package ui

import (
	"fmt"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// InspectorData describes the selected world body.
type InspectorData struct {
	ID       uint64
	Kind     string
	Position [3]float64
	Radius   float64
	Distance float64 // from the craft
	Anchors  []int   // tether slots attached to this body
}

// TetherInfo describes one tether slot.
type TetherInfo struct {
	Index    int
	State    string
	Pulling  bool
	Rest     float64
	Span     float64
	Tension  float64
	MaxForce float64
}

var inspectorSection = SectionDescriptor{
	Fields: []FieldDescriptor{
		{Label: "Kind", Widget: WidgetText, TextGetter: func(d any) string { return d.(InspectorData).Kind }},
		{Label: "Position", Widget: WidgetText, TextGetter: func(d any) string {
			p := d.(InspectorData).Position
			return fmt.Sprintf("%.0f, %.0f, %.0f", p[0], p[1], p[2])
		}},
		{Label: "Radius", Widget: WidgetText, Format: "%.1f", Getter: func(d any) float32 { return float32(d.(InspectorData).Radius) }},
		{Label: "Distance", Widget: WidgetText, Format: "%.1f", Getter: func(d any) float32 { return float32(d.(InspectorData).Distance) }},
		{
			Label:   "Anchors",
			Widget:  WidgetText,
			Visible: func(d any) bool { return len(d.(InspectorData).Anchors) > 0 },
			TextGetter: func(d any) string {
				var parts []string
				for _, i := range d.(InspectorData).Anchors {
					parts = append(parts, fmt.Sprintf("#%d", i))
				}
				return strings.Join(parts, " ")
			},
		},
	},
}

var tetherSection = SectionDescriptor{
	Fields: []FieldDescriptor{
		{Label: "Color", Widget: WidgetColorSwatch, ColorGetter: func(d any) rl.Color { return TetherColor(d.(TetherInfo).Index) }},
		{Label: "State", Widget: WidgetText, TextGetter: func(d any) string {
			t := d.(TetherInfo)
			if t.Pulling {
				return t.State + " (reel)"
			}
			return t.State
		}},
		{
			Label:   "Rest",
			Widget:  WidgetText,
			Format:  "%.1f",
			Visible: attached,
			Getter:  func(d any) float32 { return float32(d.(TetherInfo).Rest) },
		},
		{
			Label:   "Stretch",
			Widget:  WidgetCenteredBar,
			Range:   FieldRange{Max: 10},
			Visible: attached,
			Getter:  func(d any) float32 { t := d.(TetherInfo); return float32(t.Span - t.Rest) },
		},
		{
			Label:   "Tension",
			Widget:  WidgetBar,
			Format:  "%.0f",
			Visible: attached,
			Getter:  func(d any) float32 { return float32(d.(TetherInfo).Tension) },
		},
	},
}

func attached(d any) bool { return d.(TetherInfo).State == "attached" }

// Inspector renders the selected body and the tether slots.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

// Draw renders the panel. selected may be nil.
func (ins *Inspector) Draw(selected *InspectorData, tethers []TetherInfo) int32 {
	r := ins.renderer
	padding := r.Theme.Padding
	content := ins.width - padding*2

	height := padding * 2
	if selected != nil {
		height += r.Theme.LineHeight + r.SectionHeight(inspectorSection, *selected)
	}
	for _, t := range tethers {
		height += r.Theme.LineHeight + r.SectionHeight(sectionFor(t), t)
	}
	r.DrawPanel(ins.x, ins.y, ins.width, height)

	y := ins.y + padding
	if selected != nil {
		rl.DrawText(fmt.Sprintf("Body #%d", selected.ID), ins.x+padding, y, 14, rl.White)
		y += r.Theme.LineHeight
		y = r.DrawSection(ins.x+padding, y, inspectorSection, *selected, content)
	}
	for _, t := range tethers {
		rl.DrawText(fmt.Sprintf("Tether %d", t.Index), ins.x+padding, y, 14, rl.White)
		y += r.Theme.LineHeight
		y = r.DrawSection(ins.x+padding, y, sectionFor(t), t, content)
	}
	return y
}

// sectionFor scales the tension bar to the slot's force cap.
func sectionFor(t TetherInfo) SectionDescriptor {
	sd := tetherSection
	sd.Fields = append([]FieldDescriptor(nil), tetherSection.Fields...)
	for i := range sd.Fields {
		if sd.Fields[i].Label == "Tension" {
			sd.Fields[i].Range = FieldRange{Max: float32(t.MaxForce)}
		}
	}
	return sd
}
