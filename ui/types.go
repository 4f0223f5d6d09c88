// Package ui provides a descriptor-driven UI for the craft viewer.
// Panels are described by field metadata and a getter over the data they
// show, so layouts change alongside the simulation types.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// WidgetType specifies how a field should be rendered.
type WidgetType int

const (
	WidgetText        WidgetType = iota // Plain text with format string
	WidgetBar                           // Progress bar over Range
	WidgetCenteredBar                   // Bar centred on zero
	WidgetColorSwatch                   // Color preview square
	WidgetSection                       // Section header
	WidgetSpacer                        // Vertical spacing
)

// FieldRange defines the value range for bar widgets.
type FieldRange struct {
	Min float32
	Max float32
}

// DefaultRange returns a [0, 1] range.
func DefaultRange() FieldRange {
	return FieldRange{Min: 0, Max: 1}
}

// FieldDescriptor defines how to display a single piece of data.
type FieldDescriptor struct {
	Label       string             // Display label
	Widget      WidgetType         // How to render
	Format      string             // Printf format for Getter values
	Range       FieldRange         // Value range for bars
	Color       rl.Color           // Optional color override
	Visible     func(any) bool     // Optional visibility check (nil = always visible)
	Getter      func(any) float32  // Value extractor (for numeric fields)
	TextGetter  func(any) string   // Value extractor (for text fields)
	ColorGetter func(any) rl.Color // Color extractor (for color swatches)
}

// SectionDescriptor defines a group of fields with a header.
type SectionDescriptor struct {
	Title   string            // Section header text
	Fields  []FieldDescriptor // Fields in this section
	Visible func(any) bool    // Optional visibility check for entire section
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg         rl.Color
	PanelBorder     rl.Color
	SectionHeader   rl.Color
	LabelColor      rl.Color
	ValueColor      rl.Color
	BarBg           rl.Color
	BarFill         rl.Color
	BarFillNegative rl.Color
	BarFillPositive rl.Color
	Padding         int32
	LineHeight      int32
	LabelWidth      int32
	BarHeight       int32
	FontSize        int32
	HeaderFontSize  int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:         rl.Color{R: 12, G: 14, B: 22, A: 230},
		PanelBorder:     rl.Color{R: 60, G: 70, B: 90, A: 255},
		SectionHeader:   rl.Yellow,
		LabelColor:      rl.LightGray,
		ValueColor:      rl.RayWhite,
		BarBg:           rl.Color{R: 40, G: 40, B: 48, A: 255},
		BarFill:         rl.Color{R: 100, G: 150, B: 220, A: 255},
		BarFillNegative: rl.Color{R: 220, G: 110, B: 100, A: 255},
		BarFillPositive: rl.Color{R: 100, G: 210, B: 120, A: 255},
		Padding:         10,
		LineHeight:      16,
		LabelWidth:      80,
		BarHeight:       10,
		FontSize:        12,
		HeaderFontSize:  14,
	}
}

// TetherColors are the beam colors per tether slot.
var TetherColors = []rl.Color{
	{R: 80, G: 200, B: 255, A: 255},
	{R: 255, G: 150, B: 60, A: 255},
}

// TetherColor returns the color for tether slot i.
func TetherColor(i int) rl.Color {
	if i < 0 {
		return rl.Gray
	}
	return TetherColors[i%len(TetherColors)]
}
