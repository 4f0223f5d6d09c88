package game

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/physics"
	"github.com/pthm-cable/grapple/scene"
	"github.com/pthm-cable/grapple/tether"
	"github.com/pthm-cable/grapple/ui"
)

var (
	spaceColor    = rl.Color{R: 6, G: 8, B: 14, A: 255}
	asteroidColor = rl.Color{R: 150, G: 140, B: 130, A: 255}
	wallColor     = rl.Color{R: 90, G: 110, B: 150, A: 255}
	blockColor    = rl.Color{R: 130, G: 100, B: 160, A: 255}
	craftColor    = rl.Color{R: 230, G: 230, B: 240, A: 255}
	lightDir      = r3.Unit(r3.Vec{X: 0.4, Y: 0.8, Z: -0.45})
)

func vec3(v r3.Vec) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

func (g *Game) rlCamera() rl.Camera3D {
	return rl.Camera3D{
		Position:   vec3(g.camera.Position()),
		Target:     vec3(g.camera.Target),
		Up:         rl.Vector3{Y: 1},
		Fovy:       float32(g.camera.FovY),
		Projection: rl.CameraPerspective,
	}
}

// Draw renders the current frame.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(spaceColor)

	rl.BeginMode3D(g.rlCamera())
	if g.overlays.IsEnabled(ui.OverlayGrid) {
		rl.DrawGrid(40, 25)
	}
	g.drawWorld()
	g.drawCraft()
	g.drawTethers()
	g.drawDebugOverlays()
	rl.EndMode3D()

	g.drawUI()
	rl.EndDrawing()
}

// drawWorld draws every collidable with flat shading and wire edges.
func (g *Game) drawWorld() {
	for _, c := range g.scene.World().Collidables() {
		h := c.(*scene.Handle)
		tr := h.Transform()
		if !g.camera.IsVisible(tr.Position, h.Radius()) {
			continue
		}

		shape := h.Shape()
		mesh := shape.Mesh
		if shape.Kind == physics.ShapeBounds {
			mesh = geom.Box(shape.Bounds)
		}
		if mesh == nil {
			continue
		}
		g.drawMesh(mesh, tr, kindColor(h.Kind()), h.ID() == g.selected)
	}
}

func kindColor(k components.Kind) rl.Color {
	switch k {
	case components.KindWall:
		return wallColor
	case components.KindBlock:
		return blockColor
	default:
		return asteroidColor
	}
}

func (g *Game) drawMesh(m *geom.Mesh, tr geom.Transform, base rl.Color, selected bool) {
	edge := rl.Fade(rl.Black, 0.4)
	if selected {
		edge = rl.Yellow
	}
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		wa, wb, wc := vec3(tr.Apply(a)), vec3(tr.Apply(b)), vec3(tr.Apply(c))

		n := tr.ApplyNormal(m.FaceNormal(i))
		shade := 0.35 + 0.65*math.Max(0, r3.Dot(n, lightDir))
		rl.DrawTriangle3D(wa, wb, wc, scale(base, shade))

		rl.DrawLine3D(wa, wb, edge)
		rl.DrawLine3D(wb, wc, edge)
		rl.DrawLine3D(wc, wa, edge)
	}
}

func scale(c rl.Color, f float64) rl.Color {
	return rl.Color{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}

// drawCraft draws the craft sphere and its tether mounts.
func (g *Game) drawCraft() {
	body := g.scene.Body()
	pos := body.Position()
	rl.DrawSphereWires(vec3(pos), float32(body.Radius()), 8, 12, craftColor)
	for i := range g.scene.Tethers().Len() {
		mount := r3.Add(pos, g.scene.Emitter(i))
		rl.DrawSphere(vec3(mount), 0.35, ui.TetherColor(i))
	}
}

// drawTethers draws in-flight and attached beams with anchor markers.
func (g *Game) drawTethers() {
	for i := range g.scene.Tethers().Len() {
		t := g.scene.Tethers().Tether(i)
		start, end, ok := t.Beam()
		if !ok {
			continue
		}
		color := ui.TetherColor(i)
		switch t.State() {
		case tether.Detached:
			color = rl.Fade(color, 0.35)
		case tether.Attached:
			if t.Tension() > 0 {
				color = rl.ColorBrightness(color, float32(math.Min(0.5, t.Tension()/t.Params().MaxForce)))
			}
		}
		rl.DrawLine3D(vec3(start), vec3(end), color)
		if t.State() == tether.Attached {
			rl.DrawSphere(vec3(end), 0.6, color)
		} else {
			rl.DrawSphere(vec3(end), 0.25, color)
		}
	}
}

// drawDebugOverlays draws the 3D debug overlays that are enabled.
func (g *Game) drawDebugOverlays() {
	body := g.scene.Body()
	pos := body.Position()

	if g.overlays.IsEnabled(ui.OverlayVelocity) {
		rl.DrawLine3D(vec3(pos), vec3(r3.Add(pos, r3.Scale(0.5, body.Velocity()))), rl.Green)
		force := body.LastForce()
		if n := r3.Norm(force); n > 0 {
			rl.DrawLine3D(vec3(pos), vec3(r3.Add(pos, r3.Scale(10/body.Mass(), force))), rl.Red)
		}
	}

	if g.overlays.IsEnabled(ui.OverlayBounds) {
		for _, c := range g.scene.World().Collidables() {
			b := c.WorldBounds()
			rl.DrawBoundingBox(rl.BoundingBox{Min: vec3(b.Min), Max: vec3(b.Max)}, rl.Fade(rl.SkyBlue, 0.6))
		}
	}

	if g.overlays.IsEnabled(ui.OverlayContacts) {
		for _, c := range g.scene.Resolver().LastContacts() {
			rl.DrawSphere(vec3(c.Point), 0.3, rl.Red)
			rl.DrawLine3D(vec3(c.Point), vec3(r3.Add(c.Point, r3.Scale(4, c.Normal))), rl.Orange)
		}
	}

	if g.overlays.IsEnabled(ui.OverlayNormals) {
		for i := range g.scene.Tethers().Len() {
			t := g.scene.Tethers().Tether(i)
			if t.State() != tether.Attached {
				continue
			}
			a := t.AnchorWorld()
			rl.DrawLine3D(vec3(a), vec3(r3.Add(a, r3.Scale(5, t.AttachNormal()))), rl.Magenta)
		}
	}
}

// drawUI draws the HUD and panels.
func (g *Game) drawUI() {
	body := g.scene.Body()
	g.hud.Draw(ui.HUDData{
		Title:    "Grapple",
		Steps:    g.scene.Steps(),
		SimTime:  g.scene.SimTime(),
		FPS:      rl.GetFPS(),
		Paused:   g.scene.Paused(),
		Speed:    body.Speed(),
		Throttle: g.scene.Thruster().Throttle(),
		Braking:  g.scene.Thruster().Braking(),
		Contacts: g.scene.Resolver().Contacts(),
	})
	g.hud.DrawCrosshair(int32(g.screenWidth), int32(g.screenHeight))

	y := g.controls.Draw(g.overlays)
	g.inspector.SetPosition(10, y+10)
	g.inspector.Draw(g.selectedInfo(), g.tetherInfo())

	if g.overlays.IsEnabled(ui.OverlayPerf) {
		g.perfPanel.Draw(g.perf.Stats())
	}
	if stats, ok := g.rec.LastWindow(); ok {
		g.statsPanel.Draw(stats)
	}

	if changed, reset := g.tuning.Draw(&g.tuned); reset {
		g.resetTuning()
	} else if changed {
		g.applyTuning()
	}

	g.drawFeed()
	g.hud.DrawControls(int32(g.screenHeight),
		"WASD/QE: Thrust | Space: Brake | LMB/RMB: Fire | Shift: Reel | R: Release | P: Pause | I: Inspect | F1: Tuning | Tab: Overlays")
}

func (g *Game) drawFeed() {
	y := int32(g.screenHeight) - 50 - int32(len(g.feed))*16
	for _, line := range g.feed {
		rl.DrawText(line, 10, y, 14, rl.LightGray)
		y += 16
	}
}

func (g *Game) selectedInfo() *ui.InspectorData {
	if g.selected == 0 {
		return nil
	}
	h, ok := g.scene.World().Get(g.selected)
	if !ok {
		g.selected = 0
		return nil
	}
	pos := h.Transform().Position
	info := &ui.InspectorData{
		ID:       h.ID(),
		Kind:     h.Kind().String(),
		Position: [3]float64{pos.X, pos.Y, pos.Z},
		Radius:   h.Radius(),
		Distance: geom.Distance(pos, g.scene.Body().Position()),
	}
	for i := range g.scene.Tethers().Len() {
		if id, ok := g.scene.Tethers().Tether(i).AttachedID(); ok && id == h.ID() {
			info.Anchors = append(info.Anchors, i)
		}
	}
	return info
}

func (g *Game) tetherInfo() []ui.TetherInfo {
	out := make([]ui.TetherInfo, 0, g.scene.Tethers().Len())
	for i := range g.scene.Tethers().Len() {
		t := g.scene.Tethers().Tether(i)
		out = append(out, ui.TetherInfo{
			Index:    i,
			State:    t.State().String(),
			Pulling:  t.Pulling(),
			Rest:     t.RestLength(),
			Span:     g.scene.Span(i),
			Tension:  t.Tension(),
			MaxForce: t.Params().MaxForce,
		})
	}
	return out
}
