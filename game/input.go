package game

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/tether"
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	// Window resize propagation
	g.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeyP) {
		g.scene.SetPaused(!g.scene.Paused())
	}

	// Panels
	if rl.IsKeyPressed(rl.KeyF1) {
		g.tuning.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
	}
	for _, key := range g.overlays.Keys() {
		if rl.IsKeyPressed(key) {
			g.overlays.HandleKeyPress(key)
		}
	}

	if rl.IsKeyPressed(rl.KeyF5) {
		g.saveSnapshot()
	}
	if rl.IsKeyPressed(rl.KeyF4) {
		g.logState()
	}

	g.handleCameraInput()
	g.handleCraftInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.camera.Resize(float64(w), float64(h))
	g.perfPanel.SetPosition(int32(w)-260, 10)
	g.statsPanel.SetPosition(int32(w)-260, 150)
}

// handleCameraInput processes orbit and zoom controls.
func (g *Game) handleCameraInput() {
	const orbitSpeed = 1.8 // radians per second

	dt := float64(rl.GetFrameTime())
	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Orbit(-orbitSpeed*dt, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Orbit(orbitSpeed*dt, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Orbit(0, orbitSpeed*dt)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Orbit(0, -orbitSpeed*dt)
	}

	// Middle-drag orbit
	if rl.IsMouseButtonDown(rl.MouseButtonMiddle) {
		d := rl.GetMouseDelta()
		g.camera.Orbit(-float64(d.X)*0.005, float64(d.Y)*0.005)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + float64(wheel)*0.1)
	}

	// Home key to reset camera
	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}

// handleCraftInput maps keys to thrust and mouse buttons to tether intents.
func (g *Game) handleCraftInput() {
	// Camera-relative thrust
	var dir r3.Vec
	axis := func(key int32, v r3.Vec) {
		if rl.IsKeyDown(key) {
			dir = r3.Add(dir, v)
		}
	}
	fwd, right, up := g.camera.Forward(), g.camera.Right(), g.camera.Up()
	axis(rl.KeyW, fwd)
	axis(rl.KeyS, r3.Scale(-1, fwd))
	axis(rl.KeyD, right)
	axis(rl.KeyA, r3.Scale(-1, right))
	axis(rl.KeyE, up)
	axis(rl.KeyQ, r3.Scale(-1, up))
	// scripted thrust holds until the player touches the controls
	if dir != g.thrustDir {
		g.thrustDir = dir
		g.scene.SetThrust(dir, 1)
	}

	g.scene.SetBrake(rl.IsKeyDown(rl.KeySpace))

	// Reel every attached tether while shift is held
	reel := rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)
	if reel != g.reeling {
		g.reeling = reel
		for i := range g.scene.Tethers().Len() {
			g.scene.SetReel(i, reel)
		}
	}

	if rl.IsKeyPressed(rl.KeyR) {
		g.scene.ReleaseAll()
	}

	mouse := rl.GetMousePosition()
	overUI := g.tuning.Contains(mouse.X, mouse.Y)
	if !overUI {
		if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
			g.fire(0, mouse)
		}
		if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
			g.fire(1, mouse)
		}
	}
	if rl.IsKeyPressed(rl.KeyI) {
		g.selected, _ = g.pick(mouse)
	}
}

// fire shoots tether i from its mount toward whatever is under the cursor.
func (g *Game) fire(i int, mouse rl.Vector2) {
	t := g.scene.Tethers().Tether(i)
	if t == nil {
		return
	}
	aim := g.aimPoint(mouse, t.Params())
	origin := r3.Add(g.scene.Body().Position(), g.scene.Emitter(i))
	g.scene.Fire(i, r3.Sub(aim, origin))
	if g.reeling {
		g.scene.SetReel(i, true)
	}
}

// aimPoint returns the first body bounds hit along the cursor ray, or the
// point at shot range.
func (g *Game) aimPoint(mouse rl.Vector2, p tether.Params) r3.Vec {
	eye := g.camera.Position()
	ray := g.camera.Ray(float64(mouse.X), float64(mouse.Y))
	reach := p.MaxRange + g.camera.Distance
	if _, at, ok := g.castRay(eye, ray, reach); ok {
		return at
	}
	return r3.Add(eye, r3.Scale(reach, ray))
}

// pick returns the body whose bounds the cursor ray enters first.
func (g *Game) pick(mouse rl.Vector2) (uint64, bool) {
	eye := g.camera.Position()
	ray := g.camera.Ray(float64(mouse.X), float64(mouse.Y))
	id, _, ok := g.castRay(eye, ray, g.camera.MaxDistance+g.cfg.Tether.MaxRange)
	return id, ok
}

func (g *Game) castRay(eye, ray r3.Vec, reach float64) (uint64, r3.Vec, bool) {
	end := r3.Add(eye, r3.Scale(reach, ray))
	best := math.Inf(1)
	var hitID uint64
	for _, c := range g.scene.World().Collidables() {
		t, ok := geom.SegmentAABBFirstHit(eye, end, c.WorldBounds())
		if ok && t < best {
			best, hitID = t, c.ID()
		}
	}
	if hitID == 0 {
		return 0, r3.Vec{}, false
	}
	return hitID, r3.Add(eye, r3.Scale(best*reach, ray)), true
}
