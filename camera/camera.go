// Package camera provides a 3D orbit camera for viewport control.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Default framing used by New and Reset.
const (
	DefaultDistance = 60.0
	DefaultPitch    = 0.35
	DefaultFovY     = 60.0 // degrees
	maxPitch        = 1.5
)

var worldUp = r3.Vec{Y: 1}

// Camera orbits a target point. Y is up; yaw 0 looks along +Z.
type Camera struct {
	// Target is the orbit centre in world coordinates
	Target r3.Vec

	// Yaw about +Y and pitch above the horizon, in radians
	Yaw, Pitch float64

	// Distance from target to eye
	Distance float64

	// Distance constraints
	MinDistance, MaxDistance float64

	// Vertical field of view in degrees
	FovY float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float64
}

// New creates a camera behind the origin looking along +Z.
func New(viewportW, viewportH float64) *Camera {
	return &Camera{
		Pitch:       DefaultPitch,
		Distance:    DefaultDistance,
		MinDistance: 5,
		MaxDistance: 2000,
		FovY:        DefaultFovY,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
	}
}

// Forward returns the unit view direction from eye to target.
func (c *Camera) Forward() r3.Vec {
	cp := math.Cos(c.Pitch)
	return r3.Vec{
		X: cp * math.Sin(c.Yaw),
		Y: -math.Sin(c.Pitch),
		Z: cp * math.Cos(c.Yaw),
	}
}

// Right returns the unit screen-right direction. It stays horizontal.
func (c *Camera) Right() r3.Vec {
	return r3.Vec{X: -math.Cos(c.Yaw), Z: math.Sin(c.Yaw)}
}

// Up returns the unit screen-up direction.
func (c *Camera) Up() r3.Vec {
	return r3.Cross(c.Right(), c.Forward())
}

// Position returns the eye position.
func (c *Camera) Position() r3.Vec {
	return r3.Sub(c.Target, r3.Scale(c.Distance, c.Forward()))
}

// Orbit turns the camera around its target. Pitch stops short of the poles
// so Right stays defined.
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw = wrapAngle(c.Yaw + dYaw)
	c.Pitch = clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

// SetDistance sets the orbit distance, clamped to min/max.
func (c *Camera) SetDistance(d float64) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy moves the eye closer by the given factor (2 halves the distance).
func (c *Camera) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Follow eases the target toward p with the given rate per second.
func (c *Camera) Follow(p r3.Vec, rate, dt float64) {
	alpha := 1 - math.Exp(-rate*dt)
	c.Target = r3.Add(c.Target, r3.Scale(alpha, r3.Sub(p, c.Target)))
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float64) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Reset returns the camera to the default orientation and distance.
func (c *Camera) Reset() {
	c.Yaw = 0
	c.Pitch = DefaultPitch
	c.Distance = DefaultDistance
}

func (c *Camera) aspect() float64 {
	if c.ViewportH <= 0 {
		return 1
	}
	return c.ViewportW / c.ViewportH
}

func (c *Camera) tanHalfFov() float64 {
	return math.Tan(c.FovY * math.Pi / 360)
}

// Ray returns the unit world direction through screen pixel (sx, sy).
func (c *Camera) Ray(sx, sy float64) r3.Vec {
	nx := 2*sx/c.ViewportW - 1
	ny := 1 - 2*sy/c.ViewportH
	th := c.tanHalfFov()
	dir := r3.Add(c.Forward(), r3.Add(
		r3.Scale(nx*th*c.aspect(), c.Right()),
		r3.Scale(ny*th, c.Up()),
	))
	return r3.Unit(dir)
}

// IsVisible returns true if a sphere at p with the given radius could be
// inside the view frustum (conservative check for culling).
func (c *Camera) IsVisible(p r3.Vec, radius float64) bool {
	d := r3.Sub(p, c.Position())
	depth := r3.Dot(d, c.Forward())
	if depth < -radius {
		return false
	}
	th := c.tanHalfFov()
	tw := th * c.aspect()
	x := math.Abs(r3.Dot(d, c.Right()))
	y := math.Abs(r3.Dot(d, c.Up()))
	return x <= depth*tw+radius*math.Sqrt(1+tw*tw) &&
		y <= depth*th+radius*math.Sqrt(1+th*th)
}

// wrapAngle maps a to (-pi, pi].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
