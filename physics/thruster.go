package physics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
)

// Thruster applies a commanded force to the craft every step.
type Thruster struct {
	craft    Craft
	maxForce float64

	dir      r3.Vec
	throttle float64
	brake    bool

	last r3.Vec
}

// NewThruster creates an idle thruster.
func NewThruster(craft Craft, maxForce float64) *Thruster {
	return &Thruster{craft: craft, maxForce: maxForce}
}

// SetMaxForce changes the force at full throttle.
func (t *Thruster) SetMaxForce(f float64) { t.maxForce = f }

// MaxForce returns the force at full throttle.
func (t *Thruster) MaxForce() float64 { return t.maxForce }

// SetCommand sets thrust direction and throttle. The direction is normalised;
// throttle is clamped to [0,1]. A zero direction cuts thrust.
func (t *Thruster) SetCommand(dir r3.Vec, throttle float64) {
	u, ok := geom.SafeUnit(dir)
	if !ok {
		t.dir, t.throttle = r3.Vec{}, 0
		return
	}
	t.dir = u
	t.throttle = min(max(throttle, 0), 1)
}

// Throttle returns the commanded throttle, 0 when thrust is cut.
func (t *Thruster) Throttle() float64 { return t.throttle }

// SetBrake toggles braking. While braking the command is ignored.
func (t *Thruster) SetBrake(on bool) { t.brake = on }

// Braking reports whether braking is on.
func (t *Thruster) Braking() bool { return t.brake }

// LastForce returns the force applied by the previous step.
func (t *Thruster) LastForce() r3.Vec { return t.last }

// Step implements Contributor.
func (t *Thruster) Step(dt float64) {
	t.last = r3.Vec{}
	if !(dt > 0) || t.maxForce <= 0 {
		return
	}

	if t.brake {
		v := t.craft.Velocity()
		speed := r3.Norm(v)
		if speed < geom.Epsilon {
			return
		}
		// never reverse the craft within one step
		mag := min(t.maxForce, t.craft.Mass()*speed/dt)
		t.last = r3.Scale(-mag/speed, v)
	} else {
		if t.throttle == 0 {
			return
		}
		t.last = r3.Scale(t.throttle*t.maxForce, t.dir)
	}
	t.craft.ApplyForce(t.last)
}
