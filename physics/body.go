package physics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
)

// minMass floors the body mass so acceleration never divides by zero.
const minMass = 1e-6

// BodyParams holds the tunables of the craft body.
type BodyParams struct {
	Mass          float64 `yaml:"mass"`
	LinearDamping float64 `yaml:"linear_damping"` // fraction of speed lost per second, [0,1)
	MaxSpeed      float64 `yaml:"max_speed"`
	Radius        float64 `yaml:"radius"` // collision sphere radius
}

// Validate reports parameter combinations the integrator cannot honour.
func (p BodyParams) Validate() error {
	var errs []error
	if !(p.Mass > 0) {
		errs = append(errs, fmt.Errorf("mass must be > 0, got %v", p.Mass))
	}
	if p.LinearDamping < 0 || p.LinearDamping >= 1 {
		errs = append(errs, fmt.Errorf("linear_damping must be in [0,1), got %v", p.LinearDamping))
	}
	if !(p.MaxSpeed > 0) {
		errs = append(errs, fmt.Errorf("max_speed must be > 0, got %v", p.MaxSpeed))
	}
	if p.Radius < 0 {
		errs = append(errs, fmt.Errorf("radius must be >= 0, got %v", p.Radius))
	}
	return errors.Join(errs...)
}

// KinematicBody is the point-mass craft. Contributors push it with ApplyForce
// during a step; Step integrates once all of them have run.
type KinematicBody struct {
	params BodyParams

	pos   r3.Vec
	vel   r3.Vec
	force r3.Vec

	// lastForce is the force consumed by the most recent Step, for observation.
	lastForce r3.Vec
}

// NewKinematicBody creates a body at rest at pos.
func NewKinematicBody(params BodyParams, pos r3.Vec) *KinematicBody {
	b := &KinematicBody{pos: pos}
	b.SetParams(params)
	return b
}

// SetParams replaces the tunables. Mass is floored to stay positive.
func (b *KinematicBody) SetParams(p BodyParams) {
	if p.Mass < minMass {
		p.Mass = minMass
	}
	b.params = p
}

// Params returns the current tunables.
func (b *KinematicBody) Params() BodyParams { return b.params }

func (b *KinematicBody) Position() r3.Vec { return b.pos }
func (b *KinematicBody) Velocity() r3.Vec { return b.vel }
func (b *KinematicBody) Mass() float64    { return b.params.Mass }
func (b *KinematicBody) Radius() float64  { return b.params.Radius }
func (b *KinematicBody) Speed() float64   { return r3.Norm(b.vel) }

// Force returns the force accumulated so far in the current step.
func (b *KinematicBody) Force() r3.Vec { return b.force }

// LastForce returns the net force integrated by the previous step.
func (b *KinematicBody) LastForce() r3.Vec { return b.lastForce }

func (b *KinematicBody) SetPosition(p r3.Vec) { b.pos = p }
func (b *KinematicBody) SetVelocity(v r3.Vec) { b.vel = v }

// ApplyForce adds f to the accumulator. Calls within a step commute.
func (b *KinematicBody) ApplyForce(f r3.Vec) {
	b.force = r3.Add(b.force, f)
}

// Step integrates one fixed step: semi-implicit Euler with exponential damping
// and a direction-preserving speed clamp, then clears the accumulator.
func (b *KinematicBody) Step(dt float64) {
	if !(dt > 0) {
		return
	}
	acc := r3.Scale(1/b.params.Mass, b.force)
	b.vel = r3.Add(b.vel, r3.Scale(dt, acc))

	if d := b.params.LinearDamping; d > 0 {
		if d >= 1 {
			b.vel = r3.Vec{}
		} else {
			b.vel = r3.Scale(math.Pow(1-d, dt), b.vel)
		}
	}

	b.vel = geom.ClampNorm(b.vel, b.params.MaxSpeed)
	b.pos = r3.Add(b.pos, r3.Scale(dt, b.vel))

	b.lastForce = b.force
	b.force = r3.Vec{}
}
