package components

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
)

// Transform is an entity's local-to-world frame.
type Transform struct {
	Frame geom.Transform
}

// Spin rotates an entity about a fixed world axis.
type Spin struct {
	Axis r3.Vec  // unit
	Rate float64 // radians per second
}

// Drift translates an entity at constant velocity.
type Drift struct {
	Velocity r3.Vec
}
