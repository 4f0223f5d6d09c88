// Package geom provides the vector, frame and intersection primitives used by the
// physics core. Vectors are gonum r3.Vec values; every function here is pure.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the tolerance used for degenerate directions, determinants and distances.
const Epsilon = 1e-9

// Axis indices for Component.
const (
	AxisX = iota
	AxisY
	AxisZ
)

// Vec is shorthand for building an r3.Vec.
func Vec(x, y, z float64) r3.Vec {
	return r3.Vec{X: x, Y: y, Z: z}
}

// Component returns the value of v along the given axis.
func Component(v r3.Vec, axis int) float64 {
	switch axis {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns v with one axis replaced.
func WithComponent(v r3.Vec, axis int, value float64) r3.Vec {
	switch axis {
	case AxisX:
		v.X = value
	case AxisY:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// SafeUnit normalizes v. Vectors shorter than Epsilon yield the zero vector and false.
func SafeUnit(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if n < Epsilon {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}

// ClampNorm rescales v so that |v| <= limit, preserving direction.
// A non-positive limit disables the clamp.
func ClampNorm(v r3.Vec, limit float64) r3.Vec {
	if !(limit > 0) {
		return v
	}
	n := r3.Norm(v)
	if n <= limit {
		return v
	}
	return r3.Scale(limit/n, v)
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Distance returns |a-b|.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// IsZero reports whether every component of v is within Epsilon of zero.
func IsZero(v r3.Vec) bool {
	return math.Abs(v.X) < Epsilon && math.Abs(v.Y) < Epsilon && math.Abs(v.Z) < Epsilon
}

// Split decomposes v into the part along unit direction u and the remainder.
func Split(v, u r3.Vec) (along float64, perp r3.Vec) {
	along = r3.Dot(v, u)
	perp = r3.Sub(v, r3.Scale(along, u))
	return along, perp
}
