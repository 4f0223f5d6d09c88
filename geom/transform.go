package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform maps an entity's object-local frame into the world frame:
// world = Position + Rotation * (Scale * local).
// Only uniform scale is supported so that normals survive the mapping unchanged.
type Transform struct {
	Position r3.Vec
	Rotation quat.Number // unit quaternion; the zero value is treated as identity
	Scale    float64     // 0 is treated as 1
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: quat.Number{Real: 1}, Scale: 1}
}

// Translation returns a transform that only moves.
func Translation(p r3.Vec) Transform {
	t := Identity()
	t.Position = p
	return t
}

// AxisAngle returns the unit quaternion rotating by angle radians about axis.
// A degenerate axis yields the identity rotation.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	u, ok := SafeUnit(axis)
	if !ok {
		return quat.Number{Real: 1}
	}
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Imag: u.X * s, Jmag: u.Y * s, Kmag: u.Z * s}
}

// NormalizeQuat rescales q to unit length. The zero quaternion becomes identity.
func NormalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < Epsilon {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// Rotate applies unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	if q == (quat.Number{}) {
		return v
	}
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// RotateInverse applies the inverse of unit quaternion q to v.
func RotateInverse(q quat.Number, v r3.Vec) r3.Vec {
	if q == (quat.Number{}) {
		return v
	}
	return Rotate(quat.Conj(q), v)
}

func (t Transform) scale() float64 {
	if t.Scale == 0 {
		return 1
	}
	return t.Scale
}

// Apply maps a local point into world space.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.Position, Rotate(t.Rotation, r3.Scale(t.scale(), p)))
}

// ApplyDir maps a local displacement into world space (no translation).
func (t Transform) ApplyDir(d r3.Vec) r3.Vec {
	return Rotate(t.Rotation, r3.Scale(t.scale(), d))
}

// ApplyNormal maps a local unit normal into a world unit normal.
func (t Transform) ApplyNormal(n r3.Vec) r3.Vec {
	u, _ := SafeUnit(Rotate(t.Rotation, n))
	return u
}

// Inverse maps a world point into the local frame.
func (t Transform) Inverse(p r3.Vec) r3.Vec {
	return r3.Scale(1/t.scale(), RotateInverse(t.Rotation, r3.Sub(p, t.Position)))
}

// InverseDir maps a world displacement into the local frame.
func (t Transform) InverseDir(d r3.Vec) r3.Vec {
	return r3.Scale(1/t.scale(), RotateInverse(t.Rotation, d))
}

// ApplyLength converts a local-space length into world units.
func (t Transform) ApplyLength(l float64) float64 {
	return l * math.Abs(t.scale())
}

// InverseLength converts a world-space length into local units.
func (t Transform) InverseLength(l float64) float64 {
	return l / math.Abs(t.scale())
}

// Then returns the transform that applies t first and then parent.
func (t Transform) Then(parent Transform) Transform {
	return Transform{
		Position: parent.Apply(t.Position),
		Rotation: NormalizeQuat(quat.Mul(rotOrIdentity(parent.Rotation), rotOrIdentity(t.Rotation))),
		Scale:    parent.scale() * t.scale(),
	}
}

func rotOrIdentity(q quat.Number) quat.Number {
	if q == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return q
}
