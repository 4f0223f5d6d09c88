package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min r3.Vec
	Max r3.Vec
}

// EmptyAABB returns an inverted box that any Extend call will overwrite.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// AABBFromCenter builds a box from its center and half extents.
func AABBFromCenter(center, half r3.Vec) AABB {
	return AABB{Min: r3.Sub(center, half), Max: r3.Add(center, half)}
}

// AABBFromPoints returns the tightest box around pts.
func AABBFromPoints(pts ...r3.Vec) AABB {
	b := EmptyAABB()
	for _, p := range pts {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether the box encloses nothing.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b AABB) Extend(p r3.Vec) AABB {
	return AABB{
		Min: r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// Union returns the smallest box containing both.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Inflate grows the box by margin on every side.
func (b AABB) Inflate(margin float64) AABB {
	m := r3.Vec{X: margin, Y: margin, Z: margin}
	return AABB{Min: r3.Sub(b.Min, m), Max: r3.Add(b.Max, m)}
}

// Center returns the midpoint of the box.
func (b AABB) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Extents returns the half sizes of the box.
func (b AABB) Extents() r3.Vec {
	return r3.Scale(0.5, r3.Sub(b.Max, b.Min))
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersects reports whether two boxes overlap.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// ClosestPoint clamps p onto the box.
func (b AABB) ClosestPoint(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: math.Max(b.Min.X, math.Min(p.X, b.Max.X)),
		Y: math.Max(b.Min.Y, math.Min(p.Y, b.Max.Y)),
		Z: math.Max(b.Min.Z, math.Min(p.Z, b.Max.Z)),
	}
}

// FaceNormal returns the outward normal of the face nearest to p.
func (b AABB) FaceNormal(p r3.Vec) r3.Vec {
	best := math.Inf(1)
	var n r3.Vec
	for axis := AxisX; axis <= AxisZ; axis++ {
		lo := Component(p, axis) - Component(b.Min, axis)
		hi := Component(b.Max, axis) - Component(p, axis)
		if d := math.Abs(lo); d < best {
			best = d
			n = WithComponent(r3.Vec{}, axis, -1)
		}
		if d := math.Abs(hi); d < best {
			best = d
			n = WithComponent(r3.Vec{}, axis, 1)
		}
	}
	return n
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]r3.Vec {
	return [8]r3.Vec{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

// Transformed returns the world-space box enclosing the transformed corners of b.
func (b AABB) Transformed(t Transform) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for _, c := range b.Corners() {
		out = out.Extend(t.Apply(c))
	}
	return out
}

// SegmentAABBFirstHit runs the slab test for segment a->b against box and returns
// the entry parameter t in [0,1]. A segment starting inside the box enters at 0.
// When the segment direction is numerically zero on an axis, the segment must
// already lie within that slab or the test fails.
func SegmentAABBFirstHit(a, b r3.Vec, box AABB) (float64, bool) {
	if box.IsEmpty() {
		return 0, false
	}
	d := r3.Sub(b, a)
	tmin, tmax := 0.0, 1.0
	for axis := AxisX; axis <= AxisZ; axis++ {
		o := Component(a, axis)
		dir := Component(d, axis)
		lo := Component(box.Min, axis)
		hi := Component(box.Max, axis)

		if math.Abs(dir) < Epsilon {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		inv := 1 / dir
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
