package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle list in object-local space.
// Faces are wound counter-clockwise when viewed from outside.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
}

// Triangle returns the three vertices of face i.
func (m *Mesh) Triangle(i int) (r3.Vec, r3.Vec, r3.Vec) {
	f := m.Faces[i]
	return m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
}

// Bounds returns the local-space bounding box of the vertices.
func (m *Mesh) Bounds() AABB {
	return AABBFromPoints(m.Vertices...)
}

// Validate checks that every face references an existing vertex.
func (m *Mesh) Validate() error {
	if m == nil {
		return fmt.Errorf("mesh is nil")
	}
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("face %d references vertex %d of %d", i, idx, len(m.Vertices))
			}
		}
	}
	return nil
}

// FaceNormal returns the unit geometric normal (e1 x e2) of face i.
func (m *Mesh) FaceNormal(i int) r3.Vec {
	a, b, c := m.Triangle(i)
	n, _ := SafeUnit(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
	return n
}

// TriHit describes the nearest segment/triangle intersection.
type TriHit struct {
	T        float64 // parameter along the segment, in [0,1]
	Point    r3.Vec
	Normal   r3.Vec // unit geometric normal, oriented against the segment direction
	Triangle int
}

// SegmentTriangleFirstHit intersects segment a->b with every face of mesh and
// returns the hit with the smallest t (closest hit, not first found).
//
// The determinant is dot(dir, e1 x e2), so a face whose normal opposes the segment
// has a negative determinant. With frontFaceOnly set, faces with det > -Epsilon are
// rejected; otherwise only near-parallel faces (|det| < Epsilon) are.
func SegmentTriangleFirstHit(a, b r3.Vec, mesh *Mesh, frontFaceOnly bool) (TriHit, bool) {
	if mesh == nil {
		return TriHit{}, false
	}
	dir := r3.Sub(b, a)
	best := TriHit{T: math.Inf(1), Triangle: -1}

	for i := range mesh.Faces {
		v0, v1, v2 := mesh.Triangle(i)
		e1 := r3.Sub(v1, v0)
		e2 := r3.Sub(v2, v0)

		p := r3.Cross(dir, e1)
		det := r3.Dot(e2, p)
		if frontFaceOnly {
			if det > -Epsilon {
				continue
			}
		} else if math.Abs(det) < Epsilon {
			continue
		}
		inv := 1 / det

		s := r3.Sub(a, v0)
		u := r3.Dot(s, p) * inv
		if u < 0 || u > 1 {
			continue
		}
		q := r3.Cross(s, e2)
		v := r3.Dot(dir, q) * inv
		if v < 0 || u+v > 1 {
			continue
		}
		t := r3.Dot(e1, q) * inv
		if t < 0 || t > 1 || t >= best.T {
			continue
		}

		n, _ := SafeUnit(r3.Cross(e1, e2))
		if det > 0 {
			n = r3.Scale(-1, n)
		}
		best = TriHit{
			T:        t,
			Point:    r3.Add(a, r3.Scale(t, dir)),
			Normal:   n,
			Triangle: i,
		}
	}

	if best.Triangle < 0 {
		return TriHit{}, false
	}
	return best, true
}

// ClosestPointOnTriangle returns the point of triangle abc nearest to p,
// using the Voronoi-region walk from Ericson's Real-Time Collision Detection.
func ClosestPointOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)

	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := r3.Sub(p, b)
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return r3.Add(a, r3.Scale(v, ab))
	}

	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return r3.Add(a, r3.Scale(w, ac))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b)))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

// Box returns a closed, outward-wound box mesh spanning b.
func Box(b AABB) *Mesh {
	c := b.Corners()
	return &Mesh{
		Vertices: c[:],
		Faces: [][3]int{
			{0, 2, 1}, {1, 2, 3}, // -Z
			{4, 5, 6}, {5, 7, 6}, // +Z
			{0, 1, 4}, {1, 5, 4}, // -Y
			{2, 6, 3}, {3, 6, 7}, // +Y
			{0, 4, 2}, {2, 4, 6}, // -X
			{1, 3, 5}, {3, 7, 5}, // +X
		},
	}
}
