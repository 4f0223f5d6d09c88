package physics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
)

// ResolverParams tunes the craft-vs-world collision response.
type ResolverParams struct {
	Restitution   float64 `yaml:"restitution"` // fraction of normal speed reflected, [0,1]
	Friction      float64 `yaml:"friction"`    // fraction of tangential speed removed per contact, [0,1]
	FrontFaceOnly bool    `yaml:"front_face_only"`
	MaxIterations int     `yaml:"max_iterations"`
	Skin          float64 `yaml:"skin"` // extra separation left after a push-out
}

// DefaultResolverParams returns a mildly bouncy, low friction response.
func DefaultResolverParams() ResolverParams {
	return ResolverParams{
		Restitution:   0.2,
		Friction:      0.1,
		FrontFaceOnly: true,
		MaxIterations: 4,
		Skin:          0.01,
	}
}

// Validate checks the coefficient ranges.
func (p ResolverParams) Validate() error {
	var errs []error
	if p.Restitution < 0 || p.Restitution > 1 {
		errs = append(errs, fmt.Errorf("restitution must be in [0,1], got %v", p.Restitution))
	}
	if p.Friction < 0 || p.Friction > 1 {
		errs = append(errs, fmt.Errorf("friction must be in [0,1], got %v", p.Friction))
	}
	if p.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("max_iterations must be >= 1, got %d", p.MaxIterations))
	}
	if p.Skin < 0 {
		errs = append(errs, fmt.Errorf("skin must be >= 0, got %v", p.Skin))
	}
	return errors.Join(errs...)
}

// Contact is one resolved overlap.
type Contact struct {
	Entity uint64
	Point  r3.Vec // world contact point on the collidable surface
	Normal r3.Vec // unit, pointing from the surface toward the craft
	Depth  float64
	Swept  bool // found by the anti-tunnelling raycast
}

// CollisionResolver keeps the craft sphere outside every collidable.
// It must run before the integrator.
type CollisionResolver struct {
	params   ResolverParams
	craft    Collider
	provider CollidablesProvider

	prev    r3.Vec
	hasPrev bool

	contacts []Contact
}

// NewCollisionResolver creates a resolver. A nil provider means an empty world.
func NewCollisionResolver(params ResolverParams, craft Collider, provider CollidablesProvider) *CollisionResolver {
	if provider == nil {
		provider = NoCollidables
	}
	if params.MaxIterations < 1 {
		params.MaxIterations = 1
	}
	return &CollisionResolver{params: params, craft: craft, provider: provider}
}

// SetParams replaces the tunables.
func (r *CollisionResolver) SetParams(p ResolverParams) {
	if p.MaxIterations < 1 {
		p.MaxIterations = 1
	}
	r.params = p
}

// Params returns the current tunables.
func (r *CollisionResolver) Params() ResolverParams { return r.params }

// Contacts returns the number of corrections applied by the last step.
func (r *CollisionResolver) Contacts() int { return len(r.contacts) }

// LastContacts returns the corrections applied by the last step.
// The slice is reused by the next step.
func (r *CollisionResolver) LastContacts() []Contact { return r.contacts }

// Reset forgets the previous position, disabling the swept test for one step.
// Call it after teleporting the craft.
func (r *CollisionResolver) Reset() { r.hasPrev = false }

// Step implements Contributor.
func (r *CollisionResolver) Step(dt float64) {
	r.contacts = r.contacts[:0]
	list := r.provider()

	if r.hasPrev {
		if c, ok := r.sweep(list, r.prev, r.craft.Position()); ok {
			r.apply(c)
		}
	}

	for range r.params.MaxIterations {
		c, ok := r.deepest(list)
		if !ok {
			break
		}
		r.apply(c)
	}

	r.prev = r.craft.Position()
	r.hasPrev = true
}

func (r *CollisionResolver) apply(c Contact) {
	r.contacts = append(r.contacts, c)

	push := c.Depth + r.params.Skin
	r.craft.SetPosition(r3.Add(r.craft.Position(), r3.Scale(push, c.Normal)))

	v := r.craft.Velocity()
	vn := r3.Dot(v, c.Normal)
	if vn >= 0 {
		return
	}
	normal := r3.Scale(vn, c.Normal)
	tangent := r3.Sub(v, normal)
	r.craft.SetVelocity(r3.Sub(
		r3.Scale(1-r.params.Friction, tangent),
		r3.Scale(r.params.Restitution, normal),
	))
}

// deepest returns the overlap with the largest penetration depth.
func (r *CollisionResolver) deepest(list []Collidable) (Contact, bool) {
	pos := r.craft.Position()
	radius := r.craft.Radius()

	var best Contact
	found := false
	for _, c := range list {
		if c == nil || !c.WorldBounds().Inflate(radius).Contains(pos) {
			continue
		}
		var (
			ct Contact
			ok bool
		)
		switch s := c.Shape(); s.Kind {
		case ShapeBounds:
			ct, ok = sphereBox(pos, radius, c.Transform(), s.Bounds)
		case ShapeMesh:
			ct, ok = sphereMesh(pos, radius, c.Transform(), s.Mesh, r.params.FrontFaceOnly)
		}
		if ok && (!found || ct.Depth > best.Depth) {
			ct.Entity = c.ID()
			best = ct
			found = true
		}
	}
	return best, found
}

// sweep raycasts the centre's motion since the last step and reports the
// first surface it crossed, placing the contact so the sphere ends outside.
func (r *CollisionResolver) sweep(list []Collidable, from, to r3.Vec) (Contact, bool) {
	if geom.Distance(from, to) < geom.Epsilon {
		return Contact{}, false
	}
	bestT := math.Inf(1)
	var best Contact
	for _, c := range list {
		if c == nil {
			continue
		}
		if _, ok := geom.SegmentAABBFirstHit(from, to, c.WorldBounds()); !ok {
			continue
		}
		tr := c.Transform()
		la, lb := tr.Inverse(from), tr.Inverse(to)

		var (
			t      float64
			point  r3.Vec
			normal r3.Vec
			hit    bool
		)
		switch s := c.Shape(); s.Kind {
		case ShapeBounds:
			if s.Bounds.Contains(la) {
				continue
			}
			if t, hit = geom.SegmentAABBFirstHit(la, lb, s.Bounds); hit {
				point = geom.Lerp(la, lb, t)
				normal = s.Bounds.FaceNormal(point)
			}
		case ShapeMesh:
			if s.Mesh == nil {
				continue
			}
			var th geom.TriHit
			if th, hit = geom.SegmentTriangleFirstHit(la, lb, s.Mesh, r.params.FrontFaceOnly); hit {
				t, point, normal = th.T, th.Point, th.Normal
			}
		}
		if !hit || t >= bestT {
			continue
		}
		bestT = t
		wp := tr.Apply(point)
		wn := tr.ApplyNormal(normal)
		// depth is how far the end position sits behind the surface, plus the radius
		behind := -r3.Dot(r3.Sub(to, wp), wn)
		best = Contact{
			Entity: c.ID(),
			Point:  wp,
			Normal: wn,
			Depth:  max(behind, 0) + r.craft.Radius(),
			Swept:  true,
		}
	}
	return best, !math.IsInf(bestT, 1)
}

func sphereBox(pos r3.Vec, radius float64, tr geom.Transform, box geom.AABB) (Contact, bool) {
	if box.IsEmpty() {
		return Contact{}, false
	}
	p := tr.Inverse(pos)
	lr := tr.InverseLength(radius)

	if box.Contains(p) {
		// centre inside: leave through the nearest face
		best := math.Inf(1)
		var n r3.Vec
		var surf r3.Vec
		for axis := geom.AxisX; axis <= geom.AxisZ; axis++ {
			lo := geom.Component(p, axis) - geom.Component(box.Min, axis)
			hi := geom.Component(box.Max, axis) - geom.Component(p, axis)
			if lo < best {
				best = lo
				n = geom.WithComponent(r3.Vec{}, axis, -1)
				surf = geom.WithComponent(p, axis, geom.Component(box.Min, axis))
			}
			if hi < best {
				best = hi
				n = geom.WithComponent(r3.Vec{}, axis, 1)
				surf = geom.WithComponent(p, axis, geom.Component(box.Max, axis))
			}
		}
		return Contact{
			Point:  tr.Apply(surf),
			Normal: tr.ApplyNormal(n),
			Depth:  tr.ApplyLength(best + lr),
		}, true
	}

	cp := box.ClosestPoint(p)
	d := r3.Sub(p, cp)
	dist := r3.Norm(d)
	if dist >= lr {
		return Contact{}, false
	}
	n, ok := geom.SafeUnit(d)
	if !ok {
		n = box.FaceNormal(cp)
	}
	return Contact{
		Point:  tr.Apply(cp),
		Normal: tr.ApplyNormal(n),
		Depth:  tr.ApplyLength(lr - dist),
	}, true
}

func sphereMesh(pos r3.Vec, radius float64, tr geom.Transform, m *geom.Mesh, frontFaceOnly bool) (Contact, bool) {
	if m == nil {
		return Contact{}, false
	}
	p := tr.Inverse(pos)
	lr := tr.InverseLength(radius)

	var best Contact
	bestDepth := 0.0
	found := false
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		face := m.FaceNormal(i)
		if frontFaceOnly && r3.Dot(r3.Sub(p, a), face) < 0 {
			continue
		}
		cp := geom.ClosestPointOnTriangle(p, a, b, c)
		d := r3.Sub(p, cp)
		dist := r3.Norm(d)
		if dist >= lr {
			continue
		}
		depth := lr - dist
		if found && depth <= bestDepth {
			continue
		}
		n, ok := geom.SafeUnit(d)
		if !ok {
			n = face
		}
		bestDepth = depth
		best = Contact{Point: cp, Normal: n}
		found = true
	}
	if !found {
		return Contact{}, false
	}
	best.Point = tr.Apply(best.Point)
	best.Normal = tr.ApplyNormal(best.Normal)
	best.Depth = tr.ApplyLength(bestDepth)
	return best, true
}
