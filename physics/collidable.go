// Package physics contains the fixed-step simulation core: the kinematic craft body,
// the contributor protocol and scheduler, thrust and craft-vs-mesh collision.
package physics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
)

// ShapeKind tags which variant a Shape holds.
type ShapeKind uint8

const (
	// ShapeBounds is a solid box given by a local-space AABB.
	ShapeBounds ShapeKind = iota
	// ShapeMesh is an indexed triangle mesh in local space.
	ShapeMesh
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBounds:
		return "bounds"
	case ShapeMesh:
		return "mesh"
	default:
		return "unknown"
	}
}

// Shape is the collision geometry of a collidable, either Bounds or Mesh.
// Consumers switch on Kind; only the field matching Kind is meaningful.
type Shape struct {
	Kind   ShapeKind
	Mesh   *geom.Mesh
	Bounds geom.AABB
}

// MeshShape wraps a local-space mesh. Bounds caches the mesh's local box.
func MeshShape(m *geom.Mesh) Shape {
	if m == nil {
		return Shape{Kind: ShapeMesh, Bounds: geom.EmptyAABB()}
	}
	return Shape{Kind: ShapeMesh, Mesh: m, Bounds: m.Bounds()}
}

// BoundsShape wraps a local-space box.
func BoundsShape(b geom.AABB) Shape {
	return Shape{Kind: ShapeBounds, Bounds: b}
}

// LocalBounds returns the local-space box of either variant.
func (s Shape) LocalBounds() geom.AABB {
	return s.Bounds
}

// Collidable is a read-only view of a world object the core can hit or collide with.
// The presentation layer owns the object; the core never mutates or retains it
// beyond the current step, except by ID.
type Collidable interface {
	ID() uint64
	Transform() geom.Transform
	Shape() Shape
	WorldBounds() geom.AABB
}

// CollidablesProvider returns the collidables present at call time.
// It is polled every fixed step.
type CollidablesProvider func() []Collidable

// NoCollidables is a provider for an empty world.
func NoCollidables() []Collidable { return nil }

// Find returns the collidable with the given id, if present.
func Find(list []Collidable, id uint64) Collidable {
	for _, c := range list {
		if c != nil && c.ID() == id {
			return c
		}
	}
	return nil
}

// StaticCollidable is a fixed collidable, used for walls and tests.
type StaticCollidable struct {
	Key   uint64
	Frame geom.Transform
	Geom  Shape
}

// NewStaticCollidable builds a StaticCollidable.
func NewStaticCollidable(id uint64, frame geom.Transform, shape Shape) *StaticCollidable {
	return &StaticCollidable{Key: id, Frame: frame, Geom: shape}
}

func (s *StaticCollidable) ID() uint64                { return s.Key }
func (s *StaticCollidable) Transform() geom.Transform { return s.Frame }
func (s *StaticCollidable) Shape() Shape              { return s.Geom }

// WorldBounds transforms the local box into world space.
func (s *StaticCollidable) WorldBounds() geom.AABB {
	return s.Geom.LocalBounds().Transformed(s.Frame)
}

// Craft is the adapter through which contributors read and push the craft.
type Craft interface {
	Position() r3.Vec
	Velocity() r3.Vec
	Mass() float64
	ApplyForce(f r3.Vec)
}

// Collider is a Craft that also accepts positional corrections.
type Collider interface {
	Craft
	Radius() float64
	SetPosition(p r3.Vec)
	SetVelocity(v r3.Vec)
}
