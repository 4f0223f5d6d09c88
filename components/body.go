package components

import "github.com/pthm-cable/grapple/physics"

// Collider holds an entity's collision geometry in its local frame.
type Collider struct {
	Shape physics.Shape
}

// Body holds the identity and size of a collidable entity.
// ID is stable for the life of the entity and never reused, unlike ecs.Entity.
type Body struct {
	ID     uint64
	Kind   Kind
	Radius float64 // bounding sphere radius in local units
	Seed   int64   // noise seed for procedural meshes
}
