package scene

import (
	"slices"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/physics"
)

// Handle is the read-only view of one world entity handed to the physics core.
// A handle keeps its identity for the life of the entity and is refreshed in
// place when the entity moves.
type Handle struct {
	id     uint64
	kind   components.Kind
	frame  geom.Transform
	shape  physics.Shape
	bounds geom.AABB
	radius float64
}

func (h *Handle) ID() uint64                { return h.id }
func (h *Handle) Kind() components.Kind     { return h.kind }
func (h *Handle) Transform() geom.Transform { return h.frame }
func (h *Handle) Shape() physics.Shape      { return h.shape }
func (h *Handle) WorldBounds() geom.AABB    { return h.bounds }

// Radius returns the world-space bounding sphere radius.
func (h *Handle) Radius() float64 { return h.radius }

// World owns the collidable entities of the demo in an ark ECS world.
type World struct {
	ecs *ecs.World

	bodyMapper *ecs.Map3[components.Transform, components.Collider, components.Body]
	spinMap    *ecs.Map1[components.Spin]
	driftMap   *ecs.Map1[components.Drift]
	frameMap   *ecs.Map1[components.Transform]

	bodyFilter  *ecs.Filter3[components.Transform, components.Collider, components.Body]
	spinFilter  *ecs.Filter2[components.Transform, components.Spin]
	driftFilter *ecs.Filter2[components.Transform, components.Drift]

	byID     map[uint64]ecs.Entity
	handles  map[uint64]*Handle
	drifting map[uint64]bool
	list     []physics.Collidable
	dirty    bool
	nextID   uint64
}

// NewWorld creates an empty world.
func NewWorld() *World {
	world := ecs.NewWorld()
	return &World{
		ecs:         world,
		bodyMapper:  ecs.NewMap3[components.Transform, components.Collider, components.Body](world),
		spinMap:     ecs.NewMap1[components.Spin](world),
		driftMap:    ecs.NewMap1[components.Drift](world),
		frameMap:    ecs.NewMap1[components.Transform](world),
		bodyFilter:  ecs.NewFilter3[components.Transform, components.Collider, components.Body](world),
		spinFilter:  ecs.NewFilter2[components.Transform, components.Spin](world),
		driftFilter: ecs.NewFilter2[components.Transform, components.Drift](world),
		byID:        make(map[uint64]ecs.Entity),
		handles:     make(map[uint64]*Handle),
		drifting:    make(map[uint64]bool),
		nextID:      1,
	}
}

// Len returns the number of collidable entities.
func (w *World) Len() int { return len(w.byID) }

func (w *World) spawn(kind components.Kind, frame geom.Transform, shape physics.Shape, radius float64, seed int64) (uint64, ecs.Entity) {
	id := w.nextID
	w.nextID++
	e := w.bodyMapper.NewEntity(
		&components.Transform{Frame: frame},
		&components.Collider{Shape: shape},
		&components.Body{ID: id, Kind: kind, Radius: radius, Seed: seed},
	)
	w.byID[id] = e
	w.dirty = true
	return id, e
}

// AddAsteroid generates a procedural asteroid at frame and returns its id.
// A zero spin rate leaves it static.
func (w *World) AddAsteroid(p AsteroidParams, frame geom.Transform, spin components.Spin) uint64 {
	mesh := GenerateAsteroid(p)
	id, e := w.spawn(components.KindAsteroid, frame, physics.MeshShape(mesh), p.BoundingRadius(), p.Seed)
	if spin.Rate != 0 {
		if axis, ok := geom.SafeUnit(spin.Axis); ok {
			spin.Axis = axis
			w.spinMap.Add(e, &spin)
		}
	}
	return id
}

// AddBox adds a solid box collider. The box is given in the entity's local frame.
func (w *World) AddBox(kind components.Kind, box geom.AABB, frame geom.Transform) uint64 {
	half := box.Extents()
	id, _ := w.spawn(kind, frame, physics.BoundsShape(box), r3.Norm(half), 0)
	return id
}

// AddMesh adds an arbitrary mesh collider.
func (w *World) AddMesh(kind components.Kind, mesh *geom.Mesh, frame geom.Transform) uint64 {
	shape := physics.MeshShape(mesh)
	radius := r3.Norm(shape.Bounds.Extents())
	id, _ := w.spawn(kind, frame, shape, radius, 0)
	return id
}

// SetDrift gives an entity a constant velocity.
func (w *World) SetDrift(id uint64, v r3.Vec) bool {
	e, ok := w.byID[id]
	if !ok {
		return false
	}
	if w.drifting[id] {
		w.driftMap.Get(e).Velocity = v
		return true
	}
	w.driftMap.Add(e, &components.Drift{Velocity: v})
	w.drifting[id] = true
	return true
}

// SetTransform moves an entity.
func (w *World) SetTransform(id uint64, frame geom.Transform) bool {
	e, ok := w.byID[id]
	if !ok {
		return false
	}
	w.frameMap.Get(e).Frame = frame
	w.dirty = true
	return true
}

// Transform returns an entity's current frame.
func (w *World) Transform(id uint64) (geom.Transform, bool) {
	e, ok := w.byID[id]
	if !ok {
		return geom.Transform{}, false
	}
	return w.frameMap.Get(e).Frame, true
}

// Remove deletes an entity. Tethers anchored to it detach on their next step.
func (w *World) Remove(id uint64) bool {
	e, ok := w.byID[id]
	if !ok {
		return false
	}
	if w.ecs.Alive(e) {
		w.ecs.RemoveEntity(e)
	}
	delete(w.byID, id)
	delete(w.handles, id)
	delete(w.drifting, id)
	w.dirty = true
	return true
}

// Collidables implements physics.CollidablesProvider. The returned slice is
// shared and valid until the world next changes.
func (w *World) Collidables() []physics.Collidable {
	if w.dirty {
		w.refresh()
	}
	return w.list
}

// Get returns the handle for id.
func (w *World) Get(id uint64) (*Handle, bool) {
	if w.dirty {
		w.refresh()
	}
	h, ok := w.handles[id]
	return h, ok
}

func (w *World) refresh() {
	w.list = w.list[:0]
	query := w.bodyFilter.Query()
	for query.Next() {
		tr, col, body := query.Get()
		h, ok := w.handles[body.ID]
		if !ok {
			h = &Handle{id: body.ID, kind: body.Kind}
			w.handles[body.ID] = h
		}
		h.frame = tr.Frame
		h.shape = col.Shape
		h.bounds = col.Shape.LocalBounds().Transformed(tr.Frame)
		h.radius = tr.Frame.ApplyLength(body.Radius)
		w.list = append(w.list, h)
	}
	// archetype order depends on which optional components are present
	slices.SortFunc(w.list, func(a, b physics.Collidable) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	w.dirty = false
}

// Step implements physics.Contributor: it advances spinning and drifting entities.
func (w *World) Step(dt float64) {
	moved := false

	spins := w.spinFilter.Query()
	for spins.Next() {
		tr, spin := spins.Get()
		delta := geom.AxisAngle(spin.Axis, spin.Rate*dt)
		rot := tr.Frame.Rotation
		if rot == (quat.Number{}) {
			rot = quat.Number{Real: 1}
		}
		tr.Frame.Rotation = geom.NormalizeQuat(quat.Mul(delta, rot))
		moved = true
	}

	drifts := w.driftFilter.Query()
	for drifts.Next() {
		tr, drift := drifts.Get()
		tr.Frame.Position = r3.Add(tr.Frame.Position, r3.Scale(dt, drift.Velocity))
		moved = true
	}

	if moved {
		w.dirty = true
	}
}
