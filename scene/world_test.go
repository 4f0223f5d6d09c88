package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/components"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/physics"
)

func unitBox() geom.AABB {
	return geom.AABB{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}
}

func TestWorldAddAndList(t *testing.T) {
	w := NewWorld()
	assert.Empty(t, w.Collidables())

	wall := w.AddBox(components.KindWall, unitBox(), geom.Translation(r3.Vec{Z: 10}))
	rock := w.AddAsteroid(AsteroidParams{Radius: 5, Subdivisions: 1, Seed: 3}, geom.Translation(r3.Vec{X: 50}),
		components.Spin{Axis: r3.Vec{Y: 1}, Rate: 1})
	assert.Equal(t, uint64(1), wall)
	assert.Equal(t, uint64(2), rock)
	assert.Equal(t, 2, w.Len())

	list := w.Collidables()
	require.Len(t, list, 2)
	assert.Equal(t, wall, list[0].ID(), "ordered by id regardless of archetype")
	assert.Equal(t, rock, list[1].ID())

	assert.Equal(t, physics.ShapeBounds, list[0].Shape().Kind)
	assert.Equal(t, r3.Vec{X: -1, Y: -1, Z: 9}, list[0].WorldBounds().Min)
	assert.Equal(t, physics.ShapeMesh, list[1].Shape().Kind)
	assert.NotNil(t, list[1].Shape().Mesh)

	h, ok := w.Get(rock)
	require.True(t, ok)
	assert.Equal(t, components.KindAsteroid, h.Kind())
	assert.InDelta(t, 5, h.Radius(), 1e-9)
}

func TestWorldSpinKeepsHandles(t *testing.T) {
	w := NewWorld()
	id := w.AddAsteroid(AsteroidParams{Radius: 5, Seed: 1}, geom.Identity(),
		components.Spin{Axis: r3.Vec{Z: 2}, Rate: math.Pi / 2})
	before, _ := w.Get(id)

	w.Step(1)

	after, ok := w.Get(id)
	require.True(t, ok)
	assert.Same(t, before, after, "handles are refreshed in place")

	rotated := after.Transform().ApplyDir(r3.Vec{X: 1})
	assert.InDelta(t, 0, rotated.X, 1e-9)
	assert.InDelta(t, 1, rotated.Y, 1e-9)
}

func TestWorldDrift(t *testing.T) {
	w := NewWorld()
	id := w.AddBox(components.KindBlock, unitBox(), geom.Identity())
	require.True(t, w.SetDrift(id, r3.Vec{X: 2}))
	require.True(t, w.SetDrift(id, r3.Vec{X: 4}), "a second call replaces the velocity")

	w.Step(0.5)
	w.Step(0.5)

	tr, ok := w.Transform(id)
	require.True(t, ok)
	assert.InDelta(t, 4, tr.Position.X, 1e-9)
	assert.InDelta(t, 3, w.Collidables()[0].WorldBounds().Min.X, 1e-9)
	assert.False(t, w.SetDrift(99, r3.Vec{}))
}

func TestWorldSetTransformAndRemove(t *testing.T) {
	w := NewWorld()
	a := w.AddBox(components.KindBlock, unitBox(), geom.Identity())
	b := w.AddBox(components.KindBlock, unitBox(), geom.Identity())
	w.SetDrift(b, r3.Vec{Y: 1})

	require.True(t, w.SetTransform(a, geom.Translation(r3.Vec{Z: -5})))
	ha, _ := w.Get(a)
	assert.Equal(t, -5.0, ha.Transform().Position.Z)

	require.True(t, w.Remove(a))
	assert.False(t, w.Remove(a))
	_, ok := w.Get(a)
	assert.False(t, ok)
	list := w.Collidables()
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].ID())
	assert.Nil(t, physics.Find(list, a))

	c := w.AddBox(components.KindBlock, unitBox(), geom.Identity())
	assert.Equal(t, uint64(3), c, "ids are never reused")

	// the removed entity no longer drifts
	w.Step(1)
	hb, _ := w.Get(b)
	assert.InDelta(t, 1, hb.Transform().Position.Y, 1e-9)
}
