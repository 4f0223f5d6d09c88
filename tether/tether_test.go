package tether

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/physics"
)

const (
	testDT = 0.01
	wallID = 42
)

type world struct {
	list []physics.Collidable
}

func (w *world) provider() []physics.Collidable { return w.list }

type recorder struct {
	events []Event
}

func (r *recorder) listen(e Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func testParams() Params {
	p := DefaultParams()
	p.ProjectileSpeed = 1000
	p.MaxRange = 1000
	return p
}

func wall() *physics.StaticCollidable {
	box := geom.AABB{Min: geom.Vec(-50, -50, 500), Max: geom.Vec(50, 50, 510)}
	return physics.NewStaticCollidable(wallID, geom.Identity(), physics.BoundsShape(box))
}

func newCraft() *physics.KinematicBody {
	return physics.NewKinematicBody(physics.BodyParams{Mass: 100, MaxSpeed: 1000, Radius: 1}, r3.Vec{})
}

func newTether(p Params, craft physics.Craft, w *world) (*Tether, *recorder) {
	rec := &recorder{}
	t := New(0, p, craft, w.provider)
	t.SetListener(rec.listen)
	return t, rec
}

// stepUntil steps t until it leaves state from, failing after limit steps.
func stepUntil(tb testing.TB, t *Tether, from State, limit int) {
	tb.Helper()
	for i := 0; i < limit; i++ {
		t.Step(testDT)
		if t.State() != from {
			return
		}
	}
	tb.Fatalf("tether still %v after %d steps", from, limit)
}

func fireAtWall(t *testing.T, p Params) (*Tether, *physics.KinematicBody, *world, *recorder) {
	t.Helper()
	craft := newCraft()
	w := &world{list: []physics.Collidable{wall()}}
	tt, rec := newTether(p, craft, w)
	require.True(t, tt.Fire(r3.Vec{}, geom.Vec(0, 0, 1)))
	stepUntil(t, tt, Firing, 100)
	require.Equal(t, Attached, tt.State())
	return tt, craft, w, rec
}

func TestTetherLifecycle(t *testing.T) {
	craft := newCraft()
	w := &world{list: []physics.Collidable{wall()}}
	tt, rec := newTether(testParams(), craft, w)

	assert.Equal(t, Idle, tt.State())
	require.True(t, tt.Fire(r3.Vec{}, geom.Vec(0, 0, 3)))
	assert.Equal(t, Firing, tt.State())
	assert.NotEqual(t, uuid.Nil, tt.ShotID())
	_, ok := tt.AnchorLocal()
	assert.False(t, ok)

	prev := tt.TipDistance()
	for tt.State() == Firing {
		tt.Step(testDT)
		if tt.State() == Firing {
			require.GreaterOrEqual(t, tt.TipDistance(), prev)
			prev = tt.TipDistance()
		}
	}
	require.Equal(t, Attached, tt.State())

	anchor, ok := tt.AnchorLocal()
	require.True(t, ok)
	assert.InDelta(t, 500, anchor.Z, 1e-9)
	assert.InDelta(t, 500, tt.AnchorWorld().Z, 1e-9)
	assert.InDelta(t, 500, tt.RestLength(), 1e-9)
	assertVec(t, geom.Vec(0, 0, -1), tt.AttachNormal())
	id, ok := tt.AttachedID()
	require.True(t, ok)
	assert.Equal(t, uint64(wallID), id)
	assert.NotNil(t, tt.Attached())

	start, end, visible := tt.Beam()
	assert.True(t, visible)
	assertVec(t, r3.Vec{}, start)
	assert.InDelta(t, 500, end.Z, 1e-9)

	tt.Release()
	assert.Equal(t, Detached, tt.State())
	assert.Nil(t, tt.Attached())
	_, ok = tt.AnchorLocal()
	assert.False(t, ok)
	_, _, visible = tt.Beam()
	assert.False(t, visible)

	tt.Step(testDT)
	assert.Equal(t, Idle, tt.State())

	assert.Equal(t, []EventKind{EventFired, EventAttached, EventReleased}, rec.kinds())
	for _, e := range rec.events {
		assert.Equal(t, rec.events[0].Shot, e.Shot)
	}
	assert.Equal(t, uint64(wallID), rec.events[1].Entity)
}

func TestTetherFireRejected(t *testing.T) {
	craft := newCraft()
	w := &world{list: []physics.Collidable{wall()}}
	tt, rec := newTether(testParams(), craft, w)

	assert.False(t, tt.Fire(r3.Vec{}, r3.Vec{}), "zero direction")
	assert.Equal(t, Idle, tt.State())

	require.True(t, tt.Fire(r3.Vec{}, geom.Vec(0, 0, 1)))
	shot := tt.ShotID()
	assert.False(t, tt.Fire(r3.Vec{}, geom.Vec(1, 0, 0)), "while firing")
	assert.Equal(t, shot, tt.ShotID())

	stepUntil(t, tt, Firing, 100)
	assert.False(t, tt.Fire(r3.Vec{}, geom.Vec(1, 0, 0)), "while attached")
	assert.Len(t, rec.events, 2)
}

func TestTetherFireFromDetached(t *testing.T) {
	tt, _, _, _ := fireAtWall(t, testParams())
	first := tt.ShotID()
	tt.Release()
	require.Equal(t, Detached, tt.State())
	require.True(t, tt.Fire(r3.Vec{}, geom.Vec(0, 0, 1)))
	assert.NotEqual(t, first, tt.ShotID())
}

func TestTetherEmitOffsetHeldPerShot(t *testing.T) {
	craft := newCraft()
	w := &world{}
	tt, _ := newTether(testParams(), craft, w)

	require.True(t, tt.Fire(geom.Vec(2, 0, 0), geom.Vec(0, 0, 1)))
	assertVec(t, geom.Vec(2, 0, 0), tt.EmitOffset())

	craft.SetPosition(geom.Vec(10, 0, 0))
	start, _, visible := tt.Beam()
	require.True(t, visible)
	assertVec(t, geom.Vec(12, 0, 0), start)
}

func TestTetherSpringClampsAtMaxForce(t *testing.T) {
	p := testParams()
	tt, craft, _, _ := fireAtWall(t, p)

	craft.SetPosition(geom.Vec(0, 0, -100000))
	tt.Step(testDT)
	assert.Equal(t, p.MaxForce, tt.Tension())
	assert.InDelta(t, p.MaxForce, r3.Norm(craft.Force()), 1e-9)
	assert.Greater(t, craft.Force().Z, 0.0, "tether pulls toward the anchor")
}

func TestTetherSpringDamperForce(t *testing.T) {
	p := testParams()
	p.MaxForce = 1e6
	tt, craft, _, _ := fireAtWall(t, p)

	// rest 500, distance 600: stretch 100
	craft.SetPosition(geom.Vec(0, 0, -100))
	craft.SetVelocity(geom.Vec(3, 0, 10))
	tt.Step(testDT)

	// k=400, m=100: c = 2*0.7*200 = 280, c_perp = 2*0.3*200 = 120
	want := geom.Vec(-120*3, 0, 400*100-280*10)
	assertVec(t, want, tt.LastForce())
	assertVec(t, want, craft.Force())
	assert.InDelta(t, 37200, tt.Tension(), 1e-6)
}

func TestTetherNeverPushes(t *testing.T) {
	p := testParams()
	p.MaxForce = 1e6
	tt, craft, _, _ := fireAtWall(t, p)

	// taut but closing fast: the damper term exceeds the spring term
	craft.SetPosition(geom.Vec(0, 0, -1))
	craft.SetVelocity(geom.Vec(0, 0, 100))
	tt.Step(testDT)
	assert.Equal(t, 0.0, tt.Tension())
	f := craft.Force()
	assert.InDelta(t, 0, f.X, 1e-9)
	assert.InDelta(t, 0, f.Y, 1e-9)
	assert.InDelta(t, 0, f.Z, 1e-9)
}

func TestTetherNeverPushesOffAxis(t *testing.T) {
	p := testParams()
	p.MaxForce = 1e6
	p.PerpDampingRatio = 3
	tt, craft, _, _ := fireAtWall(t, p)

	// tether at an odd angle, closing fast with a large sideways drift
	craft.SetPosition(geom.Vec(7.3, -11.9, -3.7))
	craft.SetVelocity(geom.Vec(250, -130, 400))
	tt.Step(testDT)

	u, ok := geom.SafeUnit(r3.Sub(tt.AnchorWorld(), tt.EmitPoint()))
	require.True(t, ok)
	assert.Equal(t, 0.0, tt.Tension())
	assert.GreaterOrEqual(t, r3.Dot(craft.Force(), u), -1e-9, "force has no component toward the craft")
}

func TestTetherClampIncludesLateralDamping(t *testing.T) {
	p := testParams()
	p.MaxForce = 1000
	p.PerpDampingRatio = 5
	tt, craft, _, _ := fireAtWall(t, p)

	// 2000 out from the anchor and sliding sideways
	craft.SetPosition(geom.Vec(0, 0, -1500))
	craft.SetVelocity(geom.Vec(300, 0, 0))
	tt.Step(testDT)

	f := craft.Force()
	assert.InDelta(t, p.MaxForce, r3.Norm(f), 1e-9)
	assert.LessOrEqual(t, tt.Tension(), p.MaxForce)
	assert.Greater(t, f.Z, 0.0, "still pulls toward the anchor")
	assert.Less(t, f.X, 0.0, "still resists the sideways drift")
}

func TestTetherTipNeverMovesBack(t *testing.T) {
	p := testParams()
	tt, rec := newTether(p, newCraft(), &world{})
	require.True(t, tt.Fire(r3.Vec{}, geom.Vec(0, 0, 1)))
	for range 50 {
		tt.Step(testDT)
	}
	require.Equal(t, Firing, tt.State())
	before := tt.TipDistance()
	require.InDelta(t, 500, before, 1e-9)

	p.MaxRange = 100
	tt.SetParams(p)
	tt.Step(testDT)

	assert.Equal(t, Detached, tt.State())
	assert.GreaterOrEqual(t, tt.TipDistance(), before)
	assert.Equal(t, []EventKind{EventFired, EventMissed}, rec.kinds())
}

func TestTetherTipAdvancesAfterRangeRaised(t *testing.T) {
	p := testParams()
	tt, _ := newTether(p, newCraft(), &world{})
	require.True(t, tt.Fire(r3.Vec{}, geom.Vec(0, 0, 1)))
	tt.Step(testDT)

	p.MaxRange = 5000
	tt.SetParams(p)
	last := tt.TipDistance()
	for range 20 {
		tt.Step(testDT)
		require.Equal(t, Firing, tt.State())
		assert.Greater(t, tt.TipDistance(), last)
		last = tt.TipDistance()
	}
}

func TestTetherResyncIgnoresAnchorJump(t *testing.T) {
	p := testParams()
	p.MaxForce = 1e6
	run := func(resync bool) float64 {
		tt, craft, w, _ := fireAtWall(t, p)
		craft.SetPosition(geom.Vec(0, 0, -100))
		tt.Step(testDT)

		w.list[0].(*physics.StaticCollidable).Frame = geom.Translation(geom.Vec(0, 0, 50))
		if resync {
			tt.Resync()
		}
		tt.Step(testDT)
		return tt.Tension()
	}

	// rest 500, distance 650: spring only
	assert.InDelta(t, 400*150, run(true), 1e-6)
	assert.Greater(t, run(false), 400*150.0, "an unflagged jump reads as anchor velocity")
}

func TestTetherSlack(t *testing.T) {
	tt, craft, _, _ := fireAtWall(t, testParams())
	craft.SetPosition(geom.Vec(0, 0, 100))
	tt.Step(testDT)
	assert.Equal(t, 0.0, tt.Tension())
	assert.Equal(t, r3.Vec{}, craft.Force())
}

func TestTetherReel(t *testing.T) {
	p := testParams()
	tt, _, _, _ := fireAtWall(t, p)

	tt.SetPulling(true)
	tt.Step(testDT)
	assert.InDelta(t, 500-p.ReelRate*testDT, tt.RestLength(), 1e-9)

	for i := 0; i < 2000; i++ {
		tt.Step(testDT)
	}
	assert.Equal(t, p.MinRestLength, tt.RestLength())

	tt.SetPulling(false)
	tt.Step(testDT)
	assert.Equal(t, p.MinRestLength, tt.RestLength())
}

func TestTetherLostEntity(t *testing.T) {
	tt, craft, w, rec := fireAtWall(t, testParams())
	craft.SetPosition(geom.Vec(0, 0, -100))

	w.list = nil
	tt.Step(testDT)
	assert.Equal(t, Detached, tt.State())
	assert.Nil(t, tt.Attached())
	assert.Equal(t, r3.Vec{}, craft.Force(), "no force once the anchor is gone")
	_, _, visible := tt.Beam()
	assert.False(t, visible)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, EventLost, last.Kind)
	assert.Equal(t, uint64(wallID), last.Entity)

	tt.Step(testDT)
	assert.Equal(t, Idle, tt.State())
}

func TestTetherAnchorTracksMovingEntity(t *testing.T) {
	craft := newCraft()
	wl := wall()
	w := &world{list: []physics.Collidable{wl}}
	tt, _ := newTether(testParams(), craft, w)
	require.True(t, tt.Fire(geom.Vec(10, 0, 0), geom.Vec(0, 0, 1)))
	stepUntil(t, tt, Firing, 100)
	require.Equal(t, Attached, tt.State())

	wl.Frame = geom.Transform{
		Position: geom.Vec(0, 20, 0),
		Rotation: geom.AxisAngle(geom.Vec(0, 0, 1), 0),
		Scale:    1,
	}
	tt.Step(testDT)
	assertVec(t, geom.Vec(10, 20, 500), tt.AnchorWorld())
}

func TestTetherMiss(t *testing.T) {
	p := testParams()
	p.MaxRange = 100
	craft := newCraft()
	tt, rec := newTether(p, craft, &world{list: []physics.Collidable{wall()}})

	require.True(t, tt.Fire(r3.Vec{}, geom.Vec(0, 0, -1)))
	stepUntil(t, tt, Firing, 100)
	assert.Equal(t, Detached, tt.State())
	assert.InDelta(t, 100, tt.TipDistance(), 1e-9)
	_, _, visible := tt.Beam()
	assert.False(t, visible)

	tt.Step(testDT)
	assert.Equal(t, Idle, tt.State())
	assert.Equal(t, []EventKind{EventFired, EventMissed}, rec.kinds())
}

func TestTetherPersistMiss(t *testing.T) {
	p := testParams()
	p.MaxRange = 100
	p.PersistMiss = true
	p.PersistRange = 50
	craft := newCraft()
	tt, _ := newTether(p, craft, &world{})

	require.True(t, tt.Fire(r3.Vec{}, geom.Vec(0, 0, -1)))
	stepUntil(t, tt, Firing, 100)
	require.Equal(t, Detached, tt.State())
	assert.True(t, tt.Persisting())

	tt.Step(testDT)
	_, end, visible := tt.Beam()
	assert.True(t, visible)
	assert.InDelta(t, -110, end.Z, 1e-9)

	for i := 0; i < 10 && tt.State() == Detached; i++ {
		tt.Step(testDT)
	}
	assert.Equal(t, Idle, tt.State())
	_, _, visible = tt.Beam()
	assert.False(t, visible)
}

func TestTetherReleaseWhileIdleIsQuiet(t *testing.T) {
	tt, rec := newTether(testParams(), newCraft(), &world{})
	tt.Release()
	assert.Equal(t, Idle, tt.State())
	assert.Empty(t, rec.events)
}

func missableTriangle() *physics.StaticCollidable {
	tri := &geom.Mesh{
		Vertices: []r3.Vec{geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(0, 1, 0)},
		Faces:    [][3]int{{0, 1, 2}},
	}
	return physics.NewStaticCollidable(7, geom.Translation(geom.Vec(0, 0, 500)), physics.MeshShape(tri))
}

func TestTetherAABBFallback(t *testing.T) {
	for _, fallback := range []bool{false, true} {
		p := testParams()
		p.MaxRange = 600
		p.AABBFallback = fallback
		craft := newCraft()
		tt, _ := newTether(p, craft, &world{list: []physics.Collidable{missableTriangle()}})

		// passes through the triangle's box but outside its hypotenuse
		require.True(t, tt.Fire(geom.Vec(0.8, 0.8, 0), geom.Vec(0, 0, 1)))
		stepUntil(t, tt, Firing, 100)

		if !fallback {
			assert.Equal(t, Detached, tt.State(), "exact mesh test must miss")
			continue
		}
		require.Equal(t, Attached, tt.State())
		assert.InDelta(t, 500-p.AABBInflation, tt.AnchorWorld().Z, 1e-9)
		assertVec(t, geom.Vec(0, 0, -1), tt.AttachNormal())
	}
}

func TestTetherRetryOppositeWinding(t *testing.T) {
	for _, retry := range []bool{false, true} {
		p := testParams()
		p.MaxRange = 600
		p.FrontFaceOnly = true
		p.RetryOppositeWinding = retry
		craft := newCraft()
		tt, _ := newTether(p, craft, &world{list: []physics.Collidable{missableTriangle()}})

		// the triangle faces +Z, so a shot travelling +Z sees its back
		require.True(t, tt.Fire(geom.Vec(0.2, 0.2, -5), geom.Vec(0, 0, 1)))
		stepUntil(t, tt, Firing, 100)

		if !retry {
			assert.Equal(t, Detached, tt.State())
			continue
		}
		require.Equal(t, Attached, tt.State())
		assertVec(t, geom.Vec(0.2, 0.2, 500), tt.AnchorWorld())
		assertVec(t, geom.Vec(0, 0, -1), tt.AttachNormal())
	}
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	p := DefaultParams()
	p.Stiffness = 0
	p.ReelRate = -1
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stiffness")
	assert.Contains(t, err.Error(), "reel_rate")
}

func assertVec(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, 0, geom.Distance(want, got), 1e-9, "want %v got %v", want, got)
}
