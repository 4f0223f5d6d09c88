// Package tether implements the projectile tether: a shot that travels out from
// the craft, anchors to the first collidable it strikes and then pulls the craft
// with a clamped spring-damper until released.
package tether

import (
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/physics"
)

// State is the tether lifecycle state.
type State uint8

const (
	Idle State = iota
	Firing
	Attached
	Detached
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Firing:
		return "firing"
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Tether is one tether slot. It is created once and reused for every shot.
type Tether struct {
	index    int
	params   Params
	craft    physics.Craft
	provider physics.CollidablesProvider
	listener Listener

	state State
	shot  uuid.UUID

	origin     r3.Vec // world fire origin
	dir        r3.Vec // unit fire direction
	emitOffset r3.Vec // emission point relative to the craft, fixed per shot
	tipDist    float64

	// attachment; anchorLocal is only meaningful while Attached
	attachedID   uint64
	attached     physics.Collidable
	anchorLocal  r3.Vec
	anchorWorld  r3.Vec
	anchorPrev   r3.Vec
	attachNormal r3.Vec
	restLength   float64
	resync       bool

	pulling    bool
	persisting bool
	visible    bool

	tension   float64
	lastForce r3.Vec
}

// New creates an idle tether. A nil provider means an empty world.
func New(index int, params Params, craft physics.Craft, provider physics.CollidablesProvider) *Tether {
	if provider == nil {
		provider = physics.NoCollidables
	}
	return &Tether{index: index, params: params, craft: craft, provider: provider}
}

// SetListener installs the event callback. nil disables events.
func (t *Tether) SetListener(l Listener) { t.listener = l }

// SetParams replaces the tunables; the current shot picks them up on its next step.
func (t *Tether) SetParams(p Params) { t.params = p }

// Params returns the current tunables.
func (t *Tether) Params() Params { return t.params }

func (t *Tether) Index() int              { return t.index }
func (t *Tether) State() State            { return t.state }
func (t *Tether) ShotID() uuid.UUID       { return t.shot }
func (t *Tether) TipDistance() float64    { return t.tipDist }
func (t *Tether) RestLength() float64     { return t.restLength }
func (t *Tether) Pulling() bool           { return t.pulling }
func (t *Tether) Tension() float64        { return t.tension }
func (t *Tether) LastForce() r3.Vec       { return t.lastForce }
func (t *Tether) AttachNormal() r3.Vec    { return t.attachNormal }
func (t *Tether) EmitOffset() r3.Vec      { return t.emitOffset }
func (t *Tether) Direction() r3.Vec       { return t.dir }
func (t *Tether) Persisting() bool        { return t.persisting }
func (t *Tether) SetPulling(pulling bool) { t.pulling = pulling }

// Attached returns the collidable the tether is anchored to, or nil.
func (t *Tether) Attached() physics.Collidable {
	if t.state != Attached {
		return nil
	}
	return t.attached
}

// AttachedID returns the anchored collidable's id and whether there is one.
func (t *Tether) AttachedID() (uint64, bool) {
	return t.attachedID, t.state == Attached
}

// AnchorLocal returns the anchor in the attached collidable's frame.
func (t *Tether) AnchorLocal() (r3.Vec, bool) {
	return t.anchorLocal, t.state == Attached
}

// AnchorWorld returns the anchor as re-projected by the latest step.
func (t *Tether) AnchorWorld() r3.Vec { return t.anchorWorld }

// EmitPoint returns the current world emission point.
func (t *Tether) EmitPoint() r3.Vec {
	return r3.Add(t.craft.Position(), t.emitOffset)
}

// Beam returns the segment to draw and whether it should be drawn.
func (t *Tether) Beam() (start, end r3.Vec, visible bool) {
	if !t.visible {
		return r3.Vec{}, r3.Vec{}, false
	}
	start = t.EmitPoint()
	if t.state == Attached {
		return start, t.anchorWorld, true
	}
	return start, t.tip(), true
}

func (t *Tether) tip() r3.Vec {
	return r3.Add(t.origin, r3.Scale(t.tipDist, t.dir))
}

// Fire launches a shot from origin along direction. It is ignored while a shot
// is in flight or attached, and for a zero direction.
func (t *Tether) Fire(origin, direction r3.Vec) bool {
	if t.state != Idle && t.state != Detached {
		return false
	}
	dir, ok := geom.SafeUnit(direction)
	if !ok {
		return false
	}
	t.clearAttachment()
	t.origin = origin
	t.dir = dir
	t.emitOffset = r3.Sub(origin, t.craft.Position())
	t.tipDist = 0
	t.restLength = 0
	t.persisting = false
	t.visible = true
	t.shot = uuid.New()
	t.state = Firing
	t.emit(Event{Kind: EventFired})
	return true
}

// Release drops the tether from any state. It is hidden immediately.
func (t *Tether) Release() {
	active := t.state == Firing || t.state == Attached || t.visible
	t.clearAttachment()
	t.persisting = false
	t.visible = false
	t.pulling = false
	if t.state != Idle {
		t.state = Detached
	}
	if active {
		t.emit(Event{Kind: EventReleased, Distance: t.tipDist})
	}
}

// Step implements physics.Contributor.
func (t *Tether) Step(dt float64) {
	t.tension = 0
	t.lastForce = r3.Vec{}
	if !(dt > 0) {
		return
	}
	switch t.state {
	case Firing:
		t.stepFiring(dt)
	case Attached:
		t.stepAttached(dt)
	case Detached:
		t.stepDetached(dt)
	}
}

func (t *Tether) stepFiring(dt float64) {
	prev := t.tipDist
	if prev >= t.params.MaxRange {
		// range lowered mid-flight; the tip never moves back
		t.miss()
		return
	}
	t.tipDist = max(prev, min(prev+t.params.ProjectileSpeed*dt, t.params.MaxRange))
	a := r3.Add(t.origin, r3.Scale(prev, t.dir))
	b := t.tip()

	if h, ok := t.castSegment(a, b); ok {
		t.attach(h)
		return
	}
	if t.tipDist >= t.params.MaxRange {
		t.miss()
	}
}

type hit struct {
	t      float64
	entity physics.Collidable
	point  r3.Vec // world
	normal r3.Vec // world
}

// castSegment finds the closest collidable crossed by a->b.
func (t *Tether) castSegment(a, b r3.Vec) (hit, bool) {
	best := hit{t: math.Inf(1)}
	for _, c := range t.provider() {
		if c == nil {
			continue
		}
		inflated := c.WorldBounds().Inflate(t.params.AABBInflation)
		entry, ok := geom.SegmentAABBFirstHit(a, b, inflated)
		if !ok || entry >= best.t {
			continue
		}
		if h, ok := t.narrow(c, a, b, inflated, entry); ok && h.t < best.t {
			best = h
		}
	}
	return best, !math.IsInf(best.t, 1)
}

func (t *Tether) narrow(c physics.Collidable, a, b r3.Vec, inflated geom.AABB, entry float64) (hit, bool) {
	tr := c.Transform()
	la, lb := tr.Inverse(a), tr.Inverse(b)

	switch s := c.Shape(); s.Kind {
	case physics.ShapeBounds:
		lt, ok := geom.SegmentAABBFirstHit(la, lb, s.Bounds)
		if !ok {
			return hit{}, false
		}
		lp := geom.Lerp(la, lb, lt)
		return hit{
			t:      lt,
			entity: c,
			point:  tr.Apply(lp),
			normal: tr.ApplyNormal(s.Bounds.FaceNormal(lp)),
		}, true

	case physics.ShapeMesh:
		if s.Mesh != nil {
			th, ok := geom.SegmentTriangleFirstHit(la, lb, s.Mesh, t.params.FrontFaceOnly)
			if !ok && t.params.RetryOppositeWinding {
				th, ok = geom.SegmentTriangleFirstHit(la, lb, s.Mesh, !t.params.FrontFaceOnly)
			}
			if ok {
				return hit{
					t:      th.T,
					entity: c,
					point:  tr.Apply(th.Point),
					normal: tr.ApplyNormal(th.Normal),
				}, true
			}
		}
		if t.params.AABBFallback {
			p := geom.Lerp(a, b, entry)
			return hit{t: entry, entity: c, point: p, normal: inflated.FaceNormal(p)}, true
		}
	}
	return hit{}, false
}

func (t *Tether) attach(h hit) {
	tr := h.entity.Transform()
	t.attached = h.entity
	t.attachedID = h.entity.ID()
	t.anchorLocal = tr.Inverse(h.point)
	t.anchorWorld = h.point
	t.anchorPrev = h.point
	t.attachNormal = h.normal
	t.restLength = math.Max(geom.Distance(h.point, t.origin), t.params.MinRestLength)
	t.state = Attached
	t.emit(Event{
		Kind:     EventAttached,
		Entity:   t.attachedID,
		Point:    h.point,
		Normal:   h.normal,
		Distance: t.restLength,
	})
}

func (t *Tether) miss() {
	t.state = Detached
	t.persisting = t.params.PersistMiss
	t.visible = t.persisting
	t.emit(Event{Kind: EventMissed, Distance: t.tipDist})
}

func (t *Tether) stepAttached(dt float64) {
	c := physics.Find(t.provider(), t.attachedID)
	if c == nil {
		t.lose()
		return
	}
	t.attached = c
	t.anchorWorld = c.Transform().Apply(t.anchorLocal)
	if t.resync {
		t.anchorPrev = t.anchorWorld
		t.resync = false
	}
	anchorVel := r3.Scale(1/dt, r3.Sub(t.anchorWorld, t.anchorPrev))
	t.anchorPrev = t.anchorWorld

	p := t.params
	if t.pulling {
		t.restLength = math.Max(p.MinRestLength, t.restLength-p.ReelRate*dt)
	}

	d := r3.Sub(t.anchorWorld, t.EmitPoint())
	dist := r3.Norm(d)
	stretch := dist - t.restLength
	if stretch <= p.SlackEpsilon {
		return
	}
	u := r3.Vec{X: d.X / dist, Y: d.Y / dist, Z: d.Z / dist}

	km := math.Sqrt(p.Stiffness * t.craft.Mass())
	rel := r3.Sub(t.craft.Velocity(), anchorVel)
	vAlong, vPerp := geom.Split(rel, u)

	mag := p.Stiffness*stretch - 2*p.DampingRatio*km*vAlong
	mag = math.Min(math.Max(mag, 0), p.MaxForce)

	// the perpendicular damper must not leak along the tether
	perp := r3.Scale(-2*p.PerpDampingRatio*km, vPerp)
	perp = r3.Sub(perp, r3.Scale(r3.Dot(perp, u), u))

	// one budget for pull and damper together
	force := r3.Add(r3.Scale(mag, u), perp)
	if n := r3.Norm(force); n > p.MaxForce {
		scale := p.MaxForce / n
		force = r3.Scale(scale, force)
		mag *= scale
	}

	t.craft.ApplyForce(force)
	t.tension = mag
	t.lastForce = force
}

// Resync marks the anchor as moved discontinuously, so the next step does
// not read the jump as anchor velocity.
func (t *Tether) Resync() {
	if t.state == Attached {
		t.resync = true
	}
}

func (t *Tether) lose() {
	id := t.attachedID
	t.clearAttachment()
	t.visible = false
	t.pulling = false
	t.state = Detached
	t.emit(Event{Kind: EventLost, Entity: id})
}

func (t *Tether) stepDetached(dt float64) {
	if !t.persisting {
		t.visible = false
		t.state = Idle
		return
	}
	t.tipDist += t.params.ProjectileSpeed * dt
	if t.tipDist >= t.params.MaxRange+t.params.PersistRange {
		t.persisting = false
		t.visible = false
		t.state = Idle
	}
}

func (t *Tether) clearAttachment() {
	t.attached = nil
	t.attachedID = 0
	t.anchorLocal = r3.Vec{}
	t.anchorWorld = r3.Vec{}
	t.anchorPrev = r3.Vec{}
	t.resync = false
	t.attachNormal = r3.Vec{}
}

func (t *Tether) emit(e Event) {
	if t.listener == nil {
		return
	}
	e.Tether = t.index
	e.Shot = t.shot
	t.listener(e)
}
