package tether

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/physics"
)

// MaxTethers is the number of tether slots a craft can carry.
const MaxTethers = 2

type intentKind uint8

const (
	intentFire intentKind = iota
	intentPull
	intentRelease
	intentReleaseAll
)

type intent struct {
	kind   intentKind
	index  int
	origin r3.Vec
	dir    r3.Vec
	on     bool
}

// Controller owns the craft's tethers. Input is sampled outside the fixed step
// and queued as intents; the queue is drained in order at the start of the next
// step, then every tether steps in index order.
type Controller struct {
	tethers []*Tether
	queue   []intent
}

// NewController creates n tether slots (clamped to 1..MaxTethers) sharing params,
// craft and provider.
func NewController(n int, params Params, craft physics.Craft, provider physics.CollidablesProvider) *Controller {
	n = min(max(n, 1), MaxTethers)
	c := &Controller{tethers: make([]*Tether, n)}
	for i := range c.tethers {
		c.tethers[i] = New(i, params, craft, provider)
	}
	return c
}

// Len returns the number of slots.
func (c *Controller) Len() int { return len(c.tethers) }

// Tether returns slot i, or nil when out of range.
func (c *Controller) Tether(i int) *Tether {
	if i < 0 || i >= len(c.tethers) {
		return nil
	}
	return c.tethers[i]
}

// SetParams applies params to every slot.
func (c *Controller) SetParams(p Params) {
	for _, t := range c.tethers {
		t.SetParams(p)
	}
}

// SetListener installs the event callback on every slot.
func (c *Controller) SetListener(l Listener) {
	for _, t := range c.tethers {
		t.SetListener(l)
	}
}

// Fire queues a shot for slot i.
func (c *Controller) Fire(i int, origin, dir r3.Vec) {
	c.push(intent{kind: intentFire, index: i, origin: origin, dir: dir})
}

// SetPulling queues a reel on/off change for slot i.
func (c *Controller) SetPulling(i int, on bool) {
	c.push(intent{kind: intentPull, index: i, on: on})
}

// Release queues a release of slot i.
func (c *Controller) Release(i int) {
	c.push(intent{kind: intentRelease, index: i})
}

// ReleaseAll queues a release of every slot.
func (c *Controller) ReleaseAll() {
	c.push(intent{kind: intentReleaseAll})
}

// Resync flags every slot anchored to entity id after the entity jumped, so
// the jump is not damped as anchor motion. It takes effect on the next step.
func (c *Controller) Resync(id uint64) {
	for _, t := range c.tethers {
		if got, ok := t.AttachedID(); ok && got == id {
			t.Resync()
		}
	}
}

// Pending returns the number of queued intents.
func (c *Controller) Pending() int { return len(c.queue) }

func (c *Controller) push(in intent) {
	if in.kind != intentReleaseAll && c.Tether(in.index) == nil {
		return
	}
	c.queue = append(c.queue, in)
}

// Step implements physics.Contributor.
func (c *Controller) Step(dt float64) {
	for _, in := range c.queue {
		switch in.kind {
		case intentFire:
			c.tethers[in.index].Fire(in.origin, in.dir)
		case intentPull:
			c.tethers[in.index].SetPulling(in.on)
		case intentRelease:
			c.tethers[in.index].Release()
		case intentReleaseAll:
			for _, t := range c.tethers {
				t.Release()
			}
		}
	}
	c.queue = c.queue[:0]

	for _, t := range c.tethers {
		t.Step(dt)
	}
}
