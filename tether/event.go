package tether

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// EventKind identifies a tether lifecycle transition.
type EventKind uint8

const (
	EventFired EventKind = iota
	EventAttached
	EventMissed
	EventReleased
	EventLost // attached collidable disappeared
)

func (k EventKind) String() string {
	switch k {
	case EventFired:
		return "fired"
	case EventAttached:
		return "attached"
	case EventMissed:
		return "missed"
	case EventReleased:
		return "released"
	case EventLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Event describes one transition. Point and Normal are world space and only
// set for EventAttached; Distance is the rest length on attach and the
// travelled distance otherwise.
type Event struct {
	Kind     EventKind
	Tether   int
	Shot     uuid.UUID
	Entity   uint64
	Point    r3.Vec
	Normal   r3.Vec
	Distance float64
}

// Listener receives events synchronously from inside the fixed step.
type Listener func(Event)
