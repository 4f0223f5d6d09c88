package telemetry

import (
	"math"
	"sort"

	"github.com/pthm-cable/grapple/tether"
)

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationSteps uint64
	dt                  float64

	// Current window tracking
	windowStartStep uint64

	// Event counters for current window
	fired    int
	attached int
	missed   int
	released int
	lost     int
	contacts int

	// Per-step samples for current window
	speeds   []float64
	tensions []float64
	pulling  int
	steps    int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per fixed step
func NewCollector(windowDurationSec, dt float64) *Collector {
	stepsPerWindow := uint64(1)
	if dt > 0 && windowDurationSec > dt {
		stepsPerWindow = uint64(math.Round(windowDurationSec / dt))
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationSteps: stepsPerWindow,
		dt:                  dt,
	}
}

// RecordEvent counts a tether event.
func (c *Collector) RecordEvent(kind tether.EventKind) {
	switch kind {
	case tether.EventFired:
		c.fired++
	case tether.EventAttached:
		c.attached++
	case tether.EventMissed:
		c.missed++
	case tether.EventReleased:
		c.released++
	case tether.EventLost:
		c.lost++
	}
}

// RecordStep records per-step motion and load. tension is the largest tension
// over all tethers.
func (c *Collector) RecordStep(speed, tension float64, contacts int, pulling bool) {
	c.speeds = append(c.speeds, speed)
	c.tensions = append(c.tensions, tension)
	c.contacts += contacts
	if pulling {
		c.pulling++
	}
	c.steps++
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(currentStep uint64) bool {
	return currentStep-c.windowStartStep >= c.windowDurationSteps
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentStep uint64) WindowStats {
	var hitRate float64
	if resolved := c.attached + c.missed; resolved > 0 {
		hitRate = float64(c.attached) / float64(resolved)
	}

	speedMean, _ := meanStd(c.speeds)
	var speedMax float64
	for _, v := range c.speeds {
		speedMax = math.Max(speedMax, v)
	}

	sort.Float64s(c.tensions)
	var pullingFrac float64
	if c.steps > 0 {
		pullingFrac = float64(c.pulling) / float64(c.steps)
	}

	stats := WindowStats{
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   currentStep,
		SimTimeSec:      float64(currentStep) * c.dt,

		Fired:    c.fired,
		Attached: c.attached,
		Missed:   c.missed,
		Released: c.released,
		Lost:     c.lost,
		HitRate:  hitRate,

		Contacts: c.contacts,

		SpeedMean:   speedMean,
		SpeedMax:    speedMax,
		TensionP50:  Percentile(c.tensions, 0.5),
		TensionP90:  Percentile(c.tensions, 0.9),
		TensionMax:  Percentile(c.tensions, 1),
		PullingFrac: pullingFrac,
	}

	// Reset for next window
	c.windowStartStep = currentStep
	c.fired = 0
	c.attached = 0
	c.missed = 0
	c.released = 0
	c.lost = 0
	c.contacts = 0
	c.speeds = c.speeds[:0]
	c.tensions = c.tensions[:0]
	c.pulling = 0
	c.steps = 0

	return stats
}

// WindowDurationSteps returns the number of steps per window.
func (c *Collector) WindowDurationSteps() uint64 {
	return c.windowDurationSteps
}
