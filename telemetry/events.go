// Package telemetry provides step traces, tether event logs, performance tracking,
// bookmarks and snapshots for the simulation.
package telemetry

import "github.com/pthm-cable/grapple/tether"

// EventRecord is one tether event as written to events.csv.
type EventRecord struct {
	Step     uint64  `csv:"step"`
	SimTime  float64 `csv:"sim_time"`
	Kind     string  `csv:"kind"`
	Tether   int     `csv:"tether"`
	Shot     string  `csv:"shot"`
	Entity   uint64  `csv:"entity"`
	PointX   float64 `csv:"point_x"`
	PointY   float64 `csv:"point_y"`
	PointZ   float64 `csv:"point_z"`
	NormalX  float64 `csv:"normal_x"`
	NormalY  float64 `csv:"normal_y"`
	NormalZ  float64 `csv:"normal_z"`
	Distance float64 `csv:"distance"`
}

// NewEventRecord flattens a tether event raised during the given step.
func NewEventRecord(step uint64, simTime float64, e tether.Event) EventRecord {
	return EventRecord{
		Step:     step,
		SimTime:  simTime,
		Kind:     e.Kind.String(),
		Tether:   e.Tether,
		Shot:     e.Shot.String(),
		Entity:   e.Entity,
		PointX:   e.Point.X,
		PointY:   e.Point.Y,
		PointZ:   e.Point.Z,
		NormalX:  e.Normal.X,
		NormalY:  e.Normal.Y,
		NormalZ:  e.Normal.Z,
		Distance: e.Distance,
	}
}
