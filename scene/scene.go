// Package scene assembles the craft, its tethers and the asteroid world into a
// runnable simulation, with or without a window.
package scene

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/physics"
	"github.com/pthm-cable/grapple/telemetry"
	"github.com/pthm-cable/grapple/tether"
)

// Options configures optional scene hooks.
type Options struct {
	Logger *slog.Logger             // tether event log; nil uses slog.Default()
	Perf   *telemetry.PerfCollector // times every fixed step by phase

	// OnEvent receives every tether event with the step it was raised in.
	OnEvent func(step uint64, simTime float64, e tether.Event)
	// OnStep runs after every fixed step.
	OnStep func(s *Scene)
}

// Scene is one craft in one world, advanced by a fixed-step scheduler.
type Scene struct {
	cfg    *config.Config
	logger *slog.Logger
	opts   Options

	world    *World
	body     *physics.KinematicBody
	thruster *physics.Thruster
	tethers  *tether.Controller
	resolver *physics.CollisionResolver
	sched    *physics.Scheduler

	emitters []r3.Vec
}

// New wires a scene from cfg. The world starts empty.
func New(cfg *config.Config, opts Options) *Scene {
	s := &Scene{
		cfg:      cfg,
		logger:   opts.Logger,
		opts:     opts,
		world:    NewWorld(),
		emitters: cfg.Derived.Emitters,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.body = physics.NewKinematicBody(cfg.Craft.BodyParams, cfg.Derived.Start)
	s.thruster = physics.NewThruster(s.body, cfg.Craft.ThrustForce)
	s.tethers = tether.NewController(cfg.Derived.Tethers, cfg.Tether, s.body, s.world.Collidables)
	s.resolver = physics.NewCollisionResolver(cfg.Collision, s.body, s.world.Collidables)
	s.tethers.SetListener(s.onEvent)

	// world motion first so anchors and contacts see this step's geometry
	s.sched = physics.NewScheduler(cfg.Physics, s.body)
	s.sched.Register(telemetry.PhaseSpin, s.world)
	s.sched.Register(telemetry.PhaseThruster, s.thruster)
	s.sched.Register(telemetry.PhaseTethers, s.tethers)
	s.sched.Register(telemetry.PhaseCollision, s.resolver)
	if opts.Perf != nil {
		s.sched.SetPhaseTimer(opts.Perf)
	}
	if opts.OnStep != nil {
		s.sched.OnStep(func(uint64, float64) { opts.OnStep(s) })
	}
	return s
}

func (s *Scene) Config() *config.Config               { return s.cfg }
func (s *Scene) World() *World                        { return s.world }
func (s *Scene) Body() *physics.KinematicBody         { return s.body }
func (s *Scene) Thruster() *physics.Thruster          { return s.thruster }
func (s *Scene) Tethers() *tether.Controller          { return s.tethers }
func (s *Scene) Resolver() *physics.CollisionResolver { return s.resolver }
func (s *Scene) Scheduler() *physics.Scheduler        { return s.sched }
func (s *Scene) Steps() uint64                        { return s.sched.Steps() }
func (s *Scene) SimTime() float64                     { return s.sched.SimTime() }

// Emitter returns the mount offset of tether i.
func (s *Scene) Emitter(i int) r3.Vec {
	if i < 0 || i >= len(s.emitters) {
		return r3.Vec{}
	}
	return s.emitters[i]
}

// Fire queues a shot from tether i's mount along dir.
func (s *Scene) Fire(i int, dir r3.Vec) {
	origin := r3.Add(s.body.Position(), s.Emitter(i))
	s.tethers.Fire(i, origin, dir)
}

// SetReel queues a reel on/off change for tether i.
func (s *Scene) SetReel(i int, on bool) { s.tethers.SetPulling(i, on) }

// Release queues a release of tether i.
func (s *Scene) Release(i int) { s.tethers.Release(i) }

// ReleaseAll queues a release of every tether.
func (s *Scene) ReleaseAll() { s.tethers.ReleaseAll() }

// SetThrust sets the thruster command; a zero direction cuts thrust.
func (s *Scene) SetThrust(dir r3.Vec, throttle float64) { s.thruster.SetCommand(dir, throttle) }

// SetBrake toggles the velocity brake.
func (s *Scene) SetBrake(on bool) { s.thruster.SetBrake(on) }

// SetPaused stops or resumes the scheduler. Pausing drops accumulated time.
func (s *Scene) SetPaused(paused bool) { s.sched.SetEnabled(!paused) }

// Paused reports whether the scheduler is stopped.
func (s *Scene) Paused() bool { return !s.sched.Enabled() }

// Teleport moves entity id to frame in one jump. Tethers anchored to it
// follow without reading the jump as anchor velocity.
func (s *Scene) Teleport(id uint64, frame geom.Transform) bool {
	if !s.world.SetTransform(id, frame) {
		return false
	}
	s.tethers.Resync(id)
	return true
}

// SetTetherParams validates and applies new tether parameters to every slot.
func (s *Scene) SetTetherParams(p tether.Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("tether params: %w", err)
	}
	s.cfg.Tether = p
	s.tethers.SetParams(p)
	return nil
}

// SetResolverParams validates and applies new collision parameters.
func (s *Scene) SetResolverParams(p physics.ResolverParams) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("collision params: %w", err)
	}
	s.cfg.Collision = p
	s.resolver.SetParams(p)
	return nil
}

// Update feeds elapsed wall-clock seconds to the scheduler and returns the
// number of fixed steps run.
func (s *Scene) Update(elapsed float64) int { return s.sched.Tick(elapsed) }

// Step runs exactly one fixed step.
func (s *Scene) Step() bool { return s.sched.StepOnce() }

// Span returns the distance from tether i's emission point to its anchor, or
// 0 when it is not attached.
func (s *Scene) Span(i int) float64 {
	t := s.tethers.Tether(i)
	if t == nil || t.State() != tether.Attached {
		return 0
	}
	return geom.Distance(t.EmitPoint(), t.AnchorWorld())
}

func (s *Scene) onEvent(e tether.Event) {
	// events are raised inside the step that is about to be counted
	step := s.sched.Steps() + 1
	simTime := float64(step) * s.sched.FixedDT()

	s.logger.Info("tether_"+e.Kind.String(),
		"tether", e.Tether,
		"shot", e.Shot.String(),
		"entity", e.Entity,
		"distance", e.Distance,
		"step", step,
	)
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(step, simTime, e)
	}
}

// Sample captures the current step for the trace.
func (s *Scene) Sample() telemetry.StepSample {
	pos, vel := s.body.Position(), s.body.Velocity()
	sm := telemetry.StepSample{
		Step:     s.sched.Steps(),
		SimTime:  s.sched.SimTime(),
		X:        pos.X,
		Y:        pos.Y,
		Z:        pos.Z,
		VX:       vel.X,
		VY:       vel.Y,
		VZ:       vel.Z,
		Speed:    r3.Norm(vel),
		Contacts: s.resolver.Contacts(),
	}
	if t := s.tethers.Tether(0); t != nil {
		sm.Tether0State = t.State().String()
		sm.Tether0Rest = t.RestLength()
		sm.Tether0Span = s.Span(0)
		sm.Tether0Tension = t.Tension()
	}
	if t := s.tethers.Tether(1); t != nil {
		sm.Tether1State = t.State().String()
		sm.Tether1Rest = t.RestLength()
		sm.Tether1Span = s.Span(1)
		sm.Tether1Tension = t.Tension()
	}
	return sm
}

// MaxTension returns the largest tension over all tethers and whether any is reeling.
func (s *Scene) MaxTension() (tension float64, pulling bool) {
	for i := range s.tethers.Len() {
		t := s.tethers.Tether(i)
		tension = max(tension, t.Tension())
		pulling = pulling || (t.Pulling() && t.State() == tether.Attached)
	}
	return tension, pulling
}

// Snapshot captures the observable state at the end of the latest step.
func (s *Scene) Snapshot() *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Seed:    s.cfg.Scene.Seed,
		Step:    s.sched.Steps(),
		SimTime: s.sched.SimTime(),
		Craft: telemetry.CraftState{
			Position:  telemetry.V(s.body.Position()),
			Velocity:  telemetry.V(s.body.Velocity()),
			LastForce: telemetry.V(s.body.LastForce()),
			Speed:     s.body.Speed(),
			Contacts:  s.resolver.Contacts(),
		},
	}
	for i := range s.tethers.Len() {
		t := s.tethers.Tether(i)
		ts := telemetry.TetherState{
			Index:      i,
			State:      t.State().String(),
			RestLength: t.RestLength(),
			Span:       s.Span(i),
			Tension:    t.Tension(),
			Pulling:    t.Pulling(),
		}
		if t.State() != tether.Idle {
			ts.Shot = t.ShotID().String()
		}
		if id, ok := t.AttachedID(); ok {
			ts.Entity = id
			ts.Anchor = telemetry.V(t.AnchorWorld())
		}
		snap.Tethers = append(snap.Tethers, ts)
	}
	for _, c := range s.world.Collidables() {
		h := c.(*Handle)
		tr := h.Transform()
		snap.Bodies = append(snap.Bodies, telemetry.BodyState{
			ID:       h.ID(),
			Kind:     h.Kind().String(),
			Position: telemetry.V(tr.Position),
			Rotation: [4]float64{tr.Rotation.Real, tr.Rotation.Imag, tr.Rotation.Jmag, tr.Rotation.Kmag},
			Radius:   h.Radius(),
		})
	}
	return snap
}
