package physics

// Contributor is a unit of per-step force or correction logic.
// Step must not block; it runs synchronously inside the fixed step.
type Contributor interface {
	Step(dt float64)
}

// ContributorFunc adapts a function to Contributor.
type ContributorFunc func(dt float64)

// Step calls f(dt).
func (f ContributorFunc) Step(dt float64) { f(dt) }

// PhaseTimer receives per-step timing callbacks. telemetry.PerfCollector implements it.
type PhaseTimer interface {
	StartTick()
	StartPhase(name string)
	EndTick()
}

// PhaseIntegrate is the phase name used for the integrator.
const PhaseIntegrate = "integrate"

// accumulatorSlack absorbs rounding so that an elapsed time of exactly n fixed
// steps runs n steps rather than n-1.
const accumulatorSlack = 1e-9

// SchedulerParams configures the fixed-step loop.
type SchedulerParams struct {
	FixedDT      float64 `yaml:"fixed_dt"`       // seconds per step
	MaxFrameTime float64 `yaml:"max_frame_time"` // elapsed time is clamped to this per tick
}

// DefaultSchedulerParams returns 120 Hz stepping with a quarter-second frame cap.
func DefaultSchedulerParams() SchedulerParams {
	return SchedulerParams{FixedDT: 1.0 / 120.0, MaxFrameTime: 0.25}
}

type namedContributor struct {
	name string
	c    Contributor
}

// Scheduler accumulates wall-clock time and advances the simulation in constant
// steps. Every step runs the registered contributors in registration order and
// then the integrator, so all forces for a step are in before integration.
type Scheduler struct {
	params       SchedulerParams
	contributors []namedContributor
	integrator   Contributor

	accumulator float64
	enabled     bool
	simTime     float64
	steps       uint64

	timer  PhaseTimer
	onStep func(step uint64, simTime float64)
}

// NewScheduler creates an enabled scheduler. integrator may be nil.
func NewScheduler(params SchedulerParams, integrator Contributor) *Scheduler {
	if !(params.FixedDT > 0) {
		params.FixedDT = DefaultSchedulerParams().FixedDT
	}
	if params.MaxFrameTime < params.FixedDT {
		params.MaxFrameTime = params.FixedDT
	}
	return &Scheduler{
		params:     params,
		integrator: integrator,
		enabled:    true,
	}
}

// Register appends a contributor. Order of registration is order of execution.
func (s *Scheduler) Register(name string, c Contributor) {
	s.contributors = append(s.contributors, namedContributor{name: name, c: c})
}

// Contributors returns the registered names in execution order.
func (s *Scheduler) Contributors() []string {
	names := make([]string, 0, len(s.contributors)+1)
	for _, nc := range s.contributors {
		names = append(names, nc.name)
	}
	if s.integrator != nil {
		names = append(names, PhaseIntegrate)
	}
	return names
}

// SetPhaseTimer installs a timing observer. nil disables timing.
func (s *Scheduler) SetPhaseTimer(t PhaseTimer) { s.timer = t }

// OnStep installs a hook called after every completed step.
func (s *Scheduler) OnStep(fn func(step uint64, simTime float64)) { s.onStep = fn }

// SetEnabled pauses or resumes stepping. Pausing drops any partial step so that
// resuming does not replay time spent paused.
func (s *Scheduler) SetEnabled(on bool) {
	if !on {
		s.accumulator = 0
	}
	s.enabled = on
}

// Enabled reports whether Tick advances the simulation.
func (s *Scheduler) Enabled() bool { return s.enabled }

// FixedDT returns the step size.
func (s *Scheduler) FixedDT() float64 { return s.params.FixedDT }

// SimTime returns simulated seconds since creation.
func (s *Scheduler) SimTime() float64 { return s.simTime }

// Steps returns the number of completed fixed steps.
func (s *Scheduler) Steps() uint64 { return s.steps }

// Alpha returns the fraction of a step left in the accumulator, for render interpolation.
func (s *Scheduler) Alpha() float64 { return s.accumulator / s.params.FixedDT }

// Reset clears the accumulator without touching contributors or counters.
func (s *Scheduler) Reset() { s.accumulator = 0 }

// Tick adds elapsed wall-clock seconds and runs as many whole steps as fit.
// It returns the number of steps run.
func (s *Scheduler) Tick(elapsed float64) int {
	if !s.enabled || !(elapsed > 0) {
		return 0
	}
	if elapsed > s.params.MaxFrameTime {
		elapsed = s.params.MaxFrameTime
	}
	s.accumulator += elapsed

	dt := s.params.FixedDT
	n := 0
	for s.accumulator+accumulatorSlack >= dt {
		s.step(dt)
		s.accumulator -= dt
		n++
	}
	if s.accumulator < 0 {
		s.accumulator = 0
	}
	return n
}

// StepOnce runs exactly one fixed step regardless of the accumulator.
// Used by headless drivers and tests; it respects the enabled flag.
func (s *Scheduler) StepOnce() bool {
	if !s.enabled {
		return false
	}
	s.step(s.params.FixedDT)
	return true
}

func (s *Scheduler) step(dt float64) {
	if s.timer != nil {
		s.timer.StartTick()
	}
	for _, nc := range s.contributors {
		if s.timer != nil {
			s.timer.StartPhase(nc.name)
		}
		nc.c.Step(dt)
	}
	if s.integrator != nil {
		if s.timer != nil {
			s.timer.StartPhase(PhaseIntegrate)
		}
		s.integrator.Step(dt)
	}
	if s.timer != nil {
		s.timer.EndTick()
	}

	s.steps++
	s.simTime = float64(s.steps) * dt
	if s.onStep != nil {
		s.onStep(s.steps, s.simTime)
	}
}
