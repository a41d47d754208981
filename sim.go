package graspsim

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"
)

// DefaultTimeStep is the simulated duration of one engine step.
const DefaultTimeStep = 1.0 / 240.0

// StepFunc is invoked once per simulation step, before the engine advances,
// so the commands it issues take effect in the step being advanced.
type StepFunc func() error

// Simulation is the step-driven simulation context. It owns the engine, the
// ordered list of per-step callbacks and the simulated clock. It is not safe
// for concurrent use: execution is single-threaded and cooperative, advanced
// only through Step and the blocking helpers built on it.
type Simulation struct {
	engine    Engine
	logger    logging.Logger
	stepFuncs []StepFunc
	seconds   float64
}

// NewSimulation wraps an engine in a simulation context.
func NewSimulation(engine Engine, logger logging.Logger) *Simulation {
	return &Simulation{engine: engine, logger: logger}
}

// Engine exposes the underlying engine for load/control calls.
func (s *Simulation) Engine() Engine {
	return s.engine
}

// RegisterStepFunc appends fn to the per-step callback list. Callbacks run
// exactly once per advanced step, in registration order, and stay registered
// for the lifetime of the simulation.
func (s *Simulation) RegisterStepFunc(fn StepFunc) {
	s.stepFuncs = append(s.stepFuncs, fn)
}

// Step runs all registered step callbacks and then advances the engine by
// one time step.
func (s *Simulation) Step() error {
	for _, fn := range s.stepFuncs {
		if err := fn(); err != nil {
			return errors.Wrap(err, "step callback failed")
		}
	}
	if err := s.engine.StepSimulation(); err != nil {
		return err
	}
	s.seconds += s.engine.TimeStep()
	return nil
}

// StepSeconds advances the simulation by the given amount of simulated time,
// blocking the caller. Context cancellation aborts between steps.
func (s *Simulation) StepSeconds(ctx context.Context, seconds float64) error {
	end := s.seconds + seconds
	for s.seconds < end {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// StepSecondsPaced is StepSeconds paced to the wall clock, one time step per
// real time step, for runs a human is watching.
func (s *Simulation) StepSecondsPaced(ctx context.Context, seconds float64) error {
	stepDur := time.Duration(s.engine.TimeStep() * float64(time.Second))
	end := s.seconds + seconds
	for s.seconds < end {
		if !goutils.SelectContextOrWait(ctx, stepDur) {
			return ctx.Err()
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// SimulatedSeconds reports cumulative simulated time elapsed.
func (s *Simulation) SimulatedSeconds() float64 {
	return s.seconds
}

// CheckGraspSuccess judges whether a closed gripper made the contacts its
// model requires. The gripper must be loaded.
func (s *Simulation) CheckGraspSuccess(g Gripper) (bool, error) {
	if !g.IsLoaded() {
		return false, ErrNotLoaded
	}

	var checkErr error
	ok := g.ContactRequirement().Satisfied(func(link int) bool {
		inContact, err := s.engine.InContact(g.Body(), link)
		if err != nil && checkErr == nil {
			checkErr = err
		}
		return inContact
	})
	if checkErr != nil {
		return false, errors.Wrap(checkErr, "failed to query contact state")
	}

	s.logger.Debugf("grasp success check: %v (requirement %s)", ok, g.ContactRequirement())
	return ok, nil
}
