// Package graspsim implements interchangeable simulated robotic grippers and
// the control layer that positions, actuates and queries them uniformly,
// independent of their internal joint topology. The rigid-body engine itself
// is an external collaborator consumed through the Engine interface.
package graspsim

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/spatialmath"
)

// Open scale bounds. 1.0 is fully open.
const (
	MinOpenScale = 0.1
	MaxOpenScale = 1.0
)

// Default uniform mass distribution so every gripper model imparts a
// comparable inertial load on a grasped object.
const (
	DefaultBaseMass           = 0.4
	DefaultCombinedFingerMass = 0.1
)

// defaultSettleSeconds is how long Grab advances simulated time after
// commanding closure, enough for the mechanism to settle on the object.
const defaultSettleSeconds = 2.0

var (
	// ErrNotLoaded is returned by any operation that needs simulation
	// state before the gripper has been loaded.
	ErrNotLoaded = errors.New("gripper is not loaded in simulation")
	// ErrAlreadyLoaded is returned by Load on a loaded gripper; re-loading
	// is undefined.
	ErrAlreadyLoaded = errors.New("gripper is already loaded in simulation")
	// ErrOpenScaleOutOfRange is returned for open scales outside
	// [MinOpenScale, MaxOpenScale].
	ErrOpenScaleOutOfRange = errors.Errorf("open scale is out of range [%.1f, %.1f]", MinOpenScale, MaxOpenScale)
)

func validateOpenScale(openScale float64) error {
	if openScale < MinOpenScale || openScale > MaxOpenScale {
		return errors.Wrapf(ErrOpenScaleOutOfRange, "open scale %.3f", openScale)
	}
	return nil
}

// Gripper is the contract every gripper model implements. A gripper is
// created unloaded by NewGripper, becomes loaded exactly once via Load, and
// lives until its owning simulation context is torn down.
type Gripper interface {
	// Load places the gripper body at the base pose computed from the
	// grasp-center pose, configures friction and a normalized mass
	// distribution, resets joints for the given open scale and registers
	// the model's joint coupling as a per-step callback.
	Load(ctx context.Context, graspPose spatialmath.Pose, openScale float64) error

	// SetOpenScale resets joint positions for the requested open amount
	// without stepping the simulation. Not meant for use mid-grasp.
	SetOpenScale(openScale float64) error

	// Grab commands the driver joint toward closure under velocity control
	// and blocks in simulated time until the grasp has settled. Success is
	// judged separately via the contact requirement.
	Grab(ctx context.Context) error

	// PosOffset and OrnOffset give the fixed grasp-center offset relative
	// to the base frame. PosOffset scales with the gripper scale.
	PosOffset() r3.Vector
	OrnOffset() spatialmath.Orientation

	ContactRequirement() *ContactRequirement

	// VisPoints returns finger reference points in the grasp plane as a
	// function of open scale, for visualization only.
	VisPoints(openScale float64) []r2.Point

	// Shared loaded-state behaviors, provided by the embedded base.
	IsLoaded() bool
	Body() BodyID
	NumJoints() (int, error)
	Mass() (float64, error)
	ConfigureFriction(friction Friction) error
	ConfigureMass(baseMass, combinedFingerMass float64) error
	SetColor(color Color) error
	JointPositions() ([]referenceframe.Input, error)
	Scale() float64
}

// gripperBase carries the state and behaviors shared by all gripper models.
// Concrete models embed it and call markLoaded once their body exists.
type gripperBase struct {
	sim    *Simulation
	logger logging.Logger
	scale  float64

	body   BodyID
	loaded bool

	// mass is computed once after load and cached; loading happens exactly
	// once, so the cache never needs invalidation.
	mass      float64
	massKnown bool
}

func newGripperBase(sim *Simulation, scale float64, logger logging.Logger) gripperBase {
	return gripperBase{sim: sim, scale: scale, logger: logger}
}

func (b *gripperBase) markLoaded(body BodyID) {
	b.body = body
	b.loaded = true
}

// IsLoaded reports whether the gripper has been added to the simulation.
func (b *gripperBase) IsLoaded() bool {
	return b.loaded
}

// Body returns the engine body handle; only meaningful once loaded.
func (b *gripperBase) Body() BodyID {
	return b.body
}

// Scale returns the uniform scale factor the gripper was created with.
func (b *gripperBase) Scale() float64 {
	return b.scale
}

func (b *gripperBase) NumJoints() (int, error) {
	if !b.loaded {
		return 0, ErrNotLoaded
	}
	return b.sim.Engine().NumJoints(b.body)
}

// Mass returns the summed mass of the base and all links, cached after the
// first call.
func (b *gripperBase) Mass() (float64, error) {
	if !b.loaded {
		return 0, ErrNotLoaded
	}
	if b.massKnown {
		return b.mass, nil
	}

	eng := b.sim.Engine()
	total, err := eng.LinkMass(b.body, BaseLink)
	if err != nil {
		return 0, err
	}
	numJoints, err := eng.NumJoints(b.body)
	if err != nil {
		return 0, err
	}
	for i := 0; i < numJoints; i++ {
		linkMass, err := eng.LinkMass(b.body, i)
		if err != nil {
			return 0, err
		}
		total += linkMass
	}

	b.mass = total
	b.massKnown = true
	return total, nil
}

// ConfigureFriction applies the same friction parameters to every link.
func (b *gripperBase) ConfigureFriction(friction Friction) error {
	if !b.loaded {
		return ErrNotLoaded
	}
	eng := b.sim.Engine()
	numJoints, err := eng.NumJoints(b.body)
	if err != nil {
		return err
	}
	for i := 0; i < numJoints; i++ {
		if err := eng.SetLinkFriction(b.body, i, friction); err != nil {
			return err
		}
	}
	return nil
}

// ConfigureMass sets the base mass and splits combinedFingerMass evenly
// across all non-base links, so differently jointed models present uniform
// inertia and can be controlled uniformly.
func (b *gripperBase) ConfigureMass(baseMass, combinedFingerMass float64) error {
	if !b.loaded {
		return ErrNotLoaded
	}
	eng := b.sim.Engine()
	if err := eng.SetLinkMass(b.body, BaseLink, baseMass); err != nil {
		return err
	}
	numJoints, err := eng.NumJoints(b.body)
	if err != nil {
		return err
	}
	perLink := combinedFingerMass / float64(numJoints)
	for i := 0; i < numJoints; i++ {
		if err := eng.SetLinkMass(b.body, i, perLink); err != nil {
			return err
		}
	}
	return nil
}

// SetColor colors the base and every link.
func (b *gripperBase) SetColor(color Color) error {
	if !b.loaded {
		return ErrNotLoaded
	}
	eng := b.sim.Engine()
	numJoints, err := eng.NumJoints(b.body)
	if err != nil {
		return err
	}
	for link := BaseLink; link < numJoints; link++ {
		if err := eng.SetLinkColor(b.body, link, color); err != nil {
			return err
		}
	}
	return nil
}

// JointPositions returns the current position of every joint, in joint
// index order.
func (b *gripperBase) JointPositions() ([]referenceframe.Input, error) {
	if !b.loaded {
		return nil, ErrNotLoaded
	}
	eng := b.sim.Engine()
	numJoints, err := eng.NumJoints(b.body)
	if err != nil {
		return nil, err
	}
	positions := make([]referenceframe.Input, numJoints)
	for i := 0; i < numJoints; i++ {
		pos, err := eng.JointPosition(b.body, i)
		if err != nil {
			return nil, err
		}
		positions[i] = referenceframe.Input{Value: pos}
	}
	return positions, nil
}
