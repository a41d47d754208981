package graspsim

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
)

// CarriageAsset is the body description of the mount's 3-DOF
// translation-only carriage.
const CarriageAsset = "xyz_carriage"

const (
	// mountHoldForce keeps the carriage pinned while the gripper's own
	// joints move during grasping.
	mountHoldForce = 1000
	// Motion parameters for closed-loop positioning.
	mountMoveForce    = 500
	mountPositionGain = 0.2
	mountMaxVelocity  = 0.2
)

// Mount is a positionable carriage rigidly attached to one loaded gripper
// for its whole lifetime. It moves linearly in x/y/z and never rotates. The
// attachment point is the gripper's base frame, which differs from the
// grasp-center frame, so the mount's end effector and the grasp center are
// distinct frames.
type Mount struct {
	sim    *Simulation
	logger logging.Logger

	body      BodyID
	eeLink    int
	numJoints int

	constraint ConstraintID
}

// AttachMount spawns the carriage at the gripper's current base pose,
// rigidly constrains its end-effector frame to the gripper's base frame with
// zero relative offset, and commands every carriage joint to hold position
// zero with high force.
func AttachMount(sim *Simulation, g Gripper, logger logging.Logger) (*Mount, error) {
	if !g.IsLoaded() {
		return nil, ErrNotLoaded
	}
	eng := sim.Engine()

	basePose, err := eng.BasePose(g.Body())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read gripper base pose")
	}

	asset, err := Asset(CarriageAsset)
	if err != nil {
		return nil, err
	}
	body, err := eng.LoadBody(asset, LoadOptions{Pose: basePose, FixedBase: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load mount carriage")
	}

	constraint, err := eng.CreateFixedConstraint(body, asset.EndEffectorLink, g.Body(), BaseLink)
	if err != nil {
		return nil, errors.Wrap(err, "failed to attach gripper to mount")
	}

	m := &Mount{
		sim:        sim,
		logger:     logger,
		body:       body,
		eeLink:     asset.EndEffectorLink,
		numJoints:  len(asset.Joints),
		constraint: constraint,
	}

	joints := make([]int, m.numJoints)
	cmds := make([]MotorCommand, m.numJoints)
	for i := range joints {
		joints[i] = i
		cmds[i] = MotorCommand{Mode: PositionControl, TargetPosition: 0, Force: mountHoldForce}
	}
	if err := eng.ControlJoints(body, joints, cmds); err != nil {
		return nil, errors.Wrap(err, "failed to hold mount joints")
	}

	logger.Debugf("mount attached to gripper body %d at %v", g.Body(), basePose.Point())
	return m, nil
}

// GoToCartesianPos moves the mount (and the attached gripper) to the target
// cartesian position. It solves inverse kinematics once, commands every
// carriage joint toward the solution and then advances simulated time until
// the measured end-effector position is within tolerance of the target
// (returns true) or the simulated-time allowance runs out (returns false
// without error; the residual distance is logged). Each call re-solves and
// re-enters the loop, so it may be repeated after a timeout.
func (m *Mount) GoToCartesianPos(ctx context.Context, target r3.Vector, timeout, tolerance float64) (bool, error) {
	m.logger.Debugf("go_to_cartesian_pos: moving to %v", target)
	eng := m.sim.Engine()

	endTime := m.sim.SimulatedSeconds() + timeout
	targets, err := eng.SolveInverseKinematics(m.body, m.eeLink, target)
	if err != nil {
		return false, errors.Wrap(err, "inverse kinematics failed")
	}

	joints := make([]int, m.numJoints)
	cmds := make([]MotorCommand, m.numJoints)
	for i := range joints {
		joints[i] = i
		cmds[i] = MotorCommand{
			Mode:           PositionControl,
			TargetPosition: targets[i],
			Force:          mountMoveForce,
			PositionGain:   mountPositionGain,
			MaxVelocity:    mountMaxVelocity,
		}
	}
	if err := eng.ControlJoints(m.body, joints, cmds); err != nil {
		return false, err
	}

	distance := func() (float64, error) {
		current, err := m.CartesianPos()
		if err != nil {
			return 0, err
		}
		return current.Sub(target).Norm(), nil
	}

	started := m.sim.SimulatedSeconds()
	for {
		dist, err := distance()
		if err != nil {
			return false, err
		}
		if dist < tolerance {
			m.logger.Debugf("goal position reached after %.3f simulated seconds", m.sim.SimulatedSeconds()-started)
			return true, nil
		}
		if m.sim.SimulatedSeconds() >= endTime {
			m.logger.Warnf("go_to_cartesian_pos reached timeout before attaining goal position (d=%.3f)", dist)
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := m.sim.Step(); err != nil {
			return false, err
		}
	}
}

// JointPositions returns the current carriage joint positions.
func (m *Mount) JointPositions() ([]referenceframe.Input, error) {
	eng := m.sim.Engine()
	positions := make([]referenceframe.Input, m.numJoints)
	for i := 0; i < m.numJoints; i++ {
		pos, err := eng.JointPosition(m.body, i)
		if err != nil {
			return nil, err
		}
		positions[i] = referenceframe.Input{Value: pos}
	}
	return positions, nil
}

// CartesianPos returns the current world position of the mount's
// end-effector frame.
func (m *Mount) CartesianPos() (r3.Vector, error) {
	pose, err := m.sim.Engine().LinkWorldPose(m.body, m.eeLink)
	if err != nil {
		return r3.Vector{}, err
	}
	return pose.Point(), nil
}

// Body returns the carriage's engine body handle.
func (m *Mount) Body() BodyID {
	return m.body
}

// Constraint returns the handle of the rigid attachment between the carriage
// end effector and the gripper base.
func (m *Mount) Constraint() ConstraintID {
	return m.constraint
}
