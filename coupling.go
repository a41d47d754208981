package graspsim

// FollowerJoint is a joint whose target is derived from the driver's
// measured position through a fixed sign relationship.
type FollowerJoint struct {
	Joint int
	Sign  float64
}

// JointCoupling keeps the follower joints of an underactuated mechanism
// synchronized to its single driver joint, abstracting a mechanical linkage.
// It must be re-applied every simulation step: follower targets are always a
// function of the driver's current measured position, never assumed to hold.
type JointCoupling struct {
	Driver    int
	Followers []FollowerJoint

	// Shared control parameters for the follower position commands.
	Force        float64
	PositionGain float64
	// TargetVelocity, when non-zero, is an assistive feed-forward term that
	// keeps followers from lagging during a dynamic close.
	TargetVelocity float64
}

// Step reads the driver's current position and issues one position command
// per follower toward pos*sign. It returns the driver position. Safe to call
// any number of times per state; it has no effect beyond the joint commands.
func (c JointCoupling) Step(eng Engine, body BodyID) (float64, error) {
	pos, err := eng.JointPosition(body, c.Driver)
	if err != nil {
		return 0, err
	}

	joints := make([]int, len(c.Followers))
	cmds := make([]MotorCommand, len(c.Followers))
	for i, follower := range c.Followers {
		joints[i] = follower.Joint
		cmds[i] = MotorCommand{
			Mode:           PositionControl,
			TargetPosition: pos * follower.Sign,
			TargetVelocity: c.TargetVelocity,
			Force:          c.Force,
			PositionGain:   c.PositionGain,
		}
	}
	if err := eng.ControlJoints(body, joints, cmds); err != nil {
		return 0, err
	}
	return pos, nil
}

// FollowerTargets computes the follower targets for a given driver position
// without issuing commands.
func (c JointCoupling) FollowerTargets(driverPos float64) []float64 {
	targets := make([]float64, len(c.Followers))
	for i, follower := range c.Followers {
		targets[i] = driverPos * follower.Sign
	}
	return targets
}
