// Package kinsim is a deterministic kinematic rigid-body engine implementing
// the graspsim engine seam. It integrates joint motor commands at a fixed
// time step, maintains fixed constraints between bodies and solves inverse
// kinematics for translation-only chains. There are no dynamics: motion is
// purely kinematic, which keeps runs reproducible for tests and demos.
// Contact state is set explicitly rather than detected from geometry.
package kinsim

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/spatialmath"

	"graspsim"
)

// defaultPositionGain is applied to position commands that do not carry one.
const defaultPositionGain = 1.0

type jointSim struct {
	asset graspsim.JointAsset
	// limits after global scaling (prismatic ranges scale with the body)
	lower, upper float64

	pos    float64
	cmd    graspsim.MotorCommand
	hasCmd bool

	mass     float64
	friction graspsim.Friction
	color    graspsim.Color
}

type bodySim struct {
	asset     graspsim.BodyAsset
	basePose  spatialmath.Pose
	fixedBase bool

	baseMass  float64
	baseColor graspsim.Color

	joints []*jointSim
}

type constraintSim struct {
	parent     graspsim.BodyID
	parentLink int
	child      graspsim.BodyID
	childLink  int
}

type contactKey struct {
	body graspsim.BodyID
	link int
}

// Engine implements graspsim.Engine. Not safe for concurrent use; the
// simulation layer above it is single-threaded by design.
type Engine struct {
	timeStep float64

	bodies   map[graspsim.BodyID]*bodySim
	nextBody graspsim.BodyID

	constraints    map[graspsim.ConstraintID]constraintSim
	nextConstraint graspsim.ConstraintID

	contacts map[contactKey]bool
}

// NewEngine creates an empty engine advancing timeStep simulated seconds per
// step.
func NewEngine(timeStep float64) *Engine {
	if timeStep <= 0 {
		timeStep = graspsim.DefaultTimeStep
	}
	return &Engine{
		timeStep:    timeStep,
		bodies:      make(map[graspsim.BodyID]*bodySim),
		constraints: make(map[graspsim.ConstraintID]constraintSim),
		contacts:    make(map[contactKey]bool),
	}
}

// LoadBody instantiates a body asset. Prismatic joint ranges scale with
// opts.GlobalScale; revolute ranges do not.
func (e *Engine) LoadBody(asset graspsim.BodyAsset, opts graspsim.LoadOptions) (graspsim.BodyID, error) {
	if len(asset.Joints) == 0 {
		return 0, errors.Errorf("body asset %q has no joints", asset.Name)
	}

	scale := opts.GlobalScale
	if scale == 0 {
		scale = 1.0
	}
	pose := opts.Pose
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}

	body := &bodySim{
		asset:     asset,
		basePose:  pose,
		fixedBase: opts.FixedBase,
		baseMass:  asset.BaseMass,
	}
	for _, jointAsset := range asset.Joints {
		joint := &jointSim{
			asset: jointAsset,
			lower: jointAsset.Lower,
			upper: jointAsset.Upper,
			mass:  jointAsset.Mass,
		}
		if jointAsset.Type == "prismatic" {
			joint.lower *= scale
			joint.upper *= scale
		}
		body.joints = append(body.joints, joint)
	}

	id := e.nextBody
	e.nextBody++
	e.bodies[id] = body
	return id, nil
}

func (e *Engine) body(id graspsim.BodyID) (*bodySim, error) {
	body, exists := e.bodies[id]
	if !exists {
		return nil, errors.Errorf("unknown body %d", id)
	}
	return body, nil
}

func (e *Engine) joint(id graspsim.BodyID, joint int) (*jointSim, error) {
	body, err := e.body(id)
	if err != nil {
		return nil, err
	}
	if joint < 0 || joint >= len(body.joints) {
		return nil, errors.Errorf("body %d has no joint %d", id, joint)
	}
	return body.joints[joint], nil
}

// NumJoints returns the joint count of a body.
func (e *Engine) NumJoints(id graspsim.BodyID) (int, error) {
	body, err := e.body(id)
	if err != nil {
		return 0, err
	}
	return len(body.joints), nil
}

// JointPosition returns a joint's current position.
func (e *Engine) JointPosition(id graspsim.BodyID, joint int) (float64, error) {
	j, err := e.joint(id, joint)
	if err != nil {
		return 0, err
	}
	return j.pos, nil
}

// ResetJointPosition overrides a joint's position without motor dynamics.
// Any standing motor command stays in effect for subsequent steps.
func (e *Engine) ResetJointPosition(id graspsim.BodyID, joint int, pos float64) error {
	j, err := e.joint(id, joint)
	if err != nil {
		return err
	}
	j.pos = pos
	return nil
}

// LinkMass returns a link's mass; BaseLink addresses the base.
func (e *Engine) LinkMass(id graspsim.BodyID, link int) (float64, error) {
	body, err := e.body(id)
	if err != nil {
		return 0, err
	}
	if link == graspsim.BaseLink {
		return body.baseMass, nil
	}
	j, err := e.joint(id, link)
	if err != nil {
		return 0, err
	}
	return j.mass, nil
}

// SetLinkMass sets a link's mass; BaseLink addresses the base.
func (e *Engine) SetLinkMass(id graspsim.BodyID, link int, mass float64) error {
	body, err := e.body(id)
	if err != nil {
		return err
	}
	if link == graspsim.BaseLink {
		body.baseMass = mass
		return nil
	}
	j, err := e.joint(id, link)
	if err != nil {
		return err
	}
	j.mass = mass
	return nil
}

// SetLinkFriction records a link's friction parameters.
func (e *Engine) SetLinkFriction(id graspsim.BodyID, link int, friction graspsim.Friction) error {
	j, err := e.joint(id, link)
	if err != nil {
		return err
	}
	j.friction = friction
	return nil
}

// LinkFriction returns the friction recorded for a link.
func (e *Engine) LinkFriction(id graspsim.BodyID, link int) (graspsim.Friction, error) {
	j, err := e.joint(id, link)
	if err != nil {
		return graspsim.Friction{}, err
	}
	return j.friction, nil
}

// SetLinkColor records a link's color; BaseLink addresses the base.
func (e *Engine) SetLinkColor(id graspsim.BodyID, link int, color graspsim.Color) error {
	body, err := e.body(id)
	if err != nil {
		return err
	}
	if link == graspsim.BaseLink {
		body.baseColor = color
		return nil
	}
	j, err := e.joint(id, link)
	if err != nil {
		return err
	}
	j.color = color
	return nil
}

// ControlJoint installs a motor command on a joint. The command stays in
// effect every step until replaced.
func (e *Engine) ControlJoint(id graspsim.BodyID, joint int, cmd graspsim.MotorCommand) error {
	j, err := e.joint(id, joint)
	if err != nil {
		return err
	}
	j.cmd = cmd
	j.hasCmd = true
	return nil
}

// ControlJoints installs one command per listed joint.
func (e *Engine) ControlJoints(id graspsim.BodyID, joints []int, cmds []graspsim.MotorCommand) error {
	if len(joints) != len(cmds) {
		return errors.Errorf("got %d joints but %d commands", len(joints), len(cmds))
	}
	for i, joint := range joints {
		if err := e.ControlJoint(id, joint, cmds[i]); err != nil {
			return err
		}
	}
	return nil
}

// JointCommand returns the standing motor command on a joint, if any.
func (e *Engine) JointCommand(id graspsim.BodyID, joint int) (graspsim.MotorCommand, bool) {
	j, err := e.joint(id, joint)
	if err != nil || !j.hasCmd {
		return graspsim.MotorCommand{}, false
	}
	return j.cmd, true
}

// CreateFixedConstraint pins the child link's frame to the parent link's
// frame. The child body's base is re-posed to satisfy the constraint after
// every step.
func (e *Engine) CreateFixedConstraint(parent graspsim.BodyID, parentLink int, child graspsim.BodyID, childLink int) (graspsim.ConstraintID, error) {
	if _, err := e.body(parent); err != nil {
		return 0, err
	}
	if _, err := e.body(child); err != nil {
		return 0, err
	}
	if childLink != graspsim.BaseLink {
		return 0, errors.Errorf("only base-frame child attachments are supported, got link %d", childLink)
	}

	id := e.nextConstraint
	e.nextConstraint++
	e.constraints[id] = constraintSim{parent: parent, parentLink: parentLink, child: child, childLink: childLink}
	return id, nil
}

// BasePose returns a body's base pose in the world frame.
func (e *Engine) BasePose(id graspsim.BodyID) (spatialmath.Pose, error) {
	body, err := e.body(id)
	if err != nil {
		return nil, err
	}
	return body.basePose, nil
}

// LinkWorldPose composes the base pose with the displacements of joints
// 0..link, treating the body as a serial chain.
func (e *Engine) LinkWorldPose(id graspsim.BodyID, link int) (spatialmath.Pose, error) {
	body, err := e.body(id)
	if err != nil {
		return nil, err
	}
	if link == graspsim.BaseLink {
		return body.basePose, nil
	}
	if link < 0 || link >= len(body.joints) {
		return nil, errors.Errorf("body %d has no link %d", id, link)
	}

	pose := body.basePose
	for i := 0; i <= link; i++ {
		pose = spatialmath.Compose(pose, jointTransform(body.joints[i]))
	}
	return pose, nil
}

func jointTransform(j *jointSim) spatialmath.Pose {
	axis := r3.Vector{X: j.asset.Axis[0], Y: j.asset.Axis[1], Z: j.asset.Axis[2]}
	if j.asset.Type == "prismatic" {
		return spatialmath.NewPoseFromPoint(axis.Mul(j.pos))
	}
	return spatialmath.NewPose(r3.Vector{}, &spatialmath.R4AA{Theta: j.pos, RX: axis.X, RY: axis.Y, RZ: axis.Z})
}

// SolveInverseKinematics solves for joint targets bringing eeLink to target.
// Only translation-only (all-prismatic) chains are supported; targets are
// clamped to joint limits, so an out-of-workspace target yields the closest
// attainable configuration.
func (e *Engine) SolveInverseKinematics(id graspsim.BodyID, eeLink int, target r3.Vector) ([]float64, error) {
	body, err := e.body(id)
	if err != nil {
		return nil, err
	}
	if eeLink < 0 || eeLink >= len(body.joints) {
		return nil, errors.Errorf("body %d has no link %d", id, eeLink)
	}

	// express the target displacement in the base frame
	deltaWorld := target.Sub(body.basePose.Point())
	invOrn := spatialmath.PoseInverse(spatialmath.NewPose(r3.Vector{}, body.basePose.Orientation()))
	deltaLocal := spatialmath.Compose(invOrn, spatialmath.NewPoseFromPoint(deltaWorld)).Point()

	targets := make([]float64, len(body.joints))
	for i, j := range body.joints {
		if i > eeLink {
			targets[i] = j.pos
			continue
		}
		if j.asset.Type != "prismatic" {
			return nil, errors.Errorf("inverse kinematics supports translation-only chains, joint %d is %s", i, j.asset.Type)
		}
		axis := r3.Vector{X: j.asset.Axis[0], Y: j.asset.Axis[1], Z: j.asset.Axis[2]}
		targets[i] = clamp(deltaLocal.Dot(axis), j.lower, j.upper)
	}
	return targets, nil
}

// SetContact sets the contact state of a body link. This is the
// collision-detection stand-in: tests and demos declare which links touch
// the object.
func (e *Engine) SetContact(id graspsim.BodyID, link int, inContact bool) {
	e.contacts[contactKey{body: id, link: link}] = inContact
}

// InContact reports whether a body link is currently in contact.
func (e *Engine) InContact(id graspsim.BodyID, link int) (bool, error) {
	if _, err := e.body(id); err != nil {
		return false, err
	}
	return e.contacts[contactKey{body: id, link: link}], nil
}

// StepSimulation integrates every standing motor command by one time step
// and then re-poses constrained bodies.
func (e *Engine) StepSimulation() error {
	for _, id := range e.bodyIDs() {
		body := e.bodies[id]
		for _, j := range body.joints {
			if !j.hasCmd {
				continue
			}
			switch j.cmd.Mode {
			case graspsim.PositionControl:
				gain := j.cmd.PositionGain
				if gain == 0 {
					gain = defaultPositionGain
				}
				delta := gain * (j.cmd.TargetPosition - j.pos)
				maxVel := j.cmd.MaxVelocity
				if maxVel == 0 {
					maxVel = j.asset.MaxVelocity
				}
				if maxVel > 0 {
					delta = clamp(delta, -maxVel*e.timeStep, maxVel*e.timeStep)
				}
				j.pos = clamp(j.pos+delta, j.lower, j.upper)
			case graspsim.VelocityControl:
				j.pos = clamp(j.pos+j.cmd.TargetVelocity*e.timeStep, j.lower, j.upper)
			}
		}
	}

	for _, id := range e.constraintIDs() {
		c := e.constraints[id]
		parentPose, err := e.LinkWorldPose(c.parent, c.parentLink)
		if err != nil {
			return err
		}
		e.bodies[c.child].basePose = parentPose
	}
	return nil
}

// TimeStep returns the simulated duration of one step.
func (e *Engine) TimeStep() float64 {
	return e.timeStep
}

func (e *Engine) bodyIDs() []graspsim.BodyID {
	ids := make([]graspsim.BodyID, 0, len(e.bodies))
	for id := range e.bodies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *Engine) constraintIDs() []graspsim.ConstraintID {
	ids := make([]graspsim.ConstraintID, 0, len(e.constraints))
	for id := range e.constraints {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
