package graspsim

import (
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
)

// BodyID identifies a rigid body loaded into an engine. Valid ids are
// non-negative; the zero value of a gripper or mount holds no body.
type BodyID int

// ConstraintID identifies a rigid constraint between two bodies.
type ConstraintID int

// BaseLink addresses a body's base instead of one of its joints/links.
const BaseLink = -1

// ControlMode selects how a joint motor interprets its command.
type ControlMode int

const (
	// PositionControl drives the joint toward TargetPosition.
	PositionControl ControlMode = iota
	// VelocityControl drives the joint at TargetVelocity.
	VelocityControl
)

// MotorCommand is a per-joint motor command. Zero-valued optional fields
// (PositionGain, MaxVelocity) leave the engine's defaults in effect.
type MotorCommand struct {
	Mode           ControlMode
	TargetPosition float64
	TargetVelocity float64
	Force          float64
	PositionGain   float64
	MaxVelocity    float64
}

// Friction holds per-link contact friction parameters.
type Friction struct {
	Lateral  float64 `json:"lateral"`
	Spinning float64 `json:"spinning"`
	Rolling  float64 `json:"rolling"`
	Anchor   bool    `json:"anchor"`
}

// DefaultFriction returns the friction configuration applied to every
// gripper at load time so all models grip with comparable surface behavior.
func DefaultFriction() Friction {
	return Friction{Lateral: 1.0, Spinning: 1.0, Rolling: 0.0001, Anchor: true}
}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// LoadOptions configures how a body asset is instantiated in the engine.
type LoadOptions struct {
	// Pose places the body's base in the world frame. Nil means origin.
	Pose spatialmath.Pose
	// GlobalScale scales geometry and prismatic joint ranges uniformly.
	// Zero means 1.0.
	GlobalScale   float64
	SelfCollision bool
	FixedBase     bool
}

// Engine is the capability set this package consumes from a rigid-body
// simulation engine. Implementations own body and joint state, integrate
// joint dynamics, detect contacts and solve inverse kinematics; everything
// above this seam is control logic. Link index i refers to the link attached
// by joint i; BaseLink refers to the base.
type Engine interface {
	LoadBody(asset BodyAsset, opts LoadOptions) (BodyID, error)

	NumJoints(body BodyID) (int, error)
	JointPosition(body BodyID, joint int) (float64, error)
	// ResetJointPosition overrides a joint's position directly, bypassing
	// motor dynamics. Intended for initial state, not for control.
	ResetJointPosition(body BodyID, joint int, pos float64) error

	LinkMass(body BodyID, link int) (float64, error)
	SetLinkMass(body BodyID, link int, mass float64) error
	SetLinkFriction(body BodyID, link int, friction Friction) error
	SetLinkColor(body BodyID, link int, color Color) error

	ControlJoint(body BodyID, joint int, cmd MotorCommand) error
	ControlJoints(body BodyID, joints []int, cmds []MotorCommand) error

	// CreateFixedConstraint rigidly attaches the child link's frame to the
	// parent link's frame with zero relative offset.
	CreateFixedConstraint(parent BodyID, parentLink int, child BodyID, childLink int) (ConstraintID, error)

	BasePose(body BodyID) (spatialmath.Pose, error)
	LinkWorldPose(body BodyID, link int) (spatialmath.Pose, error)
	// SolveInverseKinematics returns one joint target per joint such that
	// the named link reaches target, as close as joint limits allow.
	SolveInverseKinematics(body BodyID, eeLink int, target r3.Vector) ([]float64, error)

	InContact(body BodyID, link int) (bool, error)

	// StepSimulation advances simulated time by one fixed TimeStep.
	StepSimulation() error
	TimeStep() float64
}
