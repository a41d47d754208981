package graspsim

import (
	"context"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/spatialmath"
)

// Robotiq2F140Model is the registry name of the Robotiq 2F-140 two-finger
// gripper: one actuated knuckle joint drives five passive linkage joints
// through sign-mirrored coupling.
const Robotiq2F140Model = "robotiq_2f140"

func init() {
	RegisterGripperModel(Robotiq2F140Model, newRobotiq2F140)
}

type robotiq2F140 struct {
	gripperBase

	posOffset r3.Vector
	ornOffset spatialmath.Orientation

	coupling    JointCoupling
	driverLower float64
	driverUpper float64
	graspSpeed  float64

	contacts *ContactRequirement
}

func newRobotiq2F140(sim *Simulation, scale float64, logger logging.Logger) (Gripper, error) {
	return &robotiq2F140{
		gripperBase: newGripperBase(sim, scale, logger),

		// grasp center sits 0.235 m in front of the base, facing down
		posOffset: r3.Vector{X: 0, Y: 0, Z: 0.235 * scale},
		ornOffset: &spatialmath.EulerAngles{Roll: math.Pi, Pitch: 0, Yaw: math.Pi / 2},

		coupling: JointCoupling{
			Driver: 0,
			Followers: []FollowerJoint{
				{Joint: 5, Sign: -1},
				{Joint: 2, Sign: 1},
				{Joint: 7, Sign: 1},
				{Joint: 4, Sign: -1},
				{Joint: 9, Sign: -1},
			},
			Force:        50,
			PositionGain: 1.5,
		},
		driverLower: 0.0,
		driverUpper: 0.7,
		graspSpeed:  0.8,

		// both finger pads must touch the object
		contacts: ContactAllOf(ContactLink(3), ContactLink(8)),
	}, nil
}

func (g *robotiq2F140) Load(ctx context.Context, graspPose spatialmath.Pose, openScale float64) error {
	if g.IsLoaded() {
		return ErrAlreadyLoaded
	}
	if err := validateOpenScale(openScale); err != nil {
		return err
	}

	asset, err := Asset(Robotiq2F140Model)
	if err != nil {
		return err
	}

	placement := PlacementPose(graspPose, g.posOffset, g.ornOffset)
	body, err := g.sim.Engine().LoadBody(asset, LoadOptions{
		Pose:          placement,
		GlobalScale:   g.scale,
		SelfCollision: true,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", Robotiq2F140Model)
	}
	g.markLoaded(body)

	if err := g.ConfigureFriction(DefaultFriction()); err != nil {
		return err
	}
	if err := g.ConfigureMass(DefaultBaseMass, DefaultCombinedFingerMass); err != nil {
		return err
	}
	if err := g.SetOpenScale(openScale); err != nil {
		return err
	}

	g.sim.RegisterStepFunc(func() error {
		_, err := g.coupling.Step(g.sim.Engine(), g.body)
		return err
	})

	g.logger.Debugf("loaded %s (scale %.2f) at %v", Robotiq2F140Model, g.scale, placement.Point())
	return nil
}

func (g *robotiq2F140) SetOpenScale(openScale float64) error {
	if err := validateOpenScale(openScale); err != nil {
		return err
	}
	if !g.IsLoaded() {
		return ErrNotLoaded
	}

	eng := g.sim.Engine()
	driverPos := openScale*g.driverLower + (1-openScale)*g.driverUpper
	if err := eng.ResetJointPosition(g.body, g.coupling.Driver, driverPos); err != nil {
		return err
	}
	for _, follower := range g.coupling.Followers {
		if err := eng.ResetJointPosition(g.body, follower.Joint, driverPos*follower.Sign); err != nil {
			return err
		}
	}
	return nil
}

func (g *robotiq2F140) Grab(ctx context.Context) error {
	if !g.IsLoaded() {
		return ErrNotLoaded
	}

	err := g.sim.Engine().ControlJoint(g.body, g.coupling.Driver, MotorCommand{
		Mode:           VelocityControl,
		TargetVelocity: g.graspSpeed,
		Force:          g.coupling.Force,
	})
	if err != nil {
		return err
	}
	return g.sim.StepSeconds(ctx, defaultSettleSeconds)
}

func (g *robotiq2F140) PosOffset() r3.Vector {
	return g.posOffset
}

func (g *robotiq2F140) OrnOffset() spatialmath.Orientation {
	return g.ornOffset
}

func (g *robotiq2F140) ContactRequirement() *ContactRequirement {
	return g.contacts
}

func (g *robotiq2F140) VisPoints(openScale float64) []r2.Point {
	width := 0.075 * math.Sin(openScale) * g.scale
	return []r2.Point{
		{X: -width, Y: 0},
		{X: width, Y: 0},
	}
}
