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

// WSG32Model is the registry name of the WSG 32 parallel-jaw gripper. Its
// joints run in two control modes: direct position resets set the open
// amount at load time, and during a grasp the driver finger closes under
// velocity control while the per-step coupling mirrors the opposing finger
// with an assistive velocity term so it does not lag.
const WSG32Model = "wsg_32"

func init() {
	RegisterGripperModel(WSG32Model, newWSG32)
}

type wsg32 struct {
	gripperBase

	posOffset r3.Vector
	ornOffset spatialmath.Orientation

	fingerOpenDist float64
	coupling       JointCoupling
	graspSpeed     float64

	contacts *ContactRequirement
}

func newWSG32(sim *Simulation, scale float64, logger logging.Logger) (Gripper, error) {
	const graspSpeed = 0.1
	return &wsg32{
		gripperBase: newGripperBase(sim, scale, logger),

		posOffset: r3.Vector{X: 0, Y: 0, Z: 0.136 * scale},
		ornOffset: &spatialmath.EulerAngles{Roll: math.Pi, Pitch: 0, Yaw: math.Pi / 2},

		fingerOpenDist: 0.028 * scale,
		coupling: JointCoupling{
			Driver:         0,
			Followers:      []FollowerJoint{{Joint: 2, Sign: -1}},
			Force:          100,
			PositionGain:   1.8,
			TargetVelocity: 2 * graspSpeed,
		},
		graspSpeed: graspSpeed,

		// both fingertips must touch the object
		contacts: ContactAllOf(ContactLink(1), ContactLink(3)),
	}, nil
}

func (g *wsg32) Load(ctx context.Context, graspPose spatialmath.Pose, openScale float64) error {
	if g.IsLoaded() {
		return ErrAlreadyLoaded
	}
	if err := validateOpenScale(openScale); err != nil {
		return err
	}

	asset, err := Asset(WSG32Model)
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
		return errors.Wrapf(err, "failed to load %s", WSG32Model)
	}
	g.markLoaded(body)

	if err := g.SetColor(Color{R: 0.5, G: 0.5, B: 0.5, A: 1}); err != nil {
		return err
	}
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

	g.logger.Debugf("loaded %s (scale %.2f) at %v", WSG32Model, g.scale, placement.Point())
	return nil
}

func (g *wsg32) SetOpenScale(openScale float64) error {
	if err := validateOpenScale(openScale); err != nil {
		return err
	}
	if !g.IsLoaded() {
		return ErrNotLoaded
	}

	eng := g.sim.Engine()
	driverPos := -g.fingerOpenDist * openScale
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

func (g *wsg32) Grab(ctx context.Context) error {
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

func (g *wsg32) PosOffset() r3.Vector {
	return g.posOffset
}

func (g *wsg32) OrnOffset() spatialmath.Orientation {
	return g.ornOffset
}

func (g *wsg32) ContactRequirement() *ContactRequirement {
	return g.contacts
}

func (g *wsg32) VisPoints(openScale float64) []r2.Point {
	dist := g.fingerOpenDist * openScale
	return []r2.Point{
		{X: dist, Y: 0},
		{X: -dist, Y: 0},
	}
}
