// graspdemo runs one scripted grasp in the kinematic simulation: load a
// gripper at a grasp pose, attach the positioning mount, descend onto the
// object, close the fingers and report whether the required contacts were
// made. Contact with the object is declared explicitly since the kinematic
// engine does not detect collisions from geometry.
package main

import (
	"context"
	"flag"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/spatialmath"

	"graspsim"
	"graspsim/kinsim"
)

func main() {
	if err := realMain(); err != nil {
		panic(err)
	}
}

func realMain() error {
	var (
		model     = flag.String("gripper", graspsim.Robotiq2F140Model, "gripper model to simulate")
		scale     = flag.Float64("scale", 1.0, "uniform gripper scale factor")
		openScale = flag.Float64("open", graspsim.MaxOpenScale, "initial open scale")
		realtime  = flag.Bool("realtime", false, "pace simulation steps to the wall clock")
	)
	flag.Parse()

	ctx := context.Background()
	logger := logging.NewLogger("graspdemo")

	eng := kinsim.NewEngine(graspsim.DefaultTimeStep)
	sim := graspsim.NewSimulation(eng, logger)

	grip, err := graspsim.NewGripper(*model, sim, *scale, logger)
	if err != nil {
		return err
	}

	// grasp center above the object, fingers pointing down
	graspPose := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.1, Y: 0, Z: 0.3})
	if err := grip.Load(ctx, graspPose, *openScale); err != nil {
		return err
	}
	mass, err := grip.Mass()
	if err != nil {
		return err
	}
	logger.Infof("loaded %s: scale %.2f, total mass %.2f kg, contacts required on %s",
		*model, *scale, mass, grip.ContactRequirement())

	mount, err := graspsim.AttachMount(sim, grip, logger)
	if err != nil {
		return err
	}
	start, err := mount.CartesianPos()
	if err != nil {
		return err
	}
	logger.Infof("mount attached at %v", start)

	// descend 0.1 m onto the object
	target := start.Sub(r3.Vector{X: 0, Y: 0, Z: 0.1})
	reached, err := mount.GoToCartesianPos(ctx, target, 5.0, 0.001)
	if err != nil {
		return err
	}
	logger.Infof("descent reached=%v after %.2f simulated seconds", reached, sim.SimulatedSeconds())

	if *realtime {
		// let a human watch the approach settle
		if err := sim.StepSecondsPaced(ctx, 1.0); err != nil {
			return err
		}
	}

	logger.Info("closing fingers...")
	if err := grip.Grab(ctx); err != nil {
		return err
	}

	// the fingers have closed onto the object; declare the finger contacts
	for _, link := range grip.ContactRequirement().Links() {
		eng.SetContact(grip.Body(), link, true)
	}

	success, err := sim.CheckGraspSuccess(grip)
	if err != nil {
		return err
	}
	logger.Infof("grasp success: %v", success)

	// lift and verify the mount tracks back up
	lifted, err := mount.GoToCartesianPos(ctx, start, 5.0, 0.001)
	if err != nil {
		return err
	}
	final, err := mount.CartesianPos()
	if err != nil {
		return err
	}
	logger.Infof("lift reached=%v, final position %v, %.2f simulated seconds total",
		lifted, final, sim.SimulatedSeconds())
	return nil
}
