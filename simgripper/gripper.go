// Package simgripper exposes a simulated grasp setup as a Viam gripper
// component. Each component instance owns one gripper loaded into a shared
// kinematic simulation world together with its positioning mount; grippers
// configured with the same world name share one simulation.
package simgripper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/components/gripper"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"

	"graspsim"
	"graspsim/kinsim"
)

// Model is the simulated gripper component model.
var Model = resource.NewModel("burg", "sim", "gripper")

// Default closed-loop positioning parameters for go_to_cartesian.
const (
	defaultMoveTimeout   = 5.0   // simulated seconds
	defaultMoveTolerance = 0.001 // meters
)

// Config configures one simulated gripper instance: the gripper model and
// simulation parameters, plus the grasp-center pose the gripper is loaded at.
type Config struct {
	graspsim.GraspConfig

	// GraspPosition is the grasp-center position in meters.
	GraspPosition [3]float64 `json:"grasp_position,omitempty"`
	// GraspOrientation is the grasp-center orientation as roll/pitch/yaw
	// Euler angles in radians.
	GraspOrientation [3]float64 `json:"grasp_orientation,omitempty"`
}

// Validate ensures all parts of the config are valid and fills defaults.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	return cfg.GraspConfig.Validate(path)
}

func init() {
	resource.RegisterComponent(
		gripper.API,
		Model,
		resource.Registration[gripper.Gripper, *Config]{
			Constructor: newSimGripper,
		},
	)
}

type simGripper struct {
	resource.AlwaysRebuild

	name   resource.Name
	logger logging.Logger

	world      string
	sim        *graspsim.Simulation
	grip       graspsim.Gripper
	mount      *graspsim.Mount
	geometries []spatialmath.Geometry

	openScale float64

	mu       sync.Mutex
	isMoving atomic.Bool
}

func newSimGripper(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger) (gripper.Gripper, error) {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}
	// re-apply defaults; Validate mutates the config in place
	if _, _, err := cfg.Validate(""); err != nil {
		return nil, err
	}

	sim, err := graspsim.GetSharedSimulation(cfg.World, cfg.TimeStep, func(timeStep float64) (graspsim.Engine, error) {
		return kinsim.NewEngine(timeStep), nil
	}, logger)
	if err != nil {
		return nil, err
	}

	grip, err := buildGripper(ctx, sim, cfg, logger)
	if err != nil {
		graspsim.ReleaseSharedSimulation(cfg.World)
		return nil, err
	}

	mount, err := graspsim.AttachMount(sim, grip, logger)
	if err != nil {
		graspsim.ReleaseSharedSimulation(cfg.World)
		return nil, err
	}

	g := &simGripper{
		name:       conf.ResourceName(),
		logger:     logger,
		world:      cfg.World,
		sim:        sim,
		grip:       grip,
		mount:      mount,
		geometries: clawGeometries(grip, logger),
		openScale:  cfg.OpenScale,
	}

	logger.Debugf("simulated gripper %q initialized in world %q (model %s, scale %.2f)",
		g.name.ShortName(), cfg.World, cfg.GripperModel, cfg.GripperScale)
	return g, nil
}

func buildGripper(ctx context.Context, sim *graspsim.Simulation, cfg *Config, logger logging.Logger) (graspsim.Gripper, error) {
	grip, err := graspsim.NewGripper(cfg.GripperModel, sim, cfg.GripperScale, logger)
	if err != nil {
		return nil, err
	}

	graspPose := spatialmath.NewPose(
		r3.Vector{X: cfg.GraspPosition[0], Y: cfg.GraspPosition[1], Z: cfg.GraspPosition[2]},
		&spatialmath.EulerAngles{Roll: cfg.GraspOrientation[0], Pitch: cfg.GraspOrientation[1], Yaw: cfg.GraspOrientation[2]},
	)
	if err := grip.Load(ctx, graspPose, cfg.OpenScale); err != nil {
		return nil, fmt.Errorf("failed to load gripper %q: %w", cfg.GripperModel, err)
	}

	if err := grip.ConfigureFriction(*cfg.Friction); err != nil {
		return nil, err
	}
	if err := grip.ConfigureMass(cfg.BaseMass, cfg.CombinedFingerMass); err != nil {
		return nil, err
	}
	return grip, nil
}

// clawGeometries approximates the gripper's swept volume with a box spanning
// the fully open finger points. The dimensions are derived from gripper model
// constants, so a box construction failure signals a bad model and is logged.
func clawGeometries(grip graspsim.Gripper, logger logging.Logger) []spatialmath.Geometry {
	span := 0.0
	for _, pt := range grip.VisPoints(graspsim.MaxOpenScale) {
		norm := math.Hypot(pt.X, pt.Y)
		if norm > span {
			span = norm
		}
	}
	depth := grip.PosOffset().Norm()
	clawSize := r3.Vector{X: 2 * span, Y: 2 * span, Z: depth}
	claws, err := spatialmath.NewBox(spatialmath.NewPoseFromPoint(r3.Vector{X: 0, Y: 0, Z: clawSize.Z / 2}), clawSize, "claws")
	if err != nil {
		logger.Warnf("failed to build claw geometry (size %v): %v", clawSize, err)
		return nil
	}
	return []spatialmath.Geometry{claws}
}

func (g *simGripper) Name() resource.Name {
	return g.name
}

// Open resets the fingers to the configured open scale. An "open_scale" value
// in extra overrides the configured one for this call and subsequent opens.
func (g *simGripper) Open(ctx context.Context, extra map[string]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	scale := g.openScale
	if v, ok := extra["open_scale"].(float64); ok {
		scale = v
	}

	g.logger.Debugf("opening gripper to scale %.2f", scale)
	if err := g.grip.SetOpenScale(scale); err != nil {
		return err
	}
	g.openScale = scale
	return nil
}

// Grab closes the gripper and reports whether the required finger contacts
// were made once the mechanism settled.
func (g *simGripper) Grab(ctx context.Context, extra map[string]interface{}) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.isMoving.Store(true)
	defer g.isMoving.Store(false)

	g.logger.Debug("closing gripper")
	if err := g.grip.Grab(ctx); err != nil {
		return false, err
	}
	return g.sim.CheckGraspSuccess(g.grip)
}

// Stop is a no-op: the simulation only advances inside blocking calls, so
// there is never motion in flight between calls.
func (g *simGripper) Stop(ctx context.Context, extra map[string]interface{}) error {
	g.isMoving.Store(false)
	return nil
}

func (g *simGripper) IsMoving(ctx context.Context) (bool, error) {
	return g.isMoving.Load(), nil
}

func (g *simGripper) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.geometries, nil
}

func (g *simGripper) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	switch cmd["command"] {
	case "get_position":
		g.mu.Lock()
		defer g.mu.Unlock()

		pos, err := g.mount.CartesianPos()
		if err != nil {
			return nil, err
		}
		joints, err := g.grip.JointPositions()
		if err != nil {
			return nil, err
		}
		jointValues := make([]interface{}, len(joints))
		for i, j := range joints {
			jointValues[i] = j.Value
		}
		return map[string]interface{}{
			"x":               pos.X,
			"y":               pos.Y,
			"z":               pos.Z,
			"joint_positions": jointValues,
			"open_scale":      g.openScale,
		}, nil

	case "set_open_scale":
		scale, ok := cmd["open_scale"].(float64)
		if !ok {
			return nil, fmt.Errorf("set_open_scale command requires an 'open_scale' parameter")
		}

		g.mu.Lock()
		defer g.mu.Unlock()

		if err := g.grip.SetOpenScale(scale); err != nil {
			return nil, err
		}
		g.openScale = scale
		return map[string]interface{}{"success": true, "open_scale": scale}, nil

	case "go_to_cartesian":
		x, okX := cmd["x"].(float64)
		y, okY := cmd["y"].(float64)
		z, okZ := cmd["z"].(float64)
		if !okX || !okY || !okZ {
			return nil, fmt.Errorf("go_to_cartesian command requires numeric 'x', 'y' and 'z' parameters")
		}
		timeout := defaultMoveTimeout
		if v, ok := cmd["timeout"].(float64); ok && v > 0 {
			timeout = v
		}
		tolerance := defaultMoveTolerance
		if v, ok := cmd["tolerance"].(float64); ok && v > 0 {
			tolerance = v
		}

		g.mu.Lock()
		defer g.mu.Unlock()

		g.isMoving.Store(true)
		defer g.isMoving.Store(false)

		reached, err := g.mount.GoToCartesianPos(ctx, r3.Vector{X: x, Y: y, Z: z}, timeout, tolerance)
		if err != nil {
			return nil, err
		}
		pos, err := g.mount.CartesianPos()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"reached": reached,
			"x":       pos.X,
			"y":       pos.Y,
			"z":       pos.Z,
		}, nil

	case "grasp_success":
		g.mu.Lock()
		defer g.mu.Unlock()

		success, err := g.sim.CheckGraspSuccess(g.grip)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"success":     success,
			"requirement": g.grip.ContactRequirement().String(),
		}, nil

	case "step_seconds":
		seconds, ok := cmd["seconds"].(float64)
		if !ok || seconds <= 0 {
			return nil, fmt.Errorf("step_seconds command requires a positive 'seconds' parameter")
		}

		g.mu.Lock()
		defer g.mu.Unlock()

		if err := g.sim.StepSeconds(ctx, seconds); err != nil {
			return nil, err
		}
		return map[string]interface{}{"simulated_seconds": g.sim.SimulatedSeconds()}, nil

	case "simulation_status":
		refCount, exists := graspsim.SimulationStatus(g.world)
		return map[string]interface{}{
			"world":             g.world,
			"ref_count":         refCount,
			"exists":            exists,
			"simulated_seconds": g.sim.SimulatedSeconds(),
		}, nil

	default:
		return nil, fmt.Errorf("unknown command: %v", cmd["command"])
	}
}

func (g *simGripper) Close(ctx context.Context) error {
	graspsim.ReleaseSharedSimulation(g.world)
	return nil
}

func (g *simGripper) CurrentInputs(ctx context.Context) ([]referenceframe.Input, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.grip.JointPositions()
}

func (g *simGripper) GoToInputs(ctx context.Context, inputs ...[]referenceframe.Input) error {
	return errors.ErrUnsupported
}

func (g *simGripper) Kinematics(ctx context.Context) (referenceframe.Model, error) {
	return nil, errors.ErrUnsupported
}

// IsHoldingSomething reports the grasp judgment from the simulation's contact
// state.
func (g *simGripper) IsHoldingSomething(ctx context.Context, extra map[string]interface{}) (gripper.HoldingStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	held, err := g.sim.CheckGraspSuccess(g.grip)
	if err != nil {
		return gripper.HoldingStatus{}, err
	}
	return gripper.HoldingStatus{IsHoldingSomething: held}, nil
}
