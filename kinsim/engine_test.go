package kinsim

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/spatialmath"

	"graspsim"
)

const testTimeStep = 1.0 / 240.0

func sliderAsset() graspsim.BodyAsset {
	return graspsim.BodyAsset{
		Name:            "test_slider",
		BaseMass:        1.0,
		EndEffectorLink: 2,
		Joints: []graspsim.JointAsset{
			{Name: "x", Type: "prismatic", Axis: [3]float64{1, 0, 0}, Lower: -1, Upper: 1, Mass: 0.1},
			{Name: "y", Type: "prismatic", Axis: [3]float64{0, 1, 0}, Lower: -1, Upper: 1, Mass: 0.1},
			{Name: "z", Type: "prismatic", Axis: [3]float64{0, 0, 1}, Lower: -1, Upper: 1, Mass: 0.1},
		},
	}
}

func hingeAsset() graspsim.BodyAsset {
	return graspsim.BodyAsset{
		Name:     "test_hinge",
		BaseMass: 0.5,
		Joints: []graspsim.JointAsset{
			{Name: "hinge", Type: "revolute", Axis: [3]float64{0, 0, 1}, Lower: -math.Pi, Upper: math.Pi, Mass: 0.1},
		},
	}
}

func TestLoadBody(t *testing.T) {
	eng := NewEngine(testTimeStep)

	body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{})
	require.NoError(t, err)

	numJoints, err := eng.NumJoints(body)
	require.NoError(t, err)
	assert.Equal(t, 3, numJoints)

	pose, err := eng.BasePose(body)
	require.NoError(t, err)
	assert.True(t, spatialmath.PoseAlmostEqual(spatialmath.NewZeroPose(), pose))

	t.Run("masses come from the asset", func(t *testing.T) {
		baseMass, err := eng.LinkMass(body, graspsim.BaseLink)
		require.NoError(t, err)
		assert.Equal(t, 1.0, baseMass)

		linkMass, err := eng.LinkMass(body, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.1, linkMass)
	})

	t.Run("friction is recorded per link", func(t *testing.T) {
		friction := graspsim.DefaultFriction()
		require.NoError(t, eng.SetLinkFriction(body, 1, friction))

		got, err := eng.LinkFriction(body, 1)
		require.NoError(t, err)
		assert.Equal(t, friction, got)
	})

	t.Run("global scale widens prismatic limits", func(t *testing.T) {
		scaled, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{GlobalScale: 2.0})
		require.NoError(t, err)

		require.NoError(t, eng.ResetJointPosition(scaled, 0, 1.5))
		require.NoError(t, eng.ControlJoint(scaled, 0, graspsim.MotorCommand{
			Mode:           graspsim.PositionControl,
			TargetPosition: 5.0,
			PositionGain:   100,
		}))
		require.NoError(t, eng.StepSimulation())

		pos, err := eng.JointPosition(scaled, 0)
		require.NoError(t, err)
		assert.Equal(t, 2.0, pos)
	})

	t.Run("unknown body errors", func(t *testing.T) {
		_, err := eng.NumJoints(graspsim.BodyID(99))
		assert.Error(t, err)
	})
}

func TestPositionControl(t *testing.T) {
	t.Run("gain scales the per-step delta", func(t *testing.T) {
		eng := NewEngine(testTimeStep)
		body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{})
		require.NoError(t, err)

		require.NoError(t, eng.ControlJoint(body, 0, graspsim.MotorCommand{
			Mode:           graspsim.PositionControl,
			TargetPosition: 0.5,
			PositionGain:   0.1,
		}))
		require.NoError(t, eng.StepSimulation())

		pos, err := eng.JointPosition(body, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.05, pos, 1e-12)
	})

	t.Run("max velocity caps the per-step delta", func(t *testing.T) {
		eng := NewEngine(testTimeStep)
		body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{})
		require.NoError(t, err)

		require.NoError(t, eng.ControlJoint(body, 0, graspsim.MotorCommand{
			Mode:           graspsim.PositionControl,
			TargetPosition: 0.5,
			PositionGain:   1.0,
			MaxVelocity:    0.2,
		}))
		require.NoError(t, eng.StepSimulation())

		pos, err := eng.JointPosition(body, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.2*testTimeStep, pos, 1e-12)
	})

	t.Run("command persists until replaced", func(t *testing.T) {
		eng := NewEngine(testTimeStep)
		body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{})
		require.NoError(t, err)

		require.NoError(t, eng.ControlJoint(body, 1, graspsim.MotorCommand{
			Mode:           graspsim.PositionControl,
			TargetPosition: 0.1,
			PositionGain:   1.0,
		}))
		for i := 0; i < 5; i++ {
			require.NoError(t, eng.StepSimulation())
		}

		pos, err := eng.JointPosition(body, 1)
		require.NoError(t, err)
		assert.InDelta(t, 0.1, pos, 1e-9)
	})

	t.Run("uncommanded joints stay put", func(t *testing.T) {
		eng := NewEngine(testTimeStep)
		body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{})
		require.NoError(t, err)

		require.NoError(t, eng.ResetJointPosition(body, 2, 0.3))
		require.NoError(t, eng.StepSimulation())

		pos, err := eng.JointPosition(body, 2)
		require.NoError(t, err)
		assert.Equal(t, 0.3, pos)
	})
}

func TestVelocityControl(t *testing.T) {
	eng := NewEngine(testTimeStep)
	body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{})
	require.NoError(t, err)

	require.NoError(t, eng.ControlJoint(body, 0, graspsim.MotorCommand{
		Mode:           graspsim.VelocityControl,
		TargetVelocity: 0.5,
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, eng.StepSimulation())
	}
	pos, err := eng.JointPosition(body, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*10*testTimeStep, pos, 1e-12)

	t.Run("clamps at the joint limit", func(t *testing.T) {
		for i := 0; i < 2*240; i++ {
			require.NoError(t, eng.StepSimulation())
		}
		pos, err := eng.JointPosition(body, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, pos)
	})
}

func TestControlJointsLengthMismatch(t *testing.T) {
	eng := NewEngine(testTimeStep)
	body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{})
	require.NoError(t, err)

	err = eng.ControlJoints(body, []int{0, 1}, []graspsim.MotorCommand{{}})
	assert.Error(t, err)
}

func TestLinkWorldPose(t *testing.T) {
	eng := NewEngine(testTimeStep)

	base := spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{Pose: base})
	require.NoError(t, err)

	require.NoError(t, eng.ResetJointPosition(body, 0, 0.1))
	require.NoError(t, eng.ResetJointPosition(body, 2, -0.2))

	pose, err := eng.LinkWorldPose(body, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, pose.Point().X, 1e-9)
	assert.InDelta(t, 2.0, pose.Point().Y, 1e-9)
	assert.InDelta(t, 2.8, pose.Point().Z, 1e-9)

	t.Run("base link returns the base pose", func(t *testing.T) {
		pose, err := eng.LinkWorldPose(body, graspsim.BaseLink)
		require.NoError(t, err)
		assert.True(t, spatialmath.PoseAlmostEqual(base, pose))
	})

	t.Run("revolute joints rotate downstream links", func(t *testing.T) {
		hinge, err := eng.LoadBody(hingeAsset(), graspsim.LoadOptions{})
		require.NoError(t, err)
		require.NoError(t, eng.ResetJointPosition(hinge, 0, math.Pi/2))

		pose, err := eng.LinkWorldPose(hinge, 0)
		require.NoError(t, err)
		expected := &spatialmath.EulerAngles{Yaw: math.Pi / 2}
		assert.True(t, spatialmath.OrientationAlmostEqual(expected, pose.Orientation()))
	})
}

func TestFixedConstraint(t *testing.T) {
	eng := NewEngine(testTimeStep)

	parent, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{FixedBase: true})
	require.NoError(t, err)
	child, err := eng.LoadBody(hingeAsset(), graspsim.LoadOptions{})
	require.NoError(t, err)

	_, err = eng.CreateFixedConstraint(parent, 2, child, graspsim.BaseLink)
	require.NoError(t, err)

	require.NoError(t, eng.ControlJoint(parent, 0, graspsim.MotorCommand{
		Mode:           graspsim.PositionControl,
		TargetPosition: 0.4,
		PositionGain:   1.0,
	}))
	for i := 0; i < 20; i++ {
		require.NoError(t, eng.StepSimulation())
	}

	parentEE, err := eng.LinkWorldPose(parent, 2)
	require.NoError(t, err)
	childBase, err := eng.BasePose(child)
	require.NoError(t, err)
	assert.True(t, spatialmath.PoseAlmostEqual(parentEE, childBase))
	assert.InDelta(t, 0.4, childBase.Point().X, 1e-9)

	t.Run("only base-frame attachments are supported", func(t *testing.T) {
		_, err := eng.CreateFixedConstraint(parent, 2, child, 0)
		assert.Error(t, err)
	})
}

func TestSolveInverseKinematics(t *testing.T) {
	eng := NewEngine(testTimeStep)

	base := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.5})
	body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{Pose: base})
	require.NoError(t, err)

	t.Run("solves a reachable target", func(t *testing.T) {
		targets, err := eng.SolveInverseKinematics(body, 2, r3.Vector{X: 0.8, Y: -0.2, Z: 0.6})
		require.NoError(t, err)
		require.Len(t, targets, 3)
		assert.InDelta(t, 0.3, targets[0], 1e-9)
		assert.InDelta(t, -0.2, targets[1], 1e-9)
		assert.InDelta(t, 0.6, targets[2], 1e-9)
	})

	t.Run("clamps an out-of-workspace target to the limits", func(t *testing.T) {
		targets, err := eng.SolveInverseKinematics(body, 2, r3.Vector{Z: 5})
		require.NoError(t, err)
		assert.Equal(t, 1.0, targets[2])
	})

	t.Run("accounts for the base orientation", func(t *testing.T) {
		rotated, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{
			Pose: spatialmath.NewPose(r3.Vector{}, &spatialmath.EulerAngles{Yaw: math.Pi / 2}),
		})
		require.NoError(t, err)

		// world +y is the rotated body's +x axis
		targets, err := eng.SolveInverseKinematics(rotated, 2, r3.Vector{Y: 0.4})
		require.NoError(t, err)
		assert.InDelta(t, 0.4, targets[0], 1e-9)
		assert.InDelta(t, 0.0, targets[1], 1e-9)
	})

	t.Run("rejects revolute chains", func(t *testing.T) {
		hinge, err := eng.LoadBody(hingeAsset(), graspsim.LoadOptions{})
		require.NoError(t, err)
		_, err = eng.SolveInverseKinematics(hinge, 0, r3.Vector{X: 0.1})
		assert.Error(t, err)
	})
}

func TestContactState(t *testing.T) {
	eng := NewEngine(testTimeStep)
	body, err := eng.LoadBody(sliderAsset(), graspsim.LoadOptions{})
	require.NoError(t, err)

	inContact, err := eng.InContact(body, 0)
	require.NoError(t, err)
	assert.False(t, inContact)

	eng.SetContact(body, 0, true)
	inContact, err = eng.InContact(body, 0)
	require.NoError(t, err)
	assert.True(t, inContact)

	eng.SetContact(body, 0, false)
	inContact, err = eng.InContact(body, 0)
	require.NoError(t, err)
	assert.False(t, inContact)

	_, err = eng.InContact(graspsim.BodyID(42), 0)
	assert.Error(t, err)
}

func TestTimeStep(t *testing.T) {
	assert.Equal(t, testTimeStep, NewEngine(testTimeStep).TimeStep())
	assert.Equal(t, graspsim.DefaultTimeStep, NewEngine(0).TimeStep())
}
