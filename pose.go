package graspsim

import (
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
)

// PlacementPose computes where to place a gripper's base so that its grasp
// center sits at graspPose. posOffset and ornOffset are the gripper's fixed
// grasp-center offset expressed in its base frame.
func PlacementPose(graspPose spatialmath.Pose, posOffset r3.Vector, ornOffset spatialmath.Orientation) spatialmath.Pose {
	return spatialmath.Compose(graspPose, spatialmath.NewPose(posOffset, ornOffset))
}

// GraspCenterPose recovers the grasp-center pose from a gripper base pose
// and the gripper's fixed offset. Inverse of PlacementPose.
func GraspCenterPose(basePose spatialmath.Pose, posOffset r3.Vector, ornOffset spatialmath.Orientation) spatialmath.Pose {
	offset := spatialmath.NewPose(posOffset, ornOffset)
	return spatialmath.Compose(basePose, spatialmath.PoseInverse(offset))
}
