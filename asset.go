package graspsim

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

//go:embed assets/*.json
var assetFS embed.FS

// JointAsset describes one joint and the link it attaches.
type JointAsset struct {
	Name string `json:"name"`
	// Type is "revolute" (radians) or "prismatic" (meters).
	Type string `json:"type"`
	// Axis is the joint axis in the parent frame, unit length.
	Axis [3]float64 `json:"axis"`
	// Lower and Upper bound the joint position. Equal bounds fix the joint.
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	// Mass of the attached link in kg.
	Mass float64 `json:"mass"`
	// MaxVelocity caps joint speed when a motor command does not; zero
	// means uncapped.
	MaxVelocity float64 `json:"max_velocity,omitempty"`
}

// BodyAsset is a read-only body description: the joint topology and mass
// distribution of a gripper model or carriage, supplied to Engine.LoadBody.
type BodyAsset struct {
	Name     string  `json:"name"`
	BaseMass float64 `json:"base_mass"`
	// EndEffectorLink names the link used as end-effector frame for
	// constraints and inverse kinematics, where the asset has one.
	EndEffectorLink int          `json:"end_effector_link,omitempty"`
	Joints          []JointAsset `json:"joints"`
}

const (
	jointTypeRevolute  = "revolute"
	jointTypePrismatic = "prismatic"
)

// Asset loads an embedded body description by name. A missing or malformed
// asset is fatal for the caller's load attempt and is reported as an error.
func Asset(name string) (BodyAsset, error) {
	data, err := assetFS.ReadFile(fmt.Sprintf("assets/%s.json", name))
	if err != nil {
		return BodyAsset{}, errors.Wrapf(err, "no body asset named %q", name)
	}

	var asset BodyAsset
	if err := json.Unmarshal(data, &asset); err != nil {
		return BodyAsset{}, errors.Wrapf(err, "malformed body asset %q", name)
	}

	if len(asset.Joints) == 0 {
		return BodyAsset{}, errors.Errorf("body asset %q has no joints", name)
	}
	for i, joint := range asset.Joints {
		if joint.Type != jointTypeRevolute && joint.Type != jointTypePrismatic {
			return BodyAsset{}, errors.Errorf("body asset %q joint %d has unknown type %q", name, i, joint.Type)
		}
		if joint.Lower > joint.Upper {
			return BodyAsset{}, errors.Errorf("body asset %q joint %d has inverted limits", name, i)
		}
	}
	if asset.EndEffectorLink < 0 || asset.EndEffectorLink >= len(asset.Joints) {
		return BodyAsset{}, errors.Errorf("body asset %q end effector link %d out of range", name, asset.EndEffectorLink)
	}

	return asset, nil
}
