package graspsim

import (
	"fmt"
)

// GraspConfig configures a simulated grasp setup: which gripper model to
// instantiate and the simulation parameters shared across models.
type GraspConfig struct {
	// GripperModel is a registered model name, e.g. "robotiq_2f140".
	GripperModel string `json:"gripper_model"`

	GripperScale float64 `json:"gripper_scale,omitempty"`
	OpenScale    float64 `json:"open_scale,omitempty"`

	// World names the shared simulation this gripper joins.
	World    string  `json:"world,omitempty"`
	TimeStep float64 `json:"time_step,omitempty"`

	Friction           *Friction `json:"friction,omitempty"`
	BaseMass           float64   `json:"base_mass,omitempty"`
	CombinedFingerMass float64   `json:"combined_finger_mass,omitempty"`
}

// Validate ensures all parts of the config are valid and fills defaults.
func (cfg *GraspConfig) Validate(path string) ([]string, []string, error) {
	if cfg.GripperModel == "" {
		return nil, nil, fmt.Errorf("must specify gripper_model (available: %v)", GripperModels())
	}

	if cfg.GripperScale == 0 {
		cfg.GripperScale = 1.0
	}
	if cfg.GripperScale < 0 {
		return nil, nil, fmt.Errorf("gripper_scale must be positive, got %v", cfg.GripperScale)
	}

	if cfg.OpenScale == 0 {
		cfg.OpenScale = MaxOpenScale
	}
	if err := validateOpenScale(cfg.OpenScale); err != nil {
		return nil, nil, err
	}

	if cfg.World == "" {
		cfg.World = "default"
	}
	if cfg.TimeStep == 0 {
		cfg.TimeStep = DefaultTimeStep
	}
	if cfg.TimeStep < 0 {
		return nil, nil, fmt.Errorf("time_step must be positive, got %v", cfg.TimeStep)
	}

	if cfg.Friction == nil {
		friction := DefaultFriction()
		cfg.Friction = &friction
	}
	if cfg.BaseMass == 0 {
		cfg.BaseMass = DefaultBaseMass
	}
	if cfg.CombinedFingerMass == 0 {
		cfg.CombinedFingerMass = DefaultCombinedFingerMass
	}
	if cfg.BaseMass < 0 || cfg.CombinedFingerMass < 0 {
		return nil, nil, fmt.Errorf("masses must be positive, got base %v and combined finger %v",
			cfg.BaseMass, cfg.CombinedFingerMass)
	}

	return nil, nil, nil
}
