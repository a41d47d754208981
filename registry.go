package graspsim

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

// GripperConstructor builds an unloaded gripper of one model. scale is the
// uniform factor applied to geometry and offsets.
type GripperConstructor func(sim *Simulation, scale float64, logger logging.Logger) (Gripper, error)

var (
	gripperModelsMu sync.RWMutex
	gripperModels   = make(map[string]GripperConstructor)
)

// RegisterGripperModel makes a gripper model available to NewGripper.
// Models register themselves in init; registering the same name twice
// panics.
func RegisterGripperModel(name string, ctor GripperConstructor) {
	gripperModelsMu.Lock()
	defer gripperModelsMu.Unlock()
	if _, exists := gripperModels[name]; exists {
		panic(fmt.Sprintf("gripper model %q registered twice", name))
	}
	gripperModels[name] = ctor
}

// NewGripper constructs an unloaded gripper of the named model.
func NewGripper(name string, sim *Simulation, scale float64, logger logging.Logger) (Gripper, error) {
	if scale <= 0 {
		return nil, errors.Errorf("gripper scale must be positive, got %v", scale)
	}

	gripperModelsMu.RLock()
	ctor, exists := gripperModels[name]
	gripperModelsMu.RUnlock()
	if !exists {
		return nil, errors.Errorf("no gripper model named %q (available: %v)", name, GripperModels())
	}
	return ctor(sim, scale, logger)
}

// GripperModels lists the registered model names, sorted.
func GripperModels() []string {
	gripperModelsMu.RLock()
	defer gripperModelsMu.RUnlock()
	names := make([]string, 0, len(gripperModels))
	for name := range gripperModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
