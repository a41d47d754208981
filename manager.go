package graspsim

import (
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

// EngineFactory builds the engine backing a shared simulation world.
type EngineFactory func(timeStep float64) (Engine, error)

type sharedSimEntry struct {
	sim      *Simulation
	timeStep float64
	refCount int
}

var (
	sharedSimsMu sync.Mutex
	sharedSims   = make(map[string]*sharedSimEntry)
)

// GetSharedSimulation returns the simulation for the named world, creating
// it with the factory on first use. Components sharing a world share one
// simulation and must release it when closed.
func GetSharedSimulation(world string, timeStep float64, factory EngineFactory, logger logging.Logger) (*Simulation, error) {
	sharedSimsMu.Lock()
	defer sharedSimsMu.Unlock()

	if entry, exists := sharedSims[world]; exists {
		if entry.timeStep != timeStep {
			return nil, errors.Errorf("world %q already runs with time step %v, requested %v",
				world, entry.timeStep, timeStep)
		}
		entry.refCount++
		return entry.sim, nil
	}

	eng, err := factory(timeStep)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create engine for world %q", world)
	}
	sim := NewSimulation(eng, logger)
	sharedSims[world] = &sharedSimEntry{sim: sim, timeStep: timeStep, refCount: 1}
	logger.Infof("created shared simulation for world %q (time step %v)", world, timeStep)
	return sim, nil
}

// ReleaseSharedSimulation drops one reference to the named world's
// simulation, discarding it when the last reference goes.
func ReleaseSharedSimulation(world string) {
	sharedSimsMu.Lock()
	defer sharedSimsMu.Unlock()

	entry, exists := sharedSims[world]
	if !exists {
		return
	}
	entry.refCount--
	if entry.refCount <= 0 {
		delete(sharedSims, world)
	}
}

// SimulationStatus reports the reference count for the named world.
func SimulationStatus(world string) (refCount int, exists bool) {
	sharedSimsMu.Lock()
	defer sharedSimsMu.Unlock()

	entry, ok := sharedSims[world]
	if !ok {
		return 0, false
	}
	return entry.refCount, true
}
