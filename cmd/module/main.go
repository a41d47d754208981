package main

import (
	"go.viam.com/rdk/components/gripper"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"

	"graspsim/simgripper"
)

func main() {
	module.ModularMain(
		resource.APIModel{API: gripper.API, Model: simgripper.Model},
	)
}
