// Package register registers all camera systems.
package register

import (
	// register camera systems.
	_ "go.viam.com/skeletal/components/camera/fake"
	_ "go.viam.com/skeletal/components/camera/replay"
)
