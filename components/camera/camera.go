// Package camera defines time-of-flight camera systems and the session that drives one.
package camera

import (
	"context"
	"fmt"

	"go.viam.com/skeletal/tof"
)

// Controls understood by every device.
const (
	ControlInitializationConfig    = "initialization_config"
	ControlNoiseReductionThreshold = "noise_reduction_threshold"
)

// Details describes a started device.
type Details struct {
	CameraID   string
	Connection string
	Mode       string
	FrameType  string
	Width      int
	Height     int
	IRBitDepth int
	MaxRange   int
}

func (d Details) String() string {
	return fmt.Sprintf("%s via %s (%s/%s %dx%d)", d.CameraID, d.Connection, d.Mode, d.FrameType, d.Width, d.Height)
}

// A Device is one camera reachable through a System. Its methods must be called in setup order:
// Initialize, SetMode, SetFrameType, Start; RequestFrame is valid only while started.
type Device interface {
	Initialize(ctx context.Context, configPath string) error
	AvailableModes(ctx context.Context) ([]string, error)
	SetMode(ctx context.Context, mode string) error
	AvailableFrameTypes(ctx context.Context) ([]string, error)
	SetFrameType(ctx context.Context, frameType string) error
	SetControl(ctx context.Context, name, value string) error
	Start(ctx context.Context) error
	Details(ctx context.Context) (Details, error)
	RequestFrame(ctx context.Context) (*tof.RawFrame, error)
	Stop(ctx context.Context) error
}

// A System enumerates the devices reachable at a URI.
type System interface {
	Cameras(ctx context.Context, uri string) ([]Device, error)
}

// A FrameSource produces raw frames one at a time.
type FrameSource interface {
	NextFrame(ctx context.Context) (*tof.RawFrame, error)
	Close(ctx context.Context) error
}
