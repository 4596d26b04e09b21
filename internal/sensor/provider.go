// Package sensor provides depth sensor and user tracker sources.
package sensor

import (
	"errors"
	"fmt"

	"github.com/ayusman/depthview/internal/depth"
	"github.com/ayusman/depthview/internal/skeleton"
)

// Default sensor settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)

var (
	// ErrNotOpen is returned when reading from a provider that is not open.
	ErrNotOpen = errors.New("sensor is not open")
	// ErrInitialize is returned when the tracking subsystem cannot start.
	ErrInitialize = errors.New("tracking subsystem init failed")
	// ErrCreateTracker is returned when the user tracker cannot be created.
	ErrCreateTracker = errors.New("user tracker creation failed")
	// ErrEndOfStream is returned when a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Frame is one user tracker frame: a depth image, the user label map and the
// per-user tracking reports.
type Frame struct {
	Index     int
	Timestamp int64
	Depth     *depth.Frame
	Mask      *depth.UserMask
	Users     []skeleton.UserData
}

// Validate checks that the depth image and user mask are usable together.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", depth.ErrInvalidFrame)
	}
	if err := f.Depth.Validate(); err != nil {
		return err
	}
	if err := f.Mask.Validate(); err != nil {
		return err
	}
	if f.Mask.Width != f.Depth.Width || f.Mask.Height != f.Depth.Height {
		return fmt.Errorf("%w: mask %dx%d does not match depth %dx%d", depth.ErrInvalidFrame,
			f.Mask.Width, f.Mask.Height, f.Depth.Width, f.Depth.Height)
	}
	return nil
}

// Provider is a source of user tracker frames.
type Provider interface {
	// Open starts the tracking subsystem and creates the user tracker.
	// It returns an error wrapping ErrInitialize or ErrCreateTracker on failure.
	Open() error

	// Close releases the tracker.
	Close() error

	// IsOpen reports whether the provider has been opened successfully.
	IsOpen() bool

	// ReadFrame blocks until the next frame is available.
	ReadFrame() (*Frame, error)

	// StartSkeletonTracking asks the tracker to begin fitting a skeleton for a user.
	StartSkeletonTracking(id int) error

	// ConvertJointToDepth projects a world position onto the depth image plane.
	ConvertJointToDepth(p skeleton.Point3D) (float64, float64, error)
}
