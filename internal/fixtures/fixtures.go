// Package fixtures builds tracker frames for tests.
package fixtures

import (
	"fmt"

	"github.com/ayusman/depthview/internal/depth"
	"github.com/ayusman/depthview/internal/sensor"
	"github.com/ayusman/depthview/internal/skeleton"
)

// Wall is the depth of the background in BlockFrame, in millimetres.
const Wall = 3000

// BlockFrame builds a frame with a flat wall and a rectangular user standing
// in front of it at the given depth. The user covers columns [x0, x1) of
// every row and carries the given label in the mask.
func BlockFrame(index, width, height, x0, x1 int, label, userDepth uint16, users ...skeleton.UserData) *sensor.Frame {
	f := depth.NewFrame(width, height)
	mask := depth.NewUserMask(width, height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x >= x0 && x < x1 {
				f.Set(x, y, userDepth)
				mask.Set(x, y, label)
			} else {
				f.Set(x, y, Wall)
			}
		}
	}

	return &sensor.Frame{
		Index:     index,
		Timestamp: int64(index) * 33,
		Depth:     f,
		Mask:      mask,
		Users:     users,
	}
}

// TrackedUser returns a tracked user standing at distance z in front of the
// sensor with every joint on a vertical line through the optical axis.
func TrackedUser(id int, z float64) skeleton.UserData {
	u := skeleton.UserData{
		ID:           id,
		IsVisible:    true,
		State:        skeleton.StateTracked,
		CenterOfMass: skeleton.Point3D{Z: z},
	}
	for j := skeleton.Head; j < skeleton.NumJoints; j++ {
		u.Joints[j] = skeleton.Joint{
			Position:   skeleton.Point3D{Y: 600 - 100*float64(j), Z: z},
			Confidence: 1,
		}
	}
	return u
}

// NewUser returns the report of a user the tracker has just detected.
func NewUser(id int) skeleton.UserData {
	return skeleton.UserData{ID: id, IsNew: true, IsVisible: true}
}

// WalkSequence builds n frames in which user id is detected in the first
// frame and tracked afterwards while stepping closer to the sensor.
func WalkSequence(n, id int) []*sensor.Frame {
	frames := make([]*sensor.Frame, 0, n)
	for i := 0; i < n; i++ {
		user := TrackedUser(id, 2500-float64(i)*10)
		if i == 0 {
			user = NewUser(id)
		}
		frames = append(frames, BlockFrame(i, 32, 24, 10, 20, uint16(id), uint16(2500-i*10), user))
	}
	return frames
}

// SyntheticSequence reads n frames from a synthetic scene.
func SyntheticSequence(n int, config sensor.SyntheticConfig) ([]*sensor.Frame, error) {
	p := sensor.NewSyntheticProvider(config)
	if err := p.Open(); err != nil {
		return nil, err
	}
	defer p.Close()

	frames := make([]*sensor.Frame, 0, n)
	for i := 0; i < n; i++ {
		f, err := p.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("read frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
