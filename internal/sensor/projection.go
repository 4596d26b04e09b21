package sensor

import (
	"errors"

	"github.com/ayusman/depthview/internal/skeleton"
)

// ErrBehindSensor is returned when projecting a point with no positive depth.
var ErrBehindSensor = errors.New("point is not in front of the sensor")

// Projection is a pinhole camera model for the depth sensor. World
// coordinates are millimetres with Y pointing up; image coordinates are
// pixels with Y pointing down.
type Projection struct {
	Width   int
	Height  int
	FocalX  float64
	FocalY  float64
	CenterX float64
	CenterY float64
}

// DefaultProjection returns the intrinsics of a VGA structured-light depth sensor.
func DefaultProjection() Projection {
	return Projection{
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		FocalX:  575.8,
		FocalY:  575.8,
		CenterX: DefaultWidth / 2,
		CenterY: DefaultHeight / 2,
	}
}

// ToDepth projects a world point to depth-image pixel coordinates.
func (p Projection) ToDepth(pt skeleton.Point3D) (float64, float64, error) {
	if pt.Z <= 0 {
		return 0, 0, ErrBehindSensor
	}
	x := p.CenterX + p.FocalX*pt.X/pt.Z
	y := p.CenterY - p.FocalY*pt.Y/pt.Z
	return x, y, nil
}

// ToWorld back-projects a pixel at depth z millimetres into world coordinates.
func (p Projection) ToWorld(x, y, z float64) skeleton.Point3D {
	return skeleton.Point3D{
		X: (x - p.CenterX) * z / p.FocalX,
		Y: (p.CenterY - y) * z / p.FocalY,
		Z: z,
	}
}
