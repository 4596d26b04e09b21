// Package render composes depth frames into display images and draws
// skeleton overlays on them.
package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/ayusman/depthview/internal/depth"
)

// ErrSizeMismatch is returned when a user mask and depth frame differ in size.
var ErrSizeMismatch = errors.New("user mask does not match depth frame")

// Compositor turns a depth frame into a grayscale image in which only user
// pixels are lit. The output buffer is reused between frames of the same
// resolution.
type Compositor struct {
	img *image.Gray
}

// NewCompositor creates a Compositor with no buffer allocated.
func NewCompositor() *Compositor {
	return &Compositor{}
}

// Image returns the last composed image, or nil before the first Composite.
func (c *Compositor) Image() *image.Gray {
	return c.img
}

// Composite writes the histogram intensity of every pixel into the output
// image. Pixels whose mask label is 0 are forced to 0.
//
// The returned image is owned by the Compositor and is overwritten by the
// next call.
func (c *Compositor) Composite(f *depth.Frame, mask *depth.UserMask, hist *depth.Histogram) (*image.Gray, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	if mask.Width != f.Width || mask.Height != f.Height {
		return nil, fmt.Errorf("%w: mask %dx%d, depth %dx%d", ErrSizeMismatch, mask.Width, mask.Height, f.Width, f.Height)
	}

	if c.img == nil || c.img.Rect.Dx() != f.Width || c.img.Rect.Dy() != f.Height {
		c.img = image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	}

	rowSamples := f.RowSamples()
	for y := 0; y < f.Height; y++ {
		depthRow := f.Data[y*rowSamples : y*rowSamples+f.Width]
		labelRow := mask.Labels[y*mask.Width : (y+1)*mask.Width]
		pixRow := c.img.Pix[y*c.img.Stride : y*c.img.Stride+f.Width]

		for x, d := range depthRow {
			value := hist.Intensity(d)

			// filter out everything that's not a user
			if labelRow[x] == 0 {
				value = 0
			}

			pixRow[x] = toGray(value)
		}
	}

	return c.img, nil
}

// toGray truncates an intensity to a byte, clamping to [0, 255].
func toGray(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
