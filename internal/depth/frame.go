// Package depth provides depth frame types and histogram normalization for depth images.
package depth

import (
	"errors"
	"fmt"
)

// BytesPerSample is the size of a single depth sample in bytes.
const BytesPerSample = 2

// ErrInvalidFrame is returned when a frame's dimensions do not describe its data.
var ErrInvalidFrame = errors.New("invalid depth frame")

// Frame is a grid of 16-bit depth samples in millimetres. A value of 0 means
// the sensor got no return for that pixel.
//
// Stride is the length of one row in bytes and may be larger than
// Width*BytesPerSample when rows are padded.
type Frame struct {
	Width  int
	Height int
	Stride int
	Data   []uint16
}

// NewFrame creates an unpadded frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Stride: width * BytesPerSample,
		Data:   make([]uint16, width*height),
	}
}

// RowSamples returns the number of samples between the start of two rows.
func (f *Frame) RowSamples() int {
	return f.Stride / BytesPerSample
}

// At returns the depth sample at (x, y), honouring the row stride.
func (f *Frame) At(x, y int) uint16 {
	return f.Data[y*f.RowSamples()+x]
}

// Set stores a depth sample at (x, y).
func (f *Frame) Set(x, y int, v uint16) {
	f.Data[y*f.RowSamples()+x] = v
}

// Validate checks that the frame's dimensions and stride fit its data.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if f.Stride%BytesPerSample != 0 {
		return fmt.Errorf("%w: stride %d is not a multiple of %d", ErrInvalidFrame, f.Stride, BytesPerSample)
	}
	if f.RowSamples() < f.Width {
		return fmt.Errorf("%w: stride %d shorter than row of %d samples", ErrInvalidFrame, f.Stride, f.Width)
	}
	// The last row does not need its padding.
	need := (f.Height-1)*f.RowSamples() + f.Width
	if len(f.Data) < need {
		return fmt.Errorf("%w: have %d samples, need %d", ErrInvalidFrame, len(f.Data), need)
	}
	return nil
}

// UserMask labels each pixel of a depth frame with the id of the user that
// owns it. Label 0 means the pixel belongs to no tracked user.
type UserMask struct {
	Width  int
	Height int
	Labels []uint16
}

// NewUserMask creates an empty mask of the given size.
func NewUserMask(width, height int) *UserMask {
	return &UserMask{
		Width:  width,
		Height: height,
		Labels: make([]uint16, width*height),
	}
}

// At returns the user label at (x, y).
func (m *UserMask) At(x, y int) uint16 {
	return m.Labels[y*m.Width+x]
}

// Set stores a user label at (x, y).
func (m *UserMask) Set(x, y int, label uint16) {
	m.Labels[y*m.Width+x] = label
}

// Validate checks that the mask's dimensions fit its labels.
func (m *UserMask) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil user mask", ErrInvalidFrame)
	}
	if m.Width <= 0 || m.Height <= 0 || len(m.Labels) < m.Width*m.Height {
		return fmt.Errorf("%w: user mask %dx%d with %d labels", ErrInvalidFrame, m.Width, m.Height, len(m.Labels))
	}
	return nil
}
