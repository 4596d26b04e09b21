package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/ayusman/depthview/internal/skeleton"
	"gocv.io/x/gocv"
)

// Default canvas settings
const (
	DefaultWidth       = 640
	DefaultHeight      = 480
	DefaultJointRadius = 3
	DefaultLineWidth   = 1
	DefaultJPEGQuality = 80
)

// ErrEmptyCanvas is returned when encoding a canvas that has not been drawn.
var ErrEmptyCanvas = errors.New("canvas is empty")

// Style controls how skeletons are drawn.
type Style struct {
	JointRadius   int
	LineThickness int
	Color         color.RGBA
	// PerUserColors draws each user in its own palette colour instead of Color.
	PerUserColors bool
	// Labels draws the user id next to the head joint.
	Labels bool
}

// DefaultStyle returns red stick-figures with 3px joints.
func DefaultStyle() Style {
	return Style{
		JointRadius:   DefaultJointRadius,
		LineThickness: DefaultLineWidth,
		Color:         Red,
	}
}

// Canvas is the BGR drawing surface the viewer renders into.
type Canvas struct {
	style Style
	mat   gocv.Mat
	mu    sync.Mutex
}

// NewCanvas creates a black canvas at the default resolution.
func NewCanvas(style Style) *Canvas {
	if style.JointRadius <= 0 {
		style.JointRadius = DefaultJointRadius
	}
	if style.LineThickness <= 0 {
		style.LineThickness = DefaultLineWidth
	}
	return &Canvas{
		style: style,
		mat:   gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3),
	}
}

// Draw renders one display frame:
// 1. Clear to black
// 2. Draw the grayscale depth image, if any
// 3. Draw joints and bones of every visible user
func (c *Canvas) Draw(gray *image.Gray, users *skeleton.Users) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))

	if gray != nil {
		src, err := gocv.ImageGrayToMatGray(gray)
		if err != nil {
			return fmt.Errorf("upload depth image: %w", err)
		}
		defer src.Close()

		// CvtColor resizes the canvas when the resolution changes
		gocv.CvtColor(src, &c.mat, gocv.ColorGrayToBGR)
	}

	if users == nil {
		return nil
	}

	for id := range users {
		if users[id].Visible {
			c.drawUser(id, &users[id])
		}
	}

	return nil
}

// drawUser draws one user's joints as filled circles and bones as lines.
func (c *Canvas) drawUser(id int, user *skeleton.UserRecord) {
	col := c.style.Color
	if c.style.PerUserColors {
		col = UserColor(id)
	}

	for j := skeleton.Head; j < skeleton.NumJoints; j++ {
		gocv.Circle(&c.mat, toPoint(user.Joint(j)), c.style.JointRadius, col, -1)
	}

	for _, b := range skeleton.Bones {
		gocv.Line(&c.mat, toPoint(user.Joint(b.From)), toPoint(user.Joint(b.To)), col, c.style.LineThickness)
	}

	if c.style.Labels {
		head := toPoint(user.Joint(skeleton.Head))
		org := image.Pt(head.X+2*c.style.JointRadius, head.Y)
		gocv.PutText(&c.mat, strconv.Itoa(id), org, gocv.FontHersheySimplex, 0.5, col, 1)
	}
}

// Size returns the canvas resolution.
func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mat.Cols(), c.mat.Rows()
}

// EncodeJPEG encodes the canvas as a JPEG image.
func (c *Canvas) EncodeJPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mat.Empty() {
		return nil, ErrEmptyCanvas
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.mat, []int{int(gocv.IMWriteJpegQuality), DefaultJPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// the buffer is C memory; copy it out before closing
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return data, nil
}

// Image returns a copy of the canvas as a Go image.
func (c *Canvas) Image() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mat.ToImage()
}

// Close releases the canvas memory.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mat.Close()
}

// toPoint rounds a pixel position to the nearest integer point.
func toPoint(p skeleton.Point2D) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}
