package sensor

import (
	"math"
	"sync"
	"time"

	"github.com/ayusman/depthview/internal/depth"
	"github.com/ayusman/depthview/internal/skeleton"
)

// Synthetic scene constants
const (
	// DefaultCalibrationFrames is how long a new skeleton stays calibrating.
	DefaultCalibrationFrames = 10
	// EntryInterval is the number of frames between figures entering the scene.
	EntryInterval = 15

	wallDepth  = 4500.0
	nearFloor  = 1500.0
	limbRadius = 60.0
	bodyRadius = 150.0
	headRadius = 110.0
)

// restPose is a standing skeleton in millimetres relative to the torso joint.
var restPose = [skeleton.NumJoints]skeleton.Point3D{
	skeleton.Head:          {X: 0, Y: 550},
	skeleton.Neck:          {X: 0, Y: 400},
	skeleton.LeftShoulder:  {X: -180, Y: 380},
	skeleton.RightShoulder: {X: 180, Y: 380},
	skeleton.LeftElbow:     {X: -220, Y: 120},
	skeleton.RightElbow:    {X: 220, Y: 120},
	skeleton.LeftHand:      {X: -240, Y: -120},
	skeleton.RightHand:     {X: 240, Y: -120},
	skeleton.Torso:         {X: 0, Y: 150},
	skeleton.LeftHip:       {X: -100, Y: -100},
	skeleton.RightHip:      {X: 100, Y: -100},
	skeleton.LeftKnee:      {X: -110, Y: -500},
	skeleton.RightKnee:     {X: 110, Y: -500},
	skeleton.LeftFoot:      {X: -120, Y: -900},
	skeleton.RightFoot:     {X: 120, Y: -900},
}

// SyntheticConfig holds options for the synthetic scene.
type SyntheticConfig struct {
	// Users is the number of figures walking through the scene.
	Users int
	// CalibrationFrames is how many frames a skeleton calibrates before it is tracked.
	CalibrationFrames int
	// Projection is the sensor model used to render and project the scene.
	Projection Projection
}

// DefaultSyntheticConfig returns a two-figure scene at VGA resolution.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Users:             2,
		CalibrationFrames: DefaultCalibrationFrames,
		Projection:        DefaultProjection(),
	}
}

// figure is one simulated person.
type figure struct {
	id          int
	entersAt    int
	reported    bool
	state       skeleton.State
	calibrating int
	phase       float64
}

// SyntheticProvider renders figures walking in front of a wall so the
// viewer can run without a depth sensor.
type SyntheticProvider struct {
	config  SyntheticConfig
	figures []*figure
	index   int
	mu      sync.Mutex
	running bool
}

// NewSyntheticProvider creates a SyntheticProvider with the given configuration.
func NewSyntheticProvider(config SyntheticConfig) *SyntheticProvider {
	if config.Users < 0 {
		config.Users = 0
	}
	if config.CalibrationFrames < 0 {
		config.CalibrationFrames = 0
	}
	if config.Projection.Width <= 0 || config.Projection.Height <= 0 {
		config.Projection = DefaultProjection()
	}
	return &SyntheticProvider{config: config}
}

func (p *SyntheticProvider) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.index = 0
	p.figures = make([]*figure, p.config.Users)
	for i := range p.figures {
		p.figures[i] = &figure{
			id:       i + 1,
			entersAt: i * EntryInterval,
			phase:    float64(i) * math.Pi / 2,
		}
	}
	p.running = true

	return nil
}

func (p *SyntheticProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return nil
}

func (p *SyntheticProvider) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ReadFrame renders the next frame of the scene.
func (p *SyntheticProvider) ReadFrame() (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil, ErrNotOpen
	}

	proj := p.config.Projection
	frame := &Frame{
		Index:     p.index,
		Timestamp: time.Now().UnixMilli(),
		Depth:     depth.NewFrame(proj.Width, proj.Height),
		Mask:      depth.NewUserMask(proj.Width, proj.Height),
	}

	p.paintBackground(frame.Depth)

	for _, f := range p.figures {
		if p.index < f.entersAt {
			continue
		}

		if f.state == skeleton.StateCalibrating {
			if f.calibrating <= 0 {
				f.state = skeleton.StateTracked
			} else {
				f.calibrating--
			}
		}

		joints := p.pose(f, p.index-f.entersAt)

		user := skeleton.UserData{
			ID:           f.id,
			IsNew:        !f.reported,
			State:        f.state,
			CenterOfMass: joints[skeleton.Torso],
		}
		for j := range joints {
			user.Joints[j] = skeleton.Joint{Position: joints[j], Confidence: 1}
		}
		user.IsVisible = p.paintFigure(frame, f.id, joints)
		f.reported = true

		frame.Users = append(frame.Users, user)
	}

	p.index++

	return frame, nil
}

func (p *SyntheticProvider) StartSkeletonTracking(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.figures {
		if f.id == id && f.state == skeleton.StateNone {
			f.state = skeleton.StateCalibrating
			f.calibrating = p.config.CalibrationFrames
		}
	}
	return nil
}

func (p *SyntheticProvider) ConvertJointToDepth(pt skeleton.Point3D) (float64, float64, error) {
	return p.config.Projection.ToDepth(pt)
}

// pose returns world joint positions for a figure t frames after it entered.
// Figures walk side to side and toward the sensor while swinging their arms.
func (p *SyntheticProvider) pose(f *figure, t int) [skeleton.NumJoints]skeleton.Point3D {
	step := float64(t)*0.05 + f.phase
	root := skeleton.Point3D{
		X: 900 * math.Sin(step),
		Y: -150,
		Z: 2800 + 500*math.Cos(step*0.7),
	}
	swing := 120 * math.Sin(step*4)

	var joints [skeleton.NumJoints]skeleton.Point3D
	for j, rest := range restPose {
		joints[j] = skeleton.Point3D{X: root.X + rest.X, Y: root.Y + rest.Y, Z: root.Z}
	}

	joints[skeleton.LeftElbow].Z += swing / 2
	joints[skeleton.LeftHand].Z += swing
	joints[skeleton.RightElbow].Z -= swing / 2
	joints[skeleton.RightHand].Z -= swing
	joints[skeleton.LeftKnee].Z -= swing / 2
	joints[skeleton.LeftFoot].Z -= swing
	joints[skeleton.RightKnee].Z += swing / 2
	joints[skeleton.RightFoot].Z += swing

	return joints
}

// paintBackground fills the depth image with a wall and a floor receding
// toward it. The leftmost columns have no return, like the shadow band of a
// structured-light sensor.
func (p *SyntheticProvider) paintBackground(f *depth.Frame) {
	horizon := f.Height / 2
	for y := 0; y < f.Height; y++ {
		d := wallDepth
		if y > horizon {
			d = wallDepth - float64(y-horizon)/float64(f.Height-horizon)*(wallDepth-nearFloor)
		}
		for x := 0; x < f.Width; x++ {
			if x < 8 {
				continue
			}
			f.Set(x, y, uint16(d))
		}
	}
}

// paintFigure draws a figure's body into the depth image and user mask and
// reports whether any pixel of it landed in the image.
func (p *SyntheticProvider) paintFigure(frame *Frame, id int, joints [skeleton.NumJoints]skeleton.Point3D) bool {
	visible := false

	capsule := func(a, b skeleton.Point3D, radius float64) {
		if p.paintCapsule(frame, uint16(id), a, b, radius) {
			visible = true
		}
	}

	capsule(joints[skeleton.Neck], joints[skeleton.Torso], bodyRadius)
	capsule(joints[skeleton.Torso], joints[skeleton.LeftHip], bodyRadius)
	capsule(joints[skeleton.Torso], joints[skeleton.RightHip], bodyRadius)
	capsule(joints[skeleton.Head], joints[skeleton.Head], headRadius)
	for _, b := range skeleton.Bones {
		capsule(joints[b.From], joints[b.To], limbRadius)
	}

	return visible
}

// paintCapsule rasterizes a thick segment between two world points. Pixels
// are only written where the segment is nearer than what is already there.
func (p *SyntheticProvider) paintCapsule(frame *Frame, label uint16, a, b skeleton.Point3D, radius float64) bool {
	proj := p.config.Projection

	ax, ay, err := proj.ToDepth(a)
	if err != nil {
		return false
	}
	bx, by, err := proj.ToDepth(b)
	if err != nil {
		return false
	}

	z := (a.Z + b.Z) / 2
	r := radius * proj.FocalX / z

	minX := int(math.Max(0, math.Floor(math.Min(ax, bx)-r)))
	maxX := int(math.Min(float64(frame.Depth.Width-1), math.Ceil(math.Max(ax, bx)+r)))
	minY := int(math.Max(0, math.Floor(math.Min(ay, by)-r)))
	maxY := int(math.Min(float64(frame.Depth.Height-1), math.Ceil(math.Max(ay, by)+r)))

	painted := false
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			t := 0.0
			if lenSq > 0 {
				t = ((float64(x)-ax)*dx + (float64(y)-ay)*dy) / lenSq
				t = math.Max(0, math.Min(1, t))
			}
			px, py := ax+t*dx, ay+t*dy
			ex, ey := float64(x)-px, float64(y)-py
			if ex*ex+ey*ey > r*r {
				continue
			}

			d := uint16(a.Z + t*(b.Z-a.Z))
			if cur := frame.Depth.At(x, y); cur != 0 && cur <= d && frame.Mask.At(x, y) != 0 {
				continue
			}
			frame.Depth.Set(x, y, d)
			frame.Mask.Set(x, y, label)
			painted = true
		}
	}

	return painted
}
