package sensor

import (
	"sync"

	"github.com/ayusman/depthview/internal/skeleton"
)

// MockProvider plays back scripted frames for testing.
type MockProvider struct {
	frames     []*Frame
	index      int
	loop       bool
	projection Projection
	openErr    error
	readErr    error
	started    []int
	mu         sync.Mutex
	running    bool
}

// NewMockProvider creates a MockProvider that returns frames in order.
func NewMockProvider(frames []*Frame, loop bool) *MockProvider {
	return &MockProvider{
		frames:     frames,
		loop:       loop,
		projection: DefaultProjection(),
	}
}

// SetOpenError sets the error that will be returned by Open.
func (p *MockProvider) SetOpenError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openErr = err
}

// SetReadError sets the error that will be returned by ReadFrame.
func (p *MockProvider) SetReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// SetProjection replaces the projection used by ConvertJointToDepth.
func (p *MockProvider) SetProjection(proj Projection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projection = proj
}

func (p *MockProvider) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return p.openErr
	}
	p.running = true
	p.index = 0
	return nil
}

func (p *MockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return nil
}

func (p *MockProvider) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MockProvider) ReadFrame() (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil, ErrNotOpen
	}
	if p.readErr != nil {
		return nil, p.readErr
	}

	if p.index >= len(p.frames) {
		if !p.loop || len(p.frames) == 0 {
			return nil, ErrEndOfStream
		}
		p.index = 0
	}

	frame := p.frames[p.index]
	p.index++

	return frame, nil
}

func (p *MockProvider) StartSkeletonTracking(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, id)
	return nil
}

func (p *MockProvider) ConvertJointToDepth(pt skeleton.Point3D) (float64, float64, error) {
	p.mu.Lock()
	proj := p.projection
	p.mu.Unlock()
	return proj.ToDepth(pt)
}

// Started returns the user ids skeleton tracking was requested for.
func (p *MockProvider) Started() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.started...)
}

// SetFrames replaces the frame sequence
func (p *MockProvider) SetFrames(frames []*Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = frames
	p.index = 0
}
