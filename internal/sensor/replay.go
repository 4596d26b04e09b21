package sensor

import (
	"fmt"
	"sync"

	"github.com/ayusman/depthview/internal/skeleton"
)

// FrameLoader reads a recorded session one frame at a time.
type FrameLoader interface {
	// FrameCount returns the number of frames in the session.
	FrameCount(sessionID string) (int, error)

	// LoadFrame returns the frame with sequence number seq, counting from 0.
	LoadFrame(sessionID string, seq int) (*Frame, error)
}

// ReplayProvider plays back a recorded session. Recorded frames already carry
// the tracker's user states, so tracking requests are accepted and ignored.
//
// Only the next sequence number is kept; each ReadFrame loads one frame from
// the loader.
type ReplayProvider struct {
	loader     FrameLoader
	sessionID  string
	loop       bool
	projection Projection
	count      int
	next       int
	mu         sync.Mutex
	running    bool
}

// NewReplayProvider creates a ReplayProvider for a stored session.
func NewReplayProvider(loader FrameLoader, sessionID string, loop bool, proj Projection) *ReplayProvider {
	return &ReplayProvider{
		loader:     loader,
		sessionID:  sessionID,
		loop:       loop,
		projection: proj,
	}
}

// Open looks up the session. A missing loader fails subsystem initialization;
// an empty or unknown session fails tracker creation.
func (p *ReplayProvider) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.loader == nil {
		return fmt.Errorf("%w: no recording store", ErrInitialize)
	}

	count, err := p.loader.FrameCount(p.sessionID)
	if err != nil {
		return fmt.Errorf("%w: session %s: %v", ErrCreateTracker, p.sessionID, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: session %s has no frames", ErrCreateTracker, p.sessionID)
	}

	p.count = count
	p.next = 0
	p.running = true

	return nil
}

func (p *ReplayProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return nil
}

func (p *ReplayProvider) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ReplayProvider) ReadFrame() (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil, ErrNotOpen
	}

	if p.next >= p.count {
		if !p.loop {
			return nil, ErrEndOfStream
		}
		p.next = 0
	}

	frame, err := p.loader.LoadFrame(p.sessionID, p.next)
	if err != nil {
		return nil, fmt.Errorf("load frame %d of session %s: %w", p.next, p.sessionID, err)
	}
	p.next++

	return frame, nil
}

func (p *ReplayProvider) StartSkeletonTracking(id int) error {
	return nil
}

func (p *ReplayProvider) ConvertJointToDepth(pt skeleton.Point3D) (float64, float64, error) {
	return p.projection.ToDepth(pt)
}
