package server

import (
	"sync"

	"github.com/ayusman/depthview/internal/app"
	"github.com/ayusman/depthview/internal/skeleton"
	"github.com/ayusman/depthview/internal/store"
)

// fakeViewer serves snapshots set by the test.
type fakeViewer struct {
	mu        sync.Mutex
	snap      *app.Snapshot
	enabled   bool
	recording string
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{enabled: true}
}

// publish stores a snapshot for the given frame number with one user.
func (v *fakeViewer) publish(frame int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap = &app.Snapshot{
		Frame:  frame,
		Width:  640,
		Height: 480,
		JPEG:   []byte{0xFF, 0xD8, byte(frame), 0xFF, 0xD9},
		Users: []app.SnapshotUser{{
			ID:     1,
			Joints: map[string]skeleton.Point2D{"head": {X: 320, Y: 100}},
		}},
	}
}

func (v *fakeViewer) Snapshot() *app.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

func (v *fakeViewer) Status() app.Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	frames := 0
	if v.snap != nil {
		frames = v.snap.Frame
	}
	return app.Status{Ready: true, Enabled: v.enabled, Running: true, Recording: v.recording, Frames: frames, FPS: 30}
}

func (v *fakeViewer) SetEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = enabled
}

func (v *fakeViewer) StartRecording(name string) (*store.Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recording != "" {
		return nil, app.ErrRecording
	}
	v.recording = "rec-" + name
	return &store.Session{ID: v.recording, Name: name}, nil
}

func (v *fakeViewer) StopRecording() (*store.Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recording == "" {
		return nil, nil
	}
	sess := &store.Session{ID: v.recording}
	v.recording = ""
	return sess, nil
}

func (v *fakeViewer) Recording() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recording
}
