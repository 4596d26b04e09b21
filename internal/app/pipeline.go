package app

import (
	"fmt"
	"log"
	"time"

	"github.com/ayusman/depthview/internal/sensor"
	"github.com/ayusman/depthview/internal/skeleton"
	"github.com/ayusman/depthview/internal/store"
)

// Start begins the update/draw loop. It refuses to run before a successful
// Setup.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		return ErrNotReady
	}

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runLoop(a.stopCh, a.doneCh)

	log.Printf("viewer loop started at %d fps", a.config.FPS)
	return nil
}

// Stop halts the loop and waits for the current cycle to finish.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh

	log.Println("viewer loop stopped")
}

// runLoop drives one update and draw per tick, the way a display refresh
// callback would. Processing is skipped while the viewer is paused.
func (a *App) runLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			// Read failures are logged by Update once per streak.
			if err := a.Step(); err != nil && !a.failing {
				log.Printf("step: %v", err)
			}
		}
	}
}

// StartRecording creates a new session in the store and appends every
// subsequently processed frame to it. It returns the new session.
func (a *App) StartRecording(name string) (*store.Session, error) {
	if a.config.Store == nil {
		return nil, ErrNoStore
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recording != "" {
		return nil, fmt.Errorf("%w: session %s", ErrRecording, a.recording)
	}

	width, height := a.canvas.Size()
	if name == "" {
		name = time.Now().Format("2006-01-02 15:04:05")
	}
	sess := &store.Session{Name: name, Width: width, Height: height}
	if err := a.config.Store.Sessions().Create(sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	a.recording = sess.ID
	log.Printf("recording session %s (%s)", sess.ID, sess.Name)
	return sess, nil
}

// StopRecording ends the active recording and returns its session, or nil if
// nothing was being recorded.
func (a *App) StopRecording() (*store.Session, error) {
	a.recMu.Lock()
	defer a.recMu.Unlock()

	a.mu.Lock()
	id := a.recording
	a.recording = ""
	a.mu.Unlock()

	if id == "" || a.config.Store == nil {
		return nil, nil
	}

	sess, err := a.config.Store.Sessions().GetByID(id)
	if err != nil {
		return nil, err
	}

	log.Printf("recorded %d frames to session %s", sess.Frames, sess.ID)
	return sess, nil
}

// Recording returns the id of the session being recorded, if any.
func (a *App) Recording() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recording
}

func (a *App) record(frame *sensor.Frame) {
	a.recMu.Lock()
	defer a.recMu.Unlock()

	id := a.Recording()
	if id == "" {
		return
	}

	if err := a.config.Store.Frames().Append(id, frame); err != nil {
		log.Printf("recording stopped: %v", err)
		a.mu.Lock()
		if a.recording == id {
			a.recording = ""
		}
		a.mu.Unlock()
		return
	}
	a.metrics.FrameRecorded()
}

// Snapshot is an immutable view of one drawn frame.
type Snapshot struct {
	Frame     int            `json:"frame"`
	Sequence  int            `json:"sequence"`
	Timestamp int64          `json:"timestamp"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Points    int            `json:"points"`
	Users     []SnapshotUser `json:"users"`
	JPEG      []byte         `json:"-"`
}

// SnapshotUser is the drawn pose of one visible user.
type SnapshotUser struct {
	ID           int                         `json:"id"`
	CenterOfMass skeleton.Point3D            `json:"center_of_mass"`
	Joints       map[string]skeleton.Point2D `json:"joints"`
}

// Status reports the state of the viewer.
type Status struct {
	Ready     bool   `json:"ready"`
	Enabled   bool   `json:"enabled"`
	Running   bool   `json:"running"`
	Recording string `json:"recording,omitempty"`
	Frames    int    `json:"frames"`
	FPS       int    `json:"fps"`
}

func visibleUsers(users *skeleton.Users) []SnapshotUser {
	visible := users.Visible()
	result := make([]SnapshotUser, 0, len(visible))
	for _, id := range visible {
		rec := &users[id]
		joints := make(map[string]skeleton.Point2D, skeleton.NumJoints)
		for j := skeleton.JointType(0); j < skeleton.NumJoints; j++ {
			joints[j.String()] = rec.Joint(j)
		}
		result = append(result, SnapshotUser{
			ID:           id,
			CenterOfMass: rec.CenterOfMass,
			Joints:       joints,
		})
	}
	return result
}
