package app

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/depthview/internal/depth"
	"github.com/ayusman/depthview/internal/render"
	"github.com/ayusman/depthview/internal/sensor"
	"github.com/ayusman/depthview/internal/skeleton"
	"github.com/ayusman/depthview/internal/store"
)

// sceneFrame builds the 2x2 frame depth [[0,100],[100,200]] with users on
// every nonzero pixel, carrying the given user reports.
func sceneFrame(index int, users ...skeleton.UserData) *sensor.Frame {
	f := depth.NewFrame(2, 2)
	f.Set(1, 0, 100)
	f.Set(0, 1, 100)
	f.Set(1, 1, 200)

	mask := depth.NewUserMask(2, 2)
	mask.Set(1, 0, 1)
	mask.Set(0, 1, 1)
	mask.Set(1, 1, 1)

	return &sensor.Frame{Index: index, Depth: f, Mask: mask, Users: users}
}

func trackedUser(id int) skeleton.UserData {
	u := skeleton.UserData{ID: id, IsVisible: true, State: skeleton.StateTracked}
	for j := skeleton.Head; j < skeleton.NumJoints; j++ {
		u.Joints[j].Position = skeleton.Point3D{X: float64(j) * 10, Y: 100, Z: 2000}
		u.Joints[j].Confidence = 1
	}
	return u
}

func newTestApp(t *testing.T, frames []*sensor.Frame, st *store.Store) (*App, *sensor.MockProvider) {
	t.Helper()

	provider := sensor.NewMockProvider(frames, false)
	a := New(Config{
		Provider: provider,
		Store:    st,
		FPS:      60,
		Style:    render.DefaultStyle(),
	})
	t.Cleanup(func() { a.Close() })

	return a, provider
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestApp_NotReadyBeforeSetup(t *testing.T) {
	a, _ := newTestApp(t, []*sensor.Frame{sceneFrame(0)}, nil)

	if err := a.Update(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Update() error = %v, want ErrNotReady", err)
	}
	if err := a.Draw(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Draw() error = %v, want ErrNotReady", err)
	}
	if err := a.Start(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Start() error = %v, want ErrNotReady", err)
	}
	if a.Histogram().Points() != 0 {
		t.Error("histogram should not be built before setup")
	}
}

func TestApp_SetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
	}{
		{"subsystem", fmt.Errorf("%w: no device", sensor.ErrInitialize)},
		{"user tracker", fmt.Errorf("%w: out of memory", sensor.ErrCreateTracker)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, provider := newTestApp(t, nil, nil)
			provider.SetOpenError(tt.openErr)

			err := a.Setup()
			if !errors.Is(err, tt.openErr) {
				t.Fatalf("Setup() error = %v, want %v", err, tt.openErr)
			}
			if a.IsReady() {
				t.Error("app should not be ready after a failed setup")
			}
			if err := a.Update(); !errors.Is(err, ErrNotReady) {
				t.Errorf("Update() error = %v, want ErrNotReady", err)
			}
		})
	}
}

func TestApp_SetupWithoutProvider(t *testing.T) {
	a := New(Config{})
	defer a.Close()

	if err := a.Setup(); !errors.Is(err, sensor.ErrInitialize) {
		t.Errorf("Setup() error = %v, want ErrInitialize", err)
	}
}

func TestApp_UpdateComposesFrame(t *testing.T) {
	a, _ := newTestApp(t, []*sensor.Frame{sceneFrame(0)}, nil)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if err := a.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if got := a.Histogram().Points(); got != 3 {
		t.Errorf("points = %d, want 3", got)
	}

	img := a.compositor.Image()
	got := []uint8{img.GrayAt(0, 0).Y, img.GrayAt(1, 0).Y, img.GrayAt(0, 1).Y, img.GrayAt(1, 1).Y}
	want := []uint8{0, 85, 85, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixels = %v, want %v", got, want)
		}
	}
}

func TestApp_UpdateTracksUsers(t *testing.T) {
	newUser := trackedUser(1)
	newUser.IsNew = true
	newUser.State = skeleton.StateNone

	frames := []*sensor.Frame{
		sceneFrame(0, newUser),
		sceneFrame(1, trackedUser(1)),
	}
	a, provider := newTestApp(t, frames, nil)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if err := a.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if started := provider.Started(); len(started) != 1 || started[0] != 1 {
		t.Fatalf("started = %v, want [1]", started)
	}
	if users := a.Users(); users[1].Visible {
		t.Fatal("new user should not be visible before it is tracked")
	}

	if err := a.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	users := a.Users()
	if !users[1].Visible {
		t.Fatal("tracked user should be visible")
	}

	proj := sensor.DefaultProjection()
	wantX, wantY, _ := proj.ToDepth(skeleton.Point3D{X: 0, Y: 100, Z: 2000})
	if head := users[1].Joint(skeleton.Head); head.X != wantX || head.Y != wantY {
		t.Errorf("head = %+v, want (%v, %v)", head, wantX, wantY)
	}
}

func TestApp_ReadErrorSkipsFrame(t *testing.T) {
	frames := []*sensor.Frame{sceneFrame(0, trackedUser(2))}
	a, provider := newTestApp(t, frames, nil)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := a.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	before := a.Users()
	points := a.Histogram().Points()

	readErr := errors.New("usb disconnected")
	provider.SetReadError(readErr)

	for i := 0; i < 3; i++ {
		if err := a.Update(); !errors.Is(err, readErr) {
			t.Fatalf("Update() error = %v, want %v", err, readErr)
		}
	}

	if a.Users() != before {
		t.Error("users changed on a skipped frame")
	}
	if a.Histogram().Points() != points {
		t.Error("histogram changed on a skipped frame")
	}
	if !a.failing {
		t.Error("failure streak should be recorded")
	}

	provider.SetReadError(nil)
	provider.SetFrames(frames)
	if err := a.Update(); err != nil {
		t.Fatalf("Update() after recovery error = %v", err)
	}
	if a.failing {
		t.Error("failure streak should end after a good frame")
	}
}

func TestApp_InvalidFrameSkipped(t *testing.T) {
	bad := sceneFrame(0)
	bad.Mask = depth.NewUserMask(3, 3)

	a, _ := newTestApp(t, []*sensor.Frame{bad}, nil)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if err := a.Update(); !errors.Is(err, depth.ErrInvalidFrame) {
		t.Errorf("Update() error = %v, want ErrInvalidFrame", err)
	}
	if a.Histogram().Points() != 0 {
		t.Error("histogram should not be built from an invalid frame")
	}
}

func TestApp_EndOfStream(t *testing.T) {
	a, _ := newTestApp(t, []*sensor.Frame{sceneFrame(0)}, nil)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	a.Update()
	if err := a.Update(); !errors.Is(err, sensor.ErrEndOfStream) {
		t.Errorf("Update() error = %v, want ErrEndOfStream", err)
	}
}

func TestApp_Recording(t *testing.T) {
	st := newTestStore(t)
	frames := []*sensor.Frame{sceneFrame(0), sceneFrame(1, trackedUser(1)), sceneFrame(2)}
	a, _ := newTestApp(t, frames, st)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	sess, err := a.StartRecording("walk")
	if err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if a.Recording() != sess.ID {
		t.Errorf("Recording() = %q, want %q", a.Recording(), sess.ID)
	}
	if _, err := a.StartRecording("again"); !errors.Is(err, ErrRecording) {
		t.Errorf("second StartRecording() error = %v, want ErrRecording", err)
	}

	for range frames {
		if err := a.Update(); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	done, err := a.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if done.Frames != len(frames) {
		t.Errorf("recorded frames = %d, want %d", done.Frames, len(frames))
	}
	if a.Recording() != "" {
		t.Error("recording should be cleared")
	}

	loaded, err := st.LoadFrame(sess.ID, 1)
	if err != nil {
		t.Fatalf("LoadFrame() error = %v", err)
	}
	if len(loaded.Users) != 1 || loaded.Users[0].ID != 1 {
		t.Errorf("recorded users = %+v, want user 1", loaded.Users)
	}

	// nothing to stop
	if sess, err := a.StopRecording(); sess != nil || err != nil {
		t.Errorf("StopRecording() = %v, %v, want nil, nil", sess, err)
	}
}

func TestApp_StopRecordingWhileUpdating(t *testing.T) {
	st := newTestStore(t)
	provider := sensor.NewMockProvider([]*sensor.Frame{sceneFrame(0), sceneFrame(1)}, true)
	a := New(Config{Provider: provider, Store: st, Style: render.DefaultStyle()})
	defer a.Close()

	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				a.Update()
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	for round := 0; round < 5; round++ {
		sess, err := a.StartRecording(fmt.Sprintf("round %d", round))
		if err != nil {
			t.Fatalf("StartRecording() error = %v", err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for {
			n, _ := st.Frames().Count(sess.ID)
			if n >= 3 || time.Now().After(deadline) {
				break
			}
			time.Sleep(time.Millisecond)
		}

		stopped, err := a.StopRecording()
		if err != nil {
			t.Fatalf("StopRecording() error = %v", err)
		}

		// give the loop time to append a frame it may still hold
		time.Sleep(10 * time.Millisecond)

		n, err := st.Frames().Count(sess.ID)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if stopped.Frames != n {
			t.Fatalf("round %d: StopRecording() reported %d frames, session has %d", round, stopped.Frames, n)
		}
	}
}

func TestApp_RecordingWithoutStore(t *testing.T) {
	a, _ := newTestApp(t, nil, nil)

	if _, err := a.StartRecording("x"); !errors.Is(err, ErrNoStore) {
		t.Errorf("StartRecording() error = %v, want ErrNoStore", err)
	}
}

func TestApp_StepPublishesSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}

	a, _ := newTestApp(t, []*sensor.Frame{sceneFrame(7, trackedUser(1))}, nil)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if a.Snapshot() != nil {
		t.Fatal("snapshot should be nil before the first draw")
	}

	if err := a.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	snap := a.Snapshot()
	if snap == nil {
		t.Fatal("expected a snapshot after Step")
	}
	if snap.Frame != 1 || snap.Sequence != 7 {
		t.Errorf("frame = %d, sequence = %d, want 1, 7", snap.Frame, snap.Sequence)
	}
	if snap.Width != 2 || snap.Height != 2 {
		t.Errorf("size = %dx%d, want 2x2", snap.Width, snap.Height)
	}
	if !bytes.HasPrefix(snap.JPEG, []byte{0xFF, 0xD8}) {
		t.Error("snapshot should carry a JPEG image")
	}
	if len(snap.Users) != 1 || snap.Users[0].ID != 1 {
		t.Fatalf("users = %+v, want user 1", snap.Users)
	}
	if len(snap.Users[0].Joints) != int(skeleton.NumJoints) {
		t.Errorf("joints = %d, want %d", len(snap.Users[0].Joints), skeleton.NumJoints)
	}
	if _, ok := snap.Users[0].Joints["left_hand"]; !ok {
		t.Error("joints should be keyed by name")
	}

	// a failed update still draws the last good frame
	if err := a.Step(); !errors.Is(err, sensor.ErrEndOfStream) {
		t.Fatalf("Step() error = %v, want ErrEndOfStream", err)
	}
	if a.Snapshot().Frame != 2 || len(a.Snapshot().Users) != 1 {
		t.Error("last known pose should be drawn after a skipped frame")
	}
}

func TestApp_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}

	a, provider := newTestApp(t, nil, nil)
	provider.SetFrames([]*sensor.Frame{sceneFrame(0), sceneFrame(1)})
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// starting twice is a no-op
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if !a.Status().Running {
		t.Error("status should report running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.Snapshot() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if a.Snapshot() == nil {
		t.Fatal("loop did not publish a snapshot")
	}

	a.Stop()
	if a.Status().Running {
		t.Error("status should not report running after Stop")
	}
	a.Stop()
}

func TestApp_PauseResume(t *testing.T) {
	a, _ := newTestApp(t, nil, nil)

	if !a.IsEnabled() {
		t.Error("app should start enabled")
	}
	a.SetEnabled(false)
	if a.IsEnabled() || a.Status().Enabled {
		t.Error("app should be paused")
	}
	a.SetEnabled(true)
	if !a.IsEnabled() {
		t.Error("app should be resumed")
	}
}
