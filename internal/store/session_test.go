package store

import (
	"errors"
	"runtime"
	"testing"

	"github.com/ayusman/depthview/internal/depth"
	"github.com/ayusman/depthview/internal/sensor"
	"github.com/ayusman/depthview/internal/skeleton"
)

func TestSessionRepository_CRUD(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{Name: "living room"}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "living room" || got.Frames != 0 {
		t.Errorf("GetByID() = %+v", got)
	}

	if err := repo.Create(&Session{Name: "hallway"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(list))
	}

	if err := repo.Rename(sess.ID, "kitchen"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got, _ := repo.GetByID(sess.ID); got.Name != "kitchen" {
		t.Errorf("name after Rename() = %q, want kitchen", got.Name)
	}
	if err := repo.Rename("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Rename() of missing session error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

// recordedFrame builds a padded 3x2 frame with one tracked user.
func recordedFrame(index int) *sensor.Frame {
	d := &depth.Frame{Width: 3, Height: 2, Stride: 10, Data: []uint16{
		1000, 1100, 0, 7, 7,
		1200, 0, 1300, 7, 7,
	}}
	mask := depth.NewUserMask(3, 2)
	mask.Set(0, 0, 1)
	mask.Set(2, 1, 1)

	user := skeleton.UserData{ID: 1, IsVisible: true, State: skeleton.StateTracked}
	user.Joints[skeleton.Head] = skeleton.Joint{Position: skeleton.Point3D{X: 10, Y: 20, Z: 1500 + float64(index)}, Confidence: 1}

	return &sensor.Frame{
		Index:     index,
		Timestamp: int64(1000 + index),
		Depth:     d,
		Mask:      mask,
		Users:     []skeleton.UserData{user},
	}
}

func TestFrameRepository_AppendAndLoad(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Name: "rec"}
	s.Sessions().Create(sess)

	for i := 0; i < 3; i++ {
		if err := s.Frames().Append(sess.ID, recordedFrame(i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	got, _ := s.Sessions().GetByID(sess.ID)
	if got.Frames != 3 || got.Width != 3 || got.Height != 2 {
		t.Errorf("session = %+v, want 3 frames of 3x2", got)
	}

	if n, err := s.FrameCount(sess.ID); err != nil || n != 3 {
		t.Fatalf("FrameCount() = %d, %v, want 3", n, err)
	}

	for i := 0; i < 3; i++ {
		f, err := s.LoadFrame(sess.ID, i)
		if err != nil {
			t.Fatalf("LoadFrame(%d) error = %v", i, err)
		}
		want := recordedFrame(i)

		if f.Index != i || f.Timestamp != want.Timestamp {
			t.Errorf("frame %d index/timestamp = %d/%d", i, f.Index, f.Timestamp)
		}
		if err := f.Validate(); err != nil {
			t.Fatalf("loaded frame %d invalid: %v", i, err)
		}
		// padding is dropped on the way in
		if f.Depth.Stride != 3*depth.BytesPerSample {
			t.Errorf("stride = %d, want unpadded", f.Depth.Stride)
		}
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				if f.Depth.At(x, y) != want.Depth.At(x, y) {
					t.Errorf("depth (%d,%d) = %d, want %d", x, y, f.Depth.At(x, y), want.Depth.At(x, y))
				}
				if f.Mask.At(x, y) != want.Mask.At(x, y) {
					t.Errorf("mask (%d,%d) = %d, want %d", x, y, f.Mask.At(x, y), want.Mask.At(x, y))
				}
			}
		}
		if len(f.Users) != 1 || f.Users[0].State != skeleton.StateTracked {
			t.Fatalf("users = %+v", f.Users)
		}
		if f.Users[0].Joints[skeleton.Head] != want.Users[0].Joints[skeleton.Head] {
			t.Errorf("head = %+v, want %+v", f.Users[0].Joints[skeleton.Head], want.Users[0].Joints[skeleton.Head])
		}
	}
}

func TestFrameRepository_Errors(t *testing.T) {
	s := newTestStore(t)

	if err := s.Frames().Append("missing", recordedFrame(0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Append() to missing session error = %v, want ErrNotFound", err)
	}

	sess := &Session{Name: "rec"}
	s.Sessions().Create(sess)

	bad := recordedFrame(0)
	bad.Mask = depth.NewUserMask(1, 1)
	if err := s.Frames().Append(sess.ID, bad); !errors.Is(err, depth.ErrInvalidFrame) {
		t.Errorf("Append() invalid frame error = %v, want ErrInvalidFrame", err)
	}

	if _, err := s.LoadFrame(sess.ID, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadFrame() past the end error = %v, want ErrNotFound", err)
	}
	if _, err := s.FrameCount("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FrameCount() of missing session error = %v, want ErrNotFound", err)
	}
}

func TestFrameRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Name: "rec"}
	s.Sessions().Create(sess)
	s.Frames().Append(sess.ID, recordedFrame(0))

	if err := s.Sessions().Delete(sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	n, err := s.Frames().Count(sess.ID)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() after delete = %d, want 0", n)
	}
}

func TestStore_ReplaySession(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Name: "rec"}
	s.Sessions().Create(sess)
	s.Frames().Append(sess.ID, recordedFrame(0))
	s.Frames().Append(sess.ID, recordedFrame(1))

	p := sensor.NewReplayProvider(s, sess.ID, false, sensor.DefaultProjection())
	if err := p.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer p.Close()

	for i := 0; i < 2; i++ {
		f, err := p.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if f.Index != i {
			t.Errorf("frame index = %d, want %d", f.Index, i)
		}
	}
	if _, err := p.ReadFrame(); !errors.Is(err, sensor.ErrEndOfStream) {
		t.Errorf("ReadFrame() error = %v, want ErrEndOfStream", err)
	}
}

// vgaFrame builds a full-resolution frame with a user covering the left half.
func vgaFrame(index int) *sensor.Frame {
	d := depth.NewFrame(sensor.DefaultWidth, sensor.DefaultHeight)
	mask := depth.NewUserMask(sensor.DefaultWidth, sensor.DefaultHeight)
	for y := 0; y < sensor.DefaultHeight; y++ {
		for x := 0; x < sensor.DefaultWidth; x++ {
			d.Set(x, y, uint16(1000+x+index))
			if x < sensor.DefaultWidth/2 {
				mask.Set(x, y, 1)
			}
		}
	}
	return &sensor.Frame{Index: index, Depth: d, Mask: mask}
}

func liveHeap() uint64 {
	runtime.GC()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

func TestStore_ReplayKeepsOneFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-resolution replay")
	}

	s := newTestStore(t)

	const frames = 24
	sess := &Session{Name: "vga"}
	s.Sessions().Create(sess)
	for i := 0; i < frames; i++ {
		if err := s.Frames().Append(sess.ID, vgaFrame(i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	frameBytes := uint64(sensor.DefaultWidth * sensor.DefaultHeight * 2 * depth.BytesPerSample)

	before := liveHeap()

	p := sensor.NewReplayProvider(s, sess.ID, false, sensor.DefaultProjection())
	if err := p.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer p.Close()

	var peak uint64
	for i := 0; i < frames; i++ {
		f, err := p.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame(%d) error = %v", i, err)
		}
		if f.Index != i || f.Depth.At(0, 0) != uint16(1000+i) {
			t.Fatalf("frame %d = index %d, depth %d", i, f.Index, f.Depth.At(0, 0))
		}
		if h := liveHeap(); h > peak {
			peak = h
		}
	}
	runtime.KeepAlive(p)

	// a whole session in memory would be frames*frameBytes
	if peak > before && peak-before > 4*frameBytes {
		t.Errorf("live heap grew by %d bytes during replay, want at most %d", peak-before, 4*frameBytes)
	}
}
