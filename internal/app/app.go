// Package app owns the viewer state and runs the setup, update and draw
// cycle over a tracking provider.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/depthview/internal/depth"
	"github.com/ayusman/depthview/internal/metrics"
	"github.com/ayusman/depthview/internal/render"
	"github.com/ayusman/depthview/internal/sensor"
	"github.com/ayusman/depthview/internal/skeleton"
	"github.com/ayusman/depthview/internal/store"
)

// DefaultFPS is the update/draw rate when none is configured.
const DefaultFPS = 30

// ErrNotReady is returned when the viewer is used before a successful Setup.
var ErrNotReady = errors.New("viewer is not set up")

var (
	// ErrNoStore is returned when recording without a session store.
	ErrNoStore = errors.New("no session store configured")
	// ErrRecording is returned when a recording is already in progress.
	ErrRecording = errors.New("already recording")
)

// Config holds configuration options for the application.
type Config struct {
	Provider      sensor.Provider
	Store         *store.Store
	Metrics       *metrics.Metrics
	FPS           int
	Style         render.Style
	HistogramBins int
}

// App owns the user table, depth histogram and image buffers. They are
// mutated only by Update and read by Draw, both of which run on the loop
// goroutine. Other goroutines see the viewer through Snapshot and Status.
type App struct {
	config     Config
	provider   sensor.Provider
	extractor  *skeleton.Extractor
	users      skeleton.Users
	hist       *depth.Histogram
	compositor *render.Compositor
	canvas     *render.Canvas
	metrics    *metrics.Metrics

	// per-frame state, loop goroutine only
	lastFrame  *sensor.Frame
	failing    bool
	frameStart time.Time

	// recMu is held across a frame append so StopRecording cannot return
	// while a frame is still being written to the session.
	recMu sync.Mutex

	mu        sync.RWMutex
	ready     bool
	enabled   bool
	recording string
	frames    int
	snapshot  *Snapshot
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}

	a := &App{
		config:     config,
		provider:   config.Provider,
		hist:       depth.NewHistogram(config.HistogramBins),
		compositor: render.NewCompositor(),
		canvas:     render.NewCanvas(config.Style),
		metrics:    config.Metrics,
		enabled:    true,
	}
	if a.provider != nil {
		a.extractor = skeleton.NewExtractor(a.provider)
	}

	return a
}

// Setup opens the tracking provider. Both the subsystem and the user tracker
// must come up; on failure the error is logged and returned, and the viewer
// stays not ready so Update and Start refuse to run.
func (a *App) Setup() error {
	if a.provider == nil {
		log.Println("couldn't start tracking: no provider configured")
		return fmt.Errorf("%w: no provider", sensor.ErrInitialize)
	}

	if err := a.provider.Open(); err != nil {
		switch {
		case errors.Is(err, sensor.ErrCreateTracker):
			log.Printf("couldn't create user tracker: %v", err)
		default:
			log.Printf("couldn't start tracking subsystem: %v", err)
		}
		return fmt.Errorf("setup: %w", err)
	}

	a.mu.Lock()
	a.ready = true
	a.mu.Unlock()

	log.Println("tracking provider ready")
	return nil
}

// IsReady reports whether Setup succeeded.
func (a *App) IsReady() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ready
}

// SetEnabled pauses or resumes frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Update reads one frame from the tracker and processes it:
// 1. Read and validate the frame; on failure skip the whole frame
// 2. Start tracking new users and extract tracked skeletons
// 3. Rebuild the depth histogram
// 4. Compose the masked grayscale image
// 5. Append the frame to the active recording, if any
func (a *App) Update() error {
	if !a.IsReady() {
		return ErrNotReady
	}

	a.frameStart = time.Now()

	frame, err := a.provider.ReadFrame()
	if err == nil {
		err = frame.Validate()
		if err != nil {
			a.metrics.FrameSkipped(metrics.ReasonInvalidFrame)
		}
	} else if errors.Is(err, sensor.ErrEndOfStream) {
		a.metrics.FrameSkipped(metrics.ReasonEndOfStream)
	} else {
		a.metrics.FrameSkipped(metrics.ReasonReadError)
	}
	if err != nil {
		if !a.failing {
			log.Printf("skipping frame: %v", err)
			a.failing = true
		}
		return fmt.Errorf("read frame: %w", err)
	}
	if a.failing {
		log.Println("frames recovered")
		a.failing = false
	}

	res := a.extractor.Update(&a.users, frame.Users)
	if len(res.Started) > 0 {
		a.metrics.TrackingStarted(len(res.Started))
		log.Printf("started skeleton tracking for users %v", res.Started)
	}

	a.hist.Calculate(frame.Depth)

	if _, err := a.compositor.Composite(frame.Depth, frame.Mask, a.hist); err != nil {
		a.metrics.FrameSkipped(metrics.ReasonInvalidFrame)
		return fmt.Errorf("compose frame: %w", err)
	}

	a.lastFrame = frame
	a.record(frame)

	return nil
}

// Draw renders the composed image and every visible user, then publishes a
// snapshot of the result.
func (a *App) Draw() error {
	if !a.IsReady() {
		return ErrNotReady
	}

	if err := a.canvas.Draw(a.compositor.Image(), &a.users); err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	jpeg, err := a.canvas.EncodeJPEG()
	if err != nil {
		return err
	}

	width, height := a.canvas.Size()
	snap := &Snapshot{
		Width:  width,
		Height: height,
		JPEG:   jpeg,
		Users:  visibleUsers(&a.users),
		Points: a.hist.Points(),
	}
	if a.lastFrame != nil {
		snap.Sequence = a.lastFrame.Index
		snap.Timestamp = a.lastFrame.Timestamp
	}

	a.mu.Lock()
	a.frames++
	snap.Frame = a.frames
	a.snapshot = snap
	a.mu.Unlock()

	return nil
}

// Step runs one update and draw cycle. A failed update still draws, showing
// the last good image and poses.
func (a *App) Step() error {
	updateErr := a.Update()
	if errors.Is(updateErr, ErrNotReady) {
		return updateErr
	}

	if err := a.Draw(); err != nil {
		return err
	}

	if updateErr == nil {
		a.metrics.FrameProcessed(a.hist.Points(), len(a.users.Visible()), time.Since(a.frameStart))
	}
	return updateErr
}

// Users returns a copy of the user table. It must not be called while the
// loop is running.
func (a *App) Users() skeleton.Users {
	return a.users
}

// Histogram returns the depth histogram of the last processed frame. It must
// not be called while the loop is running.
func (a *App) Histogram() *depth.Histogram {
	return a.hist
}

// Snapshot returns the last published frame, or nil before the first Draw.
func (a *App) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Status returns the viewer state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return Status{
		Ready:     a.ready,
		Enabled:   a.enabled,
		Running:   a.stopCh != nil,
		Recording: a.recording,
		Frames:    a.frames,
		FPS:       a.config.FPS,
	}
}

// Metrics returns the metrics updated by the viewer.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Close stops the loop and releases the provider and canvas.
func (a *App) Close() error {
	a.Stop()

	a.mu.Lock()
	a.ready = false
	a.recording = ""
	a.mu.Unlock()

	var errs []error
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close provider: %w", err))
		}
	}
	if err := a.canvas.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close canvas: %w", err))
	}

	return errors.Join(errs...)
}
