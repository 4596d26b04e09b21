// Package tray provides a system tray interface for the depthview viewer.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onRecord    func(recording bool) error
	onOpen      func()
	onQuit      func()
	enabled     bool
	recording   bool
	mu          sync.RWMutex
	menuToggle  *systray.MenuItem
	menuRecord  *systray.MenuItem
	menuSession *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback called when the viewer is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRecord sets the callback called when recording is started or stopped.
// If it returns an error the recording state is left unchanged.
func (t *Tray) OnRecord(fn func(recording bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecord = fn
}

// OnOpen sets the callback called when the viewer menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the system tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("depthview")
	systray.SetTooltip("depthview skeleton viewer")

	t.menuToggle = systray.AddMenuItem(toggleTitle(true), "Pause or resume tracking")
	t.menuRecord = systray.AddMenuItem(recordTitle(false), "Record frames to a session")
	systray.AddSeparator()

	t.menuSession = systray.AddMenuItem(sessionTitle(""), "Session being recorded")
	t.menuSession.Disable()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit depthview")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuRecord.ClickedCh:
				t.handleRecord()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleRecord starts or stops recording.
func (t *Tray) handleRecord() {
	t.mu.RLock()
	want := !t.recording
	callback := t.onRecord
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(want); err != nil {
			return
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = want
	if t.menuRecord != nil {
		t.menuRecord.SetTitle(recordTitle(want))
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetSession updates the recorded session shown in the menu.
func (t *Tray) SetSession(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuSession != nil {
		t.menuSession.SetTitle(sessionTitle(name))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// IsRecording returns whether the tray started a recording.
func (t *Tray) IsRecording() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recording
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func recordTitle(recording bool) string {
	if recording {
		return "■ Stop Recording"
	}
	return "● Start Recording"
}

func sessionTitle(name string) string {
	if name == "" {
		return "Session: none"
	}
	return "Session: " + name
}
