package server

import (
	"fmt"
	"net/http"
	"time"
)

// StreamHandler serves the drawn frames as an MJPEG stream.
type StreamHandler struct {
	viewer   Viewer
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler polling the viewer at the
// given interval.
func NewStreamHandler(v Viewer, interval time.Duration) *StreamHandler {
	return &StreamHandler{viewer: v, interval: interval}
}

// ServeHTTP streams MJPEG frames to the client until it disconnects. A frame
// is sent only when the viewer has drawn a new one.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		snap := h.viewer.Snapshot()
		if snap == nil || snap.Frame == last || len(snap.JPEG) == 0 {
			continue
		}
		last = snap.Frame

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(snap.JPEG))
		if _, err := w.Write(snap.JPEG); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
