package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/depthview/internal/app"
	"github.com/ayusman/depthview/internal/store"
)

// Recorder starts and stops session recordings.
type Recorder interface {
	StartRecording(name string) (*store.Session, error)
	StopRecording() (*store.Session, error)
	Recording() string
}

// RecordingHandler handles HTTP requests for /api/recording.
type RecordingHandler struct {
	recorder Recorder
}

// NewRecordingHandler creates a new RecordingHandler for the given recorder.
func NewRecordingHandler(rec Recorder) *RecordingHandler {
	return &RecordingHandler{recorder: rec}
}

type startRecordingRequest struct {
	Name string `json:"name"`
}

type recordingResponse struct {
	Recording bool   `json:"recording"`
	SessionID string `json:"session_id,omitempty"`
}

// ServeHTTP implements the http.Handler interface.
// GET reports the active recording, POST starts one and DELETE stops it.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id := h.recorder.Recording()
		writeJSON(w, http.StatusOK, recordingResponse{Recording: id != "", SessionID: id})
	case http.MethodPost:
		h.start(w, r)
	case http.MethodDelete:
		h.stop(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// start handles POST /api/recording. The body is optional.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	sess, err := h.recorder.StartRecording(req.Name)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrRecording):
			writeError(w, http.StatusConflict, "Already recording")
		case errors.Is(err, app.ErrNoStore):
			writeError(w, http.StatusServiceUnavailable, "Recording is not available")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to start recording")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(sess))
}

// stop handles DELETE /api/recording and returns the finished session.
func (h *RecordingHandler) stop(w http.ResponseWriter, r *http.Request) {
	sess, err := h.recorder.StopRecording()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to stop recording")
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "Not recording")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(sess))
}
