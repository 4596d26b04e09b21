// Package server provides the HTTP server for the depthview skeleton viewer.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/depthview/internal/app"
	"github.com/ayusman/depthview/internal/server/api"
	"github.com/ayusman/depthview/internal/store"
)

// DefaultStreamInterval is how often the stream and skeleton feed poll for
// a new frame.
const DefaultStreamInterval = 33 * time.Millisecond

// Viewer is the running viewer the server exposes.
type Viewer interface {
	api.Recorder
	Snapshot() *app.Snapshot
	Status() app.Status
	SetEnabled(enabled bool)
}

// Config holds the server configuration.
type Config struct {
	StaticDir      string
	Store          *store.Store
	Viewer         Viewer
	Registry       *prometheus.Registry
	StreamInterval time.Duration
}

// Server represents the HTTP server for the depthview application.
type Server struct {
	config    Config
	mux       *http.ServeMux
	start     time.Time
	skeletons *SkeletonsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StreamInterval <= 0 {
		config.StreamInterval = DefaultStreamInterval
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Viewer != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.Handle("/api/recording", api.NewRecordingHandler(s.config.Viewer))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Viewer, s.config.StreamInterval))

		s.skeletons = NewSkeletonsHandler(s.config.Viewer, s.config.StreamInterval)
		s.mux.Handle("/api/skeletons", s.skeletons)
	}

	if s.config.Registry != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{}))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

type updateStatusRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleStatus reports the viewer state on GET and pauses or resumes it on PUT.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		s.config.Viewer.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.config.Viewer.Status()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Close stops the skeleton feed and disconnects its clients.
func (s *Server) Close() {
	if s.skeletons != nil {
		s.skeletons.Close()
	}
}
