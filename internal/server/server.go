// Package server exposes the playback session over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/SmitUplenchwar2687/radarplay/internal/clock"
	"github.com/SmitUplenchwar2687/radarplay/internal/library"
	"github.com/SmitUplenchwar2687/radarplay/internal/metrics"
	"github.com/SmitUplenchwar2687/radarplay/internal/session"
	"github.com/SmitUplenchwar2687/radarplay/internal/stream"
)

// Options wires a Server to its collaborators.
type Options struct {
	Addr           string
	Sessions       *session.Manager
	Library        *library.Library
	Hub            *stream.Hub
	Clock          clock.Clock
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server is the radarplay HTTP server.
type Server struct {
	httpServer *http.Server
	sessions   *session.Manager
	library    *library.Library
	hub        *stream.Hub
	clock      clock.Clock
	maxUpload  int64
	logger     *slog.Logger
	mux        *http.ServeMux
}

// New creates a new radarplay server.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Hub == nil {
		opts.Hub = stream.NewHub(opts.Logger)
	}
	s := &Server{
		sessions:  opts.Sessions,
		library:   opts.Library,
		hub:       opts.Hub,
		clock:     opts.Clock,
		maxUpload: opts.MaxUploadBytes,
		logger:    opts.Logger,
		mux:       http.NewServeMux(),
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /dashboard", s.handleDashboard)

	s.mux.HandleFunc("GET /api/recordings", s.handleListRecordings)
	s.mux.HandleFunc("POST /api/recordings", s.handleUploadRecording)
	s.mux.HandleFunc("DELETE /api/recordings/{name}", s.handleDeleteRecording)
	s.mux.HandleFunc("POST /api/recordings/{name}/load", s.handleLoadRecording)

	s.mux.HandleFunc("POST /api/play", s.handlePlay)
	s.mux.HandleFunc("POST /api/pause", s.handlePause)
	s.mux.HandleFunc("POST /api/stop", s.handleStop)
	s.mux.HandleFunc("POST /api/seek", s.handleSeek)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	s.mux.HandleFunc("GET /ws/{stream}", s.hub.HandleWebSocket)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return metrics.Middleware(LoggingMiddleware(s.mux, s.logger, s.clock))
}

// handleRoot serves a welcome message.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "radarplay",
		"status":  "running",
		"time":    s.clock.Now().Format(time.RFC3339),
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDashboard serves the control page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(DashboardHTML))
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.logger.Info("radarplay server listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and disconnects stream
// subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.hub.Close()
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
