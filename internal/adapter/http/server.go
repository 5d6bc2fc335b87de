// Package http exposes the service's health endpoints and the per-lot
// read/command surface consumed by the presentation layer.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parkwatch/lot-occupancy-service/internal/domain"
	"github.com/parkwatch/lot-occupancy-service/internal/session"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// SessionDirectory resolves lot ids to their running sessions.
type SessionDirectory interface {
	Get(id string) (*session.Controller, bool)
	All() []*session.Controller
}

// Server exposes health, readiness, metrics, and lot session routes.
type Server struct {
	httpServer *http.Server
	sessions   SessionDirectory
	logger     *slog.Logger
}

// NewServer creates the HTTP server with health and lot routes.
func NewServer(addr string, sessions SessionDirectory, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		sessions: sessions,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /lots", s.handleListLots)
	mux.HandleFunc("GET /lots/{id}", s.handleGetLot)
	mux.HandleFunc("POST /lots/{id}/schedule", s.handleSubmitSchedule)
	mux.HandleFunc("POST /lots/{id}/leaving-soon", s.handleLeavingSoon)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleListLots(w http.ResponseWriter, _ *http.Request) {
	controllers := s.sessions.All()
	statuses := make([]session.Status, 0, len(controllers))
	for _, c := range controllers {
		statuses = append(statuses, c.Status())
	}
	writeJSON(w, http.StatusOK, map[string]any{"lots": statuses})
}

func (s *Server) handleGetLot(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Status())
}

func (s *Server) handleSubmitSchedule(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body struct {
		DepartureTime string `json:"departure_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := c.SubmitSchedule(r.Context(), body.DepartureTime); err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleLeavingSoon(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if err := c.MarkLeavingSoon(r.Context()); err != nil {
		s.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Status())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	c, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown lot")
		return nil, false
	}
	return c, true
}

// writeCommandError maps the domain error taxonomy onto HTTP statuses. Gate
// rejections and input failures are client errors; upstream failures are a
// bad gateway.
func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	var ue *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrLocationRequired),
		errors.Is(err, domain.ErrAlreadyActed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrOutOfRange):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrSessionClosed):
		writeError(w, http.StatusGone, err.Error())
	case errors.As(err, &ue):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("command failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
