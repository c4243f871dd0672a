// Package server exposes the session controllers, assessment flow, and
// progress stream over HTTP. The authenticated user arrives as an explicit
// X-User-ID header supplied by the auth collaborator in front of this
// service; nothing here reads ambient auth state.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pathgenius/pathgenius/internal/assessment"
	"github.com/pathgenius/pathgenius/internal/events"
	"github.com/pathgenius/pathgenius/internal/generation"
	"github.com/pathgenius/pathgenius/internal/session"
	"github.com/pathgenius/pathgenius/internal/store"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the server's dependencies. DB and Cache are optional; nil
// skips their readiness checks.
type Config struct {
	Store       store.Store
	Generator   generation.Generator
	Sessions    *session.Registry
	Assessments *assessment.Service
	Hub         *events.Hub
	DB          HealthChecker
	Cache       HealthChecker
}

// Server is the HTTP surface of the orchestrator.
type Server struct {
	store       store.Store
	gen         generation.Generator
	sessions    *session.Registry
	assessments *assessment.Service
	hub         *events.Hub
	db          HealthChecker
	cache       HealthChecker
}

// New creates a Server from its dependencies.
func New(cfg Config) *Server {
	return &Server{
		store:       cfg.Store,
		gen:         cfg.Generator,
		sessions:    cfg.Sessions,
		assessments: cfg.Assessments,
		hub:         cfg.Hub,
		db:          cfg.DB,
		cache:       cfg.Cache,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/courses/{courseID}/modules/{moduleID}/load", s.handleLoadModule)
	mux.HandleFunc("POST /api/courses/{courseID}/modules/{moduleID}/navigate", s.handleNavigate)
	mux.HandleFunc("POST /api/courses/{courseID}/modules/{moduleID}/topics/{index}/complete", s.handleCompleteTopic)
	mux.HandleFunc("GET /api/courses/{courseID}/modules/{moduleID}/next", s.handleNextModule)
	mux.HandleFunc("DELETE /api/courses/{courseID}/modules/{moduleID}/session", s.handleUnloadModule)

	mux.HandleFunc("POST /api/courses/{courseID}/modules/{moduleID}/quiz/check", s.handleQuizCheck)
	mux.HandleFunc("POST /api/courses/{courseID}/modules/{moduleID}/quiz/start", s.handleQuizStart)
	mux.HandleFunc("POST /api/courses/{courseID}/modules/{moduleID}/quiz/answers", s.handleQuizAnswer)
	mux.HandleFunc("POST /api/courses/{courseID}/modules/{moduleID}/quiz/submit", s.handleQuizSubmit)

	mux.HandleFunc("GET /api/courses/{courseID}/report", s.handleReport)

	mux.HandleFunc("POST /api/assessments", s.handleAssessmentCreate)
	mux.HandleFunc("POST /api/assessments/{sessionID}/evaluate", s.handleAssessmentEvaluate)

	if s.hub != nil {
		mux.Handle("GET /ws/progress", s.hub)
	}

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz checks the hard dependencies. The generation backend is
// probed too, but a failure there only degrades the response to a warning:
// the service can still serve reads and record answers.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable", "reason": "database",
			})
			return
		}
	}
	if s.cache != nil {
		if err := s.cache.HealthCheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable", "reason": "cache",
			})
			return
		}
	}

	resp := map[string]string{"status": "ready"}
	if err := s.gen.Health(ctx); err != nil {
		slog.Warn("generation backend unhealthy", "error", err)
		resp["warning"] = "generation backend unreachable"
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
