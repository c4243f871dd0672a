package session

import (
	"sync"

	"github.com/pathgenius/pathgenius/internal/events"
	"github.com/pathgenius/pathgenius/internal/generation"
	"github.com/pathgenius/pathgenius/internal/store"
)

// Config holds the shared dependencies handed to every session.
type Config struct {
	Store     store.Store
	Generator generation.Generator
	Hub       *events.Hub
	Marker    InFlightMarker
}

type sessionKey struct {
	userID   string
	courseID string
	moduleID int
}

// Registry hands out module and quiz sessions keyed by
// (user, course, module), guaranteeing at most one active quiz session per
// module per user.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	modules map[sessionKey]*ModuleSession
	quizzes map[sessionKey]*QuizSession
}

// NewRegistry creates an empty session registry.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:     cfg,
		modules: make(map[sessionKey]*ModuleSession),
		quizzes: make(map[sessionKey]*QuizSession),
	}
}

// ModuleSession returns the module session for the key, creating it if
// needed.
func (r *Registry) ModuleSession(userID, courseID string, moduleID int) *ModuleSession {
	key := sessionKey{userID, courseID, moduleID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.modules[key]; ok {
		return s
	}
	s := NewModuleSession(ModuleConfig{
		Store:     r.cfg.Store,
		Generator: r.cfg.Generator,
		Hub:       r.cfg.Hub,
		Marker:    r.cfg.Marker,
	})
	r.modules[key] = s
	return s
}

// QuizSession returns the quiz session for the key, creating it if needed.
// The quiz session completes its module through the matching module
// session, so both share one working copy of the course.
func (r *Registry) QuizSession(userID, courseID string, moduleID int) *QuizSession {
	key := sessionKey{userID, courseID, moduleID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.quizzes[key]; ok {
		return q
	}

	module, ok := r.modules[key]
	if !ok {
		module = NewModuleSession(ModuleConfig{
			Store:     r.cfg.Store,
			Generator: r.cfg.Generator,
			Hub:       r.cfg.Hub,
			Marker:    r.cfg.Marker,
		})
		r.modules[key] = module
	}

	q := NewQuizSession(QuizConfig{
		Store:     r.cfg.Store,
		Generator: r.cfg.Generator,
		Module:    module,
	})
	r.quizzes[key] = q
	return q
}

// Discard drops the sessions for a key. In-flight writes are left to
// finish; discarding is how navigating away is modeled.
func (r *Registry) Discard(userID, courseID string, moduleID int) {
	key := sessionKey{userID, courseID, moduleID}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.modules, key)
	delete(r.quizzes, key)
}

// Drain waits for every known module session's scheduled backfill to
// finish. Called during shutdown.
func (r *Registry) Drain() {
	r.mu.Lock()
	sessions := make([]*ModuleSession, 0, len(r.modules))
	for _, s := range r.modules {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.WaitForBackfill()
	}
}
