// Package session owns the per-view state machines: the module session
// (topic navigation, content backfill, completion) and the quiz session
// (generate, answer, submit, score, resume). Controllers hold a working
// copy in memory; the document store remains the source of truth, so every
// mutator re-reads the course immediately before merging its own change to
// avoid clobbering sibling modules edited concurrently.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pathgenius/pathgenius/internal/course"
	"github.com/pathgenius/pathgenius/internal/events"
	"github.com/pathgenius/pathgenius/internal/generation"
	"github.com/pathgenius/pathgenius/internal/progress"
	"github.com/pathgenius/pathgenius/internal/store"
)

// Navigation directions.
const (
	DirectionNext = "next"
	DirectionPrev = "prev"
)

const backfillMarkerTTL = 60 * time.Second

// InFlightMarker is a best-effort cross-process duplicate guard. The
// process-local flag is the correctness mechanism; the marker only narrows
// the window in which a second process can start the same work.
type InFlightMarker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ModuleConfig holds dependencies for a module session.
type ModuleConfig struct {
	Store     store.Store
	Generator generation.Generator
	Hub       *events.Hub    // optional
	Marker    InFlightMarker // optional
}

// ModuleSession tracks a learner's position within one module of a course.
type ModuleSession struct {
	store  store.Store
	gen    generation.Generator
	hub    *events.Hub
	marker InFlightMarker

	userID   string
	courseID string
	moduleID int

	mu          sync.Mutex
	state       ModuleState
	course      course.Course
	module      course.Module
	topicIndex  int
	backfilling bool
	backfillWG  sync.WaitGroup
}

// NewModuleSession creates an unloaded module session.
func NewModuleSession(cfg ModuleConfig) *ModuleSession {
	return &ModuleSession{
		store:  cfg.Store,
		gen:    cfg.Generator,
		hub:    cfg.Hub,
		marker: cfg.Marker,
		state:  ModuleLoading,
	}
}

// Load fetches the course, verifies ownership, normalizes the module, and
// schedules a backfill pass for any topics still lacking content. The
// backfill runs detached from the caller's context: navigating away must
// not abort an in-flight write, since partial writes here are idempotent.
func (s *ModuleSession) Load(ctx context.Context, courseID string, moduleID int, userID string) (course.Module, error) {
	var c course.Course
	if err := s.store.Get(ctx, course.Collection, courseID, &c); err != nil {
		s.setState(ModuleError)
		return course.Module{}, err
	}
	if c.OwnerID != userID {
		s.setState(ModuleError)
		return course.Module{}, ErrForbidden
	}

	mod, _, ok := c.ModuleByID(moduleID)
	if !ok {
		s.setState(ModuleError)
		return course.Module{}, fmt.Errorf("module %d: %w", moduleID, store.ErrNotFound)
	}

	working := *mod
	course.NormalizeModule(&working)

	s.mu.Lock()
	s.userID = userID
	s.courseID = courseID
	s.moduleID = moduleID
	s.course = c
	s.module = working
	s.topicIndex = 0
	s.state = ModuleReady
	s.mu.Unlock()

	if len(working.MissingTopics()) > 0 {
		s.backfillWG.Add(1)
		bctx := context.WithoutCancel(ctx)
		go func() {
			defer s.backfillWG.Done()
			if err := s.BackfillMissingContent(bctx); err != nil && !errors.Is(err, ErrBackfillInFlight) {
				slog.Warn("scheduled backfill failed",
					"course_id", courseID,
					"module_id", moduleID,
					"error", err,
				)
			}
		}()
	}

	return working, nil
}

// BackfillMissingContent generates content for every incomplete topic,
// sequentially to bound backend load and keep per-topic failure isolated,
// then writes the topic list back in a single batched merge. The in-flight
// guard is a correctness requirement: the backend rejects concurrent
// duplicate generations with 409.
func (s *ModuleSession) BackfillMissingContent(ctx context.Context) error {
	s.mu.Lock()
	if s.backfilling {
		s.mu.Unlock()
		return ErrBackfillInFlight
	}
	s.backfilling = true
	s.state = ModuleBackfilling
	topics := append([]course.Topic(nil), s.module.Topics...)
	userID, courseID, moduleID := s.userID, s.courseID, s.moduleID
	learningGoal := s.course.LearningGoal
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.backfilling = false
		s.state = ModuleReady
		s.mu.Unlock()
	}()

	markerKey := fmt.Sprintf("backfill:%s:%d", courseID, moduleID)
	if s.marker != nil {
		ok, err := s.marker.Acquire(ctx, markerKey, backfillMarkerTTL)
		if err != nil {
			slog.Warn("in-flight marker unavailable, proceeding", "error", err)
		} else if !ok {
			return ErrBackfillInFlight
		} else {
			defer func() {
				if err := s.marker.Release(ctx, markerKey); err != nil {
					slog.Warn("failed to release in-flight marker", "key", markerKey, "error", err)
				}
			}()
		}
	}

	s.hub.Publish(events.Event{Kind: events.KindBackfillStarted, CourseID: courseID, ModuleID: moduleID})

	changed := false
	for i := range topics {
		if !topics[i].Incomplete() {
			continue
		}
		content, err := s.gen.GenerateTopicContent(ctx, generation.TopicContentRequest{
			UserID:       userID,
			CourseID:     courseID,
			ModuleID:     moduleID,
			LearningGoal: learningGoal,
			ModuleTitle:  topics[i].Title,
		})
		if err != nil {
			// The client falls back to placeholder content itself; an
			// error here means the request never ran (context canceled).
			return fmt.Errorf("generate topic %d: %w", i, err)
		}
		topics[i].Content = content.Content
		topics[i].VideoID = content.VideoID
		changed = true

		s.hub.Publish(events.Event{
			Kind:       events.KindTopicBackfilled,
			CourseID:   courseID,
			ModuleID:   moduleID,
			TopicIndex: i,
		})
	}

	if !changed {
		return nil
	}

	// Optimistic: the working copy gets the generated content whether or
	// not the batched write below lands.
	s.mu.Lock()
	s.module.Topics = topics
	s.mu.Unlock()

	err := s.persistModule(ctx, func(m *course.Module) {
		m.Topics = topics
	})

	s.hub.Publish(events.Event{Kind: events.KindBackfillCompleted, CourseID: courseID, ModuleID: moduleID})

	if err != nil {
		return err
	}
	return nil
}

// WaitForBackfill blocks until any scheduled backfill has finished. Used
// on shutdown so fire-and-forget writes complete.
func (s *ModuleSession) WaitForBackfill() {
	s.backfillWG.Wait()
}

// NavigateTopic moves the topic cursor. Moving forward first marks the
// current topic completed and persists progress, then advances if not at
// the last topic. Moving backward only moves the cursor: backward
// navigation is not an undo of completion.
func (s *ModuleSession) NavigateTopic(ctx context.Context, direction string) (int, error) {
	switch direction {
	case DirectionPrev:
		s.mu.Lock()
		if s.topicIndex > 0 {
			s.topicIndex--
		}
		idx := s.topicIndex
		s.mu.Unlock()
		return idx, nil

	case DirectionNext:
		s.mu.Lock()
		current := s.topicIndex
		last := len(s.module.Topics) - 1
		s.mu.Unlock()

		err := s.MarkTopicCompleted(ctx, current)

		s.mu.Lock()
		if s.topicIndex < last {
			s.topicIndex++
		}
		idx := s.topicIndex
		s.mu.Unlock()
		return idx, err

	default:
		return 0, fmt.Errorf("unknown direction %q", direction)
	}
}

// MarkTopicCompleted adds the topic index to the completed set (adding an
// already-present index is a no-op), recomputes module and course progress,
// and writes both back in one merged update. The in-memory state is
// updated optimistically: a failed write is reported but not rolled back.
func (s *ModuleSession) MarkTopicCompleted(ctx context.Context, topicIndex int) error {
	s.mu.Lock()
	if topicIndex < 0 || topicIndex >= len(s.module.Topics) {
		s.mu.Unlock()
		return fmt.Errorf("topic index %d out of range", topicIndex)
	}
	already := s.module.IsTopicCompleted(topicIndex)
	if !already {
		s.module.CompletedTopics = append(s.module.CompletedTopics, topicIndex)
		s.module.Progress = progress.ModulePercent(len(s.module.Topics), s.module.CompletedTopics)
	}
	completed := append([]int(nil), s.module.CompletedTopics...)
	moduleProgress := s.module.Progress
	courseID, moduleID := s.courseID, s.moduleID
	s.mu.Unlock()

	if already {
		return nil
	}

	err := s.persistModule(ctx, func(m *course.Module) {
		m.CompletedTopics = completed
		m.Progress = moduleProgress
	})

	s.hub.Publish(events.Event{
		Kind:       events.KindTopicCompleted,
		CourseID:   courseID,
		ModuleID:   moduleID,
		TopicIndex: topicIndex,
		Progress:   moduleProgress,
	})

	return err
}

// MarkModuleComplete sets the module's progress directly, used when quiz
// completion rather than topic completion is the completion signal, and
// recomputes course progress through the same read-merge-write path.
func (s *ModuleSession) MarkModuleComplete(ctx context.Context, progressValue int) error {
	s.mu.Lock()
	s.module.Progress = progressValue
	courseID, moduleID := s.courseID, s.moduleID
	s.mu.Unlock()

	err := s.persistModule(ctx, func(m *course.Module) {
		m.Progress = progressValue
	})

	kind := events.KindModuleProgress
	if progressValue >= 100 {
		kind = events.KindModuleCompleted
	}
	s.hub.Publish(events.Event{
		Kind:     kind,
		CourseID: courseID,
		ModuleID: moduleID,
		Progress: progressValue,
	})

	return err
}

// AdvanceToNextModule returns the id of the module after the current one,
// or done=true when the current module is the last in the course.
func (s *ModuleSession) AdvanceToNextModule() (nextModuleID int, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.course.Modules {
		if s.course.Modules[i].ID == s.moduleID {
			if i == len(s.course.Modules)-1 {
				return 0, true
			}
			return s.course.Modules[i+1].ID, false
		}
	}
	return 0, true
}

// persistModule applies mutate through a read-current-then-merge write:
// the course document is re-read so that sibling modules changed since Load
// are preserved, the mutation lands on the fresh copy, course progress is
// recomputed, and the result is merged back in one update. On write
// failure the optimistic in-memory state stands and a PersistenceError
// with Applied=true is returned.
func (s *ModuleSession) persistModule(ctx context.Context, mutate func(*course.Module)) error {
	s.mu.Lock()
	courseID, moduleID := s.courseID, s.moduleID
	s.mu.Unlock()

	var fresh course.Course
	if err := s.store.Get(ctx, course.Collection, courseID, &fresh); err != nil {
		slog.Warn("progress write failed, keeping optimistic local state",
			"course_id", courseID, "module_id", moduleID, "error", err)
		return &PersistenceError{Op: "persist module", Applied: true, Err: err}
	}

	mod, _, ok := fresh.ModuleByID(moduleID)
	if !ok {
		err := fmt.Errorf("module %d: %w", moduleID, store.ErrNotFound)
		return &PersistenceError{Op: "persist module", Applied: true, Err: err}
	}
	mutate(mod)
	fresh.Progress = progress.CoursePercent(fresh.Modules)

	err := s.store.Merge(ctx, course.Collection, courseID, map[string]any{
		"modules":   fresh.Modules,
		"progress":  fresh.Progress,
		"updatedAt": time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("progress write failed, keeping optimistic local state",
			"course_id", courseID, "module_id", moduleID, "error", err)
		return &PersistenceError{Op: "persist module", Applied: true, Err: err}
	}

	s.mu.Lock()
	s.course = fresh
	if mod, _, ok := fresh.ModuleByID(moduleID); ok {
		merged := *mod
		course.NormalizeModule(&merged)
		s.module = merged
	}
	s.mu.Unlock()
	return nil
}

// State returns the session's current lifecycle state.
func (s *ModuleSession) State() ModuleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TopicIndex returns the current topic cursor.
func (s *ModuleSession) TopicIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topicIndex
}

// Module returns a copy of the working module.
func (s *ModuleSession) Module() course.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.module
}

// CourseProgress returns the last known overall course progress.
func (s *ModuleSession) CourseProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.course.Progress
}

func (s *ModuleSession) setState(state ModuleState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
