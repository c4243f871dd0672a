package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pathgenius/pathgenius/internal/course"
	"github.com/pathgenius/pathgenius/internal/generation"
	"github.com/pathgenius/pathgenius/internal/progress"
	"github.com/pathgenius/pathgenius/internal/store"
)

// ModuleCompleter sets a module's progress when quiz completion, not topic
// completion, is the completion signal.
type ModuleCompleter interface {
	MarkModuleComplete(ctx context.Context, progressValue int) error
}

// QuizConfig holds dependencies for a quiz session.
type QuizConfig struct {
	Store     store.Store
	Generator generation.Generator
	Module    ModuleCompleter // optional; nil skips module completion
}

// QuizSession owns the quiz lifecycle for one module: checking for a prior
// attempt, generating questions, collecting answers, submitting for
// evaluation, and persisting the outcome. At most one quiz session is
// active per module per user session; the registry enforces that.
type QuizSession struct {
	store  store.Store
	gen    generation.Generator
	module ModuleCompleter

	userID   string
	courseID string
	moduleID int

	mu        sync.Mutex
	state     QuizState
	quizID    string
	questions []course.QuizQuestion
	answers   map[string]string
	result    *course.QuizAttempt
}

// NewQuizSession creates an idle quiz session.
func NewQuizSession(cfg QuizConfig) *QuizSession {
	return &QuizSession{
		store:   cfg.Store,
		gen:     cfg.Generator,
		module:  cfg.Module,
		state:   QuizIdle,
		answers: make(map[string]string),
	}
}

// CheckExistingAttempt looks for persisted attempts for this module and,
// if any exist, resumes the most recent one directly into the scored
// state. The store only supports equality predicates, so the newest-first
// selection happens client side. Returns true when a prior attempt was
// resumed.
func (q *QuizSession) CheckExistingAttempt(ctx context.Context, userID, courseID string, moduleID int) (bool, error) {
	q.mu.Lock()
	q.userID, q.courseID, q.moduleID = userID, courseID, moduleID
	q.state = QuizCheckingAttempt
	q.mu.Unlock()

	var attempts []course.QuizAttempt
	err := q.store.Query(ctx, course.AttemptCollection, map[string]any{
		"userId":   userID,
		"courseId": courseID,
		"moduleId": moduleID,
	}, &attempts)
	if err != nil {
		q.setState(QuizNotStarted)
		return false, fmt.Errorf("query attempts: %w", err)
	}

	if len(attempts) == 0 {
		q.setState(QuizNotStarted)
		return false, nil
	}

	latest := attempts[0]
	for _, a := range attempts[1:] {
		if a.CompletedAt.After(latest.CompletedAt) {
			latest = a
		}
	}

	// Legacy attempts may predate question persistence. Synthesize
	// placeholder question records from the answer keys so the view has
	// something to render; this is explicit degradation, not data loss.
	if len(latest.Questions) == 0 && len(latest.Answers) > 0 {
		latest.Questions = synthesizeQuestions(latest.Answers)
	}

	q.mu.Lock()
	q.quizID = latest.ID
	q.questions = latest.Questions
	q.answers = copyAnswers(latest.Answers)
	q.result = &latest
	q.state = QuizScored
	q.mu.Unlock()
	return true, nil
}

// Start generates a fresh quiz over the module's topics. On failure the
// session returns to the not-started state with no other change, and the
// error is surfaced for the caller to display.
func (q *QuizSession) Start(ctx context.Context, userID string, moduleID int, courseID string, topics []course.Topic) error {
	q.mu.Lock()
	if q.state == QuizAwaitingAnswers || q.state == QuizSubmitting {
		q.mu.Unlock()
		return fmt.Errorf("quiz already in progress")
	}
	q.userID, q.courseID, q.moduleID = userID, courseID, moduleID
	q.state = QuizGenerating
	q.mu.Unlock()

	refs := make([]generation.TopicRef, len(topics))
	for i, t := range topics {
		refs[i] = generation.TopicRef{Title: t.Title, Content: t.Content}
	}

	quiz, err := q.gen.GenerateModuleQuiz(ctx, generation.QuizRequest{
		UserID:       userID,
		ModuleID:     moduleID,
		CourseID:     courseID,
		TopicContent: refs,
	})
	if err != nil {
		q.setState(QuizNotStarted)
		return fmt.Errorf("generate quiz: %w", err)
	}

	q.mu.Lock()
	q.quizID = quiz.QuizID
	q.questions = quiz.Questions
	q.answers = make(map[string]string)
	q.result = nil
	q.state = QuizAwaitingAnswers
	q.mu.Unlock()
	return nil
}

// RecordAnswer stores an answer for a question. Allowed only while the
// quiz is awaiting answers.
func (q *QuizSession) RecordAnswer(questionID, text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != QuizAwaitingAnswers {
		return ErrNoActiveQuiz
	}
	q.answers[questionID] = text
	return nil
}

// Submit evaluates the collected answers and persists the outcome as a new
// attempt document; attempts are never updated in place. Submission
// requires a non-empty answer for every question and is rejected locally
// before any network call otherwise. A score at or above the pass
// threshold marks the module complete. If the evaluation succeeded but a
// write failed, the scored state stands and a PersistenceError with
// Applied=true reports the partial outcome.
func (q *QuizSession) Submit(ctx context.Context) (*course.QuizAttempt, error) {
	q.mu.Lock()
	if q.state != QuizAwaitingAnswers {
		q.mu.Unlock()
		return nil, ErrNoActiveQuiz
	}
	for _, question := range q.questions {
		if strings.TrimSpace(q.answers[question.ID]) == "" {
			q.mu.Unlock()
			return nil, ErrQuizIncomplete
		}
	}
	q.state = QuizSubmitting
	quizID := q.quizID
	answers := copyAnswers(q.answers)
	questions := append([]course.QuizQuestion(nil), q.questions...)
	userID, courseID, moduleID := q.userID, q.courseID, q.moduleID
	q.mu.Unlock()

	eval, err := q.gen.EvaluateQuiz(ctx, quizID, answers)
	if err != nil {
		q.setState(QuizAwaitingAnswers)
		return nil, fmt.Errorf("evaluate quiz: %w", err)
	}

	attempt := &course.QuizAttempt{
		ID:               generateID(),
		UserID:           userID,
		CourseID:         courseID,
		ModuleID:         moduleID,
		Score:            eval.Score,
		Feedback:         eval.Feedback,
		CompletionStatus: eval.CompletionStatus,
		Answers:          answers,
		Questions:        questions,
		CompletedAt:      time.Now().UTC(),
	}

	q.mu.Lock()
	q.result = attempt
	q.state = QuizScored
	q.mu.Unlock()

	var perr *PersistenceError
	if err := q.store.Set(ctx, course.AttemptCollection, attempt.ID, attempt); err != nil {
		slog.Warn("quiz attempt not persisted, score kept locally",
			"course_id", courseID, "module_id", moduleID, "error", err)
		perr = &PersistenceError{Op: "save quiz attempt", Applied: true, Err: err}
	}

	if progress.CompletesModule(eval.Score) && q.module != nil {
		if err := q.module.MarkModuleComplete(ctx, 100); err != nil && perr == nil {
			var pe *PersistenceError
			if errors.As(err, &pe) {
				perr = pe
			} else {
				perr = &PersistenceError{Op: "mark module complete", Applied: true, Err: err}
			}
		}
	}

	if perr != nil {
		return attempt, perr
	}
	return attempt, nil
}

// Result returns the scored attempt, if any.
func (q *QuizSession) Result() *course.QuizAttempt {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.result
}

// Questions returns the current question list.
func (q *QuizSession) Questions() []course.QuizQuestion {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]course.QuizQuestion(nil), q.questions...)
}

// State returns the quiz lifecycle state.
func (q *QuizSession) State() QuizState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func (q *QuizSession) setState(state QuizState) {
	q.mu.Lock()
	q.state = state
	q.mu.Unlock()
}

func synthesizeQuestions(answers map[string]string) []course.QuizQuestion {
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	questions := make([]course.QuizQuestion, len(ids))
	for i, id := range ids {
		questions[i] = course.QuizQuestion{
			ID:       id,
			Question: fmt.Sprintf("Question %d", i+1),
		}
	}
	return questions
}

func copyAnswers(answers map[string]string) map[string]string {
	out := make(map[string]string, len(answers))
	for k, v := range answers {
		out[k] = v
	}
	return out
}
