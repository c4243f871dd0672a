package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pathgenius/pathgenius/internal/generation"
)

// ErrSessionNotFound is returned when evaluating an unknown session.
var ErrSessionNotFound = errors.New("assessment session not found")

const generateAttempts = 2

// Session is an in-progress diagnostic assessment for one user.
type Session struct {
	ID              string
	UserID          string
	LearningGoal    string
	ProfessionLevel string
	Questions       []generation.AssessmentQuestion
	CreatedAt       time.Time
}

// Service orchestrates assessment generation and evaluation. Sessions are
// held in memory; an assessment is short-lived and losing one on restart
// only means the learner retakes it.
type Service struct {
	gen  generation.Generator
	bank *Bank

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates an assessment service backed by the given generator
// and fallback bank.
func NewService(gen generation.Generator, bank *Bank) *Service {
	if bank == nil {
		bank = NewBank()
	}
	return &Service{
		gen:      gen,
		bank:     bank,
		sessions: make(map[string]*Session),
	}
}

// GenerateQuestions produces the diagnostic questions for a learning goal.
// The generation backend gets a bounded number of tries; if none yields
// questions the preset bank answers instead, so onboarding never blocks on
// the backend.
func (s *Service) GenerateQuestions(ctx context.Context, userID, learningGoal, professionLevel string) (*Session, error) {
	var questions []generation.AssessmentQuestion
	var sessionID string

	for attempt := 1; attempt <= generateAttempts; attempt++ {
		assessment, err := s.gen.GenerateAssessment(ctx, generation.AssessmentRequest{
			LearningGoal:    learningGoal,
			ProfessionLevel: professionLevel,
			UserID:          userID,
		})
		if err != nil {
			slog.Warn("assessment generation attempt failed",
				"attempt", attempt, "error", err)
			continue
		}
		if len(assessment.Questions) > 0 {
			questions = assessment.Questions
			sessionID = assessment.SessionID
			break
		}
	}

	if len(questions) == 0 {
		slog.Info("using preset assessment questions", "learning_goal", learningGoal)
		questions = s.bank.QuestionsFor(learningGoal)
	}
	if sessionID == "" {
		sessionID = fmt.Sprintf("session_%s_%d", userID, time.Now().Unix())
	}

	session := &Session{
		ID:              sessionID,
		UserID:          userID,
		LearningGoal:    learningGoal,
		ProfessionLevel: professionLevel,
		Questions:       questions,
		CreatedAt:       time.Now(),
	}

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()
	return session, nil
}

// Evaluate scores an assessment submission. The backend evaluator is
// preferred; if it fails, scoring degrades to local completion-based
// feedback so the learner always gets a result.
func (s *Service) Evaluate(ctx context.Context, sessionID string, answers map[string]string) (generation.AssessmentResult, error) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return generation.AssessmentResult{}, ErrSessionNotFound
	}

	result, err := s.gen.EvaluateAssessment(ctx, sessionID, answers)
	if err == nil {
		return result, nil
	}
	slog.Warn("remote assessment evaluation failed, scoring locally",
		"session_id", sessionID, "error", err)

	return scoreByCompletion(session, answers), nil
}

// Session returns a stored session by id.
func (s *Service) Session(sessionID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

// scoreByCompletion mirrors the backend's degraded-mode scoring: freeform
// answers cannot be auto-graded, so the score reflects how many questions
// received a non-empty answer.
func scoreByCompletion(session *Session, answers map[string]string) generation.AssessmentResult {
	total := len(session.Questions)
	answered := 0
	for _, q := range session.Questions {
		if strings.TrimSpace(answers[strconv.Itoa(q.ID)]) != "" {
			answered++
		}
	}

	score := 0.0
	if total > 0 {
		score = math.Round(float64(answered) / float64(total) * 100)
	}

	feedback := fmt.Sprintf("You've completed %d out of %d questions on %s.",
		answered, total, session.LearningGoal)

	var nextSteps string
	switch {
	case score == 100:
		nextSteps = fmt.Sprintf("Great job answering all questions! Based on your responses, we'll create a personalized learning path for %s.", session.LearningGoal)
	case score >= 60:
		nextSteps = fmt.Sprintf("You've made a good start with %s. We'll use your responses to create a learning path that builds on your knowledge.", session.LearningGoal)
	default:
		nextSteps = fmt.Sprintf("We'll create a learning plan for %s starting with the fundamentals to help you build a strong foundation.", session.LearningGoal)
	}

	return generation.AssessmentResult{
		Score:     score,
		Feedback:  feedback,
		NextSteps: nextSteps,
	}
}
