// Package generation is the client for the external content-generation
// service. It speaks the service's HTTP JSON contract, encapsulates retry
// and duplicate-suppression for topic content, and never writes to the
// document store: callers own persistence, keeping this package pure over
// the network.
package generation

import (
	"context"

	"github.com/pathgenius/pathgenius/internal/course"
)

// TopicContentRequest asks the backend to generate content for one topic.
// ModuleTitle carries the topic title on the wire; the field name is part
// of the backend contract.
type TopicContentRequest struct {
	UserID       string `json:"userId"`
	CourseID     string `json:"courseId"`
	ModuleID     int    `json:"moduleId"`
	LearningGoal string `json:"learningGoal"`
	ModuleTitle  string `json:"moduleTitle"`
}

// TopicContent is the generated payload for a topic. At least one of
// Content and VideoID is set; Placeholder marks content synthesized locally
// after generation gave up.
type TopicContent struct {
	Content     string `json:"content,omitempty"`
	VideoID     string `json:"videoId,omitempty"`
	Placeholder bool   `json:"-"`
}

// TopicRef is a title+content pair fed to quiz generation.
type TopicRef struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// QuizRequest asks the backend to generate a quiz over module topics.
type QuizRequest struct {
	UserID       string     `json:"userId"`
	ModuleID     int        `json:"moduleId"`
	CourseID     string     `json:"courseId"`
	TopicContent []TopicRef `json:"topicContent"`
}

// GeneratedQuiz is a freshly generated module quiz.
type GeneratedQuiz struct {
	QuizID    string                `json:"quizId"`
	Questions []course.QuizQuestion `json:"questions"`
}

// Evaluation is the backend's scoring of a submitted quiz.
type Evaluation struct {
	Score            int    `json:"score"`
	Feedback         string `json:"feedback"`
	CompletionStatus string `json:"completionStatus"`
}

// AssessmentRequest asks for diagnostic assessment questions.
type AssessmentRequest struct {
	LearningGoal    string `json:"learningGoal"`
	ProfessionLevel string `json:"professionLevel"`
	UserID          string `json:"userId"`
}

// AssessmentQuestion is a single diagnostic question. Assessment question
// ids are integers on the wire, unlike quiz question ids.
type AssessmentQuestion struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
}

// Assessment is a generated diagnostic assessment with its session handle.
type Assessment struct {
	Questions []AssessmentQuestion `json:"questions"`
	SessionID string               `json:"sessionId"`
}

// AssessmentResult is the backend's evaluation of an assessment submission.
type AssessmentResult struct {
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
	NextSteps string  `json:"nextSteps"`
}

// Generator is the interface the controllers depend on.
type Generator interface {
	GenerateTopicContent(ctx context.Context, req TopicContentRequest) (TopicContent, error)
	GenerateModuleQuiz(ctx context.Context, req QuizRequest) (GeneratedQuiz, error)
	EvaluateQuiz(ctx context.Context, quizID string, answers map[string]string) (Evaluation, error)
	GenerateAssessment(ctx context.Context, req AssessmentRequest) (Assessment, error)
	EvaluateAssessment(ctx context.Context, sessionID string, answers map[string]string) (AssessmentResult, error)
	Health(ctx context.Context) error
}
