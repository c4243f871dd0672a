// Package course defines the persisted learning-path documents: a course
// owned by a single user, its ordered modules, their topics, and the quiz
// attempts recorded against each module.
package course

import "time"

// Collection names in the document store.
const (
	Collection        = "courses"
	AttemptCollection = "quizResults"
)

// Completion statuses recorded on a quiz attempt.
const (
	StatusCompleted   = "completed"
	StatusNeedsReview = "needs_review"
)

// Course is a generated learning path. Progress is always the rounded
// average of the module progress values; it is recomputed on every
// module-progress write, never stored independently.
type Course struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"userId"`
	Title        string    `json:"title"`
	LearningGoal string    `json:"learningGoal"`
	Modules      []Module  `json:"modules"`
	Progress     int       `json:"progress"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// Module is a named unit of course content. ID is a stable per-course
// integer. CompletedTopics is a set of indices into Topics; Progress is
// derived from it while topics exist, and assigned directly (quiz
// completion) when they do not.
type Module struct {
	ID              int            `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Progress        int            `json:"progress"`
	Topics          []Topic        `json:"topics"`
	CompletedTopics []int          `json:"completedTopics"`
	Quiz            []QuizQuestion `json:"quiz,omitempty"`
}

// Topic is the smallest content unit within a module. A topic with neither
// content nor a video id is incomplete and eligible for backfill.
type Topic struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	VideoID string `json:"videoId,omitempty"`
}

// Incomplete reports whether the topic still needs generated content.
func (t Topic) Incomplete() bool {
	return t.Content == "" && t.VideoID == ""
}

// QuizQuestion is a single freeform question within a module quiz.
type QuizQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// QuizAttempt is one persisted submission of a module quiz. Attempts are
// immutable once written; resubmission creates a new document and the most
// recent CompletedAt is authoritative for resume and display.
type QuizAttempt struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"`
	CourseID         string            `json:"courseId"`
	ModuleID         int               `json:"moduleId"`
	Score            int               `json:"score"`
	Feedback         string            `json:"feedback"`
	CompletionStatus string            `json:"completionStatus"`
	Answers          map[string]string `json:"answers"`
	Questions        []QuizQuestion    `json:"questions,omitempty"`
	CompletedAt      time.Time         `json:"completedAt"`
}

// ModuleByID returns the module with the given id and its index in Modules.
func (c *Course) ModuleByID(id int) (*Module, int, bool) {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i], i, true
		}
	}
	return nil, -1, false
}

// MissingTopics returns the indices of topics that still need content.
func (m *Module) MissingTopics() []int {
	var missing []int
	for i, t := range m.Topics {
		if t.Incomplete() {
			missing = append(missing, i)
		}
	}
	return missing
}

// IsTopicCompleted reports whether the topic index is in the completed set.
func (m *Module) IsTopicCompleted(index int) bool {
	for _, i := range m.CompletedTopics {
		if i == index {
			return true
		}
	}
	return false
}
