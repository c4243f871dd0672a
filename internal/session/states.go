package session

// ModuleState is the lifecycle of a module view.
type ModuleState int

const (
	ModuleLoading ModuleState = iota
	ModuleReady
	ModuleBackfilling
	ModuleError
)

func (s ModuleState) String() string {
	switch s {
	case ModuleLoading:
		return "loading"
	case ModuleReady:
		return "ready"
	case ModuleBackfilling:
		return "backfilling_content"
	case ModuleError:
		return "error"
	default:
		return "unknown"
	}
}

// QuizState is the lifecycle of a module quiz.
type QuizState int

const (
	QuizIdle QuizState = iota
	QuizCheckingAttempt
	QuizNotStarted
	QuizGenerating
	QuizAwaitingAnswers
	QuizSubmitting
	QuizScored
)

func (s QuizState) String() string {
	switch s {
	case QuizIdle:
		return "idle"
	case QuizCheckingAttempt:
		return "checking_attempt"
	case QuizNotStarted:
		return "not_started"
	case QuizGenerating:
		return "generating"
	case QuizAwaitingAnswers:
		return "awaiting_answers"
	case QuizSubmitting:
		return "submitting"
	case QuizScored:
		return "scored"
	default:
		return "unknown"
	}
}
