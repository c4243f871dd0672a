package session

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden means the course exists but belongs to another user.
	// The HTTP layer surfaces it identically to a missing course so that
	// probing cannot reveal existence.
	ErrForbidden = errors.New("course does not belong to user")

	// ErrBackfillInFlight means a backfill pass for this module is already
	// running, here or in another process.
	ErrBackfillInFlight = errors.New("backfill already in flight")

	// ErrQuizIncomplete means the quiz was submitted with at least one
	// unanswered question. Rejected locally, before any network call.
	ErrQuizIncomplete = errors.New("all questions must be answered before submitting")

	// ErrNoActiveQuiz means a quiz operation arrived in the wrong state.
	ErrNoActiveQuiz = errors.New("no active quiz awaiting answers")
)

// PersistenceError reports a store write that failed after the computation
// succeeded. Applied tells the caller whether in-memory state already
// reflects the change: the optimistic-write policy means "partially
// applied" is an observable outcome and callers must be able to tell it
// apart from "nothing changed".
type PersistenceError struct {
	Op      string
	Applied bool
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Applied {
		return fmt.Sprintf("%s: applied in memory but not persisted: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: not persisted: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
