package session

import (
	"errors"
	"fmt"
)

// Validation errors: the caller supplied an out-of-range position or option
// index, or attempted to mutate a finished session. State is never changed.
var (
	ErrInvalidPosition = errors.New("session: position out of range")
	ErrInvalidOption   = errors.New("session: option index out of range")
	ErrSessionFinished = errors.New("session: already finished")
)

// Submission errors.
var (
	// ErrSubmitInFlight is returned when submit is called while an earlier
	// submit attempt is still running. The duplicate call is a no-op.
	ErrSubmitInFlight = errors.New("session: submit already in flight")

	// ErrAlreadySubmitted is returned once a result has been produced and
	// handed off. It is benign: there is nothing left to do.
	ErrAlreadySubmitted = errors.New("session: already submitted")
)

// FetchError wraps a failure to retrieve the authoritative answer key.
// Grading does not proceed; the session stays finished but ungraded and the
// caller may retry.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("session: fetch answer key: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistError wraps a failure to hand the graded result off to the result
// store. The score is known but not saved; the caller may retry.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("session: persist result: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
