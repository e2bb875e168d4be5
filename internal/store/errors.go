package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a job or scheduler id does not exist.
var ErrNotFound = errors.New("not found")

// ErrStaleTransition is returned by Claim when the job was no longer
// queued at claim time. Another consumer got there first; the dispatcher
// should re-select.
var ErrStaleTransition = errors.New("stale transition: job is not queued")

// TransitionError reports an illegal status transition.
type TransitionError struct {
	From JobStatus
	To   JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

// ValidationError reports invalid input to a store operation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
