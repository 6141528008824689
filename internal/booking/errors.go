package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("action not allowed in the current step")
	ErrSubmitInProgress  = errors.New("a booking submission is already in progress")
	ErrUnknownDoctor     = errors.New("doctor is not in the directory")
	// ErrWorkflowReset is returned by a Submit whose result arrived after the
	// workflow was reset; the result was discarded.
	ErrWorkflowReset = errors.New("workflow was reset while the booking was in flight")
)

type TransitionError struct {
	Action string
	State  State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s: %v", e.Action, e.State, ErrInvalidTransition)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
