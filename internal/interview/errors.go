package interview

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSession is the parent of every session lifecycle error.
	ErrSession           = errors.New("session error")
	ErrNoSession         = fmt.Errorf("%w: no active session", ErrSession)
	ErrInterviewFinished = errors.New("interview finished: maximum questions reached")
	ErrNotFound          = errors.New("session not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUpstream          = errors.New("upstream failure")
)

// InvalidStateError reports an operation attempted from the wrong state.
type InvalidStateError struct {
	Op      string
	Current State
	Allowed []State
}

func (e *InvalidStateError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("cannot %s in state %s (allowed: %s)", e.Op, e.Current, strings.Join(allowed, ", "))
}

// Is lets errors.Is(err, ErrSession) match.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrSession
}

func requireState(op string, current State, allowed ...State) error {
	for _, s := range allowed {
		if current == s {
			return nil
		}
	}
	return &InvalidStateError{Op: op, Current: current, Allowed: allowed}
}
