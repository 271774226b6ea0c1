package ir

import (
	"errors"
	"fmt"
)

// Sentinel errors of the public API. Parser syntax errors wrap
// ErrInvalidRegex; transgen and emit failures are plain errors. The
// top-level compile wraps the first error from any stage in a StageError
// and returns it.
var (
	// ErrInvalidRegex reports a syntactic problem in the source pattern.
	// Deterministic given the same input.
	ErrInvalidRegex = errors.New("jitregex: invalid regex")

	// ErrMemory names resource exhaustion. No stage in this module returns
	// it: Go reports allocation failure by panicking.
	ErrMemory = errors.New("jitregex: memory error")
)

// StageError wraps a pipeline-stage failure with the stage name, so a
// caller inspecting errors.Is(err, ErrInvalidRegex) still works while the
// message identifies which of the five stages produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("jitregex: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Wrap returns a *StageError attributing err to stage, or nil if err is nil.
func Wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
