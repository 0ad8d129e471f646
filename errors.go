package acceptor

import (
	"errors"
	"fmt"

	"github.com/qa-agent/qa-acceptor/exitcodes"
	"github.com/qa-agent/qa-acceptor/types"
)

// RuntimeError aborts a run before a report exists: the script folder is
// missing, no credentials are stored or the report cannot be written.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("run aborted: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ExitCode implements cli.ExitCoder
func (e *RuntimeError) ExitCode() int {
	return exitcodes.RuntimeErr
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError reports whether err is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return errors.As(err, &runtimeErr)
}

// TestFailureError is returned for a completed run that has failed or
// errored scripts when the caller asked for a non-zero exit on failure.
type TestFailureError struct {
	Summary *types.RunSummary
}

func (e *TestFailureError) Error() string {
	if e.Summary == nil {
		return "scripts failed"
	}
	return fmt.Sprintf("scripts failed: %s", e.Summary)
}

// ExitCode implements cli.ExitCoder
func (e *TestFailureError) ExitCode() int {
	return exitcodes.TestFailure
}

func NewTestFailureError(summary *types.RunSummary) *TestFailureError {
	return &TestFailureError{Summary: summary}
}

// IsTestFailureError reports whether err is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var failureErr *TestFailureError
	return errors.As(err, &failureErr)
}
