package acceptor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"

	"github.com/qa-agent/qa-acceptor/exitcodes"
	"github.com/qa-agent/qa-acceptor/types"
)

func TestRuntimeError(t *testing.T) {
	cause := errors.New("folder missing")
	err := fmt.Errorf("wrapped: %w", NewRuntimeError(cause))

	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "wrapped: run aborted: folder missing", err.Error())
}

func TestTestFailureError(t *testing.T) {
	summary := &types.RunSummary{Total: 1, Failed: 1}
	err := NewTestFailureError(summary)

	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.Equal(t, "scripts failed: Total: 1 | Passed: 0 | Failed: 1 | Errors: 0 | Flaky: 0", err.Error())
	assert.Same(t, summary, err.Summary)
	assert.Equal(t, "scripts failed", NewTestFailureError(nil).Error())
	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsTestFailureError(nil))
}

func TestErrorsCarryExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"runtime", NewRuntimeError(errors.New("no credentials")), exitcodes.RuntimeErr},
		{"test failure", NewTestFailureError(&types.RunSummary{Total: 1, Errors: 1}), exitcodes.TestFailure},
		{"joined runtime", errors.Join(fmt.Errorf("failed to start: %w", NewRuntimeError(errors.New("x"))), nil), exitcodes.RuntimeErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var coder cli.ExitCoder
			assert.True(t, errors.As(tt.err, &coder))
			assert.Equal(t, tt.code, coder.ExitCode())
		})
	}
}
