package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	acceptor "github.com/qa-agent/qa-acceptor"
	"github.com/qa-agent/qa-acceptor/exitcodes"
	"github.com/qa-agent/qa-acceptor/flags"
	"github.com/qa-agent/qa-acceptor/types"
)

// TestExitCode verifies the exit code mapping:
// - 0 when the run completed
// - 1 when scripts failed and failing on test failure is requested
// - 2 when the run could not complete
func TestExitCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"no error", nil, exitcodes.Success},
		{"test failure", acceptor.NewTestFailureError(&types.RunSummary{Total: 1, Failed: 1}), exitcodes.TestFailure},
		{"runtime error", acceptor.NewRuntimeError(errors.New("no test folder")), exitcodes.RuntimeErr},
		{"wrapped runtime error", fmt.Errorf("failed to start: %w", acceptor.NewRuntimeError(errors.New("boom"))), exitcodes.RuntimeErr},
		{"joined test failure", errors.Join(fmt.Errorf("failed to start: %w", acceptor.NewTestFailureError(nil)), nil), exitcodes.TestFailure},
		{"unspecified error", errors.New("flag provided but not defined"), exitcodes.RuntimeErr},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, exitCode(tc.err))
		})
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()
	assert.Equal(t, "qa-acceptor", app.Name)
	assert.Len(t, app.Flags, len(flags.Flags))

	var creds *cli.Command
	for _, c := range app.Commands {
		if c.Name == "credentials" {
			creds = c
		}
	}
	require.NotNil(t, creds, "credentials command should be registered")
	require.Len(t, creds.Flags, 1)
	assert.Equal(t, flags.CredentialsFile.Name, creds.Flags[0].Names()[0])
}
