package runner

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qa-agent/qa-acceptor/metrics"
	"github.com/qa-agent/qa-acceptor/types"
)

// RetryClassifier runs a script through a TaskRunner with a single retry on
// failure. A script that fails and then passes is reported as passed and
// flaky. Errors (timeouts, launch failures) are never retried.
type RetryClassifier struct {
	runner  TaskRunner
	timeout time.Duration
	log     log.Logger
}

// NewRetryClassifier creates a classifier driving runner with the given per-attempt timeout
func NewRetryClassifier(runner TaskRunner, timeout time.Duration, logger log.Logger) *RetryClassifier {
	if logger == nil {
		logger = log.Root()
	}
	return &RetryClassifier{
		runner:  runner,
		timeout: timeout,
		log:     logger.New("component", "retry-classifier"),
	}
}

// Classify runs script at most twice, strictly sequentially, and merges the
// attempts into one result
func (c *RetryClassifier) Classify(ctx context.Context, script types.ScriptFile, creds types.Credentials) *types.ExecutionResult {
	first := c.attempt(ctx, script, creds, 1)
	if first.Status != types.TestStatusFailed {
		return singleAttemptResult(script, first)
	}

	c.log.Info("Script failed, retrying once", "test", script.TestID, "exitCode", exitCodeString(first.ExitCode))
	second := c.attempt(ctx, script, creds, 2)
	if second.Status == types.TestStatusPassed {
		c.log.Warn("Script passed on retry, marking flaky", "test", script.TestID)
		return flakyResult(script, first, second)
	}
	return failedTwiceResult(script, first, second)
}

func (c *RetryClassifier) attempt(ctx context.Context, script types.ScriptFile, creds types.Credentials, n int) *types.Attempt {
	a := c.runner.Run(ctx, script, creds, c.timeout)
	if a == nil {
		a = &types.Attempt{
			Status: types.TestStatusError,
			Stderr: fmt.Sprintf(FaultFormat, "runner returned no result"),
		}
	}
	metrics.RecordAttempt(a.Status)
	c.log.Debug("Attempt finished", "test", script.TestID, "attempt", n, "status", a.Status, "duration", a.Duration)
	return a
}

func singleAttemptResult(script types.ScriptFile, a *types.Attempt) *types.ExecutionResult {
	return &types.ExecutionResult{
		TestFile: script.Path,
		TestID:   script.TestID,
		Status:   a.Status,
		Duration: a.Duration,
		ExitCode: a.ExitCode,
		Stdout:   a.Stdout,
		Stderr:   a.Stderr,
		Attempts: 1,
	}
}

// flakyResult reports the passing retry and keeps the first failure visible
func flakyResult(script types.ScriptFile, first, second *types.Attempt) *types.ExecutionResult {
	firstCopy := *first
	return &types.ExecutionResult{
		TestFile:     script.Path,
		TestID:       script.TestID,
		Status:       types.TestStatusPassed,
		Flaky:        true,
		Duration:     first.Duration + second.Duration,
		ExitCode:     second.ExitCode,
		Stdout:       second.Stdout,
		Stderr:       second.Stderr + fmt.Sprintf(FlakyNoteFormat, exitCodeString(first.ExitCode)) + first.Stderr,
		Attempts:     2,
		FirstAttempt: &firstCopy,
	}
}

// failedTwiceResult keeps the first attempt's stdout and exit code and both stderr streams
func failedTwiceResult(script types.ScriptFile, first, second *types.Attempt) *types.ExecutionResult {
	return &types.ExecutionResult{
		TestFile: script.Path,
		TestID:   script.TestID,
		Status:   types.TestStatusFailed,
		Duration: first.Duration + second.Duration,
		ExitCode: first.ExitCode,
		Stdout:   first.Stdout,
		Stderr:   first.Stderr + RetryFailedNote + second.Stderr,
		Attempts: 2,
	}
}

func exitCodeString(code *int) string {
	if code == nil {
		return "none"
	}
	return strconv.Itoa(*code)
}
