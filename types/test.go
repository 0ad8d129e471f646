package types

import (
	"path/filepath"
	"strings"
	"time"
)

// TestStatus represents the possible states of a script execution
type TestStatus string

const (
	TestStatusPassed TestStatus = "passed"
	TestStatusFailed TestStatus = "failed"
	TestStatusError  TestStatus = "error"
)

// IsValid reports whether the status is one of the known outcomes
func (s TestStatus) IsValid() bool {
	switch s {
	case TestStatusPassed, TestStatusFailed, TestStatusError:
		return true
	default:
		return false
	}
}

// ScriptFile is a discovered test script. Identity is the absolute path;
// TestID is the file name without its extension and is what reports show.
type ScriptFile struct {
	Path   string
	TestID string
}

// NewScriptFile builds a ScriptFile from a path, deriving the test ID
func NewScriptFile(path string) ScriptFile {
	base := filepath.Base(path)
	return ScriptFile{
		Path:   path,
		TestID: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// Attempt captures the outcome of a single process invocation of a script.
// ExitCode is nil when the process timed out or could not be started and
// the negated signal number when a signal killed it.
type Attempt struct {
	Status   TestStatus    `json:"status"`
	ExitCode *int          `json:"exit_code"`
	Duration time.Duration `json:"-"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

// ExecutionResult is the reported outcome for one script, built from at most
// two attempts.
type ExecutionResult struct {
	TestFile string        `json:"test_file"`
	TestID   string        `json:"test_id"`
	Status   TestStatus    `json:"status"`
	Flaky    bool          `json:"flaky"`
	Duration time.Duration `json:"-"`
	ExitCode *int          `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Attempts int           `json:"attempts"`

	// FirstAttempt keeps the failing first attempt of a retried script
	FirstAttempt *Attempt `json:"first_attempt,omitempty"`
}

// DurationSeconds returns the duration in seconds rounded to two decimals
func (r ExecutionResult) DurationSeconds() float64 {
	return RoundSeconds(r.Duration)
}

// RoundSeconds converts a duration to seconds rounded to two decimals
func RoundSeconds(d time.Duration) float64 {
	return float64(d.Round(10*time.Millisecond).Milliseconds()) / 1000
}

// IntPtr returns a pointer to the given exit code
func IntPtr(v int) *int {
	return &v
}
