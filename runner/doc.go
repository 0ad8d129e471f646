// Package runner executes generated test scripts and turns their process
// outcomes into classified results.
//
// The main components are:
//   - ProcessRunner: runs one script as an isolated child process with a hard timeout
//   - RetryClassifier: applies the one-retry policy and flags flaky scripts
//   - ScriptRunner: drives the classifier over every discovered script, sequentially or on a bounded pool
//   - Aggregate: folds classified results into a RunSummary
//
// Only ProcessRunner touches os/exec; everything above it talks to the
// TaskRunner interface so the retry state machine can be tested with fakes.
package runner
