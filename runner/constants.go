package runner

import "time"

// Script execution constants
const (
	// DefaultTimeout is the wall-clock budget of a single attempt
	DefaultTimeout = 120 * time.Second

	// DefaultInterpreter runs generated scripts
	DefaultInterpreter = "python3"

	// Environment variables carrying credentials into every script
	UsernameEnvVar = "TEST_USERNAME"
	PasswordEnvVar = "TEST_PASSWORD"

	// Diagnostics appended to stderr
	TimeoutNoteFormat   = "\n[ERROR] Test timed out after %s."
	RetryFailedNote     = "\n\n[RETRY ALSO FAILED]\n"
	FlakyNoteFormat     = "\n\n[FLAKY: FIRST ATTEMPT FAILED (exit code %s)]\n"
	LaunchFailureFormat = "\n[ERROR] Failed to start test process: %v"
	CancelledFormat     = "\n[ERROR] Test run cancelled: %v"
	SignalFormat        = "\n[ERROR] Test process terminated abnormally: %v"
	FaultFormat         = "\n[ERROR] Supervisor fault while running test: %v"

	// waitDelay bounds how long Wait blocks on output pipes held open by
	// leftover children once the script has exited or been killed
	waitDelay = 5 * time.Second

	// MaxReasonableConcurrency is the pool size above which a warning is logged
	MaxReasonableConcurrency = 32
)
