// Package exitcodes defines the exit codes used by qa-acceptor.
package exitcodes

// Exit code constants
//
// * Success (0): the run completed, whatever the script outcomes
// * TestFailure (1): the run completed with failed or errored scripts and --fail-on-test-failure is set
// * RuntimeErr (2): the run could not complete, e.g. missing test folder, credentials or unwritable report
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
