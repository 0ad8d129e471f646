//go:build !windows

package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-agent/qa-acceptor/types"
)

// processGone reports whether pid has exited. Zombies count as gone since
// nothing may reap a reparented child inside a container.
func processGone(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return true
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	return strings.Contains(string(stat), ") Z")
}

func TestProcessRunnerLeftoverChildDoesNotFailPass(t *testing.T) {
	dir := t.TempDir()
	s := writeScript(t, dir, "test_browser.sh", "sleep 20 &\necho $! > child.pid\necho PASSED\nexit 0\n")

	a := newShellRunner().Run(context.Background(), s, types.Credentials{}, time.Minute)

	assert.Equal(t, types.TestStatusPassed, a.Status, "stderr: %q", a.Stderr)
	require.NotNil(t, a.ExitCode)
	assert.Equal(t, 0, *a.ExitCode)
	assert.Equal(t, "PASSED\n", a.Stdout)
	assert.NotContains(t, a.Stderr, "Failed to start")
	assert.False(t, a.TimedOut)
	assert.Less(t, a.Duration, 15*time.Second)

	data, err := os.ReadFile(filepath.Join(dir, "child.pid"))
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 50*time.Millisecond,
		"leftover child %d should be killed with the attempt", pid)
}

func TestProcessRunnerLeftoverChildKeepsExitCode(t *testing.T) {
	s := writeScript(t, t.TempDir(), "test_browser_fail.sh", "sleep 20 &\necho 'AssertionError' >&2\nexit 4\n")

	a := newShellRunner().Run(context.Background(), s, types.Credentials{}, time.Minute)

	assert.Equal(t, types.TestStatusFailed, a.Status)
	require.NotNil(t, a.ExitCode)
	assert.Equal(t, 4, *a.ExitCode)
	assert.Equal(t, "AssertionError\n", a.Stderr)
}

func TestProcessRunnerSignalIsFailure(t *testing.T) {
	s := writeScript(t, t.TempDir(), "test_crash.sh", "echo boom >&2\nkill -SEGV $$\n")

	a := newShellRunner().Run(context.Background(), s, types.Credentials{}, 10*time.Second)

	assert.Equal(t, types.TestStatusFailed, a.Status)
	require.NotNil(t, a.ExitCode)
	assert.Equal(t, -int(syscall.SIGSEGV), *a.ExitCode)
	assert.True(t, strings.HasPrefix(a.Stderr, "boom\n"))
	assert.Contains(t, a.Stderr, "[ERROR] Test process terminated abnormally: signal: segmentation fault")
	assert.False(t, a.TimedOut)
}

func TestClassifyRetriesCrashedProcess(t *testing.T) {
	dir := t.TempDir()
	s := writeScript(t, dir, "test_crash.sh", "echo x >> attempts.log\necho boom >&2\nkill -SEGV $$\n")
	c := NewRetryClassifier(newShellRunner(), 10*time.Second, testLogger())

	result := c.Classify(context.Background(), s, types.Credentials{})

	assert.Equal(t, types.TestStatusFailed, result.Status)
	assert.False(t, result.Flaky)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, -int(syscall.SIGSEGV), *result.ExitCode)
	assert.Contains(t, result.Stderr, RetryFailedNote)

	data, err := os.ReadFile(filepath.Join(dir, "attempts.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "x"))
}
