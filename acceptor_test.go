package acceptor

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-agent/qa-acceptor/credentials"
	"github.com/qa-agent/qa-acceptor/types"
)

func newTestAcceptor(t *testing.T, cfg *Config, exec *countingRunner, shutdown func(error)) *Acceptor {
	t.Helper()
	a, err := New(cfg, "test", shutdown,
		WithTaskRunner(exec),
		WithCredentialProvider(credentials.Static(testCreds)),
		WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	return a
}

func TestAcceptorRunOnce(t *testing.T) {
	dir := t.TempDir()
	writeScripts(t, dir, "test_a.py")
	shutdown := make(chan error, 1)

	a := newTestAcceptor(t, testConfig(t, dir), &countingRunner{}, func(err error) { shutdown <- err })
	require.NoError(t, a.Start(context.Background()))

	select {
	case err := <-shutdown:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}
	assert.True(t, a.Stopped())
	require.NotNil(t, a.LastSummary())
	assert.Equal(t, 1, a.LastSummary().Passed)
	require.NoError(t, a.Stop(context.Background()))
}

func TestAcceptorRunOnceFailuresExitZeroByDefault(t *testing.T) {
	dir := t.TempDir()
	writeScripts(t, dir, "test_a.py")
	exec := &countingRunner{attempts: map[string][]types.Attempt{
		"test_a": {{Status: types.TestStatusError}},
	}}

	a := newTestAcceptor(t, testConfig(t, dir), exec, nil)
	assert.NoError(t, a.Start(context.Background()))
}

func TestAcceptorFailOnTestFailure(t *testing.T) {
	dir := t.TempDir()
	writeScripts(t, dir, "test_a.py")
	exec := &countingRunner{attempts: map[string][]types.Attempt{
		"test_a": {{Status: types.TestStatusFailed, ExitCode: types.IntPtr(1)}, {Status: types.TestStatusFailed, ExitCode: types.IntPtr(1)}},
	}}
	cfg := testConfig(t, dir)
	cfg.FailOnTestFailure = true

	err := newTestAcceptor(t, cfg, exec, nil).Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.Contains(t, err.Error(), "Failed: 1")
}

func TestAcceptorRuntimeError(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))

	a := newTestAcceptor(t, cfg, &countingRunner{}, nil)
	err := a.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.True(t, a.Stopped())
}

func TestAcceptorContinuousMode(t *testing.T) {
	dir := t.TempDir()
	writeScripts(t, dir, "test_a.py")
	exec := &countingRunner{}
	cfg := testConfig(t, dir)
	cfg.RunOnce = false
	cfg.RunInterval = 20 * time.Millisecond

	a := newTestAcceptor(t, cfg, exec, nil)
	require.NoError(t, a.Start(context.Background()))
	assert.False(t, a.Stopped())

	require.Eventually(t, func() bool { return exec.Calls() >= 3 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Stop(context.Background()))
	assert.True(t, a.Stopped())

	calls := exec.Calls()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, exec.Calls())
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, "test", nil)
	assert.Error(t, err)
}
