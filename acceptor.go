// Package acceptor runs generated browser acceptance test scripts, classifies
// their outcomes with a single retry and reports on them.
package acceptor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/qa-agent/qa-acceptor/types"
)

// Acceptor implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = (*Acceptor)(nil)

// Acceptor runs the orchestrator once or on an interval
type Acceptor struct {
	config       *Config
	version      string
	orchestrator *Orchestrator

	mu      sync.Mutex
	summary *types.RunSummary

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error)
}

// New creates the service. shutdownCallback is invoked once a run-once run completes.
func New(config *Config, version string, shutdownCallback func(error), opts ...Option) (*Acceptor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	orchestrator, err := NewOrchestrator(config, opts...)
	if err != nil {
		return nil, err
	}

	config.Log.Debug("Creating qa-acceptor with config",
		"testDir", config.TestDir,
		"scriptExt", config.ScriptExt,
		"interpreter", config.Interpreter,
		"timeout", config.Timeout,
		"concurrency", config.Concurrency,
		"report", config.ReportPath,
		"credentialsFile", config.CredentialsFile,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	return &Acceptor{
		config:           config,
		version:          version,
		orchestrator:     orchestrator,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs immediately, then either requests shutdown (run-once mode) or
// keeps running on the configured interval.
// Start implements the cliapp.Lifecycle interface.
func (a *Acceptor) Start(ctx context.Context) error {
	a.done = make(chan struct{})
	a.running.Store(true)

	if a.config.RunOnce {
		a.config.Log.Info("Starting qa-acceptor in run-once mode", "version", a.version)
	} else {
		a.config.Log.Info("Starting qa-acceptor in continuous mode", "version", a.version, "interval", a.config.RunInterval)
	}

	summary, err := a.runOnce(ctx)
	if err != nil {
		a.running.Store(false)
		return err
	}

	if a.config.RunOnce {
		a.running.Store(false)
		if a.config.FailOnTestFailure && summary.HasFailures() {
			a.config.Log.Warn("Run completed with failures, returning exit code 1")
			return NewTestFailureError(summary)
		}
		a.config.Log.Info("Run completed, exiting (run-once mode)")
		go a.shutdownCallback(nil)
		return nil
	}

	a.wg.Add(1)
	go a.loop(ctx)
	return nil
}

func (a *Acceptor) loop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.running.Load() {
				return
			}
			a.config.Log.Info("Running periodic run")
			if _, err := a.runOnce(ctx); err != nil {
				a.config.Log.Error("Error in periodic run", "error", err)
			}
		case <-a.done:
			a.config.Log.Debug("Done signal received, stopping periodic runs")
			return
		case <-ctx.Done():
			a.config.Log.Debug("Context canceled, stopping periodic runs")
			a.running.Store(false)
			return
		}
	}
}

func (a *Acceptor) runOnce(ctx context.Context) (*types.RunSummary, error) {
	summary, err := a.orchestrator.Run(ctx)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.summary = summary
	a.mu.Unlock()
	return summary, nil
}

// LastSummary returns the summary of the most recent completed run
func (a *Acceptor) LastSummary() *types.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary
}

// Stop stops periodic runs and waits for the current one to finish.
// Stop implements the cliapp.Lifecycle interface.
func (a *Acceptor) Stop(ctx context.Context) error {
	a.config.Log.Info("Stopping qa-acceptor")

	if !a.running.Swap(false) {
		a.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	close(a.done)

	waitCh := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	a.config.Log.Info("qa-acceptor stopped successfully")
	return nil
}

// Stopped returns true if the service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (a *Acceptor) Stopped() bool {
	return !a.running.Load()
}
