package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/qa-agent/qa-acceptor/types"
)

var _ TaskRunner = (*ProcessRunner)(nil)

// TaskRunner runs a single attempt of a script. Implementations never return
// a nil attempt: launch failures, timeouts and internal faults are reported
// as an attempt with status error.
type TaskRunner interface {
	Run(ctx context.Context, script types.ScriptFile, creds types.Credentials, timeout time.Duration) *types.Attempt
}

// TaskRunnerFunc adapts a function to the TaskRunner interface
type TaskRunnerFunc func(ctx context.Context, script types.ScriptFile, creds types.Credentials, timeout time.Duration) *types.Attempt

func (f TaskRunnerFunc) Run(ctx context.Context, script types.ScriptFile, creds types.Credentials, timeout time.Duration) *types.Attempt {
	return f(ctx, script, creds, timeout)
}

// ProcessRunnerConfig holds configuration for creating a ProcessRunner
type ProcessRunnerConfig struct {
	// Interpreter is split on whitespace and prefixed to the script path.
	// Empty executes the script directly.
	Interpreter string
	// MaxOutputBytes caps each captured stream to its last N bytes, 0 keeps all
	MaxOutputBytes int
	// Environ returns the base environment, os.Environ when nil
	Environ func() []string
	Log     log.Logger
}

// ProcessRunner executes a script as a child process in its own process group
type ProcessRunner struct {
	interpreter    []string
	maxOutputBytes int
	environ        func() []string
	log            log.Logger
	tracer         trace.Tracer
}

// NewProcessRunner creates a new process runner
func NewProcessRunner(cfg ProcessRunnerConfig) *ProcessRunner {
	if cfg.Environ == nil {
		cfg.Environ = os.Environ
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &ProcessRunner{
		interpreter:    strings.Fields(cfg.Interpreter),
		maxOutputBytes: cfg.MaxOutputBytes,
		environ:        cfg.Environ,
		log:            cfg.Log.New("component", "process-runner"),
		tracer:         otel.Tracer("script runner"),
	}
}

// Run executes one attempt of script with creds injected into its environment.
// A non-positive timeout disables the time budget.
func (p *ProcessRunner) Run(ctx context.Context, script types.ScriptFile, creds types.Credentials, timeout time.Duration) (attempt *types.Attempt) {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("attempt %s", script.TestID),
		trace.WithAttributes(attribute.String("script.path", script.Path)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Recovered from panic while running script", "test", script.TestID, "panic", r)
			attempt = &types.Attempt{
				Status:   types.TestStatusError,
				Duration: time.Since(start),
				Stderr:   fmt.Sprintf(FaultFormat, r),
			}
		}
		span.SetAttributes(attribute.String("status", string(attempt.Status)))
		if attempt.Status != types.TestStatusPassed {
			span.SetStatus(codes.Error, string(attempt.Status))
		}
	}()

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := p.command(runCtx, script, creds)
	stdout := newTailBuffer(p.maxOutputBytes)
	stderr := newTailBuffer(p.maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	p.log.Debug("Starting script", "test", script.TestID, "path", script.Path, "timeout", timeout)
	runErr := cmd.Run()
	// Browsers and drivers left behind by the script must not outlive the attempt
	_ = killProcessTree(cmd)

	attempt = &types.Attempt{
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	// A leftover child holding the output pipes makes Run return ErrWaitDelay
	// even though the script itself exited
	state := cmd.ProcessState
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		state = exitErr.ProcessState
	}

	switch {
	case runErr == nil:
		attempt.Status = types.TestStatusPassed
		attempt.ExitCode = types.IntPtr(0)
	case ctx.Err() != nil:
		attempt.Status = types.TestStatusError
		attempt.Stderr += fmt.Sprintf(CancelledFormat, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		attempt.Status = types.TestStatusError
		attempt.TimedOut = true
		attempt.Stderr += fmt.Sprintf(TimeoutNoteFormat, timeout)
	case state == nil:
		attempt.Status = types.TestStatusError
		attempt.Stderr += fmt.Sprintf(LaunchFailureFormat, runErr)
	case state.Success():
		attempt.Status = types.TestStatusPassed
		attempt.ExitCode = types.IntPtr(0)
	default:
		code := exitStatus(state)
		attempt.Status = types.TestStatusFailed
		attempt.ExitCode = types.IntPtr(code)
		if code < 0 {
			attempt.Stderr += fmt.Sprintf(SignalFormat, state)
		}
	}

	p.log.Debug("Script finished", "test", script.TestID, "status", attempt.Status,
		"duration", attempt.Duration, "timedOut", attempt.TimedOut)
	return attempt
}

func (p *ProcessRunner) command(ctx context.Context, script types.ScriptFile, creds types.Credentials) *exec.Cmd {
	name := script.Path
	var args []string
	if len(p.interpreter) > 0 {
		name = p.interpreter[0]
		args = append(args, p.interpreter[1:]...)
		args = append(args, script.Path)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = filepath.Dir(script.Path)
	isolateProcess(cmd)
	cmd.Cancel = func() error {
		return killProcessTree(cmd)
	}
	cmd.WaitDelay = waitDelay

	// Later entries win for duplicate keys
	env := append(slices.Clip(p.environ()),
		fmt.Sprintf("%s=%s", UsernameEnvVar, creds.Username),
		fmt.Sprintf("%s=%s", PasswordEnvVar, creds.Password),
	)
	cmd.Env = telemetry.InstrumentEnvironment(ctx, env)
	return cmd
}
