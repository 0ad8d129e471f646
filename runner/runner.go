package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/qa-agent/qa-acceptor/logging"
	"github.com/qa-agent/qa-acceptor/metrics"
	"github.com/qa-agent/qa-acceptor/types"
)

// Config holds configuration for creating a new ScriptRunner
type Config struct {
	Executor    TaskRunner
	Timeout     time.Duration
	Concurrency int // <= 1 runs scripts sequentially
	Log         log.Logger
	Progress    ProgressIndicator   // optional
	FileLogger  *logging.FileLogger // optional, receives each result as it completes
}

// ScriptRunner classifies every discovered script of a run
type ScriptRunner struct {
	classifier  *RetryClassifier
	concurrency int
	log         log.Logger
	progress    ProgressIndicator
	fileLogger  *logging.FileLogger
	tracer      trace.Tracer
}

// NewScriptRunner creates a new script runner
func NewScriptRunner(cfg Config) (*ScriptRunner, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}
	if cfg.Concurrency > MaxReasonableConcurrency {
		cfg.Log.Warn("Very high concurrency requested", "concurrency", cfg.Concurrency,
			"recommendation", "each script may start its own browser")
	}

	cfg.Log.Debug("NewScriptRunner()", "timeout", cfg.Timeout, "concurrency", cfg.Concurrency)

	return &ScriptRunner{
		classifier:  NewRetryClassifier(cfg.Executor, cfg.Timeout, cfg.Log),
		concurrency: max(cfg.Concurrency, 1),
		log:         cfg.Log,
		progress:    cfg.Progress,
		fileLogger:  cfg.FileLogger,
		tracer:      otel.Tracer("script runner"),
	}, nil
}

// RunAll classifies every script and returns one result per script in the
// order given. A failing script never aborts the run.
func (r *ScriptRunner) RunAll(ctx context.Context, scripts []types.ScriptFile, creds types.Credentials) []types.ExecutionResult {
	ctx, span := r.tracer.Start(ctx, "run scripts",
		trace.WithAttributes(attribute.Int("scripts", len(scripts)), attribute.Int("concurrency", r.concurrency)))
	defer span.End()

	r.progress.StartRun(len(scripts))
	defer r.progress.CompleteRun()

	r.log.Info("Running scripts", "count", len(scripts), "concurrency", r.concurrency)
	if r.concurrency <= 1 {
		results := make([]types.ExecutionResult, len(scripts))
		for i, script := range scripts {
			results[i] = *r.runScript(ctx, script, creds)
		}
		return results
	}
	return r.runParallel(ctx, scripts, creds)
}

// runScript classifies one script and publishes the result to the log sinks and metrics
func (r *ScriptRunner) runScript(ctx context.Context, script types.ScriptFile, creds types.Credentials) (result *types.ExecutionResult) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("script %s", script.TestID))
	defer span.End()

	r.progress.StartScript(script.TestID)
	r.log.Info("Running script", "test", script.TestID)

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Recovered from panic while classifying script", "test", script.TestID, "panic", p)
			result = &types.ExecutionResult{
				TestFile: script.Path,
				TestID:   script.TestID,
				Status:   types.TestStatusError,
				Stderr:   fmt.Sprintf(FaultFormat, p),
				Attempts: 1,
			}
		}

		span.SetAttributes(attribute.String("status", string(result.Status)), attribute.Bool("flaky", result.Flaky))
		r.progress.CompleteScript(script.TestID, result.Status, result.Flaky)
		metrics.RecordScript(result)
		if r.fileLogger != nil {
			if err := r.fileLogger.LogResult(result); err != nil {
				r.log.Error("Error logging script result", "test", script.TestID, "error", err)
				metrics.RecordErrorDetails("file_logger", err)
			}
		}
		r.log.Info("Script finished", "test", script.TestID, "status", result.Status,
			"flaky", result.Flaky, "attempts", result.Attempts, "duration", result.Duration)
	}()

	return r.classifier.Classify(ctx, script, creds)
}
