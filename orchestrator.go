package acceptor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/qa-agent/qa-acceptor/credentials"
	"github.com/qa-agent/qa-acceptor/discovery"
	"github.com/qa-agent/qa-acceptor/logging"
	"github.com/qa-agent/qa-acceptor/metrics"
	"github.com/qa-agent/qa-acceptor/reporting"
	"github.com/qa-agent/qa-acceptor/runner"
	"github.com/qa-agent/qa-acceptor/types"
)

// Orchestrator performs one complete run: discovery, credentials, classified
// execution of every script, aggregation and reporting
type Orchestrator struct {
	config      *Config
	credentials credentials.Provider
	executor    runner.TaskRunner
	renderer    *reporting.Renderer
	table       *reporting.TableFormatter
	out         io.Writer
	log         log.Logger
	tracer      trace.Tracer
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithTaskRunner replaces the process runner
func WithTaskRunner(r runner.TaskRunner) Option {
	return func(o *Orchestrator) { o.executor = r }
}

// WithCredentialProvider replaces the file-backed credential store
func WithCredentialProvider(p credentials.Provider) Option {
	return func(o *Orchestrator) { o.credentials = p }
}

// WithOutput sets where the results table is printed
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// NewOrchestrator creates an orchestrator for cfg
func NewOrchestrator(cfg *Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}

	renderer, err := reporting.NewRenderer(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create report renderer: %w", err)
	}

	o := &Orchestrator{
		config:   cfg,
		renderer: renderer,
		table:    reporting.NewTableFormatter("QA Agent Test Results"),
		out:      os.Stdout,
		log:      cfg.Log,
		tracer:   otel.Tracer("qa-acceptor"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.credentials == nil {
		o.credentials = credentials.NewFileStore(cfg.CredentialsFile)
	}
	if o.executor == nil {
		o.executor = runner.NewProcessRunner(runner.ProcessRunnerConfig{
			Interpreter:    cfg.Interpreter,
			MaxOutputBytes: cfg.MaxOutputBytes,
			Log:            cfg.Log,
		})
	}
	return o, nil
}

// Run executes every discovered script and writes the report. Script
// failures are data in the summary; only unmet preconditions and report
// I/O failures are returned, as a *RuntimeError.
func (o *Orchestrator) Run(ctx context.Context) (*types.RunSummary, error) {
	start := time.Now()
	runID := uuid.New().String()

	ctx, span := o.tracer.Start(ctx, "run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	o.log.Info("Starting run", "runID", runID, "testDir", o.config.TestDir)

	scripts, err := discovery.Discover(o.config.TestDir, o.config.ScriptExt)
	if err != nil {
		return nil, o.fail(fmt.Errorf("failed to discover scripts: %w", err))
	}
	o.log.Info("Discovered scripts", "count", len(scripts))

	creds, err := o.credentials.Credentials(ctx)
	if err != nil {
		return nil, o.fail(fmt.Errorf("failed to load credentials: %w", err))
	}

	if err := checkReportDir(o.config.ReportPath); err != nil {
		return nil, o.fail(err)
	}

	fileLogger := o.newFileLogger(runID)
	if fileLogger != nil {
		defer func() {
			if err := fileLogger.Complete(); err != nil {
				o.log.Error("Failed to finalize script logs", "error", err)
			}
		}()
	}

	progress := runner.NewNoOpProgressIndicator()
	if o.config.ShowProgress {
		progress = runner.NewConsoleProgressIndicator(o.log, o.config.ProgressInterval)
	}

	scriptRunner, err := runner.NewScriptRunner(runner.Config{
		Executor:    o.executor,
		Timeout:     o.config.Timeout,
		Concurrency: o.config.Concurrency,
		Log:         o.log,
		Progress:    progress,
		FileLogger:  fileLogger,
	})
	if err != nil {
		return nil, o.fail(fmt.Errorf("failed to create script runner: %w", err))
	}

	results := scriptRunner.RunAll(ctx, scripts, creds)

	summary := runner.Aggregate(o.config.TestDir, results)
	summary.RunID = runID
	if err := summary.Validate(); err != nil {
		return nil, o.fail(fmt.Errorf("inconsistent run summary: %w", err))
	}

	if err := o.renderer.Render(summary, o.config.ReportPath); err != nil {
		return nil, o.fail(fmt.Errorf("failed to write report: %w", err))
	}

	duration := time.Since(start)
	table := o.table.Format(summary, duration)
	if o.config.PrintTable {
		fmt.Fprint(o.out, table)
	}
	if fileLogger != nil {
		if err := fileLogger.LogSummary(summary.String() + "\n\n" + table); err != nil {
			o.log.Error("Failed to write summary log", "error", err)
		}
	}

	metrics.RecordRun(summary, duration)
	span.SetAttributes(attribute.Int("total", summary.Total), attribute.Int("passed", summary.Passed),
		attribute.Int("failed", summary.Failed), attribute.Int("errors", summary.Errors), attribute.Int("flaky", summary.Flaky))

	o.log.Info("Run completed", "runID", runID, "summary", summary.String(),
		"report", o.config.ReportPath, "duration", duration)
	return summary, nil
}

// newFileLogger returns nil when per-script logs are disabled or cannot be created
func (o *Orchestrator) newFileLogger(runID string) *logging.FileLogger {
	if o.config.LogDir == "" {
		return nil
	}
	fileLogger, err := logging.NewFileLogger(o.config.LogDir, runID)
	if err != nil {
		o.log.Warn("Per-script logs disabled", "error", err)
		metrics.RecordErrorDetails("file_logger", err)
		return nil
	}
	o.log.Info("Writing per-script logs", "dir", fileLogger.GetLogDir())
	return fileLogger
}

func (o *Orchestrator) fail(err error) error {
	o.log.Error("Run aborted", "error", err)
	metrics.RecordRunFailure(err)
	return NewRuntimeError(err)
}

// checkReportDir fails before any script runs when the report cannot be written
func checkReportDir(reportPath string) error {
	dir := filepath.Dir(reportPath)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("report directory %s is not usable: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("report directory %s is not a directory", dir)
	}
	return nil
}
