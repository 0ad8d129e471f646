package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	acceptor "github.com/qa-agent/qa-acceptor"
	"github.com/qa-agent/qa-acceptor/credentials"
	"github.com/qa-agent/qa-acceptor/exitcodes"
	"github.com/qa-agent/qa-acceptor/flags"
	"github.com/qa-agent/qa-acceptor/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "qa-acceptor"
	app.Usage = "Browser acceptance test runner"
	app.Description = "qa-acceptor runs generated test scripts, retries failures once and reports on them"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.Commands = []*cli.Command{
		{
			Name:   "credentials",
			Usage:  "Interactively store the username and password injected into test scripts",
			Flags:  cliapp.ProtectFlags([]cli.Flag{flags.CredentialsFile}),
			Action: setupCredentials,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// exitCode maps typed errors to process exit codes
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case acceptor.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case acceptor.IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		// Unspecified errors happen before a run completes
		return exitcodes.RuntimeErr
	}
}

func setupLogger(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()
	return logger
}

func setupCredentials(ctx *cli.Context) error {
	logger := setupLogger(ctx)
	store := credentials.NewFileStore(ctx.String(flags.CredentialsFile.Name))
	if err := credentials.Setup(store, os.Stdin, ctx.App.Writer, logger); err != nil {
		if errors.Is(err, credentials.ErrNotConfirmed) {
			return nil
		}
		return acceptor.NewRuntimeError(err)
	}
	return nil
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logger := setupLogger(ctx)

	cfg, err := acceptor.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, acceptor.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	svc, err := acceptor.New(cfg, Version, closeApp)
	if err != nil {
		return nil, acceptor.NewRuntimeError(fmt.Errorf("failed to create qa-acceptor: %w", err))
	}

	return &withServers{
		Acceptor: svc,
		servers:  service.New(cfg.Service, logger),
	}, nil
}

// withServers runs the healthz and metrics servers alongside the acceptor
type withServers struct {
	*acceptor.Acceptor
	servers *service.Service
}

func (w *withServers) Start(ctx context.Context) error {
	w.servers.Start()
	if err := w.Acceptor.Start(ctx); err != nil {
		w.servers.Shutdown()
		return err
	}
	return nil
}

func (w *withServers) Stop(ctx context.Context) error {
	defer w.servers.Shutdown()
	return w.Acceptor.Stop(ctx)
}
