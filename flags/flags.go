package flags

import (
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "QA_ACCEPTOR"

var (
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   "generated_tests",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TESTDIR"),
		Usage:   "Directory from which to discover generated test scripts",
	}
	ScriptExt = &cli.StringFlag{
		Name:    "script-ext",
		Value:   ".py",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SCRIPT_EXT"),
		Usage:   "File extension of test scripts",
	}
	Interpreter = &cli.StringFlag{
		Name:    "interpreter",
		Value:   "python3",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INTERPRETER"),
		Usage:   "Command used to run each script (e.g. 'python3 -u'). Empty executes scripts directly.",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   2 * time.Minute,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT"),
		Usage:   "Wall-clock budget of a single script attempt",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   1,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONCURRENCY"),
		Usage:   "Number of scripts run at the same time. 1 runs scripts sequentially.",
	}
	Report = &cli.StringFlag{
		Name:    "report",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT"),
		Usage:   "Path of the HTML report. Defaults to test_report.html inside the test directory.",
	}
	CredentialsFile = &cli.StringFlag{
		Name:    "credentials-file",
		Value:   "qa_agent_user_creds.json",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CREDENTIALS_FILE"),
		Usage:   "JSON file holding the username and password injected into scripts",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Optional YAML file with run defaults. Explicit flags take precedence.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to store per-script logs",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	FailOnTestFailure = &cli.BoolFlag{
		Name:    "fail-on-test-failure",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ON_TEST_FAILURE"),
		Usage:   "Exit with code 1 when a run-once run has failed or errored scripts",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_PROGRESS"),
		Usage:   "Log periodic progress updates while scripts run",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when --show-progress is set",
	}
	MaxOutputBytes = &cli.IntFlag{
		Name:    "max-output-bytes",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MAX_OUTPUT_BYTES"),
		Usage:   "Keep only the last N bytes of each output stream per attempt. 0 keeps everything.",
	}
	PrintTable = &cli.BoolFlag{
		Name:    "print-table",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PRINT_TABLE"),
		Usage:   "Print a results table to stdout after each run",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   "0.0.0.0:8080",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Listen address of the /healthz endpoint. Empty disables it.",
	}
)

var optionalFlags = []cli.Flag{
	TestDir,
	ScriptExt,
	Interpreter,
	Timeout,
	Concurrency,
	Report,
	CredentialsFile,
	ConfigFile,
	LogDir,
	RunInterval,
	FailOnTestFailure,
	ShowProgress,
	ProgressInterval,
	MaxOutputBytes,
	PrintTable,
	HealthzAddr,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(Flags, optionalFlags...)
}
