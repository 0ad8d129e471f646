package acceptor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"

	"github.com/qa-agent/qa-acceptor/flags"
	"github.com/qa-agent/qa-acceptor/reporting"
	"github.com/qa-agent/qa-acceptor/service"
)

// Config holds the application configuration
type Config struct {
	TestDir           string        // Directory holding the generated scripts
	ScriptExt         string        // Extension of scripts to discover
	Interpreter       string        // Command prefixed to every script, empty to execute directly
	Timeout           time.Duration // Budget of a single attempt
	Concurrency       int           // Scripts run at the same time, 1 is sequential
	ReportPath        string        // HTML report path, the JSON summary is written next to it
	CredentialsFile   string        // JSON credential store
	LogDir            string        // Directory for per-script logs, empty disables them
	RunInterval       time.Duration // Interval between runs
	RunOnce           bool          // Exit after one run
	FailOnTestFailure bool          // Exit 1 when a run-once run has failed or errored scripts
	ShowProgress      bool          // Log periodic progress updates
	ProgressInterval  time.Duration // Interval between progress updates
	MaxOutputBytes    int           // Per-stream capture cap, 0 keeps everything
	PrintTable        bool          // Print the results table after each run
	Service           service.Config
	Log               log.Logger
}

// FileConfig is the optional YAML configuration file. Zero values leave the
// flag defaults in place.
type FileConfig struct {
	TestDir         string        `yaml:"testdir"`
	ScriptExt       string        `yaml:"script_ext"`
	Interpreter     *string       `yaml:"interpreter"`
	Timeout         time.Duration `yaml:"timeout"`
	Concurrency     int           `yaml:"concurrency"`
	Report          string        `yaml:"report"`
	CredentialsFile string        `yaml:"credentials_file"`
	LogDir          string        `yaml:"logdir"`
	MaxOutputBytes  int           `yaml:"max_output_bytes"`
}

// LoadFileConfig reads a YAML config file, rejecting unknown keys
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// NewConfig creates a new Config from cli context. Values from the --config
// file apply unless the matching flag was set explicitly.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	fileCfg := &FileConfig{}
	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		var err error
		fileCfg, err = LoadFileConfig(path)
		if err != nil {
			return nil, err
		}
	}

	pick := func(flag string, fileVal string) string {
		if ctx.IsSet(flag) || fileVal == "" {
			return ctx.String(flag)
		}
		return fileVal
	}

	interpreter := ctx.String(flags.Interpreter.Name)
	if !ctx.IsSet(flags.Interpreter.Name) && fileCfg.Interpreter != nil {
		interpreter = *fileCfg.Interpreter
	}
	timeout := ctx.Duration(flags.Timeout.Name)
	if !ctx.IsSet(flags.Timeout.Name) && fileCfg.Timeout != 0 {
		timeout = fileCfg.Timeout
	}
	concurrency := ctx.Int(flags.Concurrency.Name)
	if !ctx.IsSet(flags.Concurrency.Name) && fileCfg.Concurrency != 0 {
		concurrency = fileCfg.Concurrency
	}
	maxOutputBytes := ctx.Int(flags.MaxOutputBytes.Name)
	if !ctx.IsSet(flags.MaxOutputBytes.Name) && fileCfg.MaxOutputBytes != 0 {
		maxOutputBytes = fileCfg.MaxOutputBytes
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	runInterval := ctx.Duration(flags.RunInterval.Name)

	cfg := &Config{
		TestDir:           pick(flags.TestDir.Name, fileCfg.TestDir),
		ScriptExt:         pick(flags.ScriptExt.Name, fileCfg.ScriptExt),
		Interpreter:       interpreter,
		Timeout:           timeout,
		Concurrency:       concurrency,
		ReportPath:        pick(flags.Report.Name, fileCfg.Report),
		CredentialsFile:   pick(flags.CredentialsFile.Name, fileCfg.CredentialsFile),
		LogDir:            pick(flags.LogDir.Name, fileCfg.LogDir),
		RunInterval:       runInterval,
		RunOnce:           runInterval == 0,
		FailOnTestFailure: ctx.Bool(flags.FailOnTestFailure.Name),
		ShowProgress:      ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval:  ctx.Duration(flags.ProgressInterval.Name),
		MaxOutputBytes:    maxOutputBytes,
		PrintTable:        ctx.Bool(flags.PrintTable.Name),
		Service: service.Config{
			HealthzAddr:    ctx.String(flags.HealthzAddr.Name),
			MetricsEnabled: metricsCfg.Enabled,
			MetricsHost:    metricsCfg.ListenAddr,
			MetricsPort:    metricsCfg.ListenPort,
		},
		Log: log,
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize validates the configuration, fills defaults and resolves
// absolute paths
func (c *Config) Normalize() error {
	if c.TestDir == "" {
		return errors.New("test directory is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxOutputBytes < 0 {
		return fmt.Errorf("max output bytes cannot be negative, got %d", c.MaxOutputBytes)
	}
	if c.RunInterval < 0 {
		return fmt.Errorf("run interval cannot be negative, got %s", c.RunInterval)
	}
	if c.Service.HealthzAddr != "" {
		if _, _, err := net.SplitHostPort(c.Service.HealthzAddr); err != nil {
			return fmt.Errorf("invalid healthz address %q: %w", c.Service.HealthzAddr, err)
		}
	}
	if c.Log == nil {
		c.Log = log.Root()
	}

	var err error
	if c.TestDir, err = filepath.Abs(c.TestDir); err != nil {
		return fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", c.TestDir, err)
	}
	if c.ReportPath == "" {
		c.ReportPath = filepath.Join(c.TestDir, reporting.DefaultReportName)
	}
	if c.ReportPath, err = filepath.Abs(c.ReportPath); err != nil {
		return fmt.Errorf("failed to resolve absolute path for report '%s': %w", c.ReportPath, err)
	}
	if c.CredentialsFile != "" {
		if c.CredentialsFile, err = filepath.Abs(c.CredentialsFile); err != nil {
			return fmt.Errorf("failed to resolve absolute path for credentials file '%s': %w", c.CredentialsFile, err)
		}
	}
	if c.LogDir != "" {
		if c.LogDir, err = filepath.Abs(c.LogDir); err != nil {
			return fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", c.LogDir, err)
		}
	}
	return nil
}
