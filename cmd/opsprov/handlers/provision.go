// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/imamik/opsprov/internal/config"
	"github.com/imamik/opsprov/internal/fleet"
	"github.com/imamik/opsprov/internal/provider"
	"github.com/imamik/opsprov/internal/provisioning"
	"github.com/imamik/opsprov/internal/state"
	"github.com/imamik/opsprov/internal/ui/tui"
	"github.com/imamik/opsprov/internal/util/prerequisites"
	"github.com/imamik/opsprov/internal/util/redact"
	"github.com/imamik/opsprov/internal/util/retry"
)

// wrapperLogName is the run-level log inside each run directory.
const wrapperLogName = "wrapper_script.log"

// pushTimeout bounds the final upload of the state mirror.
const pushTimeout = 2 * time.Minute

// ErrProvisioningFailed is returned when any instance failed or was invalid.
var ErrProvisioningFailed = errors.New("provisioning failed")

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads an explicitly given config file.
	loadConfigFile = config.LoadFile

	// loadDefaultConfig loads the default config file when present.
	loadDefaultConfig = config.LoadOptional

	// newProvider builds the command transport.
	newProvider = provider.New

	// newRemote builds the remote state mirror.
	newRemote = newS3Remote

	// checkPrereqs runs prerequisite checks.
	checkPrereqs = prerequisites.Check

	// isTerminal reports whether stdout is an interactive terminal.
	isTerminal = func() bool {
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}

	// runTUI shows the live dashboard while a batch runs.
	runTUI = func(title string, total int, cancel func(), fn tui.RunFunc) (*provisioning.Summary, error) {
		return tui.RunProvisionTUI(title, total, cancel, fn)
	}

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	now               = time.Now
)

// Provision installs the agents requested in the input file on every listed
// instance.
//
// The workflow:
//  1. Resolves configuration from defaults, the config file and flags
//  2. Reads and validates the input; invalid rows are recorded, not fatal
//  3. Checks local prerequisites for the local-cli provider
//  4. Creates the run log directory and takes the state file lock
//  5. Runs the batch, with a live dashboard when stdout is a terminal
//  6. Prints the report, writes metrics and pushes the state mirror
//
// Configuration errors abort before any instance is touched. The returned
// error wraps ErrProvisioningFailed when any instance failed.
func Provision(ctx context.Context, configPath string, override func(*config.RunConfig)) error {
	cfg, err := loadConfig(configPath, override)
	if err != nil {
		return err
	}
	if cfg.InputFile == "" {
		return errors.New("input file is required (--file)")
	}

	rows, err := fleet.ReadFile(cfg.InputFile)
	if err != nil {
		return err
	}
	batch := fleet.Parse(rows)

	if err := checkPrerequisites(ctx, cfg); err != nil {
		return err
	}

	prov, err := newProvider(cfg)
	if err != nil {
		return err
	}

	runDir := filepath.Join(cfg.LogRoot, provisioning.LogDirName(now()))
	if err := os.MkdirAll(runDir, 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	// #nosec G302 G304 -- run log under the operator's log root
	logFile, err := os.OpenFile(filepath.Join(runDir, wrapperLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	tty := isTerminal()
	sink := io.Writer(logFile)
	if !tty {
		sink = io.MultiWriter(logFile, stderr)
	}
	log := newLogger(sink, cfg.Verbose)

	lock, err := state.AcquireLock(cfg.StateFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Error(err, "Failed to release state lock")
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info("Starting run",
		"file", cfg.InputFile,
		"rows", batch.Total(),
		"invalid", len(batch.Invalid),
		"provider", prov.Name(),
		"max_workers", cfg.MaxWorkers,
		"max_retries", cfg.MaxRetries,
		"force", cfg.Force,
		"state_file", store.Path(),
		"log_dir", runDir,
	)

	metrics := provisioning.NewMetrics()
	opts := provisioning.Options{
		MaxWorkers: cfg.MaxWorkers,
		MaxRetries: cfg.MaxRetries,
		Force:      cfg.Force,
		Policy: &retry.Policy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
			MaxDelay:   cfg.RetryMaxDelay,
			Jitter:     retry.DefaultJitter,
		},
		Catalog:  cfg.Catalog(),
		LogDir:   runDir,
		Metrics:  metrics,
		Redactor: redact.New(os.Getenv(provider.PassphraseEnv)),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := runBatch(ctx, store, prov, opts, provisioning.NewLogObserver(log), batch, cfg.InputFile, tty)
	if summary != nil {
		tui.WriteReport(stdout, summary, tty)
	}

	errs := []error{runErr}
	if cfg.MetricsFile != "" {
		errs = append(errs, metrics.WriteToTextfile(cfg.MetricsFile))
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := store.Push(pushCtx); err != nil {
		log.Error(err, "Failed to push state mirror")
		errs = append(errs, fmt.Errorf("failed to push state: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if summary.Failed() {
		return fmt.Errorf("%w: %d failed, %d invalid of %d instances",
			ErrProvisioningFailed, summary.Failure, summary.ValidationFailure, summary.Total)
	}
	return nil
}

// runBatch runs the batch behind the dashboard on a terminal, and with
// progress lines on stdout otherwise.
func runBatch(ctx context.Context, store provisioning.StateStore, prov provider.Provider, opts provisioning.Options,
	logObs provisioning.Observer, batch fleet.Batch, title string, tty bool) (*provisioning.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := func(obs provisioning.Observer) (*provisioning.Summary, error) {
		opts.Observer = provisioning.Observers(logObs, obs)
		p, err := provisioning.New(store, prov, opts)
		if err != nil {
			return nil, err
		}
		return p.Run(ctx, batch)
	}

	if tty {
		return runTUI(title, batch.Total(), cancel, run)
	}
	return run(tui.NewLineObserver(stdout))
}

// checkPrerequisites verifies gcloud is installed when the local-cli
// provider will shell out to it.
func checkPrerequisites(ctx context.Context, cfg *config.RunConfig) error {
	if cfg.EffectiveProvider() != config.ProviderLocalCLI {
		return nil
	}

	tools := append([]prerequisites.Tool{prerequisites.GcloudTool(cfg.GcloudPath)}, prerequisites.OptionalTools()...)
	results := checkPrereqs(ctx, tools, false)
	for _, tool := range results.Missing {
		if !tool.Required {
			fmt.Fprintf(stderr, "Warning: optional tool %s not found (%s)\n", tool.Name, tool.Description)
		}
	}
	return results.Error()
}
