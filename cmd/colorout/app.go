package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Veraticus/colorout/pkg/classifier"
	"github.com/Veraticus/colorout/pkg/config"
	"github.com/Veraticus/colorout/pkg/interfaces"
	"github.com/Veraticus/colorout/pkg/logging"
	"github.com/Veraticus/colorout/pkg/monitor"
	"github.com/Veraticus/colorout/pkg/process"
	"github.com/Veraticus/colorout/pkg/settings"
	"github.com/Veraticus/colorout/pkg/status"
	"github.com/Veraticus/colorout/pkg/store"
	"github.com/Veraticus/colorout/pkg/theme"
)

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config    *config.Config
	Medium    interfaces.KeyValueStore
	RuleStore *store.RuleStore
	Settings  *settings.Controller
	Theme     *theme.Theme
	Tally     *status.Tally
	Reporter  *status.Reporter

	stderr io.Writer
	closer io.Closer
	logger zerolog.Logger
}

// NewDependencies creates all dependencies with the given configuration.
// Colored output goes to stdout, the summary to stderr.
func NewDependencies(cfg *config.Config, stdout, stderr io.Writer) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		stderr: stderr,
		logger: logging.Get("app"),
	}

	medium, closer, err := openMedium(cfg)
	if err != nil {
		return nil, err
	}
	deps.Medium = medium
	deps.closer = closer

	overrides, err := cfg.ColorOverrides()
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.RuleStore = store.NewRuleStore(medium)
	deps.Settings = settings.NewController(deps.RuleStore, classifier.WithCacheSize(cfg.CacheSize))
	deps.Settings.Load()

	deps.Theme = theme.New(stdout, cfg.Color, overrides)
	deps.Tally = status.NewTally()
	deps.EnableSummary(cfg.Summary)

	return deps, nil
}

// openMedium opens the settings medium selected by cfg.Store
func openMedium(cfg *config.Config) (interfaces.KeyValueStore, io.Closer, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil, nil
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SettingsPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create settings directory: %w", err)
		}
		db, err := store.OpenSQLiteStore(cfg.SettingsPath)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return store.NewFileStore(cfg.SettingsPath), nil, nil
	}
}

// EnableSummary turns the end-of-run summary on or off
func (d *Dependencies) EnableSummary(enabled bool) {
	if !enabled {
		d.Reporter = nil
		return
	}
	overrides, _ := d.Config.ColorOverrides()
	d.Reporter = status.NewReporter(d.Tally, theme.New(d.stderr, d.Config.Color, overrides), d.stderr)
}

// NewOutputMonitor creates a monitor writing colored output to out and
// feeding the tally
func (d *Dependencies) NewOutputMonitor(out io.Writer, opts ...monitor.Option) *monitor.OutputMonitor {
	opts = append([]monitor.Option{monitor.WithObserver(d.Tally)}, opts...)
	return monitor.NewOutputMonitor(d.Settings.Classifier(), d.Theme, out, opts...)
}

// StartWatch reloads rules on settings file changes until ctx is done.
// Only the file medium can be watched.
func (d *Dependencies) StartWatch(ctx context.Context) {
	if d.Config.Store != config.StoreFile || !d.Config.Watch {
		return
	}
	go func() {
		if err := d.Settings.Watch(ctx, d.Config.SettingsPath); err != nil {
			d.logger.Debug().Err(err).Msg("Settings watch disabled")
		}
	}()
}

// StorePath describes where rules are persisted
func (d *Dependencies) StorePath() string {
	if d.Config.Store == config.StoreMemory {
		return "(memory)"
	}
	return d.Config.SettingsPath
}

// Report prints the summary when enabled
func (d *Dependencies) Report(exitCode int) error {
	if d.Reporter == nil {
		return nil
	}
	return d.Reporter.Report(exitCode)
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	if d.closer != nil {
		if err := d.closer.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to close settings store")
		}
		d.closer = nil
	}
}

// Application represents the main application
type Application struct {
	deps   *Dependencies
	stdout io.Writer
	logger zerolog.Logger
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies, stdout io.Writer) *Application {
	return &Application{
		deps:   deps,
		stdout: stdout,
		logger: logging.Get("app"),
	}
}

// Run runs command under a PTY, coloring its output, and returns its exit
// code
func (a *Application) Run(ctx context.Context, command string, args []string) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.deps.StartWatch(ctx)

	var manager *process.Manager
	om := a.deps.NewOutputMonitor(a.stdout, monitor.WithStopOnError(a.deps.Settings.StopOnBuildError, func() {
		if err := manager.Stop(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to stop build")
		}
	}))
	manager = process.NewManager(om)

	if err := manager.Start(command, args); err != nil {
		return 1, err
	}

	waitErr := manager.Wait()
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		a.logger.Warn().Err(waitErr).Msg("Error waiting for command")
	}

	if err := om.Flush(); err != nil {
		a.logger.Debug().Err(err).Msg("Failed to write output")
	}

	code := manager.ExitCode()
	if manager.Stopped() {
		a.logger.Info().Int("exit_code", code).Msg("Build stopped on first error")
		if code == 0 {
			code = 1
		}
	}

	if err := a.deps.Report(code); err != nil {
		a.logger.Debug().Err(err).Msg("Failed to write summary")
	}
	return code, nil
}

// Classify colors everything read from in
func (a *Application) Classify(in io.Reader) error {
	om := a.deps.NewOutputMonitor(a.stdout)

	if _, err := io.Copy(om, in); err != nil {
		return fmt.Errorf("failed to classify input: %w", err)
	}
	if err := om.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return a.deps.Report(0)
}
