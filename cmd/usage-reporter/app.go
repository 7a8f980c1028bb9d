package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/miaoyq/usage-reporter/internal/config"
	"github.com/miaoyq/usage-reporter/internal/reporter"
	"github.com/miaoyq/usage-reporter/internal/scheduler"
)

// Options holds the command line settings
type Options struct {
	Config       config.Config
	SettingsPath string
	Verbose      bool
}

// App represents the main application
type App struct {
	opts         Options
	handle       *scheduler.Handle
	watcher      *config.SettingsWatcher
	ctx          context.Context
	cancel       context.CancelFunc
	logger       *zap.Logger
	reporterOpts []reporter.Option
}

// NewApp creates a new application instance
func NewApp(opts Options) (*App, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if opts.Verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}, nil
}

// Initialize reads the settings file so the reporter starts in the state the user chose
func (a *App) Initialize() error {
	if a.opts.SettingsPath == "" {
		return nil
	}

	s, err := config.LoadSettings(a.opts.SettingsPath)
	switch {
	case err == nil:
		if s.AnalyticsEnabled != nil {
			a.reporterOpts = append(a.reporterOpts, reporter.WithEnabled(*s.AnalyticsEnabled))
		}
	case errors.Is(err, os.ErrNotExist):
		a.logger.Info("Settings file not found, using defaults", zap.String("path", a.opts.SettingsPath))
	default:
		return fmt.Errorf("failed to load settings: %w", err)
	}

	a.watcher = config.NewSettingsWatcher(a.opts.SettingsPath, a.applySettings, a.logger.With(zap.String("module", "settings")))
	return nil
}

// applySettings pushes a reloaded settings file into the running reporter
func (a *App) applySettings(s config.Settings) {
	if a.handle == nil || s.AnalyticsEnabled == nil {
		return
	}
	a.handle.Reporter().SetEnabled(*s.AnalyticsEnabled)
}

// Start starts the reporter and the settings watcher
func (a *App) Start() error {
	a.logger.Info("Starting usage reporter...")

	handle, err := scheduler.Start(a.ctx, a.opts.Config, a.logger, a.reporterOpts...)
	if err != nil {
		return fmt.Errorf("failed to start reporter: %w", err)
	}
	a.handle = handle

	if a.watcher != nil {
		if err := a.watcher.Watch(a.ctx); err != nil {
			return fmt.Errorf("failed to start settings watcher: %w", err)
		}
	}

	a.logger.Info("Usage reporter started",
		zap.String("mode", string(handle.Mode())),
		zap.Bool("enabled", handle.Reporter().Enabled()))
	return nil
}

// Stop cancels background work and waits for it to return
func (a *App) Stop() error {
	a.logger.Info("Stopping usage reporter...")

	a.cancel()

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.logger.Warn("Failed to close settings watcher", zap.Error(err))
		}
	}

	if a.handle != nil {
		if err := a.handle.Wait(); err != nil {
			return fmt.Errorf("failed to stop reporter: %w", err)
		}
		m := a.handle.Reporter().Metrics()
		a.logger.Info("Usage reporter stopped",
			zap.Int64("sent", m.Sent),
			zap.Int64("skipped", m.Skipped),
			zap.Int64("failed", m.Failed),
			zap.Int64("cycles", m.Cycles))
	}

	_ = a.logger.Sync()
	return nil
}

// Run runs the application until SIGINT or SIGTERM
func (a *App) Run() error {
	if err := a.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	if err := a.Start(); err != nil {
		a.cancel()
		return fmt.Errorf("failed to start app: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	a.logger.Info("Received interrupt signal")

	return a.Stop()
}
