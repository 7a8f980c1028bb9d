// Package scheduler starts the reporter's background tasks: a one-shot
// startup event and the periodic health/pipe reporting loop.
package scheduler

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/miaoyq/usage-reporter/internal/config"
	"github.com/miaoyq/usage-reporter/internal/reporter"
)

// Handle gives the host access to the running reporter
type Handle struct {
	reporter *reporter.Reporter
	mode     config.Mode
	group    *errgroup.Group
	logger   *zap.Logger
}

// Start detects the run mode and starts the reporter accordingly
func Start(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...reporter.Option) (*Handle, error) {
	return StartWithMode(ctx, config.DetectMode(), cfg, logger, opts...)
}

// StartWithMode starts the reporter in the given mode. In development mode the
// reporter is built disabled and no background task is spawned. In production
// mode it is enabled and two tasks run until ctx is done: the app_started
// event and the periodic loop. Options given by the caller are applied after
// the mode default.
func StartWithMode(ctx context.Context, mode config.Mode, cfg config.Config, logger *zap.Logger, opts ...reporter.Option) (*Handle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := []reporter.Option{
		reporter.WithLogger(logger),
		reporter.WithEnabled(mode.EnabledByDefault()),
	}
	r, err := reporter.New(cfg, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("module", "scheduler"))
	h := &Handle{
		reporter: r,
		mode:     mode,
		logger:   logger,
	}

	if mode == config.ModeDevelopment {
		logger.Info("Skipping analytics in development mode")
		return h, nil
	}

	h.group = &errgroup.Group{}
	h.supervise("startup", func() {
		if err := r.SendEvent(ctx, reporter.EventAppStarted, nil); err != nil {
			logger.Error("Failed to send initial event", zap.Error(err))
		}
	})
	h.supervise("periodic", func() {
		r.StartPeriodicEvent(ctx)
	})

	logger.Info("Analytics started",
		zap.String("distinct_id", cfg.DistinctID),
		zap.Duration("interval", cfg.Interval))

	return h, nil
}

// supervise runs fn in the task group; a panic is logged and ends only that task
func (h *Handle) supervise(name string, fn func()) {
	h.group.Go(func() error {
		defer func() {
			if p := recover(); p != nil {
				h.logger.Error("Analytics task panicked",
					zap.String("task", name),
					zap.Any("panic", p),
					zap.Stack("stack"))
			}
		}()
		fn()
		return nil
	})
}

// Reporter returns the shared reporter
func (h *Handle) Reporter() *reporter.Reporter {
	return h.reporter
}

// Mode returns the mode the handle was started in
func (h *Handle) Mode() config.Mode {
	return h.mode
}

// Running reports whether background tasks were spawned
func (h *Handle) Running() bool {
	return h.group != nil
}

// Wait blocks until every background task has returned. It returns
// immediately for an inert handle.
func (h *Handle) Wait() error {
	if h.group == nil {
		return nil
	}
	return h.group.Wait()
}
