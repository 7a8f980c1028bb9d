package reporter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/miaoyq/usage-reporter/internal/health"
)

// StartPeriodicEvent runs one reporting cycle every interval until ctx is done.
// Cycles run serially: ticks that fire while a cycle is still in flight are
// dropped, never queued.
func (r *Reporter) StartPeriodicEvent(ctx context.Context) {
	r.logger.Info("Starting periodic reporting", zap.Duration("interval", r.config.Interval))

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Periodic reporting stopped")
			return
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle performs one periodic cycle: a health report followed by a pipe
// census. A failure in either step is logged and does not affect the other.
func (r *Reporter) RunCycle(ctx context.Context) {
	if !r.enabled.Load() {
		return
	}

	r.updateMetrics(func(m *reporterMetrics) {
		m.cycles++
	})

	status, err := r.health.CheckHealth(ctx)
	if err != nil {
		r.logger.Error("Failed to check recording health", zap.Error(err))
		status = health.Degraded(err)
	}

	if err := r.SendEvent(ctx, EventAppStillRunning, status.Properties()); err != nil {
		r.logger.Error("Failed to send periodic event", zap.Error(err))
	}

	if err := r.trackEnabledPipes(ctx); err != nil {
		r.logger.Warn("Failed to track enabled pipes, is the local service up?", zap.Error(err))
	}
}

func (r *Reporter) trackEnabledPipes(ctx context.Context) error {
	census, err := r.pipes.ListEnabledPipes(ctx)
	if err != nil {
		return err
	}
	return r.SendEvent(ctx, EventEnabledPipesHourly, census.Properties())
}
