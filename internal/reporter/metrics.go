package reporter

import (
	"sync"
	"time"
)

// Metrics is a snapshot of delivery statistics
type Metrics struct {
	Sent     int64
	Skipped  int64
	Failed   int64
	Cycles   int64
	LastSent time.Time
}

// reporterMetrics tracks delivery statistics
type reporterMetrics struct {
	mu       sync.RWMutex
	sent     int64
	skipped  int64
	failed   int64
	cycles   int64
	lastSent time.Time
}

// Metrics returns current delivery statistics
func (r *Reporter) Metrics() Metrics {
	r.metrics.mu.RLock()
	defer r.metrics.mu.RUnlock()

	return Metrics{
		Sent:     r.metrics.sent,
		Skipped:  r.metrics.skipped,
		Failed:   r.metrics.failed,
		Cycles:   r.metrics.cycles,
		LastSent: r.metrics.lastSent,
	}
}

// updateMetrics safely updates metrics
func (r *Reporter) updateMetrics(update func(*reporterMetrics)) {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	update(r.metrics)
}
