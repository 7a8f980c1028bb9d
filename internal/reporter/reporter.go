package reporter

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/miaoyq/usage-reporter/internal/config"
	"github.com/miaoyq/usage-reporter/internal/health"
	"github.com/miaoyq/usage-reporter/internal/httpclient"
	"github.com/miaoyq/usage-reporter/internal/pipes"
	"github.com/miaoyq/usage-reporter/internal/sysinfo"
)

// Event names sent to the collector
const (
	EventAppStarted         = "app_started"
	EventAppStillRunning    = "app_still_running"
	EventEnabledPipesHourly = "enabled_pipes_hourly"
)

// EventPayload is the body of a capture request
type EventPayload struct {
	APIKey     string                 `json:"api_key"`
	Event      string                 `json:"event"`
	Properties map[string]interface{} `json:"properties"`
}

// HealthChecker reports the local service health
type HealthChecker interface {
	CheckHealth(ctx context.Context) (*health.Status, error)
}

// PipeLister reports the enabled pipes of the local service
type PipeLister interface {
	ListEnabledPipes(ctx context.Context) (*pipes.Census, error)
}

// Reporter sends usage and health events to the analytics collector
type Reporter struct {
	config  config.Config
	client  *retryablehttp.Client
	enabled *atomic.Bool
	host    sysinfo.Source
	health  HealthChecker
	pipes   PipeLister
	logger  *zap.Logger
	metrics *reporterMetrics
}

type options struct {
	logger    *zap.Logger
	client    *retryablehttp.Client
	transport http.RoundTripper
	host      sysinfo.Source
	health    HealthChecker
	pipes     PipeLister
	enabled   *bool
}

// Option customizes a Reporter
type Option func(*options)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient replaces the shared HTTP client
func WithHTTPClient(client *retryablehttp.Client) Option {
	return func(o *options) { o.client = client }
}

// WithTransport sets the round tripper of the default HTTP client
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithHostInfo sets the host metadata source
func WithHostInfo(src sysinfo.Source) Option {
	return func(o *options) { o.host = src }
}

// WithHealthChecker replaces the /health checker
func WithHealthChecker(hc HealthChecker) Option {
	return func(o *options) { o.health = hc }
}

// WithPipeLister replaces the /pipes/list lister
func WithPipeLister(pl PipeLister) Option {
	return func(o *options) { o.pipes = pl }
}

// WithEnabled sets the initial value of the enabled flag
func WithEnabled(enabled bool) Option {
	return func(o *options) { o.enabled = &enabled }
}

// New creates a Reporter. Unless WithEnabled is given, the reporter starts
// enabled only in production mode.
func New(cfg config.Config, opts ...Option) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := o.client
	if client == nil {
		client = httpclient.New(httpclient.Options{
			Timeout:   cfg.Timeout,
			RetryMax:  cfg.RetryMax,
			Transport: o.transport,
			Logger:    logger,
		})
	}

	enabled := config.DetectMode().EnabledByDefault()
	if o.enabled != nil {
		enabled = *o.enabled
	}

	r := &Reporter{
		config:  cfg,
		client:  client,
		enabled: atomic.NewBool(enabled),
		host:    o.host,
		health:  o.health,
		pipes:   o.pipes,
		logger:  logger.With(zap.String("module", "reporter")),
		metrics: &reporterMetrics{},
	}

	if r.host == nil {
		r.host = sysinfo.NewCollector(cfg.MetadataTTL, logger.With(zap.String("module", "sysinfo")))
	}
	if r.health == nil {
		r.health = health.NewChecker(cfg.LocalAPIBaseURL, client, logger.With(zap.String("module", "health")))
	}
	if r.pipes == nil {
		r.pipes = pipes.NewLister(cfg.LocalAPIBaseURL, client, logger.With(zap.String("module", "pipes")))
	}

	return r, nil
}

// Enabled reports whether events are currently sent
func (r *Reporter) Enabled() bool {
	return r.enabled.Load()
}

// SetEnabled toggles event delivery at runtime
func (r *Reporter) SetEnabled(enabled bool) {
	if r.enabled.Swap(enabled) != enabled {
		r.logger.Info("Analytics toggled", zap.Bool("enabled", enabled))
	}
}

// Config returns the reporter configuration
func (r *Reporter) Config() config.Config {
	return r.config
}

// SendEvent delivers one event. It is a no-op when the reporter is disabled.
// Keys in properties overwrite the base properties of the same name.
func (r *Reporter) SendEvent(ctx context.Context, event string, properties map[string]interface{}) error {
	if !r.enabled.Load() {
		r.updateMetrics(func(m *reporterMetrics) {
			m.skipped++
		})
		return nil
	}

	payload := r.buildPayload(ctx, event, properties)
	start := time.Now()

	if err := r.deliver(ctx, payload); err != nil {
		r.updateMetrics(func(m *reporterMetrics) {
			m.failed++
		})
		return err
	}

	r.updateMetrics(func(m *reporterMetrics) {
		m.sent++
		m.lastSent = time.Now()
	})
	r.logger.Debug("Event sent",
		zap.String("event", event),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// buildPayload assembles a fresh payload: identity and host metadata first,
// then a shallow merge of the caller's properties
func (r *Reporter) buildPayload(ctx context.Context, event string, properties map[string]interface{}) EventPayload {
	props := map[string]interface{}{
		"distinct_id": r.config.DistinctID,
		"$lib":        r.config.LibTag,
	}
	for k, v := range r.host.HostInfo(ctx).Properties() {
		props[k] = v
	}
	for k, v := range properties {
		props[k] = v
	}

	return EventPayload{
		APIKey:     r.config.APIKey,
		Event:      event,
		Properties: props,
	}
}

// deliver POSTs the payload to {api_host}/capture/
func (r *Reporter) deliver(ctx context.Context, payload EventPayload) error {
	resp, err := httpclient.PostJSON(ctx, r.client, r.config.CaptureURL(), payload)
	if err != nil {
		return &DeliveryError{Kind: DeliveryTransport, Event: payload.Event, Err: err}
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		return &DeliveryError{
			Kind:       DeliveryRemoteRejected,
			Event:      payload.Event,
			StatusCode: resp.StatusCode,
			Body:       httpclient.Drain(resp),
		}
	}

	httpclient.Drain(resp)
	return nil
}
