// Package health queries the local service's /health endpoint and reduces the
// frame, audio and ui subsystem statuses to a single verdict.
package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/miaoyq/usage-reporter/internal/httpclient"
)

// Subsystem status values reported by the local service
const (
	StatusOK       = "ok"
	StatusDisabled = "disabled"
	StatusError    = "error"
	StatusUnknown  = "unknown"
)

// Status is the aggregated health of the local service
type Status struct {
	IsHealthy   bool   `json:"is_healthy"`
	FrameStatus string `json:"frame_status"`
	AudioStatus string `json:"audio_status"`
	UIStatus    string `json:"ui_status"`
	Error       string `json:"error,omitempty"`
}

// Properties renders the status as event properties
func (s *Status) Properties() map[string]interface{} {
	props := map[string]interface{}{
		"is_healthy":   s.IsHealthy,
		"frame_status": s.FrameStatus,
		"audio_status": s.AudioStatus,
		"ui_status":    s.UIStatus,
	}
	if s.Error != "" {
		props["error"] = s.Error
	}
	return props
}

// Degraded builds the status reported when the health check itself failed
func Degraded(err error) *Status {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Status{
		IsHealthy:   false,
		FrameStatus: StatusError,
		AudioStatus: StatusError,
		UIStatus:    StatusError,
		Error:       msg,
	}
}

// IsHealthy is true iff every subsystem is either ok or disabled
func IsHealthy(statuses ...string) bool {
	for _, s := range statuses {
		if s != StatusOK && s != StatusDisabled {
			return false
		}
	}
	return true
}

// response mirrors the fields of /health we care about
type response struct {
	FrameStatus interface{} `json:"frame_status"`
	AudioStatus interface{} `json:"audio_status"`
	UIStatus    interface{} `json:"ui_status"`
}

// Checker queries the local service health endpoint
type Checker struct {
	url    string
	client *retryablehttp.Client
	logger *zap.Logger
}

// NewChecker creates a checker for {baseURL}/health
func NewChecker(baseURL string, client *retryablehttp.Client, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		url:    strings.TrimRight(baseURL, "/") + "/health",
		client: client,
		logger: logger,
	}
}

// CheckHealth fetches and aggregates the local service health. A non-2xx
// response is a successful, degraded result; only transport and decode
// failures return an error.
func (c *Checker) CheckHealth(ctx context.Context) (*Status, error) {
	resp, err := httpclient.Get(ctx, c.client, c.url)
	if err != nil {
		return nil, &CheckError{Kind: CheckTransport, Err: err}
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		httpclient.Drain(resp)
		c.logger.Debug("Health endpoint returned non-success status", zap.Int("status", resp.StatusCode))
		status := Degraded(nil)
		status.Error = fmt.Sprintf("health check failed with status: %d", resp.StatusCode)
		return status, nil
	}

	var body response
	if err := httpclient.DecodeJSON(resp, &body); err != nil {
		return nil, &CheckError{Kind: CheckDecode, Err: err}
	}

	status := &Status{
		FrameStatus: orUnknown(body.FrameStatus),
		AudioStatus: orUnknown(body.AudioStatus),
		UIStatus:    orUnknown(body.UIStatus),
	}
	status.IsHealthy = IsHealthy(status.FrameStatus, status.AudioStatus, status.UIStatus)

	return status, nil
}

// orUnknown treats absent, null and non-string fields as unknown
func orUnknown(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return StatusUnknown
}
