// Package pipes counts the enabled pipes reported by the local service.
package pipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/miaoyq/usage-reporter/internal/httpclient"
)

// Info is one entry of /pipes/list
type Info struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// ListResponse is the body of /pipes/list
type ListResponse struct {
	Data    []Info `json:"data"`
	Success bool   `json:"success"`
}

// Census summarizes the enabled pipes
type Census struct {
	EnabledPipes     []string `json:"enabled_pipes"`
	EnabledPipeCount int      `json:"enabled_pipe_count"`
}

// Properties renders the census as event properties
func (c *Census) Properties() map[string]interface{} {
	return map[string]interface{}{
		"enabled_pipes":      c.EnabledPipes,
		"enabled_pipe_count": c.EnabledPipeCount,
	}
}

// FromList keeps the enabled pipe ids in their original order
func FromList(list []Info) *Census {
	enabled := make([]string, 0, len(list))
	for _, p := range list {
		if p.Enabled {
			enabled = append(enabled, p.ID)
		}
	}
	return &Census{
		EnabledPipes:     enabled,
		EnabledPipeCount: len(enabled),
	}
}

// Lister queries the local service pipe listing endpoint
type Lister struct {
	url    string
	client *retryablehttp.Client
	logger *zap.Logger
}

// NewLister creates a lister for {baseURL}/pipes/list
func NewLister(baseURL string, client *retryablehttp.Client, logger *zap.Logger) *Lister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lister{
		url:    strings.TrimRight(baseURL, "/") + "/pipes/list",
		client: client,
		logger: logger,
	}
}

// ListEnabledPipes fetches the pipe list and reduces it to the enabled ids
func (l *Lister) ListEnabledPipes(ctx context.Context) (*Census, error) {
	resp, err := httpclient.Get(ctx, l.client, l.url)
	if err != nil {
		return nil, &CensusError{Kind: CensusTransport, Err: err}
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		body := httpclient.Drain(resp)
		return nil, &CensusError{
			Kind:       CensusStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server returned status %d: %s", resp.StatusCode, body),
		}
	}

	var list ListResponse
	if err := httpclient.DecodeJSON(resp, &list); err != nil {
		return nil, &CensusError{Kind: CensusDecode, Err: err}
	}

	census := FromList(list.Data)
	l.logger.Debug("Pipe census collected",
		zap.Int("total", len(list.Data)),
		zap.Int("enabled", census.EnabledPipeCount))

	return census, nil
}
