package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/miaoyq/usage-reporter/internal/config"
	"github.com/miaoyq/usage-reporter/internal/health"
	"github.com/miaoyq/usage-reporter/internal/pipes"
	"github.com/miaoyq/usage-reporter/internal/sysinfo"
)

// mockTransport captures every request and answers per path
type mockTransport struct {
	mu        sync.Mutex
	requests  []*http.Request
	bodies    [][]byte
	responses map[string]func() (*http.Response, error)
}

func newMockTransport() *mockTransport {
	return &mockTransport{responses: make(map[string]func() (*http.Response, error))}
}

func (m *mockTransport) respond(path string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = func() (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			Header:     make(http.Header),
		}, nil
	}
}

func (m *mockTransport) fail(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = func() (*http.Response, error) { return nil, err }
}

// RoundTrip implements http.RoundTripper
func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	m.bodies = append(m.bodies, body)

	respond, ok := m.responses[req.URL.Path]
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
		}, nil
	}
	resp, err := respond()
	if resp != nil {
		resp.Request = req
	}
	return resp, err
}

func (m *mockTransport) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// captured decodes every payload posted to /capture/
func (m *mockTransport) captured(t *testing.T) []EventPayload {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []EventPayload
	for i, req := range m.requests {
		if req.URL.Path != "/capture/" {
			continue
		}
		var p EventPayload
		require.NoError(t, json.Unmarshal(m.bodies[i], &p))
		events = append(events, p)
	}
	return events
}

type staticHost struct {
	info sysinfo.HostInfo
}

func (s staticHost) HostInfo(ctx context.Context) sysinfo.HostInfo {
	return s.info
}

var testHost = staticHost{info: sysinfo.HostInfo{
	OSName:        "ubuntu",
	OSVersion:     "22.04",
	KernelVersion: "6.1.0",
	HostName:      "test-node",
	CPUCount:      8,
	TotalMemory:   16384,
}}

func testConfig() config.Config {
	cfg := config.New("phc_test", "user-1", 1, "http://local.test")
	cfg.APIHost = "https://collector.test"
	cfg.Timeout = 5 * time.Second
	return cfg
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) CheckHealth(ctx context.Context) (*health.Status, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*health.Status), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPipeLister is a mock implementation of PipeLister
type MockPipeLister struct {
	mock.Mock
}

func (m *MockPipeLister) ListEnabledPipes(ctx context.Context) (*pipes.Census, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.(*pipes.Census), args.Error(1)
	}
	return nil, args.Error(1)
}
