package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/miaoyq/usage-reporter/internal/config"
	"github.com/miaoyq/usage-reporter/internal/reporter"
	"github.com/miaoyq/usage-reporter/internal/sysinfo"
)

type staticHost struct{}

func (staticHost) HostInfo(ctx context.Context) sysinfo.HostInfo {
	return sysinfo.HostInfo{OSName: "ubuntu", HostName: "test-node", CPUCount: 4}
}

// fakeService plays both the collector and the local service
type fakeService struct {
	mu     sync.Mutex
	events []reporter.EventPayload
	server *httptest.Server
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	fs := &fakeService{}
	mux := http.NewServeMux()
	mux.HandleFunc("/capture/", func(w http.ResponseWriter, r *http.Request) {
		var p reporter.EventPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		fs.mu.Lock()
		fs.events = append(fs.events, p)
		fs.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"frame_status":"ok","audio_status":"disabled","ui_status":"ok"}`))
	})
	mux.HandleFunc("/pipes/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"a","enabled":true},{"id":"b","enabled":false}],"success":true}`))
	})
	fs.server = httptest.NewServer(mux)
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeService) eventCount(name string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := 0
	for _, e := range fs.events {
		if e.Event == name {
			n++
		}
	}
	return n
}

func (fs *fakeService) config(interval time.Duration) config.Config {
	cfg := config.New("phc_test", "user-1", 1, fs.server.URL)
	cfg.APIHost = fs.server.URL
	cfg.Interval = interval
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestStartWithMode_Development(t *testing.T) {
	fs := newFakeService(t)
	core, logs := observer.New(zapcore.InfoLevel)

	h, err := StartWithMode(context.Background(), config.ModeDevelopment, fs.config(10*time.Millisecond),
		zap.New(core), reporter.WithHostInfo(staticHost{}))
	require.NoError(t, err)

	assert.Equal(t, config.ModeDevelopment, h.Mode())
	assert.False(t, h.Running())
	assert.False(t, h.Reporter().Enabled())
	assert.NoError(t, h.Wait())
	assert.Equal(t, 1, logs.FilterMessage("Skipping analytics in development mode").Len())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, fs.eventCount(reporter.EventAppStarted))
	assert.Equal(t, 0, fs.eventCount(reporter.EventAppStillRunning))
}

func TestStart_DetectsDevelopmentFromEnv(t *testing.T) {
	t.Setenv(config.DebugEnvVar, "true")
	fs := newFakeService(t)

	h, err := Start(context.Background(), fs.config(time.Hour), nil, reporter.WithHostInfo(staticHost{}))
	require.NoError(t, err)

	assert.Equal(t, config.ModeDevelopment, h.Mode())
	assert.False(t, h.Running())
	assert.False(t, h.Reporter().Enabled())
}

func TestStartWithMode_Production(t *testing.T) {
	fs := newFakeService(t)
	logger := zaptest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	h, err := StartWithMode(ctx, config.ModeProduction, fs.config(20*time.Millisecond),
		logger, reporter.WithHostInfo(staticHost{}))
	require.NoError(t, err)

	assert.True(t, h.Running())
	assert.True(t, h.Reporter().Enabled())

	assert.Eventually(t, func() bool {
		return fs.eventCount(reporter.EventAppStarted) == 1 &&
			fs.eventCount(reporter.EventAppStillRunning) >= 2 &&
			fs.eventCount(reporter.EventEnabledPipesHourly) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("background tasks did not stop")
	}

	assert.Equal(t, 1, fs.eventCount(reporter.EventAppStarted))
}

func TestStartWithMode_RuntimeToggle(t *testing.T) {
	fs := newFakeService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, err := StartWithMode(ctx, config.ModeProduction, fs.config(time.Hour),
		nil, reporter.WithHostInfo(staticHost{}), reporter.WithEnabled(false))
	require.NoError(t, err)

	// the startup event honours the caller's override
	assert.True(t, h.Running())
	assert.Eventually(t, func() bool {
		return h.Reporter().Metrics().Skipped == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, fs.eventCount(reporter.EventAppStarted))

	h.Reporter().SetEnabled(true)
	require.NoError(t, h.Reporter().SendEvent(ctx, "settings_changed", map[string]interface{}{"analytics_enabled": true}))
	assert.Equal(t, 1, fs.eventCount("settings_changed"))
}

func TestStartWithMode_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	h, err := StartWithMode(context.Background(), config.ModeProduction, cfg, nil)
	assert.Nil(t, h)
	assert.Error(t, err)
}

func TestSupervise_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := &Handle{logger: zap.New(core)}
	h.group = &errgroup.Group{}

	h.supervise("boom", func() { panic("boom") })

	assert.NoError(t, h.Wait())
	entries := logs.FilterMessage("Analytics task panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["task"])
}
