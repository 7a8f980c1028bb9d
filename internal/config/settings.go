package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Settings 用户设置文件，支持 YAML 或 JSON
type Settings struct {
	AnalyticsEnabled *bool `json:"analytics_enabled" yaml:"analytics_enabled"` // 未设置时不改变当前状态
}

// LoadSettings 读取设置文件
func LoadSettings(path string) (Settings, error) {
	var s Settings

	data, err := os.ReadFile(path)
	if err != nil {
		return s, NewConfigErrorWithCause(ConfigErrorTypeFile, "failed to read settings file", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, NewConfigErrorWithCause(ConfigErrorTypeFormat, "invalid settings format", err)
	}

	return s, nil
}

// SettingsWatcher 监控设置文件变化并回调
type SettingsWatcher struct {
	mu       sync.Mutex
	path     string
	debounce time.Duration
	onChange func(Settings)
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

// NewSettingsWatcher 创建设置文件监控器
func NewSettingsWatcher(path string, onChange func(Settings), logger *zap.Logger) *SettingsWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsWatcher{
		path:     filepath.Clean(path),
		debounce: 500 * time.Millisecond,
		onChange: onChange,
		logger:   logger,
	}
}

// Watch 开始监控设置文件，ctx 结束时停止
func (sw *SettingsWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// 监控所在目录，编辑器保存时常以重命名方式替换文件
	if err := watcher.Add(filepath.Dir(sw.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}

	sw.mu.Lock()
	sw.watcher = watcher
	sw.mu.Unlock()

	go sw.handleFileChanges(ctx, watcher)
	return nil
}

// handleFileChanges 处理文件变化事件
func (sw *SettingsWatcher) handleFileChanges(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Rename|fsnotify.Create) == 0 {
				continue
			}
			// 防抖处理，合并连续写入
			debounceTimer.Reset(sw.debounce)
		case <-debounceTimer.C:
			sw.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("Settings watcher error", zap.Error(err))
		}
	}
}

func (sw *SettingsWatcher) reload() {
	s, err := LoadSettings(sw.path)
	if err != nil {
		sw.logger.Warn("Settings reload failed", zap.String("path", sw.path), zap.Error(err))
		return
	}
	sw.logger.Info("Settings reloaded", zap.String("path", sw.path))
	if sw.onChange != nil {
		sw.onChange(s)
	}
}

// Close 关闭监控器
func (sw *SettingsWatcher) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.watcher != nil {
		return sw.watcher.Close()
	}
	return nil
}
