package sysinfo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

const hostInfoKey = "host_info"

// HostInfo holds the host facts attached to every outbound event
type HostInfo struct {
	OSName        string `json:"os_name"`
	OSVersion     string `json:"os_version"`
	KernelVersion string `json:"kernel_version"`
	HostName      string `json:"host_name"`
	CPUCount      int    `json:"cpu_count"`
	TotalMemory   uint64 `json:"total_memory"`
}

// Properties renders the host facts as event properties
func (h HostInfo) Properties() map[string]interface{} {
	return map[string]interface{}{
		"os_name":        h.OSName,
		"os_version":     h.OSVersion,
		"kernel_version": h.KernelVersion,
		"host_name":      h.HostName,
		"cpu_count":      h.CPUCount,
		"total_memory":   h.TotalMemory,
	}
}

// Source provides host metadata
type Source interface {
	HostInfo(ctx context.Context) HostInfo
}

// Collector reads host metadata through gopsutil and caches it for ttl
type Collector struct {
	cache  *cache.Cache
	load   func(ctx context.Context) (HostInfo, error)
	mu     sync.Mutex
	logger *zap.Logger
}

// NewCollector creates a new host metadata collector
func NewCollector(ttl time.Duration, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Collector{
		cache:  cache.New(ttl, 10*time.Minute),
		load:   collectHostInfo,
		logger: logger,
	}
}

// HostInfo returns the cached host facts, reloading them once the ttl expires.
// Fields that cannot be read are left at their zero value.
func (c *Collector) HostInfo(ctx context.Context) HostInfo {
	if v, ok := c.cache.Get(hostInfoKey); ok {
		return v.(HostInfo)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.cache.Get(hostInfoKey); ok {
		return v.(HostInfo)
	}

	info, err := c.load(ctx)
	if err != nil {
		c.logger.Warn("Incomplete host metadata", zap.Error(err))
	}
	c.cache.Set(hostInfoKey, info, cache.DefaultExpiration)
	return info
}

// Invalidate drops the cached host facts
func (c *Collector) Invalidate() {
	c.cache.Delete(hostInfoKey)
}

// collectHostInfo gathers host facts, continuing past failed probes. The first
// failure is returned.
func collectHostInfo(ctx context.Context) (HostInfo, error) {
	var info HostInfo
	var firstErr error

	hostStat, err := host.InfoWithContext(ctx)
	if err != nil {
		firstErr = fmt.Errorf("failed to get host info: %w", err)
	} else {
		info.OSName = osName(hostStat)
		info.OSVersion = hostStat.PlatformVersion
		info.KernelVersion = hostStat.KernelVersion
		info.HostName = hostStat.Hostname
	}

	cpuCount, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to get CPU counts: %w", err)
		}
	} else {
		info.CPUCount = cpuCount
	}

	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to get virtual memory: %w", err)
		}
	} else {
		info.TotalMemory = vmStat.Total
	}

	return info, firstErr
}

func osName(stat *host.InfoStat) string {
	if stat.Platform != "" {
		return stat.Platform
	}
	return stat.OS
}
