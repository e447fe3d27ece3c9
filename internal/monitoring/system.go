package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot describes the host the API runs on.
type SystemSnapshot struct {
	Hostname      string    `json:"hostname"`
	OS            string    `json:"os"`
	Platform      string    `json:"platform"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	CPUCores      int       `json:"cpuCores"`
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryTotal   uint64    `json:"memoryTotal"`
	MemoryUsed    uint64    `json:"memoryUsed"`
	MemoryPercent float64   `json:"memoryPercent"`
	DiskTotal     uint64    `json:"diskTotal"`
	DiskUsed      uint64    `json:"diskUsed"`
	DiskPercent   float64   `json:"diskPercent"`
	Goroutines    int       `json:"goroutines"`
	ProcessUptime float64   `json:"processUptimeSeconds"`
	SampledAt     time.Time `json:"sampledAt"`
}

// SystemSampler reads host metrics through gopsutil.
type SystemSampler struct {
	diskPath string
	started  time.Time
}

// NewSystemSampler creates a sampler reporting disk usage of the volume
// holding diskPath.
func NewSystemSampler(diskPath string) *SystemSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &SystemSampler{diskPath: diskPath, started: time.Now()}
}

// Sample collects a snapshot. Individual probes that fail are logged and
// left zero; only a cancelled context is an error.
func (s *SystemSampler) Sample(ctx context.Context) (SystemSnapshot, error) {
	snap := SystemSnapshot{
		OS:            runtime.GOOS,
		Goroutines:    runtime.NumGoroutine(),
		ProcessUptime: time.Since(s.started).Seconds(),
		SampledAt:     time.Now().UTC(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.Hostname = info.Hostname
		snap.Platform = info.Platform
		snap.UptimeSeconds = info.Uptime
	} else {
		log.Warn().Err(err).Msg("Failed to read host info")
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUCores = cores
	}
	if percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	} else if err != nil {
		log.Warn().Err(err).Msg("Failed to read CPU usage")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryTotal = vm.Total
		snap.MemoryUsed = vm.Used
		snap.MemoryPercent = vm.UsedPercent
	} else {
		log.Warn().Err(err).Msg("Failed to read memory usage")
	}

	if usage, err := disk.UsageWithContext(ctx, s.diskPath); err == nil {
		snap.DiskTotal = usage.Total
		snap.DiskUsed = usage.Used
		snap.DiskPercent = usage.UsedPercent
	} else {
		log.Warn().Err(err).Str("path", s.diskPath).Msg("Failed to read disk usage")
	}

	return snap, ctx.Err()
}
