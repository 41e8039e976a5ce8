package hoststats

import (
	"context"
	"time"

	"github.com/composedeck/backend/internal/domain"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Collector samples CPU, memory and host facts of the machine the console
// runs on.
type Collector struct {
	sampleWindow time.Duration
}

func NewCollector(sampleWindow time.Duration) *Collector {
	if sampleWindow <= 0 {
		sampleWindow = 500 * time.Millisecond
	}
	return &Collector{sampleWindow: sampleWindow}
}

// Collect fills what it can; individual probe failures leave zero values.
func (c *Collector) Collect(ctx context.Context) (*domain.HostStats, error) {
	stats := &domain.HostStats{}

	cpuPercent, err := cpu.PercentWithContext(ctx, c.sampleWindow, false)
	if err == nil && len(cpuPercent) > 0 {
		stats.CPUUsage = cpuPercent[0]
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		stats.RAMUsage = memInfo.UsedPercent
		stats.RAMTotal = memInfo.Total
		stats.RAMUsed = memInfo.Used
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.Uptime = hostInfo.Uptime
	stats.Hostname = hostInfo.Hostname
	stats.OS = hostInfo.OS
	stats.Platform = hostInfo.Platform
	return stats, nil
}
