package metrics_collectors

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"
)

// ProcessMetrics describes the bridge process itself.
type ProcessMetrics struct {
	CPUUsage float64 `json:"cpu_usage"`
	RSS      uint64  `json:"rss_bytes"`
	Threads  int32   `json:"threads"`
}

// ProcessMetricCollector collects CPU and memory usage of the running bridge.
type ProcessMetricCollector struct {
	Logger zerolog.Logger

	proc *process.Process
}

func (p *ProcessMetricCollector) Name() string {
	return "process"
}

func (p *ProcessMetricCollector) Collect(ctx context.Context) interface{} {
	if p.proc == nil {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			p.Logger.Error().Err(err).Msg("Failed to open own process")
			return nil
		}
		p.proc = proc
	}

	metrics := &ProcessMetrics{}
	if cpuPercent, err := p.proc.CPUPercentWithContext(ctx); err == nil {
		metrics.CPUUsage = cpuPercent
	} else {
		p.Logger.Warn().Err(err).Msg("Failed to get process CPU usage")
	}
	if memInfo, err := p.proc.MemoryInfoWithContext(ctx); err == nil {
		metrics.RSS = memInfo.RSS
	} else {
		p.Logger.Warn().Err(err).Msg("Failed to get process memory information")
	}
	if threads, err := p.proc.NumThreadsWithContext(ctx); err == nil {
		metrics.Threads = threads
	}
	return metrics
}

func (p *ProcessMetricCollector) IsEnabled(config *MetricsConfig) bool {
	return config.MonitorProcess
}

func (p *ProcessMetricCollector) Unit() string {
	return "varied (CPU: %, Memory: bytes)"
}

func (p *ProcessMetricCollector) Description() string {
	return "CPU usage, resident memory and thread count of the bridge process."
}
