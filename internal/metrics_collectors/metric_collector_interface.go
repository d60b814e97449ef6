package metrics_collectors

import (
	"context"
)

// MetricsConfig selects which collectors report in the server status.
type MetricsConfig struct {
	MonitorCPU        bool `yaml:"cpu"`
	MonitorMemory     bool `yaml:"memory"`
	MonitorProcess    bool `yaml:"process"`
	MonitorGoroutines bool `yaml:"goroutines"`
	MonitorSessions   bool `yaml:"sessions"`
}

// MetricCollector defines the interface for collecting a specific metric.
type MetricCollector interface {
	Name() string                            // Name of the metric (e.g., "cpu", "sessions")
	Collect(ctx context.Context) interface{} // Collect the metric data
	IsEnabled(config *MetricsConfig) bool    // Check if the metric is enabled in the config
	Unit() string                            // Unit of the metric (e.g., "percentage", "bytes")
	Description() string                     // Description of the metric
}
