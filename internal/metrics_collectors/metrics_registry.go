package metrics_collectors

import (
	"context"
	"sort"
)

// MetricsRegistry holds the collectors reported with every status message.
type MetricsRegistry struct {
	collectors map[string]MetricCollector
}

// NewMetricsRegistry creates a new MetricsRegistry instance.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		collectors: make(map[string]MetricCollector),
	}
}

// Register adds collector if it is enabled by config.
func (r *MetricsRegistry) Register(collector MetricCollector, config *MetricsConfig) {
	if config != nil && !collector.IsEnabled(config) {
		return
	}
	r.collectors[collector.Name()] = collector
}

// Names returns the registered collector names in sorted order.
func (r *MetricsRegistry) Names() []string {
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectAll runs every collector and drops the ones that returned nothing.
func (r *MetricsRegistry) CollectAll(ctx context.Context) map[string]interface{} {
	out := make(map[string]interface{}, len(r.collectors))
	for name, c := range r.collectors {
		if v := c.Collect(ctx); v != nil {
			out[name] = v
		}
	}
	return out
}
