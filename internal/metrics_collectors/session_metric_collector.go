package metrics_collectors

import "context"

// SessionCounter reports live drawing sessions.
type SessionCounter interface {
	ActiveSessions() int
}

// SessionMetricCollector reports how many devices are currently in draw mode.
type SessionMetricCollector struct {
	Sessions SessionCounter
}

func (s *SessionMetricCollector) Name() string {
	return "drawing_sessions"
}

func (s *SessionMetricCollector) Collect(ctx context.Context) interface{} {
	if s.Sessions == nil {
		return nil
	}
	return s.Sessions.ActiveSessions()
}

func (s *SessionMetricCollector) IsEnabled(config *MetricsConfig) bool {
	return config.MonitorSessions
}

func (s *SessionMetricCollector) Unit() string {
	return "count"
}

func (s *SessionMetricCollector) Description() string {
	return "Number of devices with an active drawing session."
}
