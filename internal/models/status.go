package models

import "time"

// ServerStatus is the retained message describing bridge health.
type ServerStatus struct {
	Status        string                 `json:"status"`
	Timestamp     time.Time              `json:"timestamp"`
	UptimeSeconds int64                  `json:"uptime_seconds,omitempty"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
}
