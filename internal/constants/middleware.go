package constants

// Handler middleware names, in chain order.
const (
	RECOVERY_MIDDLEWARE = "recovery"
	LOGGING_MIDDLEWARE  = "logging"
	TIMEOUT_MIDDLEWARE  = "timeout"
)

// Server status values published on ServerStatusTopic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)
