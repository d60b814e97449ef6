package service_registry

// Service is a long-running part of the bridge the registry starts and stops in order.
// Start must not block; Stop releases everything Start acquired.
type Service interface {
	Start() error
	Stop() error
}
