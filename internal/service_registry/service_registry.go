package service_registry

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/metrics_collectors"
	"github.com/benmeehan/pixie-bridge/internal/services"
	"github.com/benmeehan/pixie-bridge/internal/utils"
	"github.com/benmeehan/pixie-bridge/pkg/mqtt"
)

// ServiceRegistry manages the lifecycle of the bridge services.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	metrics     *metrics_collectors.MetricsRegistry
	Logger      zerolog.Logger
}

// Components are the long-lived pieces built in main that services wrap.
type Components struct {
	Handler services.RequestHandler // Middleware chain over the request table
	Drawing Service                 // Drawing engine sweeps
	HTTP    Service                 // HTTP and websocket server
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, metrics *metrics_collectors.MetricsRegistry, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]Service),
		mqttClient: mqttClient,
		metrics:    metrics,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Names returns the registered services in start order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices registers the enabled services based on configuration.
// The heartbeat goes last so "online" is only published once the bridge can serve.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, components Components) error {
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    "drawing",
			enabled: config.Services.Drawing.Enabled,
			constructor: func() (Service, error) {
				if components.Drawing == nil {
					return nil, errors.New("drawing engine is not configured")
				}
				return components.Drawing, nil
			},
		},
		{
			name:    "router",
			enabled: config.Services.Router.Enabled,
			constructor: func() (Service, error) {
				if components.Handler == nil {
					return nil, errors.New("request handler is not configured")
				}
				return services.NewRouterService(
					config.MQTT.QOS,
					config.Router.Workers,
					config.Router.QueueSize,
					config.MQTT.PublishTimeout,
					sr.mqttClient,
					components.Handler,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "http",
			enabled: config.Services.HTTP.Enabled,
			constructor: func() (Service, error) {
				if components.HTTP == nil {
					return nil, errors.New("http server is not configured")
				}
				return components.HTTP, nil
			},
		},
		{
			name:    "heartbeat",
			enabled: config.Services.Heartbeat.Enabled,
			constructor: func() (Service, error) {
				return services.NewHeartbeatService(
					constants.ServerStatusTopic,
					config.Services.Heartbeat.Interval,
					config.Services.Heartbeat.QOS,
					config.MQTT.PublishTimeout,
					sr.mqttClient,
					sr.metrics,
					sr.Logger,
				), nil
			},
		},
	}

	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
