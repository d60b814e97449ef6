package service_registry

import (
	"fmt"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/handlers"
	mqtt_middleware "github.com/benmeehan/pixie-bridge/internal/middlewares/mqtt"
	"github.com/benmeehan/pixie-bridge/internal/utils"
)

// InitializeMiddlewares builds the request middleware chain over table based on configuration.
// Recovery runs outermost so it also covers the other middlewares.
func (sr *ServiceRegistry) InitializeMiddlewares(config *utils.Config, table map[constants.RequestKind]handlers.Handler) (*mqtt_middleware.ChainedHandler, error) {
	var middlewares []mqtt_middleware.RequestMiddleware

	// Ordered middleware definitions
	middlewaresInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (mqtt_middleware.RequestMiddleware, error)
	}{
		{
			name:    constants.RECOVERY_MIDDLEWARE,
			enabled: config.Middlewares.Recovery.Enabled,
			constructor: func() (mqtt_middleware.RequestMiddleware, error) {
				return mqtt_middleware.NewRecoveryMiddleware(sr.Logger), nil
			},
		},
		{
			name:    constants.LOGGING_MIDDLEWARE,
			enabled: config.Middlewares.Logging.Enabled,
			constructor: func() (mqtt_middleware.RequestMiddleware, error) {
				return mqtt_middleware.NewLoggingMiddleware(sr.Logger), nil
			},
		},
		{
			name:    constants.TIMEOUT_MIDDLEWARE,
			enabled: true,
			constructor: func() (mqtt_middleware.RequestMiddleware, error) {
				mw := mqtt_middleware.NewTimeoutMiddleware(config.Router.HandlerTimeout)
				if err := mw.Init(nil); err != nil {
					return nil, fmt.Errorf("failed to initialize timeout middleware: %w", err)
				}
				return mw, nil
			},
		},
	}

	for _, mw := range middlewaresInOrder {
		if mw.enabled {
			middlewareInstance, err := mw.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to initialize %s middleware", mw.name)
				return nil, fmt.Errorf("failed to initialize %s middleware: %w", mw.name, err)
			}
			middlewares = append(middlewares, middlewareInstance)
			sr.Logger.Info().Str("middleware", mw.name).Msg("Middleware initialized")
		} else {
			sr.Logger.Debug().Str("middleware", mw.name).Msg("Middleware is disabled, skipping")
		}
	}

	chained := mqtt_middleware.NewChainedHandler(table, middlewares)
	sr.Logger.Info().Int("middleware_count", len(middlewares)).Msg("Middleware chain initialized")
	return chained, nil
}
