package mqtt_middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/handlers"
)

// RecoveryMiddleware turns a handler panic into an error.
type RecoveryMiddleware struct {
	next   RequestMiddleware
	logger zerolog.Logger
}

func NewRecoveryMiddleware(logger zerolog.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

func (m *RecoveryMiddleware) Init(_ interface{}) error {
	return nil
}

func (m *RecoveryMiddleware) SetNext(next RequestMiddleware) {
	m.next = next
}

func (m *RecoveryMiddleware) Handle(ctx context.Context, req handlers.Request) (res handlers.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("topic", req.Topic).
				Str("kind", string(req.Kind)).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Handler panicked")
			res, err = handlers.Result{}, fmt.Errorf("handler for %s panicked: %v", req.Kind, r)
		}
	}()
	return m.next.Handle(ctx, req)
}
