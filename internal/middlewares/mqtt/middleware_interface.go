package mqtt_middleware

import (
	"context"

	"github.com/benmeehan/pixie-bridge/internal/handlers"
)

// RequestMiddleware defines a generic contract for wrapping device request handling.
type RequestMiddleware interface {
	Init(params interface{}) error
	Handle(ctx context.Context, req handlers.Request) (handlers.Result, error)
	SetNext(next RequestMiddleware)
}
