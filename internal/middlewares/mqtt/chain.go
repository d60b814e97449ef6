package mqtt_middleware

import (
	"context"
	"fmt"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/handlers"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

// ChainedHandler runs a request through a middleware chain and then the dispatch table.
type ChainedHandler struct {
	middlewares []RequestMiddleware
	direct      *directHandler
}

// NewChainedHandler creates a new chained handler over table.
func NewChainedHandler(table map[constants.RequestKind]handlers.Handler, middlewares []RequestMiddleware) *ChainedHandler {
	direct := &directHandler{table: table}
	// Chain middlewares
	for i := 0; i < len(middlewares)-1; i++ {
		middlewares[i].SetNext(middlewares[i+1])
	}
	if len(middlewares) > 0 {
		middlewares[len(middlewares)-1].SetNext(direct)
	}
	return &ChainedHandler{
		middlewares: middlewares,
		direct:      direct,
	}
}

// Init initializes all middlewares in the chain.
func (c *ChainedHandler) Init(params interface{}) error {
	for _, mw := range c.middlewares {
		if err := mw.Init(params); err != nil {
			return fmt.Errorf("failed to init middleware: %w", err)
		}
	}
	return nil
}

// Handle sends a request through the middleware chain.
func (c *ChainedHandler) Handle(ctx context.Context, req handlers.Request) (handlers.Result, error) {
	if len(c.middlewares) == 0 {
		return c.direct.Handle(ctx, req)
	}
	return c.middlewares[0].Handle(ctx, req)
}

// SetNext implements the RequestMiddleware interface (no-op for the chain entry point).
func (c *ChainedHandler) SetNext(next RequestMiddleware) {}

// directHandler is the end of the chain: it dispatches by request kind.
type directHandler struct {
	table map[constants.RequestKind]handlers.Handler
}

func (d *directHandler) Init(_ interface{}) error {
	return nil
}

func (d *directHandler) SetNext(_ RequestMiddleware) {}

func (d *directHandler) Handle(ctx context.Context, req handlers.Request) (handlers.Result, error) {
	h, ok := d.table[req.Kind]
	if !ok {
		return handlers.Result{}, fmt.Errorf("%w: no handler for kind %q", models.ErrValidation, req.Kind)
	}
	return h.Handle(ctx, req)
}
