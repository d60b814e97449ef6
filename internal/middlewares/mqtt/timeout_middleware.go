package mqtt_middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/benmeehan/pixie-bridge/internal/handlers"
)

// TimeoutMiddleware bounds each request with a deadline.
type TimeoutMiddleware struct {
	next    RequestMiddleware
	timeout time.Duration
}

func NewTimeoutMiddleware(timeout time.Duration) *TimeoutMiddleware {
	return &TimeoutMiddleware{timeout: timeout}
}

// Init accepts an optional time.Duration overriding the constructor timeout.
func (m *TimeoutMiddleware) Init(params interface{}) error {
	if d, ok := params.(time.Duration); ok && d > 0 {
		m.timeout = d
	}
	if m.timeout <= 0 {
		return fmt.Errorf("timeout middleware needs a positive timeout, got %s", m.timeout)
	}
	return nil
}

func (m *TimeoutMiddleware) SetNext(next RequestMiddleware) {
	m.next = next
}

func (m *TimeoutMiddleware) Handle(ctx context.Context, req handlers.Request) (handlers.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.Handle(ctx, req)
}
