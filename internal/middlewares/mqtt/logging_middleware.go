package mqtt_middleware

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/handlers"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

// LoggingMiddleware logs the outcome and latency of every request.
type LoggingMiddleware struct {
	next   RequestMiddleware
	logger zerolog.Logger
	now    func() time.Time
}

func NewLoggingMiddleware(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, now: time.Now}
}

func (m *LoggingMiddleware) Init(_ interface{}) error {
	return nil
}

func (m *LoggingMiddleware) SetNext(next RequestMiddleware) {
	m.next = next
}

func (m *LoggingMiddleware) Handle(ctx context.Context, req handlers.Request) (handlers.Result, error) {
	start := m.now()
	res, err := m.next.Handle(ctx, req)

	var event *zerolog.Event
	switch {
	case err == nil:
		event = m.logger.Debug().Int("bytes", len(res.Payload)).Bool("binary", res.Binary)
	case errors.Is(err, models.ErrNothingToSend):
		event = m.logger.Debug().Str("reason", err.Error())
	default:
		event = m.logger.Warn().Err(err)
	}
	event.
		Str("topic", req.Topic).
		Str("kind", string(req.Kind)).
		Dur("elapsed", m.now().Sub(start)).
		Msg("Device request handled")
	return res, err
}
