package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/handlers"
	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/internal/topics"
	"github.com/benmeehan/pixie-bridge/internal/utils"
	"github.com/benmeehan/pixie-bridge/pkg/mqtt"
)

// RequestHandler handles one parsed device request. The middleware chain implements it.
type RequestHandler interface {
	Handle(ctx context.Context, req handlers.Request) (handlers.Result, error)
}

// RouterService subscribes to device request topics, runs each request
// through the handler chain on a worker pool and publishes the result.
// Failed requests publish nothing; devices retry on their own timeout.
type RouterService struct {
	QOS            int
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
	MqttClient     mqtt.MQTTClient
	Handler        RequestHandler
	Logger         zerolog.Logger

	pool *utils.WorkerPool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRouterService initializes a new RouterService.
func NewRouterService(qos, workers, queueSize int, publishTimeout time.Duration,
	mqttClient mqtt.MQTTClient, handler RequestHandler, logger zerolog.Logger) *RouterService {

	return &RouterService{
		QOS:            qos,
		Workers:        workers,
		QueueSize:      queueSize,
		PublishTimeout: publishTimeout,
		MqttClient:     mqttClient,
		Handler:        handler,
		Logger:         logger,
	}
}

// Start subscribes to the typed and registration request filters.
func (r *RouterService) Start() error {
	if r.ctx != nil {
		r.Logger.Warn().Msg("RouterService is already running")
		return errors.New("router service is already running")
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.pool = utils.NewWorkerPool(r.Workers, r.QueueSize)
	r.pool.OnPanic = func(p interface{}) {
		r.Logger.Error().Interface("panic", p).Msg("Request worker panicked")
	}
	onMessage := r.messageHandler(r.ctx, r.pool)

	for _, filter := range []string{constants.TypedRequestFilter, constants.RegisterRequestFilter} {
		token := r.MqttClient.Subscribe(filter, byte(r.QOS), onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			r.Logger.Error().Err(err).Str("topic", filter).Msg("Failed to subscribe to request topic")
			r.shutdown()
			return fmt.Errorf("failed to subscribe to %s: %w", filter, err)
		}
	}

	r.Logger.Info().Str("pool", r.pool.String()).Msg("RouterService started successfully")
	return nil
}

// Stop unsubscribes, waits for in-flight requests and releases the workers.
func (r *RouterService) Stop() error {
	if r.ctx == nil {
		r.Logger.Warn().Msg("RouterService is not running")
		return errors.New("router service is not running")
	}

	token := r.MqttClient.Unsubscribe(constants.TypedRequestFilter, constants.RegisterRequestFilter)
	token.Wait()
	if err := token.Error(); err != nil {
		r.Logger.Warn().Err(err).Msg("Failed to unsubscribe from request topics")
	}
	r.shutdown()

	r.Logger.Info().Msg("RouterService stopped successfully")
	return nil
}

func (r *RouterService) shutdown() {
	r.cancel()
	r.pool.Shutdown()
	r.ctx = nil
	r.cancel = nil
}

// messageHandler parses the topic and queues the request on pool.
// Unrecognized topics are dropped without dispatch.
func (r *RouterService) messageHandler(ctx context.Context, pool *utils.WorkerPool) mqttLib.MessageHandler {
	return func(_ mqttLib.Client, msg mqttLib.Message) {
		parsed, err := topics.Parse(msg.Topic())
		if err != nil {
			r.Logger.Debug().Err(err).Str("topic", msg.Topic()).Msg("Ignoring unrecognized topic")
			return
		}

		payload := make([]byte, len(msg.Payload()))
		copy(payload, msg.Payload())
		req := handlers.Request{Request: parsed, Payload: payload}

		if err := pool.Submit(func() { r.Dispatch(ctx, req) }); err != nil {
			r.Logger.Warn().Err(err).Str("topic", req.Topic).Msg("Dropping request")
		}
	}
}

// Dispatch handles one request and publishes its result on the response topic.
func (r *RouterService) Dispatch(ctx context.Context, req handlers.Request) {
	res, err := r.Handler.Handle(ctx, req)
	if err != nil {
		if !errors.Is(err, models.ErrNothingToSend) {
			r.Logger.Error().Err(err).Str("topic", req.Topic).Msg("Request failed, not responding")
		}
		return
	}

	topic := req.ResponseTopic()
	token := r.MqttClient.Publish(topic, byte(r.QOS), false, res.Payload)
	if r.PublishTimeout > 0 && !token.WaitTimeout(r.PublishTimeout) {
		r.Logger.Error().Str("topic", topic).Msg("Timed out publishing response")
		return
	}
	if r.PublishTimeout <= 0 {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		r.Logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish response")
		return
	}
	r.Logger.Debug().Str("topic", topic).Int("bytes", len(res.Payload)).Msg("Response published")
}
