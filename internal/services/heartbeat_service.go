package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/metrics_collectors"
	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/pkg/mqtt"
)

// HeartbeatService publishes the retained bridge status at a fixed interval.
// The broker-side last will covers crashes; Stop publishes offline itself.
type HeartbeatService struct {
	PubTopic       string
	Interval       time.Duration
	QOS            int
	PublishTimeout time.Duration
	MqttClient     mqtt.MQTTClient
	Metrics        *metrics_collectors.MetricsRegistry
	Logger         zerolog.Logger

	now     func() time.Time
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeatService initializes a new HeartbeatService. metrics may be nil.
func NewHeartbeatService(pubTopic string, interval time.Duration, qos int, publishTimeout time.Duration,
	mqttClient mqtt.MQTTClient, metrics *metrics_collectors.MetricsRegistry, logger zerolog.Logger) *HeartbeatService {

	return &HeartbeatService{
		PubTopic:       pubTopic,
		Interval:       interval,
		QOS:            qos,
		PublishTimeout: publishTimeout,
		MqttClient:     mqttClient,
		Metrics:        metrics,
		Logger:         logger,
		now:            time.Now,
	}
}

// StatusPayload encodes a bare status message, used for the connection's last will.
func StatusPayload(status string, at time.Time) []byte {
	payload, _ := json.Marshal(models.ServerStatus{Status: status, Timestamp: at})
	return payload
}

// Start publishes an online status and launches the heartbeat loop.
func (h *HeartbeatService) Start() error {
	if h.ctx != nil {
		h.Logger.Warn().Msg("HeartbeatService is already running")
		return errors.New("heartbeat service is already running")
	}
	if h.Interval <= 0 {
		return errors.New("heartbeat interval must be positive")
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.started = h.now()
	h.publish(h.status(constants.StatusOnline))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runHeartbeatLoop()
	}()

	h.Logger.Info().Str("topic", h.PubTopic).Msg("HeartbeatService started successfully")
	return nil
}

// Stop stops the loop and replaces the retained status with offline.
func (h *HeartbeatService) Stop() error {
	if h.ctx == nil {
		h.Logger.Warn().Msg("HeartbeatService is not running")
		return errors.New("heartbeat service is not running")
	}

	h.cancel()
	h.wg.Wait()
	h.publish(models.ServerStatus{Status: constants.StatusOffline, Timestamp: h.now()})

	h.ctx = nil
	h.cancel = nil

	h.Logger.Info().Msg("HeartbeatService stopped successfully")
	return nil
}

func (h *HeartbeatService) runHeartbeatLoop() {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.publish(h.status(constants.StatusOnline))
		case <-h.ctx.Done():
			h.Logger.Info().Msg("HeartbeatService stopping gracefully")
			return
		}
	}
}

func (h *HeartbeatService) status(status string) models.ServerStatus {
	now := h.now()
	msg := models.ServerStatus{
		Status:        status,
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
	}
	if h.Metrics != nil {
		ctx, cancel := context.WithTimeout(h.ctx, h.Interval)
		msg.Metrics = h.Metrics.CollectAll(ctx)
		cancel()
	}
	return msg
}

func (h *HeartbeatService) publish(msg models.ServerStatus) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.Logger.Error().Err(err).Msg("Failed to serialize status message")
		return
	}

	token := h.MqttClient.Publish(h.PubTopic, byte(h.QOS), true, payload)
	if h.PublishTimeout > 0 {
		if !token.WaitTimeout(h.PublishTimeout) {
			h.Logger.Error().Dur("timeout", h.PublishTimeout).Msg("Timed out publishing status message")
			return
		}
	} else {
		token.Wait()
	}

	if err := token.Error(); err != nil {
		h.Logger.Error().Err(err).Msg("Failed to publish status message")
	} else {
		h.Logger.Debug().Str("status", msg.Status).Msg("Status published successfully")
	}
}
