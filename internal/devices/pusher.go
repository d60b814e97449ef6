package devices

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

// Publisher is the broker surface the pusher needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// DevicePusher sends server-initiated actions to a device.
type DevicePusher interface {
	UpdateInfo(deviceID int64, cfg models.ConfigResponse) error
	UpdatePhoto(deviceID, photoID int64) error
	FactoryReset(deviceID int64) error
	EnterDrawMode(deviceID int64) error
	ExitDrawMode(deviceID int64) error
	DrawPixel(deviceID int64, push models.DrawPixelPush) error
	DrawStroke(deviceID int64, push models.DrawStrokePush) error
	ClearCanvas(deviceID int64, userID string) error
}

// Pusher publishes action-tagged JSON to pixie/{id}.
type Pusher struct {
	client  Publisher
	qos     byte
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPusher creates a Pusher. A zero timeout waits for the broker indefinitely.
func NewPusher(client Publisher, qos byte, timeout time.Duration, logger zerolog.Logger) *Pusher {
	return &Pusher{client: client, qos: qos, timeout: timeout, logger: logger}
}

// DeviceTopic returns the push topic of a device.
func DeviceTopic(deviceID int64) string {
	return constants.TopicRoot + "/" + strconv.FormatInt(deviceID, 10)
}

func (p *Pusher) push(deviceID int64, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize push: %w", err)
	}

	topic := DeviceTopic(deviceID)
	token := p.client.Publish(topic, p.qos, false, data)
	if p.timeout > 0 {
		if !token.WaitTimeout(p.timeout) {
			return fmt.Errorf("%w: publish to %s timed out", models.ErrUpstreamUnavailable, topic)
		}
	} else {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: publish to %s: %v", models.ErrUpstreamUnavailable, topic, err)
	}

	p.logger.Debug().Str("topic", topic).Int("bytes", len(data)).Msg("Pushed action to device")
	return nil
}

func (p *Pusher) UpdateInfo(deviceID int64, cfg models.ConfigResponse) error {
	return p.push(deviceID, models.UpdateInfoPush{Action: constants.ActionUpdateInfo, ConfigResponse: cfg})
}

func (p *Pusher) UpdatePhoto(deviceID, photoID int64) error {
	return p.push(deviceID, models.UpdatePhotoPush{Action: constants.ActionUpdatePhoto, ID: photoID})
}

func (p *Pusher) FactoryReset(deviceID int64) error {
	return p.push(deviceID, models.ActionPush{Action: constants.ActionFactoryReset})
}

func (p *Pusher) EnterDrawMode(deviceID int64) error {
	return p.push(deviceID, models.ActionPush{Action: constants.ActionEnterDrawMode})
}

func (p *Pusher) ExitDrawMode(deviceID int64) error {
	return p.push(deviceID, models.ActionPush{Action: constants.ActionExitDrawMode})
}

func (p *Pusher) DrawPixel(deviceID int64, push models.DrawPixelPush) error {
	push.Action = constants.ActionDrawPixel
	return p.push(deviceID, push)
}

func (p *Pusher) DrawStroke(deviceID int64, push models.DrawStrokePush) error {
	push.Action = constants.ActionDrawStroke
	return p.push(deviceID, push)
}

func (p *Pusher) ClearCanvas(deviceID int64, userID string) error {
	return p.push(deviceID, models.ClearCanvasPush{Action: constants.ActionClearCanvas, UserID: userID})
}
