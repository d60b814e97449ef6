// Package realtime serves the drawing channel: one websocket per human
// editor, JSON {event, data} envelopes, dispatched to the drawing engine.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/drawing"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

// Engine is the drawing engine surface the hub drives.
type Engine interface {
	Join(deviceID int64, p drawing.Participant) error
	DrawPixel(p drawing.Participant, cmd drawing.PixelCommand) error
	DrawStroke(p drawing.Participant, cmd drawing.StrokeCommand) error
	ClearCanvas(p drawing.Participant, cmd drawing.ClearCommand) error
	Leave(p drawing.Participant)
}

// Access decides whether a user may draw on a device.
type Access interface {
	CanDraw(ctx context.Context, deviceID, userID int64) (bool, error)
}

// Options tunes connection keep-alive and buffering.
type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
	AccessTimeout  time.Duration

	// AccessTTL bounds how long a draw grant is reused before CanDraw is asked again.
	AccessTTL time.Duration

	// CheckOrigin is passed to the upgrader. Nil allows any origin.
	CheckOrigin func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 << 10
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.AccessTimeout <= 0 {
		o.AccessTimeout = 5 * time.Second
	}
	if o.AccessTTL <= 0 {
		o.AccessTTL = 30 * time.Second
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
	return o
}

// Hub tracks live connections.
type Hub struct {
	engine   Engine
	access   Access
	opts     Options
	upgrader websocket.Upgrader
	conns    cmap.ConcurrentMap[string, *Conn]
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHub(engine Engine, access Access, opts Options, logger zerolog.Logger) *Hub {
	opts = opts.withDefaults()
	return &Hub{
		engine: engine,
		access: access,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		conns:  cmap.New[*Conn](),
		logger: logger,
		now:    time.Now,
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	return h.conns.Count()
}

// ServeHTTP upgrades an already authenticated request and serves it until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, user models.User) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	h.Serve(r.Context(), ws, user)
}

// Serve runs the read loop of ws on the calling goroutine.
// On return the user has left every session and the socket is closed.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, user models.User) {
	c := newConn(ws, user, h.opts.SendBuffer)
	h.conns.Set(c.id, c)
	log := h.logger.With().Str("conn_id", c.id).Int64("user_id", user.ID).Logger()
	log.Info().Msg("Realtime client connected")

	pingPeriod := h.opts.PongWait * 9 / 10
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(h.opts.WriteWait, pingPeriod)
	}()

	h.readPump(ctx, c, log)

	c.close()
	<-writerDone
	h.engine.Leave(c)
	h.conns.Remove(c.id)
	_ = ws.Close()
	log.Info().Msg("Realtime client disconnected")
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	for item := range h.conns.IterBuffered() {
		item.Val.close()
		_ = item.Val.ws.Close()
	}
}

func (h *Hub) readPump(ctx context.Context, c *Conn, log zerolog.Logger) {
	c.ws.SetReadLimit(h.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("Realtime read failed")
			}
			return
		}
		select {
		case <-c.done:
			return
		default:
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = c.Send(drawing.EventError, drawing.ErrorEvent{Message: "Malformed message"})
			continue
		}
		if err := h.dispatch(ctx, c, env); err != nil {
			log.Debug().Err(err).Str("event", env.Event).Msg("Realtime command rejected")
			_ = c.Send(drawing.EventError, drawing.ErrorEvent{Message: errorMessage(env.Event, err)})
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Conn, env Envelope) error {
	switch env.Event {
	case drawing.EventJoinDevice:
		deviceID, err := parseDeviceID(env.Data)
		if err != nil {
			return err
		}
		if err := h.authorize(ctx, c, deviceID, true); err != nil {
			return err
		}
		return h.engine.Join(deviceID, c)

	case drawing.EventDrawPixel:
		var cmd drawing.PixelCommand
		if err := decode(env.Data, &cmd); err != nil {
			return err
		}
		if err := h.authorize(ctx, c, cmd.DeviceID, false); err != nil {
			return err
		}
		return h.engine.DrawPixel(c, cmd)

	case drawing.EventDrawStroke:
		var cmd drawing.StrokeCommand
		if err := decode(env.Data, &cmd); err != nil {
			return err
		}
		if err := h.authorize(ctx, c, cmd.DeviceID, false); err != nil {
			return err
		}
		return h.engine.DrawStroke(c, cmd)

	case drawing.EventClearCanvas:
		var cmd drawing.ClearCommand
		if err := decode(env.Data, &cmd); err != nil {
			return err
		}
		if err := h.authorize(ctx, c, cmd.DeviceID, false); err != nil {
			return err
		}
		return h.engine.ClearCanvas(c, cmd)
	}
	return fmt.Errorf("%w: unknown event %q", models.ErrValidation, env.Event)
}

// errNotAllowed is returned when the user may not draw on a device.
var errNotAllowed = errors.New("not allowed to draw on this device")

// authorize checks access for the connection and device. A grant is reused
// until AccessTTL passes unless recheck is set.
func (h *Hub) authorize(ctx context.Context, c *Conn, deviceID int64, recheck bool) error {
	if !recheck && c.isAllowed(deviceID, h.now()) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.opts.AccessTimeout)
	defer cancel()

	ok, err := h.access.CanDraw(ctx, deviceID, c.user.ID)
	if err != nil {
		return err
	}
	if !ok {
		c.revoke(deviceID)
		return errNotAllowed
	}
	c.allow(deviceID, h.now().Add(h.opts.AccessTTL))
	return nil
}

// parseDeviceID accepts a bare number or {"deviceId": n}.
func parseDeviceID(data json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil && id > 0 {
		return id, nil
	}
	var obj struct {
		DeviceID int64 `json:"deviceId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.DeviceID > 0 {
		return obj.DeviceID, nil
	}
	return 0, fmt.Errorf("%w: invalid device id", models.ErrValidation)
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing payload", models.ErrValidation)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

// errorMessage is the short text shown to the user.
func errorMessage(event string, err error) string {
	switch {
	case errors.Is(err, models.ErrRateLimitExceeded):
		return "Rate limit exceeded"
	case errors.Is(err, models.ErrSessionNotFound):
		return "Drawing session not found"
	case errors.Is(err, errNotAllowed), errors.Is(err, models.ErrNotFound):
		return "Not allowed to draw on this device"
	case errors.Is(err, models.ErrValidation):
		return err.Error()
	}
	return fmt.Sprintf("Failed to process %s", event)
}
