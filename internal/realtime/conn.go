package realtime

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

var (
	// ErrConnClosed is returned by Send after the connection is gone.
	ErrConnClosed = errors.New("connection closed")

	// ErrSlowConsumer is returned when the outbound buffer is full. The connection is closed.
	ErrSlowConsumer = errors.New("outbound buffer full")
)

// Envelope is the wire form of every realtime event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Conn is one authenticated websocket. It implements drawing.Participant.
type Conn struct {
	id   string
	user models.User
	ws   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// draw grants on this connection, by device, with their expiry
	mu      sync.Mutex
	allowed map[int64]time.Time
}

func newConn(ws *websocket.Conn, user models.User, buffer int) *Conn {
	return &Conn{
		id:      uuid.NewString(),
		user:    user,
		ws:      ws,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
		allowed: make(map[int64]time.Time),
	}
}

func (c *Conn) ConnID() string   { return c.id }
func (c *Conn) UserID() string   { return strconv.FormatInt(c.user.ID, 10) }
func (c *Conn) Username() string { return c.user.Username }

// Send queues an event without blocking.
func (c *Conn) Send(event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.close()
		return ErrSlowConsumer
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) isAllowed(deviceID int64, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.allowed[deviceID]
	return ok && now.Before(until)
}

func (c *Conn) allow(deviceID int64, until time.Time) {
	c.mu.Lock()
	c.allowed[deviceID] = until
	c.mu.Unlock()
}

func (c *Conn) revoke(deviceID int64) {
	c.mu.Lock()
	delete(c.allowed, deviceID)
	c.mu.Unlock()
}

// writePump is the only writer to ws.
func (c *Conn) writePump(writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
