package drawing

import (
	"sync"
	"time"

	"github.com/benmeehan/pixie-bridge/internal/constants"
)

// Participant is one connected human editor.
type Participant interface {
	// ConnID identifies the connection; a user may reconnect under a new one.
	ConnID() string
	UserID() string
	Username() string
	Send(event string, data interface{}) error
}

// Session is the shared canvas of one device.
type Session struct {
	deviceID int64

	mu sync.Mutex
	// participants is keyed by connection, so one user may hold several tabs.
	participants map[string]Participant
	canvas       [][]string
	lastActivity time.Time
	closed       bool
}

func newSession(deviceID int64, now time.Time) *Session {
	return &Session{
		deviceID:     deviceID,
		participants: make(map[string]Participant),
		canvas:       blankCanvas(),
		lastActivity: now,
	}
}

func blankCanvas() [][]string {
	c := make([][]string, constants.CanvasSize)
	for y := range c {
		row := make([]string, constants.CanvasSize)
		for x := range row {
			row[x] = constants.BlankColor
		}
		c[y] = row
	}
	return c
}

// snapshot copies the canvas. Callers hold s.mu.
func (s *Session) snapshot() [][]string {
	out := make([][]string, len(s.canvas))
	for y, row := range s.canvas {
		out[y] = append([]string(nil), row...)
	}
	return out
}

// others lists participants except the connection connID. Callers hold s.mu.
func (s *Session) others(connID string) []Participant {
	out := make([]Participant, 0, len(s.participants))
	for id, p := range s.participants {
		if id != connID {
			out = append(out, p)
		}
	}
	return out
}

// all lists every participant. Callers hold s.mu.
func (s *Session) all() []Participant {
	out := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	return out
}

// paint sets a size x size block around (x, y), clipped to the canvas.
// Even sizes extend one cell further toward the lower corner. Callers hold s.mu.
func (s *Session) paint(x, y, size int, color string) {
	start := func(c int) int { return c - size/2 }
	for py := start(y); py < start(y)+size; py++ {
		if py < 0 || py >= constants.CanvasSize {
			continue
		}
		for px := start(x); px < start(x)+size; px++ {
			if px < 0 || px >= constants.CanvasSize {
				continue
			}
			s.canvas[py][px] = color
		}
	}
}
