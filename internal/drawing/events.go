package drawing

import "github.com/benmeehan/pixie-bridge/internal/models"

// Client-to-server events.
const (
	EventJoinDevice  = "join_device"
	EventDrawPixel   = "draw_pixel"
	EventDrawStroke  = "draw_stroke"
	EventClearCanvas = "clear_canvas"
)

// Server-to-client events.
const (
	EventDrawingState  = "drawing_state"
	EventCanvasCleared = "canvas_cleared"
	EventUserJoined    = "user_joined"
	EventUserLeft      = "user_left"
	EventError         = "error"
)

// DrawingState is sent to a participant when they join.
type DrawingState struct {
	Pixels [][]string `json:"pixels"`
}

// PixelEvent is the broadcast form of an accepted draw_pixel.
type PixelEvent struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Tool   string `json:"tool"`
	Size   int    `json:"size"`
	UserID string `json:"userId"`
}

// StrokeEvent is the broadcast form of an accepted draw_stroke.
type StrokeEvent struct {
	Points []models.Point `json:"points"`
	Color  string         `json:"color"`
	Tool   string         `json:"tool"`
	UserID string         `json:"userId"`
}

// ClearedEvent is broadcast to every participant, the requester included.
type ClearedEvent struct {
	UserID string `json:"userId"`
}

// PresenceEvent announces joins and departures.
type PresenceEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ErrorEvent reports a rejected command without closing the connection.
type ErrorEvent struct {
	Message string `json:"message"`
}

// PixelCommand is the payload of draw_pixel.
type PixelCommand struct {
	DeviceID int64  `json:"deviceId"`
	X        *int   `json:"x"`
	Y        *int   `json:"y"`
	Color    string `json:"color"`
	Tool     string `json:"tool"`
	Size     int    `json:"size"`
}

// StrokeCommand is the payload of draw_stroke.
type StrokeCommand struct {
	DeviceID int64          `json:"deviceId"`
	Points   []models.Point `json:"points"`
	Color    string         `json:"color"`
	Tool     string         `json:"tool"`
}

// ClearCommand is the payload of clear_canvas.
type ClearCommand struct {
	DeviceID int64 `json:"deviceId"`
}
