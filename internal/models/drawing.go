package models

import "time"

// Drawing is a saved copy of a device's shared canvas.
type Drawing struct {
	ID       int64  `json:"id"`
	DeviceID int64  `json:"pixie_id"`
	UserID   int64  `json:"created_by"`
	Title    string `json:"title"`

	// Pixels is the canvas as "#RRGGBB" strings, row-major.
	Pixels [][]string `json:"pixels,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
