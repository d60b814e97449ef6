package models

import "time"

// Photo is a photo record. ObjectKey points into object storage.
type Photo struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"user_id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	ObjectKey string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`

	// Pixels is the cached 64x64 RGB565 matrix, row-major. Nil when not cached yet.
	Pixels [][]uint16 `json:"photo_pixels,omitempty"`
}

// FirmwareVersion describes a firmware build stored in object storage.
type FirmwareVersion struct {
	ID        int64     `json:"id"`
	Version   int       `json:"version"`
	ObjectKey string    `json:"url"`
	Comments  *string   `json:"comments,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MusicCredentials holds a user's music service tokens.
type MusicCredentials struct {
	ID           int64
	UserID       int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}
