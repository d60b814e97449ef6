package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/benmeehan/pixie-bridge/internal/models"
)

// DeviceStore persists device records.
type DeviceStore interface {
	FindByID(ctx context.Context, id int64) (*models.Device, error)
	FindByMAC(ctx context.Context, mac string) (*models.Device, error)
	FindByCode(ctx context.Context, code string) (*models.Device, error)
	Create(ctx context.Context, d models.Device) (*models.Device, error)
	SetCode(ctx context.Context, id int64, code string) error
	Claim(ctx context.Context, id, ownerID int64, name, code string) (*models.Device, error)
	UpdateConfig(ctx context.Context, id int64, patch models.ConfigPatch) (*models.Device, error)
}

// PhotoStore reads photo records and caches their pixel matrices.
type PhotoStore interface {
	FindByID(ctx context.Context, id int64) (*models.Photo, error)
	ListVisibleTo(ctx context.Context, userID int64) ([]models.Photo, error)
	CountVisibleTo(ctx context.Context, userID int64) (int, error)
	SavePixels(ctx context.Context, photoID int64, pixels [][]uint16) error
}

// DrawingStore persists saved canvases.
type DrawingStore interface {
	Save(ctx context.Context, d models.Drawing) (*models.Drawing, error)
	FindByID(ctx context.Context, id int64) (*models.Drawing, error)
	Latest(ctx context.Context, deviceID int64) (*models.Drawing, error)
	ListForDevice(ctx context.Context, deviceID int64) ([]models.Drawing, error)
}

// FirmwareStore reads and records firmware versions.
type FirmwareStore interface {
	Latest(ctx context.Context) (*models.FirmwareVersion, error)
	Create(ctx context.Context, version int, objectKey string, comments *string) (*models.FirmwareVersion, error)
}

// CredentialStore reads and refreshes music service tokens.
type CredentialStore interface {
	FindByUser(ctx context.Context, userID int64) (*models.MusicCredentials, error)
	UpdateAccessToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error
}

// UserStore resolves identity provider subjects to public users.
type UserStore interface {
	FindByAuthID(ctx context.Context, authID string) (*models.User, error)
}

// Open connects to postgres and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	return db, nil
}

// wrapErr maps sql.ErrNoRows to models.ErrNotFound and everything else to models.ErrUpstreamUnavailable.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrUpstreamUnavailable, err)
}
