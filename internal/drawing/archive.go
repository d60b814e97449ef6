package drawing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/internal/store"
)

// ErrForbidden is returned when a user may not draw on a device.
var ErrForbidden = errors.New("drawing not allowed on device")

const maxTitleLength = 100

// Access decides whether a user may draw on a device.
type Access interface {
	CanDraw(ctx context.Context, deviceID, userID int64) (bool, error)
}

// Archive saves and restores canvases of drawing sessions.
type Archive struct {
	drawings store.DrawingStore
	access   Access
	engine   *Engine
	logger   zerolog.Logger
}

func NewArchive(drawings store.DrawingStore, access Access, engine *Engine, logger zerolog.Logger) *Archive {
	return &Archive{drawings: drawings, access: access, engine: engine, logger: logger}
}

// Save stores the live canvas of the device's session under title.
func (a *Archive) Save(ctx context.Context, deviceID, userID int64, title string) (*models.Drawing, error) {
	title = strings.TrimSpace(title)
	if len(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title is longer than %d characters", models.ErrValidation, maxTitleLength)
	}
	if err := a.authorize(ctx, deviceID, userID); err != nil {
		return nil, err
	}

	pixels, ok := a.engine.Canvas(deviceID)
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	d, err := a.drawings.Save(ctx, models.Drawing{DeviceID: deviceID, UserID: userID, Title: title, Pixels: pixels})
	if err != nil {
		return nil, err
	}
	a.logger.Info().Int64("device_id", deviceID).Int64("drawing_id", d.ID).Msg("Drawing saved")
	return d, nil
}

// Load returns a saved drawing of the device.
func (a *Archive) Load(ctx context.Context, deviceID, userID, drawingID int64) (*models.Drawing, error) {
	if err := a.authorize(ctx, deviceID, userID); err != nil {
		return nil, err
	}
	d, err := a.drawings.FindByID(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	if d.DeviceID != deviceID {
		return nil, models.ErrNotFound
	}
	return d, nil
}

// List returns the device's saved drawings, newest first.
func (a *Archive) List(ctx context.Context, deviceID, userID int64) ([]models.Drawing, error) {
	if err := a.authorize(ctx, deviceID, userID); err != nil {
		return nil, err
	}
	drawings, err := a.drawings.ListForDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if drawings == nil {
		drawings = []models.Drawing{}
	}
	return drawings, nil
}

// LatestCanvas returns the most recently saved canvas of the device, or nil
// when there is none.
func (a *Archive) LatestCanvas(ctx context.Context, deviceID int64) ([][]string, error) {
	d, err := a.drawings.Latest(ctx, deviceID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d.Pixels, nil
}

func (a *Archive) authorize(ctx context.Context, deviceID, userID int64) error {
	ok, err := a.access.CanDraw(ctx, deviceID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
