package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/pkg/frame"
	"github.com/benmeehan/pixie-bridge/pkg/pixel"
)

// Photo answers with a binary photo frame. The body may name a photo by id,
// otherwise index selects among the owner's visible photos, newest first.
func (h *Handlers) Photo(ctx context.Context, req Request) (Result, error) {
	var body models.PhotoRequest
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &body); err != nil {
			return Result{}, fmt.Errorf("%w: photo request body: %v", models.ErrValidation, err)
		}
	}

	photo, err := h.selectPhoto(ctx, req.DeviceID, body)
	if err != nil {
		return Result{}, err
	}

	pixels, err := h.photoPixels(ctx, photo)
	if err != nil {
		return Result{}, err
	}

	buf, err := frame.EncodePhoto(photo.Title, photo.Username, pixel.PackedBuffer(pixels))
	if err != nil {
		return Result{}, err
	}
	return Binary(buf), nil
}

func (h *Handlers) selectPhoto(ctx context.Context, deviceID int64, body models.PhotoRequest) (*models.Photo, error) {
	if body.ID != nil {
		photo, err := h.photos.FindByID(ctx, *body.ID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: photo %d", models.ErrNothingToSend, *body.ID)
		}
		return photo, err
	}

	owner, err := h.owner(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	photos, err := h.photos.ListVisibleTo(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(photos) == 0 {
		return nil, fmt.Errorf("%w: no photos for device %d", models.ErrNothingToSend, deviceID)
	}

	index := 0
	if body.Index != nil {
		index = *body.Index
	}
	i := index % len(photos)
	if i < 0 {
		i += len(photos)
	}
	return &photos[i], nil
}

// photoPixels returns the cached matrix or builds it from the stored original.
// A failed cache write is logged and the freshly built matrix is still used.
func (h *Handlers) photoPixels(ctx context.Context, photo *models.Photo) ([][]uint16, error) {
	if isFullMatrix(photo.Pixels) {
		return photo.Pixels, nil
	}
	if photo.ObjectKey == "" {
		return nil, fmt.Errorf("%w: photo %d has no object", models.ErrNothingToSend, photo.ID)
	}

	data, err := h.storage.Download(ctx, h.opts.PhotoBucket, photo.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", models.ErrUpstreamUnavailable, photo.ObjectKey, err)
	}
	matrix, err := pixel.Transcode(data, constants.CanvasSize)
	if err != nil {
		return nil, err
	}

	if err := h.photos.SavePixels(ctx, photo.ID, matrix); err != nil {
		h.logger.Warn().Err(err).Int64("photo_id", photo.ID).Msg("Failed to cache photo pixels")
	}
	return matrix, nil
}

func isFullMatrix(m [][]uint16) bool {
	if len(m) != constants.CanvasSize {
		return false
	}
	for _, row := range m {
		if len(row) != constants.CanvasSize {
			return false
		}
	}
	return true
}
