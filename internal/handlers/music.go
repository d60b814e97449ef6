package handlers

import (
	"context"
	"fmt"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/pkg/frame"
	http_utils "github.com/benmeehan/pixie-bridge/pkg/httpUtils"
	"github.com/benmeehan/pixie-bridge/pkg/pixel"
)

// Song answers with the owner's current track id, "" when nothing is playing.
func (h *Handlers) Song(ctx context.Context, req Request) (Result, error) {
	owner, err := h.owner(ctx, req.DeviceID)
	if err != nil {
		return Result{}, err
	}
	id, err := h.player.CurrentTrackID(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	return JSON(models.SongResponse{ID: id})
}

// Cover answers with the current album art as a packed 64x64 RGB565 buffer.
// Nothing is sent when nothing is playing or the track has no artwork.
func (h *Handlers) Cover(ctx context.Context, req Request) (Result, error) {
	owner, err := h.owner(ctx, req.DeviceID)
	if err != nil {
		return Result{}, err
	}
	url, err := h.player.CoverURL(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	if url == "" {
		return Result{}, fmt.Errorf("%w: no artwork for device %d", models.ErrNothingToSend, req.DeviceID)
	}

	data, err := http_utils.Fetch(ctx, h.opts.HTTPClient, url, h.opts.MaxImageBytes)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	matrix, err := pixel.Transcode(data, constants.CanvasSize)
	if err != nil {
		return Result{}, err
	}
	buf, err := frame.EncodeCover(pixel.PackedBuffer(matrix))
	if err != nil {
		return Result{}, err
	}
	return Binary(buf), nil
}
