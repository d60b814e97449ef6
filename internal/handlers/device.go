package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

// Register answers pixie/mac/{MAC}/request/register with the device id and pairing code.
func (h *Handlers) Register(ctx context.Context, req Request) (Result, error) {
	resp, err := h.registry.RegisterByMAC(ctx, req.MAC)
	if err != nil {
		return Result{}, err
	}
	return JSON(resp)
}

// Config answers with the device configuration snapshot.
func (h *Handlers) Config(ctx context.Context, req Request) (Result, error) {
	cfg, err := h.registry.ConfigSnapshot(ctx, req.DeviceID)
	if err != nil {
		return Result{}, err
	}
	return JSON(cfg)
}

// OTA answers with the latest firmware version and a short-lived download URL.
// The URL is signed per request and never stored.
func (h *Handlers) OTA(ctx context.Context, req Request) (Result, error) {
	latest, err := h.firmware.Latest(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: no firmware versions", models.ErrNothingToSend)
	}
	if err != nil {
		return Result{}, err
	}

	url, err := h.storage.PresignedGetURL(ctx, h.opts.FirmwareBucket, latest.ObjectKey, h.opts.PresignExpiry)
	if err != nil {
		return Result{}, fmt.Errorf("%w: presign %s: %v", models.ErrUpstreamUnavailable, latest.ObjectKey, err)
	}
	return JSON(models.OTAResponse{Version: latest.Version, URL: url})
}
