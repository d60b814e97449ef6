// Package handlers turns parsed device requests into response payloads.
// Handlers never publish; they return a Result and the router decides.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/internal/music"
	"github.com/benmeehan/pixie-bridge/internal/store"
	"github.com/benmeehan/pixie-bridge/internal/topics"
	"github.com/benmeehan/pixie-bridge/pkg/s3"
)

// Request is one device-initiated ask: the parsed topic and its raw payload.
type Request struct {
	topics.Request
	Payload []byte
}

// Result is a response ready to publish. Binary results are sent as-is,
// structured ones are JSON.
type Result struct {
	Payload []byte
	Binary  bool
}

// JSON marshals v into a structured Result.
func JSON(v interface{}) (Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal response: %w", err)
	}
	return Result{Payload: data}, nil
}

// Binary wraps a raw payload.
func Binary(data []byte) Result {
	return Result{Payload: data, Binary: true}
}

// Handler processes one request kind.
type Handler interface {
	Handle(ctx context.Context, req Request) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// DeviceRegistry is the subset of devices.Registry the handlers need.
type DeviceRegistry interface {
	RegisterByMAC(ctx context.Context, mac string) (*models.RegisterResponse, error)
	ConfigSnapshot(ctx context.Context, deviceID int64) (*models.ConfigResponse, error)
}

// Options configures Handlers.
type Options struct {
	PhotoBucket    string
	FirmwareBucket string
	PresignExpiry  time.Duration
	MaxImageBytes  int64
	HTTPClient     *http.Client
}

// Handlers holds the collaborators shared by every request kind.
type Handlers struct {
	registry DeviceRegistry
	devices  store.DeviceStore
	photos   store.PhotoStore
	firmware store.FirmwareStore
	player   music.Player
	storage  s3.ObjectStorageClient
	opts     Options
	logger   zerolog.Logger
}

func New(registry DeviceRegistry, devices store.DeviceStore, photos store.PhotoStore, firmware store.FirmwareStore,
	player music.Player, storage s3.ObjectStorageClient, opts Options, logger zerolog.Logger) *Handlers {
	if opts.PhotoBucket == "" {
		opts.PhotoBucket = constants.DefaultPhotoBucket
	}
	if opts.FirmwareBucket == "" {
		opts.FirmwareBucket = constants.DefaultFirmwareBucket
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = constants.DefaultPresignExpiry
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Handlers{
		registry: registry,
		devices:  devices,
		photos:   photos,
		firmware: firmware,
		player:   player,
		storage:  storage,
		opts:     opts,
		logger:   logger,
	}
}

// Table returns the one-shot dispatch table keyed by request kind.
func (h *Handlers) Table() map[constants.RequestKind]Handler {
	return map[constants.RequestKind]Handler{
		constants.KindRegister: HandlerFunc(h.Register),
		constants.KindSong:     HandlerFunc(h.Song),
		constants.KindCover:    HandlerFunc(h.Cover),
		constants.KindPhoto:    HandlerFunc(h.Photo),
		constants.KindOTA:      HandlerFunc(h.OTA),
		constants.KindConfig:   HandlerFunc(h.Config),
	}
}

// owner returns the owning user of a device, or ErrNothingToSend when unpaired.
func (h *Handlers) owner(ctx context.Context, deviceID int64) (int64, error) {
	d, err := h.devices.FindByID(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	if !d.IsPaired() {
		return 0, fmt.Errorf("%w: device %d has no owner", models.ErrNothingToSend, deviceID)
	}
	return *d.OwnerID, nil
}
