// Package release publishes firmware binaries for over-the-air updates.
package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/internal/store"
	"github.com/benmeehan/pixie-bridge/pkg/s3"
)

// Publisher uploads firmware and records the version row devices poll for.
type Publisher struct {
	firmware store.FirmwareStore
	storage  s3.ObjectStorageClient
	bucket   string
	logger   zerolog.Logger
}

func NewPublisher(firmware store.FirmwareStore, storage s3.ObjectStorageClient, bucket string, logger zerolog.Logger) *Publisher {
	return &Publisher{firmware: firmware, storage: storage, bucket: bucket, logger: logger}
}

// LatestVersion returns the newest published version, or 0 when none exists.
func (p *Publisher) LatestVersion(ctx context.Context) (int, error) {
	v, err := p.firmware.Latest(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.Version, nil
}

// Publish uploads the binary under name and records it as version.
// A version of 0 means one past the latest.
func (p *Publisher) Publish(ctx context.Context, r io.Reader, size int64, name string, version int, comments string) (*models.FirmwareVersion, error) {
	if name == "" || path.Base(name) != name {
		return nil, fmt.Errorf("%w: object name %q", models.ErrValidation, name)
	}
	if version < 0 {
		return nil, fmt.Errorf("%w: version %d", models.ErrValidation, version)
	}

	latest, err := p.LatestVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version = latest + 1
	}
	if version <= latest {
		return nil, fmt.Errorf("%w: version %d is not newer than %d", models.ErrValidation, version, latest)
	}

	if err := p.storage.EnsureBucket(ctx, p.bucket); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	written, err := p.storage.Upload(ctx, p.bucket, name, r, size, "application/octet-stream")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}

	var note *string
	if comments != "" {
		note = &comments
	}
	v, err := p.firmware.Create(ctx, version, name, note)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Int("version", v.Version).
		Str("object", name).
		Int64("bytes", written).
		Msg("Firmware published")
	return v, nil
}
