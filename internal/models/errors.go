package models

import (
	"errors"

	"github.com/benmeehan/pixie-bridge/pkg/frame"
	"github.com/benmeehan/pixie-bridge/pkg/pixel"
)

var (
	// ErrImageDecode is returned when a source image has no determinable dimensions.
	ErrImageDecode = pixel.ErrImageDecode

	// ErrFrameTruncated is returned when a binary payload is shorter than its header claims.
	ErrFrameTruncated = frame.ErrFrameTruncated

	// ErrValidation covers out-of-range coordinates, colors, brush sizes and malformed topics.
	ErrValidation = errors.New("validation error")

	// ErrRateLimitExceeded is returned when a fixed window has no capacity left.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrSessionNotFound is returned for draw commands against a device without an active session.
	ErrSessionNotFound = errors.New("drawing session not found")

	// ErrUpstreamUnavailable wraps datastore, object storage and music service failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrConfiguration is fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNothingToSend means the handler succeeded but has no response for the device.
	ErrNothingToSend = errors.New("nothing to send")
)
