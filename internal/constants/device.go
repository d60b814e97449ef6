package constants

import "time"

const (
	// CanvasSize is the edge length of the device display in pixels.
	CanvasSize = 64

	// CoverFrameSize is the byte length of a packed 64x64 RGB565 frame.
	CoverFrameSize = CanvasSize * CanvasSize * 2

	// PairingCodeLength is the number of characters in a pairing code.
	PairingCodeLength = 4

	// DefaultDeviceName is given to devices created by registration.
	DefaultDeviceName = "Pixie"

	DefaultPicturesOnQueue   = 5
	DefaultBrightness        = 50
	DefaultSecsBetweenPhotos = 30
)

const (
	// DefaultPresignExpiry bounds the lifetime of firmware download URLs.
	DefaultPresignExpiry = time.Hour

	// DefaultPhotoBucket and DefaultFirmwareBucket name the object storage buckets.
	DefaultPhotoBucket    = "photos"
	DefaultFirmwareBucket = "versions"
)
