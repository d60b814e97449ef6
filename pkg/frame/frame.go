package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CoverSize is the byte length of a cover-art frame: 64x64 pixels, two bytes each.
const CoverSize = 64 * 64 * 2

const headerSize = 4

// ErrFrameTruncated is returned when a payload is shorter than its header claims.
var ErrFrameTruncated = errors.New("frame truncated")

var combiningMarks = runes.In(&unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036F, Stride: 1}},
})

// Sanitize decomposes s and strips combining diacritical marks,
// so "Café" becomes "Cafe".
func Sanitize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SanitizeTitle is Sanitize with newlines removed.
func SanitizeTitle(s string) string {
	return strings.ReplaceAll(Sanitize(s), "\n", "")
}

// Photo is the decoded form of a photo frame.
type Photo struct {
	Title    string
	Username string
	Pixels   []byte
}

// EncodePhoto builds [titleLen u16BE][usernameLen u16BE][title][username][pixels].
// Text fields are sanitized before their lengths are measured.
func EncodePhoto(title, username string, pixels []byte) ([]byte, error) {
	t := []byte(SanitizeTitle(title))
	u := []byte(Sanitize(username))
	if len(t) > math.MaxUint16 || len(u) > math.MaxUint16 {
		return nil, fmt.Errorf("frame text field too long: title=%d username=%d", len(t), len(u))
	}

	out := make([]byte, 0, headerSize+len(t)+len(u)+len(pixels))
	out = binary.BigEndian.AppendUint16(out, uint16(len(t)))
	out = binary.BigEndian.AppendUint16(out, uint16(len(u)))
	out = append(out, t...)
	out = append(out, u...)
	out = append(out, pixels...)
	return out, nil
}

// DecodePhoto parses a frame produced by EncodePhoto.
func DecodePhoto(data []byte) (*Photo, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrFrameTruncated, len(data), headerSize)
	}
	tl := int(binary.BigEndian.Uint16(data[0:2]))
	ul := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data) < headerSize+tl+ul {
		return nil, fmt.Errorf("%w: %d bytes, header declares %d", ErrFrameTruncated, len(data), headerSize+tl+ul)
	}

	body := data[headerSize:]
	pixels := make([]byte, len(body)-tl-ul)
	copy(pixels, body[tl+ul:])
	return &Photo{
		Title:    string(body[:tl]),
		Username: string(body[tl : tl+ul]),
		Pixels:   pixels,
	}, nil
}

// EncodeCover validates that pixels is exactly one packed 64x64 frame.
func EncodeCover(pixels []byte) ([]byte, error) {
	if len(pixels) != CoverSize {
		return nil, fmt.Errorf("cover frame must be %d bytes, got %d", CoverSize, len(pixels))
	}
	out := make([]byte, CoverSize)
	copy(out, pixels)
	return out, nil
}

// DecodeCover rejects buffers shorter than CoverSize and returns the first CoverSize bytes.
func DecodeCover(data []byte) ([]byte, error) {
	if len(data) < CoverSize {
		return nil, fmt.Errorf("%w: cover has %d bytes, want %d", ErrFrameTruncated, len(data), CoverSize)
	}
	return data[:CoverSize], nil
}
