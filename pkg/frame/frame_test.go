package frame

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSanitize tests diacritic stripping and newline handling.
func TestSanitize(t *testing.T) {
	assert.Equal(t, "Cafe", Sanitize("Café"))
	assert.Equal(t, "Emile", Sanitize("Émile"))
	assert.Equal(t, "Senor nino", Sanitize("Señor niño"))
	assert.Equal(t, "a\nb", Sanitize("a\nb"))
	assert.Equal(t, "ab", SanitizeTitle("a\nb"))
}

// TestPhoto_RoundTrip tests encoding then decoding a photo frame.
func TestPhoto_RoundTrip(t *testing.T) {
	pixels := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	data, err := EncodePhoto("Café", "Émile", pixels)
	require.NoError(t, err)

	assert.Equal(t, uint16(4), binary.BigEndian.Uint16(data[0:2]))
	assert.Equal(t, uint16(5), binary.BigEndian.Uint16(data[2:4]))

	p, err := DecodePhoto(data)
	require.NoError(t, err)
	assert.Equal(t, "Cafe", p.Title)
	assert.Equal(t, "Emile", p.Username)
	assert.Equal(t, pixels, p.Pixels)
}

// TestDecodePhoto_Truncated tests rejection of short payloads.
func TestDecodePhoto_Truncated(t *testing.T) {
	_, err := DecodePhoto([]byte{0x00})
	assert.ErrorIs(t, err, ErrFrameTruncated)

	// Header claims a 10-byte title but only 2 bytes follow.
	_, err = DecodePhoto([]byte{0x00, 0x0A, 0x00, 0x00, 'h', 'i'})
	assert.ErrorIs(t, err, ErrFrameTruncated)
}

// TestCover tests the fixed-size cover frame.
func TestCover(t *testing.T) {
	buf := make([]byte, CoverSize)
	buf[0] = 0xFF

	out, err := EncodeCover(buf)
	require.NoError(t, err)
	assert.Len(t, out, 8192)

	_, err = EncodeCover(buf[:100])
	assert.Error(t, err)

	_, err = DecodeCover(buf[:8191])
	assert.ErrorIs(t, err, ErrFrameTruncated)

	decoded, err := DecodeCover(out)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), decoded[0])
}
