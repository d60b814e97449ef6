package pixel

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestToRGB565_TransparentIsWhite tests that fully transparent pixels quantize like opaque white.
func TestToRGB565_TransparentIsWhite(t *testing.T) {
	white := ToRGB565(255, 255, 255, 255)
	assert.Equal(t, uint16(0xFFFF), white)
	assert.Equal(t, white, ToRGB565(0, 0, 0, 0))
	assert.Equal(t, white, ToRGB565(12, 200, 7, 0))
}

// TestToRGB565_BitLayout tests the channel placement for primaries.
func TestToRGB565_BitLayout(t *testing.T) {
	assert.Equal(t, uint16(0xF800), ToRGB565(0, 0, 255, 255))
	assert.Equal(t, uint16(0x07E0), ToRGB565(255, 0, 0, 255))
	assert.Equal(t, uint16(0x001F), ToRGB565(0, 255, 0, 255))
	// Partial transparency is not blended.
	assert.Equal(t, uint16(0), ToRGB565(0, 0, 0, 10))
}

// TestPackedBuffer_BigEndian tests length and byte order of the packed buffer.
func TestPackedBuffer_BigEndian(t *testing.T) {
	matrix := [][]uint16{{0x1234, 0xABCD}, {0x0001, 0xFF00}}
	buf := PackedBuffer(matrix)

	require.Len(t, buf, 8)
	assert.Equal(t, []byte{0x12, 0x34, 0xAB, 0xCD, 0x00, 0x01, 0xFF, 0x00}, buf)
}

// TestSquareThumbnail_CropsBeforeScaling tests that a wide image is center-cropped, not letterboxed.
func TestSquareThumbnail_CropsBeforeScaling(t *testing.T) {
	// 30x10: red band, blue center, green band.
	src := image.NewNRGBA(image.Rect(0, 0, 30, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 30; x++ {
			c := color.NRGBA{R: 255, A: 255}
			switch {
			case x >= 10 && x < 20:
				c = color.NRGBA{B: 255, A: 255}
			case x >= 20:
				c = color.NRGBA{G: 255, A: 255}
			}
			src.SetNRGBA(x, y, c)
		}
	}

	thumb, err := SquareThumbnail(src, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, thumb.Bounds().Dx())
	assert.Equal(t, 4, thumb.Bounds().Dy())
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, color.NRGBA{B: 255, A: 255}, thumb.NRGBAAt(x, y))
		}
	}
}

// TestSquareThumbnail_EmptyImage tests that an image with no dimensions is rejected.
func TestSquareThumbnail_EmptyImage(t *testing.T) {
	_, err := SquareThumbnail(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 64)
	assert.True(t, errors.Is(err, ErrImageDecode))
}

// TestTranscode_PNG tests a full decode-crop-quantize pass.
func TestTranscode_PNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			src.SetNRGBA(x, y, color.NRGBA{})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	matrix, err := Transcode(buf.Bytes(), 64)
	require.NoError(t, err)
	require.Len(t, matrix, 64)
	for _, row := range matrix {
		require.Len(t, row, 64)
		for _, v := range row {
			assert.Equal(t, uint16(0xFFFF), v)
		}
	}
	assert.Len(t, PackedBuffer(matrix), 64*64*2)
}

// TestTranscode_Garbage tests that undecodable input reports ErrImageDecode.
func TestTranscode_Garbage(t *testing.T) {
	_, err := Transcode([]byte("not an image"), 64)
	assert.ErrorIs(t, err, ErrImageDecode)
}
