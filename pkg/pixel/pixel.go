package pixel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrImageDecode is returned when the source image cannot be decoded or has no dimensions.
var ErrImageDecode = errors.New("image decode error")

// Decode reads an encoded image (JPEG, PNG, GIF or WebP).
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no dimensions", ErrImageDecode)
	}
	return img, nil
}

// SquareThumbnail center-crops img to its shorter side and scales the result to size x size.
// The excess is removed symmetrically; non-square sources are never letterboxed.
func SquareThumbnail(img image.Image, size int) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrImageDecode)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: undetermined dimensions %dx%d", ErrImageDecode, w, h)
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", size)
	}

	side := min(w, h)
	left := (w - side) / 2
	top := (h - side) / 2
	crop := image.Rect(b.Min.X+left, b.Min.Y+top, b.Min.X+left+side, b.Min.Y+top+side)

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst, nil
}

// ToRGB565 quantizes one pixel. Fully transparent pixels are treated as white;
// partial transparency is not blended. The bit layout is read directly by the
// display hardware: blue in the top five bits, red in the middle six, green at the bottom.
func ToRGB565(r, g, b, a uint8) uint16 {
	if a == 0 {
		r, g, b = 0xFF, 0xFF, 0xFF
	}
	return uint16(b&0xF8)<<8 | uint16(r&0xFC)<<3 | uint16(g>>3)
}

// ColorMatrix converts every pixel of img into a row-major matrix of 16-bit colors.
func ColorMatrix(img *image.NRGBA) [][]uint16 {
	b := img.Bounds()
	matrix := make([][]uint16, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := make([]uint16, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			row[x] = ToRGB565(c.R, c.G, c.B, c.A)
		}
		matrix[y] = row
	}
	return matrix
}

// PackedBuffer serializes matrix big-endian, two bytes per pixel, row-major.
func PackedBuffer(matrix [][]uint16) []byte {
	n := 0
	for _, row := range matrix {
		n += len(row)
	}
	out := make([]byte, 0, n*2)
	for _, row := range matrix {
		for _, v := range row {
			out = binary.BigEndian.AppendUint16(out, v)
		}
	}
	return out
}

// Transcode decodes data and returns its size x size color matrix.
func Transcode(data []byte, size int) ([][]uint16, error) {
	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb, err := SquareThumbnail(img, size)
	if err != nil {
		return nil, err
	}
	return ColorMatrix(thumb), nil
}
