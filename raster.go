package stickerkit

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// Decode reads an encoded raster (PNG, JPEG, GIF, ...) into a zero-origin
// NRGBA buffer. Any failure is reported as KindDecode.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, errGo := imaging.Decode(r)
	if errGo != nil {
		return nil, wrapError(KindDecode, errGo)
	}
	return ToRaster(img), nil
}

// DecodeBytes is Decode over an in-memory blob.
func DecodeBytes(b []byte) (*image.NRGBA, error) {
	if len(b) == 0 {
		return nil, newError(KindDecode, "empty image data")
	}
	return Decode(bytes.NewReader(b))
}

// ToRaster returns img as a zero-origin NRGBA buffer with Stride == 4*width.
// img itself is returned when it already has that layout.
func ToRaster(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	return imaging.Clone(img)
}

// NewRaster allocates a w×h buffer filled with c.
func NewRaster(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

// pixOffset locates pixel (x, y), counted from img.Rect.Min, in img.Pix.
func pixOffset(img *image.NRGBA, x, y int) int {
	return y*img.Stride + x*4
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
