package stickerkit

import (
	"image"
	"image/color"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	dark  = color.NRGBA{R: 40, G: 30, B: 90, A: 255}
	red   = color.NRGBA{R: 220, G: 20, B: 20, A: 255}
	blue  = color.NRGBA{R: 20, G: 40, B: 220, A: 255}
)

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// gridSheet draws rows×cols size×size blocks starting at margin with gap
// pixels between them on a white background.
func gridSheet(w, h, rows, cols, size, margin, gap int) *image.NRGBA {
	img := NewRaster(w, h, white)
	for r := range rows {
		for c := range cols {
			x := margin + c*(size+gap)
			y := margin + r*(size+gap)
			fillRect(img, image.Rect(x, y, x+size, y+size), dark)
		}
	}
	return img
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.NRGBAAt(x, y).A
}
