package stickerkit

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/karlmutch/errors"
)

const (
	// CanvasSize is the edge length of every processed sticker.
	CanvasSize = 240
	// ContentBox bounds the scaled content inside the canvas.
	ContentBox = 220
)

// NormalizeOptions controls cropping and resampling of one region.
type NormalizeOptions struct {
	Tolerance  int
	CanvasSize int
	ContentBox int
	Filter     imaging.ResampleFilter
}

func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		Tolerance:  StickerTolerance,
		CanvasSize: CanvasSize,
		ContentBox: ContentBox,
		Filter:     imaging.Linear,
	}
}

// Normalize crops r out of sheet, removes the crop's background and fits the
// result, centred and aspect-preserving, into a transparent square canvas.
// sheet is not modified.
func Normalize(sheet *image.NRGBA, r Region, opt NormalizeOptions) (*image.NRGBA, error) {
	rect := r.Rect()
	if rect.Empty() || !rect.In(sheet.Rect) {
		return nil, kindError(KindInvalidInput, errors.New("region outside sheet").With("region", rect).With("sheet", sheet.Rect))
	}
	if opt.CanvasSize <= 0 {
		opt.CanvasSize = CanvasSize
	}
	if opt.ContentBox <= 0 || opt.ContentBox > opt.CanvasSize {
		opt.ContentBox = min(ContentBox, opt.CanvasSize)
	}

	crop := imaging.Crop(sheet, rect)
	RemoveBackground(crop, opt.Tolerance)

	sw, sh := fitSize(r.W, r.H, opt.ContentBox)
	scaled := imaging.Resize(crop, sw, sh, opt.Filter)

	canvas := imaging.New(opt.CanvasSize, opt.CanvasSize, color.NRGBA{})
	offset := image.Pt((opt.CanvasSize-sw)/2, (opt.CanvasSize-sh)/2)
	return imaging.Paste(canvas, scaled, offset), nil
}

// fitSize scales w×h by min(box/w, box/h), rounding to whole pixels.
func fitSize(w, h, box int) (int, int) {
	scale := math.Min(float64(box)/float64(w), float64(box)/float64(h))
	sw := clampInt(int(math.Round(float64(w)*scale)), 1, box)
	sh := clampInt(int(math.Round(float64(h)*scale)), 1, box)
	return sw, sh
}
