package stickerkit

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/karlmutch/errors"
	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

const (
	// FrameCount is the number of frames in a synthesized loop.
	FrameCount = 16
	// FrameDelay is the display time of each synthesized frame.
	FrameDelay = 60 * time.Millisecond
	// AlphaThreshold is the alpha below which a pixel becomes the key colour.
	AlphaThreshold = 128
)

// DefaultKey is the chroma-key colour standing in for transparency.
var DefaultKey = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// Frame is one RGBA animation frame prior to quantization.
type Frame struct {
	Image *image.NRGBA
	Delay time.Duration
	// Keyed is set when pixels equal to the key colour mean "transparent".
	Keyed bool
}

// AnimateOptions configures Synthesize.
type AnimateOptions struct {
	Frames         int
	Delay          time.Duration
	Key            color.NRGBA
	AlphaThreshold uint8
}

func DefaultAnimateOptions() AnimateOptions {
	return AnimateOptions{
		Frames:         FrameCount,
		Delay:          FrameDelay,
		Key:            DefaultKey,
		AlphaThreshold: AlphaThreshold,
	}
}

// ParseKey parses a "#rrggbb" chroma-key colour.
func ParseKey(hex string) (color.NRGBA, error) {
	c, errGo := colorful.Hex(hex)
	if errGo != nil {
		return color.NRGBA{}, kindError(KindInvalidInput, errors.Wrap(errGo).With("key", hex))
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Synthesize renders the sticker under effect. EffectNone yields a single
// pass-through frame holding the sticker's own buffer; every other effect
// yields opt.Frames keyed frames.
func Synthesize(ctx context.Context, s ProcessedSticker, effect Effect, opt AnimateOptions) ([]Frame, error) {
	if s.Image == nil {
		return nil, kindError(KindInvalidInput, errors.New("sticker has no image").With("id", s.ID))
	}
	if effect == EffectNone {
		return []Frame{{Image: s.Image}}, nil
	}
	if effect < 0 || int(effect) >= len(effectNames) {
		return nil, kindError(KindInvalidInput, errors.New("unknown effect").With("effect", int(effect)))
	}
	if opt.Frames <= 0 {
		opt.Frames = FrameCount
	}
	if opt.Delay <= 0 {
		opt.Delay = FrameDelay
	}
	if opt.AlphaThreshold == 0 {
		opt.AlphaThreshold = AlphaThreshold
	}
	if opt.Key.A == 0 {
		opt.Key = DefaultKey
	}
	opt.Key.A = 255

	src := ToRaster(s.Image)
	frames := make([]Frame, opt.Frames)
	for i := range opt.Frames {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		phase := float64(i) / float64(opt.Frames) * 2 * math.Pi
		frames[i] = Frame{
			Image: renderFrame(src, effect.motionAt(phase), opt),
			Delay: opt.Delay,
			Keyed: true,
		}
	}
	return frames, nil
}

func renderFrame(src *image.NRGBA, m motion, opt AnimateOptions) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	canvas := imaging.New(w, h, color.NRGBA{})
	if m.isIdentity() {
		xdraw.Draw(canvas, canvas.Rect, src, image.Point{}, xdraw.Over)
	} else {
		xdraw.BiLinear.Transform(canvas, m.affine(w, h), src, src.Rect, xdraw.Over, nil)
	}
	applyKey(canvas, opt.Key, opt.AlphaThreshold)
	return canvas
}

// applyKey replaces every pixel with alpha below threshold by the opaque key
// colour and makes the rest fully opaque, leaving only binary transparency
// for an indexed palette.
func applyKey(img *image.NRGBA, key color.NRGBA, threshold uint8) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		if pix[i+3] < threshold {
			pix[i], pix[i+1], pix[i+2] = key.R, key.G, key.B
		}
		pix[i+3] = 255
	}
}
