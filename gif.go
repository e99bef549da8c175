package stickerkit

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"time"

	"github.com/karlmutch/errors"

	"github.com/setanarut/stickerkit/palette"
)

const (
	// MaxColors is the largest local colour table the container allows.
	MaxColors = 256
	// KeyDistance is the per-channel slack when looking for the key colour
	// in a quantized palette.
	KeyDistance = 5

	// LoopForever and LoopOnce follow image/gif LoopCount semantics; any
	// positive value repeats the animation that many extra times.
	LoopForever = 0
	LoopOnce    = -1
)

// PalettedFrame is a quantized frame with its own local palette.
type PalettedFrame struct {
	Image *image.Paletted
	Delay time.Duration
	// TransparentIndex is the palette slot shown as transparent, or -1.
	TransparentIndex int
}

// EncodeOptions configures quantization and GIF container output.
type EncodeOptions struct {
	// Colors caps each local palette, at most MaxColors.
	Colors int
	// Method picks a quantizer from the palette package.
	Method palette.Method
	// Quantizer, when set, overrides Method.
	Quantizer draw.Quantizer
	// Key and KeyDistance locate the transparency slot of keyed frames.
	Key         color.NRGBA
	KeyDistance int
	// Dither applies Floyd-Steinberg to unkeyed frames.
	Dither bool
	// LoopCount uses image/gif semantics: LoopForever, LoopOnce or n.
	LoopCount int
	// Workers bounds concurrent frame quantization; 0 means GOMAXPROCS.
	Workers int
}

func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Colors:      MaxColors,
		Method:      palette.MethodMedianCut,
		Key:         DefaultKey,
		KeyDistance: KeyDistance,
		LoopCount:   LoopForever,
	}
}

func (opt EncodeOptions) quantizer() (draw.Quantizer, error) {
	if opt.Quantizer != nil {
		return opt.Quantizer, nil
	}
	switch opt.Method {
	case palette.MethodMedianCut, palette.MethodKMeans, palette.MethodDominantColor:
		return palette.Quantizer(opt.Method), nil
	}
	return nil, kindError(KindEncoderUnavailable, errors.New("no quantizer for method").With("method", int(opt.Method)))
}

// transparentKey is a palette entry that image/gif treats as the
// transparency slot (alpha 0) while still writing the key's RGB into the
// colour table.
type transparentKey struct {
	R, G, B uint8
}

func (c transparentKey) RGBA() (r, g, b, a uint32) {
	return uint32(c.R) * 0x101, uint32(c.G) * 0x101, uint32(c.B) * 0x101, 0
}

// QuantizeFrame reduces f to a local palette. For keyed frames the key
// colour must survive quantization to become the transparency slot;
// otherwise the frame is emitted fully opaque.
func QuantizeFrame(f Frame, opt EncodeOptions) (PalettedFrame, error) {
	if f.Image == nil {
		return PalettedFrame{}, newError(KindInvalidInput, "frame has no image")
	}
	q, err := opt.quantizer()
	if err != nil {
		return PalettedFrame{}, err
	}
	n := opt.Colors
	if n <= 0 || n > MaxColors {
		n = MaxColors
	}
	dist := opt.KeyDistance
	if dist <= 0 {
		dist = KeyDistance
	}

	pal := q.Quantize(make(color.Palette, 0, n), f.Image)
	if len(pal) == 0 {
		return PalettedFrame{}, newError(KindEncoderUnavailable, "quantizer produced an empty palette")
	}
	if len(pal) > n {
		pal = pal[:n]
	}
	for i, c := range pal {
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		nc.A = 255
		pal[i] = nc
	}

	trans := -1
	if f.Keyed {
		key := opt.Key
		key.A = 255
		if trans = palette.FindKey(pal, key, dist); trans >= 0 {
			pal[trans] = key
		} else {
			logger.Warn("key colour lost in quantization, frame left opaque", "colors", len(pal))
		}
	}

	b := f.Image.Bounds()
	pm := image.NewPaletted(b, pal)
	if opt.Dither && !f.Keyed {
		draw.FloydSteinberg.Draw(pm, b, f.Image, b.Min)
	} else {
		draw.Draw(pm, b, f.Image, b.Min, draw.Src)
	}
	if trans >= 0 {
		c := pal[trans].(color.NRGBA)
		pm.Palette[trans] = transparentKey{R: c.R, G: c.G, B: c.B}
	}
	return PalettedFrame{Image: pm, Delay: f.Delay, TransparentIndex: trans}, nil
}

// QuantizeFrames quantizes frames concurrently and returns them in their
// original order. The first failing frame aborts the whole sequence.
func QuantizeFrames(ctx context.Context, frames []Frame, opt EncodeOptions) ([]PalettedFrame, error) {
	if len(frames) == 0 {
		return nil, newError(KindInvalidInput, "no frames")
	}
	if _, err := opt.quantizer(); err != nil {
		return nil, err
	}
	out := make([]PalettedFrame, len(frames))
	errs := runIndexed(ctx, len(frames), opt.Workers, func(i int) (err error) {
		out[i], err = QuantizeFrame(frames[i], opt)
		return err
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeGIF writes the frames, in order, as an animated GIF with one local
// colour table per frame.
func EncodeGIF(w io.Writer, frames []PalettedFrame, loopCount int) error {
	if len(frames) == 0 {
		return newError(KindInvalidInput, "no frames")
	}
	anim := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		Disposal:  make([]byte, len(frames)),
		LoopCount: loopCount,
	}
	for i, f := range frames {
		anim.Image[i] = f.Image
		// GIF delays are in hundredths of a second.
		anim.Delay[i] = int(f.Delay / (10 * time.Millisecond))
		if f.TransparentIndex >= 0 {
			anim.Disposal[i] = gif.DisposalBackground
		}
	}
	if errGo := gif.EncodeAll(w, anim); errGo != nil {
		return kindError(KindEncode, errors.Wrap(errGo).With("frames", len(frames)))
	}
	return nil
}

// WriteGIF quantizes frames and encodes them to w.
func WriteGIF(ctx context.Context, w io.Writer, frames []Frame, opt EncodeOptions) error {
	start := time.Now()
	paletted, err := QuantizeFrames(ctx, frames, opt)
	if err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}
	if err := EncodeGIF(w, paletted, opt.LoopCount); err != nil {
		return err
	}
	logger.Debug("gif written", "frames", len(frames), "elapsed", time.Since(start))
	return nil
}

// WriteAnimation animates s with effect and writes the result to w. With
// EffectNone the sticker's PNG is written unchanged and no GIF is produced.
func WriteAnimation(ctx context.Context, w io.Writer, s ProcessedSticker, effect Effect, aopt AnimateOptions, eopt EncodeOptions) error {
	if effect == EffectNone {
		return s.EncodePNG(w)
	}
	frames, err := Synthesize(ctx, s, effect, aopt)
	if err != nil {
		return err
	}
	if aopt.Key.A != 0 {
		eopt.Key = aopt.Key
	}
	return WriteGIF(ctx, w, frames, eopt)
}

// AnimateSticker is WriteAnimation into memory.
func AnimateSticker(ctx context.Context, s ProcessedSticker, effect Effect) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteAnimation(ctx, &buf, s, effect, DefaultAnimateOptions(), DefaultEncodeOptions()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
