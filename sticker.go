package stickerkit

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/karlmutch/errors"
)

// ProcessedSticker is one normalized, background-free sticker.
type ProcessedSticker struct {
	// ID is "sticker_<index>", index being the sheet scan position.
	ID    string
	Index int
	// Image is a CanvasSize×CanvasSize NRGBA buffer with transparent padding.
	Image *image.NRGBA
}

// EncodePNG writes the sticker as a PNG.
func (s ProcessedSticker) EncodePNG(w io.Writer) error {
	if errGo := imaging.Encode(w, s.Image, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); errGo != nil {
		return wrapError(KindEncode, errGo)
	}
	return nil
}

// PNG returns the PNG encoding of the sticker.
func (s ProcessedSticker) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stickerID(index int) string {
	return fmt.Sprintf("sticker_%d", index)
}

// Options configures ExtractStickers.
type Options struct {
	// SheetTolerance is used for the coarse whole-sheet matte pass.
	SheetTolerance int
	// Segment configures region detection.
	Segment SegmentOptions
	// Normalize configures the per-sticker crop, fine matte and resample.
	Normalize NormalizeOptions
	// Workers bounds concurrent region normalization; 0 means GOMAXPROCS.
	Workers int
	// MaxSheetPixels rejects larger sheets; 0 disables the bound.
	MaxSheetPixels int
}

func DefaultOptions() Options {
	return Options{
		SheetTolerance: SheetTolerance,
		Segment:        DefaultSegmentOptions(),
		Normalize:      DefaultNormalizeOptions(),
		MaxSheetPixels: 64 << 20,
	}
}

// OptionsForCount returns DefaultOptions primed with the number of stickers
// the sheet was generated with (3, 6 or 9).
func OptionsForCount(count int) Options {
	opt := DefaultOptions()
	opt.Segment.ExpectedCount = count
	return opt
}

func checkSize(img image.Image, limit int) error {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return kindError(KindInvalidInput, errors.New("empty image").With("bounds", b))
	}
	if limit > 0 && b.Dx()*b.Dy() > limit {
		return kindError(KindInvalidInput, errors.New("sheet too large").With("bounds", b).With("limit", limit))
	}
	return nil
}

// CleanSheet returns a copy of sheet with the background removed using the
// coarse sheet tolerance.
func CleanSheet(ctx context.Context, sheet image.Image, opt Options) (*image.NRGBA, error) {
	if err := checkSize(sheet, opt.MaxSheetPixels); err != nil {
		return nil, err
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	out := imaging.Clone(sheet)
	RemoveBackground(out, opt.SheetTolerance)
	return out, nil
}

// ExtractStickers runs the full sheet pipeline: coarse matte, segmentation
// and per-region normalization. An empty result is not an error. A region
// that fails is logged and dropped; its siblings keep their IDs.
func ExtractStickers(ctx context.Context, sheet image.Image, opt Options) ([]ProcessedSticker, error) {
	start := time.Now()
	cleaned, err := CleanSheet(ctx, sheet, opt)
	if err != nil {
		return nil, err
	}

	regions := SegmentSheet(cleaned, opt.Segment)
	if len(regions) == 0 {
		logger.Warn("no sticker regions found", "bounds", cleaned.Rect)
		return []ProcessedSticker{}, nil
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	out := make([]ProcessedSticker, len(regions))
	errs := runIndexed(ctx, len(regions), opt.Workers, func(i int) error {
		img, err := Normalize(cleaned, regions[i], opt.Normalize)
		if err != nil {
			return err
		}
		out[i] = ProcessedSticker{ID: stickerID(i), Index: i, Image: img}
		return nil
	})

	stickers := make([]ProcessedSticker, 0, len(regions))
	for i, err := range errs {
		if err == nil {
			stickers = append(stickers, out[i])
			continue
		}
		if IsKind(err, KindCanceled) {
			return nil, err
		}
		logger.Warn("sticker dropped", "index", i, "region", regions[i], "err", err)
	}
	if logger.IsDebug() {
		logger.Debug("stickers extracted", "regions", len(regions), "stickers", len(stickers), "elapsed", time.Since(start))
	}
	return stickers, nil
}
