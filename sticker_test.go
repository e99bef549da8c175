package stickerkit

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"
)

func TestExtractStickersGrid(t *testing.T) {
	sheet := gridSheet(600, 400, 2, 3, 150, 30, 45)

	got, err := ExtractStickers(context.Background(), sheet, DefaultOptions())
	if err != nil {
		t.Fatalf("ExtractStickers() error = %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("ExtractStickers() = %d stickers, want 6", len(got))
	}
	for i, s := range got {
		if want := fmt.Sprintf("sticker_%d", i); s.ID != want || s.Index != i {
			t.Errorf("sticker %d ID = %q (index %d), want %q", i, s.ID, s.Index, want)
		}
		if b := s.Image.Bounds(); b.Dx() != CanvasSize || b.Dy() != CanvasSize {
			t.Errorf("sticker %d size = %v, want %dx%d", i, b.Size(), CanvasSize, CanvasSize)
		}
		if a := alphaAt(s.Image, 0, 0); a != 0 {
			t.Errorf("sticker %d corner alpha = %d, want 0", i, a)
		}
		if a := alphaAt(s.Image, 120, 120); a != 255 {
			t.Errorf("sticker %d centre alpha = %d, want 255", i, a)
		}
	}
}

func TestExtractStickersDoesNotModifySheet(t *testing.T) {
	sheet := gridSheet(600, 200, 1, 3, 150, 25, 45)
	before := bytes.Clone(sheet.Pix)
	if _, err := ExtractStickers(context.Background(), sheet, OptionsForCount(3)); err != nil {
		t.Fatalf("ExtractStickers() error = %v", err)
	}
	if !bytes.Equal(before, sheet.Pix) {
		t.Error("ExtractStickers() modified the input sheet")
	}
}

func TestExtractStickersBlank(t *testing.T) {
	sheet := NewRaster(300, 200, white)
	got, err := ExtractStickers(context.Background(), sheet, DefaultOptions())
	if err != nil {
		t.Fatalf("ExtractStickers() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ExtractStickers(blank) = %#v, want empty non-nil slice", got)
	}
}

func TestExtractStickersSizeBound(t *testing.T) {
	sheet := NewRaster(100, 100, white)
	opt := DefaultOptions()
	opt.MaxSheetPixels = 100*100 - 1
	if _, err := ExtractStickers(context.Background(), sheet, opt); !IsKind(err, KindInvalidInput) {
		t.Errorf("ExtractStickers() error = %v, want %v", err, KindInvalidInput)
	}
	if _, err := ExtractStickers(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0)), opt); !IsKind(err, KindInvalidInput) {
		t.Errorf("ExtractStickers(empty) error = %v, want %v", err, KindInvalidInput)
	}
}

func TestExtractStickersCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sheet := gridSheet(600, 400, 2, 3, 150, 30, 45)
	if _, err := ExtractStickers(ctx, sheet, DefaultOptions()); !IsKind(err, KindCanceled) {
		t.Errorf("ExtractStickers() error = %v, want %v", err, KindCanceled)
	}
}

func TestExtractStickersOffsetOrigin(t *testing.T) {
	// SubImage keeps the parent's coordinates; the pipeline must rebase it.
	parent := gridSheet(700, 300, 1, 3, 150, 80, 45)
	sheet := parent.SubImage(image.Rect(50, 50, 700, 300))
	got, err := ExtractStickers(context.Background(), sheet, DefaultOptions())
	if err != nil {
		t.Fatalf("ExtractStickers() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("ExtractStickers() = %d stickers, want 3", len(got))
	}
}

func TestCleanSheet(t *testing.T) {
	sheet := gridSheet(300, 200, 1, 1, 100, 50, 0)
	got, err := CleanSheet(context.Background(), sheet, DefaultOptions())
	if err != nil {
		t.Fatalf("CleanSheet() error = %v", err)
	}
	if a := alphaAt(got, 5, 5); a != 0 {
		t.Errorf("background alpha = %d, want 0", a)
	}
	if a := alphaAt(got, 100, 100); a != 255 {
		t.Errorf("content alpha = %d, want 255", a)
	}
	if a := alphaAt(sheet, 5, 5); a != 255 {
		t.Error("CleanSheet() modified its input")
	}
}

func TestProcessedStickerPNG(t *testing.T) {
	s := ProcessedSticker{ID: stickerID(0), Image: NewRaster(CanvasSize, CanvasSize, red)}
	b, err := s.PNG()
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if img.Bounds().Dx() != CanvasSize {
		t.Errorf("decoded width = %d, want %d", img.Bounds().Dx(), CanvasSize)
	}
}

func TestDecodeBytesInvalid(t *testing.T) {
	if _, err := DecodeBytes([]byte("not an image")); !IsKind(err, KindDecode) {
		t.Errorf("DecodeBytes() error = %v, want %v", err, KindDecode)
	}
	if _, err := DecodeBytes(nil); !IsKind(err, KindDecode) {
		t.Errorf("DecodeBytes(nil) error = %v, want %v", err, KindDecode)
	}
}

func TestCleanSheetRGBAInput(t *testing.T) {
	sheet := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for i := range sheet.Pix {
		sheet.Pix[i] = 255
	}
	for y := 30; y < 50; y++ {
		for x := 50; x < 70; x++ {
			sheet.Set(x, y, dark)
		}
	}
	got, err := CleanSheet(context.Background(), sheet, DefaultOptions())
	if err != nil {
		t.Fatalf("CleanSheet() error = %v", err)
	}
	if got.Rect != image.Rect(0, 0, 120, 80) || got.Stride != 4*120 {
		t.Errorf("CleanSheet() layout = %v stride %d", got.Rect, got.Stride)
	}
	if a := alphaAt(got, 0, 0); a != 0 {
		t.Errorf("background alpha = %d, want 0", a)
	}
	if a := alphaAt(got, 60, 40); a != 255 {
		t.Errorf("content alpha = %d, want 255", a)
	}
	if sheet.RGBAAt(0, 0).A != 255 {
		t.Error("CleanSheet() modified its input")
	}
}
