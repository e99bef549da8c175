package stickerkit

import (
	"image"
	"reflect"
	"testing"
)

func TestSegmentSheetGrid(t *testing.T) {
	sheet := gridSheet(600, 400, 2, 3, 150, 30, 45)
	got := SegmentSheet(sheet, DefaultSegmentOptions())

	want := []Region{
		{X: 30, Y: 30, W: 150, H: 150},
		{X: 225, Y: 30, W: 150, H: 150},
		{X: 420, Y: 30, W: 150, H: 150},
		{X: 30, Y: 225, W: 150, H: 150},
		{X: 225, Y: 225, W: 150, H: 150},
		{X: 420, Y: 225, W: 150, H: 150},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SegmentSheet() = %v, want %v", got, want)
	}
}

func TestSegmentSheetBlank(t *testing.T) {
	sheet := NewRaster(300, 200, white)
	if got := SegmentSheet(sheet, DefaultSegmentOptions()); len(got) != 0 {
		t.Errorf("SegmentSheet(blank) = %v, want none", got)
	}
}

func TestSegmentSheetDropsSpecks(t *testing.T) {
	sheet := NewRaster(300, 200, white)
	fillRect(sheet, image.Rect(100, 100, 105, 105), dark)
	// A long thin line is a band of height 3 and is dropped too.
	fillRect(sheet, image.Rect(10, 20, 290, 23), dark)
	if got := SegmentSheet(sheet, DefaultSegmentOptions()); len(got) != 0 {
		t.Errorf("SegmentSheet(specks) = %v, want none", got)
	}
}

func TestSegmentSheetBandTouchingEdge(t *testing.T) {
	sheet := NewRaster(200, 100, white)
	fillRect(sheet, image.Rect(40, 60, 160, 100), dark)
	got := SegmentSheet(sheet, DefaultSegmentOptions())
	want := []Region{{X: 40, Y: 60, W: 120, H: 40}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SegmentSheet() = %v, want %v", got, want)
	}
}

func TestSegmentSheetThresholdIsStrict(t *testing.T) {
	sheet := NewRaster(100, 100, white)
	// Exactly the threshold on every channel is not content.
	for y := 20; y < 80; y++ {
		for x := 20; x < 80; x++ {
			off := sheet.PixOffset(x, y)
			sheet.Pix[off], sheet.Pix[off+1], sheet.Pix[off+2] = 230, 230, 230
		}
	}
	if got := SegmentSheet(sheet, DefaultSegmentOptions()); len(got) != 0 {
		t.Errorf("SegmentSheet(threshold) = %v, want none", got)
	}
}

func TestRuns(t *testing.T) {
	profile := make([]bool, 60)
	for i := 2; i < 13; i++ { // 11 long, kept
		profile[i] = true
	}
	for i := 20; i < 30; i++ { // 10 long, dropped
		profile[i] = true
	}
	for i := 45; i < 60; i++ { // open at the end
		profile[i] = true
	}
	got := runs(profile, MinBandSize)
	want := [][2]int{{2, 13}, {45, 60}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("runs() = %v, want %v", got, want)
	}
}

func TestSegmentSheetComponentFallback(t *testing.T) {
	// The first sticker has a detached speech bubble, so the projection pass
	// sees four columns. With three expected stickers the component pass
	// folds the bubble into its neighbour.
	sheet := NewRaster(600, 200, white)
	fillRect(sheet, image.Rect(20, 20, 150, 170), dark)
	fillRect(sheet, image.Rect(155, 40, 175, 70), dark)
	fillRect(sheet, image.Rect(220, 20, 370, 170), dark)
	fillRect(sheet, image.Rect(420, 20, 570, 170), dark)

	opt := DefaultSegmentOptions()
	if got := SegmentSheet(sheet, opt); len(got) != 4 {
		t.Fatalf("projection regions = %d, want 4", len(got))
	}

	opt.ExpectedCount = 3
	got := SegmentSheet(sheet, opt)
	want := []Region{
		{X: 20, Y: 20, W: 155, H: 150},
		{X: 220, Y: 20, W: 150, H: 150},
		{X: 420, Y: 20, W: 150, H: 150},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SegmentSheet(expected=3) = %v, want %v", got, want)
	}
}

func TestSegmentSheetExpectedCountMatches(t *testing.T) {
	sheet := gridSheet(600, 400, 2, 3, 150, 30, 45)
	opt := DefaultSegmentOptions()
	opt.ExpectedCount = 6
	if got := SegmentSheet(sheet, opt); len(got) != 6 {
		t.Errorf("SegmentSheet() = %d regions, want 6", len(got))
	}
}

func TestGridShape(t *testing.T) {
	tests := []struct {
		n          int
		rows, cols int
	}{
		{3, 1, 3},
		{6, 2, 3},
		{9, 3, 3},
		{4, 2, 2},
		{1, 1, 1},
	}
	for _, tt := range tests {
		rows, cols := gridShape(tt.n)
		if rows != tt.rows || cols != tt.cols {
			t.Errorf("gridShape(%d) = %d×%d, want %d×%d", tt.n, rows, cols, tt.rows, tt.cols)
		}
	}
}

func TestSegmentSheetSubImage(t *testing.T) {
	parent := NewRaster(400, 300, white)
	fillRect(parent, image.Rect(10, 10, 40, 40), dark)
	fillRect(parent, image.Rect(150, 120, 250, 200), dark)
	sub := parent.SubImage(image.Rect(100, 100, 300, 250)).(*image.NRGBA)

	got := SegmentSheet(sub, DefaultSegmentOptions())
	want := []Region{{X: 150, Y: 120, W: 100, H: 80}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SegmentSheet(sub) = %v, want %v", got, want)
	}

	n, err := Normalize(sub, got[0], DefaultNormalizeOptions())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if a := alphaAt(n, 120, 120); a != 255 {
		t.Errorf("normalized centre alpha = %d, want 255", a)
	}
}
