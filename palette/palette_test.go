package palette

import (
	"image"
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	red   = color.NRGBA{R: 220, G: 20, B: 20, A: 255}
	blue  = color.NRGBA{R: 20, G: 40, B: 220, A: 255}
	green = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
)

// stripes fills a w×h image with vertical bands of the given colours.
func stripes(w, h int, cols ...color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	band := w / len(cols)
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, cols[min(x/band, len(cols)-1)])
		}
	}
	return img
}

func near(a, b color.Color, d int) bool {
	na := color.NRGBAModel.Convert(a).(color.NRGBA)
	nb := color.NRGBAModel.Convert(b).(color.NRGBA)
	return absDiff(na.R, nb.R) <= d && absDiff(na.G, nb.G) <= d && absDiff(na.B, nb.B) <= d
}

func contains(p color.Palette, c color.Color, d int) bool {
	for _, e := range p {
		if near(e, c, d) {
			return true
		}
	}
	return false
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name string
		want Method
		ok   bool
	}{
		{"", MethodMedianCut, true},
		{"mediancut", MethodMedianCut, true},
		{"KMeans", MethodKMeans, true},
		{"dominant", MethodDominantColor, true},
		{"dominantcolor", MethodDominantColor, true},
		{"octree", MethodMedianCut, false},
	}
	for _, tt := range tests {
		got, ok := ParseMethod(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMethod(%q) = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
	for _, m := range []Method{MethodMedianCut, MethodKMeans, MethodDominantColor} {
		if got, ok := ParseMethod(m.String()); !ok || got != m {
			t.Errorf("ParseMethod(%q) = %v, %v", m.String(), got, ok)
		}
	}
}

func TestFindKey(t *testing.T) {
	p := color.Palette{red, color.NRGBA{R: 4, G: 251, B: 3, A: 255}, green}
	if got := FindKey(p, green, 5); got != 1 {
		t.Errorf("FindKey(dist=5) = %d, want 1", got)
	}
	if got := FindKey(p, green, 4); got != 2 {
		t.Errorf("FindKey(dist=4) = %d, want 2", got)
	}
	if got := FindKey(color.Palette{red, blue}, green, 5); got != -1 {
		t.Errorf("FindKey(missing) = %d, want -1", got)
	}
}

func TestQuantizeMedianCutKeepsDistinctColors(t *testing.T) {
	img := stripes(30, 10, red, blue, green)
	p := Quantizer(MethodMedianCut).Quantize(make(color.Palette, 0, 8), img)
	if len(p) == 0 || len(p) > 8 {
		t.Fatalf("Quantize() = %d colours, want 1..8", len(p))
	}
	for _, c := range []color.NRGBA{red, blue, green} {
		if !contains(p, c, 0) {
			t.Errorf("Quantize() = %v, missing %v", p, c)
		}
	}
}

func TestKMeansQuantizer(t *testing.T) {
	img := stripes(16, 16, red, blue)
	p := KMeansQuantizer{}.Quantize(make(color.Palette, 0, 2), img)
	if len(p) != 2 {
		t.Fatalf("Quantize() = %d colours, want 2", len(p))
	}
	if !contains(p, red, 2) || !contains(p, blue, 2) {
		t.Errorf("Quantize() = %v, want red and blue", p)
	}
}

func TestKMeansSkipsTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	if got := ExtractKMeansPalette(img, 4, 0); got != nil {
		t.Errorf("ExtractKMeansPalette(transparent) = %v, want nil", got)
	}
}

func TestDominantQuantizer(t *testing.T) {
	img := stripes(40, 40, red, blue)
	p := DominantQuantizer{}.Quantize(make(color.Palette, 0, 4), img)
	if len(p) == 0 || len(p) > 4 {
		t.Fatalf("Quantize() = %d colours, want 1..4", len(p))
	}
	for i, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			t.Errorf("palette[%d] alpha = %d, want opaque", i, a)
		}
	}
}

func TestSortByBrightness(t *testing.T) {
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	p := color.Palette{color.White, gray, color.Black}
	SortByBrightness(p)
	want := color.Palette{color.Black, gray, color.White}
	for i := range want {
		if !near(p[i], want[i], 0) {
			t.Errorf("SortByBrightness()[%d] = %v, want %v", i, p[i], want[i])
		}
	}
}

func TestSelectDiverseWeightedColors(t *testing.T) {
	cands := []weightedColor{
		{Col: colorful.Color{R: 1, G: 0, B: 0}, Weight: 10},
		{Col: colorful.Color{R: 0.98, G: 0.02, B: 0}, Weight: 9},
		{Col: colorful.Color{R: 0, G: 0, B: 1}, Weight: 1},
	}
	got := SelectDiverseWeightedColors(cands, 2)
	if len(got) != 2 {
		t.Fatalf("SelectDiverseWeightedColors() = %d colours, want 2", len(got))
	}
	if got[0] != cands[0].Col {
		t.Errorf("seed = %v, want heaviest %v", got[0], cands[0].Col)
	}
	if got[1] != cands[2].Col {
		t.Errorf("second = %v, want the distant blue", got[1])
	}
	if got := SelectDiverseWeightedColors(cands, 10); len(got) != 3 {
		t.Errorf("SelectDiverseWeightedColors(k>n) = %d colours, want 3", len(got))
	}
}

func TestKMeansClusterCap(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8((x + y) * 2), A: 255})
		}
	}
	p := KMeansQuantizer{}.Quantize(make(color.Palette, 0, 256), img)
	if len(p) == 0 || len(p) > MaxKMeansClusters {
		t.Errorf("Quantize(256) = %d colours, want 1..%d", len(p), MaxKMeansClusters)
	}
}
