// Package palette reduces images to indexed colour tables. Every method is
// exposed as an image/draw.Quantizer so it can be plugged into image/gif or
// used directly.
package palette

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"slices"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

type Method int

const (
	MethodMedianCut Method = iota
	MethodKMeans
	MethodDominantColor
)

func (m Method) String() string {
	switch m {
	case MethodKMeans:
		return "kmeans"
	case MethodDominantColor:
		return "dominantcolor"
	default:
		return "mediancut"
	}
}

// ParseMethod accepts the names produced by Method.String.
func ParseMethod(name string) (Method, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mediancut", "median":
		return MethodMedianCut, true
	case "kmeans":
		return MethodKMeans, true
	case "dominantcolor", "dominant":
		return MethodDominantColor, true
	}
	return MethodMedianCut, false
}

// Quantizer returns the draw.Quantizer implementing m.
func Quantizer(m Method) draw.Quantizer {
	switch m {
	case MethodKMeans:
		return KMeansQuantizer{}
	case MethodDominantColor:
		return DominantQuantizer{}
	default:
		return quantize.MedianCutQuantizer{}
	}
}

type weightedColor struct {
	Col    colorful.Color
	Weight float64
}

const (
	// MaxKMeansClusters caps the clusters of one k-means run, and so the
	// size of a k-means palette.
	MaxKMeansClusters = 64

	// kmeansDelta stops iterating once fewer than 5% of samples move.
	kmeansDelta = 0.05
)

// KMeansQuantizer clusters a subsample of the opaque pixels with k-means and
// keeps a diverse, population-weighted subset of the cluster centres.
type KMeansQuantizer struct {
	// MaxSamples bounds the number of pixels fed to k-means; 0 means 12000.
	MaxSamples int
}

func (q KMeansQuantizer) Quantize(p color.Palette, img image.Image) color.Palette {
	k := cap(p) - len(p)
	for _, c := range ExtractKMeansPalette(img, k, q.MaxSamples) {
		p = append(p, toNRGBA(c))
	}
	return p
}

// DominantQuantizer picks colours with github.com/cenkalti/dominantcolor.
type DominantQuantizer struct{}

func (DominantQuantizer) Quantize(p color.Palette, img image.Image) color.Palette {
	k := cap(p) - len(p)
	for _, c := range ExtractDominantPalette(img, k) {
		p = append(p, toNRGBA(c))
	}
	return p
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// FindKey returns the index of the first entry whose channels all differ
// from key by less than dist, or -1.
func FindKey(p color.Palette, key color.NRGBA, dist int) int {
	for i, c := range p {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		if absDiff(n.R, key.R) < dist && absDiff(n.G, key.G) < dist && absDiff(n.B, key.B) < dist {
			return i
		}
	}
	return -1
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// SortByBrightness orders colours from darkest to brightest by relative
// luminance.
func SortByBrightness(p color.Palette) {
	slices.SortStableFunc(p, func(a, b color.Color) int {
		ca, _ := colorful.MakeColor(a)
		cb, _ := colorful.MakeColor(b)
		ya, yb := luminance(ca), luminance(cb)
		if ya < yb {
			return -1
		}
		if ya > yb {
			return 1
		}
		return 0
	})
}

func luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func ExtractDominantPalette(img image.Image, k int) []colorful.Color {
	if k <= 0 {
		return nil
	}

	nCandidates := min(512, max(24, k*2))
	candidates := dominantcolor.FindWeight(img, nCandidates)
	if len(candidates) == 0 {
		// Never return an empty palette; image/gif rejects it.
		candidates = append(candidates, dominantcolor.Color{
			RGBA:   color.RGBA{R: 128, G: 128, B: 128, A: 255},
			Weight: 1.0,
		})
	}

	weighted := make([]weightedColor, 0, len(candidates))
	for _, c := range candidates {
		col, _ := colorful.MakeColor(c.RGBA)
		w := c.Weight
		if w <= 0 {
			w = 1e-6
		}
		weighted = append(weighted, weightedColor{Col: col.Clamped(), Weight: w})
	}
	return SelectDiverseWeightedColors(weighted, k)
}

func ExtractKMeansPalette(img image.Image, k, maxSamples int) []colorful.Color {
	if k <= 0 {
		return nil
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	if maxSamples <= 0 {
		maxSamples = 12000
	}
	step := 1
	if width*height > maxSamples {
		step = int(math.Sqrt(float64(width*height)/float64(maxSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, min(width*height, maxSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16 == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r16) / 65535.0,
				float64(g16) / 65535.0,
				float64(b16) / 65535.0,
			})
		}
	}
	if len(dataset) == 0 {
		return nil
	}

	workK := min(k+k/2+2, MaxKMeansClusters, len(dataset))
	km, err := kmeans.NewWithOptions(kmeansDelta, nil)
	if err != nil {
		return nil
	}
	cc, err := km.Partition(dataset, workK)
	if err != nil || len(cc) == 0 {
		return nil
	}

	// Dominant clusters first.
	slices.SortFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})

	weighted := make([]weightedColor, 0, len(cc))
	for _, c := range cc {
		center := c.Center
		if len(center) < 3 || len(c.Observations) == 0 {
			continue
		}
		col := colorful.Color{R: center[0], G: center[1], B: center[2]}.Clamped()
		weighted = append(weighted, weightedColor{Col: col, Weight: float64(len(c.Observations))})
	}
	return SelectDiverseWeightedColors(weighted, k)
}

// SelectDiverseWeightedColors greedily picks k colours, starting from the
// heaviest and then favouring candidates far (in Lab) from those already
// chosen, scaled by their weight.
func SelectDiverseWeightedColors(cands []weightedColor, k int) []colorful.Color {
	if k <= 0 || len(cands) == 0 {
		return nil
	}
	type item struct {
		col colorful.Color
		lab [3]float64
		w   float64
	}
	items := make([]item, 0, len(cands))
	maxW := 0.0
	for _, c := range cands {
		col := c.Col.Clamped()
		l, a, b := col.Lab()
		w := max(c.Weight, 1e-6)
		maxW = max(maxW, w)
		items = append(items, item{col: col, lab: [3]float64{l, a, b}, w: w})
	}
	k = min(k, len(items))

	selectedIdx := make([]int, 0, k)
	selected := make([]bool, len(items))
	// minD2[i] caches the distance from item i to its nearest selected item.
	minD2 := make([]float64, len(items))
	for i := range minD2 {
		minD2[i] = math.MaxFloat64
	}
	pick := func(s int) {
		selected[s] = true
		selectedIdx = append(selectedIdx, s)
		for i := range items {
			d0 := items[i].lab[0] - items[s].lab[0]
			d1 := items[i].lab[1] - items[s].lab[1]
			d2 := items[i].lab[2] - items[s].lab[2]
			minD2[i] = min(minD2[i], d0*d0+d1*d1+d2*d2)
		}
	}

	bestSeed := 0
	for i := 1; i < len(items); i++ {
		if items[i].w > items[bestSeed].w {
			bestSeed = i
		}
	}
	pick(bestSeed)

	for len(selectedIdx) < k {
		bestIdx := -1
		bestScore := -1.0
		for i := range items {
			if selected[i] {
				continue
			}
			normW := items[i].w / maxW
			score := math.Sqrt(minD2[i]) * (0.55 + 0.45*math.Sqrt(normW))
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		pick(bestIdx)
	}

	out := make([]colorful.Color, 0, len(selectedIdx))
	for _, idx := range selectedIdx {
		out = append(out, items[idx].col)
	}
	return out
}
