package stickerkit

import (
	"image"
)

const (
	// ContentThreshold marks a pixel as content when any channel is below it.
	ContentThreshold = 230
	// MinBandSize is the exclusive lower bound for band, run and region sizes.
	MinBandSize = 10
)

// Region is a bounding box inside a sheet.
type Region struct {
	X, Y, W, H int
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// SegmentOptions tunes SegmentSheet.
type SegmentOptions struct {
	// Threshold is the per-channel content threshold.
	Threshold int
	// MinSize discards bands and runs whose length is not above it.
	MinSize int
	// ExpectedCount, when positive, triggers the connected-component
	// fallback if the projection pass finds a different number of regions.
	ExpectedCount int
}

func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		Threshold: ContentThreshold,
		MinSize:   MinBandSize,
	}
}

type contentMask struct {
	W, H int
	On   []bool
}

func newContentMask(img *image.NRGBA, threshold int) contentMask {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	m := contentMask{W: w, H: h, On: make([]bool, w*h)}
	t := uint8(max(0, min(255, threshold)))
	if threshold > 255 {
		// Every pixel qualifies.
		for i := range m.On {
			m.On[i] = true
		}
		return m
	}
	for y := range h {
		for x := range w {
			off := pixOffset(img, x, y)
			m.On[y*w+x] = img.Pix[off] < t || img.Pix[off+1] < t || img.Pix[off+2] < t
		}
	}
	return m
}

// SegmentSheet finds sticker cells with row and column projection profiles.
// Regions come out in row-major, then column-major order, in img's
// coordinate space.
func SegmentSheet(img *image.NRGBA, opt SegmentOptions) []Region {
	if opt.Threshold <= 0 {
		opt.Threshold = ContentThreshold
	}
	mask := newContentMask(img, opt.Threshold)
	regions := projectRegions(mask, opt.MinSize)

	if opt.ExpectedCount > 0 && len(regions) != opt.ExpectedCount {
		fallback := componentRegions(mask, opt.ExpectedCount, opt.MinSize)
		logger.Warn("projection count mismatch", "found", len(regions), "expected", opt.ExpectedCount, "fallback", len(fallback))
		if closer(len(fallback), len(regions), opt.ExpectedCount) {
			regions = fallback
		}
	}
	for i := range regions {
		regions[i].X += img.Rect.Min.X
		regions[i].Y += img.Rect.Min.Y
	}
	return regions
}

func closer(a, b, target int) bool {
	da, db := a-target, b-target
	if da < 0 {
		da = -da
	}
	if db < 0 {
		db = -db
	}
	return da < db
}

func projectRegions(mask contentMask, minSize int) []Region {
	w, h := mask.W, mask.H
	rowHasContent := make([]bool, h)
	for y := range h {
		row := mask.On[y*w : (y+1)*w]
		for _, on := range row {
			if on {
				rowHasContent[y] = true
				break
			}
		}
	}

	var regions []Region
	colHasContent := make([]bool, w)
	for _, band := range runs(rowHasContent, minSize) {
		for x := range w {
			colHasContent[x] = false
			for y := band[0]; y < band[1]; y++ {
				if mask.On[y*w+x] {
					colHasContent[x] = true
					break
				}
			}
		}
		for _, col := range runs(colHasContent, minSize) {
			regions = append(regions, Region{
				X: col[0],
				Y: band[0],
				W: col[1] - col[0],
				H: band[1] - band[0],
			})
		}
	}
	return regions
}

// runs returns [start, end) spans of consecutive true values longer than
// minSize. A span still open at the end of the profile is closed there.
func runs(profile []bool, minSize int) [][2]int {
	var out [][2]int
	in := false
	start := 0
	for i, on := range profile {
		switch {
		case on && !in:
			in = true
			start = i
		case !on && in:
			in = false
			if i-start > minSize {
				out = append(out, [2]int{start, i})
			}
		}
	}
	if in && len(profile)-start > minSize {
		out = append(out, [2]int{start, len(profile)})
	}
	return out
}
