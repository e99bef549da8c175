package stickerkit

import (
	"image"
)

const (
	// SheetTolerance is the looser background tolerance for whole-sheet passes.
	SheetTolerance = 60
	// StickerTolerance is the tighter tolerance applied to each cropped sticker.
	StickerTolerance = 50

	// darkKeyLimit forces the key to white when any averaged corner channel
	// falls below it; generated sheets are assumed to be light.
	darkKeyLimit = 200
)

// ColorKey is the estimated background colour plus the per-channel tolerance
// used to decide whether a pixel is background-ish.
type ColorKey struct {
	R, G, B   uint8
	Tolerance int
}

// Matches reports whether every channel differs from the key by less than
// the tolerance.
func (k ColorKey) Matches(r, g, b uint8) bool {
	return absDiff(r, k.R) < k.Tolerance &&
		absDiff(g, k.G) < k.Tolerance &&
		absDiff(b, k.B) < k.Tolerance
}

// EstimateKey averages the four corner pixels of img. A dark average is
// replaced by pure white.
func EstimateKey(img *image.NRGBA, tolerance int) ColorKey {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	key := ColorKey{R: 255, G: 255, B: 255, Tolerance: tolerance}
	if w == 0 || h == 0 {
		return key
	}
	var sr, sg, sb int
	for _, c := range corners(w, h) {
		off := pixOffset(img, c.X, c.Y)
		sr += int(img.Pix[off])
		sg += int(img.Pix[off+1])
		sb += int(img.Pix[off+2])
	}
	// Math.round semantics on the mean of four samples.
	r, g, b := (sr+2)/4, (sg+2)/4, (sb+2)/4
	if r < darkKeyLimit || g < darkKeyLimit || b < darkKeyLimit {
		return key
	}
	key.R, key.G, key.B = uint8(r), uint8(g), uint8(b)
	return key
}

func corners(w, h int) [4]image.Point {
	return [4]image.Point{{0, 0}, {w - 1, 0}, {0, h - 1}, {w - 1, h - 1}}
}

// RemoveBackground makes every background-ish pixel reachable from the four
// corners transparent, then erodes the halo: opaque pixels that touch the
// cleared area and still match the key are cleared in one batch. img is
// modified in place; only pixels inside img.Rect are touched.
func RemoveBackground(img *image.NRGBA, tolerance int) ColorKey {
	key := EstimateKey(img, tolerance)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return key
	}
	visited := floodBackground(img, key)
	erodeHalo(img, key, visited)
	return key
}

// floodBackground runs a 4-connected, stack-based fill from the corners and
// returns the visited bitmap. Only background-ish pixels propagate.
func floodBackground(img *image.NRGBA, key ColorKey) []bool {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pix := img.Pix
	visited := make([]bool, w*h)

	dx4 := [4]int{-1, 1, 0, 0}
	dy4 := [4]int{0, 0, -1, 1}

	stack := make([]int, 0, 1024)
	for _, c := range corners(w, h) {
		stack = append(stack, c.Y*w+c.X)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		cx, cy := cur%w, cur/w
		off := pixOffset(img, cx, cy)
		if !key.Matches(pix[off], pix[off+1], pix[off+2]) {
			continue
		}
		pix[off+3] = 0

		for k := range 4 {
			nx, ny := cx+dx4[k], cy+dy4[k]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			if n := ny*w + nx; !visited[n] {
				stack = append(stack, n)
			}
		}
	}
	return visited
}

func erodeHalo(img *image.NRGBA, key ColorKey, visited []bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pix := img.Pix

	var toRemove []int
	for y := range h {
		for x := range w {
			off := pixOffset(img, x, y)
			if pix[off+3] == 0 {
				continue
			}
			i := y*w + x
			touches := (x > 0 && visited[i-1]) ||
				(x < w-1 && visited[i+1]) ||
				(y > 0 && visited[i-w]) ||
				(y < h-1 && visited[i+w])
			if touches && key.Matches(pix[off], pix[off+1], pix[off+2]) {
				toRemove = append(toRemove, off)
			}
		}
	}
	for _, off := range toRemove {
		pix[off+3] = 0
	}
}
