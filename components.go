package stickerkit

import (
	"image"
	"math"
)

type component struct {
	box    image.Rectangle
	area   int
	sx, sy int
}

// componentRegions is the slow path for sheets whose silhouettes overlap in
// both projections. It labels 4-connected content components, then groups
// them into the grid implied by the expected sticker count, assigning each
// component to a cell by its centroid.
func componentRegions(mask contentMask, expected, minSize int) []Region {
	comps := labelComponents(mask, max(4, minSize))
	if len(comps) == 0 || expected <= 0 {
		return nil
	}

	bounds := comps[0].box
	for _, c := range comps[1:] {
		bounds = bounds.Union(c.box)
	}
	rows, cols := gridShape(expected)
	cellW := float64(bounds.Dx()) / float64(cols)
	cellH := float64(bounds.Dy()) / float64(rows)

	cells := make([]image.Rectangle, rows*cols)
	for _, c := range comps {
		cx := float64(c.sx)/float64(c.area) - float64(bounds.Min.X)
		cy := float64(c.sy)/float64(c.area) - float64(bounds.Min.Y)
		col := clampInt(int(cx/cellW), 0, cols-1)
		row := clampInt(int(cy/cellH), 0, rows-1)
		i := row*cols + col
		if cells[i].Empty() {
			cells[i] = c.box
		} else {
			cells[i] = cells[i].Union(c.box)
		}
	}

	var regions []Region
	for _, r := range cells {
		if r.Dx() <= minSize || r.Dy() <= minSize {
			continue
		}
		regions = append(regions, Region{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()})
	}
	return regions
}

// labelComponents returns components with at least minArea pixels, in
// raster order of their first pixel.
func labelComponents(mask contentMask, minArea int) []component {
	w, h := mask.W, mask.H
	labels := make([]int32, w*h)
	dx4 := [4]int{-1, 0, 1, 0}
	dy4 := [4]int{0, -1, 0, 1}

	var comps []component
	var elems []int
	label := int32(0)
	for start, on := range mask.On {
		if !on || labels[start] != 0 {
			continue
		}
		label++
		labels[start] = label
		elems = append(elems[:0], start)
		c := component{box: image.Rect(start%w, start/w, start%w+1, start/w+1)}
		for i := 0; i < len(elems); i++ {
			cur := elems[i]
			x, y := cur%w, cur/w
			c.area++
			c.sx += x
			c.sy += y
			c.box = c.box.Union(image.Rect(x, y, x+1, y+1))
			for k := range 4 {
				nx, ny := x+dx4[k], y+dy4[k]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				n := ny*w + nx
				if mask.On[n] && labels[n] == 0 {
					labels[n] = label
					elems = append(elems, n)
				}
			}
		}
		if c.area >= minArea {
			comps = append(comps, c)
		}
	}
	return comps
}

// gridShape maps a sticker count to rows×cols. The generator lays 3, 6 and
// 9 stickers out as 1×3, 2×3 and 3×3.
func gridShape(n int) (rows, cols int) {
	switch n {
	case 3:
		return 1, 3
	case 6:
		return 2, 3
	case 9:
		return 3, 3
	}
	rows = max(1, int(math.Sqrt(float64(n))))
	cols = (n + rows - 1) / rows
	return rows, cols
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
