package utils

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/setanarut/stickerkit"
)

// StickerFilename follows the archive naming convention
// {prefix}_{stickerId}_240x240.png.
func StickerFilename(prefix, id string) string {
	return fmt.Sprintf("%s_%s_240x240.png", prefix, id)
}

// NewPrefix returns a fresh batch prefix for sticker files.
func NewPrefix() string {
	return "stickers_" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// SaveSticker writes img under dir using StickerFilename and returns the path.
func SaveSticker(img image.Image, dir, prefix, id string) (string, error) {
	path := filepath.Join(dir, StickerFilename(prefix, id))
	return path, SaveImage(img, path)
}

// SaveStickers writes every sticker under dir in order and returns the paths.
func SaveStickers(stickers []stickerkit.ProcessedSticker, dir, prefix string) ([]string, error) {
	paths := make([]string, 0, len(stickers))
	for _, s := range stickers {
		path := filepath.Join(dir, StickerFilename(prefix, s.ID))
		if err := WriteFile(path, s.EncodePNG); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func SaveImage(img image.Image, filename string) error {
	return WriteFile(filename, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}

// WriteFile creates filename and hands it to write, closing it afterwards.
func WriteFile(filename string, write func(w io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SavePalette renders palette as a strip of tileSize squares.
func SavePalette(palette color.Palette, tileSize int, filename string) error {
	if len(palette) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}

	w := tileSize * len(palette)
	h := tileSize
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	for i, c := range palette {
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		x0 := i * tileSize
		x1 := x0 + tileSize
		for y := range h {
			for x := x0; x < x1; x++ {
				img.SetNRGBA(x, y, nc)
			}
		}
	}

	return SaveImage(img, filename)
}
