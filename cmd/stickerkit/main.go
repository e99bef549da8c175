package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-stack/stack"
	"github.com/karlmutch/envflag"
	"github.com/karlmutch/errors"
	logxi "github.com/mgutz/logxi/v1"

	"github.com/setanarut/stickerkit"
	"github.com/setanarut/stickerkit/palette"
	"github.com/setanarut/stickerkit/utils"
)

var (
	logger = logxi.New("stickerkit")

	verbose = flag.Bool("v", false, "When enabled will print internal logging for this tool")

	mode   = flag.String("mode", "extract", "one of extract, clean, animate, video")
	input  = flag.String("in", "", "input sheet, sticker PNG or video file")
	outDir = flag.String("out", ".", "output directory")
	prefix = flag.String("prefix", "", "file name prefix, a random one when empty")

	count            = flag.Int("count", 0, "number of stickers the sheet was generated with (3, 6 or 9), 0 to trust the projection pass")
	sheetTolerance   = flag.Int("sheet-tolerance", stickerkit.SheetTolerance, "background tolerance for the whole-sheet pass")
	stickerTolerance = flag.Int("sticker-tolerance", stickerkit.StickerTolerance, "background tolerance for each sticker")
	workers          = flag.Int("workers", 0, "worker goroutines, 0 for GOMAXPROCS")

	effect       = flag.String("effect", "none", "animation effect: none, shake, bounce, pulse, spin, wobble")
	stickerIndex = flag.Int("sticker", 0, "sticker index to animate in extract mode")
	keyHex       = flag.String("key", "#00ff00", "chroma-key colour standing in for transparency")
	method       = flag.String("quantizer", "mediancut", "palette method: mediancut, kmeans, dominantcolor")
	loop         = flag.Int("loop", stickerkit.LoopForever, "gif loop count: 0 forever, -1 once, n extra repeats")
	dither       = flag.Bool("dither", false, "Floyd-Steinberg dithering for opaque frames")
	paletteDump  = flag.Bool("palette-dump", false, "write a swatch of each frame palette next to the gif")

	seekTimeout = flag.Duration("seek-timeout", stickerkit.SeekTimeout, "maximum wait for one video seek")
)

func usage() {
	fmt.Fprintln(os.Stderr, path.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "usage: ", os.Args[0], "[options]       sticker sheet → stickers / animated gif")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment Variables:")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options can also be extracted from environment variables by changing dashes '-' to underscores and using upper case.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "log levels are handled by the LOGXI env variables, these are documented at https://github.com/mgutz/logxi")
}

func init() {
	flag.Usage = usage
}

func main() {
	if !flag.Parsed() {
		envflag.Parse()
	}

	if *verbose {
		logger.SetLevel(logxi.LevelDebug)
		stickerkit.SetLogger(logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Error("stickerkit failed", "mode", *mode, "error", err.Error())
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if *input == "" {
		flag.Usage()
		return errors.New("no input given").With("stack", stack.Trace().TrimRuntime())
	}
	if *prefix == "" {
		*prefix = utils.NewPrefix()
	}
	if errGo := os.MkdirAll(*outDir, 0o755); errGo != nil {
		return errors.Wrap(errGo).With("dir", *outDir).With("stack", stack.Trace().TrimRuntime())
	}

	switch *mode {
	case "extract":
		return runExtract(ctx)
	case "clean":
		return runClean(ctx)
	case "animate":
		return runAnimate(ctx)
	case "video":
		return runVideo(ctx)
	}
	return errors.New("unknown mode").With("mode", *mode).With("stack", stack.Trace().TrimRuntime())
}

func readRaster(filename string) (*image.NRGBA, error) {
	f, errGo := os.Open(filename)
	if errGo != nil {
		return nil, errors.Wrap(errGo).With("file", filename).With("stack", stack.Trace().TrimRuntime())
	}
	defer f.Close()
	return stickerkit.Decode(f)
}

func extractOptions() stickerkit.Options {
	opt := stickerkit.OptionsForCount(*count)
	opt.SheetTolerance = *sheetTolerance
	opt.Normalize.Tolerance = *stickerTolerance
	opt.Workers = *workers
	return opt
}

func animateOptions() (stickerkit.AnimateOptions, stickerkit.EncodeOptions, error) {
	aopt := stickerkit.DefaultAnimateOptions()
	eopt := stickerkit.DefaultEncodeOptions()

	key, err := stickerkit.ParseKey(*keyHex)
	if err != nil {
		return aopt, eopt, err
	}
	m, ok := palette.ParseMethod(*method)
	if !ok {
		return aopt, eopt, errors.New("unknown quantizer").With("quantizer", *method).With("stack", stack.Trace().TrimRuntime())
	}
	aopt.Key = key
	eopt.Key = key
	eopt.Method = m
	eopt.LoopCount = *loop
	eopt.Dither = *dither
	eopt.Workers = *workers
	return aopt, eopt, nil
}

func runExtract(ctx context.Context) error {
	sheet, err := readRaster(*input)
	if err != nil {
		return err
	}
	stickers, err := stickerkit.ExtractStickers(ctx, sheet, extractOptions())
	if err != nil {
		return err
	}
	if len(stickers) == 0 {
		logger.Warn("no stickers found, try again with a cleaner sheet", "in", *input)
		return nil
	}
	paths, err := utils.SaveStickers(stickers, *outDir, *prefix)
	for _, p := range paths {
		logger.Info("sticker written", "file", p)
	}
	if err != nil {
		return err
	}

	fx, err := stickerkit.ParseEffect(*effect)
	if err != nil || fx == stickerkit.EffectNone {
		return err
	}
	if *stickerIndex < 0 || *stickerIndex >= len(stickers) {
		return errors.New("sticker index out of range").With("sticker", *stickerIndex).With("stickers", len(stickers)).With("stack", stack.Trace().TrimRuntime())
	}
	return animate(ctx, stickers[*stickerIndex], fx)
}

func runClean(ctx context.Context) error {
	sheet, err := readRaster(*input)
	if err != nil {
		return err
	}
	opt := extractOptions()
	cleaned, err := stickerkit.CleanSheet(ctx, sheet, opt)
	if err != nil {
		return err
	}
	out := filepath.Join(*outDir, *prefix+"_sheet.png")
	if errGo := utils.SaveImage(cleaned, out); errGo != nil {
		return errors.Wrap(errGo).With("file", out).With("stack", stack.Trace().TrimRuntime())
	}
	logger.Info("sheet written", "file", out)
	return nil
}

func runAnimate(ctx context.Context) error {
	img, err := readRaster(*input)
	if err != nil {
		return err
	}
	fx, err := stickerkit.ParseEffect(*effect)
	if err != nil {
		return err
	}
	return animate(ctx, stickerkit.ProcessedSticker{ID: "sticker_" + strconv.Itoa(*stickerIndex), Index: *stickerIndex, Image: img}, fx)
}

func animate(ctx context.Context, s stickerkit.ProcessedSticker, fx stickerkit.Effect) error {
	aopt, eopt, err := animateOptions()
	if err != nil {
		return err
	}
	if fx == stickerkit.EffectNone || !*paletteDump {
		ext := ".gif"
		if fx == stickerkit.EffectNone {
			ext = ".png"
		}
		out := filepath.Join(*outDir, fmt.Sprintf("%s_%s_%s%s", *prefix, s.ID, fx, ext))
		return writeOut(out, func(w io.Writer) error {
			return stickerkit.WriteAnimation(ctx, w, s, fx, aopt, eopt)
		})
	}

	frames, err := stickerkit.Synthesize(ctx, s, fx, aopt)
	if err != nil {
		return err
	}
	paletted, err := stickerkit.QuantizeFrames(ctx, frames, eopt)
	if err != nil {
		return err
	}
	for i, f := range paletted {
		swatch := make(color.Palette, len(f.Image.Palette))
		copy(swatch, f.Image.Palette)
		palette.SortByBrightness(swatch)
		out := filepath.Join(*outDir, fmt.Sprintf("%s_%s_palette_%02d.png", *prefix, s.ID, i))
		if errGo := utils.SavePalette(swatch, 16, out); errGo != nil {
			return errors.Wrap(errGo).With("file", out).With("stack", stack.Trace().TrimRuntime())
		}
	}
	out := filepath.Join(*outDir, fmt.Sprintf("%s_%s_%s.gif", *prefix, s.ID, fx))
	return writeOut(out, func(w io.Writer) error {
		return stickerkit.EncodeGIF(w, paletted, eopt.LoopCount)
	})
}

func runVideo(ctx context.Context) error {
	_, eopt, err := animateOptions()
	if err != nil {
		return err
	}
	vopt := stickerkit.DefaultVideoOptions()
	vopt.SeekTimeout = *seekTimeout

	start := time.Now()
	out := filepath.Join(*outDir, *prefix+"_video.gif")
	src := &stickerkit.FFmpegSource{Path: *input}
	if err := writeOut(out, func(w io.Writer) error {
		return stickerkit.VideoToGIF(ctx, w, src, vopt, eopt)
	}); err != nil {
		if stickerkit.IsKind(err, stickerkit.KindSeekTimeout) {
			logger.Warn("video seek timed out, retry or raise -seek-timeout", "timeout", *seekTimeout)
		}
		return err
	}
	logger.Info("video gif written", "file", out, "elapsed", time.Since(start))
	return nil
}

func writeOut(filename string, write func(w io.Writer) error) error {
	if err := utils.WriteFile(filename, write); err != nil {
		os.Remove(filename)
		return err
	}
	logger.Info("written", "file", filename)
	return nil
}
