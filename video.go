package stickerkit

import (
	"context"
	"image"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/karlmutch/errors"
	xdraw "golang.org/x/image/draw"
)

const (
	// SampleRate is the number of frames taken per second of video.
	SampleRate = 10
	// MaxVideoDuration caps how much of the video is sampled.
	MaxVideoDuration = 2500 * time.Millisecond
	// CoverFactor over-scales the cover fit to crop the video's margins.
	CoverFactor = 1.2
	// SeekTimeout bounds a single seek-and-capture.
	SeekTimeout = 10 * time.Second
)

// MediaSource is a seekable video. FrameAt must return only once the frame
// at exactly ts is available. Implementations need not be safe for
// concurrent use; VideoSampler serializes access.
type MediaSource interface {
	Duration(ctx context.Context) (time.Duration, error)
	FrameAt(ctx context.Context, ts time.Duration) (image.Image, error)
}

// VideoOptions configures VideoSampler.
type VideoOptions struct {
	Rate        int
	MaxDuration time.Duration
	CanvasSize  int
	Cover       float64
	Background  color.NRGBA
	SeekTimeout time.Duration
}

func DefaultVideoOptions() VideoOptions {
	return VideoOptions{
		Rate:        SampleRate,
		MaxDuration: MaxVideoDuration,
		CanvasSize:  CanvasSize,
		Cover:       CoverFactor,
		Background:  color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		SeekTimeout: SeekTimeout,
	}
}

// VideoSampler captures evenly spaced frames from one MediaSource onto an
// opaque square canvas. It owns the source for its lifetime.
type VideoSampler struct {
	src MediaSource
	opt VideoOptions
	// sem holds one token for the whole of each seek, including one
	// abandoned after a timeout, so the source is never re-entered.
	sem chan struct{}
}

func NewVideoSampler(src MediaSource, opt VideoOptions) *VideoSampler {
	def := DefaultVideoOptions()
	if opt.Rate <= 0 {
		opt.Rate = def.Rate
	}
	if opt.MaxDuration <= 0 {
		opt.MaxDuration = def.MaxDuration
	}
	if opt.CanvasSize <= 0 {
		opt.CanvasSize = def.CanvasSize
	}
	if opt.Cover <= 0 {
		opt.Cover = def.Cover
	}
	if opt.Background.A == 0 {
		opt.Background = def.Background
	}
	if opt.SeekTimeout <= 0 {
		opt.SeekTimeout = def.SeekTimeout
	}
	return &VideoSampler{src: src, opt: opt, sem: make(chan struct{}, 1)}
}

// Timestamps returns the capture times for a video of the given duration.
// An unknown (non-positive) duration samples the full window.
func (vs *VideoSampler) Timestamps(duration time.Duration) []time.Duration {
	window := vs.opt.MaxDuration
	if duration > 0 && duration < window {
		window = duration
	}
	n := int(math.Floor(window.Seconds() * float64(vs.opt.Rate)))
	out := make([]time.Duration, n)
	for i := range n {
		out[i] = time.Duration(i) * time.Second / time.Duration(vs.opt.Rate)
	}
	return out
}

// Sample seeks the source through Timestamps in increasing order and
// returns one opaque frame per timestamp.
func (vs *VideoSampler) Sample(ctx context.Context) ([]Frame, error) {
	duration, err := vs.src.Duration(ctx)
	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, wrapError(KindDecode, err)
	}

	delay := time.Second / time.Duration(vs.opt.Rate)
	stamps := vs.Timestamps(duration)
	frames := make([]Frame, 0, len(stamps))
	for _, ts := range stamps {
		img, err := vs.seek(ctx, ts)
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{Image: vs.cover(img), Delay: delay})
	}
	logger.Debug("video sampled", "duration", duration, "frames", len(frames))
	return frames, nil
}

type seekResult struct {
	img image.Image
	err error
}

func (vs *VideoSampler) seek(ctx context.Context, ts time.Duration) (image.Image, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	seekCtx, cancel := context.WithTimeout(ctx, vs.opt.SeekTimeout)
	defer cancel()

	// A seek abandoned earlier may still own the source.
	select {
	case vs.sem <- struct{}{}:
	case <-seekCtx.Done():
		return nil, vs.seekAborted(ctx, ts, "source busy with an abandoned seek")
	}

	done := make(chan seekResult, 1)
	go func() {
		defer func() { <-vs.sem }()
		img, err := vs.src.FrameAt(seekCtx, ts)
		done <- seekResult{img: img, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if seekCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return nil, kindError(KindSeekTimeout, errors.Wrap(r.err).With("ts", ts))
			}
			if _, ok := r.err.(*Error); ok {
				return nil, r.err
			}
			return nil, kindError(KindDecode, errors.Wrap(r.err).With("ts", ts))
		}
		if r.img == nil {
			return nil, kindError(KindDecode, errors.New("no frame at timestamp").With("ts", ts))
		}
		return r.img, nil
	case <-seekCtx.Done():
		return nil, vs.seekAborted(ctx, ts, "seek did not complete")
	}
}

func (vs *VideoSampler) seekAborted(ctx context.Context, ts time.Duration, msg string) error {
	if ctx.Err() != nil {
		return wrapError(KindCanceled, ctx.Err())
	}
	return kindError(KindSeekTimeout, errors.New(msg).With("ts", ts).With("timeout", vs.opt.SeekTimeout))
}

// cover scales img by max(canvas/w, canvas/h)·Cover, centred on an opaque
// background and cropped to the canvas.
func (vs *VideoSampler) cover(img image.Image) *image.NRGBA {
	size := vs.opt.CanvasSize
	canvas := imaging.New(size, size, vs.opt.Background)
	b := img.Bounds()
	if b.Empty() {
		return canvas
	}
	scale := math.Max(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy())) * vs.opt.Cover
	dw := int(math.Round(float64(b.Dx()) * scale))
	dh := int(math.Round(float64(b.Dy()) * scale))
	dx := (size - dw) / 2
	dy := (size - dh) / 2
	xdraw.CatmullRom.Scale(canvas, image.Rect(dx, dy, dx+dw, dy+dh), img, b, xdraw.Over, nil)
	return canvas
}

// VideoToGIF samples src and writes an opaque animated GIF to w.
func VideoToGIF(ctx context.Context, w io.Writer, src MediaSource, vopt VideoOptions, eopt EncodeOptions) error {
	frames, err := NewVideoSampler(src, vopt).Sample(ctx)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return newError(KindDecode, "video produced no frames")
	}
	return WriteGIF(ctx, w, frames, eopt)
}
