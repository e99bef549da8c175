package stickerkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/karlmutch/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpegSource reads frames from a video file with the ffmpeg and ffprobe
// binaries.
type FFmpegSource struct {
	Path string
}

type ffprobeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Duration probes the container, falling back to the first video stream's
// duration. Zero means unknown.
func (s *FFmpegSource) Duration(ctx context.Context) (time.Duration, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	probeStr, errGo := ffmpeg.Probe(s.Path)
	if errGo != nil {
		return 0, kindError(KindDecode, errors.Wrap(errGo).With("path", s.Path))
	}
	return parseProbeDuration(probeStr)
}

func parseProbeDuration(probeStr string) (time.Duration, error) {
	var probe ffprobeFormat
	if errGo := json.Unmarshal([]byte(probeStr), &probe); errGo != nil {
		return 0, wrapError(KindDecode, errGo)
	}
	candidates := []string{probe.Format.Duration}
	for _, st := range probe.Streams {
		if st.CodecType == "video" {
			candidates = append(candidates, st.Duration)
		}
	}
	for _, c := range candidates {
		if c == "" || c == "N/A" {
			continue
		}
		secs, errGo := strconv.ParseFloat(c, 64)
		if errGo == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second)), nil
		}
	}
	return 0, nil
}

// FrameAt seeks to ts and decodes the single frame ffmpeg emits there.
func (s *FFmpegSource) FrameAt(ctx context.Context, ts time.Duration) (image.Image, error) {
	var out, stderr bytes.Buffer
	cmd := ffmpeg.Input(s.Path, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.3f", ts.Seconds())}).
		Output("pipe:1", ffmpeg.KwArgs{
			"format":  "image2pipe",
			"vcodec":  "png",
			"vframes": 1,
		}).
		WithOutput(&out).
		WithErrorOutput(&stderr)
	cmd.Context = ctx

	if errGo := cmd.Run(); errGo != nil {
		return nil, kindError(KindDecode, errors.Wrap(errGo).With("path", s.Path).With("ts", ts).With("stderr", stderr.String()))
	}
	img, errGo := imaging.Decode(&out)
	if errGo != nil {
		return nil, kindError(KindDecode, errors.Wrap(errGo).With("path", s.Path).With("ts", ts))
	}
	return img, nil
}
