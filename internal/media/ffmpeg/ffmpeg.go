// Package ffmpeg drives the ffmpeg binary for HLS segmentation and
// thumbnail extraction.
package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"

	"vodworks/internal/media/plan"
	"vodworks/internal/pkg/errors"
)

const (
	ffmpegBin  = "ffmpeg"
	ffprobeBin = "ffprobe"

	// hlsSegmentSeconds is the target media segment duration.
	hlsSegmentSeconds = "10"

	// stderrTailLimit bounds how much tool output is attached to errors.
	stderrTailLimit = 2048
)

// FFmpeg encodes source videos into HLS renditions and extracts thumbnails.
type FFmpeg struct {
	runner Runner
}

func New(runner Runner) *FFmpeg {
	return &FFmpeg{runner: runner}
}

// EncodeRendition transcodes inputPath into one HLS rendition under outDir,
// producing <quality>.m3u8 plus numbered <quality>_NNN.ts segments. The
// stream is re-encoded with libx264/aac at the rendition's bitrates and
// scaled to its resolved dimensions.
func (f *FFmpeg) EncodeRendition(ctx context.Context, inputPath, outDir string, r plan.Rendition) error {
	args := []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:v", r.VideoBitrate,
		"-b:a", r.AudioBitrate,
		"-vf", fmt.Sprintf("scale=%d:%d", r.Width, r.Height),
		"-hls_time", hlsSegmentSeconds,
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(outDir, r.Quality+"_%03d.ts"),
		"-f", "hls",
		filepath.Join(outDir, r.Quality+".m3u8"),
	}

	out, err := f.runner.Run(ctx, ffmpegBin, args...)
	if err != nil {
		return errors.Encode(r.Quality, tail(out, stderrTailLimit), err)
	}
	return nil
}

// ExtractThumbnail grabs a single frame one second in and writes it to
// outPath as a 320x180 JPEG, letterboxed to preserve the source aspect.
func (f *FFmpeg) ExtractThumbnail(ctx context.Context, inputPath, outPath string) error {
	args := []string{
		"-i", inputPath,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-q:v", "2",
		"-vf", "scale=320:180:force_original_aspect_ratio=decrease,pad=320:180:(ow-iw)/2:(oh-ih)/2",
		"-y",
		outPath,
	}

	out, err := f.runner.Run(ctx, ffmpegBin, args...)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeThumbnail, "ffmpeg.thumbnail", "thumbnail extraction failed").
			WithField("stderr", tail(out, stderrTailLimit))
	}
	return nil
}

// tail returns up to max trailing bytes of b as a string. Tool errors show
// up at the end of ffmpeg output, so the tail carries the useful part.
func tail(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[len(b)-max:])
}
