// Package probe reads stream metadata out of source files with ffprobe.
package probe

import (
	"context"
	"strconv"
	"strings"

	"vodworks/internal/pkg/errors"
)

const ffprobeBin = "ffprobe"

// Runner executes an external tool and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Prober shells out to ffprobe for container and stream queries.
type Prober struct {
	runner Runner
}

func New(runner Runner) *Prober {
	return &Prober{runner: runner}
}

// Duration returns the container duration in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	out, err := p.runner.Run(ctx, ffprobeBin,
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeProbe, "probe.duration", "ffprobe failed").
			WithField("output", strings.TrimSpace(string(out)))
	}

	s := strings.TrimSpace(string(out))
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New(errors.CodeProbe, "unparsable duration from ffprobe").
			WithField("output", s)
	}
	return d, nil
}

// Dimensions returns the width and height of the first video stream.
func (p *Prober) Dimensions(ctx context.Context, path string) (int, int, error) {
	out, err := p.runner.Run(ctx, ffprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	if err != nil {
		return 0, 0, errors.WrapWithCode(err, errors.CodeProbe, "probe.dimensions", "ffprobe failed").
			WithField("output", strings.TrimSpace(string(out)))
	}

	// First line only: rotated streams can emit side data on extra lines.
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	ws, hs, ok := strings.Cut(line, "x")
	if !ok {
		return 0, 0, errors.New(errors.CodeProbe, "unparsable dimensions from ffprobe").
			WithField("output", line)
	}
	w, werr := strconv.Atoi(strings.TrimSpace(ws))
	h, herr := strconv.Atoi(strings.TrimSpace(hs))
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return 0, 0, errors.New(errors.CodeProbe, "unparsable dimensions from ffprobe").
			WithField("output", line)
	}
	return w, h, nil
}
