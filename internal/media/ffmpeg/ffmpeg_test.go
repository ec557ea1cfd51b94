package ffmpeg

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"vodworks/internal/media/plan"
	"vodworks/internal/pkg/errors"
)

type fakeRunner struct {
	calls [][]string
	out   []byte
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.out, f.err
}

func TestEncodeRenditionArgs(t *testing.T) {
	fr := &fakeRunner{}
	f := New(fr)

	r := plan.Rendition{Quality: "720p", Width: 1280, Height: 720, VideoBitrate: "1000k", AudioBitrate: "128k"}
	if err := f.EncodeRendition(context.Background(), "/tmp/in.mp4", "/tmp/hls", r); err != nil {
		t.Fatalf("EncodeRendition: %v", err)
	}

	want := []string{
		"ffmpeg",
		"-i", "/tmp/in.mp4",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:v", "1000k",
		"-b:a", "128k",
		"-vf", "scale=1280:720",
		"-hls_time", "10",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join("/tmp/hls", "720p_%03d.ts"),
		"-f", "hls",
		filepath.Join("/tmp/hls", "720p.m3u8"),
	}
	if len(fr.calls) != 1 || !reflect.DeepEqual(fr.calls[0], want) {
		t.Errorf("args mismatch\ngot:  %v\nwant: %v", fr.calls, want)
	}
}

func TestEncodeRenditionFailureCarriesQualityAndStderr(t *testing.T) {
	fr := &fakeRunner{out: []byte("frame=12\nError while decoding stream"), err: stderrors.New("exit status 1")}
	f := New(fr)

	r := plan.Rendition{Quality: "480p", Width: 854, Height: 480, VideoBitrate: "500k", AudioBitrate: "96k"}
	err := f.EncodeRendition(context.Background(), "in.mp4", "out", r)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeEncode) {
		t.Errorf("code = %s, want ENCODE_ERROR", errors.GetCode(err))
	}
	fields := errors.GetFields(err)
	if fields["quality"] != "480p" {
		t.Errorf("quality field = %v, want 480p", fields["quality"])
	}
	if s, _ := fields["stderr"].(string); !strings.Contains(s, "Error while decoding") {
		t.Errorf("stderr field = %q, want decoder output", s)
	}
}

func TestEncodeRenditionTruncatesLongOutput(t *testing.T) {
	fr := &fakeRunner{out: []byte(strings.Repeat("x", 5000) + "TAIL"), err: stderrors.New("exit status 1")}
	f := New(fr)

	err := f.EncodeRendition(context.Background(), "in.mp4", "out", plan.Resolve(1920, 1080, plan.Ladder[0]))
	if err == nil {
		t.Fatal("expected error")
	}
	s, _ := errors.GetFields(err)["stderr"].(string)
	if len(s) > stderrTailLimit {
		t.Errorf("stderr field is %d bytes, want <= %d", len(s), stderrTailLimit)
	}
	if !strings.HasSuffix(s, "TAIL") {
		t.Errorf("stderr field should keep the tail of the output, got suffix %q", s[len(s)-8:])
	}
}

func TestExtractThumbnailArgs(t *testing.T) {
	fr := &fakeRunner{}
	f := New(fr)

	if err := f.ExtractThumbnail(context.Background(), "/tmp/in.mp4", "/tmp/thumb.jpg"); err != nil {
		t.Fatalf("ExtractThumbnail: %v", err)
	}

	want := []string{
		"ffmpeg",
		"-i", "/tmp/in.mp4",
		"-ss", "00:00:01",
		"-vframes", "1",
		"-q:v", "2",
		"-vf", "scale=320:180:force_original_aspect_ratio=decrease,pad=320:180:(ow-iw)/2:(oh-ih)/2",
		"-y",
		"/tmp/thumb.jpg",
	}
	if len(fr.calls) != 1 || !reflect.DeepEqual(fr.calls[0], want) {
		t.Errorf("args mismatch\ngot:  %v\nwant: %v", fr.calls, want)
	}
}

func TestExtractThumbnailFailure(t *testing.T) {
	fr := &fakeRunner{out: []byte("no such file"), err: stderrors.New("exit status 1")}
	f := New(fr)

	err := f.ExtractThumbnail(context.Background(), "in.mp4", "thumb.jpg")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeThumbnail) {
		t.Errorf("code = %s, want THUMBNAIL_ERROR", errors.GetCode(err))
	}
}
