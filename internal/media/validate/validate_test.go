package validate

import (
	"testing"

	"vodworks/internal/pkg/errors"
)

func TestFileAcceptsKnownExtensions(t *testing.T) {
	size := int64(10 << 20)
	for _, name := range []string{
		"clip.mp4", "clip.mov", "clip.avi", "clip.mkv",
		"clip.webm", "clip.flv", "clip.wmv", "clip.m4v",
		"CLIP.MP4", "archive.tar.mkv",
	} {
		if err := File(name, size); err != nil {
			t.Errorf("File(%q, %d) = %v, want nil", name, size, err)
		}
	}
}

func TestFileRejectsUnknownExtensions(t *testing.T) {
	size := int64(10 << 20)
	for _, name := range []string{"notes.txt", "song.mp3", "image.png", "noext", "clip.mp4.exe"} {
		err := File(name, size)
		if err == nil {
			t.Errorf("File(%q, %d) = nil, want validation error", name, size)
			continue
		}
		if !errors.IsValidation(err) {
			t.Errorf("File(%q, %d) code = %s, want VALIDATION_ERROR", name, size, errors.GetCode(err))
		}
		if got := errors.GetFields(err)["reason"]; got != "unsupported_extension" {
			t.Errorf("File(%q, %d) reason = %v, want unsupported_extension", name, size, got)
		}
	}
}

func TestFileSizeBounds(t *testing.T) {
	tests := []struct {
		name       string
		size       int64
		wantOK     bool
		wantReason string
	}{
		{name: "below minimum", size: MinFileSize - 1, wantReason: "file_too_small"},
		{name: "exact minimum is accepted", size: MinFileSize, wantOK: true},
		{name: "just under maximum is accepted", size: MaxFileSize - 1, wantOK: true},
		{name: "exact maximum is rejected", size: MaxFileSize, wantReason: "file_too_large"},
		{name: "above maximum", size: MaxFileSize + 1, wantReason: "file_too_large"},
		{name: "zero bytes", size: 0, wantReason: "file_too_small"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := File("clip.mp4", tt.size)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("File(clip.mp4, %d) = %v, want nil", tt.size, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("File(clip.mp4, %d) = nil, want validation error", tt.size)
			}
			if got := errors.GetFields(err)["reason"]; got != tt.wantReason {
				t.Errorf("reason = %v, want %s", got, tt.wantReason)
			}
		})
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "mp4"},
		{"CLIP.MOV", "mov"},
		{"noext", ""},
		{"weird.name.webm", "webm"},
	}
	for _, tt := range tests {
		if got := Ext(tt.in); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
