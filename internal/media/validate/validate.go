// Package validate guards the upload intake: only recognized video
// containers within the accepted size window make it to storage.
package validate

import (
	"fmt"
	"path/filepath"
	"strings"

	"vodworks/internal/pkg/errors"
)

const (
	// MinFileSize is the smallest accepted upload, inclusive.
	MinFileSize = 1 << 20 // 1 MiB
	// MaxFileSize is the upload ceiling, exclusive.
	MaxFileSize = 2 << 30 // 2 GiB
)

// videoExtensions lists the accepted container formats, keyed by lowercase
// extension without the dot.
var videoExtensions = map[string]struct{}{
	"mp4":  {},
	"mov":  {},
	"avi":  {},
	"mkv":  {},
	"webm": {},
	"flv":  {},
	"wmv":  {},
	"m4v":  {},
}

// Ext returns the lowercased extension of filename without the leading dot.
func Ext(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// IsVideoFile reports whether filename carries an accepted video extension.
func IsVideoFile(filename string) bool {
	_, ok := videoExtensions[Ext(filename)]
	return ok
}

// File checks an upload's filename and size before any bytes are stored.
// It returns a validation error with a reason field when the extension is
// not an accepted video format or the size falls outside [1 MiB, 2 GiB).
func File(filename string, size int64) error {
	if !IsVideoFile(filename) {
		return errors.Validation("unsupported video format").
			WithField("reason", "unsupported_extension").
			WithField("filename", filename)
	}
	if size < MinFileSize {
		return errors.Validation(fmt.Sprintf("file too small: %d bytes (minimum %d)", size, MinFileSize)).
			WithField("reason", "file_too_small").
			WithField("size", size)
	}
	if size >= MaxFileSize {
		return errors.Validation(fmt.Sprintf("file too large: %d bytes (maximum %d)", size, MaxFileSize)).
			WithField("reason", "file_too_large").
			WithField("size", size)
	}
	return nil
}
