package ffmpeg

import (
	"os/exec"

	"vodworks/internal/pkg/errors"
)

// Check verifies that both ffmpeg and ffprobe are resolvable on PATH.
// Intake and worker startup call this so jobs are never accepted on a host
// that cannot process them.
func Check() error {
	for _, bin := range []string{ffmpegBin, ffprobeBin} {
		if _, err := exec.LookPath(bin); err != nil {
			return errors.ToolUnavailable(bin)
		}
	}
	return nil
}
