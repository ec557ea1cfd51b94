package ffmpeg

import (
	"context"
	"os/exec"
)

// Runner executes an external tool and returns its combined output. The
// indirection keeps encode and probe logic testable without the binaries
// installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandRunner runs tools through os/exec.
type CommandRunner struct{}

func (CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
