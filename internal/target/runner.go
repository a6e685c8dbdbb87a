package target

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"

	"github.com/transcodarr/monitor/internal/errors"
)

// Result holds the outcome of one executed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a fully built argument list and captures its output.
// Implementations must honor context cancellation so an abandoned probe
// cannot block the next collection cycle.
type Runner interface {
	Run(ctx context.Context, argv []string) (Result, error)
}

// execRunner runs commands through os/exec.
type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{ExitCode: -1}, errors.New(errors.ErrExec,
			"Empty command",
			"This shouldn't happen - please report this bug!")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	// A deadline hit is a distinct failure kind: probes report it as
	// Disconnected, never Error.
	if ctx.Err() == context.DeadlineExceeded {
		result.ExitCode = -1
		return result, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
			"Connection timeout",
			"Host may be offline or blocked by a firewall")
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			// Command ran but returned non-zero; that is data, not an error.
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run "+argv[0],
			"Make sure the command exists and is executable.")
	}

	return result, nil
}

// IsTimeout reports whether err represents an abandoned call.
func IsTimeout(err error) bool {
	return errors.IsCode(err, errors.ErrTimeout)
}
