// Package execx provides a testable abstraction for command execution.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports whether the command exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner defines an interface for executing external commands.
//
// Execute returns an error only when the command could not be run to completion
// (binary missing, context expired, pipe failure). A command that ran and exited
// non-zero is reported through Result.ExitCode with a nil error.
type Runner interface {
	Execute(ctx context.Context, argv ...string) (Result, error)
}

// RealRunner implements Runner using os/exec.
type RealRunner struct {
	timeout time.Duration
}

// NewRealRunner creates a new RealRunner. A zero timeout leaves the deadline to ctx.
func NewRealRunner(timeout time.Duration) *RealRunner {
	return &RealRunner{timeout: timeout}
}

// Execute runs argv[0] with the remaining elements as arguments.
func (r *RealRunner) Execute(ctx context.Context, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("execx: empty command")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // argv is built from validated input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("command %q did not finish: %w", strings.Join(argv, " "), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, fmt.Errorf("command %q failed to run: %w", strings.Join(argv, " "), err)
}
