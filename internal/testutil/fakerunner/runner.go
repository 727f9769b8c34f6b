// Package fakerunner provides a fake implementation of execx.Runner for testing.
package fakerunner

import (
	"context"
	"strings"
	"sync"

	"github.com/Qian-MoBai/systemd-web/internal/execx"
)

// Runner is a fake implementation of execx.Runner for testing.
type Runner struct {
	mu      sync.Mutex
	results map[string]execx.Result
	errors  map[string]error
	calls   [][]string
}

// New creates a new fake runner.
func New() *Runner {
	return &Runner{
		results: make(map[string]execx.Result),
		errors:  make(map[string]error),
	}
}

// SetOutput makes argv succeed with the given stdout.
func (r *Runner) SetOutput(argv []string, stdout string) {
	r.SetResult(argv, execx.Result{Stdout: []byte(stdout)})
}

// SetExitCode makes argv exit with code and optional stderr.
func (r *Runner) SetExitCode(argv []string, code int, stderr string) {
	r.SetResult(argv, execx.Result{ExitCode: code, Stderr: []byte(stderr)})
}

// SetResult sets the full result for a specific command.
func (r *Runner) SetResult(argv []string, result execx.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[makeKey(argv)] = result
}

// SetError makes argv fail to run.
func (r *Runner) SetError(argv []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[makeKey(argv)] = err
}

// Execute implements execx.Runner.
func (r *Runner) Execute(_ context.Context, argv ...string) (execx.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, append([]string(nil), argv...))

	key := makeKey(argv)
	if err, exists := r.errors[key]; exists {
		return execx.Result{}, err
	}
	if result, exists := r.results[key]; exists {
		return result, nil
	}

	// Default behavior - empty output, exit 0
	return execx.Result{}, nil
}

// GetCalls returns all captured command vectors.
func (r *Runner) GetCalls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

// Reset clears all stored results, errors, and calls.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = make(map[string]execx.Result)
	r.errors = make(map[string]error)
	r.calls = nil
}

func makeKey(argv []string) string {
	return strings.Join(argv, "\x00")
}
