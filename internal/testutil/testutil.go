// Package testutil provides common test utilities and helpers to reduce boilerplate in test files.
package testutil

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Qian-MoBai/systemd-web/internal/config"
	"github.com/Qian-MoBai/systemd-web/internal/log"
)

// NewTestLogger creates a logger that writes to t.Logf for testing.
// This ensures test output is properly captured by the test framework.
func NewTestLogger(t testing.TB) log.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}

	handler := &testHandler{t: t, opts: opts}
	return log.NewSlogAdapter(slog.New(handler))
}

// ConfigOption allows customization of test config settings.
type ConfigOption func(*config.Settings)

// WithSystemUnitDir sets a custom system unit directory.
func WithSystemUnitDir(dir string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.SystemUnitDir = dir
	}
}

// WithUserHome sets the home directory user units are resolved against.
func WithUserHome(dir string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.UserHome = dir
	}
}

// WithVerbose sets verbose logging.
func WithVerbose(verbose bool) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.Verbose = verbose
	}
}

// WithElevation replaces the elevation prefix for system-level commands.
func WithElevation(argv ...string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.ElevationCommand = argv
	}
}

// NewMockConfig creates a config provider for testing with optional customizations.
// Unit directories and the database live under t.TempDir().
func NewMockConfig(t testing.TB, opts ...ConfigOption) config.Provider {
	tmpDir := t.TempDir()

	cfg := config.Defaults()
	cfg.SystemUnitDir = filepath.Join(tmpDir, "system")
	cfg.UserHome = filepath.Join(tmpDir, "home")
	cfg.DBPath = filepath.Join(tmpDir, "systemd-web.db")
	cfg.SessionBackend = config.SessionBackendMemory
	cfg.Verbose = true

	for _, opt := range opts {
		opt(cfg)
	}

	configProvider := config.NewDefaultConfigProvider()
	configProvider.SetConfig(cfg)
	return configProvider
}

// testHandler implements slog.Handler to write to testing.TB.
type testHandler struct {
	t     testing.TB
	opts  *slog.HandlerOptions
	attrs []slog.Attr
}

func (h *testHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testHandler) Handle(_ context.Context, record slog.Record) error {
	h.t.Helper()
	args := make([]any, 0, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		args = append(args, a)
	}
	record.Attrs(func(a slog.Attr) bool {
		args = append(args, a)
		return true
	})
	h.t.Logf("[%s] %s %v", record.Level.String(), record.Message, args)
	return nil
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &testHandler{t: h.t, opts: h.opts, attrs: merged}
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return &testHandler{t: h.t, opts: h.opts, attrs: h.attrs}
}
