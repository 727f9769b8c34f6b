package validate

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/Qian-MoBai/systemd-web/internal/execx"
	"github.com/Qian-MoBai/systemd-web/internal/log"
)

// Validator checks that the host can run systemctl commands.
type Validator struct {
	logger    log.Logger
	runner    execx.Runner
	elevation []string
	osGetter  func() string // For testing, defaults to runtime.GOOS
}

// NewValidator creates a new Validator with the provided logger, command
// runner, and the elevation prefix used for system-level commands.
func NewValidator(logger log.Logger, runner execx.Runner, elevation []string) *Validator {
	return &Validator{
		logger:    logger,
		runner:    runner,
		elevation: elevation,
		osGetter:  func() string { return runtime.GOOS },
	}
}

// WithOSGetter sets a custom OS getter for testing.
func (v *Validator) WithOSGetter(osGetter func() string) *Validator {
	v.osGetter = osGetter
	return v
}

// SystemRequirements checks that systemd is present and, when configured,
// that the elevation command can be found.
func (v *Validator) SystemRequirements(ctx context.Context) error {
	if goos := v.osGetter(); goos != "linux" {
		return fmt.Errorf("unsupported platform: %s (systemd-web requires Linux with systemd)", goos)
	}

	v.logger.Debug("Validating systemd availability")

	result, err := v.runner.Execute(ctx, "systemctl", "--version")
	if err != nil {
		return fmt.Errorf("systemd not found: %w", err)
	}
	if !result.Success() || !strings.Contains(string(result.Stdout), "systemd") {
		return fmt.Errorf("systemd not properly installed")
	}

	if len(v.elevation) == 0 {
		return nil
	}

	v.logger.Debug("Validating elevation command availability", "command", v.elevation[0])

	// "command -v" resolves without running the elevation tool, so it never prompts.
	result, err = v.runner.Execute(ctx, "sh", "-c", `command -v "$1"`, "sh", v.elevation[0])
	if err != nil {
		return fmt.Errorf("checking elevation command %s: %w", v.elevation[0], err)
	}
	if !result.Success() {
		return fmt.Errorf("elevation command %s not found", v.elevation[0])
	}

	return nil
}
