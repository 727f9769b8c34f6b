package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Qian-MoBai/systemd-web/internal/testutil"
	"github.com/Qian-MoBai/systemd-web/internal/testutil/fakerunner"
)

func TestValidator_SystemRequirements(t *testing.T) {
	versionArgv := []string{"systemctl", "--version"}
	lookupArgv := []string{"sh", "-c", `command -v "$1"`, "sh", "sudo"}

	tests := []struct {
		name      string
		goos      string
		elevation []string
		setup     func(r *fakerunner.Runner)
		wantErr   string
	}{
		{
			name:      "all requirements met",
			goos:      "linux",
			elevation: []string{"sudo"},
			setup: func(r *fakerunner.Runner) {
				r.SetOutput(versionArgv, "systemd 252 (252.22-1~deb12u1)\n+PAM +AUDIT")
				r.SetOutput(lookupArgv, "/usr/bin/sudo\n")
			},
		},
		{
			name: "no elevation configured",
			goos: "linux",
			setup: func(r *fakerunner.Runner) {
				r.SetOutput(versionArgv, "systemd 255")
			},
		},
		{
			name:    "unsupported platform",
			goos:    "darwin",
			setup:   func(*fakerunner.Runner) {},
			wantErr: "unsupported platform",
		},
		{
			name: "systemctl missing",
			goos: "linux",
			setup: func(r *fakerunner.Runner) {
				r.SetError(versionArgv, errors.New("executable file not found"))
			},
			wantErr: "systemd not found",
		},
		{
			name: "unexpected version output",
			goos: "linux",
			setup: func(r *fakerunner.Runner) {
				r.SetOutput(versionArgv, "something else")
			},
			wantErr: "not properly installed",
		},
		{
			name:      "elevation command missing",
			goos:      "linux",
			elevation: []string{"sudo"},
			setup: func(r *fakerunner.Runner) {
				r.SetOutput(versionArgv, "systemd 252")
				r.SetExitCode(lookupArgv, 1, "")
			},
			wantErr: "elevation command sudo not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := fakerunner.New()
			tt.setup(runner)

			v := NewValidator(testutil.NewTestLogger(t), runner, tt.elevation).
				WithOSGetter(func() string { return tt.goos })

			err := v.SystemRequirements(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
