package cmd

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/Qian-MoBai/systemd-web/internal/systemd"
	"github.com/Qian-MoBai/systemd-web/internal/testutil"
	"github.com/Qian-MoBai/systemd-web/internal/testutil/fakerunner"
)

const validUnit = `[Unit]
Description=Demo

[Service]
ExecStart=/usr/bin/demo

[Install]
WantedBy=multi-user.target
`

// testEnv is an App wired to a fake runner and a mock D-Bus connection.
type testEnv struct {
	app    *App
	runner *fakerunner.Runner
	conn   *systemd.MockConnection
}

// newTestEnv builds an App the way NewApp does, with system commands run
// without elevation and the database under t.TempDir().
func newTestEnv(t *testing.T, opts ...testutil.ConfigOption) *testEnv {
	t.Helper()

	provider := testutil.NewMockConfig(t, append([]testutil.ConfigOption{testutil.WithElevation()}, opts...)...)
	runner := fakerunner.New()
	conn := &systemd.MockConnection{}

	app, err := newApp(testutil.NewTestLogger(t), provider, runner, &systemd.MockConnectionFactory{Connection: conn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return &testEnv{app: app, runner: runner, conn: conn}
}

// SetupCommandContext creates a command with app context for testing.
func SetupCommandContext(cmd *cobra.Command, app *App) {
	ctx := context.WithValue(context.Background(), appContextKey, app)
	cmd.SetContext(ctx)
}

// ExecuteCommandWithCapture executes a cobra command and returns what it
// wrote to stdout. Error reports are dropped; the error is returned.
func ExecuteCommandWithCapture(t *testing.T, cmd *cobra.Command, args []string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// runWithApp executes cmd with app in its context and captures its output.
func runWithApp(t *testing.T, cmd *cobra.Command, app *App, args ...string) (string, error) {
	t.Helper()
	SetupCommandContext(cmd, app)
	return ExecuteCommandWithCapture(t, cmd, args)
}
