package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qian-MoBai/systemd-web/internal/config"
	"github.com/Qian-MoBai/systemd-web/internal/db/model"
	"github.com/Qian-MoBai/systemd-web/internal/fs"
	"github.com/Qian-MoBai/systemd-web/internal/session"
	"github.com/Qian-MoBai/systemd-web/internal/systemd"
	"github.com/Qian-MoBai/systemd-web/internal/testutil"
	"github.com/Qian-MoBai/systemd-web/internal/testutil/fakerunner"
	"github.com/Qian-MoBai/systemd-web/internal/validate"
)

const validUnit = `[Unit]
Description=Demo

[Service]
ExecStart=/usr/bin/demo

[Install]
WantedBy=default.target
`

var (
	systemReload = []string{"sudo", "systemctl", "daemon-reload"}
	userReload   = []string{"systemctl", "--user", "daemon-reload"}
)

type recordingAudit struct {
	mu     sync.Mutex
	events []model.AuditEvent
	err    error
}

func (a *recordingAudit) Record(_ context.Context, event model.AuditEvent) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	a.events = append(a.events, event)
	return int64(len(a.events)), nil
}

func (a *recordingAudit) Events() []model.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AuditEvent(nil), a.events...)
}

type fixture struct {
	svc      *Service
	runner   *fakerunner.Runner
	sessions *session.MemoryStore
	audit    *recordingAudit
	cfg      *config.Settings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := testutil.NewMockConfig(t, testutil.WithElevation("sudo"))
	logger := testutil.NewTestLogger(t)
	runner := fakerunner.New()
	sessions := session.NewMemoryStore(time.Hour)
	audit := &recordingAudit{}

	svc := New(Deps{
		Runner:   runner,
		Builder:  systemd.NewCommandBuilder(provider.GetConfig().ElevationCommand),
		Files:    fs.NewServiceWithLogger(provider, logger),
		Sessions: sessions,
		Audit:    audit,
		Logger:   logger,
	})

	return &fixture{svc: svc, runner: runner, sessions: sessions, audit: audit, cfg: provider.GetConfig()}
}

func (f *fixture) fetchTemplate(t *testing.T, sessionID string) {
	t.Helper()
	_, err := f.svc.GetTemplate(context.Background(), sessionID)
	require.NoError(t, err)
}

func TestListUnits(t *testing.T) {
	listing := "  UNIT LOAD ACTIVE SUB DESCRIPTION\n" +
		"  cron.service loaded active running Regular background program processing daemon\n" +
		"● nginx.service loaded failed failed A high performance web server\n" +
		"\n" +
		"LOAD   = Reflects whether the unit definition was properly loaded.\n"

	t.Run("system level with elevation", func(t *testing.T) {
		f := newFixture(t)
		f.runner.SetOutput([]string{"sudo", "systemctl", "--no-pager", "--type=service", "list-units"}, listing)

		records, err := f.svc.ListUnits(context.Background(), "system")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, systemd.UnitRecord{
			UnitName:    "nginx.service",
			LoadState:   "loaded",
			ActiveState: "failed",
			SubState:    "failed",
			Description: "A high performance web server",
		}, records[1])
	})

	t.Run("user level", func(t *testing.T) {
		f := newFixture(t)
		f.runner.SetOutput([]string{"systemctl", "--user", "--no-pager", "--type=service", "list-units"},
			"pipewire.service loaded active running PipeWire Multimedia Service\n")

		records, err := f.svc.ListUnits(context.Background(), "user")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "pipewire.service", records[0].UnitName)
		assert.Equal(t, "PipeWire Multimedia Service", records[0].Description)
	})

	t.Run("invalid level", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ListUnits(context.Background(), "root")
		assert.ErrorIs(t, err, systemd.ErrInvalidLevel)
		assert.Empty(t, f.runner.GetCalls())
	})

	t.Run("execution failure degrades to empty", func(t *testing.T) {
		f := newFixture(t)
		f.runner.SetExitCode([]string{"sudo", "systemctl", "--no-pager", "--type=service", "list-units"}, 1, "Failed to connect to bus")

		records, err := f.svc.ListUnits(context.Background(), "system")
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func TestOperate(t *testing.T) {
	tests := []struct {
		name      string
		req       OperationRequest
		setup     func(r *fakerunner.Runner)
		want      bool
		wantErr   error
		wantCalls [][]string
	}{
		{
			name:      "system restart",
			req:       OperationRequest{Level: "system", Operation: "restart", UnitName: "nginx.service"},
			want:      true,
			wantCalls: [][]string{{"sudo", "systemctl", "restart", "nginx.service"}},
		},
		{
			name:      "user stop",
			req:       OperationRequest{Level: "user", Operation: "stop", UnitName: "app@1.service"},
			want:      true,
			wantCalls: [][]string{{"systemctl", "--user", "stop", "app@1.service"}},
		},
		{
			name: "non-zero exit is false without error",
			req:  OperationRequest{Level: "system", Operation: "start", UnitName: "broken.service"},
			setup: func(r *fakerunner.Runner) {
				r.SetExitCode([]string{"sudo", "systemctl", "start", "broken.service"}, 5, "Unit broken.service not found.")
			},
			want:      false,
			wantCalls: [][]string{{"sudo", "systemctl", "start", "broken.service"}},
		},
		{
			name: "executor failure",
			req:  OperationRequest{Level: "system", Operation: "enable", UnitName: "nginx.service"},
			setup: func(r *fakerunner.Runner) {
				r.SetError([]string{"sudo", "systemctl", "enable", "nginx.service"}, errors.New("exec: \"sudo\": executable file not found"))
			},
			wantErr:   systemd.ErrExecutionFailure,
			wantCalls: [][]string{{"sudo", "systemctl", "enable", "nginx.service"}},
		},
		{
			name:    "operation outside the set",
			req:     OperationRequest{Level: "system", Operation: "mask", UnitName: "nginx.service"},
			wantErr: systemd.ErrInvalidOperation,
		},
		{
			name:    "operation checked before name",
			req:     OperationRequest{Level: "system", Operation: "kill", UnitName: "../x"},
			wantErr: systemd.ErrInvalidOperation,
		},
		{
			name:    "deny-listed unit",
			req:     OperationRequest{Level: "system", Operation: "stop", UnitName: "dbus.service"},
			wantErr: systemd.ErrInvalidUnitName,
		},
		{
			name:    "shell metacharacters",
			req:     OperationRequest{Level: "system", Operation: "stop", UnitName: "a;reboot.service"},
			wantErr: systemd.ErrInvalidUnitName,
		},
		{
			name:    "name checked before level",
			req:     OperationRequest{Level: "root", Operation: "stop", UnitName: "bad name"},
			wantErr: systemd.ErrInvalidUnitName,
		},
		{
			name:    "invalid level",
			req:     OperationRequest{Level: "root", Operation: "stop", UnitName: "nginx.service"},
			wantErr: systemd.ErrInvalidLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f.runner)
			}

			ok, err := f.svc.Operate(context.Background(), tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, ok)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, ok)
			}
			assert.Equal(t, tt.wantCalls, f.runner.GetCalls())
			assert.Len(t, f.audit.Events(), len(tt.wantCalls), "every executed attempt is audited")
		})
	}
}

func TestOperate_AuditEvent(t *testing.T) {
	f := newFixture(t)
	f.runner.SetExitCode([]string{"systemctl", "--user", "reload", "app.service"}, 1, "Job failed")

	ok, err := f.svc.Operate(context.Background(), OperationRequest{Level: "user", Operation: "reload", UnitName: "app.service"})
	require.NoError(t, err)
	assert.False(t, ok)

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "reload", events[0].Action)
	assert.Equal(t, "user", events[0].Level)
	assert.Equal(t, "app.service", events[0].UnitName)
	assert.False(t, events[0].Success)
	assert.Equal(t, "exit status 1: Job failed", events[0].Detail)
}

func TestOperate_AuditFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.audit.err = errors.New("database is locked")

	ok, err := f.svc.Operate(context.Background(), OperationRequest{Level: "system", Operation: "start", UnitName: "nginx.service"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmpl, err := f.svc.GetTemplate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate(), tmpl)

	_, ok, err := f.sessions.GetFlag(ctx, "s1", session.FlagTemplateFetched)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.GetTemplate(ctx, "")
	assert.ErrorIs(t, err, systemd.ErrInvalidArgument)
}

func TestDefaultTemplateIsAcceptable(t *testing.T) {
	assert.NoError(t, validate.ValidateServiceFile(DefaultTemplate()))
}

func TestLoadTemplate(t *testing.T) {
	t.Run("built-in", func(t *testing.T) {
		tmpl, err := LoadTemplate("")
		require.NoError(t, err)
		assert.Equal(t, DefaultTemplate(), tmpl)
	})

	t.Run("override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.service")
		require.NoError(t, os.WriteFile(path, []byte(validUnit), 0600))

		tmpl, err := LoadTemplate(path)
		require.NoError(t, err)
		assert.Equal(t, validUnit, tmpl)
	})

	t.Run("missing override", func(t *testing.T) {
		_, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.service"))
		assert.Error(t, err)
	})

	t.Run("empty override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.service")
		require.NoError(t, os.WriteFile(path, nil, 0600))
		_, err := LoadTemplate(path)
		assert.Error(t, err)
	})

	t.Run("service serves the override", func(t *testing.T) {
		svc := New(Deps{
			Sessions: session.NewMemoryStore(time.Hour),
			Template: validUnit,
			Logger:   testutil.NewTestLogger(t),
		})
		assert.Equal(t, validUnit, svc.Template())
	})
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("writes file and reloads", func(t *testing.T) {
		f := newFixture(t)
		f.fetchTemplate(t, "s1")

		ok, err := f.svc.Upload(ctx, "s1", UploadRequest{Level: "user", UnitName: "demo.service", Content: validUnit})
		require.NoError(t, err)
		assert.True(t, ok)

		path := filepath.Join(f.cfg.UserHome, config.DefaultUserUnitPath, "demo.service")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, validUnit, string(data))

		assert.Equal(t, [][]string{userReload}, f.runner.GetCalls())

		events := f.audit.Events()
		require.Len(t, events, 1)
		assert.Equal(t, model.ActionUpload, events[0].Action)
		assert.Equal(t, "s1", events[0].SessionID)
		assert.True(t, events[0].Success)
		assert.Equal(t, fs.GetContentHash(validUnit), events[0].ContentDigest)
	})

	t.Run("second upload of the same name", func(t *testing.T) {
		f := newFixture(t)
		f.fetchTemplate(t, "s1")
		req := UploadRequest{Level: "system", UnitName: "demo.service", Content: validUnit}

		ok, err := f.svc.Upload(ctx, "s1", req)
		require.NoError(t, err)
		assert.True(t, ok)

		req.Content = strings.Replace(validUnit, "Demo", "Replaced", 1)
		ok, err = f.svc.Upload(ctx, "s1", req)
		assert.ErrorIs(t, err, systemd.ErrFileAlreadyExists)
		assert.False(t, ok)

		data, readErr := os.ReadFile(filepath.Join(f.cfg.SystemUnitDir, "demo.service"))
		require.NoError(t, readErr)
		assert.Equal(t, validUnit, string(data))
		assert.Equal(t, [][]string{systemReload}, f.runner.GetCalls(), "no reload after a rejected write")
	})

	t.Run("reload failure keeps the file", func(t *testing.T) {
		f := newFixture(t)
		f.fetchTemplate(t, "s1")
		f.runner.SetExitCode(systemReload, 1, "Access denied")

		ok, err := f.svc.Upload(ctx, "s1", UploadRequest{Level: "system", UnitName: "demo.service", Content: validUnit})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.FileExists(t, filepath.Join(f.cfg.SystemUnitDir, "demo.service"))

		events := f.audit.Events()
		require.Len(t, events, 1)
		assert.False(t, events[0].Success)
	})

	t.Run("reload executor failure", func(t *testing.T) {
		f := newFixture(t)
		f.fetchTemplate(t, "s1")
		f.runner.SetError(userReload, context.DeadlineExceeded)

		ok, err := f.svc.Upload(ctx, "s1", UploadRequest{Level: "user", UnitName: "demo.service", Content: validUnit})
		assert.ErrorIs(t, err, systemd.ErrExecutionFailure)
		assert.False(t, ok)
	})
}

func TestUpload_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		session  string
		fetch    bool
		req      UploadRequest
		wantErr  error
		security bool
	}{
		{
			name:    "no template fetched",
			session: "s1",
			req:     UploadRequest{Level: "system", UnitName: "demo.service", Content: validUnit},
			wantErr: systemd.ErrSessionPrecondition,
		},
		{
			name:    "no session at all",
			req:     UploadRequest{Level: "system", UnitName: "demo.service", Content: validUnit},
			wantErr: systemd.ErrSessionPrecondition,
		},
		{
			name:    "gate checked before blanks",
			session: "s1",
			req:     UploadRequest{},
			wantErr: systemd.ErrSessionPrecondition,
		},
		{
			name:    "blank content",
			session: "s1",
			fetch:   true,
			req:     UploadRequest{Level: "system", UnitName: "demo.service", Content: "   "},
			wantErr: systemd.ErrInvalidArgument,
		},
		{
			name:     "traversal in name",
			session:  "s1",
			fetch:    true,
			req:      UploadRequest{Level: "system", UnitName: "../../etc/evil.service", Content: validUnit},
			wantErr:  systemd.ErrInvalidUnitName,
			security: true,
		},
		{
			name:     "deny-listed name",
			session:  "s1",
			fetch:    true,
			req:      UploadRequest{Level: "system", UnitName: "systemd.service", Content: validUnit},
			wantErr:  systemd.ErrInvalidUnitName,
			security: true,
		},
		{
			name:    "invalid level",
			session: "s1",
			fetch:   true,
			req:     UploadRequest{Level: "global", UnitName: "demo.service", Content: validUnit},
			wantErr: systemd.ErrInvalidLevel,
		},
		{
			name:    "missing WantedBy",
			session: "s1",
			fetch:   true,
			req:     UploadRequest{Level: "system", UnitName: "demo.service", Content: strings.Replace(validUnit, "WantedBy=default.target\n", "", 1)},
			wantErr: systemd.ErrInvalidServiceFileContent,
		},
		{
			name:    "unlisted target",
			session: "s1",
			fetch:   true,
			req:     UploadRequest{Level: "system", UnitName: "demo.service", Content: strings.Replace(validUnit, "default.target", "rescue.target", 1)},
			wantErr: systemd.ErrInvalidServiceFileContent,
		},
		{
			name:    "dangerous content",
			session: "s1",
			fetch:   true,
			req:     UploadRequest{Level: "user", UnitName: "demo.service", Content: strings.Replace(validUnit, "/usr/bin/demo", "/bin/rm -rf /", 1)},
			wantErr: systemd.ErrInvalidServiceFileContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.fetch {
				f.fetchTemplate(t, tt.session)
			}

			ok, err := f.svc.Upload(ctx, tt.session, tt.req)

			assert.False(t, ok)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.security, systemd.IsSecurityError(err))
			assert.Empty(t, f.runner.GetCalls())
			assert.Empty(t, f.audit.Events())

			for _, dir := range []string{f.cfg.SystemUnitDir, filepath.Join(f.cfg.UserHome, config.DefaultUserUnitPath)} {
				entries, _ := os.ReadDir(dir)
				assert.Empty(t, entries, "nothing written to %s", dir)
			}

			if tt.fetch {
				// a rejection keeps the session able to upload
				_, stillFetched, _ := f.sessions.GetFlag(ctx, tt.session, session.FlagTemplateFetched)
				assert.True(t, stillFetched)
			}
		})
	}
}

func TestUpload_BlankFieldsAreNamed(t *testing.T) {
	f := newFixture(t)
	f.fetchTemplate(t, "s1")

	_, err := f.svc.Upload(context.Background(), "s1", UploadRequest{Level: "user"})

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"unitName", "content"}, verrs.Fields())
}

func TestUpload_ContentProblemsReported(t *testing.T) {
	f := newFixture(t)
	f.fetchTemplate(t, "s1")
	content := strings.Replace(validUnit, "/usr/bin/demo", "/sbin/reboot", 1)

	_, err := f.svc.Upload(context.Background(), "s1", UploadRequest{Level: "system", UnitName: "demo.service", Content: content})

	ce, ok := validate.ContentProblems(err)
	require.True(t, ok)
	assert.Contains(t, validate.RuleIDs(ce.Violations), "power-command")
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("without inspector", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Status(ctx, "system", "nginx.service")
		assert.ErrorIs(t, err, systemd.ErrExecutionFailure)
	})

	t.Run("validates before connecting", func(t *testing.T) {
		factory := &systemd.MockConnectionFactory{
			NewConnectionFunc: func(context.Context, bool) (systemd.Connection, error) {
				t.Fatal("connection must not be opened")
				return nil, nil
			},
		}
		svc := New(Deps{
			Sessions:  session.NewMemoryStore(time.Hour),
			Inspector: systemd.NewInspector(factory, testutil.NewTestLogger(t)),
			Logger:    testutil.NewTestLogger(t),
		})

		_, err := svc.Status(ctx, "system", "../x.service")
		assert.ErrorIs(t, err, systemd.ErrInvalidUnitName)
		_, err = svc.Status(ctx, "root", "nginx.service")
		assert.ErrorIs(t, err, systemd.ErrInvalidLevel)
	})

	t.Run("reads properties", func(t *testing.T) {
		var userMode bool
		conn := &systemd.MockConnection{
			GetUnitPropertiesFunc: func(context.Context, string) (map[string]interface{}, error) {
				return map[string]interface{}{"Id": "app.service", "LoadState": "loaded", "ActiveState": "active", "SubState": "running"}, nil
			},
			GetServicePropertiesFunc: func(context.Context, string) (map[string]interface{}, error) {
				return map[string]interface{}{"MainPID": uint32(4242), "Result": "success"}, nil
			},
		}
		factory := &systemd.MockConnectionFactory{
			NewConnectionFunc: func(_ context.Context, um bool) (systemd.Connection, error) {
				userMode = um
				return conn, nil
			},
		}
		svc := New(Deps{
			Sessions:  session.NewMemoryStore(time.Hour),
			Inspector: systemd.NewInspector(factory, testutil.NewTestLogger(t)),
			Logger:    testutil.NewTestLogger(t),
		})

		status, err := svc.Status(ctx, "user", "app.service")
		require.NoError(t, err)
		assert.True(t, userMode)
		assert.Equal(t, uint32(4242), status.MainPID)
		assert.Equal(t, "running", status.SubState)
		assert.True(t, conn.Closed)
	})
}
