// Package service orchestrates unit listing, unit operations and unit file
// uploads on top of the validation and command layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Qian-MoBai/systemd-web/internal/db/model"
	"github.com/Qian-MoBai/systemd-web/internal/execx"
	"github.com/Qian-MoBai/systemd-web/internal/fs"
	"github.com/Qian-MoBai/systemd-web/internal/log"
	"github.com/Qian-MoBai/systemd-web/internal/session"
	"github.com/Qian-MoBai/systemd-web/internal/systemd"
	"github.com/Qian-MoBai/systemd-web/internal/validate"
)

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, event model.AuditEvent) (int64, error)
}

// NopAuditRecorder discards every event.
type NopAuditRecorder struct{}

// Record implements AuditRecorder.
func (NopAuditRecorder) Record(context.Context, model.AuditEvent) (int64, error) {
	return 0, nil
}

// Deps holds the collaborators of a Service. Audit, Inspector and Template
// are optional; Template defaults to DefaultTemplate.
type Deps struct {
	Runner    execx.Runner
	Builder   *systemd.CommandBuilder
	Files     *fs.Service
	Sessions  session.Store
	Audit     AuditRecorder
	Inspector *systemd.Inspector
	Template  string
	Logger    log.Logger
}

// Service is the operation orchestrator. It holds no per-request state.
type Service struct {
	runner    execx.Runner
	builder   *systemd.CommandBuilder
	registry  *systemd.Registry
	files     *fs.Service
	sessions  session.Store
	audit     AuditRecorder
	inspector *systemd.Inspector
	template  string
	logger    log.Logger
}

// New creates a Service from deps.
func New(deps Deps) *Service {
	s := &Service{
		runner:    deps.Runner,
		builder:   deps.Builder,
		registry:  systemd.NewRegistry(deps.Runner, deps.Builder, deps.Logger),
		files:     deps.Files,
		sessions:  deps.Sessions,
		audit:     deps.Audit,
		inspector: deps.Inspector,
		template:  deps.Template,
		logger:    deps.Logger,
	}
	if s.audit == nil {
		s.audit = NopAuditRecorder{}
	}
	if s.template == "" {
		s.template = DefaultTemplate()
	}
	return s
}

// ListUnits returns the service units of level. Execution failures are
// logged and yield an empty list.
func (s *Service) ListUnits(ctx context.Context, level string) ([]systemd.UnitRecord, error) {
	lvl, err := systemd.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	records, err := s.registry.ListUnits(ctx, lvl)
	if err != nil {
		if errors.Is(err, systemd.ErrExecutionFailure) {
			s.logger.Error("Failed to list units", "level", lvl, "error", err)
			return []systemd.UnitRecord{}, nil
		}
		return nil, err
	}
	return records, nil
}

// Operate applies operation to unitName at level. It reports true iff the
// command exited zero. A non-zero exit is logged and returned as false.
func (s *Service) Operate(ctx context.Context, req OperationRequest) (bool, error) {
	op, err := systemd.ParseOperation(req.Operation)
	if err != nil {
		return false, err
	}
	if err := validate.UnitName(req.UnitName); err != nil {
		s.logger.Warn("Rejected unit name", "unit", req.UnitName, "operation", op)
		return false, err
	}
	lvl, err := systemd.ParseLevel(req.Level)
	if err != nil {
		return false, err
	}

	argv, err := s.builder.Build(lvl, op.Command(req.UnitName))
	if err != nil {
		return false, err
	}

	ok, detail, err := s.run(ctx, argv)
	s.record(ctx, model.AuditEvent{
		Action:   op.String(),
		Level:    lvl.String(),
		UnitName: req.UnitName,
		Success:  ok,
		Detail:   detail,
	})
	if err != nil {
		return false, err
	}

	if ok {
		s.logger.Info("Unit operation succeeded", "unit", req.UnitName, "operation", op, "level", lvl)
	} else {
		s.logger.Warn("Unit operation failed", "unit", req.UnitName, "operation", op, "level", lvl, "detail", detail)
	}
	return ok, nil
}

// Status inspects unitName at level over D-Bus.
func (s *Service) Status(ctx context.Context, level, unitName string) (*systemd.UnitStatus, error) {
	lvl, err := systemd.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := validate.UnitName(unitName); err != nil {
		return nil, err
	}
	if s.inspector == nil {
		return nil, systemd.NewExecutionError("status", "unit inspector is not available", nil)
	}
	return s.inspector.Status(ctx, lvl, unitName)
}

// run executes argv. I/O failures are ExecutionFailure errors; a non-zero
// exit is reported through ok and detail.
func (s *Service) run(ctx context.Context, argv []string) (ok bool, detail string, err error) {
	command := strings.Join(argv, " ")
	s.logger.Debug("Executing command", "command", command)

	result, err := s.runner.Execute(ctx, argv...)
	if err != nil {
		return false, err.Error(), systemd.NewExecutionError(command, "command did not run", err)
	}
	if !result.Success() {
		stderr := strings.TrimSpace(string(result.Stderr))
		if stderr == "" {
			return false, fmt.Sprintf("exit status %d", result.ExitCode), nil
		}
		return false, fmt.Sprintf("exit status %d: %s", result.ExitCode, stderr), nil
	}
	return true, "", nil
}

func (s *Service) record(ctx context.Context, event model.AuditEvent) {
	if _, err := s.audit.Record(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("Failed to record audit event", "action", event.Action, "unit", event.UnitName, "error", err)
	}
}
