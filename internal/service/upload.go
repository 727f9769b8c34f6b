package service

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/Qian-MoBai/systemd-web/internal/db/model"
	"github.com/Qian-MoBai/systemd-web/internal/fs"
	"github.com/Qian-MoBai/systemd-web/internal/session"
	"github.com/Qian-MoBai/systemd-web/internal/systemd"
	"github.com/Qian-MoBai/systemd-web/internal/validate"
)

//go:embed templates/template.service
var defaultTemplate string

// DefaultTemplate returns the built-in unit file template.
func DefaultTemplate() string {
	return defaultTemplate
}

// LoadTemplate reads the template override at path, or returns the built-in
// template when path is empty.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-configured path
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("template %s is empty", path)
	}
	return string(data), nil
}

// Template returns the unit template without touching any session.
func (s *Service) Template() string {
	return s.template
}

// GetTemplate returns the unit template and marks sessionID as having fetched it.
func (s *Service) GetTemplate(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", systemd.NewError(systemd.KindInvalidArgument, "sessionID", "is required", nil)
	}
	if err := s.sessions.SetFlag(ctx, sessionID, session.FlagTemplateFetched, "true"); err != nil {
		return "", fmt.Errorf("failed to record template fetch: %w", err)
	}
	return s.template, nil
}

// Upload validates req, writes it as a new unit file and reloads the manager
// for its level. It reports the reload's success. The written file is kept
// when the reload fails.
func (s *Service) Upload(ctx context.Context, sessionID string, req UploadRequest) (bool, error) {
	if err := s.requireTemplate(ctx, sessionID); err != nil {
		return false, err
	}

	if err := req.Validate(); err != nil {
		return false, systemd.NewError(systemd.KindInvalidArgument, "", "invalid upload request", err)
	}

	if err := validate.UnitName(req.UnitName); err != nil {
		s.logger.Warn("Rejected unit name", "unit", req.UnitName, "session", sessionID)
		return false, err
	}

	lvl, err := systemd.ParseLevel(req.Level)
	if err != nil {
		return false, err
	}

	if err := validate.ValidateServiceFile(req.Content); err != nil {
		s.logger.Warn("Rejected unit file content", "unit", req.UnitName, "error", err)
		return false, err
	}

	unitPath, err := s.files.ResolveUnitPath(lvl, req.UnitName)
	if err != nil {
		s.logger.Warn("Rejected unit path", "unit", req.UnitName, "error", err)
		return false, err
	}

	event := model.AuditEvent{
		Action:        model.ActionUpload,
		Level:         lvl.String(),
		UnitName:      req.UnitName,
		SessionID:     sessionID,
		ContentDigest: fs.GetContentHash(req.Content),
	}

	if err := s.files.CreateUnitFile(unitPath, req.Content); err != nil {
		event.Detail = err.Error()
		s.record(ctx, event)
		return false, err
	}
	s.logger.Info("Unit file written", "unit", req.UnitName, "path", unitPath, "digest", event.ContentDigest)

	argv, err := s.builder.Build(lvl, systemd.DaemonReloadCommand())
	if err != nil {
		return false, err
	}

	ok, detail, err := s.run(ctx, argv)
	event.Success = ok
	event.Detail = detail
	s.record(ctx, event)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Warn("Daemon reload failed after upload", "unit", req.UnitName, "level", lvl, "detail", detail)
	}
	return ok, nil
}

func (s *Service) requireTemplate(ctx context.Context, sessionID string) error {
	if sessionID != "" {
		_, ok, err := s.sessions.GetFlag(ctx, sessionID, session.FlagTemplateFetched)
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
		if ok {
			return nil
		}
	}
	s.logger.Warn("Upload without template fetch", "session", sessionID)
	return systemd.NewError(systemd.KindSessionPrecondition, sessionID, "template has not been fetched in this session", nil)
}
