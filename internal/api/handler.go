// Package api exposes the unit control service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Qian-MoBai/systemd-web/internal/db/model"
	"github.com/Qian-MoBai/systemd-web/internal/log"
	"github.com/Qian-MoBai/systemd-web/internal/service"
	"github.com/Qian-MoBai/systemd-web/internal/systemd"
)

// Audit list bounds.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// UnitService is the orchestrator surface served over HTTP.
type UnitService interface {
	ListUnits(ctx context.Context, level string) ([]systemd.UnitRecord, error)
	Operate(ctx context.Context, req service.OperationRequest) (bool, error)
	GetTemplate(ctx context.Context, sessionID string) (string, error)
	Upload(ctx context.Context, sessionID string, req service.UploadRequest) (bool, error)
	Status(ctx context.Context, level, unitName string) (*systemd.UnitStatus, error)
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]model.AuditEvent, error)
}

// Response is the envelope of every API reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Handler provides HTTP handlers for the unit control API.
type Handler struct {
	svc      UnitService
	audit    AuditReader
	maxBytes int64
	logger   log.Logger
}

// NewHandler creates a new Handler. audit may be nil, in which case the audit
// route reports an empty trail. Request bodies are capped at maxBytes.
func NewHandler(svc UnitService, audit AuditReader, maxBytes int64, logger log.Logger) *Handler {
	return &Handler{
		svc:      svc,
		audit:    audit,
		maxBytes: maxBytes,
		logger:   logger.With("component", "api"),
	}
}

// Mux returns a configured ServeMux with all API routes.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/systemd/service", h.handleListUnits)
	mux.HandleFunc("POST /api/systemd/service/operation", h.handleOperate)
	mux.HandleFunc("GET /api/systemd/service/template", h.handleGetTemplate)
	mux.HandleFunc("POST /api/systemd/service/upload", h.handleUpload)
	mux.HandleFunc("GET /api/systemd/service/{unitName}/status", h.handleStatus)
	mux.HandleFunc("GET /api/systemd/audit", h.handleAudit)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

func (h *Handler) handleListUnits(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListUnits(r.Context(), levelParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, records)
}

func (h *Handler) handleOperate(w http.ResponseWriter, r *http.Request) {
	var req service.OperationRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.logger.Info("Operating unit", "unit", req.UnitName, "operation", req.Operation, "level", req.Level)

	ok, err := h.svc.Operate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, ok)
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.svc.GetTemplate(r.Context(), SessionID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, tmpl)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req service.UploadRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.logger.Info("Uploading unit", "unit", req.UnitName, "level", req.Level, "bytes", len(req.Content))

	ok, err := h.svc.Upload(r.Context(), SessionID(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, ok)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context(), levelParam(r), r.PathValue("unitName"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, status)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := DefaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxAuditLimit {
			writeResponse(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(MaxAuditLimit), nil)
			return
		}
		limit = n
	}

	if h.audit == nil {
		writeOK(w, []model.AuditEvent{})
		return
	}
	events, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, events)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, "ok")
}

// decode reads a JSON body into v, writing the error reply itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeResponse(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return false
		}
		writeResponse(w, http.StatusBadRequest, "malformed request body", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()

	switch {
	case systemd.IsSecurityError(err):
		h.logger.Warn("Security rejection", "path", r.URL.Path, "session", SessionID(r.Context()), "error", err)
	case status >= http.StatusInternalServerError:
		h.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
	default:
		h.logger.Debug("Request rejected", "path", r.URL.Path, "error", err)
	}

	writeResponse(w, status, msg, nil)
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	kind, ok := systemd.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case systemd.KindInvalidLevel, systemd.KindInvalidOperation,
		systemd.KindInvalidArgument, systemd.KindInvalidServiceFileContent:
		return http.StatusBadRequest
	case systemd.KindInvalidUnitName, systemd.KindPathTraversal:
		return http.StatusForbidden
	case systemd.KindFileAlreadyExists:
		return http.StatusConflict
	case systemd.KindSessionPrecondition:
		return http.StatusPreconditionRequired
	case systemd.KindExecutionFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func levelParam(r *http.Request) string {
	if level := r.URL.Query().Get("level"); level != "" {
		return level
	}
	return systemd.LevelSystem.String()
}

func writeOK(w http.ResponseWriter, data any) {
	writeResponse(w, http.StatusOK, "success", data)
}

func writeResponse(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, Response{Code: status, Message: msg, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
