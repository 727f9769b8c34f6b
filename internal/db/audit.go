package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Qian-MoBai/systemd-web/internal/db/model"
)

// AuditRepository defines the interface for audit trail access.
type AuditRepository interface {
	Record(ctx context.Context, event model.AuditEvent) (int64, error)
	Recent(ctx context.Context, limit int) ([]model.AuditEvent, error)
	FindByUnitName(ctx context.Context, unitName string, limit int) ([]model.AuditEvent, error)
}

// SQLAuditRepository implements AuditRepository with SQL database.
type SQLAuditRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditRepository creates a new SQL-based audit repository.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &SQLAuditRepository{db: db, now: time.Now}
}

// Record appends an event. A zero OccurredAt is stamped with the current time.
func (r *SQLAuditRepository) Record(ctx context.Context, event model.AuditEvent) (int64, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (occurred_at, action, level, unit_name, session_id, success, detail, content_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, event.OccurredAt.UTC(), event.Action, event.Level, event.UnitName, event.SessionID, event.Success, event.Detail, event.ContentDigest)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Recent returns up to limit events, newest first.
func (r *SQLAuditRepository) Recent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, occurred_at, action, level, unit_name, session_id, success, detail, content_digest FROM audit_events ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanAuditEvents(rows)
}

// FindByUnitName returns up to limit events for a unit, newest first.
func (r *SQLAuditRepository) FindByUnitName(ctx context.Context, unitName string, limit int) ([]model.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, occurred_at, action, level, unit_name, session_id, success, detail, content_digest FROM audit_events WHERE unit_name = ? ORDER BY id DESC LIMIT ?",
		unitName, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanAuditEvents(rows)
}

func scanAuditEvents(rows *sql.Rows) ([]model.AuditEvent, error) {
	events := []model.AuditEvent{}
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Action, &e.Level, &e.UnitName, &e.SessionID, &e.Success, &e.Detail, &e.ContentDigest); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
