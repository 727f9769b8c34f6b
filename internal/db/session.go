package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Qian-MoBai/systemd-web/internal/session"
)

// SQLSessionRepository implements session.Store on the session_flags table.
type SQLSessionRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var _ session.Store = (*SQLSessionRepository)(nil)

// NewSessionRepository creates a session store whose flags expire ttl after their last write.
func NewSessionRepository(db *sql.DB, ttl time.Duration) *SQLSessionRepository {
	return &SQLSessionRepository{db: db, ttl: ttl, now: time.Now}
}

// GetFlag retrieves an unexpired flag.
func (r *SQLSessionRepository) GetFlag(ctx context.Context, sessionID, key string) (string, bool, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT value FROM session_flags WHERE session_id = ? AND key = ? AND expires_at > ?",
		sessionID, key, r.now().UTC())

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// SetFlag inserts or replaces a flag and extends every flag of the session.
func (r *SQLSessionRepository) SetFlag(ctx context.Context, sessionID, key, value string) (err error) {
	expires := r.now().UTC().Add(r.ttl)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO session_flags (session_id, key, value, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
		value = excluded.value,
		expires_at = excluded.expires_at
	`, sessionID, key, value, expires); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE session_flags SET expires_at = ? WHERE session_id = ?",
		expires, sessionID); err != nil {
		return err
	}

	return tx.Commit()
}

// Sweep deletes expired flags and returns how many were removed.
func (r *SQLSessionRepository) Sweep(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM session_flags WHERE expires_at <= ?", r.now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
