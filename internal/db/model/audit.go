// Package model holds records persisted by the db package.
package model

import (
	"time"
)

// AuditEvent represents a record in the audit_events table.
type AuditEvent struct {
	ID            int64     `db:"id" json:"id" yaml:"id"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurredAt" yaml:"occurredAt"`
	Action        string    `db:"action" json:"action" yaml:"action"`
	Level         string    `db:"level" json:"level" yaml:"level"`
	UnitName      string    `db:"unit_name" json:"unitName" yaml:"unitName"`
	SessionID     string    `db:"session_id" json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	Success       bool      `db:"success" json:"success" yaml:"success"`
	Detail        string    `db:"detail" json:"detail,omitempty" yaml:"detail,omitempty"`
	ContentDigest string    `db:"content_digest" json:"contentDigest,omitempty" yaml:"contentDigest,omitempty"`
}

// Audit actions besides the unit operations themselves.
const (
	ActionUpload       = "upload"
	ActionDaemonReload = "daemon-reload"
)
