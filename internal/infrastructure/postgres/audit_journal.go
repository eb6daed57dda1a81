package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/labassist/backend/internal/domain"
)

const (
	insertAuditEventQuery = `INSERT INTO escalation_audit (kind, escalation_id, requester_id, issuer_id, query, detail, created_at)
VALUES (:kind, :escalation_id, :requester_id, :issuer_id, :query, :detail, :created_at)`

	recentAuditEventsQuery = `SELECT kind, escalation_id, requester_id, issuer_id, query, detail, created_at
FROM escalation_audit ORDER BY created_at DESC, id DESC LIMIT $1`
)

// AuditJournal persists escalation lifecycle events.
type AuditJournal struct {
	db *sqlx.DB
}

// NewAuditJournal creates a new Postgres audit journal
func NewAuditJournal(db *sqlx.DB) *AuditJournal {
	return &AuditJournal{db: db}
}

// Record inserts one event.
func (j *AuditJournal) Record(ctx context.Context, event domain.AuditEvent) error {
	if _, err := j.db.NamedExecContext(ctx, insertAuditEventQuery, event); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns the newest events first.
func (j *AuditJournal) Recent(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var events []domain.AuditEvent
	if err := j.db.SelectContext(ctx, &events, recentAuditEventsQuery, limit); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
