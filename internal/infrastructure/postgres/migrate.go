package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS lab_tests (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	price      TEXT,
	turnaround TEXT
)`,
	`CREATE TABLE IF NOT EXISTS competitor_prices (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	competitor TEXT,
	price      TEXT,
	turnaround TEXT
)`,
	`CREATE TABLE IF NOT EXISTS escalation_audit (
	id            BIGSERIAL PRIMARY KEY,
	kind          TEXT NOT NULL,
	escalation_id TEXT NOT NULL DEFAULT '',
	requester_id  TEXT NOT NULL DEFAULT '',
	issuer_id     TEXT NOT NULL DEFAULT '',
	query         TEXT NOT NULL DEFAULT '',
	detail        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS escalation_audit_created_at_idx ON escalation_audit (created_at)`,
}

// Migrate creates the catalog and audit tables if they do not exist.
// Statements run in one transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
