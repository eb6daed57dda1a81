package logging

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/labassist/backend/internal/domain"
)

// Journal writes audit events to the log. It never fails.
type Journal struct {
	logger *zap.Logger
}

// NewJournal creates a log-backed audit journal.
func NewJournal(logger *zap.Logger) *Journal {
	return &Journal{logger: logger.With(zap.String("component", "audit"))}
}

// Record logs one event at info level, or warn for failures and ignored replies.
func (j *Journal) Record(_ context.Context, event domain.AuditEvent) error {
	fields := []zap.Field{
		zap.String("kind", string(event.Kind)),
		zap.String("requester_id", event.RequesterID),
		zap.Time("at", event.At),
	}
	if event.EscalationID != "" {
		fields = append(fields, zap.String("escalation_id", event.EscalationID))
	}
	if event.IssuerID != "" {
		fields = append(fields, zap.String("issuer_id", event.IssuerID))
	}
	if event.Query != "" {
		fields = append(fields, zap.String("query", event.Query))
	}
	if event.Detail != "" {
		fields = append(fields, zap.String("detail", event.Detail))
	}

	switch event.Kind {
	case domain.AuditDeliveryFailed, domain.AuditUnauthorizedIgnored:
		j.logger.Warn("escalation audit", fields...)
	default:
		j.logger.Info("escalation audit", fields...)
	}
	return nil
}

// MultiJournal fans an event out to several journals. Every journal is
// tried; the errors are joined.
type MultiJournal []domain.AuditJournal

// Record implements domain.AuditJournal.
func (m MultiJournal) Record(ctx context.Context, event domain.AuditEvent) error {
	var errs []error
	for _, journal := range m {
		if journal == nil {
			continue
		}
		if err := journal.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
