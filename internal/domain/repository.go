package domain

import (
	"context"
	"time"
)

// CacheRepository is a TTL key-value store. Sessions and escalations are
// kept in it as JSON documents under their own key prefixes.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// CatalogSource reads the lab test list and the competitor price list.
// Rows come back in source order; names are not yet normalized.
type CatalogSource interface {
	ListLabEntries(ctx context.Context) ([]CatalogEntry, error)
	ListCompetitorEntries(ctx context.Context) ([]CompetitorEntry, error)
}

// AnswerService phrases a natural-language answer restricted to the grounding context.
type AnswerService interface {
	Answer(ctx context.Context, query, grounding string) (string, error)
}

// Messenger delivers outbound text to a chat identity.
type Messenger interface {
	Deliver(ctx context.Context, recipientID, text string) error
}

// AuditJournal records escalation lifecycle events.
type AuditJournal interface {
	Record(ctx context.Context, event AuditEvent) error
}
