package domain

import (
	"strings"
	"time"
)

// InboundMessage is a text event delivered by the chat transport.
// Photos and voice notes are converted to text upstream.
type InboundMessage struct {
	SenderID   string    `json:"senderId"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// PendingSession is the one-step lookback kept per requester: the names
// matched by the last query, or the raw query when nothing matched.
type PendingSession struct {
	RequesterID  string    `json:"requesterId"`
	MatchedNames []string  `json:"matchedNames,omitempty"`
	RawQuery     string    `json:"rawQuery,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Items returns what a comparison should look up: the matched names, or
// the raw query as a single item.
func (s PendingSession) Items() []string {
	if len(s.MatchedNames) > 0 {
		return s.MatchedNames
	}
	if strings.TrimSpace(s.RawQuery) == "" {
		return nil
	}
	return []string{s.RawQuery}
}

// SavedValue is the comma-joined form used when the session is handed to an operator.
func (s PendingSession) SavedValue() string {
	return strings.Join(s.Items(), ", ")
}

// EscalationReason says why a query was handed to a human.
type EscalationReason string

const (
	ReasonAnswerNotFound    EscalationReason = "answer_not_found"
	ReasonAnswerUnavailable EscalationReason = "answer_unavailable"
	ReasonComparisonEmpty   EscalationReason = "comparison_empty"
)

// Escalation is an unresolved query awaiting an operator reply.
// At most one is open per requester; a newer one replaces the older.
type Escalation struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requesterId"`
	Query       string           `json:"query"`
	Reason      EscalationReason `json:"reason"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// AuditKind classifies escalation lifecycle events.
type AuditKind string

const (
	AuditOpened                 AuditKind = "opened"
	AuditResolved               AuditKind = "resolved"
	AuditReplyWithoutEscalation AuditKind = "reply_without_escalation"
	AuditUnauthorizedIgnored    AuditKind = "unauthorized_reply_ignored"
	AuditDeliveryFailed         AuditKind = "delivery_failed"
)

// AuditEvent is one entry in the escalation audit journal.
type AuditEvent struct {
	Kind         AuditKind `json:"kind" db:"kind"`
	EscalationID string    `json:"escalationId,omitempty" db:"escalation_id"`
	RequesterID  string    `json:"requesterId" db:"requester_id"`
	IssuerID     string    `json:"issuerId,omitempty" db:"issuer_id"`
	Query        string    `json:"query,omitempty" db:"query"`
	Detail       string    `json:"detail,omitempty" db:"detail"`
	At           time.Time `json:"at" db:"created_at"`
}
