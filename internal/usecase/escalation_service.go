package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/labassist/backend/internal/domain"
)

const (
	escalationKeyPrefix  = "escalation:"
	defaultEscalationTTL = 24 * time.Hour
)

// ReplyOutcome describes what an operator reply did.
type ReplyOutcome int

const (
	// ReplyIgnored means the issuer is not the operator; nothing happened.
	ReplyIgnored ReplyOutcome = iota
	// ReplyResolved means the reply was delivered and the escalation closed.
	ReplyResolved
	// ReplyDeliveredWithoutEscalation means the reply was delivered but no
	// escalation was open for the requester.
	ReplyDeliveredWithoutEscalation
	// ReplyUndelivered means delivery failed; state is left untouched.
	ReplyUndelivered
)

func (o ReplyOutcome) String() string {
	switch o {
	case ReplyIgnored:
		return "ignored"
	case ReplyResolved:
		return "resolved"
	case ReplyDeliveredWithoutEscalation:
		return "delivered_without_escalation"
	case ReplyUndelivered:
		return "undelivered"
	default:
		return "unknown"
	}
}

// EscalationConfig holds configuration for the escalation service
type EscalationConfig struct {
	OperatorID string
	TTL        time.Duration
}

// EscalationService routes unresolved queries to the operator and relays
// the operator's reply back. Per requester it moves Idle -> Escalated -> Idle.
type EscalationService struct {
	cache      domain.CacheRepository
	sessions   *SessionStore
	messenger  domain.Messenger
	journal    domain.AuditJournal
	operatorID string
	ttl        time.Duration
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewEscalationService creates a new escalation service
func NewEscalationService(
	cache domain.CacheRepository,
	sessions *SessionStore,
	messenger domain.Messenger,
	journal domain.AuditJournal,
	config EscalationConfig,
	logger *zap.Logger,
) *EscalationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = defaultEscalationTTL
	}

	return &EscalationService{
		cache:      cache,
		sessions:   sessions,
		messenger:  messenger,
		journal:    journal,
		operatorID: strings.TrimSpace(config.OperatorID),
		ttl:        ttl,
		logger:     logger.With(zap.String("component", "escalation")),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// IsOperator reports whether id is the configured operator identity.
func (s *EscalationService) IsOperator(id string) bool {
	return s.operatorID != "" && id == s.operatorID
}

// Escalate records an open escalation for the requester, replacing any
// older one, and notifies the operator. The record is kept even when the
// notification cannot be delivered; the error then wraps ErrDeliveryFailed.
func (s *EscalationService) Escalate(ctx context.Context, requesterID, query string, reason domain.EscalationReason) (domain.Escalation, error) {
	if requesterID == "" {
		return domain.Escalation{}, domain.ErrInvalidRequest
	}

	esc := domain.Escalation{
		ID:          s.newID(),
		RequesterID: requesterID,
		Query:       query,
		Reason:      reason,
		CreatedAt:   s.now(),
	}

	data, err := json.Marshal(esc)
	if err != nil {
		return domain.Escalation{}, fmt.Errorf("encode escalation: %w", err)
	}
	if err := s.cache.Set(ctx, escalationKey(requesterID), data, s.ttl); err != nil {
		return domain.Escalation{}, fmt.Errorf("store escalation: %w", err)
	}

	s.audit(ctx, domain.AuditEvent{
		Kind:         domain.AuditOpened,
		EscalationID: esc.ID,
		RequesterID:  requesterID,
		Query:        query,
		Detail:       string(reason),
	})

	notice := fmt.Sprintf(operatorNotice, requesterID, reason, query, requesterID)
	if err := s.messenger.Deliver(ctx, s.operatorID, notice); err != nil {
		s.logger.Error("operator notification failed",
			zap.String("escalation_id", esc.ID),
			zap.String("requester_id", requesterID),
			zap.Error(err))
		s.audit(ctx, domain.AuditEvent{
			Kind:         domain.AuditDeliveryFailed,
			EscalationID: esc.ID,
			RequesterID:  requesterID,
			IssuerID:     s.operatorID,
			Detail:       err.Error(),
		})
		return esc, fmt.Errorf("%w: notify operator: %v", domain.ErrDeliveryFailed, err)
	}

	s.logger.Info("escalation opened",
		zap.String("escalation_id", esc.ID),
		zap.String("requester_id", requesterID),
		zap.String("reason", string(reason)))

	return esc, nil
}

// Reply relays text from issuerID to requesterID. Replies from anyone but
// the operator are ignored without error and change nothing; they are only
// audited. A reply for a requester with no open escalation is still delivered.
func (s *EscalationService) Reply(ctx context.Context, issuerID, requesterID, text string) (ReplyOutcome, error) {
	if !s.IsOperator(issuerID) {
		s.audit(ctx, domain.AuditEvent{
			Kind:        domain.AuditUnauthorizedIgnored,
			RequesterID: requesterID,
			IssuerID:    issuerID,
		})
		s.logger.Warn("ignored reply from non-operator", zap.String("issuer_id", issuerID))
		return ReplyIgnored, nil
	}

	if requesterID == "" || strings.TrimSpace(text) == "" {
		return ReplyIgnored, domain.ErrInvalidRequest
	}

	esc, err := s.Get(ctx, requesterID)
	open := err == nil
	if err != nil && !errors.Is(err, domain.ErrEscalationNotFound) {
		s.logger.Warn("escalation lookup failed", zap.String("requester_id", requesterID), zap.Error(err))
	}

	if err := s.messenger.Deliver(ctx, requesterID, text); err != nil {
		s.audit(ctx, domain.AuditEvent{
			Kind:         domain.AuditDeliveryFailed,
			EscalationID: esc.ID,
			RequesterID:  requesterID,
			IssuerID:     issuerID,
			Detail:       err.Error(),
		})
		s.logger.Error("operator reply delivery failed", zap.String("requester_id", requesterID), zap.Error(err))
		return ReplyUndelivered, fmt.Errorf("%w: relay reply: %v", domain.ErrDeliveryFailed, err)
	}

	if !open {
		s.audit(ctx, domain.AuditEvent{
			Kind:        domain.AuditReplyWithoutEscalation,
			RequesterID: requesterID,
			IssuerID:    issuerID,
		})
		return ReplyDeliveredWithoutEscalation, nil
	}

	if err := s.cache.Delete(ctx, escalationKey(requesterID)); err != nil {
		s.logger.Error("clear escalation failed", zap.String("requester_id", requesterID), zap.Error(err))
	}
	if err := s.sessions.Remove(ctx, requesterID); err != nil {
		s.logger.Error("clear session failed", zap.String("requester_id", requesterID), zap.Error(err))
	}

	s.audit(ctx, domain.AuditEvent{
		Kind:         domain.AuditResolved,
		EscalationID: esc.ID,
		RequesterID:  requesterID,
		IssuerID:     issuerID,
		Query:        esc.Query,
	})
	s.logger.Info("escalation resolved",
		zap.String("escalation_id", esc.ID),
		zap.String("requester_id", requesterID))

	return ReplyResolved, nil
}

// Get returns the open escalation for a requester or ErrEscalationNotFound.
func (s *EscalationService) Get(ctx context.Context, requesterID string) (domain.Escalation, error) {
	data, err := s.cache.Get(ctx, escalationKey(requesterID))
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return domain.Escalation{}, domain.ErrEscalationNotFound
		}
		return domain.Escalation{}, err
	}

	var esc domain.Escalation
	if err := json.Unmarshal(data, &esc); err != nil {
		return domain.Escalation{}, fmt.Errorf("decode escalation: %w", err)
	}
	return esc, nil
}

// Open lists every open escalation, oldest first.
func (s *EscalationService) Open(ctx context.Context) ([]domain.Escalation, error) {
	keys, err := s.cache.Keys(ctx, escalationKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	result := make([]domain.Escalation, 0, len(keys))
	for _, key := range keys {
		esc, err := s.Get(ctx, strings.TrimPrefix(key, escalationKeyPrefix))
		if err != nil {
			// expired between Keys and Get
			if errors.Is(err, domain.ErrEscalationNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, esc)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].RequesterID < result[j].RequesterID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *EscalationService) audit(ctx context.Context, event domain.AuditEvent) {
	if s.journal == nil {
		return
	}
	if event.At.IsZero() {
		event.At = s.now()
	}
	if err := s.journal.Record(ctx, event); err != nil {
		s.logger.Warn("audit record failed", zap.String("kind", string(event.Kind)), zap.Error(err))
	}
}

func escalationKey(requesterID string) string {
	return escalationKeyPrefix + requesterID
}
