package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labassist/backend/internal/domain"
)

const (
	sessionKeyPrefix  = "session:"
	defaultSessionTTL = 30 * time.Minute
)

// SessionStore keeps the one-step lookback per requester. Put always
// overwrites: a requester can only ever compare their latest query.
type SessionStore struct {
	cache domain.CacheRepository
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionStore creates a session store over the given cache.
func NewSessionStore(cache domain.CacheRepository, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{cache: cache, ttl: ttl, now: time.Now}
}

// Put records the result of the requester's latest query.
func (s *SessionStore) Put(ctx context.Context, requesterID string, matchedNames []string, rawQuery string) error {
	if requesterID == "" {
		return domain.ErrInvalidRequest
	}

	session := domain.PendingSession{
		RequesterID: requesterID,
		UpdatedAt:   s.now(),
	}
	if len(matchedNames) > 0 {
		session.MatchedNames = append([]string(nil), matchedNames...)
	} else {
		session.RawQuery = rawQuery
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.cache.Set(ctx, sessionKey(requesterID), data, s.ttl)
}

// Get returns the requester's pending session or ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, requesterID string) (domain.PendingSession, error) {
	data, err := s.cache.Get(ctx, sessionKey(requesterID))
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return domain.PendingSession{}, domain.ErrSessionNotFound
		}
		return domain.PendingSession{}, err
	}

	var session domain.PendingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.PendingSession{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Remove drops the requester's session. Removing a missing session is not an error.
func (s *SessionStore) Remove(ctx context.Context, requesterID string) error {
	return s.cache.Delete(ctx, sessionKey(requesterID))
}

func sessionKey(requesterID string) string {
	return sessionKeyPrefix + requesterID
}
