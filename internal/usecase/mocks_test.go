package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/labassist/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string][]byte
	ttls      map[string]time.Duration
	getError  error
	setError  error
	setCalled int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalled++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *MockCacheRepository) snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = string(v)
	}
	return out
}

type delivery struct {
	recipient string
	text      string
}

// MockMessenger is a mock implementation of domain.Messenger
type MockMessenger struct {
	mu        sync.Mutex
	delivered []delivery
	err       error
}

func (m *MockMessenger) Deliver(ctx context.Context, recipientID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.delivered = append(m.delivered, delivery{recipient: recipientID, text: text})
	return nil
}

func (m *MockMessenger) to(recipient string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var texts []string
	for _, d := range m.delivered {
		if d.recipient == recipient {
			texts = append(texts, d.text)
		}
	}
	return texts
}

func (m *MockMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.delivered)
}

// MockAnswerService is a mock implementation of domain.AnswerService
type MockAnswerService struct {
	answer    string
	err       error
	hang      bool // block until the context is done
	calls     int
	grounding string
}

func (m *MockAnswerService) Answer(ctx context.Context, query, grounding string) (string, error) {
	m.calls++
	m.grounding = grounding
	if m.hang {
		<-ctx.Done()
		return "", fmt.Errorf("%w: %v", domain.ErrAnswerUnavailable, ctx.Err())
	}
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

// MockCatalogSource is a mock implementation of domain.CatalogSource
type MockCatalogSource struct {
	lab           []domain.CatalogEntry
	competitors   []domain.CompetitorEntry
	labErr        error
	competitorErr error
}

func (m *MockCatalogSource) ListLabEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	if m.labErr != nil {
		return nil, m.labErr
	}
	return m.lab, nil
}

func (m *MockCatalogSource) ListCompetitorEntries(ctx context.Context) ([]domain.CompetitorEntry, error) {
	if m.competitorErr != nil {
		return nil, m.competitorErr
	}
	return m.competitors, nil
}

// MockAuditJournal is a mock implementation of domain.AuditJournal
type MockAuditJournal struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (m *MockAuditJournal) Record(ctx context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockAuditJournal) kinds() []domain.AuditKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]domain.AuditKind, 0, len(m.events))
	for _, e := range m.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func lab(name, price, turnaround string) domain.CatalogEntry {
	return domain.CatalogEntry{Name: name, Price: domain.ParsePrice(price), Turnaround: turnaround}
}

func competitor(name, label, price, turnaround string) domain.CompetitorEntry {
	return domain.CompetitorEntry{Name: name, Competitor: label, Price: domain.ParsePrice(price), Turnaround: turnaround}
}
