package usecase

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/labassist/backend/internal/domain"
)

const testOperator = "operator-1"

type escalationFixture struct {
	cache     *MockCacheRepository
	sessions  *SessionStore
	messenger *MockMessenger
	journal   *MockAuditJournal
	svc       *EscalationService
}

func newEscalationFixture() *escalationFixture {
	cache := NewMockCacheRepository()
	sessions := NewSessionStore(cache, 0)
	messenger := &MockMessenger{}
	journal := &MockAuditJournal{}
	svc := NewEscalationService(cache, sessions, messenger, journal, EscalationConfig{OperatorID: testOperator}, nil)

	ids := 0
	svc.newID = func() string {
		ids++
		return "esc-" + string(rune('0'+ids))
	}
	return &escalationFixture{cache: cache, sessions: sessions, messenger: messenger, journal: journal, svc: svc}
}

func (f *escalationFixture) escalationKeys(t *testing.T) []string {
	t.Helper()
	keys, err := f.cache.Keys(context.Background(), escalationKeyPrefix)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	return keys
}

func TestEscalationService_Escalate(t *testing.T) {
	ctx := context.Background()

	t.Run("stores one record and notifies the operator once", func(t *testing.T) {
		f := newEscalationFixture()

		esc, err := f.svc.Escalate(ctx, "u1", "пцр на хламидии", domain.ReasonAnswerNotFound)
		if err != nil {
			t.Fatalf("Escalate() error = %v", err)
		}
		if esc.RequesterID != "u1" || esc.Query != "пцр на хламидии" {
			t.Errorf("escalation = %+v", esc)
		}

		if keys := f.escalationKeys(t); len(keys) != 1 {
			t.Errorf("escalation records = %v, want exactly 1", keys)
		}

		notices := f.messenger.to(testOperator)
		if len(notices) != 1 {
			t.Fatalf("operator notifications = %d, want 1", len(notices))
		}
		if f.messenger.count() != 1 {
			t.Errorf("total deliveries = %d, want 1", f.messenger.count())
		}
		if !strings.Contains(notices[0], "пцр на хламидии") || !strings.Contains(notices[0], "reply u1 ") {
			t.Errorf("notification = %q, want query and reply hint", notices[0])
		}

		if got := f.journal.kinds(); !reflect.DeepEqual(got, []domain.AuditKind{domain.AuditOpened}) {
			t.Errorf("audit = %v, want [opened]", got)
		}
	})

	t.Run("newer escalation replaces the older one", func(t *testing.T) {
		f := newEscalationFixture()

		_, _ = f.svc.Escalate(ctx, "u1", "первый", domain.ReasonAnswerNotFound)
		_, _ = f.svc.Escalate(ctx, "u1", "второй", domain.ReasonComparisonEmpty)

		if keys := f.escalationKeys(t); len(keys) != 1 {
			t.Errorf("escalation records = %v, want exactly 1", keys)
		}
		esc, err := f.svc.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if esc.Query != "второй" || esc.Reason != domain.ReasonComparisonEmpty {
			t.Errorf("escalation = %+v, want the newer one", esc)
		}
	})

	t.Run("keeps record when operator notification fails", func(t *testing.T) {
		f := newEscalationFixture()
		f.messenger.err = errors.New("telegram unavailable")

		esc, err := f.svc.Escalate(ctx, "u1", "пцр", domain.ReasonAnswerNotFound)
		if !errors.Is(err, domain.ErrDeliveryFailed) {
			t.Errorf("error = %v, want ErrDeliveryFailed", err)
		}
		if esc.ID == "" {
			t.Error("expected escalation to be returned")
		}
		if _, err := f.svc.Get(ctx, "u1"); err != nil {
			t.Errorf("Get() error = %v, want stored escalation", err)
		}
		want := []domain.AuditKind{domain.AuditOpened, domain.AuditDeliveryFailed}
		if got := f.journal.kinds(); !reflect.DeepEqual(got, want) {
			t.Errorf("audit = %v, want %v", got, want)
		}
	})

	t.Run("rejects empty requester", func(t *testing.T) {
		f := newEscalationFixture()
		if _, err := f.svc.Escalate(ctx, "", "q", domain.ReasonAnswerNotFound); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("uses escalation ttl", func(t *testing.T) {
		f := newEscalationFixture()
		_, _ = f.svc.Escalate(ctx, "u1", "q", domain.ReasonAnswerNotFound)
		if ttl := f.cache.ttls["escalation:u1"]; ttl != 24*time.Hour {
			t.Errorf("ttl = %v, want 24h", ttl)
		}
	})
}

func TestEscalationService_Reply(t *testing.T) {
	ctx := context.Background()

	t.Run("operator reply resolves escalation", func(t *testing.T) {
		f := newEscalationFixture()
		_ = f.sessions.Put(ctx, "u1", nil, "пцр")
		_, _ = f.svc.Escalate(ctx, "u1", "пцр", domain.ReasonAnswerNotFound)

		outcome, err := f.svc.Reply(ctx, testOperator, "u1", "ПЦР стоит  900 ₽")
		if err != nil {
			t.Fatalf("Reply() error = %v", err)
		}
		if outcome != ReplyResolved {
			t.Errorf("outcome = %v, want resolved", outcome)
		}

		got := f.messenger.to("u1")
		if len(got) != 1 || got[0] != "ПЦР стоит  900 ₽" {
			t.Errorf("deliveries to requester = %q, want the reply verbatim once", got)
		}
		if _, err := f.svc.Get(ctx, "u1"); !errors.Is(err, domain.ErrEscalationNotFound) {
			t.Errorf("Get() error = %v, want ErrEscalationNotFound", err)
		}
		if _, err := f.sessions.Get(ctx, "u1"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("session error = %v, want ErrSessionNotFound", err)
		}

		kinds := f.journal.kinds()
		if kinds[len(kinds)-1] != domain.AuditResolved {
			t.Errorf("audit = %v, want resolved last", kinds)
		}
	})

	t.Run("unauthorized reply changes nothing", func(t *testing.T) {
		f := newEscalationFixture()
		_ = f.sessions.Put(ctx, "u1", nil, "пцр")
		_, _ = f.svc.Escalate(ctx, "u1", "пцр", domain.ReasonAnswerNotFound)

		before := f.cache.snapshot()
		deliveries := f.messenger.count()

		outcome, err := f.svc.Reply(ctx, "intruder", "u1", "hello")
		if err != nil {
			t.Errorf("Reply() error = %v, want silent ignore", err)
		}
		if outcome != ReplyIgnored {
			t.Errorf("outcome = %v, want ignored", outcome)
		}
		if f.messenger.count() != deliveries {
			t.Errorf("deliveries = %d, want %d (none added)", f.messenger.count(), deliveries)
		}
		if after := f.cache.snapshot(); !reflect.DeepEqual(before, after) {
			t.Error("state changed after unauthorized reply")
		}

		kinds := f.journal.kinds()
		if kinds[len(kinds)-1] != domain.AuditUnauthorizedIgnored {
			t.Errorf("audit = %v, want unauthorized_reply_ignored last", kinds)
		}
	})

	t.Run("reply without escalation is still delivered", func(t *testing.T) {
		f := newEscalationFixture()

		outcome, err := f.svc.Reply(ctx, testOperator, "u2", "Добрый день")
		if err != nil {
			t.Fatalf("Reply() error = %v", err)
		}
		if outcome != ReplyDeliveredWithoutEscalation {
			t.Errorf("outcome = %v, want delivered_without_escalation", outcome)
		}
		if got := f.messenger.to("u2"); len(got) != 1 {
			t.Errorf("deliveries = %v, want 1", got)
		}
		if got := f.journal.kinds(); !reflect.DeepEqual(got, []domain.AuditKind{domain.AuditReplyWithoutEscalation}) {
			t.Errorf("audit = %v", got)
		}
	})

	t.Run("failed delivery keeps escalation open", func(t *testing.T) {
		f := newEscalationFixture()
		_, _ = f.svc.Escalate(ctx, "u1", "пцр", domain.ReasonAnswerNotFound)
		f.messenger.err = errors.New("blocked by user")

		outcome, err := f.svc.Reply(ctx, testOperator, "u1", "ответ")
		if !errors.Is(err, domain.ErrDeliveryFailed) {
			t.Errorf("error = %v, want ErrDeliveryFailed", err)
		}
		if outcome != ReplyUndelivered {
			t.Errorf("outcome = %v, want undelivered", outcome)
		}
		if _, err := f.svc.Get(ctx, "u1"); err != nil {
			t.Errorf("Get() error = %v, want escalation kept", err)
		}
	})

	t.Run("operator reply needs requester and text", func(t *testing.T) {
		f := newEscalationFixture()
		if _, err := f.svc.Reply(ctx, testOperator, "u1", "  "); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
		if f.messenger.count() != 0 {
			t.Error("expected no delivery")
		}
	})
}

func TestEscalationService_Open(t *testing.T) {
	ctx := context.Background()
	f := newEscalationFixture()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, requester := range []string{"u3", "u1", "u2"} {
		at := base.Add(time.Duration(i) * time.Minute)
		f.svc.now = func() time.Time { return at }
		if _, err := f.svc.Escalate(ctx, requester, "q-"+requester, domain.ReasonAnswerNotFound); err != nil {
			t.Fatalf("Escalate() error = %v", err)
		}
	}

	open, err := f.svc.Open(ctx)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	var got []string
	for _, esc := range open {
		got = append(got, esc.RequesterID)
	}
	if want := []string{"u3", "u1", "u2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Open() order = %v, want %v (oldest first)", got, want)
	}
}

func TestEscalationService_IsOperator(t *testing.T) {
	f := newEscalationFixture()
	if !f.svc.IsOperator(testOperator) {
		t.Error("expected configured operator to be recognized")
	}
	if f.svc.IsOperator("someone") {
		t.Error("expected other identity to be rejected")
	}

	unset := NewEscalationService(NewMockCacheRepository(), nil, &MockMessenger{}, nil, EscalationConfig{}, nil)
	if unset.IsOperator("") {
		t.Error("empty operator id must never authorize")
	}
}

func TestReplyOutcome_String(t *testing.T) {
	if ReplyResolved.String() != "resolved" || ReplyIgnored.String() != "ignored" {
		t.Errorf("unexpected names: %s %s", ReplyResolved, ReplyIgnored)
	}
}
