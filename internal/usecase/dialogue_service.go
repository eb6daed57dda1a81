package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/labassist/backend/internal/domain"
)

const (
	defaultTurnTimeout = 8 * time.Second
	// side effects of a failed turn get their own budget so a turn that ran
	// out of time can still escalate
	fallbackTimeout = 5 * time.Second
)

// ReplyKind classifies how a turn was answered.
type ReplyKind string

const (
	KindGreeting         ReplyKind = "greeting"
	KindMatches          ReplyKind = "matches"
	KindAnswer           ReplyKind = "answer"
	KindComparison       ReplyKind = "comparison"
	KindNothingToCompare ReplyKind = "nothing_to_compare"
	KindEscalated        ReplyKind = "escalated"
	KindApology          ReplyKind = "apology"
	KindOperator         ReplyKind = "operator"
	KindIgnored          ReplyKind = "ignored"
)

// Reply is the outcome of one turn. Silent replies must not be sent.
type Reply struct {
	Text      string    `json:"reply,omitempty"`
	Kind      ReplyKind `json:"kind"`
	Silent    bool      `json:"silent,omitempty"`
	Escalated bool      `json:"escalated,omitempty"`
}

// DialogueConfig holds configuration for the dialogue service
type DialogueConfig struct {
	TurnTimeout time.Duration
}

// DialogueService sequences one inbound message through matching, answer
// generation, comparison and escalation. Turns for the same requester are
// serialized; different requesters run concurrently.
type DialogueService struct {
	normalizer  *Normalizer
	index       *CatalogIndex
	matcher     *MatchingService
	comparison  *ComparisonService
	sessions    *SessionStore
	escalations *EscalationService
	answerer    domain.AnswerService
	turnTimeout time.Duration
	locks       *keyLock
	logger      *zap.Logger
}

// NewDialogueService wires the orchestrator. answerer may be nil, in which
// case every unmatched query is escalated.
func NewDialogueService(
	normalizer *Normalizer,
	index *CatalogIndex,
	matcher *MatchingService,
	comparison *ComparisonService,
	sessions *SessionStore,
	escalations *EscalationService,
	answerer domain.AnswerService,
	config DialogueConfig,
	logger *zap.Logger,
) *DialogueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.TurnTimeout
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}

	return &DialogueService{
		normalizer:  normalizer,
		index:       index,
		matcher:     matcher,
		comparison:  comparison,
		sessions:    sessions,
		escalations: escalations,
		answerer:    answerer,
		turnTimeout: timeout,
		locks:       newKeyLock(),
		logger:      logger.With(zap.String("component", "dialogue")),
	}
}

// Handle processes one inbound message and returns the reply for its sender.
// Collaborator failures never surface as errors; they degrade to a fixed
// apology. Only malformed input returns an error.
func (s *DialogueService) Handle(ctx context.Context, msg domain.InboundMessage) (Reply, error) {
	text := strings.TrimSpace(msg.Text)
	if msg.SenderID == "" || text == "" {
		return Reply{}, domain.ErrInvalidRequest
	}

	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	if command, rest, ok := parseOperatorCommand(text); ok {
		return s.handleOperatorCommand(ctx, msg.SenderID, command, rest), nil
	}

	unlock, err := s.locks.Lock(ctx, msg.SenderID)
	if err != nil {
		s.logger.Warn("turn timed out waiting for previous turn", zap.String("sender_id", msg.SenderID))
		return Reply{Text: msgApology, Kind: KindApology}, nil
	}
	defer unlock()

	normalized := s.normalizer.Normalize(text)
	switch {
	case normalized == "start" || normalized == "help":
		if strings.HasPrefix(text, "/") {
			return Reply{Text: msgGreeting, Kind: KindGreeting}, nil
		}
	case compareTriggers[normalized]:
		return s.handleCompare(ctx, msg.SenderID), nil
	}

	return s.handleQuery(ctx, msg.SenderID, text), nil
}

func (s *DialogueService) handleQuery(ctx context.Context, senderID, text string) Reply {
	snap := s.index.Snapshot()

	matched, err := s.matcher.Match(ctx, text, snap.LabNames())
	if err != nil {
		s.logger.Error("match failed", zap.String("sender_id", senderID), zap.Error(err))
		return Reply{Text: msgApology, Kind: KindApology}
	}

	if err := s.sessions.Put(ctx, senderID, matched, text); err != nil {
		s.logger.Error("session store failed", zap.String("sender_id", senderID), zap.Error(err))
	}

	if len(matched) > 0 {
		entries := make([]domain.CatalogEntry, 0, len(matched))
		for _, name := range matched {
			if entry, ok := snap.LabEntry(name); ok {
				entries = append(entries, entry)
			}
		}
		return Reply{Text: FormatLabEntries(entries), Kind: KindMatches}
	}

	if s.answerer == nil {
		return s.escalate(ctx, senderID, text, domain.ReasonAnswerUnavailable, msgApology)
	}

	answer, err := s.answerer.Answer(ctx, text, snap.Grounding())
	if err != nil {
		s.logger.Warn("answer service failed", zap.String("sender_id", senderID), zap.Error(err))
		return s.escalate(ctx, senderID, text, domain.ReasonAnswerUnavailable, msgApology)
	}

	if s.answerNotFound(answer) {
		return s.escalate(ctx, senderID, text, domain.ReasonAnswerNotFound, msgApology)
	}

	return Reply{Text: answer, Kind: KindAnswer}
}

func (s *DialogueService) handleCompare(ctx context.Context, senderID string) Reply {
	session, err := s.sessions.Get(ctx, senderID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Error("session lookup failed", zap.String("sender_id", senderID), zap.Error(err))
		}
		return Reply{Text: msgNothingToCompare, Kind: KindNothingToCompare}
	}
	if len(session.Items()) == 0 {
		return Reply{Text: msgNothingToCompare, Kind: KindNothingToCompare}
	}

	result, err := s.comparison.Compare(ctx, session, s.index.Snapshot())
	if err != nil {
		s.logger.Error("comparison failed", zap.String("sender_id", senderID), zap.Error(err))
		return Reply{Text: msgApology, Kind: KindApology}
	}

	if result.Hits == 0 {
		return s.escalate(ctx, senderID, session.SavedValue(), domain.ReasonComparisonEmpty, result.Text)
	}

	return Reply{Text: result.Text, Kind: KindComparison}
}

// escalate opens an escalation and tells the requester a human was
// notified, but only when the notification actually went out.
func (s *DialogueService) escalate(ctx context.Context, senderID, query string, reason domain.EscalationReason, lead string) Reply {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
	defer cancel()

	esc, err := s.escalations.Escalate(ctx, senderID, query, reason)
	if err != nil {
		s.logger.Error("escalation incomplete",
			zap.String("sender_id", senderID),
			zap.String("reason", string(reason)),
			zap.Error(err))
		return Reply{Text: lead, Kind: KindApology, Escalated: esc.ID != ""}
	}

	return Reply{Text: lead + "\n" + msgOperatorNotified, Kind: KindEscalated, Escalated: true}
}

func (s *DialogueService) answerNotFound(answer string) bool {
	folded := s.normalizer.Fold(answer)
	for _, marker := range notFoundMarkers {
		if strings.Contains(folded, s.normalizer.Fold(marker)) {
			return true
		}
	}
	return false
}

func (s *DialogueService) handleOperatorCommand(ctx context.Context, senderID, command, rest string) Reply {
	switch command {
	case "reply":
		requesterID, text := splitFirstWord(rest)
		if !s.escalations.IsOperator(senderID) {
			_, _ = s.escalations.Reply(ctx, senderID, requesterID, text)
			return Reply{Kind: KindIgnored, Silent: true}
		}
		if requesterID == "" || text == "" {
			return Reply{Text: msgReplyUsage, Kind: KindOperator}
		}

		// the reply clears the requester's session, so it takes their turn lock
		unlock, err := s.locks.Lock(ctx, requesterID)
		if err != nil {
			return Reply{Text: fmt.Sprintf(msgReplyFailed, requesterID), Kind: KindOperator}
		}
		defer unlock()

		outcome, err := s.escalations.Reply(ctx, senderID, requesterID, text)
		switch {
		case err != nil:
			return Reply{Text: fmt.Sprintf(msgReplyFailed, requesterID), Kind: KindOperator}
		case outcome == ReplyDeliveredWithoutEscalation:
			return Reply{Text: fmt.Sprintf(msgReplyNoEscalation, requesterID), Kind: KindOperator}
		default:
			return Reply{Text: fmt.Sprintf(msgReplyDelivered, requesterID), Kind: KindOperator}
		}

	case "pending":
		if !s.escalations.IsOperator(senderID) {
			return Reply{Kind: KindIgnored, Silent: true}
		}
		open, err := s.escalations.Open(ctx)
		if err != nil {
			s.logger.Error("list escalations failed", zap.Error(err))
			return Reply{Text: msgApology, Kind: KindOperator}
		}
		return Reply{Text: formatPending(open, time.Now()), Kind: KindOperator}
	}

	return Reply{Kind: KindIgnored, Silent: true}
}

func formatPending(open []domain.Escalation, now time.Time) string {
	if len(open) == 0 {
		return msgNoPending
	}
	var b strings.Builder
	b.WriteString(msgPendingHeader)
	for _, esc := range open {
		age := now.Sub(esc.CreatedAt).Truncate(time.Minute)
		fmt.Fprintf(&b, "\n• %s (%s назад): %s", esc.RequesterID, age, esc.Query)
	}
	return b.String()
}

// parseOperatorCommand recognizes "reply <id> <text>", "/reply ..." and
// "/pending". Telegram may append the bot name: "/reply@labbot".
func parseOperatorCommand(text string) (command, rest string, ok bool) {
	word, rest := splitFirstWord(text)
	slash := strings.HasPrefix(word, "/")
	word = strings.ToLower(strings.TrimPrefix(word, "/"))
	if at := strings.IndexByte(word, '@'); at >= 0 && slash {
		word = word[:at]
	}

	switch {
	case word == "reply":
		return "reply", rest, true
	case word == "pending" && slash:
		return "pending", rest, true
	}
	return "", "", false
}

// splitFirstWord returns the first whitespace-separated word and the
// remainder with surrounding whitespace trimmed. Inner spacing of the
// remainder is preserved.
func splitFirstWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}
