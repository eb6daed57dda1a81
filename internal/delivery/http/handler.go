package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/telegram"
	"github.com/labassist/backend/internal/usecase"
)

const (
	serviceName    = "labassist"
	serviceVersion = "1.0.0"

	msgTooManyMessages = "Слишком много сообщений. Пожалуйста, подождите минуту."

	webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
)

// Dialogue handles one inbound turn.
type Dialogue interface {
	Handle(ctx context.Context, msg domain.InboundMessage) (usecase.Reply, error)
}

// EscalationLister lists the escalations awaiting an operator.
type EscalationLister interface {
	Open(ctx context.Context) ([]domain.Escalation, error)
}

// Catalog exposes the loaded catalog and forces reloads.
type Catalog interface {
	Snapshot() *usecase.CatalogSnapshot
	Refresh(ctx context.Context) (usecase.SnapshotStats, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	dialogue      Dialogue
	escalations   EscalationLister
	catalog       Catalog
	messenger     domain.Messenger
	limiter       *SenderLimiter
	webhookSecret string
	logger        *zap.Logger
}

// HandlerConfig holds the optional parts of a Handler.
type HandlerConfig struct {
	Messenger     domain.Messenger
	Limiter       *SenderLimiter
	WebhookSecret string
}

// NewHandler creates a new HTTP handler. Any dependency may be nil; the
// endpoints that need it then answer 503.
func NewHandler(dialogue Dialogue, escalations EscalationLister, catalog Catalog, cfg HandlerConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dialogue:      dialogue,
		escalations:   escalations,
		catalog:       catalog,
		messenger:     cfg.Messenger,
		limiter:       cfg.Limiter,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger.With(zap.String("component", "http")),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	response := gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	}
	if h.catalog != nil {
		response["catalog"] = h.catalog.Snapshot().Stats()
	}
	c.JSON(http.StatusOK, response)
}

// MessageRequest is the body of POST /api/v1/messages
type MessageRequest struct {
	SenderID string `json:"senderId" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// HandleMessage runs one dialogue turn and returns the reply in the response.
// Silent turns answer 204.
func (h *Handler) HandleMessage(c *gin.Context) {
	if h.dialogue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dialogue service not configured"})
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "senderId and text are required"})
		return
	}

	if !h.limiter.Allow(req.SenderID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"reply": msgTooManyMessages})
		return
	}

	reply, err := h.dialogue.Handle(c.Request.Context(), domain.InboundMessage{
		SenderID:   req.SenderID,
		Text:       req.Text,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "senderId and text are required"})
			return
		}
		h.logger.Error("dialogue turn failed", zap.String("sender_id", req.SenderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if reply.Silent {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// TelegramWebhook processes a Bot API update and delivers the reply through
// the messenger. It answers 200 for everything it accepted so Telegram does
// not redeliver the update.
func (h *Handler) TelegramWebhook(c *gin.Context) {
	if h.dialogue == nil || h.messenger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telegram not configured"})
		return
	}
	if h.webhookSecret != "" && c.GetHeader(webhookSecretHeader) != h.webhookSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret token"})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	msg, ok := update.InboundMessage()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ctx := c.Request.Context()
	if !h.limiter.Allow(msg.SenderID) {
		if h.limiter.ShouldNotify(msg.SenderID) {
			h.deliver(ctx, msg.SenderID, msgTooManyMessages)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	reply, err := h.dialogue.Handle(ctx, msg)
	if err != nil {
		h.logger.Warn("dialogue turn failed", zap.Int64("update_id", update.UpdateID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if !reply.Silent && reply.Text != "" {
		h.deliver(ctx, msg.SenderID, reply.Text)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) deliver(ctx context.Context, recipientID, text string) {
	if err := h.messenger.Deliver(ctx, recipientID, text); err != nil {
		h.logger.Error("reply delivery failed", zap.String("recipient_id", recipientID), zap.Error(err))
	}
}

// ListEscalations returns the open escalations, oldest first.
func (h *Handler) ListEscalations(c *gin.Context) {
	if h.escalations == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "escalations not configured"})
		return
	}

	open, err := h.escalations.Open(c.Request.Context())
	if err != nil {
		h.logger.Error("list escalations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list escalations"})
		return
	}
	if open == nil {
		open = []domain.Escalation{}
	}
	c.JSON(http.StatusOK, gin.H{"escalations": open, "count": len(open)})
}

// RefreshCatalog reloads the catalogs and returns the new snapshot stats.
// A failed part keeps its previous rows; the response is then 502 with
// the stats of what is being served.
func (h *Handler) RefreshCatalog(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog not configured"})
		return
	}

	stats, err := h.catalog.Refresh(c.Request.Context())
	if err != nil {
		h.logger.Warn("catalog refresh failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog source unavailable", "catalog": stats})
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalog": stats})
}
