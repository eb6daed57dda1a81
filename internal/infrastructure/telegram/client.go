// Package telegram delivers replies through the Telegram Bot API and decodes
// webhook updates.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/labassist/backend/internal/domain"
)

const (
	// DefaultBaseURL is the public Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	// maxMessageLength is the Bot API limit in characters.
	maxMessageLength = 4096

	maxAttempts = 3
)

// Client sends messages through the Bot API. It implements domain.Messenger.
type Client struct {
	httpClient  *http.Client
	token       string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	debug       bool
}

// NewClient creates a new Bot API client
func NewClient(token, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	// Bot API allows about 30 messages per second across all chats
	limiter := rate.NewLimiter(rate.Limit(25), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		token:       token,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		logger:      logger.With(zap.String("component", "telegram")),
	}
}

// SetDebug enables or disables logging of outbound payloads
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// Deliver sends text to a chat, split into several messages when it exceeds
// the Bot API length limit.
func (c *Client) Deliver(ctx context.Context, recipientID, text string) error {
	if recipientID == "" || strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty recipient or text", domain.ErrInvalidRequest)
	}

	for _, chunk := range splitMessage(text, maxMessageLength) {
		if err := c.sendMessage(ctx, sendMessageRequest{ChatID: recipientID, Text: chunk}); err != nil {
			return err
		}
	}
	return nil
}

// sendMessage posts one message, retrying on 5xx and 429 responses
func (c *Client) sendMessage(ctx context.Context, payload sendMessageRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)

	if c.debug {
		c.logger.Debug("sendMessage", zap.String("chat_id", payload.ChatID), zap.Int("length", len(payload.Text)))
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", domain.ErrDeliveryFailed, err)
		}

		status, result, err := c.doRequest(ctx, endpoint, body)
		if err != nil {
			c.logger.Warn("request error", zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			if ctx.Err() != nil || attempt == maxAttempts || !sleep(ctx, exponentialBackoff(attempt)) {
				break
			}
			continue
		}

		if status == http.StatusOK && result.OK {
			return nil
		}

		lastErr = fmt.Errorf("%w: status %d: %s", domain.ErrDeliveryFailed, status, result.Description)
		c.logger.Warn("api error",
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.String("description", result.Description))

		if status != http.StatusTooManyRequests && status < http.StatusInternalServerError {
			return lastErr
		}

		wait := exponentialBackoff(attempt)
		if result.Parameters != nil && result.Parameters.RetryAfter > 0 {
			wait = time.Duration(result.Parameters.RetryAfter) * time.Second
		}
		if attempt == maxAttempts || !sleep(ctx, wait) {
			break
		}
	}

	return lastErr
}

// doRequest executes a POST with a JSON body and decodes the Bot API envelope
func (c *Client) doRequest(ctx context.Context, endpoint string, body []byte) (int, apiResponse, error) {
	var result apiResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, result, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "labassist/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, result, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, redact(err.Error(), c.token))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(raw, &result); err != nil {
		result.Description = strings.TrimSpace(string(raw))
	}
	return resp.StatusCode, result, nil
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// redact keeps the bot token out of logged URLs.
func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<token>")
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
