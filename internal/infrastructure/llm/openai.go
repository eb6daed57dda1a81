package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/labassist/backend/internal/domain"
)

const defaultOpenAIModel = "gpt-4o-mini"

// Config holds the settings shared by the answer providers.
type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

func (c Config) withDefaults(model string) Config {
	if c.Model == "" {
		c.Model = model
	}
	if c.Timeout <= 0 {
		c.Timeout = 6 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 3
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	return c
}

// OpenAIAnswerer implements domain.AnswerService with the chat completion API.
type OpenAIAnswerer struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewOpenAIAnswerer creates an OpenAI-backed answer service.
func NewOpenAIAnswerer(cfg Config, logger *zap.Logger) *OpenAIAnswerer {
	cfg = cfg.withDefaults(defaultOpenAIModel)

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIAnswerer{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:      logger.With(zap.String("component", "openai")),
	}
}

// Answer asks the model to answer query using only the grounding lines.
func (a *OpenAIAnswerer) Answer(ctx context.Context, query, grounding string) (string, error) {
	if err := a.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrAnswerUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(query, grounding)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		a.logger.Warn("chat completion failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("%w: %v", domain.ErrAnswerUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrAnswerUnavailable)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: blank completion", domain.ErrAnswerUnavailable)
	}

	a.logger.Debug("chat completion",
		zap.String("model", a.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}
