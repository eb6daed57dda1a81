package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/labassist/backend/internal/domain"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiAnswerer implements domain.AnswerService with the Gemini API.
type GeminiAnswerer struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	timeout     time.Duration
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewGeminiAnswerer creates a Gemini-backed answer service. Close releases the client.
func NewGeminiAnswerer(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiAnswerer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	cfg = cfg.withDefaults(defaultGeminiModel)

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0.2)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	return &GeminiAnswerer{
		client:      client,
		model:       model,
		timeout:     cfg.Timeout,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:      logger.With(zap.String("component", "gemini")),
	}, nil
}

// Answer asks the model to answer query using only the grounding lines.
func (a *GeminiAnswerer) Answer(ctx context.Context, query, grounding string) (string, error) {
	if err := a.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrAnswerUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.model.GenerateContent(ctx, genai.Text(buildUserPrompt(query, grounding)))
	if err != nil {
		a.logger.Warn("generate content failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrAnswerUnavailable, err)
	}

	answer := responseText(resp)
	if answer == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrAnswerUnavailable)
	}
	return answer, nil
}

// Close releases the underlying client.
func (a *GeminiAnswerer) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
