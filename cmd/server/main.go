package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labassist/backend/config"
	"github.com/labassist/backend/internal/app"
	httpDelivery "github.com/labassist/backend/internal/delivery/http"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/cache"
	"github.com/labassist/backend/internal/infrastructure/llm"
	"github.com/labassist/backend/internal/infrastructure/logging"
	"github.com/labassist/backend/internal/infrastructure/postgres"
	"github.com/labassist/backend/internal/infrastructure/telegram"
	"github.com/labassist/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.Environment, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting labassist backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.String("cache_type", cfg.Cache.Type),
		zap.String("llm_provider", cfg.LLM.Provider))

	matching, err := app.NewMatching(cfg.Matching, logger)
	if err != nil {
		return err
	}

	source, db, err := app.NewCatalogSource(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("catalog source: %w", err)
	}

	journal := logging.MultiJournal{logging.NewJournal(logger)}
	if db != nil {
		defer db.Close()
		journal = append(journal, postgres.NewAuditJournal(db))
	}

	store, closeCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	index := usecase.NewCatalogIndex(source, matching.Normalizer, usecase.CatalogIndexConfig{
		LoadTimeout:     cfg.Catalog.LoadTimeout,
		RefreshInterval: cfg.Catalog.RefreshInterval,
	}, logger)
	if _, err := index.Refresh(ctx); err != nil {
		// Unmatched queries escalate until a refresh succeeds.
		logger.Error("initial catalog load failed", zap.Error(err))
	}
	go index.Run(ctx)

	messenger := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL, cfg.Telegram.Timeout, logger)
	if cfg.Server.Environment == "development" {
		messenger.SetDebug(true)
		logger.Debug("telegram client debug mode enabled")
	}

	answerer, closeAnswerer, err := newAnswerer(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}
	defer closeAnswerer()

	sessions := usecase.NewSessionStore(store, cfg.Cache.SessionTTL)
	escalations := usecase.NewEscalationService(store, sessions, messenger, journal, usecase.EscalationConfig{
		OperatorID: cfg.Operator.ID,
		TTL:        cfg.Cache.EscalationTTL,
	}, logger)
	comparison := usecase.NewComparisonService(matching.Matcher, logger)
	dialogue := usecase.NewDialogueService(
		matching.Normalizer,
		index,
		matching.Matcher,
		comparison,
		sessions,
		escalations,
		answerer,
		usecase.DialogueConfig{TurnTimeout: cfg.Server.TurnTimeout},
		logger,
	)

	limiter := httpDelivery.NewSenderLimiter(cfg.RateLimit.PerSender)
	go pruneLimiter(ctx, limiter)

	handler := httpDelivery.NewHandler(dialogue, escalations, index, httpDelivery.HandlerConfig{
		Messenger:     messenger,
		Limiter:       limiter,
		WebhookSecret: cfg.Server.WebhookSecret,
	}, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, func(), error) {
	switch cfg.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	default:
		memoryCache := cache.NewMemoryCache(time.Minute)
		return memoryCache, func() { _ = memoryCache.Close() }, nil
	}
}

// newAnswerer returns a nil AnswerService for provider "none".
func newAnswerer(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (domain.AnswerService, func(), error) {
	llmCfg := llm.Config{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}

	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIAnswerer(llmCfg, logger), func() {}, nil
	case "gemini":
		answerer, err := llm.NewGeminiAnswerer(ctx, llmCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return answerer, func() { _ = answerer.Close() }, nil
	default:
		logger.Warn("no answer provider configured, unmatched queries go straight to the operator")
		return nil, func() {}, nil
	}
}

func pruneLimiter(ctx context.Context, limiter *httpDelivery.SenderLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune()
		}
	}
}
