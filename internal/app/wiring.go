// Package app builds the collaborators shared by the server and labctl from configuration.
package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/labassist/backend/config"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/csvsource"
	"github.com/labassist/backend/internal/infrastructure/postgres"
	"github.com/labassist/backend/internal/usecase"
)

// Matching bundles the normalizer and the matcher built from one config.
type Matching struct {
	Normalizer *usecase.Normalizer
	Matcher    *usecase.MatchingService
}

// NewMatching builds the normalizer with the configured synonyms appended
// to the built-in table, and the matcher over it.
func NewMatching(cfg config.MatchingConfig, logger *zap.Logger) (Matching, error) {
	rules := usecase.DefaultSynonymRules()
	for _, rule := range cfg.Synonyms {
		rules = append(rules, usecase.SynonymRule{
			Pattern:   rule.Pattern,
			Canonical: rule.Canonical,
			IsRegex:   rule.Regex,
		})
	}

	normalizer, err := usecase.NewNormalizer(rules, logger, cfg.EnableDebugLogging)
	if err != nil {
		return Matching{}, fmt.Errorf("build normalizer: %w", err)
	}

	matcher := usecase.NewMatchingService(normalizer, usecase.MatchConfig{
		FuzzyThreshold:     cfg.FuzzyThreshold,
		MinTokenLength:     cfg.MinTokenLength,
		CriticalTerms:      cfg.CriticalTerms,
		EnableDebugLogging: cfg.EnableDebugLogging,
	}, logger)

	return Matching{Normalizer: normalizer, Matcher: matcher}, nil
}

// NewCatalogSource opens the configured catalog source. The returned
// database is nil for the CSV source; callers close it when it is not.
func NewCatalogSource(cfg config.CatalogConfig) (domain.CatalogSource, *sqlx.DB, error) {
	switch cfg.Source {
	case "csv":
		return csvsource.New(cfg.LabCSV, cfg.CompetitorCSV), nil, nil
	case "postgres":
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewCatalogSource(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
