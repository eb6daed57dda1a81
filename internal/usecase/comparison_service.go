package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/labassist/backend/internal/domain"
)

// ComparisonResult is the rendered competitor comparison for a saved session.
type ComparisonResult struct {
	Text string
	// Hits counts competitor rows found across all items.
	Hits int
}

// ComparisonService looks up the items of a pending session in the
// competitor catalog.
type ComparisonService struct {
	matcher *MatchingService
	logger  *zap.Logger
}

// NewComparisonService creates a new comparison service
func NewComparisonService(matcher *MatchingService, logger *zap.Logger) *ComparisonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComparisonService{
		matcher: matcher,
		logger:  logger.With(zap.String("component", "comparison")),
	}
}

// Compare matches every session item against the competitor catalog
// independently and concatenates the per-item results. Items without
// competitor data get an explicit line of their own.
func (s *ComparisonService) Compare(ctx context.Context, session domain.PendingSession, snap *CatalogSnapshot) (ComparisonResult, error) {
	items := session.Items()
	if len(items) == 0 {
		return ComparisonResult{}, domain.ErrSessionNotFound
	}

	competitorNames := snap.CompetitorNames()
	var lines []string
	hits := 0

	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}

		matched, err := s.matcher.Match(ctx, item, competitorNames)
		if err != nil {
			return ComparisonResult{}, err
		}

		itemHits := 0
		for _, name := range matched {
			own := s.ownEntry(snap, name, item)
			for _, entry := range snap.CompetitorEntries(name) {
				lines = append(lines, formatCompetitorLine(entry, own))
				itemHits++
			}
		}

		if itemHits == 0 {
			lines = append(lines, fmt.Sprintf(msgNoCompetitorData, item))
		}
		hits += itemHits
	}

	s.logger.Debug("comparison done",
		zap.String("requester_id", session.RequesterID),
		zap.Int("items", len(items)),
		zap.Int("hits", hits))

	return ComparisonResult{
		Text: msgComparisonHeader + "\n" + strings.Join(lines, "\n"),
		Hits: hits,
	}, nil
}

// ownEntry finds our own price for a competitor row, by the competitor's
// name first and then by the saved item.
func (s *ComparisonService) ownEntry(snap *CatalogSnapshot, competitorName, item string) *domain.CatalogEntry {
	if entry, ok := snap.LabEntry(competitorName); ok {
		return &entry
	}
	if entry, ok := snap.LabEntry(item); ok {
		return &entry
	}
	return nil
}
