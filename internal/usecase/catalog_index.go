package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/labassist/backend/internal/domain"
)

// CatalogSnapshot is an immutable view of both catalogs taken at one refresh.
// Names are normalized; on duplicate names the first row wins.
type CatalogSnapshot struct {
	Lab         []domain.CatalogEntry
	Competitors []domain.CompetitorEntry
	LoadedAt    time.Time

	labByName        map[string]domain.CatalogEntry
	labNames         []string
	competitorByName map[string][]domain.CompetitorEntry
	competitorNames  []string
}

// SnapshotStats summarizes a snapshot for logs and the health endpoint.
type SnapshotStats struct {
	LabEntries           int       `json:"lab"`
	CompetitorEntries    int       `json:"competitor"`
	DuplicateLab         int       `json:"duplicateLab"`
	DuplicateCompetitors int       `json:"duplicateCompetitor"`
	LoadedAt             time.Time `json:"loadedAt"`
}

// NewCatalogSnapshot normalizes and indexes raw catalog rows.
func NewCatalogSnapshot(normalizer *Normalizer, lab []domain.CatalogEntry, competitors []domain.CompetitorEntry, loadedAt time.Time) (*CatalogSnapshot, SnapshotStats) {
	snap := &CatalogSnapshot{
		LoadedAt:         loadedAt,
		labByName:        make(map[string]domain.CatalogEntry, len(lab)),
		competitorByName: make(map[string][]domain.CompetitorEntry),
	}
	stats := SnapshotStats{LoadedAt: loadedAt}

	for _, entry := range lab {
		entry.Name = normalizer.Normalize(entry.Name)
		entry.Turnaround = strings.TrimSpace(entry.Turnaround)
		if entry.Name == "" {
			continue
		}
		if _, exists := snap.labByName[entry.Name]; exists {
			stats.DuplicateLab++
			continue
		}
		snap.labByName[entry.Name] = entry
		snap.labNames = append(snap.labNames, entry.Name)
		snap.Lab = append(snap.Lab, entry)
	}

	seen := make(map[string]bool)
	for _, entry := range competitors {
		entry.Name = normalizer.Normalize(entry.Name)
		entry.Competitor = strings.TrimSpace(entry.Competitor)
		entry.Turnaround = strings.TrimSpace(entry.Turnaround)
		if entry.Name == "" {
			continue
		}
		key := entry.Name + "\x00" + strings.ToLower(entry.Competitor)
		if seen[key] {
			stats.DuplicateCompetitors++
			continue
		}
		seen[key] = true
		if _, exists := snap.competitorByName[entry.Name]; !exists {
			snap.competitorNames = append(snap.competitorNames, entry.Name)
		}
		snap.competitorByName[entry.Name] = append(snap.competitorByName[entry.Name], entry)
		snap.Competitors = append(snap.Competitors, entry)
	}

	stats.LabEntries = len(snap.Lab)
	stats.CompetitorEntries = len(snap.Competitors)
	return snap, stats
}

func emptySnapshot() *CatalogSnapshot {
	return &CatalogSnapshot{
		labByName:        map[string]domain.CatalogEntry{},
		competitorByName: map[string][]domain.CompetitorEntry{},
	}
}

// LabNames returns the unique lab test names in source order.
func (s *CatalogSnapshot) LabNames() []string {
	return s.labNames
}

// LabEntry looks up a lab test by normalized name.
func (s *CatalogSnapshot) LabEntry(name string) (domain.CatalogEntry, bool) {
	entry, ok := s.labByName[name]
	return entry, ok
}

// CompetitorNames returns the unique competitor test names in source order.
func (s *CatalogSnapshot) CompetitorNames() []string {
	return s.competitorNames
}

// CompetitorEntries returns every competitor row for a normalized name.
func (s *CatalogSnapshot) CompetitorEntries(name string) []domain.CompetitorEntry {
	return s.competitorByName[name]
}

// Stats reports entry counts for the snapshot.
func (s *CatalogSnapshot) Stats() SnapshotStats {
	return SnapshotStats{
		LabEntries:        len(s.Lab),
		CompetitorEntries: len(s.Competitors),
		LoadedAt:          s.LoadedAt,
	}
}

// Grounding renders the lab catalog as the flat list the answer service is
// restricted to.
func (s *CatalogSnapshot) Grounding() string {
	var b strings.Builder
	for _, entry := range s.Lab {
		fmt.Fprintf(&b, "%s | %s | %s\n", entry.Name, priceText(entry.Price), textOrPlaceholder(entry.Turnaround))
	}
	return b.String()
}

// CatalogIndexConfig holds configuration for the catalog index
type CatalogIndexConfig struct {
	LoadTimeout     time.Duration
	RefreshInterval time.Duration
}

// CatalogIndex publishes catalog snapshots. Readers always see a complete
// snapshot; a refresh builds a new one and swaps the pointer.
type CatalogIndex struct {
	source          domain.CatalogSource
	normalizer      *Normalizer
	loadTimeout     time.Duration
	refreshInterval time.Duration
	logger          *zap.Logger

	current   atomic.Pointer[CatalogSnapshot]
	refreshMu sync.Mutex
}

// NewCatalogIndex creates an index that starts out empty until the first Refresh.
func NewCatalogIndex(source domain.CatalogSource, normalizer *Normalizer, config CatalogIndexConfig, logger *zap.Logger) *CatalogIndex {
	if logger == nil {
		logger = zap.NewNop()
	}

	loadTimeout := config.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = 15 * time.Second
	}
	interval := config.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	idx := &CatalogIndex{
		source:          source,
		normalizer:      normalizer,
		loadTimeout:     loadTimeout,
		refreshInterval: interval,
		logger:          logger.With(zap.String("component", "catalog")),
	}
	idx.current.Store(emptySnapshot())
	return idx
}

// Snapshot returns the current snapshot. It is never nil.
func (i *CatalogIndex) Snapshot() *CatalogSnapshot {
	return i.current.Load()
}

// Refresh reloads both catalogs from the source and publishes a new snapshot.
// A catalog that fails to load keeps its previous rows, so a source outage
// degrades to the last good data (or an empty catalog) instead of failing turns.
func (i *CatalogIndex) Refresh(ctx context.Context) (SnapshotStats, error) {
	i.refreshMu.Lock()
	defer i.refreshMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, i.loadTimeout)
	defer cancel()

	previous := i.Snapshot()
	var errs []error

	lab, err := i.source.ListLabEntries(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("lab catalog: %w", err))
		lab = previous.Lab
	}

	competitors, err := i.source.ListCompetitorEntries(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("competitor catalog: %w", err))
		competitors = previous.Competitors
	}

	snap, stats := NewCatalogSnapshot(i.normalizer, lab, competitors, time.Now())
	i.current.Store(snap)

	if stats.DuplicateLab > 0 || stats.DuplicateCompetitors > 0 {
		i.logger.Warn("duplicate catalog names ignored, first row kept",
			zap.Int("lab", stats.DuplicateLab),
			zap.Int("competitor", stats.DuplicateCompetitors))
	}

	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, errors.Join(errs...))
		i.logger.Error("catalog refresh degraded", zap.Error(err),
			zap.Int("lab", stats.LabEntries), zap.Int("competitor", stats.CompetitorEntries))
		return stats, err
	}

	i.logger.Info("catalog refreshed",
		zap.Int("lab", stats.LabEntries),
		zap.Int("competitor", stats.CompetitorEntries))
	return stats, nil
}

// Run refreshes immediately and then on every interval until ctx is done.
func (i *CatalogIndex) Run(ctx context.Context) {
	_, _ = i.Refresh(ctx)

	ticker := time.NewTicker(i.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = i.Refresh(ctx)
		}
	}
}
