package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/labassist/backend/internal/domain"
)

const (
	listLabEntriesQuery = `SELECT name, price, turnaround FROM lab_tests ORDER BY id`

	listCompetitorEntriesQuery = `SELECT name, competitor, price, turnaround FROM competitor_prices ORDER BY id`
)

type labRow struct {
	Name       string         `db:"name"`
	Price      sql.NullString `db:"price"`
	Turnaround sql.NullString `db:"turnaround"`
}

type competitorRow struct {
	Name       string         `db:"name"`
	Competitor sql.NullString `db:"competitor"`
	Price      sql.NullString `db:"price"`
	Turnaround sql.NullString `db:"turnaround"`
}

// CatalogSource implements domain.CatalogSource over the lab_tests and
// competitor_prices tables. Prices are free text in the table and parsed
// on read; missing columns come back as empty strings.
type CatalogSource struct {
	db *sqlx.DB
}

// NewCatalogSource creates a new Postgres catalog source
func NewCatalogSource(db *sqlx.DB) *CatalogSource {
	return &CatalogSource{db: db}
}

// ListLabEntries returns the lab's own tests in table order.
func (s *CatalogSource) ListLabEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	var rows []labRow
	if err := s.db.SelectContext(ctx, &rows, listLabEntriesQuery); err != nil {
		return nil, fmt.Errorf("%w: list lab tests: %v", domain.ErrCatalogUnavailable, err)
	}

	entries := make([]domain.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.CatalogEntry{
			Name:       row.Name,
			Price:      domain.ParsePrice(row.Price.String),
			Turnaround: row.Turnaround.String,
		})
	}
	return entries, nil
}

// ListCompetitorEntries returns competitor prices in table order.
func (s *CatalogSource) ListCompetitorEntries(ctx context.Context) ([]domain.CompetitorEntry, error) {
	var rows []competitorRow
	if err := s.db.SelectContext(ctx, &rows, listCompetitorEntriesQuery); err != nil {
		return nil, fmt.Errorf("%w: list competitor prices: %v", domain.ErrCatalogUnavailable, err)
	}

	entries := make([]domain.CompetitorEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.CompetitorEntry{
			Name:       row.Name,
			Competitor: row.Competitor.String,
			Price:      domain.ParsePrice(row.Price.String),
			Turnaround: row.Turnaround.String,
		})
	}
	return entries, nil
}
