// Package csvsource reads the lab and competitor catalogs from local CSV files.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/labassist/backend/internal/domain"
)

// Source implements domain.CatalogSource over two CSV files with a header row.
// Lab columns: name, price, turnaround. Competitor columns: name, competitor,
// price, turnaround. Column order is taken from the header; unknown columns
// are ignored.
type Source struct {
	labPath        string
	competitorPath string
}

// New creates a CSV catalog source. competitorPath may be empty, in which
// case the competitor catalog is empty.
func New(labPath, competitorPath string) *Source {
	return &Source{labPath: labPath, competitorPath: competitorPath}
}

// ListLabEntries reads the lab catalog.
func (s *Source) ListLabEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	records, err := readRecords(ctx, s.labPath, "name")
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CatalogEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.CatalogEntry{
			Name:       r["name"],
			Price:      domain.ParsePrice(r["price"]),
			Turnaround: r["turnaround"],
		})
	}
	return entries, nil
}

// ListCompetitorEntries reads the competitor catalog.
func (s *Source) ListCompetitorEntries(ctx context.Context) ([]domain.CompetitorEntry, error) {
	if s.competitorPath == "" {
		return nil, nil
	}

	records, err := readRecords(ctx, s.competitorPath, "name")
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CompetitorEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.CompetitorEntry{
			Name:       r["name"],
			Competitor: r["competitor"],
			Price:      domain.ParsePrice(r["price"]),
			Turnaround: r["turnaround"],
		})
	}
	return entries, nil
}

func readRecords(ctx context.Context, path, required string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer f.Close()

	records, err := parse(ctx, f, required)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCatalogUnavailable, path, err)
	}
	return records, nil
}

func parse(ctx context.Context, r io.Reader, required string) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, err
	}

	columns := make([]string, len(header))
	hasRequired := false
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if columns[i] == required {
			hasRequired = true
		}
	}
	if !hasRequired {
		return nil, fmt.Errorf("header has no %q column", required)
	}

	var records []map[string]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		record := make(map[string]string, len(columns))
		for i, value := range row {
			if i < len(columns) {
				record[columns[i]] = strings.TrimSpace(value)
			}
		}
		if record[required] == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
