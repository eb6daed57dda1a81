package usecase

import (
	"fmt"
	"strings"

	"github.com/labassist/backend/internal/domain"
)

// FormatLabEntries renders matched lab tests one per line.
func FormatLabEntries(entries []domain.CatalogEntry) string {
	var b strings.Builder
	b.WriteString(msgMatchesHeader)
	for _, entry := range entries {
		b.WriteString("\n")
		b.WriteString(formatLabLine(entry))
	}
	return b.String()
}

func formatLabLine(entry domain.CatalogEntry) string {
	return fmt.Sprintf("• %s — %s (срок: %s)", entry.Name, priceText(entry.Price), textOrPlaceholder(entry.Turnaround))
}

// formatCompetitorLine renders one competitor row. When both prices are
// numeric the difference against our own price is appended.
func formatCompetitorLine(entry domain.CompetitorEntry, own *domain.CatalogEntry) string {
	line := fmt.Sprintf("• %s — %s: %s (срок: %s)",
		entry.Name, textOrPlaceholder(entry.Competitor), priceText(entry.Price), textOrPlaceholder(entry.Turnaround))

	if own == nil || !own.Price.Amount.Valid || !entry.Price.Amount.Valid {
		return line
	}

	delta := entry.Price.Amount.Decimal.Sub(own.Price.Amount.Decimal)
	switch delta.Sign() {
	case 0:
		return line + ", как у нас"
	case 1:
		return line + fmt.Sprintf(", дороже на %s ₽", delta.String())
	default:
		return line + fmt.Sprintf(", дешевле на %s ₽", delta.Neg().String())
	}
}

func priceText(p domain.Price) string {
	if !p.IsSpecified() {
		return placeholder
	}
	return p.String()
}

func textOrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
