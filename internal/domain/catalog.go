package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogEntry is one row of the lab's own test list.
// Name is stored in normalized form so it is comparable with normalized queries.
type CatalogEntry struct {
	Name       string `json:"name"`
	Price      Price  `json:"price"`
	Turnaround string `json:"turnaround"`
}

// CompetitorEntry is one row of the competitor price list.
// The same test name may appear once per competitor.
type CompetitorEntry struct {
	Name       string `json:"name"`
	Competitor string `json:"competitor"`
	Price      Price  `json:"price"`
	Turnaround string `json:"turnaround"`
}

// Price keeps the price exactly as the catalog source stored it, plus its
// decimal value when the raw text parses as a number.
type Price struct {
	Raw    string              `json:"raw"`
	Amount decimal.NullDecimal `json:"amount"`
}

var currencyTokens = []string{"рублей", "руб.", "руб", "р.", "₽", "rub", "rur"}

// ParsePrice builds a Price from free-form catalog text such as "3 500 руб." or "1200,50".
func ParsePrice(raw string) Price {
	p := Price{Raw: strings.TrimSpace(raw)}
	if p.Raw == "" {
		return p
	}

	s := strings.ToLower(p.Raw)
	for _, token := range currencyTokens {
		s = strings.ReplaceAll(s, token, "")
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".").Replace(s)

	if d, err := decimal.NewFromString(s); err == nil {
		p.Amount = decimal.NewNullDecimal(d)
	}
	return p
}

// PriceFromDecimal builds a Price from an already numeric value.
func PriceFromDecimal(d decimal.Decimal) Price {
	return Price{Raw: d.String(), Amount: decimal.NewNullDecimal(d)}
}

// IsSpecified reports whether the source provided any price text at all.
func (p Price) IsSpecified() bool {
	return p.Raw != ""
}

// String renders the price for display. Numeric prices get a currency sign,
// anything else is returned as the source wrote it.
func (p Price) String() string {
	if p.Amount.Valid {
		return p.Amount.Decimal.String() + " ₽"
	}
	return p.Raw
}
