package csvsource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labassist/backend/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSource_ListLabEntries(t *testing.T) {
	lab := writeFile(t, "lab.csv", "\ufeffName,Price,Turnaround\n"+
		"Витамин B12,\"1 200\",1 день\n"+
		"Ферритин,,\n"+
		",500,skipped\n"+
		"\"Анализ крови, общий\",500\n")

	source := New(lab, "")

	entries, err := source.ListLabEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Витамин B12", entries[0].Name)
	assert.Equal(t, "1200", entries[0].Price.Amount.Decimal.String())
	assert.Equal(t, "1 день", entries[0].Turnaround)

	assert.Equal(t, "Ферритин", entries[1].Name)
	assert.False(t, entries[1].Price.IsSpecified())

	assert.Equal(t, "Анализ крови, общий", entries[2].Name)
	assert.Empty(t, entries[2].Turnaround)

	competitors, err := source.ListCompetitorEntries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, competitors)
}

func TestSource_ListCompetitorEntries(t *testing.T) {
	competitors := writeFile(t, "competitors.csv", "competitor,name,price,turnaround\n"+
		"Инвитро,Витамин B12,1500,2 дня\n"+
		"Гемотест,Витамин B12,\"1000,50\",\n")

	source := New("unused.csv", competitors)

	entries, err := source.ListCompetitorEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Инвитро", entries[0].Competitor)
	assert.Equal(t, "Витамин B12", entries[0].Name)
	assert.Equal(t, "1000.5", entries[1].Price.Amount.Decimal.String())
}

func TestSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"no name column", "title,price\nВитамин D,900\n"},
		{"broken quoting", "name,price\n\"Витамин D,900\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := New(writeFile(t, "lab.csv", tt.content), "")
			_, err := source.ListLabEntries(context.Background())
			assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		source := New(filepath.Join(t.TempDir(), "absent.csv"), "")
		_, err := source.ListLabEntries(context.Background())
		assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	})
}

func TestParse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parse(ctx, strings.NewReader("name\nферритин\n"), "name")
	assert.ErrorIs(t, err, context.Canceled)
}
