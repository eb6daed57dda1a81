package usecase

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewNormalizer(t *testing.T) {
	t.Run("rejects invalid regex", func(t *testing.T) {
		_, err := NewNormalizer([]SynonymRule{{Pattern: "(", Canonical: "x", IsRegex: true}}, nil, false)
		if err == nil {
			t.Fatal("expected error for invalid pattern")
		}
	})

	t.Run("quotes literal patterns", func(t *testing.T) {
		n, err := NewNormalizer([]SynonymRule{{Pattern: "a+b", Canonical: "plus"}}, nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := n.Normalize("a+b aab"); got != "plus aab" {
			t.Errorf("Normalize() = %q, want %q", got, "plus aab")
		}
	})

	t.Run("skips blank patterns", func(t *testing.T) {
		n, err := NewNormalizer([]SynonymRule{{Pattern: "  ", Canonical: "x"}}, nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(n.rules) != 0 {
			t.Errorf("rules = %d, want 0", len(n.rules))
		}
	})
}

func TestNormalize(t *testing.T) {
	n := NewDefaultNormalizer(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"cyrillic vitamin code", "Витамин Б12", "витамин b12"},
		{"hyphenated vitamin code", "витамин Б-12", "витамин b12"},
		{"latin vitamin code with space", "Vitamin B 12", "vitamin b12"},
		{"hyphenated latin vitamin code", "Витамин B-12", "витамин b12"},
		{"hyphenated latin vitamin d", "витамин D-3", "витамин d3"},
		{"vitamin d without number", "Витамин Д", "витамин d3"},
		{"vitamin d3 in cyrillic", "витамин Д3", "витамин d3"},
		{"abbreviation with punctuation", "ОАК, пожалуйста!", "общий анализ крови пожалуйста"},
		{"abbreviation inside a word is kept", "оакс", "оакс"},
		{"preposition before number is kept", "в 12 часов", "в 12 часов"},
		{"latin look-alikes in cyrillic word", "анализ kpови", "анализ крови"},
		{"cyrillic look-alike in latin word", "vitаmin", "vitamin"},
		{"hyphen inside word is kept", "С-реактивный белок (СРБ)", "с-реактивный белок срб"},
		{"edge hyphens are trimmed", "-ферритин-", "ферритин"},
		{"whitespace collapses", "  глюкоза \t  натощак  ", "глюкоза натощак"},
		{"yo folds to ye", "Тёплый", "теплый"},
		{"longer rule wins when listed first", "биохимия крови", "биохимический анализ крови"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_RemovesSynonymPatterns(t *testing.T) {
	n := NewDefaultNormalizer(nil)

	for _, rule := range DefaultSynonymRules() {
		if rule.IsRegex {
			continue
		}
		t.Run(rule.Pattern, func(t *testing.T) {
			query := "подскажите " + strings.ToUpper(rule.Pattern) + " цена"
			got := n.Normalize(query)
			if containsPhrase(got, rule.Pattern) {
				t.Errorf("Normalize(%q) = %q still contains %q", query, got, rule.Pattern)
			}
			if !strings.Contains(got, rule.Canonical) {
				t.Errorf("Normalize(%q) = %q, want canonical %q", query, got, rule.Canonical)
			}
		})
	}

	regexSamples := map[string]string{
		"б12":   "b12",
		"б 12":  "b12",
		"в-12":  "b12",
		"д 3":   "d3",
		"b -12": "b12",
		"d 3":   "d3",
		"b-12":  "b12",
		"d-3":   "d3",
	}
	for input, want := range regexSamples {
		t.Run(input, func(t *testing.T) {
			if got := n.Normalize(input); got != want {
				t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewDefaultNormalizer(nil)

	inputs := []string{
		"Витамин Б12",
		"ОАК",
		"витамин д",
		"анализ kpови",
		"С-реактивный белок",
		"сахар крови натощак",
		"HbA1c",
	}

	for _, input := range inputs {
		once := n.Normalize(input)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestFold(t *testing.T) {
	n := NewDefaultNormalizer(nil)

	// Fold never applies synonyms
	if got := n.Fold("ОАК и РФ"); got != "оак и рф" {
		t.Errorf("Fold() = %q, want %q", got, "оак и рф")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("общий анализ крови-2")
	want := []string{"общий", "анализ", "крови", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}

	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		text   string
		phrase string
		want   bool
	}{
		{"сколько стоит рф", "рф", true},
		{"рф-суммарный", "рф", true},
		{"рфа", "рф", false},
		{"арф рф", "рф", true},
		{"общий анализ крови", "анализ крови", true},
		{"анализ кровик", "анализ крови", false},
		{"anything", "", false},
	}

	for _, tt := range tests {
		if got := containsPhrase(tt.text, tt.phrase); got != tt.want {
			t.Errorf("containsPhrase(%q, %q) = %v, want %v", tt.text, tt.phrase, got, tt.want)
		}
	}
}
