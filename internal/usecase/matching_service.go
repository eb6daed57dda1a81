package usecase

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/labassist/backend/internal/domain"
)

const (
	defaultFuzzyThreshold = 0.8
	defaultMinTokenLength = 3
	// A query token must cover at least a third of the catalog token it is
	// compared with; shorter tokens match almost anything by substring.
	minLengthRatio = 3
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	FuzzyThreshold     float64
	MinTokenLength     int
	CriticalTerms      map[string]string
	EnableDebugLogging bool
}

// MatchingService finds the catalog names a free-text query refers to.
type MatchingService struct {
	normalizer         *Normalizer
	fuzzyThreshold     float64
	minTokenLength     int
	criticalTerms      map[string]string
	enableDebugLogging bool
	logger             *zap.Logger
}

// NewMatchingService creates a new matching service with the given configuration.
// Configured critical terms are merged over the built-in table.
func NewMatchingService(normalizer *Normalizer, config MatchConfig, logger *zap.Logger) *MatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}

	threshold := config.FuzzyThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = defaultFuzzyThreshold
	}

	minLen := config.MinTokenLength
	if minLen <= 0 {
		minLen = defaultMinTokenLength
	}

	critical := make(map[string]string, len(defaultCriticalTerms)+len(config.CriticalTerms))
	for term, name := range defaultCriticalTerms {
		critical[normalizer.Fold(term)] = normalizer.Normalize(name)
	}
	for term, name := range config.CriticalTerms {
		critical[normalizer.Fold(term)] = normalizer.Normalize(name)
	}

	return &MatchingService{
		normalizer:         normalizer,
		fuzzyThreshold:     threshold,
		minTokenLength:     minLen,
		criticalTerms:      critical,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger.With(zap.String("component", "matcher")),
	}
}

// Threshold returns the fuzzy similarity a token pair must reach.
func (s *MatchingService) Threshold() float64 {
	return s.fuzzyThreshold
}

// Match returns the catalog names the query refers to, sorted and without
// duplicates. The result is a set: every plausible name is included and
// none is ranked above another. An empty result means no match.
//
// names must already be normalized; duplicates are tolerated.
func (s *MatchingService) Match(ctx context.Context, query string, names []string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidRequest
	}

	normalized := s.normalizer.Normalize(query)
	queryKeys := s.fuzzyKeys(Tokenize(normalized))

	if s.enableDebugLogging {
		s.logger.Debug("matching query",
			zap.String("query", query),
			zap.String("normalized", normalized),
			zap.Strings("tokens", queryKeys),
			zap.Int("catalog_size", len(names)))
	}

	matched := make(map[string]bool)
	catalog := make(map[string]bool, len(names))

	for _, name := range names {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if name == "" {
			continue
		}
		catalog[name] = true
		if matched[name] {
			continue
		}

		// Exact phrase pass
		if containsPhrase(normalized, name) {
			matched[name] = true
			s.trace("exact", name, "", "", 1)
			continue
		}

		// Token fuzzy pass
		if s.fuzzyMatch(queryKeys, name) {
			matched[name] = true
		}
	}

	// Critical-term override, checked on the folded raw query
	folded := s.normalizer.Fold(query)
	for term, name := range s.criticalTerms {
		if !catalog[name] || matched[name] {
			continue
		}
		if containsPhrase(folded, term) {
			matched[name] = true
			s.trace("critical", name, term, "", 1)
		}
	}

	result := make([]string, 0, len(matched))
	for name := range matched {
		result = append(result, name)
	}
	sort.Strings(result)

	if s.enableDebugLogging {
		s.logger.Debug("match result", zap.String("query", query), zap.Strings("matched", result))
	}

	return result, nil
}

// fuzzyMatch reports whether any (query token, name token) pair clears the threshold.
func (s *MatchingService) fuzzyMatch(queryKeys []string, name string) bool {
	if len(queryKeys) == 0 {
		return false
	}
	nameKeys := s.fuzzyKeys(Tokenize(name))

	for _, qk := range queryKeys {
		for _, nk := range nameKeys {
			if !comparableLengths(qk, nk) {
				continue
			}
			score := partialRatio(qk, nk)
			if score+scoreEpsilon >= s.fuzzyThreshold {
				s.trace("fuzzy", name, qk, nk, score)
				return true
			}
		}
	}
	return false
}

// fuzzyKeys drops stop words and short tokens and returns phonetic keys.
func (s *MatchingService) fuzzyKeys(tokens []string) []string {
	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if stopWords[token] || isNumeric(token) {
			continue
		}
		if utf8.RuneCountInString(token) < s.minTokenLength {
			continue
		}
		keys = append(keys, phoneticKey(token))
	}
	return keys
}

func (s *MatchingService) trace(pass, name, queryToken, nameToken string, score float64) {
	if !s.enableDebugLogging {
		return
	}
	s.logger.Debug("entry matched",
		zap.String("pass", pass),
		zap.String("name", name),
		zap.String("query_token", queryToken),
		zap.String("name_token", nameToken),
		zap.Float64("score", score))
}

func comparableLengths(a, b string) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la > lb {
		la, lb = lb, la
	}
	return la*minLengthRatio >= lb
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
