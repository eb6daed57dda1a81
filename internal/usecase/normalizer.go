package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// SynonymRule rewrites every word-bounded occurrence of Pattern to Canonical.
// Pattern is literal text unless IsRegex is set.
type SynonymRule struct {
	Pattern   string `mapstructure:"pattern"`
	Canonical string `mapstructure:"canonical"`
	IsRegex   bool   `mapstructure:"regex"`
}

type compiledRule struct {
	re        *regexp.Regexp
	canonical string
}

// Normalizer canonicalizes catalog names and queries into one comparable space.
// It is safe for concurrent use.
type Normalizer struct {
	rules              []compiledRule
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewNormalizer compiles the synonym table. Rules apply in order, each
// rewriting all of its matches before the next one runs.
func NewNormalizer(rules []SynonymRule, logger *zap.Logger, enableDebugLogging bool) (*Normalizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		if strings.TrimSpace(rule.Pattern) == "" {
			continue
		}
		pattern := rule.Pattern
		if !rule.IsRegex {
			pattern = regexp.QuoteMeta(strings.ToLower(pattern))
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("synonym rule %q: %w", rule.Pattern, err)
		}
		compiled = append(compiled, compiledRule{re: re, canonical: strings.ToLower(rule.Canonical)})
	}

	return &Normalizer{
		rules:              compiled,
		logger:             logger.With(zap.String("component", "normalizer")),
		enableDebugLogging: enableDebugLogging,
	}, nil
}

// DefaultSynonymRules returns a copy of the built-in synonym table.
func DefaultSynonymRules() []SynonymRule {
	return append([]SynonymRule(nil), defaultSynonymRules...)
}

// NewDefaultNormalizer builds a Normalizer over the built-in synonym table.
func NewDefaultNormalizer(logger *zap.Logger) *Normalizer {
	n, err := NewNormalizer(defaultSynonymRules, logger, false)
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize runs the full pipeline: fold case, unify scripts, apply
// synonyms, strip punctuation other than hyphens, collapse whitespace.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Step 1-2: fold case and unify look-alike scripts
	result := n.Fold(text)

	// Step 3: synonym substitution
	for _, rule := range n.rules {
		result = replaceBounded(rule.re, result, rule.canonical)
	}

	// Step 4: punctuation and whitespace
	result = stripPunctuation(result)

	if n.enableDebugLogging {
		n.logger.Debug("normalized", zap.String("input", text), zap.String("output", result))
	}

	return result
}

// Fold applies only case folding and script unification. Critical terms
// are checked against this form, before any synonym rewrites.
func (n *Normalizer) Fold(text string) string {
	folded := cases.Fold().String(norm.NFKC.String(text))
	folded = strings.ReplaceAll(folded, "ё", "е")
	return unifyScripts(folded)
}

// Tokenize splits normalized text into runs of word characters.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) })
}

// unifyScripts rewrites look-alike letters inside each word so that the
// whole word is in its majority script. Ties go to Cyrillic.
func unifyScripts(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) > 0 {
			b.WriteString(unifyWord(word))
			word = word[:0]
		}
	}

	for _, r := range s {
		if isWordRune(r) {
			word = append(word, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()

	return b.String()
}

func unifyWord(word []rune) string {
	var cyrillic, latin int
	for _, r := range word {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	if cyrillic == 0 || latin == 0 {
		return string(word)
	}

	mapping := latinToCyrillic
	if latin > cyrillic {
		mapping = cyrillicToLatin
	}

	out := make([]rune, len(word))
	for i, r := range word {
		if mapped, ok := mapping[r]; ok {
			out[i] = mapped
			continue
		}
		out[i] = r
	}
	return string(out)
}

// stripPunctuation replaces everything except letters, digits and hyphens
// with spaces, trims hyphens off word edges and collapses whitespace.
func stripPunctuation(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) || r == '-' {
			return r
		}
		return ' '
	}, s)

	fields := strings.Fields(cleaned)
	kept := fields[:0]
	for _, field := range fields {
		field = strings.Trim(field, "-")
		if field != "" {
			kept = append(kept, field)
		}
	}
	return strings.Join(kept, " ")
}

// replaceBounded replaces matches of re that start and end on word boundaries.
// Go's \b only understands ASCII, so boundaries are checked by hand.
func replaceBounded(re *regexp.Regexp, s, replacement string) string {
	matches := re.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] == m[1] || !boundaryBefore(s, m[0]) || !boundaryAfter(s, m[1]) {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(replacement)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// containsPhrase reports whether phrase occurs in text on word boundaries.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(phrase)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
