// Package match finds identity-document evidence in OCR tokens: fuzzy
// vocabulary keywords and structured identifiers.
package match

import (
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Ratio returns the SequenceMatcher similarity of a and b, compared rune by rune.
// 1.0 means identical, 0.0 means nothing in common. Two empty strings are identical.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

// Upper upper-cases s with full Unicode mappings.
func Upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// Hit records one token/keyword pair whose similarity cleared the cutoff.
type Hit struct {
	Keyword string  `json:"keyword"`
	Token   string  `json:"token"`
	Ratio   float64 `json:"ratio"`
}

// KeywordMatcher fuzzy-matches tokens against a fixed vocabulary.
type KeywordMatcher struct {
	vocabulary []string
	cutoff     float64
}

// NewKeywordMatcher creates a matcher. Vocabulary entries are upper-cased and
// deduplicated, keeping first occurrence order.
func NewKeywordMatcher(vocabulary []string, cutoff float64) *KeywordMatcher {
	vocab := make([]string, 0, len(vocabulary))
	for _, k := range vocabulary {
		k = Upper(strings.TrimSpace(k))
		if k != "" && !slices.Contains(vocab, k) {
			vocab = append(vocab, k)
		}
	}
	return &KeywordMatcher{vocabulary: vocab, cutoff: cutoff}
}

// Vocabulary returns a copy of the normalized vocabulary.
func (m *KeywordMatcher) Vocabulary() []string { return slices.Clone(m.vocabulary) }

// Hits returns every token/keyword pair with a ratio strictly above the cutoff,
// in token order. A single token may hit several keywords.
func (m *KeywordMatcher) Hits(texts []string) []Hit {
	var hits []Hit
	for _, text := range texts {
		t := Upper(text)
		for _, k := range m.vocabulary {
			if r := Ratio(t, k); r > m.cutoff {
				hits = append(hits, Hit{Keyword: k, Token: text, Ratio: r})
			}
		}
	}
	return hits
}

// Keywords returns the distinct keywords found in texts, in vocabulary order.
// The result is never nil.
func (m *KeywordMatcher) Keywords(texts []string) []string {
	return m.Distinct(m.Hits(texts))
}

// Distinct collapses hits to their keywords, in vocabulary order.
func (m *KeywordMatcher) Distinct(hits []Hit) []string {
	seen := make(map[string]bool)
	for _, h := range hits {
		seen[h.Keyword] = true
	}
	found := make([]string, 0, len(seen))
	for _, k := range m.vocabulary {
		if seen[k] {
			found = append(found, k)
		}
	}
	return found
}
