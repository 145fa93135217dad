package match

import (
	"testing"

	"github.com/MeKo-Tech/idcheck/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"ABC", "ABC", 1},
		{"", "", 1},
		{"ABC", "", 0},
		{"ABCD", "BCDE", 0.75},
		{"GOVERMENT", "GOVERNMENT", 18.0 / 19.0},
		{"NAME", "CARD", 0.25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9, "%q vs %q", tt.a, tt.b)
	}
}

func TestRatio_CountsRunesNotBytes(t *testing.T) {
	// Multi-byte letters compare as single symbols.
	assert.InDelta(t, 1.0, Ratio("ÄÖÜ", "ÄÖÜ"), 1e-9)
	assert.InDelta(t, 2.0/3.0, Ratio("ÄÖ", "ÄÖÜX"), 1e-9)
}

func TestKeywordMatcher_FuzzyMatches(t *testing.T) {
	m := NewKeywordMatcher(scoring.DefaultVocabulary, 0.65)

	assert.Contains(t, m.Keywords([]string{"GOVERMENT"}), "GOVERNMENT")

	got := m.Keywords([]string{"of", "inda", "XYZ", "12345"})
	assert.Equal(t, []string{"INDIA"}, got)
}

func TestKeywordMatcher_MisreadCanHitSeveralKeywords(t *testing.T) {
	m := NewKeywordMatcher(scoring.DefaultVocabulary, 0.65)
	// GOVERMENT shares ERM and ENT with PERMANENT: 12/18 > 0.65.
	assert.Equal(t, []string{"GOVERNMENT", "PERMANENT"}, m.Keywords([]string{"GOVERMENT"}))
}

func TestKeywordMatcher_CollapsesDuplicates(t *testing.T) {
	m := NewKeywordMatcher(scoring.DefaultVocabulary, 0.65)
	got := m.Keywords([]string{"TAX", "TAX", "Tax", "INCOME"})
	assert.Equal(t, []string{"INCOME", "TAX"}, got)
}

func TestKeywordMatcher_OneTokenManyKeywords(t *testing.T) {
	m := NewKeywordMatcher([]string{"CARD", "CARE", "card"}, 0.65)
	assert.Equal(t, []string{"CARD", "CARE"}, m.Vocabulary())

	hits := m.Hits([]string{"CARD"})
	require.Len(t, hits, 2)
	assert.Equal(t, "CARD", hits[0].Keyword)
	assert.InDelta(t, 1.0, hits[0].Ratio, 1e-9)
	assert.Equal(t, "CARE", hits[1].Keyword)
	assert.InDelta(t, 0.75, hits[1].Ratio, 1e-9)

	assert.Equal(t, []string{"CARD", "CARE"}, m.Keywords([]string{"CARD"}))
}

func TestKeywordMatcher_CutoffIsExclusive(t *testing.T) {
	m := NewKeywordMatcher([]string{"ABCD"}, 0.75)
	// Ratio("BCDE","ABCD") == 0.75 exactly.
	assert.Empty(t, m.Keywords([]string{"BCDE"}))
	assert.NotNil(t, m.Keywords(nil))
}

func TestIdentifierMatcher(t *testing.T) {
	r := scoring.DefaultRules()
	m, err := NewIdentifierMatcher(r.IdentifierPattern, r.LooseLetterRun, r.LooseDigitRun)
	require.NoError(t, err)

	tests := []struct {
		name  string
		texts []string
		want  Identifier
	}{
		{"strict", []string{"NAME", "ABCDE1234F"}, Identifier{Found: true, Value: "ABCDE1234F", Rule: RuleStrict, Index: 1}},
		{"strict after stripping", []string{"abcde-1234-f"}, Identifier{Found: true, Value: "ABCDE1234F", Rule: RuleStrict, Index: 0}},
		{"strict beats earlier loose", []string{"ABC123X", "ABCDE1234F"}, Identifier{Found: true, Value: "ABCDE1234F", Rule: RuleStrict, Index: 1}},
		{"loose fallback", []string{"Name", "DL-ABC 12345"}, Identifier{Found: true, Value: "DLABC12345", Rule: RuleLoose, Index: 1}},
		{"too short for either", []string{"AB12"}, Identifier{Index: -1}},
		{"runs split by punctuation", []string{"AB-C12-3"}, Identifier{Index: -1}},
		{"empty", nil, Identifier{Index: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Find(tt.texts))
		})
	}
}

func TestNewIdentifierMatcher_Errors(t *testing.T) {
	_, err := NewIdentifierMatcher("([", 3, 3)
	assert.Error(t, err)
	_, err = NewIdentifierMatcher(scoring.DefaultIdentifierPattern, 0, 3)
	assert.Error(t, err)
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "ABCDE1234F", Strip(" abcde.1234/f "))
	assert.Equal(t, "", Strip("---"))
}
