package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide_Boundaries(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		score int
		want  Decision
	}{
		{100, Accept},
		{43, Accept},
		{42, Review},
		{35, Review},
		{34, Reject},
		{0, Reject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.score, r), "score %d", tt.score)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-15))
	assert.Equal(t, 0, Clamp(0))
	assert.Equal(t, 57, Clamp(57))
	assert.Equal(t, 100, Clamp(100))
	assert.Equal(t, 100, Clamp(105))
}

func TestScorecard_KeepsOrderAndClamps(t *testing.T) {
	card := NewScorecard()
	card.Penalize(PenaltyLowRes, 5)
	card.Penalize(PenaltyBlurry, 10)

	assert.Equal(t, -15, card.Raw())
	assert.Equal(t, 0, card.Score())
	assert.Equal(t, []string{PenaltyLowRes, PenaltyBlurry}, card.Penalties())
	assert.Empty(t, card.Signals())
	assert.NotNil(t, card.Signals())

	// Returned slices are copies.
	card.Penalties()[0] = "mutated"
	assert.Equal(t, PenaltyLowRes, card.Penalties()[0])
}

func TestEvaluate_FullDocument(t *testing.T) {
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = "WORD"
	}
	out := Evaluate(Evidence{
		Sharpness:       120,
		Keywords:        []string{"INCOME", "TAX", "DEPARTMENT"},
		IdentifierFound: true,
		Texts:           texts,
	}, DefaultRules())

	// 15 + 24 + 25 + 10 + 15 = 89
	assert.Equal(t, 89, out.Score)
	assert.Equal(t, Accept, out.Decision)
	assert.Equal(t, []string{SignalSharp, SignalKeywords, SignalIdentifier, SignalMostlyUpper, SignalTextDense}, out.Signals)
	assert.Empty(t, out.Penalties)
	assert.InDelta(t, 1.0, out.UpperRatio, 1e-9)
}

func TestEvaluate_LowResBlurryIsZero(t *testing.T) {
	out := Evaluate(Evidence{Rescaled: true, Sharpness: 3}, DefaultRules())
	assert.Equal(t, 0, out.Score)
	assert.Equal(t, Reject, out.Decision)
	assert.Equal(t, []string{PenaltyLowRes, PenaltyBlurry}, out.Penalties)
	assert.Empty(t, out.Signals)
	assert.Zero(t, out.UpperRatio)
}

func TestEvaluate_KeywordPointsCapped(t *testing.T) {
	out := Evaluate(Evidence{
		Sharpness: 40, // threshold itself counts as sharp
		Keywords:  []string{"A", "B", "C", "D", "E", "F", "G"},
	}, DefaultRules())
	assert.Equal(t, 15+40, out.Score)
	assert.Equal(t, []string{SignalSharp, SignalKeywords}, out.Signals)
}

func TestEvaluate_ReviewBand(t *testing.T) {
	// sharp + identifier = 40
	out := Evaluate(Evidence{Sharpness: 90, IdentifierFound: true, Texts: []string{"abc", "def"}}, DefaultRules())
	assert.Equal(t, 40, out.Score)
	assert.Equal(t, Review, out.Decision)
}

func TestEvaluate_DensityNeedsMoreThanThreshold(t *testing.T) {
	texts := strings.Fields(strings.Repeat("x ", 20))
	require.Len(t, texts, 20)
	out := Evaluate(Evidence{Sharpness: 90, Texts: texts}, DefaultRules())
	assert.NotContains(t, out.Signals, SignalTextDense)

	out = Evaluate(Evidence{Sharpness: 90, Texts: append(texts, "x")}, DefaultRules())
	assert.Contains(t, out.Signals, SignalTextDense)
}

func TestUpperRatio(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  float64
	}{
		{"empty", nil, 0},
		{"all upper", []string{"INDIA", "PAN"}, 1},
		{"digits do not count", []string{"1234", "INDIA"}, 0.5},
		{"mixed alnum upper counts", []string{"ABCDE1234F", "name"}, 0.5},
		{"title case is not upper", []string{"India"}, 0},
		{"punctuation only", []string{"--", "/"}, 0},
		{"unicode upper", []string{"ÄÖÜ", "straße"}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, UpperRatio(tt.texts), 1e-9)
		})
	}
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.IdentifierPattern = "([A-Z"
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.Vocabulary = nil
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.ReviewAt = 50
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.KeywordCutoff = 1.2
	assert.Error(t, r.Validate())
}

func TestRules_CloneDoesNotAlias(t *testing.T) {
	a := DefaultRules()
	b := a.Clone()
	b.Vocabulary[0] = "CHANGED"
	assert.Equal(t, "GOVERNMENT", a.Vocabulary[0])
	assert.Equal(t, "GOVERNMENT", DefaultVocabulary[0])
}
