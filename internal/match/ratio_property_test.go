package match

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRatio_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ratio is within [0,1]", prop.ForAll(
		func(a, b string) bool {
			r := Ratio(a, b)
			return r >= 0 && r <= 1
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("identical strings have ratio 1", prop.ForAll(
		func(a string) bool {
			return Ratio(a, a) == 1
		},
		gen.AlphaString(),
	))

	properties.Property("a vocabulary word always matches itself in any case", prop.ForAll(
		func(i int) bool {
			m := NewKeywordMatcher([]string{"PASSPORT", "VOTER", "IDENTITY"}, 0.65)
			words := []string{"passport", "Voter", "IDENTITY"}
			got := m.Keywords([]string{words[i]})
			return len(got) >= 1
		},
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}
