package match

import (
	"fmt"
	"regexp"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]`)

// Rule names the rule that produced an identifier match.
type Rule string

const (
	RuleNone   Rule = ""
	RuleStrict Rule = "strict"
	RuleLoose  Rule = "loose"
)

// Identifier is the outcome of an identifier search.
type Identifier struct {
	Found bool   `json:"found"`
	Value string `json:"value,omitempty"`
	Rule  Rule   `json:"rule,omitempty"`
	Index int    `json:"index"`
}

// IdentifierMatcher looks for a structured document number in OCR tokens.
type IdentifierMatcher struct {
	strict  *regexp.Regexp
	letters *regexp.Regexp
	digits  *regexp.Regexp
}

// NewIdentifierMatcher compiles the strict pattern and the loose run rules.
func NewIdentifierMatcher(pattern string, letterRun, digitRun int) (*IdentifierMatcher, error) {
	strict, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile identifier pattern: %w", err)
	}
	if letterRun <= 0 || digitRun <= 0 {
		return nil, fmt.Errorf("run lengths must be positive, got %d/%d", letterRun, digitRun)
	}
	return &IdentifierMatcher{
		strict:  strict,
		letters: regexp.MustCompile(fmt.Sprintf(`[A-Z]{%d,}`, letterRun)),
		digits:  regexp.MustCompile(fmt.Sprintf(`[0-9]{%d,}`, digitRun)),
	}, nil
}

// Strip upper-cases s and removes everything outside A-Z and 0-9.
func Strip(s string) string {
	return nonAlphanumeric.ReplaceAllString(Upper(s), "")
}

// Find returns the first strict match in token order. Only when no token
// matches strictly does it fall back to the first token whose upper-cased text
// holds both a letter run and a digit run; that token is reported stripped.
func (m *IdentifierMatcher) Find(texts []string) Identifier {
	for i, text := range texts {
		if s := Strip(text); m.strict.MatchString(s) {
			return Identifier{Found: true, Value: s, Rule: RuleStrict, Index: i}
		}
	}
	for i, text := range texts {
		u := Upper(text)
		if m.letters.MatchString(u) && m.digits.MatchString(u) {
			return Identifier{Found: true, Value: Strip(text), Rule: RuleLoose, Index: i}
		}
	}
	return Identifier{Index: -1}
}
