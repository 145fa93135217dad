package scoring

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// DefaultVocabulary is the set of identity-document keywords searched for in OCR output.
var DefaultVocabulary = []string{
	"GOVERNMENT", "INDIA", "INCOME", "TAX", "DEPARTMENT",
	"ACCOUNT", "PERMANENT", "CARD", "PASSPORT", "DRIVING",
	"LICENCE", "VOTER", "IDENTITY",
}

// DefaultIdentifierPattern matches a PAN-style identifier: 5 letters, 4 digits, 1 letter.
const DefaultIdentifierPattern = `^[A-Z]{5}[0-9]{4}[A-Z]$`

// Rules holds every constant that drives a validation run. A pipeline copies
// its Rules at construction time and never mutates them afterwards.
type Rules struct {
	// Quality
	MinLongSide        int     `json:"min_long_side" yaml:"min_long_side"`
	TargetLongSide     int     `json:"target_long_side" yaml:"target_long_side"`
	LowResPenalty      int     `json:"low_res_penalty" yaml:"low_res_penalty"`
	SharpnessThreshold float64 `json:"sharpness_threshold" yaml:"sharpness_threshold"`
	SharpPoints        int     `json:"sharp_points" yaml:"sharp_points"`
	BlurPenalty        int     `json:"blur_penalty" yaml:"blur_penalty"`

	// Keywords
	Vocabulary     []string `json:"vocabulary" yaml:"vocabulary"`
	KeywordCutoff  float64  `json:"keyword_cutoff" yaml:"keyword_cutoff"`
	KeywordPoints  int      `json:"keyword_points" yaml:"keyword_points"`
	KeywordMaximum int      `json:"keyword_maximum" yaml:"keyword_maximum"`

	// Identifier
	IdentifierPattern string `json:"identifier_pattern" yaml:"identifier_pattern"`
	LooseLetterRun    int    `json:"loose_letter_run" yaml:"loose_letter_run"`
	LooseDigitRun     int    `json:"loose_digit_run" yaml:"loose_digit_run"`
	IdentifierPoints  int    `json:"identifier_points" yaml:"identifier_points"`

	// Text heuristics
	UpperRatioThreshold float64 `json:"upper_ratio_threshold" yaml:"upper_ratio_threshold"`
	UpperPoints         int     `json:"upper_points" yaml:"upper_points"`
	DenseTokenCount     int     `json:"dense_token_count" yaml:"dense_token_count"`
	DensePoints         int     `json:"dense_points" yaml:"dense_points"`

	// Decision thresholds (inclusive lower bounds)
	AcceptAt int `json:"accept_at" yaml:"accept_at"`
	ReviewAt int `json:"review_at" yaml:"review_at"`
}

// DefaultRules returns the production rule set.
func DefaultRules() Rules {
	return Rules{
		MinLongSide:        800,
		TargetLongSide:     1000,
		LowResPenalty:      5,
		SharpnessThreshold: 40,
		SharpPoints:        15,
		BlurPenalty:        10,

		Vocabulary:     slices.Clone(DefaultVocabulary),
		KeywordCutoff:  0.65,
		KeywordPoints:  8,
		KeywordMaximum: 40,

		IdentifierPattern: DefaultIdentifierPattern,
		LooseLetterRun:    3,
		LooseDigitRun:     3,
		IdentifierPoints:  25,

		UpperRatioThreshold: 0.5,
		UpperPoints:         10,
		DenseTokenCount:     20,
		DensePoints:         15,

		AcceptAt: 43,
		ReviewAt: 35,
	}
}

// Clone returns a deep copy so callers cannot alias the vocabulary slice.
func (r Rules) Clone() Rules {
	r.Vocabulary = slices.Clone(r.Vocabulary)
	return r
}

// Validate checks that the rule set is internally consistent.
func (r Rules) Validate() error {
	if r.MinLongSide <= 0 || r.TargetLongSide <= 0 {
		return errors.New("resolution limits must be positive")
	}
	if r.TargetLongSide < r.MinLongSide {
		return fmt.Errorf("target long side %d below minimum %d", r.TargetLongSide, r.MinLongSide)
	}
	if r.KeywordCutoff < 0 || r.KeywordCutoff >= 1 {
		return fmt.Errorf("keyword cutoff must be in [0,1), got %v", r.KeywordCutoff)
	}
	if len(r.Vocabulary) == 0 {
		return errors.New("vocabulary must not be empty")
	}
	if _, err := regexp.Compile(r.IdentifierPattern); err != nil {
		return fmt.Errorf("invalid identifier pattern: %w", err)
	}
	if r.LooseLetterRun <= 0 || r.LooseDigitRun <= 0 {
		return errors.New("loose run lengths must be positive")
	}
	if r.UpperRatioThreshold < 0 || r.UpperRatioThreshold > 1 {
		return fmt.Errorf("upper ratio threshold must be in [0,1], got %v", r.UpperRatioThreshold)
	}
	if r.ReviewAt > r.AcceptAt {
		return fmt.Errorf("review threshold %d above accept threshold %d", r.ReviewAt, r.AcceptAt)
	}
	return nil
}
