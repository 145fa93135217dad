package pipeline

import (
	"github.com/MeKo-Tech/idcheck/internal/match"
	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/scoring"
)

// Result is the verdict for one document. Its JSON form is the public contract
// of the validator and must keep these exact keys.
type Result struct {
	Decision     scoring.Decision `json:"decision" yaml:"decision"`
	Score        int              `json:"score" yaml:"score"`
	Sharpness    float64          `json:"sharpness" yaml:"sharpness"`
	Keywords     []string         `json:"keywords" yaml:"keywords"`
	PANFound     bool             `json:"pan_found" yaml:"pan_found"`
	PANValue     *string          `json:"pan_value" yaml:"pan_value"`
	Signals      []string         `json:"signals" yaml:"signals"`
	Penalties    []string         `json:"penalties" yaml:"penalties"`
	OCRWordCount int              `json:"ocr_word_count" yaml:"ocr_word_count"`
	UpperRatio   float64          `json:"upper_ratio" yaml:"upper_ratio"`
}

// Report is a Result plus the intermediate observations that produced it.
type Report struct {
	Result     *Result          `json:"result"`
	Tokens     []ocr.Token      `json:"tokens"`
	Hits       []match.Hit      `json:"keyword_hits"`
	Identifier match.Identifier `json:"identifier"`
	Quality    struct {
		Width          int  `json:"width"`
		Height         int  `json:"height"`
		OriginalWidth  int  `json:"original_width"`
		OriginalHeight int  `json:"original_height"`
		Rescaled       bool `json:"rescaled"`
	} `json:"quality"`
	Processing Timings `json:"processing"`
}

// Timings holds per-stage durations of one validation in nanoseconds.
type Timings struct {
	QualityNs int64 `json:"quality_ns"`
	OCRNs     int64 `json:"ocr_ns"`
	ScoringNs int64 `json:"scoring_ns"`
	TotalNs   int64 `json:"total_ns"`
}
