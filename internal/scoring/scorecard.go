package scoring

import "unicode"

// Signal and penalty tags.
const (
	SignalSharp       = "sharp"
	SignalKeywords    = "keywords"
	SignalIdentifier  = "pan_pattern"
	SignalMostlyUpper = "mostly_upper"
	SignalTextDense   = "text_dense"

	PenaltyLowRes = "low_res"
	PenaltyBlurry = "blurry"
)

// Scorecard accumulates points and evidence tags for a single validation run.
// Tags are append-only and keep the order in which they were recorded.
type Scorecard struct {
	raw       int
	signals   []string
	penalties []string
}

// NewScorecard returns an empty scorecard starting at zero.
func NewScorecard() *Scorecard {
	return &Scorecard{signals: []string{}, penalties: []string{}}
}

// Reward adds points and records a signal.
func (s *Scorecard) Reward(tag string, points int) {
	s.raw += points
	s.signals = append(s.signals, tag)
}

// Penalize deducts points and records a penalty.
func (s *Scorecard) Penalize(tag string, points int) {
	s.raw -= points
	s.penalties = append(s.penalties, tag)
}

// Raw returns the unclamped running total.
func (s *Scorecard) Raw() int { return s.raw }

// Score returns the clamped total.
func (s *Scorecard) Score() int { return Clamp(s.raw) }

// Signals returns a copy of the recorded signals.
func (s *Scorecard) Signals() []string { return append([]string{}, s.signals...) }

// Penalties returns a copy of the recorded penalties.
func (s *Scorecard) Penalties() []string { return append([]string{}, s.penalties...) }

// Evidence is everything the upstream stages observed about one document.
type Evidence struct {
	Rescaled        bool
	Sharpness       float64
	Keywords        []string
	IdentifierFound bool
	Texts           []string
}

// Outcome is the scored verdict for a piece of evidence.
type Outcome struct {
	Score      int
	Decision   Decision
	Signals    []string
	Penalties  []string
	UpperRatio float64
}

// Evaluate applies the rules to the evidence in fixed order:
// resolution, sharpness, keywords, identifier, upper-case ratio, density.
func Evaluate(ev Evidence, r Rules) Outcome {
	card := NewScorecard()

	if ev.Rescaled {
		card.Penalize(PenaltyLowRes, r.LowResPenalty)
	}

	if ev.Sharpness < r.SharpnessThreshold {
		card.Penalize(PenaltyBlurry, r.BlurPenalty)
	} else {
		card.Reward(SignalSharp, r.SharpPoints)
	}

	if n := len(ev.Keywords); n > 0 {
		card.Reward(SignalKeywords, min(r.KeywordMaximum, r.KeywordPoints*n))
	}

	if ev.IdentifierFound {
		card.Reward(SignalIdentifier, r.IdentifierPoints)
	}

	ratio := UpperRatio(ev.Texts)
	if ratio > r.UpperRatioThreshold {
		card.Reward(SignalMostlyUpper, r.UpperPoints)
	}

	if len(ev.Texts) > r.DenseTokenCount {
		card.Reward(SignalTextDense, r.DensePoints)
	}

	score := card.Score()
	return Outcome{
		Score:      score,
		Decision:   Decide(score, r),
		Signals:    card.Signals(),
		Penalties:  card.Penalties(),
		UpperRatio: ratio,
	}
}

// UpperRatio is the fraction of texts that are upper case. A text counts when it
// has at least one cased letter and no lower-case or title-case letters, so
// purely numeric tokens never count. An empty input yields 0.
func UpperRatio(texts []string) float64 {
	upper := 0
	for _, t := range texts {
		if IsUpper(t) {
			upper++
		}
	}
	return float64(upper) / float64(max(1, len(texts)))
}

// IsUpper reports whether s contains a cased letter and every cased letter is upper case.
func IsUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}
