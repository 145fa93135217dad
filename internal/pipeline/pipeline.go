package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/idcheck/internal/match"
	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/quality"
	"github.com/MeKo-Tech/idcheck/internal/scoring"
	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// Config holds configuration for the validation pipeline and its components.
type Config struct {
	Rules       scoring.Rules
	OCR         ocr.Config
	Constraints utils.ImageConstraints
	Parallel    ParallelConfig
}

// DefaultConfig returns the production rules with the default OCR engine.
func DefaultConfig() Config {
	return Config{
		Rules:       scoring.DefaultRules(),
		OCR:         ocr.DefaultConfig(),
		Constraints: utils.DefaultImageConstraints(),
		Parallel:    DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg       Config
	extractor ocr.TextExtractor
	decoder   ImageDecoder
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithRules replaces the scoring rules. The rules are copied.
func (b *Builder) WithRules(r scoring.Rules) *Builder {
	b.cfg.Rules = r.Clone()
	return b
}

// WithOCRConfig selects the OCR engine built when no extractor is injected.
func (b *Builder) WithOCRConfig(c ocr.Config) *Builder {
	b.cfg.OCR = c
	return b
}

// WithExtractor injects a text extractor, bypassing WithOCRConfig.
func (b *Builder) WithExtractor(e ocr.TextExtractor) *Builder {
	b.extractor = e
	return b
}

// WithDecoder injects an image decoder.
func (b *Builder) WithDecoder(d ImageDecoder) *Builder {
	b.decoder = d
	return b
}

// WithImageConstraints sets the limits applied by the default decoder.
func (b *Builder) WithImageConstraints(c utils.ImageConstraints) *Builder {
	b.cfg.Constraints = c
	return b
}

// WithParallelWorkers sets the number of workers for parallel validation.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress reporter for parallel validation.
func (b *Builder) WithProgressCallback(cb ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = cb
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration without building engines.
func (b *Builder) Validate() error {
	if err := b.cfg.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if b.extractor == nil {
		if err := b.cfg.OCR.Validate(); err != nil {
			return fmt.Errorf("ocr: %w", err)
		}
	}
	return nil
}

// Pipeline validates document images. Apart from the atomic profiler it holds
// no per-call state, so a Pipeline may be shared by goroutines when its
// extractor tolerates that.
type Pipeline struct {
	cfg        Config
	rules      scoring.Rules
	assessor   quality.Assessor
	extractor  ocr.TextExtractor
	decoder    ImageDecoder
	keywords   *match.KeywordMatcher
	identifier *match.IdentifierMatcher
	profiler   *Profiler
}

// Build initializes the pipeline components.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	rules := b.cfg.Rules.Clone()
	idm, err := match.NewIdentifierMatcher(rules.IdentifierPattern, rules.LooseLetterRun, rules.LooseDigitRun)
	if err != nil {
		return nil, fmt.Errorf("init identifier matcher: %w", err)
	}

	ext := b.extractor
	if ext == nil {
		ext, err = ocr.New(b.cfg.OCR)
		if err != nil {
			return nil, fmt.Errorf("init ocr engine: %w", err)
		}
	}
	if ext == nil {
		return nil, errors.New("no text extractor configured")
	}

	dec := b.decoder
	if dec == nil {
		dec = DefaultDecoder{Constraints: b.cfg.Constraints}
	}

	return &Pipeline{
		cfg:        b.cfg,
		rules:      rules,
		assessor:   quality.Assessor{MinLongSide: rules.MinLongSide, TargetLongSide: rules.TargetLongSide},
		extractor:  ext,
		decoder:    dec,
		keywords:   match.NewKeywordMatcher(rules.Vocabulary, rules.KeywordCutoff),
		identifier: idm,
		profiler:   &Profiler{},
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Rules returns a copy of the active rules.
func (p *Pipeline) Rules() scoring.Rules { return p.rules.Clone() }

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]any {
	return map[string]any{
		"ocr_engine":          p.cfg.OCR.Engine,
		"ocr_language":        p.cfg.OCR.Language,
		"vocabulary":          p.keywords.Vocabulary(),
		"keyword_cutoff":      p.rules.KeywordCutoff,
		"identifier_pattern":  p.rules.IdentifierPattern,
		"sharpness_threshold": p.rules.SharpnessThreshold,
		"accept_at":           p.rules.AcceptAt,
		"review_at":           p.rules.ReviewAt,
		"stats":               p.profiler.Snapshot(),
		"runtime":             ReadRuntimeStats(),
	}
}
