package ocr

import (
	"context"
	"image"
	"sync/atomic"
)

// Static is a deterministic extractor that returns the same words for every image.
type Static struct {
	Words []Word
	Err   error

	calls atomic.Int64
}

// NewStatic returns a Static extractor yielding texts with confidence 90.
func NewStatic(texts ...string) *Static {
	words := make([]Word, len(texts))
	for i, t := range texts {
		words[i] = Word{Text: t, Confidence: 90, HasConfidence: true}
	}
	return &Static{Words: words}
}

// Extract implements TextExtractor.
func (s *Static) Extract(ctx context.Context, _ image.Image) ([]Token, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, &EngineError{Engine: "static", Err: err}
	}
	if s.Err != nil {
		return nil, &EngineError{Engine: "static", Err: s.Err}
	}
	return Clean(s.Words), nil
}

// Calls reports how many times Extract ran.
func (s *Static) Calls() int64 { return s.calls.Load() }
