// Package ocr turns document images into word-level text tokens.
//
// Engines are treated as not thread-safe: every Extract call works on its own
// engine handle (a tesseract process or a fresh gosseract client), and Limit
// caps how many run at once.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultConfidence replaces a missing or invalid per-word confidence.
const DefaultConfidence = 50.0

// Token is one recognised word.
type Token struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Word is a raw engine observation before cleaning.
type Word struct {
	Text          string
	Confidence    float64
	HasConfidence bool
	Box           image.Rectangle
}

// TextExtractor runs OCR on an image and returns tokens in reading order.
type TextExtractor interface {
	Extract(ctx context.Context, img image.Image) ([]Token, error)
}

// ErrEngineNotLinked is returned when an engine was not compiled into the binary.
var ErrEngineNotLinked = errors.New("ocr engine not linked into this build")

// EngineError wraps any failure of the text extraction step.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("ocr engine %s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Clean converts raw words into tokens. Text is NFC-normalised and trimmed,
// whitespace-only words are dropped, and confidences that are absent, negative
// or NaN become DefaultConfidence. Low-confidence words are kept.
func Clean(words []Word) []Token {
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(norm.NFC.String(w.Text))
		if text == "" {
			continue
		}
		tokens = append(tokens, Token{Text: text, Confidence: normalizeConfidence(w)})
	}
	return tokens
}

func normalizeConfidence(w Word) float64 {
	c := w.Confidence
	if !w.HasConfidence || math.IsNaN(c) || c < 0 {
		return DefaultConfidence
	}
	return min(c, 100)
}

// Texts returns the token texts in order.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}
