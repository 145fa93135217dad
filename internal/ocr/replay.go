package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
)

// Replay returns the words of a previously captured Tesseract TSV file for
// every image. It is used to re-score documents without running OCR again.
type Replay struct {
	path  string
	words []Word
}

// NewReplay loads and parses the TSV file at path.
func NewReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: replay file path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	words, err := ParseTSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse replay file %s: %w", path, err)
	}
	return &Replay{path: path, words: words}, nil
}

// Extract implements TextExtractor. The image is ignored.
func (r *Replay) Extract(ctx context.Context, _ image.Image) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EngineError{Engine: EngineReplay, Err: err}
	}
	return Clean(r.words), nil
}
