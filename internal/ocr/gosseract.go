//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

// gosseractEngine calls libtesseract in-process. A client is created per call
// because a gosseract client must not be shared between goroutines.
type gosseractEngine struct {
	cfg Config
}

func newGosseract(cfg Config) (TextExtractor, error) {
	return &gosseractEngine{cfg: cfg}, nil
}

func (g *gosseractEngine) Extract(ctx context.Context, img image.Image) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EngineError{Engine: EngineGosseract, Err: err}
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return nil, &EngineError{Engine: EngineGosseract, Err: err}
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if g.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(g.cfg.TessdataDir); err != nil {
			return nil, &EngineError{Engine: EngineGosseract, Err: err}
		}
	}
	if g.cfg.Language != "" {
		if err := client.SetLanguage(strings.Split(g.cfg.Language, "+")...); err != nil {
			return nil, &EngineError{Engine: EngineGosseract, Err: err}
		}
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(g.cfg.PageSegMode)); err != nil {
		return nil, &EngineError{Engine: EngineGosseract, Err: err}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, &EngineError{Engine: EngineGosseract, Err: fmt.Errorf("set image: %w", err)}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, &EngineError{Engine: EngineGosseract, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &EngineError{Engine: EngineGosseract, Err: err}
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{Text: b.Word, Confidence: b.Confidence, HasConfidence: true, Box: b.Box})
	}
	return Clean(words), nil
}
