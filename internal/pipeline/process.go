package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/scoring"
)

// Process runs one validation: quality assessment, OCR, keyword and identifier
// matching, then scoring. Any failure aborts the run without a Result.
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*Report, error) {
	if p == nil || p.extractor == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, fromContext(err)
	}

	rep := &Report{}
	start := time.Now()

	assessment, err := p.assessor.Assess(img)
	if err != nil {
		return nil, NewDecodeError(err)
	}
	rep.Quality.Width = assessment.Width
	rep.Quality.Height = assessment.Height
	rep.Quality.OriginalWidth = assessment.OriginalWidth
	rep.Quality.OriginalHeight = assessment.OriginalHeight
	rep.Quality.Rescaled = assessment.Rescaled
	qualityDone := time.Now()

	tokens, err := p.extractor.Extract(ctx, assessment.Image)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fromContext(ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fromContext(err)
		}
		return nil, NewOCRError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fromContext(err)
	}
	ocrDone := time.Now()

	texts := ocr.Texts(tokens)
	hits := p.keywords.Hits(texts)
	keywords := p.keywords.Distinct(hits)
	id := p.identifier.Find(texts)

	outcome := scoring.Evaluate(scoring.Evidence{
		Rescaled:        assessment.Rescaled,
		Sharpness:       assessment.Sharpness,
		Keywords:        keywords,
		IdentifierFound: id.Found,
		Texts:           texts,
	}, p.rules)

	res := &Result{
		Decision:     outcome.Decision,
		Score:        outcome.Score,
		Sharpness:    assessment.Sharpness,
		Keywords:     keywords,
		PANFound:     id.Found,
		Signals:      outcome.Signals,
		Penalties:    outcome.Penalties,
		OCRWordCount: len(tokens),
		UpperRatio:   outcome.UpperRatio,
	}
	if id.Found {
		v := id.Value
		res.PANValue = &v
	}

	end := time.Now()
	rep.Result = res
	rep.Tokens = tokens
	rep.Hits = hits
	rep.Identifier = id
	rep.Processing.QualityNs = qualityDone.Sub(start).Nanoseconds()
	rep.Processing.OCRNs = ocrDone.Sub(qualityDone).Nanoseconds()
	rep.Processing.ScoringNs = end.Sub(ocrDone).Nanoseconds()
	rep.Processing.TotalNs = end.Sub(start).Nanoseconds()
	p.profiler.Record(rep.Processing, len(tokens))

	slog.Debug("validation finished",
		"decision", res.Decision,
		"score", res.Score,
		"sharpness", res.Sharpness,
		"tokens", res.OCRWordCount,
		"keywords", len(keywords),
		"identifier_rule", id.Rule,
		"rescaled", assessment.Rescaled,
		"duration", end.Sub(start))

	return rep, nil
}

// ValidateImage validates an already decoded image.
func (p *Pipeline) ValidateImage(ctx context.Context, img image.Image) (*Result, error) {
	rep, err := p.Process(ctx, img)
	if err != nil {
		return nil, err
	}
	return rep.Result, nil
}

// ProcessBytes decodes data and processes the image.
func (p *Pipeline) ProcessBytes(ctx context.Context, data []byte) (*Report, error) {
	if p == nil || p.decoder == nil {
		return nil, errors.New("pipeline not initialized")
	}
	img, err := p.decoder.Decode(data)
	if err != nil {
		return nil, NewDecodeError(err)
	}
	return p.Process(ctx, img)
}

// ValidateBytes decodes and validates an uploaded file.
func (p *Pipeline) ValidateBytes(ctx context.Context, data []byte) (*Result, error) {
	rep, err := p.ProcessBytes(ctx, data)
	if err != nil {
		return nil, err
	}
	return rep.Result, nil
}

// ProcessFile reads, decodes and processes the file at path.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: validating a user-provided path is the point
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.ProcessBytes(ctx, data)
}

// ValidateFile validates the file at path.
func (p *Pipeline) ValidateFile(ctx context.Context, path string) (*Result, error) {
	rep, err := p.ProcessFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return rep.Result, nil
}
