package ocr

import (
	"context"
	"image"
)

type limited struct {
	next TextExtractor
	sem  chan struct{}
}

// Limit wraps next so that at most n Extract calls run at the same time.
// Waiting callers give up when their context ends.
func Limit(next TextExtractor, n int) TextExtractor {
	if n <= 0 {
		return next
	}
	return &limited{next: next, sem: make(chan struct{}, n)}
}

func (l *limited) Extract(ctx context.Context, img image.Image) ([]Token, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, &EngineError{Engine: "limit", Err: ctx.Err()}
	}
	defer func() { <-l.sem }()
	return l.next.Extract(ctx, img)
}
