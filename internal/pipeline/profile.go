package pipeline

import (
	"sync/atomic"
)

// Profiler accumulates stage timings across validations of one Pipeline.
type Profiler struct {
	QualityTimeNs atomic.Int64
	OCRTimeNs     atomic.Int64
	Validations   atomic.Int64
	Tokens        atomic.Int64
}

// Record adds one finished validation.
func (p *Profiler) Record(t Timings, tokens int) {
	p.QualityTimeNs.Add(t.QualityNs)
	p.OCRTimeNs.Add(t.OCRNs)
	p.Validations.Add(1)
	p.Tokens.Add(int64(tokens))
}

// Snapshot returns cumulative totals in milliseconds.
func (p *Profiler) Snapshot() map[string]any {
	n := p.Validations.Load()
	q := p.QualityTimeNs.Load()
	o := p.OCRTimeNs.Load()
	out := map[string]any{
		"validations":      n,
		"tokens":           p.Tokens.Load(),
		"quality_ms_total": q / 1_000_000,
		"ocr_ms_total":     o / 1_000_000,
	}
	if n > 0 {
		out["quality_ms_per_validation"] = float64(q) / 1_000_000.0 / float64(n)
		out["ocr_ms_per_validation"] = float64(o) / 1_000_000.0 / float64(n)
	}
	return out
}
