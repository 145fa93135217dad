package pipeline

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_Snapshot(t *testing.T) {
	var p Profiler
	snap := p.Snapshot()
	assert.Equal(t, int64(0), snap["validations"])
	assert.NotContains(t, snap, "ocr_ms_per_validation")

	p.Record(Timings{QualityNs: 2_000_000, OCRNs: 10_000_000}, 7)
	p.Record(Timings{QualityNs: 4_000_000, OCRNs: 30_000_000}, 3)

	snap = p.Snapshot()
	assert.Equal(t, int64(2), snap["validations"])
	assert.Equal(t, int64(10), snap["tokens"])
	assert.Equal(t, int64(6), snap["quality_ms_total"])
	assert.Equal(t, int64(40), snap["ocr_ms_total"])
	assert.InDelta(t, 3.0, snap["quality_ms_per_validation"], 1e-9)
	assert.InDelta(t, 20.0, snap["ocr_ms_per_validation"], 1e-9)
}

func TestPipeline_InfoCountsValidations(t *testing.T) {
	p := newTestPipeline(t, ocr.NewStatic("INDIA", "CARD"))
	_, err := p.ValidateImage(context.Background(), testutil.Checkerboard(900, 600))
	require.NoError(t, err)

	// failures are not recorded
	_, err = p.ValidateBytes(context.Background(), []byte("junk"))
	require.Error(t, err)

	stats, ok := p.Info()["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1), stats["validations"])
	assert.Equal(t, int64(2), stats["tokens"])

	rt, ok := p.Info()["runtime"].(RuntimeStats)
	require.True(t, ok)
	assert.Positive(t, rt.Goroutines)
	assert.Positive(t, rt.MaxProcs)
}
