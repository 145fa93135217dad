package pipeline

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProgress struct {
	NoOpProgressCallback
	started, completed, errs atomic.Int32
}

func (c *countingProgress) OnStart(int)        { c.started.Add(1) }
func (c *countingProgress) OnComplete()        { c.completed.Add(1) }
func (c *countingProgress) OnError(int, error) { c.errs.Add(1) }

func TestDefaultParallelConfig(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), DefaultParallelConfig().MaxWorkers)
}

func TestValidateBytesParallel_Callbacks(t *testing.T) {
	p := newTestPipeline(t, ocr.NewStatic("PASSPORT"))
	good := testutil.PNG(t, testutil.Checkerboard(900, 600))
	progress := &countingProgress{}

	items, err := p.ValidateBytesParallel(context.Background(), [][]byte{[]byte("x"), good, nil}, ParallelConfig{
		MaxWorkers:       8,
		ProgressCallback: progress,
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int32(1), progress.started.Load())
	assert.Equal(t, int32(1), progress.completed.Load())
	assert.Equal(t, int32(2), progress.errs.Load())
	assert.Equal(t, []string{"PASSPORT"}, items[1].Result.Keywords)
}

func TestValidateBytesParallel_CanceledContext(t *testing.T) {
	p := newTestPipeline(t, ocr.NewStatic())
	good := testutil.PNG(t, testutil.Checkerboard(900, 600))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := p.ValidateBytesParallel(ctx, [][]byte{good, good, good}, ParallelConfig{MaxWorkers: 1})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i, item.Index)
		assert.Nil(t, item.Result)
		assert.Equal(t, ErrCodeCanceled, CodeOf(item.Err))
	}
}

func TestValidateBytesParallel_NilPipeline(t *testing.T) {
	var p *Pipeline
	_, err := p.ValidateBytesParallel(context.Background(), [][]byte{{1}}, ParallelConfig{})
	assert.Error(t, err)
}
