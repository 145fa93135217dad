package pipeline

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ParallelConfig holds configuration for parallel validation.
type ParallelConfig struct {
	MaxWorkers       int              // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback // Optional progress reporting
}

// DefaultParallelConfig returns one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// Item is the outcome of validating one input of a parallel run. Exactly one
// of Result and Err is set.
type Item struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

type bytesJob struct {
	index int
	data  []byte
}

// ValidateBytesParallel validates several uploads on a worker pool and returns
// the outcomes in input order. A failing input does not stop the others.
func (p *Pipeline) ValidateBytesParallel(ctx context.Context, inputs [][]byte, config ParallelConfig) ([]Item, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no inputs provided")
	}
	if p == nil || p.extractor == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, len(inputs))

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(inputs))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan bytesJob)
	results := make(chan Item, len(inputs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := p.ValidateBytes(ctx, job.data)
				results <- Item{Index: job.index, Result: res, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, data := range inputs {
			select {
			case jobs <- bytesJob{index: i, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	items := make([]Item, len(inputs))
	seen := make([]bool, len(inputs))
	done := 0
	for item := range results {
		items[item.Index] = item
		seen[item.Index] = true
		done++
		if config.ProgressCallback != nil {
			if item.Err != nil {
				config.ProgressCallback.OnError(item.Index, item.Err)
			}
			config.ProgressCallback.OnProgress(done, len(inputs))
		}
	}

	if err := ctx.Err(); err != nil {
		for i := range items {
			if !seen[i] {
				items[i] = Item{Index: i, Err: fromContext(err)}
			}
		}
		return items, err
	}
	return items, nil
}
