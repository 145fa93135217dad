// Package batch validates many document files on a worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/MeKo-Tech/idcheck/internal/scoring"
)

// ErrNoFiles is returned when discovery finds nothing to validate.
var ErrNoFiles = errors.New("no image or pdf files found")

// Entry is the outcome for one file. Exactly one of Result and Error is set.
type Entry struct {
	File   string           `json:"file" yaml:"file"`
	Result *pipeline.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
	Code   string           `json:"error_code,omitempty" yaml:"error_code,omitempty"`

	err error
}

// Err returns the validation error for the entry, if any.
func (e Entry) Err() error { return e.err }

// Summary counts the decisions of a batch.
type Summary struct {
	Total  int `json:"total" yaml:"total"`
	Accept int `json:"accept" yaml:"accept"`
	Review int `json:"review" yaml:"review"`
	Reject int `json:"reject" yaml:"reject"`
	Failed int `json:"failed" yaml:"failed"`
}

// Result holds the outcome of a batch run in discovery order.
type Result struct {
	Entries     []Entry
	Duration    time.Duration
	WorkerCount int
}

// Summary tallies decisions and failures.
func (r *Result) Summary() Summary {
	s := Summary{Total: len(r.Entries)}
	for _, e := range r.Entries {
		if e.Result == nil {
			s.Failed++
			continue
		}
		switch e.Result.Decision {
		case scoring.Accept:
			s.Accept++
		case scoring.Review:
			s.Review++
		default:
			s.Reject++
		}
	}
	return s
}

// ProcessBatch discovers documents under paths and validates them. Each
// worker builds its own pipeline. With ContinueOnError unset the first
// failing file aborts the run and its error is returned.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	files, err := discoverFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	workers := min(max(1, config.Workers), len(files))
	pipelines := make([]*pipeline.Pipeline, workers)
	build := config.factory()
	for i := range pipelines {
		if pipelines[i], err = build(); err != nil {
			return nil, fmt.Errorf("failed to build validation pipeline: %w", err)
		}
	}

	progress := config.progress()
	progress.OnStart(len(files))
	defer progress.OnComplete()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	entries := make([]Entry, len(files))
	jobs := make(chan int)

	var (
		mu       sync.Mutex
		done     int
		firstErr error
		wg       sync.WaitGroup
	)
	for _, pl := range pipelines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entry := validateFile(ctx, pl, files[i])

				mu.Lock()
				entries[i] = entry
				done++
				if entry.err != nil {
					progress.OnError(i, entry.err)
					if !config.ContinueOnError && firstErr == nil {
						firstErr = fmt.Errorf("%s: %w", files[i], entry.err)
						cancel()
					}
				}
				progress.OnProgress(done, len(files))
				mu.Unlock()
			}
		}()
	}

feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Entries: entries, Duration: time.Since(start), WorkerCount: workers}
	s := res.Summary()
	slog.Info("batch complete", "files", s.Total, "accept", s.Accept, "review", s.Review,
		"reject", s.Reject, "failed", s.Failed, "duration", res.Duration)
	return res, nil
}

func validateFile(ctx context.Context, pl *pipeline.Pipeline, path string) Entry {
	res, err := pl.ValidateFile(ctx, path)
	if err != nil {
		slog.Debug("document failed", "file", path, "error", err)
		return Entry{File: path, Error: err.Error(), Code: string(pipeline.CodeOf(err)), err: err}
	}
	return Entry{File: path, Result: res}
}

func (c *Config) progress() pipeline.ProgressCallback {
	switch {
	case c.Progress != nil:
		return c.Progress
	case c.ShowProgress && !c.Quiet:
		return pipeline.NewConsoleProgressCallback(os.Stderr, "Validating: ")
	default:
		return pipeline.NoOpProgressCallback{}
	}
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	_, err = io.WriteString(w, output)
	return err
}

// PrintStats writes processing statistics to w.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Summary()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total documents: %d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  Accept: %d  Review: %d  Reject: %d\n", s.Accept, s.Review, s.Reject)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if s.Total > 0 && r.Duration > 0 {
		_, _ = fmt.Fprintf(w, "  Throughput: %.1f docs/sec\n", float64(s.Total)/r.Duration.Seconds())
	}
}
