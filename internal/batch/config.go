package batch

import "github.com/MeKo-Tech/idcheck/internal/pipeline"

// PipelineFactory builds one pipeline per worker. Every worker owns its OCR
// engine instance so that no engine is shared between goroutines.
type PipelineFactory func() (*pipeline.Pipeline, error)

// Config holds all configuration for batch validation.
type Config struct {
	Pipeline pipeline.Config
	// NewPipeline overrides how worker pipelines are built. Nil builds them
	// from Pipeline.
	NewPipeline PipelineFactory

	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress bool
	Quiet        bool
	Progress     pipeline.ProgressCallback
}

// DefaultConfig returns a recursive, four-worker batch that keeps going past
// undecodable files.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:        pipeline.DefaultConfig(),
		Workers:         4,
		ContinueOnError: true,
		Recursive:       true,
	}
}

func (c *Config) factory() PipelineFactory {
	if c.NewPipeline != nil {
		return c.NewPipeline
	}
	pc := c.Pipeline
	return func() (*pipeline.Pipeline, error) {
		return pipeline.NewBuilder().
			WithRules(pc.Rules).
			WithOCRConfig(pc.OCR).
			WithImageConstraints(pc.Constraints).
			Build()
	}
}
