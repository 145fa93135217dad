package ocr

import (
	"fmt"
	"strings"
)

// Engine names accepted by New.
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
	EngineReplay    = "replay"
)

// Config selects and tunes an OCR engine.
type Config struct {
	Engine      string `mapstructure:"engine" yaml:"engine" json:"engine"`
	Binary      string `mapstructure:"binary" yaml:"binary" json:"binary"`
	Language    string `mapstructure:"language" yaml:"language" json:"language"`
	PageSegMode int    `mapstructure:"psm" yaml:"psm" json:"psm"`
	TessdataDir string `mapstructure:"tessdata_dir" yaml:"tessdata_dir" json:"tessdata_dir"`
	ReplayFile  string `mapstructure:"replay_file" yaml:"replay_file" json:"replay_file"`
	// MaxConcurrent caps simultaneous Extract calls; 0 means unlimited.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent" json:"max_concurrent"`
}

// DefaultConfig runs the tesseract binary from PATH with English and automatic page segmentation.
func DefaultConfig() Config {
	return Config{
		Engine:      EngineTesseract,
		Binary:      "tesseract",
		Language:    "eng",
		PageSegMode: 3,
	}
}

// Validate checks the engine name and its required settings.
func (c Config) Validate() error {
	switch strings.ToLower(c.Engine) {
	case EngineTesseract:
		if c.Binary == "" {
			return fmt.Errorf("ocr binary must be set for engine %q", c.Engine)
		}
	case EngineGosseract:
	case EngineReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("ocr replay_file must be set for engine %q", c.Engine)
		}
	default:
		return fmt.Errorf("unknown ocr engine %q (valid: %s, %s, %s)",
			c.Engine, EngineTesseract, EngineGosseract, EngineReplay)
	}
	if c.PageSegMode < 0 || c.PageSegMode > 13 {
		return fmt.Errorf("psm must be in [0,13], got %d", c.PageSegMode)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must be >= 0, got %d", c.MaxConcurrent)
	}
	return nil
}

// New builds the configured engine, wrapped in Limit when MaxConcurrent is set.
func New(cfg Config) (TextExtractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		ext TextExtractor
		err error
	)
	switch strings.ToLower(cfg.Engine) {
	case EngineTesseract:
		ext = NewTesseract(cfg)
	case EngineGosseract:
		ext, err = newGosseract(cfg)
	case EngineReplay:
		ext, err = NewReplay(cfg.ReplayFile)
	}
	if err != nil {
		return nil, &EngineError{Engine: cfg.Engine, Err: err}
	}

	if cfg.MaxConcurrent > 0 {
		ext = Limit(ext, cfg.MaxConcurrent)
	}
	return ext, nil
}
