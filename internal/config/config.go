package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// Config represents the complete configuration for the idcheck application.
// It covers every command (validate, batch, serve) and is loaded from
// configuration files, environment variables and command-line flags.
// Scoring rules are compiled in and deliberately absent here.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	OCR    ocr.Config   `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Image  ImageConfig  `mapstructure:"image" yaml:"image" json:"image"`
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
	Batch  BatchConfig  `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// ImageConfig limits the images accepted by the decoder.
type ImageConfig struct {
	MaxWidth  int `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	MaxHeight int `mapstructure:"max_height" yaml:"max_height" json:"max_height"`
	MaxPixels int `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include,omitempty" json:"include,omitempty"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude,omitempty" json:"exclude,omitempty"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// Output formats understood by the validate and batch commands.
var OutputFormats = []string{"json", "text", "csv", "yaml"}

var logLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	constraints := utils.DefaultImageConstraints()
	return Config{
		LogLevel: "info",
		OCR:      ocr.DefaultConfig(),
		Image: ImageConfig{
			MaxWidth:  constraints.MaxWidth,
			MaxHeight: constraints.MaxHeight,
			MaxPixels: constraints.MaxPixels,
		},
		Output: OutputConfig{Format: "json"},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDayMB:   1024,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			Recursive:       true,
			ContinueOnError: true,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(logLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(OutputFormats, ", "))
	}
	if err := c.OCR.Validate(); err != nil {
		return err
	}
	if c.Image.MaxWidth < 0 || c.Image.MaxHeight < 0 || c.Image.MaxPixels < 0 {
		return fmt.Errorf("image limits must not be negative")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// ImageConstraints converts the image limits for the decoder.
func (c *Config) ImageConstraints() utils.ImageConstraints {
	constraints := utils.DefaultImageConstraints()
	constraints.MaxWidth = c.Image.MaxWidth
	constraints.MaxHeight = c.Image.MaxHeight
	constraints.MaxPixels = c.Image.MaxPixels
	return constraints
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.OCR = c.OCR
	cfg.Constraints = c.ImageConstraints()
	if c.Batch.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Batch.Workers
	}
	return cfg
}

// RequestTimeout returns the server's per-request validation budget.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSec) * time.Second
}
