package server

import (
	"context"
	"net/http"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validator is the part of the validation pipeline the server needs.
type Validator interface {
	ValidateBytes(ctx context.Context, data []byte) (*pipeline.Result, error)
	ValidateBytesParallel(ctx context.Context, inputs [][]byte, cfg pipeline.ParallelConfig) ([]pipeline.Item, error)
	Info() map[string]any
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	validator     Validator
	corsOrigin    string
	maxUploadMB   int64
	timeout       time.Duration
	maxBatchFiles int
	workers       int
	rateLimiter   *RateLimiter
}

// Config holds server configuration.
type Config struct {
	CORSOrigin  string
	MaxUploadMB int64
	Timeout     time.Duration
	// MaxBatchFiles caps the uploads accepted by /validate/batch.
	MaxBatchFiles int
	Workers       int
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter *RateLimiter
}

// DefaultConfig mirrors the config package defaults.
func DefaultConfig() Config {
	return Config{
		CORSOrigin:    "*",
		MaxUploadMB:   20,
		Timeout:       30 * time.Second,
		MaxBatchFiles: 20,
		Workers:       4,
	}
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// StatusResponse is returned by /.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// BatchItem is one entry of a /validate/batch response.
type BatchItem struct {
	Index    int              `json:"index"`
	Filename string           `json:"filename"`
	Result   *pipeline.Result `json:"result,omitempty"`
	Error    *ErrorResponse   `json:"error,omitempty"`
}

// BatchResponse is returned by /validate/batch.
type BatchResponse struct {
	Results []BatchItem    `json:"results"`
	Summary map[string]int `json:"summary"`
}

// NewServer creates a server around v.
func NewServer(v Validator, config Config) *Server {
	d := DefaultConfig()
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = d.MaxUploadMB
	}
	if config.Timeout <= 0 {
		config.Timeout = d.Timeout
	}
	if config.MaxBatchFiles <= 0 {
		config.MaxBatchFiles = d.MaxBatchFiles
	}
	if config.Workers <= 0 {
		config.Workers = d.Workers
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = d.CORSOrigin
	}
	return &Server{
		validator:     v,
		corsOrigin:    config.CORSOrigin,
		maxUploadMB:   config.MaxUploadMB,
		timeout:       config.Timeout,
		maxBatchFiles: config.MaxBatchFiles,
		workers:       config.Workers,
		rateLimiter:   config.RateLimiter,
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.corsMiddleware(s.rootHandler))
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/info", s.corsMiddleware(s.infoHandler))
	mux.HandleFunc("/validate", s.corsMiddleware(s.rateLimitMiddleware(s.validateHandler)))
	mux.HandleFunc("/validate/", s.corsMiddleware(s.rateLimitMiddleware(s.validateHandler)))
	mux.HandleFunc("/validate/batch", s.corsMiddleware(s.rateLimitMiddleware(s.batchHandler)))
	mux.HandleFunc("/ws/validate", s.rateLimitMiddleware(s.validateWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return requestIDMiddleware(mux)
}

// RateLimiter returns the limiter guarding the validation endpoints, or nil.
func (s *Server) RateLimiter() *RateLimiter {
	return s.rateLimiter
}
