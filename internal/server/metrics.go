package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP transport
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_http_requests_total",
			Help: "HTTP requests served by the validator API",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idcheck_http_request_duration_seconds",
			Help:    "Wall time of HTTP requests including validation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Validation metrics
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_validations_total",
			Help: "Completed validations by decision",
		},
		[]string{"source", "decision"}, // source: http, batch, websocket
	)

	validationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_validation_errors_total",
			Help: "Failed validations by error kind",
		},
		[]string{"source", "error"},
	)

	validationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idcheck_validation_duration_seconds",
			Help:    "Validation duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	validationScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "idcheck_validation_score",
			Help:    "Distribution of validation scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	validationSharpness = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "idcheck_validation_sharpness",
			Help:    "Laplacian variance of validated images",
			Buckets: []float64{10, 20, 40, 80, 160, 320, 640, 1280, 2560},
		},
	)

	ocrWordCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "idcheck_ocr_word_count",
			Help:    "Number of OCR tokens per document",
			Buckets: []float64{0, 5, 10, 20, 40, 80, 160},
		},
	)

	// Rate limiting
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_rate_limit_hits_total",
			Help: "Requests rejected by the per-client limiter or quota",
		},
		[]string{"type"}, // minute, hour, requests, data
	)

	// Uploads
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "idcheck_upload_size_bytes",
			Help:    "Size of uploaded document files in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	// WebSocket
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "idcheck_websocket_active_connections",
			Help: "Open /ws/validate connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idcheck_websocket_messages_total",
			Help: "WebSocket messages by direction",
		},
		[]string{"direction"}, // sent, received
	)
)
