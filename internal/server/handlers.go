package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/MeKo-Tech/idcheck/internal/scoring"
	"github.com/MeKo-Tech/idcheck/internal/version"
)

// Upload form fields, in order of preference.
var uploadFields = []string{"file", "image"}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", RequestID: RequestID(r.Context())})
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ID Validator API running"})
}

// healthHandler reports liveness without touching the validator.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.validator.Info())
}

// validateHandler validates one uploaded document and returns the Result.
func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/validate" && r.URL.Path != "/validate/" {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", RequestID: RequestID(r.Context())})
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}

	form, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	data, err := readUpload(form, uploadFields...)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "missing_file", Message: err.Error(), RequestID: RequestID(r.Context()),
		})
		return
	}
	uploadSizeBytes.Observe(float64(len(data)))

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.validator.ValidateBytes(ctx, data)
	validationDuration.WithLabelValues("http").Observe(time.Since(start).Seconds())
	if err != nil {
		s.writeValidationError(w, r, "http", err)
		return
	}
	recordResult("http", res)
	slog.Info("document validated", "request_id", RequestID(r.Context()),
		"decision", res.Decision, "score", res.Score, "bytes", len(data))
	writeJSON(w, http.StatusOK, res)
}

// batchHandler validates every file uploaded under "files" (or "file").
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	form, ok := s.parseUpload(w, r)
	if !ok {
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "missing_file", Message: "no files uploaded", RequestID: RequestID(r.Context()),
		})
		return
	}
	if len(headers) > s.maxBatchFiles {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:     "too_many_files",
			Message:   fmt.Sprintf("%d files uploaded, at most %d allowed", len(headers), s.maxBatchFiles),
			RequestID: RequestID(r.Context()),
		})
		return
	}

	inputs := make([][]byte, len(headers))
	for i, h := range headers {
		data, err := readFileHeader(h)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "invalid_request", Message: err.Error(), RequestID: RequestID(r.Context()),
			})
			return
		}
		uploadSizeBytes.Observe(float64(len(data)))
		inputs[i] = data
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	items, err := s.validator.ValidateBytesParallel(ctx, inputs, pipeline.ParallelConfig{MaxWorkers: s.workers})
	validationDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())
	if err != nil && len(items) == 0 {
		s.writeValidationError(w, r, "batch", err)
		return
	}

	resp := BatchResponse{
		Results: make([]BatchItem, len(items)),
		Summary: map[string]int{
			"total":                len(items),
			string(scoring.Accept): 0,
			string(scoring.Review): 0,
			string(scoring.Reject): 0,
			"failed":               0,
		},
	}
	for i, item := range items {
		bi := BatchItem{Index: item.Index, Filename: headers[item.Index].Filename}
		if item.Err != nil {
			_, kind := statusFor(item.Err)
			validationErrorsTotal.WithLabelValues("batch", kind).Inc()
			bi.Error = &ErrorResponse{Error: kind, Message: item.Err.Error()}
			resp.Summary["failed"]++
		} else {
			recordResult("batch", item.Result)
			bi.Result = item.Result
			resp.Summary[string(item.Result.Decision)]++
		}
		resp.Results[i] = bi
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseUpload parses a size-limited multipart body and writes the error
// response itself when that fails.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:     "file_too_large",
				Message:   fmt.Sprintf("upload exceeds %d MB", s.maxUploadMB),
				RequestID: RequestID(r.Context()),
			})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid_request", Message: "expected multipart/form-data upload", RequestID: RequestID(r.Context()),
		})
		return nil, false
	}
	return r.MultipartForm, true
}

func readUpload(form *multipart.Form, fields ...string) ([]byte, error) {
	for _, field := range fields {
		if headers := form.File[field]; len(headers) > 0 {
			return readFileHeader(headers[0])
		}
	}
	return nil, fmt.Errorf("no file provided in form field %q", fields[0])
}

func readFileHeader(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", h.Filename, err)
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// statusFor maps a validation error to an HTTP status and error kind.
func statusFor(err error) (int, string) {
	switch pipeline.CodeOf(err) {
	case pipeline.ErrCodeDecode:
		return http.StatusBadRequest, "decode_error"
	case pipeline.ErrCodeOCR:
		return http.StatusBadGateway, "ocr_error"
	case pipeline.ErrCodeTimeout:
		return http.StatusGatewayTimeout, "timeout"
	case pipeline.ErrCodeCanceled:
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeValidationError(w http.ResponseWriter, r *http.Request, source string, err error) {
	status, kind := statusFor(err)
	validationErrorsTotal.WithLabelValues(source, kind).Inc()
	slog.Warn("validation failed", "request_id", RequestID(r.Context()), "error", err, "status", status)
	writeJSON(w, status, ErrorResponse{Error: kind, Message: err.Error(), RequestID: RequestID(r.Context())})
}

func recordResult(source string, res *pipeline.Result) {
	if res == nil {
		return
	}
	validationsTotal.WithLabelValues(source, string(res.Decision)).Inc()
	validationScore.Observe(float64(res.Score))
	validationSharpness.Observe(res.Sharpness)
	ocrWordCount.Observe(float64(res.OCRWordCount))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error: "method_not_allowed", Message: r.Method + " not allowed", RequestID: RequestID(r.Context()),
	})
}
