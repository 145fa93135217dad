package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHandler(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ID Validator API running"}`, rec.Body.String())

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	// The validator is never consulted.
	s := NewServer(stubValidator{err: errors.New("down")}, DefaultConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInfoHandler(t *testing.T) {
	rec := serve(newTestServer(t), httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.EqualValues(t, 43, info["accept_at"])
}

func TestValidateHandler_Success(t *testing.T) {
	s := newTestServer(t, "INCOME", "TAX", "DEPARTMENT", "ABCDE1234F")

	for _, path := range []string{"/validate", "/validate/"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(s, multipartRequest(t, path, upload{"file", "card.png", samplePNG(t)}))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Len(t, body, 10)
			assert.Equal(t, "accept", body["decision"])
			assert.Equal(t, "ABCDE1234F", body["pan_value"])
			assert.Equal(t, true, body["pan_found"])
		})
	}
}

func TestValidateHandler_ImageFieldFallback(t *testing.T) {
	s := newTestServer(t, "PASSPORT")
	rec := serve(s, multipartRequest(t, "/validate", upload{"image", "card.png", samplePNG(t)}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"keywords":["PASSPORT"]`)
}

func TestValidateHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		server *Server
		req    func(t *testing.T) *http.Request
		status int
		kind   string
	}{
		{
			name:   "undecodable upload",
			server: newTestServer(t),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/validate", upload{"file", "x.png", []byte("garbage")})
			},
			status: http.StatusBadRequest,
			kind:   "decode_error",
		},
		{
			name:   "ocr failure",
			server: NewServer(stubValidator{err: pipeline.NewOCRError(&ocr.EngineError{Engine: "tesseract", Err: errors.New("crash")})}, DefaultConfig()),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/validate", upload{"file", "x.png", samplePNG(t)})
			},
			status: http.StatusBadGateway,
			kind:   "ocr_error",
		},
		{
			name:   "timeout",
			server: NewServer(stubValidator{err: pipeline.NewTimeoutError(errors.New("deadline"))}, DefaultConfig()),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/validate", upload{"file", "x.png", samplePNG(t)})
			},
			status: http.StatusGatewayTimeout,
			kind:   "timeout",
		},
		{
			name:   "missing file",
			server: newTestServer(t),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/validate", upload{"other", "x.png", samplePNG(t)})
			},
			status: http.StatusBadRequest,
			kind:   "missing_file",
		},
		{
			name:   "not multipart",
			server: newTestServer(t),
			req: func(*testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader("{}"))
			},
			status: http.StatusBadRequest,
			kind:   "invalid_request",
		},
		{
			name:   "wrong method",
			server: newTestServer(t),
			req: func(*testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/validate", nil)
			},
			status: http.StatusMethodNotAllowed,
			kind:   "method_not_allowed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt.server, tt.req(t))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Error)
			assert.Equal(t, rec.Header().Get(RequestIDHeader), resp.RequestID)
		})
	}
}

type slowExtractor struct{}

func (slowExtractor) Extract(ctx context.Context, _ image.Image) ([]ocr.Token, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestValidateHandler_ServerTimeout(t *testing.T) {
	p, err := pipeline.NewBuilder().WithExtractor(slowExtractor{}).Build()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	s := NewServer(p, cfg)

	rec := serve(s, multipartRequest(t, "/validate", upload{"file", "x.png", samplePNG(t)}))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"timeout"`)
}

func TestValidateHandler_UploadTooLarge(t *testing.T) {
	p, err := pipeline.NewBuilder().WithExtractor(ocr.NewStatic()).Build()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.MaxUploadMB = 1
	s := NewServer(p, cfg)

	big := make([]byte, 2*1024*1024)
	rec := serve(s, multipartRequest(t, "/validate", upload{"file", "big.png", big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "file_too_large")
}

func TestBatchHandler(t *testing.T) {
	s := newTestServer(t, "VOTER", "IDENTITY", "CARD")
	req := multipartRequest(t, "/validate/batch",
		upload{"files", "a.png", samplePNG(t)},
		upload{"files", "b.png", []byte("junk")},
		upload{"files", "c.png", samplePNG(t)},
	)
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "b.png", resp.Results[1].Filename)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, "decode_error", resp.Results[1].Error.Error)
	require.NotNil(t, resp.Results[0].Result)
	assert.Equal(t, []string{"CARD", "VOTER", "IDENTITY"}, resp.Results[0].Result.Keywords)
	assert.Equal(t, 3, resp.Summary["total"])
	assert.Equal(t, 1, resp.Summary["failed"])
	assert.Equal(t, 2, resp.Summary["accept"])
}

func TestBatchHandler_TooManyFiles(t *testing.T) {
	p, err := pipeline.NewBuilder().WithExtractor(ocr.NewStatic()).Build()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.MaxBatchFiles = 2
	s := NewServer(p, cfg)

	files := make([]upload, 3)
	for i := range files {
		files[i] = upload{"files", fmt.Sprintf("%d.png", i), []byte("x")}
	}
	rec := serve(s, multipartRequest(t, "/validate/batch", files...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = serve(s, multipartRequest(t, "/validate/batch"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "INDIA")
	serve(s, multipartRequest(t, "/validate", upload{"file", "a.png", samplePNG(t)}))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "idcheck_validations_total")
	assert.Contains(t, rec.Body.String(), "idcheck_http_requests_total")
}
