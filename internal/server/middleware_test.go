package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CORSOrigin = "https://kyc.example.com"
	s := NewServer(stubValidator{}, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodOptions, "/validate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://kyc.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), RequestIDHeader)
}

func TestRequestIDMiddleware(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-1")
	rec = serve(s, req)
	assert.Equal(t, "client-supplied-1", rec.Header().Get(RequestIDHeader))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiter = NewRateLimiter(1, 0, 0, 0)
	s := NewServer(stubValidator{}, cfg)

	first := httptest.NewRequest(http.MethodPost, "/validate", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	rec := serve(s, first)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)

	second := httptest.NewRequest(http.MethodPost, "/validate", nil)
	second.RemoteAddr = "10.0.0.1:5001"
	rec = serve(s, second)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "minute", rec.Header().Get("X-RateLimit-Type"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)

	// Health checks are never limited.
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuotaMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiter = NewRateLimiter(0, 0, 0, 10)
	s := NewServer(stubValidator{}, cfg)

	req := multipartRequest(t, "/validate", upload{"file", "a.png", []byte("0123456789abcdef")})
	rec := serve(s, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "data", rec.Header().Get("X-Quota-Type"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:80", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:80", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.1:4431", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "/validate", endpointLabel("/validate/"))
	assert.Equal(t, "other", endpointLabel("/validate/../../etc/passwd"))
}
