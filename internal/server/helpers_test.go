package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/stretchr/testify/require"
)

// stubValidator fails every request with err.
type stubValidator struct{ err error }

func (s stubValidator) ValidateBytes(context.Context, []byte) (*pipeline.Result, error) {
	return nil, s.err
}

func (s stubValidator) ValidateBytesParallel(_ context.Context, inputs [][]byte, _ pipeline.ParallelConfig) ([]pipeline.Item, error) {
	items := make([]pipeline.Item, len(inputs))
	for i := range items {
		items[i] = pipeline.Item{Index: i, Err: s.err}
	}
	return items, nil
}

func (stubValidator) Info() map[string]any { return map[string]any{"ocr_engine": "stub"} }

func newTestServer(t *testing.T, words ...string) *Server {
	t.Helper()
	p, err := pipeline.NewBuilder().WithExtractor(ocr.NewStatic(words...)).Build()
	require.NoError(t, err)
	return NewServer(p, DefaultConfig())
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	return testutil.PNG(t, testutil.Checkerboard(900, 600))
}

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
