package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/MeKo-Tech/idcheck/internal/server"
	"github.com/cucumber/godog"
)

// RegisterServerSteps registers steps that exercise the HTTP API.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the validation server is running$`, testCtx.theValidationServerIsRunning)
	sc.Step(`^the validation server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theValidationServerIsRunningWithLimit)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^I upload the files "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTheFilesTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be set$`, testCtx.theResponseHeaderShouldBeSet)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
}

func (testCtx *TestContext) theValidationServerIsRunning() error {
	return testCtx.startServer(nil)
}

func (testCtx *TestContext) theValidationServerIsRunningWithLimit(perMinute int) error {
	return testCtx.startServer(server.NewRateLimiter(perMinute, 0, 0, 0))
}

// startServer serves the API over httptest with the replay OCR engine.
func (testCtx *TestContext) startServer(rl *server.RateLimiter) error {
	if testCtx.ReplayFile == "" {
		return errors.New(`no OCR output recorded; add a "the OCR engine reads" step first`)
	}
	ocrCfg := ocr.DefaultConfig()
	ocrCfg.Engine = ocr.EngineReplay
	ocrCfg.ReplayFile = testCtx.ReplayFile

	p, err := pipeline.NewBuilder().WithOCRConfig(ocrCfg).Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	cfg := server.DefaultConfig()
	cfg.RateLimiter = rl
	testCtx.HTTPServer = httptest.NewServer(server.NewServer(p, cfg).Handler())
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	return testCtx.do(http.MethodGet, path, nil, "")
}

func (testCtx *TestContext) iUploadTo(name, path string) error {
	return testCtx.upload(path, "file", []string{name})
}

func (testCtx *TestContext) iUploadTheFilesTo(names, path string) error {
	var files []string
	for n := range strings.SplitSeq(names, ",") {
		files = append(files, strings.TrimSpace(n))
	}
	return testCtx.upload(path, "files", files)
}

func (testCtx *TestContext) upload(path, field string, names []string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range names {
		data, err := os.ReadFile(testCtx.path(name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		part, err := mw.CreateFormFile(field, filepath.Base(name))
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return testCtx.do(http.MethodPost, path, &body, mw.FormDataContentType())
}

func (testCtx *TestContext) do(method, path string, body io.Reader, contentType string) error {
	if testCtx.HTTPServer == nil {
		return errors.New("server is not running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, testCtx.HTTPServer.URL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := testCtx.HTTPServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return fmt.Errorf("response is not a JSON object: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	return checkField(data, field, expected)
}

func (testCtx *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)] == "" {
		return fmt.Errorf("response header %s is not set", name)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}
