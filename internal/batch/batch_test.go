package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func staticFactory(words ...string) PipelineFactory {
	return func() (*pipeline.Pipeline, error) {
		return pipeline.NewBuilder().WithExtractor(ocr.NewStatic(words...)).Build()
	}
}

// writeDocs creates three decodable documents and one corrupt file.
func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sharp := testutil.PNG(t, testutil.Checkerboard(900, 600))
	testutil.WriteFile(t, dir, "01.png", sharp)
	testutil.WriteFile(t, dir, "02.png", sharp)
	testutil.WriteFile(t, dir, "03.jpg", []byte("not a jpeg"))
	testutil.WriteFile(t, dir, "04.png", sharp)
	return dir
}

func testConfig(words ...string) *Config {
	cfg := DefaultConfig()
	cfg.Workers = 3
	cfg.NewPipeline = staticFactory(words...)
	return cfg
}

func TestProcessBatch_ContinueOnError(t *testing.T) {
	dir := writeDocs(t)
	res, err := ProcessBatch(context.Background(), []string{dir}, testConfig("INCOME", "TAX", "ABCDE1234F"))
	require.NoError(t, err)
	require.Len(t, res.Entries, 4)
	assert.Equal(t, 3, res.WorkerCount)

	for i, name := range []string{"01.png", "02.png", "03.jpg", "04.png"} {
		assert.Equal(t, name, filepath.Base(res.Entries[i].File))
	}

	bad := res.Entries[2]
	assert.Nil(t, bad.Result)
	assert.Equal(t, string(pipeline.ErrCodeDecode), bad.Code)
	assert.Error(t, bad.Err())

	good := res.Entries[0]
	require.NotNil(t, good.Result)
	// sharp + two keywords + identifier + mostly upper
	assert.Equal(t, 15+16+25+10, good.Result.Score)

	assert.Equal(t, Summary{Total: 4, Accept: 3, Failed: 1}, res.Summary())
}

func TestProcessBatch_StopOnError(t *testing.T) {
	dir := writeDocs(t)
	cfg := testConfig()
	cfg.ContinueOnError = false
	cfg.Workers = 1

	_, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "03.jpg")
	assert.Equal(t, pipeline.ErrCodeDecode, pipeline.CodeOf(err))
}

func TestProcessBatch_NoFiles(t *testing.T) {
	_, err := ProcessBatch(context.Background(), []string{t.TempDir()}, testConfig())
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestProcessBatch_FactoryFailure(t *testing.T) {
	dir := writeDocs(t)
	cfg := DefaultConfig()
	cfg.Pipeline.OCR.Engine = "unknown"

	_, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	assert.ErrorContains(t, err, "failed to build validation pipeline")
}

func TestProcessBatch_Canceled(t *testing.T) {
	dir := writeDocs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProcessBatch(ctx, []string{dir}, testConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessBatch_Progress(t *testing.T) {
	dir := writeDocs(t)
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.Progress = pipeline.NewConsoleProgressCallback(&buf, "")

	_, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "4/4")
	assert.Contains(t, buf.String(), "(1 failed)")
}

func batchResult(t *testing.T) *Result {
	t.Helper()
	res, err := ProcessBatch(context.Background(), []string{writeDocs(t)}, testConfig("PASSPORT"))
	require.NoError(t, err)
	return res
}

func TestFormatResults_JSON(t *testing.T) {
	out, err := batchResult(t).FormatResults("json")
	require.NoError(t, err)

	var doc struct {
		Summary   Summary          `json:"summary"`
		Documents []map[string]any `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 4, doc.Summary.Total)
	require.Len(t, doc.Documents, 4)
	assert.Contains(t, doc.Documents[0], "result")
	assert.NotContains(t, doc.Documents[0], "error")
	assert.Equal(t, "DECODE_FAILED", doc.Documents[2]["error_code"])

	result := doc.Documents[0]["result"].(map[string]any)
	assert.Equal(t, []any{"PASSPORT"}, result["keywords"])
	assert.Nil(t, result["pan_value"])
}

func TestFormatResults_YAML(t *testing.T) {
	out, err := batchResult(t).FormatResults("yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	summary := doc["summary"].(map[string]any)
	assert.Equal(t, 1, summary["failed"])
}

func TestFormatResults_CSV(t *testing.T) {
	out, err := batchResult(t).FormatResults("csv")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "file", rows[0][0])
	assert.Equal(t, "error", rows[0][len(rows[0])-1])
	assert.Equal(t, "PASSPORT", rows[1][4])
	assert.Empty(t, rows[3][1])
	assert.NotEmpty(t, rows[3][len(rows[3])-1])
}

func TestFormatResults_Text(t *testing.T) {
	out, err := batchResult(t).FormatResults("text")
	require.NoError(t, err)
	assert.Contains(t, out, "01.png")
	assert.Contains(t, out, "Keywords:   PASSPORT")
	assert.Contains(t, out, "Error:      ")
	assert.Contains(t, out, "4 documents:")

	_, err = batchResult(t).FormatResults("xml")
	assert.Error(t, err)
}

func TestSaveResultsAndStats(t *testing.T) {
	res := batchResult(t)
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, res.SaveResults(nil, "json", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"summary"`)

	var buf bytes.Buffer
	require.NoError(t, res.SaveResults(&buf, "text", ""))
	assert.Contains(t, buf.String(), "# ")

	buf.Reset()
	res.PrintStats(&buf)
	assert.Contains(t, buf.String(), "Total documents: 4")
	assert.Contains(t, buf.String(), "Failed: 1")
}
