package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/MeKo-Tech/idcheck/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *Result {
	pan := "ABCDE1234F"
	return &Result{
		Decision:     scoring.Accept,
		Score:        79,
		Sharpness:    812.5,
		Keywords:     []string{"INCOME", "TAX"},
		PANFound:     true,
		PANValue:     &pan,
		Signals:      []string{"sharp", "keywords", "pan_pattern"},
		Penalties:    []string{},
		OCRWordCount: 25,
		UpperRatio:   0.16,
	}
}

func TestResultJSON_ExactKeys(t *testing.T) {
	b, err := json.Marshal(sampleResult())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"decision", "keywords", "ocr_word_count", "pan_found", "pan_value",
		"penalties", "score", "sharpness", "signals", "upper_ratio",
	}, keys)
	assert.Equal(t, "accept", m["decision"])
	assert.Equal(t, "ABCDE1234F", m["pan_value"])
}

func TestResultJSON_EmptyListsAndNullPAN(t *testing.T) {
	res := &Result{Decision: scoring.Reject}
	b, err := json.Marshal(res)
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"keywords":[]`)
	assert.Contains(t, s, `"signals":[]`)
	assert.Contains(t, s, `"penalties":[]`)
	assert.Contains(t, s, `"pan_value":null`)

	pretty, err := ToJSON(res)
	require.NoError(t, err)
	assert.Contains(t, pretty, `"keywords": []`)

	_, err = ToJSON(nil)
	assert.Error(t, err)
}

func TestToYAML(t *testing.T) {
	out, err := ToYAML(sampleResult())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &m))
	assert.Equal(t, "accept", m["decision"])
	assert.Equal(t, 79, m["score"])
	assert.Equal(t, []any{"INCOME", "TAX"}, m["keywords"])
}

func TestToText(t *testing.T) {
	out, err := ToText(sampleResult())
	require.NoError(t, err)
	assert.Contains(t, out, "Decision:   ACCEPT")
	assert.Contains(t, out, "Score:      79/100")
	assert.Contains(t, out, "Identifier: ABCDE1234F")
	assert.Contains(t, out, "Penalties:  -")

	out, err = ToText(&Result{Decision: scoring.Reject})
	require.NoError(t, err)
	assert.Contains(t, out, "Identifier: -")
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV(sampleResult(), &Result{Decision: scoring.Review, Score: 40})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader(), rows[0])
	assert.Equal(t, "accept", rows[1][0])
	assert.Equal(t, "INCOME|TAX", rows[1][3])
	assert.Equal(t, "ABCDE1234F", rows[1][5])
	assert.Equal(t, "review", rows[2][0])
	assert.Equal(t, "", rows[2][5])

	_, err = ToCSV(nil)
	assert.Error(t, err)
}
