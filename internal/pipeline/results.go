package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToJSON serializes a Result to pretty JSON.
func ToJSON(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res.normalized(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToYAML serializes a Result to YAML.
func ToYAML(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := yaml.Marshal(res.normalized())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToText renders a short human-readable summary.
func ToText(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Decision:   %s\n", strings.ToUpper(string(res.Decision)))
	fmt.Fprintf(&sb, "Score:      %d/100\n", res.Score)
	fmt.Fprintf(&sb, "Sharpness:  %.2f\n", res.Sharpness)
	fmt.Fprintf(&sb, "Words:      %d (upper ratio %.2f)\n", res.OCRWordCount, res.UpperRatio)
	fmt.Fprintf(&sb, "Keywords:   %s\n", listOrDash(res.Keywords))
	if res.PANValue != nil {
		fmt.Fprintf(&sb, "Identifier: %s\n", *res.PANValue)
	} else {
		sb.WriteString("Identifier: -\n")
	}
	fmt.Fprintf(&sb, "Signals:    %s\n", listOrDash(res.Signals))
	fmt.Fprintf(&sb, "Penalties:  %s\n", listOrDash(res.Penalties))
	return sb.String(), nil
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// CSVHeader returns the column names used by CSVRecord.
func CSVHeader() []string {
	return []string{
		"decision", "score", "sharpness", "keywords", "pan_found", "pan_value",
		"signals", "penalties", "ocr_word_count", "upper_ratio",
	}
}

// CSVRecord flattens a Result into one CSV row. List fields are joined with "|".
func (r *Result) CSVRecord() []string {
	pan := ""
	if r.PANValue != nil {
		pan = *r.PANValue
	}
	return []string{
		string(r.Decision),
		strconv.Itoa(r.Score),
		strconv.FormatFloat(r.Sharpness, 'f', 3, 64),
		strings.Join(r.Keywords, "|"),
		strconv.FormatBool(r.PANFound),
		pan,
		strings.Join(r.Signals, "|"),
		strings.Join(r.Penalties, "|"),
		strconv.Itoa(r.OCRWordCount),
		strconv.FormatFloat(r.UpperRatio, 'f', 4, 64),
	}
}

// ToCSV exports results as CSV with a header row.
func ToCSV(results ...*Result) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader()); err != nil {
		return "", err
	}
	for i, r := range results {
		if r == nil {
			return "", fmt.Errorf("result %d is nil", i)
		}
		if err := w.Write(r.CSVRecord()); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// normalized returns a copy whose list fields are never nil, so they
// serialize as empty lists.
func (r *Result) normalized() *Result {
	c := *r
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	if c.Signals == nil {
		c.Signals = []string{}
	}
	if c.Penalties == nil {
		c.Penalties = []string{}
	}
	return &c
}

// MarshalJSON keeps list fields as [] rather than null.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	n := r.normalized()
	return json.Marshal((*plain)(n))
}
