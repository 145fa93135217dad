package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"gopkg.in/yaml.v3"
)

type report struct {
	Summary   Summary `json:"summary" yaml:"summary"`
	Documents []Entry `json:"documents" yaml:"documents"`
}

// FormatResults renders the batch as json, yaml, csv or text (the default).
func (r *Result) FormatResults(format string) (string, error) {
	switch format {
	case "json":
		return r.formatJSON()
	case "yaml":
		return r.formatYAML()
	case "csv":
		return r.formatCSV()
	case "", "text":
		return r.formatText()
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func (r *Result) report() report {
	docs := r.Entries
	if docs == nil {
		docs = []Entry{}
	}
	return report{Summary: r.Summary(), Documents: docs}
}

func (r *Result) formatJSON() (string, error) {
	b, err := json.MarshalIndent(r.report(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func (r *Result) formatYAML() (string, error) {
	b, err := yaml.Marshal(r.report())
	return string(b), err
}

func (r *Result) formatCSV() (string, error) {
	var out strings.Builder
	w := csv.NewWriter(&out)

	header := append([]string{"file"}, pipeline.CSVHeader()...)
	header = append(header, "error")
	if err := w.Write(header); err != nil {
		return "", err
	}
	blank := make([]string, len(pipeline.CSVHeader()))
	for _, e := range r.Entries {
		row := []string{e.File}
		if e.Result != nil {
			row = append(row, e.Result.CSVRecord()...)
		} else {
			row = append(row, blank...)
		}
		row = append(row, e.Error)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return out.String(), w.Error()
}

func (r *Result) formatText() (string, error) {
	var out strings.Builder
	for i, e := range r.Entries {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "# %s\n", e.File)
		if e.Result == nil {
			fmt.Fprintf(&out, "Error:      %s\n", e.Error)
			continue
		}
		text, err := pipeline.ToText(e.Result)
		if err != nil {
			return "", err
		}
		out.WriteString(text)
	}
	s := r.Summary()
	fmt.Fprintf(&out, "\n%d documents: %d accept, %d review, %d reject, %d failed\n",
		s.Total, s.Accept, s.Review, s.Reject, s.Failed)
	return out.String(), nil
}
