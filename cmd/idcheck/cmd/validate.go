package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/batch"
	"github.com/MeKo-Tech/idcheck/internal/config"
	"github.com/MeKo-Tech/idcheck/internal/pipeline"
	"github.com/spf13/cobra"
)

// errSomeFailed is returned when at least one document could not be validated.
// The per-file errors have already been written with the results.
var errSomeFailed = errors.New("one or more documents could not be validated")

func newValidateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Validate one or more ID document photos",
		Long: `Validate ID document photos and print a decision for each.

A single file prints its result on its own. Several files print a list with a
summary. Use "-" to read one document from stdin. PDFs are validated on the
largest image of their first page.

Supported formats: JPEG, PNG, BMP, TIFF, WebP, PDF

Examples:
  idcheck validate card.jpg
  idcheck validate card.jpg --format text
  idcheck validate front.png back.png --format csv --output results.csv
  cat card.jpg | idcheck validate -
  idcheck validate card.jpg --report`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, args)
		},
	}

	cmd.Flags().StringP("format", "f", "json", "output format: json, text, csv, yaml")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Duration("timeout", 0, "per-document time limit (0 = none)")
	cmd.Flags().Bool("report", false, "print the full JSON report with OCR tokens and quality details (single file)")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, args []string) error {
	cfg := a.cfg

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if !slices.Contains(config.OutputFormats, format) {
		return fmt.Errorf("unsupported format: %s", format)
	}
	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	report, _ := cmd.Flags().GetBool("report")
	if report && len(args) != 1 {
		return errors.New("--report takes exactly one file")
	}

	p, err := a.newPipeline()
	if err != nil {
		return err
	}

	if report {
		return a.writeReport(cmd, p, args[0], timeout, outputFile)
	}

	start := time.Now()
	entries := make([]batch.Entry, 0, len(args))
	failed := false
	for _, path := range args {
		rep, err := processPath(cmd.Context(), cmd.InOrStdin(), p, path, timeout)
		if err != nil {
			failed = true
			slog.Debug("document failed", "file", path, "error", err)
			entries = append(entries, batch.Entry{File: path, Error: err.Error(), Code: string(pipeline.CodeOf(err))})
			continue
		}
		entries = append(entries, batch.Entry{File: path, Result: rep.Result})
	}

	var output string
	if len(entries) == 1 {
		if entries[0].Result == nil {
			return fmt.Errorf("%s: %s", entries[0].File, entries[0].Error)
		}
		output, err = formatResult(entries[0].Result, format)
	} else {
		res := &batch.Result{Entries: entries, Duration: time.Since(start), WorkerCount: 1}
		output, err = res.FormatResults(format)
	}
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), outputFile, output); err != nil {
		return err
	}
	if failed {
		return errSomeFailed
	}
	return nil
}

func (a *app) writeReport(cmd *cobra.Command, p *pipeline.Pipeline, path string, timeout time.Duration, outputFile string) error {
	rep, err := processPath(cmd.Context(), cmd.InOrStdin(), p, path, timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFile, string(b)+"\n")
}

// processPath validates one file, or stdin when path is "-".
func processPath(ctx context.Context, stdin io.Reader, p *pipeline.Pipeline, path string, timeout time.Duration) (*pipeline.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return p.ProcessBytes(ctx, data)
	}
	return p.ProcessFile(ctx, path)
}

func formatResult(res *pipeline.Result, format string) (string, error) {
	var (
		out string
		err error
	)
	switch format {
	case "text":
		out, err = pipeline.ToText(res)
	case "csv":
		out, err = pipeline.ToCSV(res)
	case "yaml":
		out, err = pipeline.ToYAML(res)
	default:
		out, err = pipeline.ToJSON(res)
	}
	if err != nil {
		return "", err
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out += "\n"
	}
	return out, nil
}

func writeOutput(w io.Writer, outputFile, output string) error {
	if outputFile == "" {
		_, err := io.WriteString(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// newPipeline builds a validation pipeline from the resolved configuration.
func (a *app) newPipeline() (*pipeline.Pipeline, error) {
	pc := a.cfg.ToPipelineConfig()
	p, err := pipeline.NewBuilder().
		WithRules(pc.Rules).
		WithOCRConfig(pc.OCR).
		WithImageConstraints(pc.Constraints).
		WithParallelWorkers(pc.Parallel.MaxWorkers).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build validation pipeline: %w", err)
	}
	return p, nil
}
