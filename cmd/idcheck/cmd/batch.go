package cmd

import (
	"fmt"
	"slices"

	"github.com/MeKo-Tech/idcheck/internal/batch"
	"github.com/MeKo-Tech/idcheck/internal/config"
	"github.com/spf13/cobra"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [paths...]",
		Short: "Validate many document photos in parallel",
		Long: `Validate every image and PDF found under the given files and directories
using a pool of workers. Each worker owns its OCR engine.

Examples:
  idcheck batch uploads/
  idcheck batch uploads/ --workers 8 --format csv --output results.csv
  idcheck batch a.jpg b.png scans/ --no-recursive --stop-on-error
  idcheck batch uploads/ --include '*.jpg' --exclude 'thumb_*' --progress`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}

	cmd.Flags().StringP("format", "f", "text", "output format: text, json, csv, yaml")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	cmd.Flags().Bool("no-recursive", false, "do not descend into subdirectories")
	cmd.Flags().StringSlice("include", nil, "file patterns to include (default: all images and PDFs)")
	cmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")
	cmd.Flags().Bool("stop-on-error", false, "abort on the first document that cannot be validated")
	cmd.Flags().Bool("progress", false, "show progress on stderr")
	cmd.Flags().Bool("quiet", false, "suppress progress and statistics")
	cmd.Flags().Bool("stats", false, "print processing statistics after the results")
	return cmd
}

// configToBatchConfig maps the resolved configuration to batch.Config.
// Flags given on the command line win over the configuration file.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	bc.Pipeline = cfg.ToPipelineConfig()

	bc.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}

	bc.Recursive = cfg.Batch.Recursive
	if noRecursive, _ := cmd.Flags().GetBool("no-recursive"); noRecursive {
		bc.Recursive = false
	}

	bc.ContinueOnError = cfg.Batch.ContinueOnError
	if stop, _ := cmd.Flags().GetBool("stop-on-error"); stop {
		bc.ContinueOnError = false
	}

	bc.IncludePatterns = cfg.Batch.Include
	if cmd.Flags().Changed("include") {
		bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}
	bc.ExcludePatterns = cfg.Batch.Exclude
	if cmd.Flags().Changed("exclude") {
		bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	}

	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	return bc
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	bc := configToBatchConfig(cfg, cmd)

	format, _ := cmd.Flags().GetString("format")
	if !slices.Contains(config.OutputFormats, format) {
		return fmt.Errorf("unsupported format: %s", format)
	}
	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}

	result, err := batch.ProcessBatch(cmd.Context(), args, bc)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), format, outputFile); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if stats, _ := cmd.Flags().GetBool("stats"); stats && !bc.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}
