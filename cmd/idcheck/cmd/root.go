package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/idcheck/internal/config"
	"github.com/MeKo-Tech/idcheck/internal/version"
	"github.com/spf13/cobra"
)

// app carries the state shared by one command tree: the configuration loader
// and the configuration it resolved before the command ran.
type app struct {
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds the idcheck command tree. Every call returns an
// independent tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewIsolatedLoader()}

	rootCmd := &cobra.Command{
		Use:   "idcheck",
		Short: "Screen ID document photos before manual KYC review",
		Long: `idcheck decides whether a photo of an identity document is good enough to
accept, needs a human look, or should be rejected. It measures sharpness,
reads the text with OCR and looks for document keywords and a PAN-style
identifier, then turns those signals into a 0-100 score.

Examples:
  idcheck validate card.jpg
  idcheck validate scan.pdf --format text
  idcheck batch uploads/ --workers 8 --format csv --output results.csv
  idcheck serve --port 8080`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loader.LoadWithFile(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			setupLogging(cmd.ErrOrStderr(), cfg)
			slog.Debug("configuration loaded", "file", a.loader.GetConfigFileUsed(), "ocr_engine", cfg.OCR.Engine)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate("idcheck {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/idcheck, /etc/idcheck)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("ocr-engine", "tesseract", "OCR engine: tesseract, gosseract or replay")
	flags.String("tesseract", "tesseract", "path to the tesseract binary")
	flags.String("lang", "eng", "tesseract language(s), e.g. eng or eng+hin")
	flags.Int("psm", 3, "tesseract page segmentation mode (0-13)")
	flags.String("tessdata-dir", "", "directory holding tesseract language data")
	flags.String("replay-file", "", "recorded tesseract TSV output for the replay engine")
	flags.Int("max-concurrent-ocr", 0, "maximum simultaneous OCR calls (0 = unlimited)")

	v := a.loader.GetViper()
	for key, flag := range map[string]string{
		"verbose":            "verbose",
		"log_level":          "log-level",
		"ocr.engine":         "ocr-engine",
		"ocr.binary":         "tesseract",
		"ocr.language":       "lang",
		"ocr.psm":            "psm",
		"ocr.tessdata_dir":   "tessdata-dir",
		"ocr.replay_file":    "replay-file",
		"ocr.max_concurrent": "max-concurrent-ocr",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newValidateCommand(a),
		newBatchCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
	)
	return rootCmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs a JSON slog handler. Logs go to stderr so that
// results written to stdout stay machine readable.
func setupLogging(w io.Writer, cfg *config.Config) {
	var level slog.Level
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
