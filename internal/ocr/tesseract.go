package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// Tesseract runs the tesseract command line tool once per Extract call and
// parses its TSV output.
type Tesseract struct {
	cfg Config
}

// NewTesseract returns an engine that shells out to cfg.Binary.
func NewTesseract(cfg Config) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	return &Tesseract{cfg: cfg}
}

func (t *Tesseract) args() []string {
	args := []string{"stdin", "stdout"}
	if t.cfg.Language != "" {
		args = append(args, "-l", t.cfg.Language)
	}
	args = append(args, "--psm", strconv.Itoa(t.cfg.PageSegMode))
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return append(args, "tsv")
}

// Extract implements TextExtractor.
func (t *Tesseract) Extract(ctx context.Context, img image.Image) ([]Token, error) {
	data, err := utils.EncodePNG(img)
	if err != nil {
		return nil, &EngineError{Engine: EngineTesseract, Err: err}
	}

	cmd := exec.CommandContext(ctx, t.cfg.Binary, t.args()...) //nolint:gosec // binary comes from operator configuration
	cmd.Stdin = bytes.NewReader(data)
	// One thread per process; concurrency comes from running several processes.
	cmd.Env = append(os.Environ(), "OMP_THREAD_LIMIT=1")
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &EngineError{Engine: EngineTesseract, Err: ctxErr}
		}
		msg := strings.TrimSpace(stderr.String())
		return nil, &EngineError{Engine: EngineTesseract, Err: fmt.Errorf("%w: %s", err, msg)}
	}

	words, err := ParseTSV(&stdout)
	if err != nil {
		return nil, &EngineError{Engine: EngineTesseract, Err: err}
	}
	tokens := Clean(words)
	slog.Debug("tesseract finished", "words", len(words), "tokens", len(tokens))
	return tokens, nil
}
