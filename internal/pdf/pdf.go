// Package pdf pulls embedded raster images out of scanned PDF documents.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNoImages is returned when a page carries no decodable raster image.
var ErrNoImages = errors.New("pdf page contains no images")

// FirstPageImage returns the largest image embedded in the first page of the
// PDF held in data. Scanned ID documents are a single page with one image.
func FirstPageImage(data []byte, c utils.ImageConstraints) (image.Image, error) {
	return PageImage(data, 1, c)
}

// PageImage returns the largest image embedded in the given 1-based page.
func PageImage(data []byte, page int, c utils.ImageConstraints) (image.Image, error) {
	if page < 1 {
		return nil, &utils.ImageProcessingError{Operation: "pdf", Err: fmt.Errorf("invalid page %d", page)}
	}
	if !utils.LooksLikePDF(data) {
		return nil, &utils.ImageProcessingError{Operation: "pdf", Err: errors.New("missing %PDF header")}
	}

	tempDir, err := os.MkdirTemp("", "idcheck-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	inFile := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(inFile, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	outDir := filepath.Join(tempDir, "out")
	if err := os.Mkdir(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := api.ExtractImagesFile(inFile, outDir, []string{strconv.Itoa(page)}, nil); err != nil {
		return nil, &utils.ImageProcessingError{Operation: "pdf", Err: err}
	}

	img, err := largestImage(outDir, page, c)
	if err != nil {
		return nil, &utils.ImageProcessingError{Operation: "pdf", Err: err}
	}
	return img, nil
}

// largestImage picks the image with the most pixels among the files pdfcpu
// extracted for page. Unreadable or oversized extractions are skipped.
func largestImage(dir string, page int, c utils.ImageConstraints) (image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var best image.Image
	bestArea := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if p, err := parsePageFromFilename(e.Name()); err != nil || p != page {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name())) //nolint:gosec // G304: path comes from our own temp dir
		if err != nil {
			continue
		}
		img, _, err := utils.DecodeImage(data, c)
		if err != nil {
			continue
		}
		b := img.Bounds()
		if area := b.Dx() * b.Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	if best == nil {
		return nil, ErrNoImages
	}
	return best, nil
}

// parsePageFromFilename extracts the page number from a pdfcpu extraction
// file name. pdfcpu writes "<base>_<page>_<obj>.<ext>" and older releases
// "page_<page>_image_<idx>.<ext>".
func parsePageFromFilename(filename string) (int, error) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return 0, errors.New("not a page image")
	}
	if parts[0] == "page" {
		return strconv.Atoi(parts[1])
	}
	return strconv.Atoi(parts[len(parts)-2])
}
