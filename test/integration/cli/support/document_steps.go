package support

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/idcheck/internal/ocr"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/cucumber/godog"
)

// RegisterDocumentSteps registers steps that prepare input documents and the
// recorded OCR output.
func (testCtx *TestContext) RegisterDocumentSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a sharp ID card photo "([^"]*)"$`, testCtx.aSharpIDCardPhoto)
	sc.Step(`^a blurry low resolution photo "([^"]*)"$`, testCtx.aBlurryLowResolutionPhoto)
	sc.Step(`^a corrupt file "([^"]*)"$`, testCtx.aCorruptFile)
	sc.Step(`^the OCR engine reads "([^"]*)"$`, testCtx.theOCREngineReads)
	sc.Step(`^the OCR engine reads "([^"]*)" padded to (\d+) words$`, testCtx.theOCREngineReadsPadded)
	sc.Step(`^a config file "([^"]*)" with:$`, testCtx.aConfigFileWith)
}

func (testCtx *TestContext) writeImage(name string, img image.Image) error {
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return testCtx.writeFile(name, buf.Bytes())
}

func (testCtx *TestContext) writeFile(name string, data []byte) error {
	path := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (testCtx *TestContext) aSharpIDCardPhoto(name string) error {
	return testCtx.writeImage(name, testutil.GenerateDocument(testutil.DefaultDocumentConfig()))
}

func (testCtx *TestContext) aBlurryLowResolutionPhoto(name string) error {
	return testCtx.writeImage(name, testutil.Blur(testutil.Solid(500, 300, color.Gray{Y: 128}), 4))
}

func (testCtx *TestContext) aCorruptFile(name string) error {
	return testCtx.writeFile(name, []byte("this is not an image"))
}

// theOCREngineReads records words as tesseract output and points the
// replay engine at it.
func (testCtx *TestContext) theOCREngineReads(text string) error {
	return testCtx.recordOCR(strings.Fields(text))
}

func (testCtx *TestContext) theOCREngineReadsPadded(text string, total int) error {
	words := strings.Fields(text)
	for len(words) < total {
		words = append(words, "zz")
	}
	return testCtx.recordOCR(words)
}

func (testCtx *TestContext) recordOCR(words []string) error {
	testCtx.ReplayFile = testCtx.path("ocr.tsv")
	if err := testCtx.writeFile("ocr.tsv", []byte(testutil.TesseractTSV(words...))); err != nil {
		return err
	}
	testCtx.AddEnvVar("IDCHECK_OCR_ENGINE", ocr.EngineReplay)
	testCtx.AddEnvVar("IDCHECK_OCR_REPLAY_FILE", testCtx.ReplayFile)
	return nil
}

func (testCtx *TestContext) aConfigFileWith(name string, content *godog.DocString) error {
	return testCtx.writeFile(name, []byte(testCtx.substituteCommandVariables(content.Content)))
}
