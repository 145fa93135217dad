//go:build !gosseract

package ocr

// newGosseract reports that the in-process engine needs the gosseract build tag
// (and libtesseract headers) to be available.
func newGosseract(Config) (TextExtractor, error) {
	return nil, ErrEngineNotLinked
}
