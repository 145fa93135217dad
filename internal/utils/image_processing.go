package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
)

// ImageProcessingError represents errors that can occur while loading or preparing an image.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the images accepted for decoding.
type ImageConstraints struct {
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
	MaxPixels int
}

// DefaultImageConstraints returns limits that admit any realistic phone or scanner photo.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MinWidth:  1,
		MinHeight: 1,
		MaxWidth:  16384,
		MaxHeight: 16384,
		MaxPixels: 80_000_000,
	}
}

// CheckDimensions validates width and height against the constraints.
func (c ImageConstraints) CheckDimensions(w, h int) error {
	if w < max(1, c.MinWidth) || h < max(1, c.MinHeight) {
		return fmt.Errorf("image too small: %dx%d", w, h)
	}
	if (c.MaxWidth > 0 && w > c.MaxWidth) || (c.MaxHeight > 0 && h > c.MaxHeight) {
		return fmt.Errorf("image too large: %dx%d exceeds %dx%d", w, h, c.MaxWidth, c.MaxHeight)
	}
	if c.MaxPixels > 0 && w*h > c.MaxPixels {
		return fmt.Errorf("image has %d pixels, limit is %d", w*h, c.MaxPixels)
	}
	return nil
}

// EncodePNG serialises img losslessly, the format handed to OCR engines.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "encode", Err: errors.New("input image is nil")}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, &ImageProcessingError{Operation: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
