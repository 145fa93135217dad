package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DocumentConfig describes a synthetic identity card.
type DocumentConfig struct {
	Width      int
	Height     int
	Lines      []string
	Scale      int // glyph magnification, 1 = 7x13 pixel font
	Background color.Color
	Foreground color.Color
}

// DefaultDocumentConfig returns a 1200x900 card with PAN-style text.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		Width:  1200,
		Height: 900,
		Lines: []string{
			"INCOME TAX DEPARTMENT",
			"GOVT. OF INDIA",
			"PERMANENT ACCOUNT NUMBER CARD",
			"ABCDE1234F",
		},
		Scale:      4,
		Background: color.White,
		Foreground: color.Black,
	}
}

// GenerateDocument draws the configured lines with the basic bitmap font and
// scales them up with nearest-neighbour sampling so edges stay crisp.
func GenerateDocument(cfg DocumentConfig) *image.NRGBA {
	scale := max(1, cfg.Scale)
	face := basicfont.Face7x13
	small := image.NewRGBA(image.Rect(0, 0, max(1, cfg.Width/scale), max(1, cfg.Height/scale)))
	draw.Draw(small, small.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{Dst: small, Src: &image.Uniform{cfg.Foreground}, Face: face}
	lineHeight := face.Metrics().Height.Ceil() + 4
	for i, line := range cfg.Lines {
		drawer.Dot = fixed.P(4, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return imaging.Resize(small, cfg.Width, cfg.Height, imaging.NearestNeighbor)
}

// Checkerboard returns a w x h image of alternating black and white pixels.
func Checkerboard(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// Blur applies a gaussian blur with the given sigma.
func Blur(img image.Image, sigma float64) *image.NRGBA {
	return imaging.Blur(img, sigma)
}

// PNG encodes img as PNG.
func PNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// JPEG encodes img as JPEG at the given quality.
func JPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}
