// Package quality measures how usable a document photo is before OCR runs.
package quality

import (
	"errors"
	"image"
	"math"
	"reflect"

	"github.com/MeKo-Tech/idcheck/internal/utils"
	"github.com/disintegration/imaging"
)

// Assessor upscales undersized images and measures their sharpness.
type Assessor struct {
	// MinLongSide is the long-side length below which an image is upscaled.
	MinLongSide int
	// TargetLongSide is the long-side length an upscaled image ends up with.
	TargetLongSide int
}

// Assessment describes the image handed on to text extraction.
type Assessment struct {
	Image          image.Image
	Sharpness      float64
	Rescaled       bool
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
}

// Assess upscales img when its long side is under MinLongSide and then
// measures sharpness on the resulting image. The input image is never modified.
//
// Sharpness is measured after the upscale, so small but crisp photos read
// softer than they are.
func (a Assessor) Assess(img image.Image) (Assessment, error) {
	if isNil(img) {
		return Assessment{}, &utils.ImageProcessingError{Operation: "assess", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Assessment{}, &utils.ImageProcessingError{Operation: "assess", Err: errors.New("image has no pixels")}
	}

	out := Assessment{
		Image:          img,
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
	}

	if max(b.Dx(), b.Dy()) < a.MinLongSide {
		out.Image = Upscale(img, a.TargetLongSide)
		out.Rescaled = true
	}

	ob := out.Image.Bounds()
	out.Width, out.Height = ob.Dx(), ob.Dy()
	out.Sharpness = LaplacianVariance(Luminance(out.Image))
	return out, nil
}

// Upscale resizes img uniformly with cubic interpolation so that its long side
// equals target. The short side is rounded to the nearest pixel.
func Upscale(img image.Image, target int) image.Image {
	b := img.Bounds()
	scale := float64(target) / float64(max(b.Dx(), b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}

// Luminance converts img to 8-bit gray using Y = 0.299R + 0.587G + 0.114B.
func Luminance(img image.Image) *image.Gray {
	g := imaging.Grayscale(img)
	b := g.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		src := g.Pix[y*g.Stride : y*g.Stride+b.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray
}

// LaplacianVariance filters gray with the 4-neighbour Laplacian kernel
//
//	0  1  0
//	1 -4  1
//	0  1  0
//
// using reflect-101 borders and returns the population variance of the responses.
func LaplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	at := func(x, y int) float64 {
		return float64(gray.Pix[reflect101(y, h)*gray.Stride+reflect101(x, w)])
	}

	n := float64(w * h)
	responses := make([]float64, 0, w*h)
	var sum float64
	for y := range h {
		for x := range w {
			v := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			responses = append(responses, v)
			sum += v
		}
	}
	mean := sum / n

	var sq float64
	for _, v := range responses {
		d := v - mean
		sq += d * d
	}
	return sq / n
}

// reflect101 mirrors an out-of-range index without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}

// isNil also reports typed nil pointers such as (*image.RGBA)(nil), whose
// Bounds method would dereference nil.
func isNil(img image.Image) bool {
	if img == nil {
		return true
	}
	v := reflect.ValueOf(img)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
