package pipeline

import (
	"image"

	"github.com/MeKo-Tech/idcheck/internal/pdf"
	"github.com/MeKo-Tech/idcheck/internal/utils"
)

// ImageDecoder turns uploaded bytes into an image.
type ImageDecoder interface {
	Decode(data []byte) (image.Image, error)
}

// DefaultDecoder decodes raster formats (JPEG, PNG, GIF, BMP, TIFF, WebP) and
// scanned PDFs, for which the largest image on the first page is used.
type DefaultDecoder struct {
	Constraints utils.ImageConstraints
}

// Decode implements ImageDecoder.
func (d DefaultDecoder) Decode(data []byte) (image.Image, error) {
	if utils.LooksLikePDF(data) {
		return pdf.FirstPageImage(data, d.Constraints)
	}
	img, _, err := utils.DecodeImage(data, d.Constraints)
	return img, err
}
