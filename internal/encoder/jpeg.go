package encoder

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pkg/errors"
)

// JPEGEncoder encodes images to JPEG using Go's standard library.
// Transparent pixels are written over black.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() string    { return "jpeg" }
func (e *JPEGEncoder) MediaType() string { return "image/jpeg" }
func (e *JPEGEncoder) Extension() string { return "jpg" }
func (e *JPEGEncoder) Available() bool   { return true }

func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	var buf bytes.Buffer
	buf.Grow(b.Dx() * b.Dy() / 2)

	err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: clampQuality(quality, 95)})
	if err != nil {
		return nil, errors.Wrap(err, "jpeg encode")
	}
	return buf.Bytes(), nil
}
