package raster

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImagingDecoder decodes gif, jpeg, png, bmp, tiff and webp, applying EXIF
// orientation so the raster has the image's natural dimensions.
type ImagingDecoder struct{}

type decodeResult struct {
	img image.Image
	err error
}

// Decode runs the decode on its own goroutine and waits for it or ctx.
// When ctx ends first the decode keeps running and its result is dropped.
func (ImagingDecoder) Decode(ctx context.Context, data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("decode: empty payload")
	}

	done := make(chan decodeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- decodeResult{err: errors.Errorf("decode: panic: %v", r)}
			}
		}()
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		done <- decodeResult{img: img, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, errors.Wrap(r.err, "decode")
		}
		return checkRaster(r.img)
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "decode")
	}
}

// checkRaster rejects rasters a surface cannot be sized from.
func checkRaster(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, errors.Wrap(ErrEmptyRaster, "nil image")
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.Wrapf(ErrEmptyRaster, "%dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}
