package raster

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	"github.com/pkg/errors"

	"github.com/AnyUserName/imgfilter/internal/effect"
	"github.com/AnyUserName/imgfilter/internal/encoder"
)

// MaxSurfacePixels caps surface area, matching the largest canvas common
// browsers will allocate.
const MaxSurfacePixels = 1 << 28

// GG is a software Rasterizer backed by gogpu/gg.
type GG struct{}

// NewSurface allocates a width x height transparent surface.
func (GG) NewSurface(width, height int) (Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrSurfaceUnavailable, "invalid size %dx%d", width, height)
	}
	if int64(width)*int64(height) > MaxSurfacePixels {
		return nil, errors.Wrapf(ErrSurfaceUnavailable, "%dx%d exceeds %d pixels", width, height, MaxSurfacePixels)
	}
	return &ggSurface{dc: gg.NewContext(width, height)}, nil
}

type ggSurface struct {
	dc     *gg.Context
	effect effect.Effect
	closed bool
}

func (s *ggSurface) SetEffect(e effect.Effect) {
	s.effect = e
}

// DrawImage paints img 1:1. At unit scale gg's bilinear sampler lands on
// pixel centers, so source pixels are copied without resampling.
func (s *ggSurface) DrawImage(img image.Image, x, y int) error {
	if s.closed {
		return ErrClosed
	}
	if img == nil {
		return errors.New("draw: nil image")
	}
	src := img
	if !s.effect.IsIdentity() {
		src = imaging.AdjustFunc(img, s.effect.Apply)
	}
	s.dc.DrawImage(gg.ImageBufFromImage(src), float64(x), float64(y))
	return nil
}

func (s *ggSurface) Encode(enc encoder.Encoder, quality int) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.dc.FlushGPU(); err != nil {
		return nil, errors.Wrap(err, "flush")
	}
	data, err := enc.Encode(s.dc.Image(), quality)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", enc.Format())
	}
	return data, nil
}

func (s *ggSurface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dc.Close()
}
