// Package raster provides the decode and rasterization capabilities the
// filter applicator depends on: an awaitable image decoder and a 2D surface
// that paints through an effect and re-encodes its pixels.
package raster

import (
	"context"
	"image"
	"io"

	"github.com/pkg/errors"

	"github.com/AnyUserName/imgfilter/internal/effect"
	"github.com/AnyUserName/imgfilter/internal/encoder"
)

var (
	// ErrSurfaceUnavailable means no rendering surface could be provided.
	ErrSurfaceUnavailable = errors.New("rendering surface unavailable")

	// ErrEmptyRaster means a decoded image has no pixels.
	ErrEmptyRaster = errors.New("decoded image has zero dimensions")

	// ErrClosed is returned by a Surface used after Close.
	ErrClosed = errors.New("surface closed")
)

// Decoder turns encoded image bytes into a raster. Decode blocks until the
// image is loaded, fails, or ctx is done.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (image.Image, error)
}

// Rasterizer hands out drawing surfaces. Every surface is owned by one caller
// and must be closed on every exit path.
type Rasterizer interface {
	NewSurface(width, height int) (Surface, error)
}

// Surface is an in-memory canvas.
type Surface interface {
	// SetEffect sets the effect applied to subsequent draws.
	SetEffect(e effect.Effect)

	// DrawImage paints img with its top-left corner at (x, y).
	DrawImage(img image.Image, x, y int) error

	// Encode re-encodes the surface pixels.
	Encode(enc encoder.Encoder, quality int) ([]byte, error)

	io.Closer
}
