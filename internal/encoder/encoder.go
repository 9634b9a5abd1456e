// Package encoder re-encodes rasters into lossy image formats.
package encoder

import (
	"image"
)

// DefaultFormat is used when no other lossy encoder is requested or available.
const DefaultFormat = "jpeg"

// Encoder encodes an image to a specific lossy format.
type Encoder interface {
	// Format returns the output format name (e.g. "jpeg", "webp", "avif").
	Format() string

	// MediaType returns the IANA media type of the output.
	MediaType() string

	// Encode converts the image to bytes at the given quality (1-100).
	// Alpha is not preserved by every format.
	Encode(img image.Image, quality int) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	// External encoders (cwebp, avifenc) may not be installed.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string
}

// clampQuality maps out-of-range values to def.
func clampQuality(quality, def int) int {
	if quality <= 0 || quality > 100 {
		return def
	}
	return quality
}
