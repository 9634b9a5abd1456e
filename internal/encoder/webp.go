package encoder

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Atomic counter for unique temp file names across goroutines.
var tempCounter atomic.Int64

// tool is an external encoder binary located lazily on PATH.
type tool struct {
	name string
	once sync.Once
	path string
}

func (t *tool) lookup() string {
	t.once.Do(func() {
		if p, err := exec.LookPath(t.name); err == nil {
			t.path = p
		}
	})
	return t.path
}

// run writes img as a temporary PNG, invokes the tool with args built from
// the source and destination paths, and returns the destination bytes.
func (t *tool) run(img image.Image, ext string, args func(src, dst string) []string) ([]byte, error) {
	bin := t.lookup()
	if bin == "" {
		return nil, errors.Errorf("%s not found in PATH", t.name)
	}

	id := tempCounter.Add(1)
	srcFile, err := os.CreateTemp("", fmt.Sprintf("imgfilter_src_%d_*.png", id))
	if err != nil {
		return nil, errors.Wrap(err, "create temp")
	}
	srcPath := srcFile.Name()
	defer os.Remove(srcPath)

	dstFile, err := os.CreateTemp("", fmt.Sprintf("imgfilter_dst_%d_*.%s", id, ext))
	if err != nil {
		srcFile.Close()
		return nil, errors.Wrap(err, "create temp")
	}
	dstPath := dstFile.Name()
	dstFile.Close()
	defer os.Remove(dstPath)

	if err := png.Encode(srcFile, img); err != nil {
		srcFile.Close()
		return nil, errors.Wrap(err, "encode temp png")
	}
	if err := srcFile.Close(); err != nil {
		return nil, errors.Wrap(err, "close temp png")
	}

	cmd := exec.Command(bin, args(srcPath, dstPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, errors.Wrapf(err, "%s: %s", t.name, out)
	}
	return os.ReadFile(dstPath)
}

// WebPEncoder encodes images to lossy WebP by shelling out to cwebp.
// Install: brew install webp / apt install webp
type WebPEncoder struct {
	cwebp tool
}

// NewWebPEncoder returns an encoder that uses cwebp from PATH.
func NewWebPEncoder() *WebPEncoder {
	return &WebPEncoder{cwebp: tool{name: "cwebp"}}
}

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) MediaType() string { return "image/webp" }
func (e *WebPEncoder) Extension() string { return "webp" }
func (e *WebPEncoder) Available() bool   { return e.cwebp.lookup() != "" }

func (e *WebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	q := strconv.Itoa(clampQuality(quality, 95))
	return e.cwebp.run(img, "webp", func(src, dst string) []string {
		return []string{
			"-q", q,
			"-m", "6", // compression method (0=fast, 6=best)
			"-quiet",
			src,
			"-o", dst,
		}
	})
}

// AVIFEncoder encodes images to AVIF by shelling out to avifenc.
// Install: brew install libavif / apt install libavif-bin
type AVIFEncoder struct {
	avifenc tool
}

// NewAVIFEncoder returns an encoder that uses avifenc from PATH.
func NewAVIFEncoder() *AVIFEncoder {
	return &AVIFEncoder{avifenc: tool{name: "avifenc"}}
}

func (e *AVIFEncoder) Format() string    { return "avif" }
func (e *AVIFEncoder) MediaType() string { return "image/avif" }
func (e *AVIFEncoder) Extension() string { return "avif" }
func (e *AVIFEncoder) Available() bool   { return e.avifenc.lookup() != "" }

func (e *AVIFEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	// avifenc quantizers run 0 (best) to 63.
	q := strconv.Itoa(63 - clampQuality(quality, 95)*63/100)
	return e.avifenc.run(img, "avif", func(src, dst string) []string {
		return []string{
			"--min", q,
			"--max", q,
			"--speed", "6",
			src,
			dst,
		}
	})
}
