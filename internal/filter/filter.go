// Package filter applies named presets to data-URL encoded images.
//
// Apply never fails: when a filter cannot be applied for any reason the
// original image is returned unchanged and the cause is logged. Filtered
// output is always re-encoded in a lossy format (JPEG unless configured
// otherwise), so transparency is lost and applying the same filter twice
// compounds both the effect and the compression loss.
package filter

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/AnyUserName/imgfilter/internal/dataurl"
	"github.com/AnyUserName/imgfilter/internal/effect"
	"github.com/AnyUserName/imgfilter/internal/encoder"
	"github.com/AnyUserName/imgfilter/internal/hasher"
	"github.com/AnyUserName/imgfilter/internal/preset"
	"github.com/AnyUserName/imgfilter/internal/raster"
)

// Quality is the fixed lossy re-encode quality.
const Quality = 95

// Pipeline stages, reported in StageError and log fields.
const (
	StageParse   = "parse"
	StageDecode  = "decode"
	StageSurface = "surface"
	StageDraw    = "draw"
	StageEncode  = "encode"
)

// StageError records the pipeline step that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }
func (e *StageError) Cause() error  { return e.Err }

// Result describes one Apply call.
type Result struct {
	Output     string // always a usable encoded image
	Filter     string
	Descriptor string
	Applied    bool  // false when Output is the input
	Err        error // diagnostic only; set when a filter was requested but failed
}

// Applicator applies presets through a Rasterizer. It is safe for concurrent
// use; each call owns its decoded raster and surface.
type Applicator struct {
	log        logrus.FieldLogger
	rasterizer raster.Rasterizer
	decoder    raster.Decoder
	encoder    encoder.Encoder
	format     string
}

// Option configures an Applicator.
type Option func(*Applicator)

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Applicator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithRasterizer replaces the default gogpu/gg rasterizer.
func WithRasterizer(r raster.Rasterizer) Option {
	return func(a *Applicator) {
		if r != nil {
			a.rasterizer = r
		}
	}
}

// WithDecoder replaces the default image decoder.
func WithDecoder(d raster.Decoder) Option {
	return func(a *Applicator) {
		if d != nil {
			a.decoder = d
		}
	}
}

// WithFormat selects the lossy output format ("jpeg", "webp", "avif").
// Formats whose encoder is unavailable fall back to JPEG.
func WithFormat(format string) Option {
	return func(a *Applicator) { a.format = format }
}

// WithEncoder sets the output encoder directly, overriding WithFormat.
func WithEncoder(enc encoder.Encoder) Option {
	return func(a *Applicator) { a.encoder = enc }
}

// New creates an Applicator. Defaults: logrus standard logger, gg rasterizer,
// imaging decoder, JPEG output.
func New(opts ...Option) *Applicator {
	a := &Applicator{
		log:        logrus.StandardLogger(),
		rasterizer: raster.GG{},
		decoder:    raster.ImagingDecoder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.encoder == nil {
		enc, ok := encoder.NewRegistry().Resolve(a.format)
		if !ok {
			a.log.WithFields(logrus.Fields{
				"requested": a.format,
				"using":     enc.Format(),
			}).Warn("output format unavailable")
		}
		a.encoder = enc
	}
	return a
}

// Format returns the output format name.
func (a *Applicator) Format() string {
	return a.encoder.Format()
}

// Apply returns src filtered by the preset named id. Unknown ids and "none"
// return src as is, without re-encoding.
func (a *Applicator) Apply(ctx context.Context, src, id string) string {
	return a.ApplyResult(ctx, src, id).Output
}

// ApplyResult is Apply with diagnostics.
func (a *Applicator) ApplyResult(ctx context.Context, src, id string) Result {
	res := Result{Output: src, Filter: id}

	p, ok := preset.Get(id)
	if !ok || p.Effect().IsIdentity() {
		return res
	}
	res.Descriptor = p.Descriptor

	out, err := a.render(ctx, src, p.Effect())
	if err != nil {
		fields := logrus.Fields{
			"filter": id,
			"digest": hasher.Digest(src),
			"size":   len(src),
		}
		var se *StageError
		if errors.As(err, &se) {
			fields["stage"] = se.Stage
		}
		a.log.WithFields(fields).WithError(err).Warn("filter not applied, returning original image")
		res.Err = err
		return res
	}

	res.Output = out
	res.Applied = true
	return res
}

// render is the single recovery boundary around decode, draw and encode.
// Every error and panic inside it becomes a *StageError.
func (a *Applicator) render(ctx context.Context, src string, eff effect.Effect) (out string, err error) {
	stage := StageParse
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
		if err != nil {
			err = &StageError{Stage: stage, Err: err}
		}
	}()

	d, err := dataurl.Parse(src)
	if err != nil {
		return "", err
	}

	stage = StageDecode
	img, err := a.decoder.Decode(ctx, d.Data)
	if err != nil {
		return "", err
	}
	b := img.Bounds()

	stage = StageSurface
	s, err := a.rasterizer.NewSurface(b.Dx(), b.Dy())
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			a.log.WithError(cerr).Debug("close surface")
		}
	}()

	stage = StageDraw
	s.SetEffect(eff)
	if err := s.DrawImage(img, 0, 0); err != nil {
		return "", err
	}
	s.SetEffect(effect.Identity)

	stage = StageEncode
	data, err := s.Encode(a.encoder, Quality)
	if err != nil {
		return "", err
	}
	return dataurl.Encode(a.encoder.MediaType(), data), nil
}

var defaultApplicator = sync.OnceValue(func() *Applicator { return New() })

// Apply filters src with the default Applicator.
func Apply(ctx context.Context, src, id string) string {
	return defaultApplicator().Apply(ctx, src, id)
}
