package filter

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnyUserName/imgfilter/internal/dataurl"
	"github.com/AnyUserName/imgfilter/internal/effect"
	"github.com/AnyUserName/imgfilter/internal/encoder"
	"github.com/AnyUserName/imgfilter/internal/raster"
)

func pngDataURL(t *testing.T, w, h int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return dataurl.Encode("image/png", buf.Bytes())
}

func decodeOutput(t *testing.T, s string) (string, image.Image) {
	t.Helper()
	d, err := dataurl.Parse(s)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(d.Data))
	require.NoError(t, err)
	return d.MediaType, img
}

func newTestApplicator(opts ...Option) (*Applicator, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return New(append([]Option{WithLogger(logger), WithEncoder(&encoder.JPEGEncoder{})}, opts...)...), hook
}

var red = color.NRGBA{R: 255, A: 255}

func TestApply_NoneReturnsInput(t *testing.T) {
	a, hook := newTestApplicator()
	src := pngDataURL(t, 3, 3, red)

	res := a.ApplyResult(context.Background(), src, "none")
	assert.Equal(t, src, res.Output)
	assert.False(t, res.Applied)
	assert.NoError(t, res.Err)
	assert.Empty(t, hook.AllEntries())
}

func TestApply_UnknownReturnsInput(t *testing.T) {
	a, hook := newTestApplicator()
	for _, src := range []string{pngDataURL(t, 2, 2, red), "garbage", ""} {
		for _, id := range []string{"", "blur", "BW", "Sepia"} {
			assert.Equal(t, src, a.Apply(context.Background(), src, id))
		}
	}
	assert.Empty(t, hook.AllEntries())
}

func TestApply_MonochromeRedSquare(t *testing.T) {
	a, _ := newTestApplicator()
	src := pngDataURL(t, 2, 2, red)

	res := a.ApplyResult(context.Background(), src, "bw")
	require.True(t, res.Applied, "err: %v", res.Err)
	assert.Equal(t, "grayscale(100%)", res.Descriptor)

	mt, img := decodeOutput(t, res.Output)
	assert.Equal(t, "image/jpeg", mt)
	require.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			assert.InDelta(t, int(r>>8), int(g>>8), 4)
			assert.InDelta(t, int(g>>8), int(b>>8), 4)
		}
	}
}

func TestApply_SepiaConvertsToLossy(t *testing.T) {
	a, _ := newTestApplicator()
	src := pngDataURL(t, 7, 5, color.NRGBA{R: 90, G: 140, B: 200, A: 255})

	out := a.Apply(context.Background(), src, "sepia")
	require.NotEqual(t, src, out)
	assert.True(t, dataurl.IsDataURL(out))

	mt, img := decodeOutput(t, out)
	assert.Equal(t, "image/jpeg", mt)
	assert.Equal(t, 7, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())

	r, g, b, _ := img.At(3, 2).RGBA()
	assert.Greater(t, r, b, "sepia output should be warm")
	assert.GreaterOrEqual(t, g, b)
}

func TestApply_VintageKeepsDimensions(t *testing.T) {
	a, _ := newTestApplicator()
	out := a.Apply(context.Background(), pngDataURL(t, 16, 9, color.NRGBA{R: 30, G: 160, B: 60, A: 255}), "vintage")
	_, img := decodeOutput(t, out)
	assert.Equal(t, image.Rect(0, 0, 16, 9), img.Bounds())
}

func TestApply_InvalidInputFallsBack(t *testing.T) {
	a, hook := newTestApplicator()
	for _, src := range []string{
		"",
		"not a data url",
		"data:image/png;base64,",
		"data:image/png;base64,!!!",
		dataurl.Encode("image/png", []byte("definitely not png")),
		"https://example.com/cat.png",
	} {
		res := a.ApplyResult(context.Background(), src, "sepia")
		assert.Equal(t, src, res.Output)
		assert.False(t, res.Applied)
		assert.Error(t, res.Err)
	}

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "sepia", entry.Data["filter"])
	assert.Contains(t, entry.Data, "digest")
	assert.Contains(t, entry.Data, logrus.ErrorKey)
}

func TestApply_LogsStage(t *testing.T) {
	a, hook := newTestApplicator()
	a.Apply(context.Background(), "garbage", "bw")
	assert.Equal(t, StageParse, hook.LastEntry().Data["stage"])

	a.Apply(context.Background(), dataurl.Encode("image/png", []byte("xx")), "bw")
	assert.Equal(t, StageDecode, hook.LastEntry().Data["stage"])
}

// fakeRasterizer hands out recording surfaces and can be told to fail.
type fakeRasterizer struct {
	mu        sync.Mutex
	surfaces  []*fakeSurface
	newErr    error
	drawErr   error
	encodeErr error
	panicOn   string
}

func (f *fakeRasterizer) NewSurface(w, h int) (raster.Surface, error) {
	if f.panicOn == StageSurface {
		panic("no context")
	}
	if f.newErr != nil {
		return nil, f.newErr
	}
	s := &fakeSurface{parent: f, w: w, h: h}
	f.mu.Lock()
	f.surfaces = append(f.surfaces, s)
	f.mu.Unlock()
	return s, nil
}

type fakeSurface struct {
	parent        *fakeRasterizer
	w, h          int
	effect        effect.Effect
	drawnWith     effect.Effect
	encodedWithID bool
	closed        int
}

func (s *fakeSurface) SetEffect(e effect.Effect) { s.effect = e }

func (s *fakeSurface) DrawImage(image.Image, int, int) error {
	if s.parent.panicOn == StageDraw {
		panic("boom")
	}
	s.drawnWith = s.effect
	return s.parent.drawErr
}

func (s *fakeSurface) Encode(enc encoder.Encoder, quality int) ([]byte, error) {
	s.encodedWithID = s.effect.IsIdentity()
	if s.parent.encodeErr != nil {
		return nil, s.parent.encodeErr
	}
	return enc.Encode(image.NewRGBA(image.Rect(0, 0, s.w, s.h)), quality)
}

func (s *fakeSurface) Close() error {
	s.closed++
	return nil
}

func TestApply_SurfaceLifecycle(t *testing.T) {
	fr := &fakeRasterizer{}
	a, _ := newTestApplicator(WithRasterizer(fr))

	out := a.Apply(context.Background(), pngDataURL(t, 6, 4, red), "bw")
	_, img := decodeOutput(t, out)
	assert.Equal(t, 6, img.Bounds().Dx())

	require.Len(t, fr.surfaces, 1)
	s := fr.surfaces[0]
	assert.Equal(t, 6, s.w)
	assert.Equal(t, 4, s.h)
	assert.Equal(t, "grayscale(1)", s.drawnWith.String())
	assert.True(t, s.encodedWithID, "effect must be reset before encode")
	assert.Equal(t, 1, s.closed)
}

func TestApply_FailuresFallBackAndRelease(t *testing.T) {
	tests := []struct {
		name  string
		fr    *fakeRasterizer
		stage string
	}{
		{"surface unavailable", &fakeRasterizer{newErr: raster.ErrSurfaceUnavailable}, StageSurface},
		{"surface panic", &fakeRasterizer{panicOn: StageSurface}, StageSurface},
		{"draw error", &fakeRasterizer{drawErr: errors.New("draw failed")}, StageDraw},
		{"draw panic", &fakeRasterizer{panicOn: StageDraw}, StageDraw},
		{"encode error", &fakeRasterizer{encodeErr: errors.New("encode failed")}, StageEncode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, hook := newTestApplicator(WithRasterizer(tt.fr))
			src := pngDataURL(t, 2, 2, red)

			res := a.ApplyResult(context.Background(), src, "vintage")
			assert.Equal(t, src, res.Output)
			assert.False(t, res.Applied)

			var se *StageError
			require.True(t, errors.As(res.Err, &se))
			assert.Equal(t, tt.stage, se.Stage)
			assert.Equal(t, tt.stage, hook.LastEntry().Data["stage"])

			for _, s := range tt.fr.surfaces {
				assert.Equal(t, 1, s.closed, "surface leaked")
			}
		})
	}
}

func TestApply_SurfaceUnavailableIsInspectable(t *testing.T) {
	a, _ := newTestApplicator(WithRasterizer(&fakeRasterizer{newErr: raster.ErrSurfaceUnavailable}))
	res := a.ApplyResult(context.Background(), pngDataURL(t, 1, 1, red), "bw")
	assert.True(t, errors.Is(res.Err, raster.ErrSurfaceUnavailable))
}

type blockingDecoder struct{}

func (blockingDecoder) Decode(ctx context.Context, _ []byte) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type nilDecoder struct{}

func (nilDecoder) Decode(context.Context, []byte) (image.Image, error) { return nil, nil }

type emptyDecoder struct{}

func (emptyDecoder) Decode(context.Context, []byte) (image.Image, error) {
	return image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil
}

func TestApply_ZeroDimensionRasterFallsBack(t *testing.T) {
	a, hook := newTestApplicator(WithDecoder(emptyDecoder{}))
	src := pngDataURL(t, 2, 2, red)

	res := a.ApplyResult(context.Background(), src, "sepia")
	assert.Equal(t, src, res.Output)
	assert.False(t, res.Applied)

	var se *StageError
	require.True(t, errors.As(res.Err, &se))
	assert.Equal(t, StageSurface, se.Stage)
	assert.True(t, errors.Is(res.Err, raster.ErrSurfaceUnavailable))
	assert.Equal(t, StageSurface, hook.LastEntry().Data["stage"])
}

func TestApply_DecodeTimeoutFallsBack(t *testing.T) {
	a, _ := newTestApplicator(WithDecoder(blockingDecoder{}))
	src := pngDataURL(t, 2, 2, red)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := a.ApplyResult(ctx, src, "sepia")
	assert.Equal(t, src, res.Output)
	assert.True(t, errors.Is(res.Err, context.DeadlineExceeded))
}

func TestApply_MisbehavingDecoderFallsBack(t *testing.T) {
	a, _ := newTestApplicator(WithDecoder(nilDecoder{}))
	src := pngDataURL(t, 2, 2, red)
	assert.Equal(t, src, a.Apply(context.Background(), src, "sepia"))
}

func TestApply_Concurrent(t *testing.T) {
	a, _ := newTestApplicator()
	src := pngDataURL(t, 8, 8, color.NRGBA{R: 10, G: 200, B: 90, A: 255})
	ids := []string{"bw", "sepia", "vintage", "none", "unknown"}

	var wg sync.WaitGroup
	outs := make([]string, 20)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = a.Apply(context.Background(), src, ids[i%len(ids)])
		}(i)
	}
	wg.Wait()

	for i, out := range outs {
		switch ids[i%len(ids)] {
		case "none", "unknown":
			assert.Equal(t, src, out)
		default:
			_, img := decodeOutput(t, out)
			assert.Equal(t, 8, img.Bounds().Dx())
		}
	}
}

func TestNew_UnavailableFormatFallsBackToJPEG(t *testing.T) {
	logger, _ := test.NewNullLogger()
	a := New(WithLogger(logger), WithFormat("bogus"))
	assert.Equal(t, "jpeg", a.Format())
}

func TestPackageApply(t *testing.T) {
	src := pngDataURL(t, 2, 2, red)
	assert.Equal(t, src, Apply(context.Background(), src, "none"))
}
