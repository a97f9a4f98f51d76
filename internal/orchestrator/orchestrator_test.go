package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/encoder"
	"github.com/AnyUserName/saveimg/internal/fetcher"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/AnyUserName/saveimg/internal/offscreen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	c := color.NRGBA{R: 40, G: 120, B: 200, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), nil))
	return buf.Bytes()
}

func imageServer(t *testing.T, routes map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

type fixedTab struct {
	id conversion.TabID
	ok bool
}

func (f fixedTab) ActiveTabID(context.Context) (conversion.TabID, bool) { return f.id, f.ok }

// canvasPage stands in for a browser tab, decoding and re-encoding with
// the in-process canvas.
type canvasPage struct {
	calls atomic.Int32
	tabs  []conversion.TabID
	err   error
}

func (p *canvasPage) ConvertInTab(ctx context.Context, id conversion.TabID, dataURI string, req conversion.Request) ([]byte, string, error) {
	p.calls.Add(1)
	p.tabs = append(p.tabs, id)
	if p.err != nil {
		return nil, "", p.err
	}
	bmp, err := fetcher.New(fetcher.Config{}).Fetch(ctx, dataURI, false)
	if err != nil {
		return nil, "", err
	}
	w, h := conversion.TargetSize(bmp.Width, bmp.Height, req.MaxDimension)
	data, err := encoder.NewCanvas(encoder.NewRegistry()).Encode(bmp, w, h, req.Format, req.Quality)
	return data, req.Format.MIMEType(), err
}

type funcPrimary func(ctx context.Context, req conversion.Request) conversion.Result

func (f funcPrimary) Convert(ctx context.Context, req conversion.Request) conversion.Result {
	return f(ctx, req)
}

func offscreenPrimary(t *testing.T) Primary {
	t.Helper()
	bus := messaging.NewBus()
	rt := offscreen.NewRuntime(bus, offscreen.Config{Fetcher: fetcher.New(fetcher.Config{})})
	t.Cleanup(rt.Close)
	return offscreen.NewClient(bus, rt, messaging.DefaultRetryPolicy)
}

// Scenario A: primary available and successful.
func TestConvert_PrimarySuccess(t *testing.T) {
	srv := imageServer(t, map[string][]byte{"/img.jpg": jpegBytes(t, 64, 48)})
	page := &canvasPage{}
	o := New(fixedTab{}, fetcher.New(fetcher.Config{}), page, WithPrimary(offscreenPrimary(t)))

	res := o.Convert(context.Background(), conversion.Request{URI: srv.URL + "/img.jpg", Format: conversion.FormatPNG}, nil)
	require.True(t, res.OK(), "%v", res.Err())
	assert.Equal(t, "image/png", res.MIMEType)
	w, h := dims(t, res.Encoded)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
	assert.Zero(t, page.calls.Load())
}

// Scenario B: primary unavailable and the fallback fetch gets a 404.
func TestConvert_FallbackFetch404(t *testing.T) {
	srv := imageServer(t, nil)
	page := &canvasPage{}
	o := New(fixedTab{id: 1, ok: true}, fetcher.New(fetcher.Config{}), page)

	res := o.Convert(context.Background(), conversion.Request{URI: srv.URL + "/missing.png"}, nil)
	require.False(t, res.OK())
	assert.Equal(t, conversion.FetchError, res.Failure.Kind)
	assert.Contains(t, res.Failure.Detail, "404")
	assert.Zero(t, page.calls.Load())
}

// Scenario C: primary times out, fallback succeeds, the late primary
// result is discarded.
func TestConvert_PrimaryTimeoutFallsBack(t *testing.T) {
	srv := imageServer(t, map[string][]byte{"/img.png": pngBytes(t, 30, 20)})
	late := make(chan struct{})
	primary := funcPrimary(func(context.Context, conversion.Request) conversion.Result {
		time.Sleep(150 * time.Millisecond)
		defer close(late)
		return conversion.Succeeded([]byte("late"), "image/gif")
	})
	page := &canvasPage{}
	o := New(fixedTab{id: 4, ok: true}, fetcher.New(fetcher.Config{}), page,
		WithPrimary(primary), WithPrimaryTimeout(20*time.Millisecond))

	res := o.Convert(context.Background(), conversion.Request{URI: srv.URL + "/img.png", Format: conversion.FormatJPEG, Quality: 0.8}, nil)
	require.True(t, res.OK(), "%v", res.Err())
	assert.Equal(t, "image/jpeg", res.MIMEType)
	assert.EqualValues(t, 1, page.calls.Load())
	assert.Equal(t, []conversion.TabID{4}, page.tabs)

	<-late
	assert.Equal(t, "image/jpeg", res.MIMEType)
	assert.NotEqual(t, []byte("late"), res.Encoded)
}

// Scenario D: 4000x2000 with maxDimension 100 yields 100x50.
func TestConvert_ResizeBothStrategies(t *testing.T) {
	srv := imageServer(t, map[string][]byte{"/big.png": pngBytes(t, 4000, 2000)})
	req := conversion.Request{URI: srv.URL + "/big.png", Format: conversion.FormatPNG, MaxDimension: 100}

	t.Run("primary", func(t *testing.T) {
		o := New(fixedTab{}, fetcher.New(fetcher.Config{}), &canvasPage{},
			WithPrimary(offscreenPrimary(t)), WithPrimaryTimeout(30*time.Second))
		res := o.Convert(context.Background(), req, nil)
		require.True(t, res.OK(), "%v", res.Err())
		w, h := dims(t, res.Encoded)
		assert.Equal(t, 100, w)
		assert.Equal(t, 50, h)
	})

	t.Run("fallback", func(t *testing.T) {
		o := New(fixedTab{id: 1, ok: true}, fetcher.New(fetcher.Config{}), &canvasPage{})
		res := o.Convert(context.Background(), req, nil)
		require.True(t, res.OK(), "%v", res.Err())
		w, h := dims(t, res.Encoded)
		assert.Equal(t, 100, w)
		assert.Equal(t, 50, h)
	})
}

func TestConvert_NoTarget(t *testing.T) {
	o := New(fixedTab{}, fetcher.New(fetcher.Config{}), &canvasPage{})
	res := o.Convert(context.Background(), conversion.Request{URI: "https://example.com/a.png"}, nil)
	require.False(t, res.OK())
	assert.Equal(t, conversion.NoTarget, res.Failure.Kind)
}

func TestConvert_HintWinsOverActiveTab(t *testing.T) {
	srv := imageServer(t, map[string][]byte{"/img.png": pngBytes(t, 8, 8)})
	page := &canvasPage{}
	o := New(fixedTab{id: 1, ok: true}, fetcher.New(fetcher.Config{}), page)

	hint := conversion.TabID(9)
	res := o.Convert(context.Background(), conversion.Request{URI: srv.URL + "/img.png"}, &hint)
	require.True(t, res.OK(), "%v", res.Err())
	assert.Equal(t, []conversion.TabID{9}, page.tabs)
}

func TestConvert_FallbackErrorPreferred(t *testing.T) {
	srv := imageServer(t, map[string][]byte{"/img.png": pngBytes(t, 8, 8)})
	primary := funcPrimary(func(context.Context, conversion.Request) conversion.Result {
		return conversion.Failed(conversion.DecodeError, "tainted canvas")
	})
	page := &canvasPage{err: errors.New("canvas exploded")}
	o := New(fixedTab{id: 1, ok: true}, fetcher.New(fetcher.Config{}), page, WithPrimary(primary))

	res := o.Convert(context.Background(), conversion.Request{URI: srv.URL + "/img.png"}, nil)
	require.False(t, res.OK())
	assert.Equal(t, conversion.EncodeError, res.Failure.Kind)
	assert.Equal(t, "canvas exploded", res.Failure.Detail)
}

func TestConvert_PrimaryFailureTriggersFallback(t *testing.T) {
	srv := imageServer(t, map[string][]byte{"/img.png": pngBytes(t, 8, 8)})
	primary := funcPrimary(func(context.Context, conversion.Request) conversion.Result {
		return conversion.Failed(conversion.DecodeError, "tainted canvas")
	})
	page := &canvasPage{}
	o := New(fixedTab{id: 1, ok: true}, fetcher.New(fetcher.Config{}), page, WithPrimary(primary))

	res := o.Convert(context.Background(), conversion.Request{URI: srv.URL + "/img.png"}, nil)
	require.True(t, res.OK(), "%v", res.Err())
	assert.EqualValues(t, 1, page.calls.Load())
}

func TestConvert_PrimaryPanicIsContained(t *testing.T) {
	primary := funcPrimary(func(context.Context, conversion.Request) conversion.Result {
		panic("boom")
	})
	o := New(fixedTab{}, fetcher.New(fetcher.Config{}), &canvasPage{}, WithPrimary(primary))

	res := o.Convert(context.Background(), conversion.Request{URI: "https://example.com/a.png"}, nil)
	require.False(t, res.OK())
	assert.Equal(t, conversion.NoTarget, res.Failure.Kind)
}

func TestConvert_PrimarySuccessNotOverridden(t *testing.T) {
	primary := funcPrimary(func(context.Context, conversion.Request) conversion.Result {
		return conversion.Succeeded([]byte{1, 2, 3}, "image/png")
	})
	page := &canvasPage{}
	o := New(fixedTab{id: 1, ok: true}, fetcher.New(fetcher.Config{}), page, WithPrimary(primary))

	res := o.Convert(context.Background(), conversion.Request{URI: "https://example.com/a.png"}, nil)
	require.True(t, res.OK())
	assert.Equal(t, []byte{1, 2, 3}, res.Encoded)
	assert.Zero(t, page.calls.Load())
}
