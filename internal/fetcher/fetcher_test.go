package fetcher

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/dataurl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFetchBytes_OK(t *testing.T) {
	body := testPNG(t, 8, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(body)
	}))
	defer srv.Close()

	f := New(Config{})
	data, mt, err := f.FetchBytes(context.Background(), srv.URL+"/img.png", false)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.Equal(t, "image/png", mt, "octet-stream falls back to sniffing")
}

func TestFetchBytes_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, _, err := New(Config{}).FetchBytes(context.Background(), srv.URL, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, conversion.FetchError, Kind(err))
}

func TestFetchBytes_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, _, err := New(Config{}).FetchBytes(context.Background(), addr, false)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetchBytes_CredentialPolicy(t *testing.T) {
	var gotCookie, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotAuth = r.Header.Get("Authorization")
		w.Write(testPNG(t, 1, 1))
	}))
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, _ := url.Parse(srv.URL)
	jar.SetCookies(u, []*http.Cookie{{Name: "session", Value: "abc"}})

	f := New(Config{Jar: jar, CredentialHeaders: map[string]string{"Authorization": "Bearer t"}})

	_, _, err = f.FetchBytes(context.Background(), srv.URL, true)
	require.NoError(t, err)
	assert.Equal(t, "session=abc", gotCookie)
	assert.Equal(t, "Bearer t", gotAuth)

	_, _, err = f.FetchBytes(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Empty(t, gotCookie)
	assert.Empty(t, gotAuth)
}

func TestFetchBytes_MaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	_, _, err := New(Config{MaxBytes: 100}).FetchBytes(context.Background(), srv.URL, false)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetchBytes_UnsupportedScheme(t *testing.T) {
	_, _, err := New(Config{}).FetchBytes(context.Background(), "ftp://example.com/a.png", false)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetch_DataURL(t *testing.T) {
	uri := dataurl.Encode("image/png", testPNG(t, 6, 3))
	bmp, err := New(Config{}).Fetch(context.Background(), uri, false)
	require.NoError(t, err)
	defer bmp.Close()
	assert.Equal(t, 6, bmp.Width)
	assert.Equal(t, 3, bmp.Height)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, conversion.DecodeError, Kind(err))

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestBitmap_Close(t *testing.T) {
	bmp, err := Decode(testPNG(t, 2, 2))
	require.NoError(t, err)
	assert.False(t, bmp.Released())

	bmp.Close()
	bmp.Close()
	assert.True(t, bmp.Released())
	_, err = bmp.Image()
	assert.ErrorIs(t, err, ErrReleased)
}

func TestSniff(t *testing.T) {
	assert.Equal(t, "image/png", sniff(testPNG(t, 1, 1)))
	assert.Equal(t, "image/gif", sniff([]byte("GIF89a....")))
	assert.Equal(t, "image/webp", sniff([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "", sniff([]byte("hello")))
}
