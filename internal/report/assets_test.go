package report

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type imageServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newImageServer(t *testing.T) *imageServer {
	t.Helper()
	photo := pngBytes(t, 40, 50, color.RGBA{200, 0, 0, 255})
	sign := pngBytes(t, 90, 30, color.RGBA{0, 0, 200, 255})
	qr := pngBytes(t, 12, 12, color.Black)

	s := &imageServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		switch r.URL.Path {
		case "/photo.png":
			_, _ = w.Write(photo)
		case "/sign.png":
			_, _ = w.Write(sign)
		case "/create-qr-code/":
			_, _ = w.Write(qr)
		case "/garbage.png":
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func TestFetch_DecodesAndCaches(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t)
	l, err := NewAssetLoader(AssetOptions{CacheSize: 4})
	require.NoError(t, err)

	img, err := l.Fetch(context.Background(), srv.URL+"/photo.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 50), img.Bounds())

	_, err = l.Fetch(context.Background(), srv.URL+"/photo.png")
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())
	assert.Equal(t, 1, l.Cached())
}

func TestFetch_Blocked(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t)
	l, err := NewAssetLoader(AssetOptions{})
	require.NoError(t, err)

	for _, path := range []string{"/missing.png", "/garbage.png"} {
		_, err := l.Fetch(context.Background(), srv.URL+path)
		assert.ErrorIs(t, err, domerrors.ErrAssetBlocked, path)
	}

	_, err = l.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, domerrors.ErrAssetBlocked)
	assert.Zero(t, l.Cached())
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t)
	l, err := NewAssetLoader(AssetOptions{})
	require.NoError(t, err)

	doc := Document{
		PhotoURL:     srv.URL + "/photo.png",
		SignatureURL: srv.URL + "/sign.png",
		QRCodeURL:    srv.URL + "/create-qr-code/?size=120x120&data=%7B%7D",
	}
	assets, err := l.LoadAll(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 40, assets.Photo.Bounds().Dx())
	assert.Equal(t, 90, assets.Signature.Bounds().Dx())
	assert.Equal(t, 12, assets.QRCode.Bounds().Dx())
}

func TestLoadAll_OneFailureFailsAll(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t)
	l, err := NewAssetLoader(AssetOptions{})
	require.NoError(t, err)

	doc := Document{
		PhotoURL:     srv.URL + "/photo.png",
		SignatureURL: srv.URL + "/missing.png",
		QRCodeURL:    srv.URL + "/create-qr-code/",
	}
	assets, err := l.LoadAll(context.Background(), doc)
	assert.ErrorIs(t, err, domerrors.ErrAssetBlocked)
	assert.Nil(t, assets.Photo)
}
