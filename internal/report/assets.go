package report

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/gzip"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/lnmu-portal/internal/config"
	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
)

const maxAssetSize = 16 << 20

// Assets are the decoded images a report embeds.
type Assets struct {
	Photo     image.Image
	Signature image.Image
	QRCode    image.Image
}

// AssetOptions configures an AssetLoader.
type AssetOptions struct {
	CacheSize int
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper
}

// AssetLoader fetches and decodes report images. Decoded images are kept in
// a bounded LRU keyed by URL.
type AssetLoader struct {
	client    *http.Client
	cache     *lru.Cache[string, image.Image]
	userAgent string
}

// NewAssetLoader creates a loader.
func NewAssetLoader(opts AssetOptions) (*AssetLoader, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[string, image.Image](size)
	if err != nil {
		return nil, fmt.Errorf("create asset cache: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.AssetRequest
	}

	return &AssetLoader{
		client:    &http.Client{Timeout: timeout, Transport: opts.Transport},
		cache:     cache,
		userAgent: opts.UserAgent,
	}, nil
}

// LoadAll fetches the photo, signature and QR code of doc concurrently. Any
// image that cannot be loaded fails the whole set.
func (l *AssetLoader) LoadAll(ctx context.Context, doc Document) (Assets, error) {
	var assets Assets
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		assets.Photo, err = l.Fetch(gctx, doc.PhotoURL)
		return err
	})
	g.Go(func() (err error) {
		assets.Signature, err = l.Fetch(gctx, doc.SignatureURL)
		return err
	})
	g.Go(func() (err error) {
		assets.QRCode, err = l.Fetch(gctx, doc.QRCodeURL)
		return err
	})

	if err := g.Wait(); err != nil {
		return Assets{}, err
	}
	return assets, nil
}

// Fetch returns the decoded image at rawURL. Every failure wraps
// ErrAssetBlocked.
func (l *AssetLoader) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("missing image url: %w", domerrors.ErrAssetBlocked)
	}
	if img, ok := l.cache.Get(rawURL); ok {
		return img, nil
	}

	img, err := l.fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", rawURL, domerrors.ErrAssetBlocked, err)
	}
	l.cache.Add(rawURL, img)
	return img, nil
}

func (l *AssetLoader) fetch(ctx context.Context, rawURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	img, _, err := image.Decode(io.LimitReader(reader, maxAssetSize))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Cached returns the number of memoized images.
func (l *AssetLoader) Cached() int {
	return l.cache.Len()
}
