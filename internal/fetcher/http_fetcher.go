package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	_maxImageSize = 10 * 1024 * 1024  // 10 MB
	_maxMediaSize = 200 * 1024 * 1024 // 200 MB

	_mediaCacheEntries = 16
)

// HTTPFetcher downloads data from HTTP/HTTPS URLs and reads local files.
// Successful results are kept in an LRU keyed by locator when a cache is configured.
type HTTPFetcher struct {
	logger  *zap.Logger
	client  *http.Client
	kind    string
	accept  []string // Accepted Content-Type prefixes
	maxSize int64
	cache   *lru.Cache[string, []byte]
	flight  singleflight.Group
}

// NewMediaFetcher creates the fetcher for tracks and stingers. Media bytes are
// cached so the duration probe and the audio element share one download.
func NewMediaFetcher(logger *zap.Logger) (*HTTPFetcher, error) {
	cache, err := lru.New[string, []byte](_mediaCacheEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create media cache: %w", err)
	}
	return &HTTPFetcher{
		logger: logger,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		kind:    "media",
		accept:  []string{"audio/", "application/octet-stream"},
		maxSize: _maxMediaSize,
		cache:   cache,
	}, nil
}

// NewImageFetcher creates the fetcher for label artwork
func NewImageFetcher(logger *zap.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second, // Essential to prevent blocking the daemon
		},
		kind:    "image",
		accept:  []string{"image/"},
		maxSize: _maxImageSize,
	}
}

// Fetch returns the data behind locator: an http(s) URL, a file:// URL or a local path
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if f.cache != nil {
		if data, ok := f.cache.Get(locator); ok {
			return data, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Concurrent requests for the same locator share one download. The download
	// outlives a caller that gives up; the client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	ch := f.flight.DoChan(locator, func() (any, error) {
		data, err := f.fetch(shared, locator)
		if err != nil {
			return nil, err
		}
		if f.cache != nil {
			f.cache.Add(locator, data)
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *HTTPFetcher) fetch(ctx context.Context, locator string) ([]byte, error) {
	if locator == "" {
		return nil, fmt.Errorf("empty %s locator", f.kind)
	}

	if path, ok := localPath(locator); ok {
		return f.readFile(ctx, path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "turntableDaemon/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !f.accepts(contentType) {
		return nil, fmt.Errorf("url is not %s: %s", f.article(), contentType)
	}

	limitReader := io.LimitReader(resp.Body, f.maxSize)

	data, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	f.logger.Debug("Fetched successfully",
		zap.String("kind", f.kind),
		zap.Int("bytes", len(data)),
		zap.String("url", locator))
	return data, nil
}

func (f *HTTPFetcher) readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > f.maxSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, f.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	f.logger.Debug("Read local file",
		zap.String("kind", f.kind),
		zap.Int("bytes", len(data)),
		zap.String("path", path))
	return data, nil
}

func (f *HTTPFetcher) accepts(contentType string) bool {
	for _, prefix := range f.accept {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func (f *HTTPFetcher) article() string {
	if f.kind == "image" {
		return "an image"
	}
	return "media"
}

// localPath reports whether locator names a file on disk
func localPath(locator string) (string, bool) {
	if strings.HasPrefix(locator, "file://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", false
		}
		return u.Path, true
	}
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return "", false
	}
	return locator, true
}
