// Package imagefetch downloads slide images referenced by URL.
package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	appcfg "github.com/slidehub/ai-service/internal/config"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported image url scheme")
	ErrTooLarge          = errors.New("image exceeds size limit")
)

// Fetcher returns the raw bytes behind an image URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Router dispatches by URL scheme: http(s) to HTTP, s3 to the S3 fetcher.
type Router struct {
	http *HTTPFetcher
	s3   Fetcher
}

func New(cfg appcfg.ImageFetchConfig, httpClient *http.Client) (*Router, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	r := &Router{http: NewHTTPFetcher(httpClient, cfg.MaxBytes)}
	if cfg.S3.Enabled() {
		s3f, err := NewS3Fetcher(cfg.S3, httpClient, cfg.MaxBytes)
		if err != nil {
			return nil, err
		}
		r.s3 = s3f
	}
	return r, nil
}

func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := neturl.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse image url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return r.http.Fetch(ctx, u.String())
	case "s3":
		if r.s3 == nil {
			return nil, fmt.Errorf("%w: s3 credentials are not configured", ErrUnsupportedScheme)
		}
		return r.s3.Fetch(ctx, u.String())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, f.maxBytes)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
