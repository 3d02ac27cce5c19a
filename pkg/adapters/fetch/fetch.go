// Package fetch downloads raster images referenced by http(s) or data: URLs.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/raster"
)

// DefaultMaxBytes caps a downloaded raster.
const DefaultMaxBytes = 32 << 20

var (
	// ErrUnsupportedScheme is returned for references that are neither http(s) nor data URLs.
	ErrUnsupportedScheme = errors.New("unsupported reference scheme")
	// ErrTooLarge is returned when a payload exceeds the size cap.
	ErrTooLarge = errors.New("raster exceeds size limit")
	// ErrNotImage is returned when the payload is not a supported image.
	ErrNotImage = errors.New("payload is not an image")
)

// Fetcher implements ports.RasterFetcher.
type Fetcher struct {
	http     *http.Client
	maxBytes int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.http = c
		}
	}
}

// WithMaxBytes sets the size cap.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// New creates a fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		http:     &http.Client{Timeout: 60 * time.Second},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the raster behind ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*domain.Raster, error) {
	if strings.HasPrefix(ref, "data:") {
		return f.decodeDataURL(ref)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	return f.build(data, resp.Header.Get("Content-Type"))
}

func (f *Fetcher) decodeDataURL(ref string) (*domain.Raster, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}

	mimeType := meta
	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		mimeType = m
		isBase64 = true
	}

	var data []byte
	if isBase64 {
		if int64(base64.StdEncoding.DecodedLen(len(payload))) > f.maxBytes+2 {
			return nil, ErrTooLarge
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		data = []byte(unescaped)
	}
	return f.build(data, mimeType)
}

func (f *Fetcher) build(data []byte, contentType string) (*domain.Raster, error) {
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrNotImage)
	}
	if !raster.IsImage(contentType, data) {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, http.DetectContentType(data))
	}
	return &domain.Raster{
		Data:      data,
		MIMEType:  contentType,
		Extension: raster.Extension(contentType, data),
	}, nil
}
