// Package photo fetches staff photos from their hosted URLs.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults for the HTTP fetcher.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultMaxBytes  = 10 << 20
	DefaultThumbnail = 320
)

// ErrNoPhoto means the record has no fetchable photo URL. No request was made.
var ErrNoPhoto = errors.New("no photo")

// FetchError reports a failed download or an unreadable image.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch photo %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch photo %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Photo is a decoded-and-verified image ready to serve.
type Photo struct {
	Data        []byte
	ContentType string
	Format      string
	Width       int
	Height      int
}

// Fetcher resolves a photo URL to image bytes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Photo, error)
}

// Fetchable reports whether rawURL uses http or https.
func Fetchable(rawURL string) bool {
	_, ok := parseURL(rawURL)
	return ok
}

func parseURL(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	}
	return nil, false
}

// HTTPFetcher downloads photos over HTTP and optionally scales them down.
type HTTPFetcher struct {
	client    *http.Client
	maxBytes  int64
	thumbnail int
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPOptions tune the HTTP fetcher. Zero values select the defaults.
type HTTPOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	// Thumbnail bounds the longer side in pixels; negative disables scaling.
	Thumbnail int
	Client    *http.Client
}

// NewHTTPFetcher creates a fetcher with a bounded timeout and body size.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Thumbnail == 0 {
		opts.Thumbnail = DefaultThumbnail
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	c := *client
	c.Timeout = opts.Timeout
	return &HTTPFetcher{client: &c, maxBytes: opts.MaxBytes, thumbnail: opts.Thumbnail}
}

// Fetch downloads rawURL and verifies it is an image.
// PRE: none
// POST: Non-http(s) URLs return ErrNoPhoto without a request.
// Network, status and decode failures return *FetchError
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Photo, error) {
	u, ok := parseURL(rawURL)
	if !ok {
		return Photo{}, ErrNoPhoto
	}
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Photo{}, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "image/*")
	resp, err := f.client.Do(req)
	if err != nil {
		return Photo{}, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Photo{}, &FetchError{URL: target, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Photo{}, &FetchError{URL: target, Err: err}
	}
	if int64(len(data)) > f.maxBytes {
		return Photo{}, &FetchError{URL: target, Err: fmt.Errorf("image exceeds %d bytes", f.maxBytes)}
	}

	p, err := f.prepare(data)
	if err != nil {
		return Photo{}, &FetchError{URL: target, Err: err}
	}
	return p, nil
}

// prepare verifies data decodes as an image and scales it when it exceeds the thumbnail bound.
func (f *HTTPFetcher) prepare(data []byte) (Photo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Photo{}, fmt.Errorf("decode image: %w", err)
	}
	p := Photo{
		Data:        data,
		ContentType: http.DetectContentType(data),
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}
	if f.thumbnail < 0 || (cfg.Width <= f.thumbnail && cfg.Height <= f.thumbnail) {
		return p, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Photo{}, fmt.Errorf("decode image: %w", err)
	}
	w, h := fitWithin(cfg.Width, cfg.Height, f.thumbnail)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Photo{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	return Photo{Data: buf.Bytes(), ContentType: "image/png", Format: "png", Width: w, Height: h}, nil
}

// fitWithin scales w x h so the longer side equals bound, keeping aspect ratio.
func fitWithin(w, h, bound int) (int, int) {
	if w >= h {
		nh := h * bound / w
		if nh < 1 {
			nh = 1
		}
		return bound, nh
	}
	nw := w * bound / h
	if nw < 1 {
		nw = 1
	}
	return nw, bound
}
