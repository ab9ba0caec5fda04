package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lysyi3m/rss-sentry/app/guard"
)

const DefaultMaxBytes = 10 << 20

var (
	ErrBlocked  = errors.New("blocked")
	ErrNotImage = errors.New("upstream response is not an image")
	ErrTooLarge = errors.New("image exceeds size limit")
	ErrUpstream = errors.New("upstream request failed")
)

type Validator interface {
	ValidateForProxy(ctx context.Context, rawURL string) guard.Verdict
}

type Image struct {
	ContentType string
	Data        []byte
}

// ImageProxy fetches images referenced by feed items on behalf of the
// reader. Every URL passes the strict policy before any request is made.
type ImageProxy struct {
	validator  Validator
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewImageProxy creates an image proxy. httpClient should come from
// guard.Guard.NewStrictClient so redirects and dials are checked too.
func NewImageProxy(validator Validator, httpClient *http.Client, userAgent string, maxBytes int64) *ImageProxy {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &ImageProxy{
		validator:  validator,
		httpClient: httpClient,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
}

func (p *ImageProxy) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	verdict := p.validator.ValidateForProxy(ctx, rawURL)
	if !verdict.Safe {
		slog.Warn("Image URL blocked", "url", rawURL, "reason", verdict.Reason)
		return nil, fmt.Errorf("%w: %s", ErrBlocked, verdict.Reason)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/webp, image/avif, image/jpeg, image/png, image/gif, image/*;q=0.8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, guard.ErrPrivateDial) || errors.Is(err, guard.ErrRedirectBlocked) {
			slog.Warn("Image fetch refused", "url", rawURL, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return nil, fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}

	if resp.ContentLength > p.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, p.maxBytes)
	}

	return &Image{ContentType: contentType, Data: data}, nil
}
