package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchResult is the outcome of fetching one URL.
type FetchResult struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// FinalURL is the URL actually served, after any redirects.
	// It may differ from the requested URL.
	FinalURL string

	// Body is the response body, truncated to the configured limit.
	Body []byte
}

// IsSuccess reports whether the response status is in the 2xx range.
func (r *FetchResult) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher retrieves pages for the discovery engine.
//
// Design decision: the engine is parameterized over this interface
// rather than owning an HTTP client, so that plain HTTP retrieval and
// browser-rendered retrieval are interchangeable and tests can supply
// synthetic sites. One engine, many transports.
type Fetcher interface {
	// Fetch retrieves the URL. A non-nil error means the transport
	// failed (timeout included); HTTP-level failures are reported via
	// StatusCode with a nil error.
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// HTTPFetcher fetches pages over plain HTTP(S) with redirect following.
type HTTPFetcher struct {
	// client is the HTTP client; its Timeout bounds each request.
	client *http.Client

	// userAgent is sent with every request.
	userAgent string

	// cookie, if set, is sent as the Cookie header on every request.
	// Used when discovery runs behind an authenticated session.
	cookie string

	// headers are additional headers sent with every request.
	headers map[string]string

	// maxBodySize limits how many body bytes are read per response.
	maxBodySize int64
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithTimeout sets the per-request timeout on the fetcher's client.
func WithTimeout(d time.Duration) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.client.Timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithCookie sets a Cookie header sent with every request.
func WithCookie(cookie string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithHeaders sets additional headers sent with every request.
func WithHeaders(headers map[string]string) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// NewHTTPFetcher creates an HTTPFetcher with sensible defaults:
// 15 second timeout, redirect following, 5MB body limit.
func NewHTTPFetcher(opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{Timeout: 15 * time.Second},
		userAgent:   "urlscope/1.0 (+https://github.com/urlscope/urlscope)",
		maxBodySize: 5 * 1024 * 1024,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves the URL. Redirects are followed by the underlying
// client; FinalURL reflects the URL that was ultimately served.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &FetchResult{
		StatusCode: resp.StatusCode,
		FinalURL:   finalURL,
		Body:       body,
	}, nil
}
