// Package fetcher issues the outbound GETs for pages and images submitted by callers.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

const (
	maxRedirects = 5
	userAgent    = "AccessibilityAnalyzer/1.0"

	// DefaultMaxPageSize caps page bodies read for analysis.
	DefaultMaxPageSize = 10 << 20
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

type Options struct {
	Timeout time.Duration
	// BlockPrivate refuses connections to loopback, private and reserved addresses.
	BlockPrivate bool
	MaxPageSize  int64
}

// Client fetches caller-supplied URLs.
type Client struct {
	client      *http.Client
	maxPageSize int64
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}

	return &Client{
		client: &http.Client{
			Timeout:       opts.Timeout,
			Transport:     otelhttp.NewTransport(newTransport(opts.BlockPrivate)),
			CheckRedirect: safeRedirectPolicy,
		},
		maxPageSize: opts.MaxPageSize,
	}
}

// newTransport dials targets directly when blockPrivate is set: through a
// proxy the dialer would only ever see the proxy's address.
func newTransport(blockPrivate bool) *http.Transport {
	t := &http.Transport{
		DialContext:         newDialer(blockPrivate).DialContext,
		MaxConnsPerHost:     10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if !blockPrivate {
		t.Proxy = http.ProxyFromEnvironment
	}
	return t
}

// NewWithHTTPClient wraps an existing client, e.g. an httptest server client.
func NewWithHTTPClient(c *http.Client) *Client {
	return &Client{client: c, maxPageSize: DefaultMaxPageSize}
}

// NewAPIClient returns an http.Client for configured upstream APIs (model,
// vision). Those endpoints are trusted, so no address filtering applies.
func NewAPIClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// FetchPage downloads the page at targetURL and returns its body decoded to UTF-8.
func (c *Client) FetchPage(ctx context.Context, targetURL string) (string, error) {
	resp, err := c.Get(ctx, targetURL, "text/html,application/xhtml+xml")
	if err != nil {
		return "", utils.NewUpstreamError(fmt.Sprintf("Failed to fetch %s", targetURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", utils.NewUpstreamError(fmt.Sprintf("Failed to fetch %s: status %d", targetURL, resp.StatusCode), nil)
	}

	tooLarge := utils.NewBadRequestError(fmt.Sprintf("The page at %s exceeds the %d byte limit", targetURL, c.maxPageSize))
	if resp.ContentLength > c.maxPageSize {
		return "", tooLarge
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxPageSize+1))
	if err != nil {
		return "", utils.NewUpstreamError(fmt.Sprintf("Failed to read %s", targetURL), err)
	}
	if int64(len(raw)) > c.maxPageSize {
		return "", tooLarge
	}

	enc, name, _ := charset.DetermineEncoding(raw, resp.Header.Get("Content-Type"))
	if name == "utf-8" {
		return string(raw), nil
	}

	data, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", utils.NewUpstreamError(fmt.Sprintf("Failed to decode %s as %s", targetURL, name), err)
	}
	return string(data), nil
}

// Get issues a GET and returns the raw response. The caller closes the body.
func (c *Client) Get(ctx context.Context, targetURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	return c.client.Do(req)
}
