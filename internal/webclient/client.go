package webclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Fetcher is the capability the crawler and image handler consume.
// Implementations turn a URL into raw content; transport concerns
// (retries, redirects, size limits) stay behind this interface.
type Fetcher interface {
	// Fetch retrieves the URL. A non-2xx status or exhausted retries
	// yield a *FetchError.
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Response is the raw result of one successful fetch.
type Response struct {
	// StatusCode is the HTTP status code (always 2xx here).
	StatusCode int

	// ContentType is the Content-Type header value.
	ContentType string

	// Header contains all response headers.
	Header http.Header

	// Body is the response body, capped at the configured size limit.
	Body []byte
}

// Client fetches pages over plain HTTP(S) with retry and backoff.
//
// Design decision: Retry mechanics live here, not in the crawler,
// because the crawler's contract is "fetch failed, skip the URL": it
// should not know how many attempts that verdict took.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxRetries  int
	maxBodySize int64
	headers     map[string]string
	cookie      string
	logger      *slog.Logger

	// backoffBase is the unit for exponential backoff (2^attempt * base).
	// Overridable for tests.
	backoffBase time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithMaxBodySize caps the response body size in bytes.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithHeaders sets custom headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithCookie sets a Cookie header value sent with every request.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBackoffBase overrides the exponential backoff unit. Used by tests
// to avoid real sleeps.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		c.backoffBase = d
	}
}

// New creates a Client with the given request timeout.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		userAgent:   "sitebook/1.0",
		maxRetries:  3,
		maxBodySize: 5 * 1024 * 1024,
		backoffBase: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.httpClient = newHTTPClient(timeout)
	return c
}

// newHTTPClient builds the underlying http.Client.
// Cookies are enabled so session-protected documentation crawls work,
// and redirects are capped at 10 to prevent loops.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Fetch retrieves the URL with retries and exponential backoff.
// Transport errors and 5xx statuses are retried; 4xx statuses are not,
// because repeating a request the server already rejected wastes the
// politeness budget.
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	var lastErr error
	var lastStatus int

	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying fetch",
				"url", url,
				"attempt", attempt,
				"max", c.maxRetries,
			)
			backoff := c.backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, &FetchError{URL: url, Attempts: attempts, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}
		attempts++

		resp, retryable, err := c.doRequest(ctx, url)
		if err == nil {
			return resp, nil
		}

		var fe *FetchError
		if errors.As(err, &fe) {
			lastStatus = fe.StatusCode
			lastErr = fe.Err
		} else {
			lastErr = err
		}
		if !retryable {
			break
		}
	}

	return nil, &FetchError{URL: url, StatusCode: lastStatus, Attempts: attempts, Err: lastErr}
}

// doRequest performs a single request. The second return value reports
// whether a failure is worth retrying.
func (c *Client) doRequest(ctx context.Context, url string) (*Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/*;q=0.8,*/*;q=0.5")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors (DNS, refused, timeout) may be transient.
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500
		return nil, retryable, &FetchError{URL: url, StatusCode: resp.StatusCode, Attempts: 1}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, true, err
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        body,
	}, false, nil
}
