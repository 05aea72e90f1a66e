package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Vscan/internal/logger"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every fetch; no request may block indefinitely.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Response is what a fetch yields: status, raw body and the declared content type.
// Non-2xx statuses are returned as-is; callers branch on StatusCode.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Fetcher is the fetch capability the crawl and probe engine depends on.
// params are sent as the query string for GET and as a form-encoded body for POST.
type Fetcher interface {
	Fetch(ctx context.Context, method, rawURL string, params url.Values) (*Response, error)
}

// Client is the scanner's HTTP client, encapsulating http.Client plus retry and rate limiting.
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	userAgent    string
	maxRetries   int
	requestDelay time.Duration
	limiter      *rate.Limiter
}

// ClientOptions holds configuration parameters for initializing the HTTP Client.
type ClientOptions struct {
	Timeout         time.Duration // Per-request timeout.
	FollowRedirects bool          // Whether to follow HTTP redirects.
	UserAgent       string        // Custom User-Agent string.
	MaxRetries      int           // Retries on transport error, 429 or 5xx.
	RequestDelay    time.Duration // Delay between retries.
	RateLimit       float64       // Requests per second, 0 = unlimited.
}

// NewClient creates and returns a new HTTP client instance with specified options.
// Certificate verification is always disabled: scan targets often present invalid certificates.
func NewClient(log *logger.Logger, opts ClientOptions) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "Vscan/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}

	client := &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		logger:       log,
		userAgent:    opts.UserAgent,
		maxRetries:   opts.MaxRetries,
		requestDelay: opts.RequestDelay,
	}
	if opts.RateLimit > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	client.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if !opts.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= 10 {
			log.Warn("Exceeded maximum redirects (10).")
			return http.ErrUseLastResponse
		}
		return nil
	}
	return client
}

// Fetch issues a GET (params in the query) or POST (params form-encoded in the body)
// and reads the whole response.
func (c *Client) Fetch(ctx context.Context, method, rawURL string, params url.Values) (*Response, error) {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
	}

	target := rawURL
	var body string
	switch method {
	case http.MethodPost:
		body = params.Encode()
	default:
		if len(params) > 0 {
			u, err := url.Parse(rawURL)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", rawURL, err)
			}
			q := u.Query()
			for k, vs := range params {
				q[k] = vs
			}
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 && c.requestDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.requestDelay):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var reqBody io.Reader
		if method == http.MethodPost {
			reqBody = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
		if err != nil {
			return nil, fmt.Errorf("build request %s %s: %w", method, target, err)
		}
		if method == http.MethodPost {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		req.Header.Set("User-Agent", c.userAgent)

		c.logger.Trace("Sending request: %s %s", method, target)
		resp, err := c.do(req)
		if err != nil {
			lastErr = err
			continue
		}
		// Retry on rate limiting and server errors, but hand back the last one.
		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			c.logger.Debug("Got %d from %s, retrying (%d/%d)", resp.StatusCode, target, attempt+1, c.maxRetries)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%s %s: %w", method, target, lastErr)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
