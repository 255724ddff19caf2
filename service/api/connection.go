package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type Connection interface {
	Request(ctx context.Context, endpoint *url.URL) (*http.Response, error)
}

type ClientHost struct {
	client    *http.Client
	scheme    string
	host      string
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

type Client struct {
	connection Connection
	apiKey     string
}

type ClientOption func(*ClientHost)

// WithPause spaces consecutive requests through the host by at least d.
func WithPause(d time.Duration) ClientOption {
	return func(h *ClientHost) {
		if d > 0 {
			h.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(h *ClientHost) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *ClientHost) {
		if c != nil {
			h.client = c
		}
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(h *ClientHost) {
		if l != nil {
			h.logger = l
		}
	}
}

func (conn *ClientHost) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	if conn.limiter != nil {
		if err := conn.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("error waiting for request slot on %s: %w", conn.host, err)
		}
	}

	endpoint.Scheme = conn.scheme
	endpoint.Host = conn.host

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", conn.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := conn.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing request to %s: %w", conn.host, err)
	}

	conn.logger.Debug("http response", "host", conn.host, "path", endpoint.Path, "status", res.StatusCode)
	return res, nil
}

// NewClientHost accepts a bare host ("www.alphavantage.co", https implied) or a base URL
// with an explicit scheme ("http://127.0.0.1:8080").
func NewClientHost(host string, timeout time.Duration, opts ...ClientOption) *ClientHost {
	scheme := "https"
	if s, h, ok := strings.Cut(host, "://"); ok {
		scheme, host = s, h
	}

	ch := &ClientHost{
		client:    &http.Client{Timeout: timeout},
		scheme:    scheme,
		host:      strings.TrimSuffix(host, "/"),
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

func NewClient(connection Connection, apiKey string) *Client {
	return &Client{
		connection: connection,
		apiKey:     apiKey,
	}
}

func ClientFactory(host string, apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	return NewClient(NewClientHost(host, timeout, opts...), apiKey)
}

func (c *Client) Connection() Connection { return c.connection }

func (c *Client) ApiKey() string { return c.apiKey }
