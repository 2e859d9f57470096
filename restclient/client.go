// Package restclient is an HTTP client for the REST gateway that injects the
// session's bearer token and transparently refreshes it once per failed call.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/tokens"
)

const defaultTimeout = 30 * time.Second

type options struct {
	base    http.RoundTripper
	timeout time.Duration
	logger  zerolog.Logger
}

type Option func(*options)

// WithTransport sets the underlying transport (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Response describes a completed DoJSON call.
type Response struct {
	StatusCode int
	Header     http.Header
}

// Client performs authenticated calls against the REST gateway.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	store     tokens.Store
	refresher *Refresher
	logger    zerolog.Logger
}

func New(baseURL string, store tokens.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[restclient New] %w: %q", ErrInvalidURL, baseURL)
	}

	o := options{
		base:    http.DefaultTransport,
		timeout: defaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	plain := &http.Client{Transport: o.base, Timeout: o.timeout}
	refresher := NewRefresher(u.String()+RefreshPath, plain, store, o.logger)

	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: o.timeout,
			Transport: &authTransport{
				base:      o.base,
				store:     store,
				refresher: refresher,
				logger:    o.logger,
			},
		},
		store:     store,
		refresher: refresher,
		logger:    o.logger,
	}, nil
}

// Refresher exposes the refresh procedure for proactive refreshes.
func (c *Client) Refresher() *Refresher {
	return c.refresher
}

// Store returns the token store the client reads on every call.
func (c *Client) Store() tokens.Store {
	return c.store
}

// HTTPClient returns the authenticating *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// NewRequest builds a request with a JSON body. in may be nil.
func (c *Client) NewRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("[restclient NewRequest] failed to encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("[restclient NewRequest] %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Do sends req through the authenticating transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// DoJSON sends in as JSON and decodes a 2xx body into out (when out is non-nil).
// Non-2xx responses are returned as *StatusError alongside the Response.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) (*Response, error) {
	req, err := c.NewRequest(ctx, method, path, in)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[restclient DoJSON] %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	result := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request failed")
		return result, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: body}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return result, nil
	}
	if raw, ok := out.(*[]byte); ok {
		if *raw, err = io.ReadAll(resp.Body); err != nil {
			return result, fmt.Errorf("[restclient DoJSON] failed to read body: %w", err)
		}
		return result, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return result, fmt.Errorf("[restclient DoJSON] failed to decode response: %w", err)
	}
	return result, nil
}
