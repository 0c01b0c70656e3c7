// Package client provides the browser-like HTTP client used by the load
// generator. Each virtual user gets its own cookie session on top of a
// shared connection pool.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/tools/shopload/internal/config"
)

// defaultUserAgent is used when a session does not set its own.
const defaultUserAgent = "shopload/1.0"

// Client is a cookie-aware HTTP client bound to a storefront origin.
// Failed requests are reported as-is; a browser does not retry a page
// load, so neither do we.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	baseURL    *url.URL
	headers    map[string]string
	mu         sync.RWMutex
}

// New creates a client for the given target. The returned client has no
// cookie jar; call NewSession for per-user sessions.
func New(cfg config.TargetConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		transport: transport,
		baseURL:   base,
		headers:   make(map[string]string),
	}

	c.headers["User-Agent"] = defaultUserAgent
	c.headers["Accept"] = "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8"
	for k, v := range cfg.Headers {
		c.headers[k] = v
	}

	return c, nil
}

// NewSession returns a client sharing this client's connection pool but
// carrying its own cookie jar and User-Agent, like a fresh browser
// profile.
func (c *Client) NewSession(userAgent string) *Client {
	jar, _ := cookiejar.New(nil)

	c.mu.RLock()
	headers := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		headers[k] = v
	}
	c.mu.RUnlock()

	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}

	return &Client{
		httpClient: &http.Client{
			Transport: c.transport,
			Timeout:   c.httpClient.Timeout,
			Jar:       jar,
		},
		transport: c.transport,
		baseURL:   c.baseURL,
		headers:   headers,
	}
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Error      error
}

// OK reports whether the response completed without a transport error
// and with a non-failure status. Redirects count as success since the
// underlying client follows them.
func (r *Response) OK() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 400
}

// Get fetches a page. When bypassCache is set, the request carries a
// cache-busting query parameter and a no-cache header so it reaches the
// origin instead of an intermediate cache.
func (c *Client) Get(ctx context.Context, page string, query url.Values, bypassCache bool) *Response {
	u, err := c.buildURL(page, query)
	if err != nil {
		return &Response{Error: err}
	}

	if bypassCache {
		q := u.Query()
		q.Set("nocache", uuid.NewString())
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &Response{Error: err}
	}
	c.setHeaders(req, nil)
	if bypassCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	return c.do(req)
}

// PostForm submits an HTML form.
func (c *Client) PostForm(ctx context.Context, page string, form url.Values) *Response {
	u, err := c.buildURL(page, nil)
	if err != nil {
		return &Response{Error: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return &Response{Error: err}
	}
	c.setHeaders(req, map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})

	return c.do(req)
}

// PostJSON submits a JSON request body.
func (c *Client) PostJSON(ctx context.Context, page string, body interface{}) *Response {
	u, err := c.buildURL(page, nil)
	if err != nil {
		return &Response{Error: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &Response{Error: fmt.Errorf("marshaling request body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return &Response{Error: err}
	}
	c.setHeaders(req, map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})

	return c.do(req)
}

// do executes the request and drains the body.
func (c *Client) do(req *http.Request) *Response {
	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	resp := &Response{
		Duration: time.Since(start),
		Error:    err,
	}

	if httpResp == nil {
		return resp
	}
	defer httpResp.Body.Close()

	resp.StatusCode = httpResp.StatusCode
	resp.Headers = httpResp.Header

	if err == nil {
		resp.Body, err = io.ReadAll(httpResp.Body)
		resp.Duration = time.Since(start)
		if err != nil {
			resp.Error = fmt.Errorf("reading response body: %w", err)
		}
	}

	return resp
}

// buildURL resolves a page reference against the origin. Absolute URLs
// on a different host are rejected so a stray external link can never
// send load off-target.
func (c *Client) buildURL(page string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL %q: %w", page, err)
	}

	u := c.baseURL.ResolveReference(ref)
	if u.Host != c.baseURL.Host {
		return nil, fmt.Errorf("page %q is outside origin %s", page, c.baseURL.Host)
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u, nil
}

// setHeaders sets headers on the request.
func (c *Client) setHeaders(req *http.Request, extra map[string]string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}

// SetHeader sets a default header for all requests from this client.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// BaseURL returns the configured origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}
