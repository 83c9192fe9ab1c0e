// Package transport performs credentialed HTTP requests against Linked Data
// pods, routing every request URI through a rewriting proxy.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"podgraph/backend/internal/constants"
	perrors "podgraph/backend/pkg/errors"
)

// Proxy rewrites a resource URI into the URI actually requested.
type Proxy func(uri string) string

// Direct requests resources without a proxy.
func Direct(uri string) string {
	return uri
}

// QueryProxy forwards requests through base's /proxy endpoint, passing the
// target as the url query parameter.
func QueryProxy(base string) Proxy {
	base = strings.TrimRight(base, "/")
	return func(uri string) string {
		return base + "/proxy?url=" + url.QueryEscape(uri)
	}
}

// Options configures a Client. Zero values pick sensible defaults.
type Options struct {
	Proxy         Proxy
	Timeout       time.Duration
	SessionCookie string
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client is the resource transport used by the graph agent.
type Client struct {
	http    *http.Client
	proxy   Proxy
	timeout time.Duration
	cookie  string
	logger  *zap.Logger
}

// Response is a completed request with a 2xx status.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New creates a transport client. Without an explicit HTTPClient a client
// with a cookie jar is used so session cookies set by the pod are replayed.
func New(opts Options) *Client {
	c := &Client{
		http:    opts.HTTPClient,
		proxy:   opts.Proxy,
		timeout: opts.Timeout,
		cookie:  opts.SessionCookie,
		logger:  opts.Logger,
	}
	if c.http == nil {
		jar, _ := cookiejar.New(nil)
		c.http = &http.Client{Jar: jar}
	}
	if c.proxy == nil {
		c.proxy = Direct
	}
	if c.timeout <= 0 {
		c.timeout = constants.DefaultFetchTimeoutSeconds * time.Second
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Get fetches a graph document.
func (c *Client) Get(ctx context.Context, uri string) (*Response, error) {
	header := http.Header{}
	header.Set("Accept", constants.ContentTypeTurtle)
	return c.do(ctx, http.MethodGet, uri, nil, header)
}

// Put creates or replaces a resource. extra headers are sent verbatim.
func (c *Client) Put(ctx context.Context, uri string, body []byte, contentType string, extra http.Header) (*Response, error) {
	header := http.Header{}
	for k, vs := range extra {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	header.Set("Content-Type", contentType)
	return c.do(ctx, http.MethodPut, uri, body, header)
}

// Patch applies a SPARQL Update to a resource.
func (c *Client) Patch(ctx context.Context, uri, update string) (*Response, error) {
	header := http.Header{}
	header.Set("Content-Type", constants.ContentTypeSparqlUpdate)
	return c.do(ctx, http.MethodPatch, uri, []byte(update), header)
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, uri string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, uri, nil, http.Header{})
}

func (c *Client) do(ctx context.Context, method, uri string, body []byte, header http.Header) (*Response, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.proxy(uri), reader)
	if err != nil {
		observe(method, resultError, start)
		return nil, perrors.NewTransportError(method, uri, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header = header
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observe(method, resultError, start)
		c.logger.Debug("Request failed",
			zap.String("method", method),
			zap.String("uri", uri),
			zap.Error(err),
		)
		return nil, perrors.NewTransportError(method, uri, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		observe(method, resultError, start)
		return nil, perrors.NewTransportError(method, uri, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observe(method, resultStatus, start)
		c.logger.Debug("Request returned non-success status",
			zap.String("method", method),
			zap.String("uri", uri),
			zap.Int("status", resp.StatusCode),
		)
		return nil, perrors.NewTransportError(method, uri, resp.StatusCode, nil)
	}

	observe(method, resultOK, start)
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}
