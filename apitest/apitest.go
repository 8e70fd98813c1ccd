// Package apitest provides typed test helpers for APIs built with rest.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bjaus/rest"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
}

// NewClient creates a test client serving the API.
func NewClient(t testing.TB, a *rest.API) *Client {
	t.Helper()
	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a decoded API response. Error responses are decoded into
// Error instead of Body.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Error   *rest.ErrorBody
	Raw     *http.Response
}

// RequestOption adjusts an outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a request header, such as If-Match.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil, opts)
}

// Post sends a typed POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body, opts)
}

// Put sends a typed PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body, opts)
}

// Patch sends a typed PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, body, opts)
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil, opts)
}

// Pagination decodes the pagination metadata header of a response.
func Pagination[T any](t testing.TB, resp *Response[T], header string) *rest.PaginationMetadata {
	t.Helper()
	raw := resp.Headers.Get(header)
	if raw == "" {
		return nil
	}
	var md rest.PaginationMetadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		t.Fatalf("apitest: decode pagination header: %v", err)
	}
	return &md
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any, opts []RequestOption) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("apitest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     resp,
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}
	if len(raw) == 0 {
		return result
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var eb rest.ErrorBody
		if json.Unmarshal(raw, &eb) == nil {
			result.Error = &eb
		}
		return result
	}
	var decoded Resp
	if json.Unmarshal(raw, &decoded) == nil {
		result.Body = &decoded
	}
	return result
}
