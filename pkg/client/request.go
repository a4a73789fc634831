package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RequestIDHeader carries the per-request correlation ID.
// A replay keeps the ID of the request it replays.
const RequestIDHeader = "X-Request-ID"

// Request describes an outgoing API call.
// Body is kept as bytes so the request can be re-issued after a renewal.
type Request struct {
	Method string
	// Path is resolved against the client's base URL unless it is absolute
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// ID is sent as X-Request-ID; generated when empty
	ID string

	// Retried is set once the request has been replayed after a renewal.
	// A retried request that is rejected as expired again is not replayed.
	Retried bool

	// Anonymous requests carry no credential and never trigger a renewal
	Anonymous bool
}

// NewRequest creates a request without a body
func NewRequest(method, path string) *Request {
	return &Request{
		Method: method,
		Path:   path,
	}
}

// NewJSONRequest creates a request with payload encoded as JSON
func NewJSONRequest(method, path string, payload interface{}) (*Request, error) {
	req := NewRequest(method, path)
	if payload == nil {
		return req, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req.Body = body
	req.Header = http.Header{}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// resolveURL joins path onto baseURL and appends the query
func (r *Request) resolveURL(baseURL string) (string, error) {
	raw := r.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = baseURL + "/" + strings.TrimPrefix(raw, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	if len(r.Query) > 0 {
		q := u.Query()
		for key, values := range r.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// build creates a fresh *http.Request; every attempt gets its own copy
func (r *Request) build(ctx context.Context, baseURL string) (*http.Request, error) {
	target, err := r.resolveURL(baseURL)
	if err != nil {
		return nil, err
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if r.Header != nil {
		httpReq.Header = r.Header.Clone()
	}
	if r.ID != "" {
		httpReq.Header.Set(RequestIDHeader, r.ID)
	}
	return httpReq, nil
}

// Response is the outcome of a successful (2xx) request
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
