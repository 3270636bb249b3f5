package http

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
)

const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
	MethodPatch  = http.MethodPatch
)

// errBodyLimit caps how much of an error response lands in the error
// message.
const errBodyLimit = 2048

// RequestOptions describes one outbound request.
type RequestOptions struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string][]string
	Body        interface{}
}

// Client wraps net/http with JSON conveniences and a single timeout.
type Client struct {
	timeout time.Duration
	client  *http.Client
}

// ClientOption adjusts a Client under construction.
type ClientOption func(*Client)

// WithTimeout bounds the whole request, dial through body read.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	c.client = &http.Client{Timeout: c.timeout}
	return c
}

// SendRequest performs the request and hands back the raw response.
// The caller owns the body.
func (c *Client) SendRequest(ctx context.Context, opts *RequestOptions) (*http.Response, error) {
	req, err := buildRequest(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// SendAndParse performs the request and decodes a 2xx response into
// dest. A *[]byte dest receives the raw body, an io.Writer dest gets
// it streamed, anything else is decoded as JSON. Nil dest discards the
// body.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	resp, err := c.SendRequest(ctx, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	switch v := dest.(type) {
	case nil:
		return nil
	case *[]byte:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		*v = body
	case io.Writer:
		if _, err := io.Copy(v, resp.Body); err != nil {
			return fmt.Errorf("copy body: %w", err)
		}
	default:
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	}
	return nil
}

func buildRequest(ctx context.Context, opts *RequestOptions) (*http.Request, error) {
	body, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, err
	}

	if len(opts.QueryParams) > 0 {
		q := req.URL.Query()
		for key, values := range opts.QueryParams {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// encodeBody turns the loosely typed Body field into a reader. Byte
// slices, strings, and readers pass through; a string map with the
// form content type is form-encoded; everything else is JSON.
func encodeBody(opts *RequestOptions) (io.Reader, error) {
	switch v := opts.Body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(v), nil
	case *[]byte:
		return bytes.NewReader(*v), nil
	case io.Reader:
		return v, nil
	case string:
		return strings.NewReader(v), nil
	case map[string]string:
		if opts.Headers["Content-Type"] == "application/x-www-form-urlencoded" {
			form := url.Values{}
			for key, value := range v {
				form.Set(key, value)
			}
			return strings.NewReader(form.Encode()), nil
		}
	}

	data, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return bytes.NewReader(data), nil
}
