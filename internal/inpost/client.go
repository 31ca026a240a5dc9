package inpost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAttemptTimeout = 10 * time.Second
	defaultRetries        = 2
	defaultBackoff        = 400 * time.Millisecond
)

// ErrRetriesExhausted marks a request that kept failing at the transport
// level (or with 5xx responses) until the retry budget ran out. It is
// distinguishable from a normal non-2xx Response, which is returned as-is.
var ErrRetriesExhausted = errors.New("inpost request failed after retries")

// Response is a fully read carrier response. Reading the body eagerly lets
// the per-attempt timeout be released before the caller parses it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RetryOptions overrides the default retry budget for a single call.
type RetryOptions struct {
	Retries   int
	BackoffMs int
}

// Client is the outbound HTTP wrapper for the carrier API. Every call gets
// the bearer token and optional organization header; caller-supplied
// headers win on merge. Attempts time out individually at 10s, and only
// network failures and 5xx responses are retried, with exponential backoff.
type Client struct {
	baseURL string
	token   string
	orgID   string
	httpc   *http.Client

	sleep func(time.Duration)
}

func NewClient(baseURL, token, orgID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		orgID:   orgID,
		httpc:   &http.Client{},
		sleep:   time.Sleep,
	}
}

func (c *Client) Request(ctx context.Context, method, path string, body []byte, header http.Header) (*Response, error) {
	return c.RequestWithRetry(ctx, method, path, body, header, RetryOptions{Retries: defaultRetries})
}

func (c *Client) RequestWithRetry(ctx context.Context, method, path string, body []byte, header http.Header, retry RetryOptions) (*Response, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	retries := retry.Retries
	if retries < 0 {
		retries = 0
	}
	backoff := defaultBackoff
	if retry.BackoffMs > 0 {
		backoff = time.Duration(retry.BackoffMs) * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			c.sleep(backoff * (1 << (attempt - 1)))
		}

		resp, err := c.attempt(ctx, method, url, body, header)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}
		lastErr = fmt.Errorf("carrier returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("%w: %s %s: %v", ErrRetriesExhausted, method, path, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, defaultAttemptTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.orgID != "" {
		req.Header.Set("X-Organization-Id", c.orgID)
	}
	for key, values := range header {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       payload,
	}, nil
}
