package itunes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = int64(8 << 20)

// Response is the raw outcome of a search request. Status handling is left
// to the caller.
type Response struct {
	StatusCode int
	Body       []byte
}

// StatusError reports a response other than 200 OK.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search request failed with status %d", e.StatusCode)
}

// Client issues search requests against the iTunes Search API.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient creates a client. Empty arguments fall back to defaults.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "StoreSearch/0.1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API host requests are built against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch performs the GET described by req. Cancelling ctx aborts the
// request; the returned error then matches context.Canceled.
func (c *Client) Fetch(ctx context.Context, req Request) (Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	return Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
