// internal/common/http/client.go

// Package http wraps the outbound HTTP client used for webhook deliveries.
// The timeout bounds a single delivery attempt; retry scheduling lives in
// the webhook dispatcher, not here.
package http

import (
	"context"
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
}

// NewClient returns a client whose requests time out after the given
// duration. The webhook per-attempt timeout comes from webhooks.timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoWithContext issues req under ctx so a cancelled request stops waiting on
// a slow webhook endpoint.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}
