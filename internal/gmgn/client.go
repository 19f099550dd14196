// Package gmgn queries the GMGN token info API for holder counts.
package gmgn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public GMGN API root.
const DefaultBaseURL = "https://gmgn.ai"

const defaultTimeout = 15 * time.Second

// Client queries token info over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a GMGN API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenInfoResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		Token struct {
			Address     string `json:"address"`
			HolderCount int    `json:"holder_count"`
		} `json:"token"`
	} `json:"data"`
}

// HolderCount returns the number of holders for a Solana token mint.
func (c *Client) HolderCount(ctx context.Context, mint string) (int, error) {
	endpoint := fmt.Sprintf("%s/defi/quotation/v1/tokens/sol/%s", c.baseURL, url.PathEscape(mint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("token info request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed tokenInfoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode token info: %w", err)
	}
	if parsed.Code != 0 {
		return 0, fmt.Errorf("api error code %d: %s", parsed.Code, parsed.Message)
	}
	return parsed.Data.Token.HolderCount, nil
}
