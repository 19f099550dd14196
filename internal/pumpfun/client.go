// Package pumpfun queries the pump.fun frontend API for coin state, used
// to refresh bonding curve progress and graduation status.
package pumpfun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public pump.fun frontend API root.
const DefaultBaseURL = "https://frontend-api.pump.fun"

const defaultTimeout = 15 * time.Second

// initialRealTokenReserves is the bonding curve's starting token reserve
// in raw units (793.1M tokens at 6 decimals). Curve progress is the share
// of this reserve already sold.
const initialRealTokenReserves = 793_100_000_000_000

// CoinData is the coin state returned by the API.
type CoinData struct {
	Mint               string  `json:"mint"`
	Name               string  `json:"name"`
	Symbol             string  `json:"symbol"`
	Creator            string  `json:"creator"`
	MarketCapSOL       float64 `json:"market_cap"`
	USDMarketCap       float64 `json:"usd_market_cap"`
	Complete           bool    `json:"complete"`
	RealTokenReserves  float64 `json:"real_token_reserves"`
	VirtualSOLReserves float64 `json:"virtual_sol_reserves"`
	CreatedTimestamp   int64   `json:"created_timestamp"` // Unix ms
}

// BondingCurvePct returns curve completion as a percentage in [0, 100].
// A graduated coin reports 100 regardless of remaining reserves.
func (c *CoinData) BondingCurvePct() float64 {
	if c.Complete {
		return 100
	}
	sold := 1 - c.RealTokenReserves/initialRealTokenReserves
	if sold < 0 {
		return 0
	}
	if sold > 1 {
		return 100
	}
	return sold * 100
}

// Client queries coin data over HTTP.
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

// NewClient creates a pump.fun API client.
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

// GetCoin fetches current coin state for a mint. A 404 returns (nil, nil).
func (c *Client) GetCoin(ctx context.Context, mint string) (*CoinData, error) {
	endpoint := fmt.Sprintf("%s/coins/%s", c.baseURL, url.PathEscape(mint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coin data request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var coin CoinData
	if err := json.Unmarshal(body, &coin); err != nil {
		return nil, fmt.Errorf("decode coin data: %w", err)
	}
	return &coin, nil
}
