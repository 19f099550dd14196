// Package pumpportal streams pump.fun token launches and trades over the
// PumpPortal WebSocket API.
package pumpportal

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
)

// DefaultEndpoint is the public PumpPortal data stream.
const DefaultEndpoint = "wss://pumpportal.fun/api/data"

// ClientConfig configures WebSocket client behavior.
type ClientConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// ReconnectMin is initial delay before a reconnect attempt.
	ReconnectMin time.Duration
	// ReconnectMax is maximum delay between reconnect attempts.
	ReconnectMax time.Duration
}

// DefaultClientConfig returns default WebSocket configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReconnectMin: 1 * time.Second,
		ReconnectMax: 30 * time.Second,
	}
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Endpoint overrides the stream URL. Defaults to DefaultEndpoint.
	Endpoint string

	// Config overrides timing parameters. Nil means defaults.
	Config *ClientConfig

	// OnLaunch receives token creation events. Required.
	OnLaunch func(*Launch)

	// OnTrade receives buy/sell events for tracked tokens. Required.
	OnTrade func(*Trade)

	// OnParseError is called for frames that fail to decode. Optional.
	OnParseError func(error)

	// OnReconnect is called after each successful reconnect. Optional.
	OnReconnect func()

	// Logger for connection events. Defaults to log.Default().
	Logger *log.Logger
}

// Client maintains one WebSocket connection to the stream, dispatches
// events to the configured handlers, and transparently reconnects with
// exponential backoff, resubscribing to new-token events and all tracked
// token trade feeds.
type Client struct {
	endpoint string
	cfg      ClientConfig
	logger   *log.Logger

	onLaunch     func(*Launch)
	onTrade      func(*Trade)
	onParseError func(error)
	onReconnect  func()

	conn   *websocket.Conn
	connMu sync.Mutex

	// tracked holds mints with an active trade subscription so they can
	// be resubscribed after a reconnect.
	tracked   map[string]struct{}
	trackedMu sync.Mutex
}

// NewClient creates a stream client. It does not connect; call Run.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.OnLaunch == nil || opts.OnTrade == nil {
		return nil, fmt.Errorf("pumpportal client requires OnLaunch and OnTrade handlers")
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	cfg := DefaultClientConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		endpoint:     endpoint,
		cfg:          cfg,
		logger:       logger,
		onLaunch:     opts.OnLaunch,
		onTrade:      opts.OnTrade,
		onParseError: opts.OnParseError,
		onReconnect:  opts.OnReconnect,
		tracked:      make(map[string]struct{}),
	}, nil
}

// Run connects and reads the stream until the context is canceled. Read
// errors trigger reconnection with exponential backoff; Run only returns
// on context cancellation or a handshake error that backoff cannot fix
// (which it retries, so in practice on cancellation).
func (c *Client) Run(ctx context.Context) error {
	bo := &backoff.Backoff{
		Min:    c.cfg.ReconnectMin,
		Max:    c.cfg.ReconnectMax,
		Factor: 2,
		Jitter: true,
	}
	firstConnect := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.connect(ctx); err != nil {
			delay := bo.Duration()
			c.logger.Printf("[pumpportal] connect failed: %v, retrying in %s", err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		bo.Reset()
		if firstConnect {
			firstConnect = false
			c.logger.Printf("[pumpportal] connected to %s", c.endpoint)
		} else {
			c.logger.Printf("[pumpportal] reconnected to %s", c.endpoint)
			if c.onReconnect != nil {
				c.onReconnect()
			}
		}

		if err := c.resubscribe(); err != nil {
			c.logger.Printf("[pumpportal] resubscribe failed: %v", err)
			c.closeConn()
			continue
		}

		err := c.readLoop(ctx)
		c.closeConn()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Printf("[pumpportal] connection lost: %v", err)
	}
}

// TrackToken subscribes to trade events for the mint. Safe to call while
// Run is reading; the subscription survives reconnects.
func (c *Client) TrackToken(mint string) error {
	c.trackedMu.Lock()
	if _, ok := c.tracked[mint]; ok {
		c.trackedMu.Unlock()
		return nil
	}
	c.tracked[mint] = struct{}{}
	c.trackedMu.Unlock()

	return c.writeJSON(subscribeRequest{Method: "subscribeTokenTrade", Keys: []string{mint}})
}

// UntrackToken drops the trade subscription for the mint.
func (c *Client) UntrackToken(mint string) error {
	c.trackedMu.Lock()
	if _, ok := c.tracked[mint]; !ok {
		c.trackedMu.Unlock()
		return nil
	}
	delete(c.tracked, mint)
	c.trackedMu.Unlock()

	return c.writeJSON(subscribeRequest{Method: "unsubscribeTokenTrade", Keys: []string{mint}})
}

// TrackedCount returns the number of mints with active trade subscriptions.
func (c *Client) TrackedCount() int {
	c.trackedMu.Lock()
	defer c.trackedMu.Unlock()
	return len(c.tracked)
}

func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}

// resubscribe restores the new-token feed and all tracked trade feeds on
// a fresh connection.
func (c *Client) resubscribe() error {
	if err := c.writeJSON(subscribeRequest{Method: "subscribeNewToken"}); err != nil {
		return err
	}

	c.trackedMu.Lock()
	keys := make([]string, 0, len(c.tracked))
	for mint := range c.tracked {
		keys = append(keys, mint)
	}
	c.trackedMu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	return c.writeJSON(subscribeRequest{Method: "subscribeTokenTrade", Keys: keys})
}

func (c *Client) writeJSON(req subscribeRequest) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write %s: %w", req.Method, err)
	}
	return nil
}

// readLoop reads frames until the connection breaks or ctx cancels. A
// per-connection ping goroutine keeps the link alive.
func (c *Client) readLoop(ctx context.Context) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.pingLoop(conn, pingDone)

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	for {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(message)
	}
}

func (c *Client) dispatch(message []byte) {
	event, err := parseMessage(message, time.Now().UnixMilli())
	if err != nil {
		if c.onParseError != nil {
			c.onParseError(err)
		}
		return
	}

	switch ev := event.(type) {
	case *Launch:
		c.onLaunch(ev)
	case *Trade:
		c.onTrade(ev)
	case nil:
		// Service notice.
	}
}

// pingLoop sends periodic ping frames on one connection until it is
// replaced or the client stops.
func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn == conn {
				conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
				conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}
