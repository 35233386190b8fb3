// Package proxyclient is the primary upstream client (C2): short timeouts,
// cache-header parsing via the shared upstream engine, backed by the
// reverse-proxy's own cache (out of scope for this repository — only its
// response headers are consumed).
package proxyclient

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathertools/internal/upstream"
)

const healthPath = "/healthz"

// Client is the reverse-proxy client.
type Client struct {
	engine *upstream.Engine
}

// Config configures the proxy client per §6.
type Config struct {
	BaseURL string
	Timeout time.Duration // default 5s
}

// New creates a Client. Returns an error if BaseURL is not a valid URL.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	engine := upstream.New(upstream.Policy{
		Name:           "proxy",
		BaseURL:        cfg.BaseURL,
		DefaultTimeout: timeout,
		HasCache:       true,
	}, logger)
	return &Client{engine: engine}, nil
}

// Engine exposes the underlying engine so callers (and the optional circuit
// breaker wiring in cmd/weathertools) can attach a breaker.
func (c *Client) Engine() *upstream.Engine { return c.engine }

// Fetch issues a GET (or opts.Method) against path through the engine.
func (c *Client) Fetch(ctx context.Context, path string, opts upstream.Options) (upstream.Result, error) {
	return c.engine.Fetch(ctx, path, opts)
}

// Healthy reports whether a short-timeout probe against the health path
// returns 200. Never returns an error.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.engine.HealthProbe(ctx, healthPath, 2*time.Second, 200)
}
