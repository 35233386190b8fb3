// Package stationsclient is the authenticated stations client (C3): basic
// auth, longer timeout, no shared reverse-proxy cache.
package stationsclient

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathertools/internal/upstream"
)

const healthPath = "/health"

// Client is the stations API client.
type Client struct {
	engine *upstream.Engine
}

// Config configures the stations client per §6.
type Config struct {
	BaseURL  string
	ClientID string // basic-auth username; password is always empty per §4.2
	Timeout  time.Duration // default 10s
}

// New creates a Client. Logs a warning once at startup if ClientID is absent.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.ClientID == "" && logger != nil {
		logger.Warn("stations client configured without a client id; requests will be unauthenticated")
	}

	var decorate func(http.Header)
	if cfg.ClientID != "" {
		token := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":"))
		decorate = func(h http.Header) {
			h.Set("Authorization", "Basic "+token)
		}
	}

	engine := upstream.New(upstream.Policy{
		Name:           "stations",
		BaseURL:        cfg.BaseURL,
		DefaultTimeout: timeout,
		DecorateHeader: decorate,
		HasCache:       false,
	}, logger)
	return &Client{engine: engine}, nil
}

func (c *Client) Engine() *upstream.Engine { return c.engine }

// Fetch issues a GET (or opts.Method) against path through the engine.
func (c *Client) Fetch(ctx context.Context, path string, opts upstream.Options) (upstream.Result, error) {
	return c.engine.Fetch(ctx, path, opts)
}

// Healthy reports whether a short-timeout probe returns 200 or 401 — a 401
// still means the service itself is up (§4.2).
func (c *Client) Healthy(ctx context.Context) bool {
	return c.engine.HealthProbe(ctx, healthPath, 2*time.Second, 200, 401)
}
