// Package gateway is a REST client for the MQTT HTTP gateway.
//
// The gateway fronts the broker with two surfaces: a retained-value cache
// with a publish endpoint, and an SSE event stream. The stream side is
// consumed by internal/events; this client covers the cache side —
// listing cached topics, fetching one topic, and publishing a payload.
// Responses are forwarded as raw JSON; the gateway owns their shape.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
)

// ErrRequestFailed indicates the gateway answered with a non-2xx status.
var ErrRequestFailed = errors.New("gateway request failed")

// requestTimeout bounds cache and publish calls. These hit an in-memory
// cache on the gateway, so anything slower is a fault.
const requestTimeout = 10 * time.Second

// Client talks to the gateway's REST surface.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates a gateway client from the stream configuration. The REST
// endpoints live beside the stream endpoint, so the API base is the
// stream URL with its final path segment removed.
func New(cfg config.StreamConfig, logger *logging.Logger) *Client {
	base := strings.TrimRight(cfg.URL, "/")
	if i := strings.LastIndex(base, "/"); i > 0 {
		base = base[:i]
	}

	return &Client{
		baseURL:  base,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger.With("component", "gateway"),
	}
}

// Health returns the gateway's health document.
func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/health", nil)
}

// Topics returns every cached topic with its current value.
func (c *Client) Topics(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/topics", nil)
}

// Topic returns the cached value for a single topic path.
func (c *Client) Topic(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/topic?path="+url.QueryEscape(path), nil)
}

// Publish sends a payload to a topic through the gateway. Device control
// topics conventionally end in /set.
func (c *Client) Publish(ctx context.Context, path string, payload json.RawMessage) (json.RawMessage, error) {
	c.logger.Info("publishing via gateway", "topic", path)
	return c.do(ctx, http.MethodPost, "/topic?path="+url.QueryEscape(path), payload)
}

func (c *Client) do(ctx context.Context, method, path string, payload json.RawMessage) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gateway %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrRequestFailed, path, resp.StatusCode)
	}

	if !json.Valid(out) {
		return nil, fmt.Errorf("gateway %s returned invalid JSON", path)
	}
	return json.RawMessage(out), nil
}
