// Package automation is a passthrough client for the automation engine's
// HTTP API. The dashboard lists automations, fires manual triggers, and
// shows run history; the engine owns the actual rule semantics, so
// responses are forwarded as raw JSON.
package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
)

// ErrRequestFailed indicates the engine answered with a non-2xx status.
var ErrRequestFailed = errors.New("automation request failed")

// Client talks to the automation engine.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates an automation engine client.
func New(cfg config.AutomationConfig, logger *logging.Logger) *Client {
	return &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.With("component", "automation"),
	}
}

// List returns all automations as the engine describes them.
func (c *Client) List(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/automations")
}

// Health returns the engine's health document.
func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/health")
}

// Info returns a single automation's status and container details.
func (c *Client) Info(ctx context.Context, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/automations/"+url.PathEscape(id))
}

// Stats returns resource stats for one automation container.
func (c *Client) Stats(ctx context.Context, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/automations/"+url.PathEscape(id)+"/stats")
}

// AllStats returns resource stats for every automation container. The
// engine walks the container runtime for this, so it can take tens of
// seconds with many containers.
func (c *Client) AllStats(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/automations/stats/all")
}

// Trigger fires an automation manually and returns the engine's response.
func (c *Client) Trigger(ctx context.Context, id string) (json.RawMessage, error) {
	c.logger.Info("triggering automation", "id", id)
	return c.do(ctx, http.MethodPost, "/automations/"+url.PathEscape(id)+"/trigger")
}

// History returns an automation's run history.
func (c *Client) History(ctx context.Context, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/automations/"+url.PathEscape(id)+"/history")
}

func (c *Client) do(ctx context.Context, method, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling automation engine %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading automation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrRequestFailed, path, resp.StatusCode)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("automation engine %s returned invalid JSON", path)
	}
	return json.RawMessage(body), nil
}
