// Package aihub forwards chat requests to the household AI hub.
package aihub

import (
	"bytes"
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

// ErrRequestFailed indicates the hub answered with a non-2xx status.
var ErrRequestFailed = errors.New("ai hub request failed")

// ErrProcessNotFound indicates the named chat process does not exist.
var ErrProcessNotFound = errors.New("ai process not found")

// Client talks to the AI hub. Chat calls can be slow (model inference),
// so the configured timeout is deliberately generous.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates an AI hub client.
func New(cfg config.AIHubConfig, logger *logging.Logger) *Client {
	return &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.With("component", "aihub"),
	}
}

// Chat forwards a chat request body and returns the hub's response
// verbatim. The dashboard owns the request shape; the hub owns the
// response shape.
func (c *Client) Chat(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ai hub: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading ai hub response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: chat returned %d", ErrRequestFailed, resp.StatusCode)
	}

	if !json.Valid(out) {
		return nil, errors.New("ai hub returned invalid JSON")
	}
	return json.RawMessage(out), nil
}

// Processes lists the hub's active chat processes.
func (c *Client) Processes(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/processes", nil)
	if err != nil {
		return nil, fmt.Errorf("building processes request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ai hub processes: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading processes response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: processes returned %d", ErrRequestFailed, resp.StatusCode)
	}
	if !json.Valid(out) {
		return nil, errors.New("ai hub returned invalid JSON")
	}
	return json.RawMessage(out), nil
}

// CancelChat cancels a running chat process. The session behind the
// process survives and can be resumed later.
func (c *Client) CancelChat(ctx context.Context, processID string) (json.RawMessage, error) {
	c.logger.Info("cancelling ai chat", "process", processID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/chat/"+url.PathEscape(processID), nil)
	if err != nil {
		return nil, fmt.Errorf("building cancel request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ai hub cancel: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading cancel response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrProcessNotFound, processID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: cancel returned %d", ErrRequestFailed, resp.StatusCode)
	}
	if !json.Valid(out) {
		return nil, errors.New("ai hub returned invalid JSON")
	}
	return json.RawMessage(out), nil
}

// Health checks the hub's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling ai hub health: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", ErrRequestFailed, resp.StatusCode)
	}
	return nil
}
