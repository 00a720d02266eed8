// Package frigate is a thin client for the Frigate NVR HTTP API.
package frigate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
)

// ErrRequestFailed indicates Frigate answered with a non-2xx status.
var ErrRequestFailed = errors.New("frigate request failed")

// ErrNotFound indicates the requested camera or event does not exist, or
// has no image attached.
var ErrNotFound = errors.New("frigate resource not found")

// maxImageSize caps snapshot and thumbnail downloads. Frigate snapshots
// are single JPEG frames; anything larger is a misbehaving upstream.
const maxImageSize = 20 * 1024 * 1024

// defaultEventLimit caps event listings when the caller does not.
const defaultEventLimit = 25

// Client talks to a Frigate instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates a Frigate client.
func New(cfg config.FrigateConfig, logger *logging.Logger) *Client {
	return &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.With("component", "frigate"),
	}
}

// EventQuery narrows an event listing.
type EventQuery struct {
	Camera string
	Label  string
	Limit  int
}

// Event is a single detection event. Frigate's event objects carry many
// more fields; this is the subset the dashboard renders.
type Event struct {
	ID          string   `json:"id"`
	Camera      string   `json:"camera"`
	Label       string   `json:"label"`
	StartTime   float64  `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	HasClip     bool     `json:"has_clip"`
	HasSnapshot bool     `json:"has_snapshot"`
	TopScore    float64  `json:"top_score"`
	Zones       []string `json:"zones"`
}

// Events lists recent detection events.
func (c *Client) Events(ctx context.Context, q EventQuery) ([]Event, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if q.Camera != "" {
		params.Set("camera", q.Camera)
	}
	if q.Label != "" {
		params.Set("label", q.Label)
	}

	var events []Event
	if err := c.get(ctx, "/api/events?"+params.Encode(), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Stats returns Frigate's stats document verbatim. The dashboard renders
// it directly; decoding the dozens of per-camera fields here would buy
// nothing.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/stats", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Cameras returns the cameras section of Frigate's config, keyed by
// camera name.
func (c *Client) Cameras(ctx context.Context) (map[string]json.RawMessage, error) {
	var cfg struct {
		Cameras map[string]json.RawMessage `json:"cameras"`
	}
	if err := c.get(ctx, "/api/config", &cfg); err != nil {
		return nil, err
	}
	return cfg.Cameras, nil
}

// Snapshot fetches the latest JPEG frame for a camera. quality (1-100)
// and height (pixels) are passed through when positive; zero means let
// Frigate pick.
func (c *Client) Snapshot(ctx context.Context, camera string, quality, height int) ([]byte, error) {
	params := url.Values{}
	if quality > 0 {
		params.Set("quality", strconv.Itoa(quality))
	}
	if height > 0 {
		params.Set("h", strconv.Itoa(height))
	}

	path := "/api/" + url.PathEscape(camera) + "/latest.jpg"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.getImage(ctx, path)
}

// EventThumbnail fetches the JPEG thumbnail for a detection event.
func (c *Client) EventThumbnail(ctx context.Context, eventID string) ([]byte, error) {
	return c.getImage(ctx, "/api/events/"+url.PathEscape(eventID)+"/thumbnail.jpg")
}

// EventSnapshot fetches the full JPEG snapshot for a detection event.
func (c *Client) EventSnapshot(ctx context.Context, eventID string) ([]byte, error) {
	return c.getImage(ctx, "/api/events/"+url.PathEscape(eventID)+"/snapshot.jpg")
}

func (c *Client) getImage(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling frigate %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrRequestFailed, path, resp.StatusCode)
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("reading frigate image: %w", err)
	}
	return img, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling frigate %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // Diagnostic only
		return fmt.Errorf("%w: %s returned %d: %s", ErrRequestFailed, path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding frigate response: %w", err)
	}
	return nil
}
