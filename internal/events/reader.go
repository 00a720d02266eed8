package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-panel-core/internal/metrics"
)

// Scanner sizing for the upstream stream. Camera and bridge payloads can
// run to hundreds of kilobytes on a single SSE line.
const (
	scannerInitialBuffer = 64 * 1024
	scannerMaxLine       = 1024 * 1024
)

// dataPrefix marks SSE payload lines. Everything else (comments, event
// names, blank separators) is ignored.
var dataPrefix = []byte("data:")

// reader maintains the single upstream SSE connection for a pool.
//
// It reconnects forever on a fixed interval. There is no backoff growth:
// the gateway lives on the same LAN, and a constant short retry gets the
// dashboard live again quickly after a gateway restart.
type reader struct {
	cfg      config.StreamConfig
	logger   *logging.Logger
	registry *registry
	client   *http.Client

	connected atomic.Bool
}

func newReader(cfg config.StreamConfig, logger *logging.Logger, reg *registry) *reader {
	return &reader{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		// No overall client timeout: the SSE response body is read
		// indefinitely. Cancellation comes from the request context.
		client: &http.Client{},
	}
}

// run connects, consumes, and reconnects until ctx is cancelled.
func (r *reader) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			r.logger.Info("upstream reader stopped")
			return
		}

		if err := r.connectAndConsume(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("upstream stream error", "error", err)
		}

		if ctx.Err() != nil {
			r.logger.Info("upstream reader stopped")
			return
		}

		metrics.Reconnects.Inc()
		select {
		case <-ctx.Done():
			r.logger.Info("upstream reader stopped")
			return
		case <-time.After(r.cfg.ReconnectDuration()):
		}
	}
}

// connectAndConsume opens the SSE stream and processes it until it ends.
func (r *reader) connectAndConsume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("building stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if r.cfg.Username != "" {
		req.SetBasicAuth(r.cfg.Username, r.cfg.Password)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to upstream stream: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful to do on close error

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused, then bail.
		_, _ = io.CopyN(io.Discard, resp.Body, 512) //nolint:errcheck // Best effort
		return fmt.Errorf("upstream stream returned status %d", resp.StatusCode)
	}

	r.connected.Store(true)
	defer r.connected.Store(false)
	r.logger.Info("connected to upstream event stream", "url", r.cfg.URL)

	return r.consume(resp.Body)
}

// consume parses SSE lines from the stream body and broadcasts events.
// Malformed lines are logged and skipped; they never terminate the stream.
func (r *reader) consume(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxLine)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}

		ev, err := parseDataLine(line)
		if err != nil {
			r.logger.Warn("skipping malformed stream line", "error", err)
			continue
		}

		metrics.EventsReceived.Inc()
		r.registry.broadcast(ev)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading upstream stream: %w", err)
	}
	return io.EOF
}

// parseDataLine turns a "data: {...}" line into an Event. The payload is
// kept as raw JSON; only the topic field is pulled out for routing.
func parseDataLine(line []byte) (*Event, error) {
	payload := bytes.TrimSpace(bytes.TrimPrefix(line, dataPrefix))
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty data line")
	}

	var frame struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("parsing event JSON: %w", err)
	}
	if frame.Topic == "" {
		return nil, fmt.Errorf("event missing topic field")
	}

	// The scanner reuses its buffer between lines; the event owns a copy.
	raw := make(json.RawMessage, len(payload))
	copy(raw, payload)

	return &Event{
		Topic:     frame.Topic,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// isConnected reports whether a live upstream connection is held.
func (r *reader) isConnected() bool {
	return r.connected.Load()
}
