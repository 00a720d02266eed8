// Package proxy relays WebRTC signaling between dashboard clients and the
// go2rtc streaming server over paired WebSocket connections.
package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-panel-core/internal/metrics"
)

// Close codes sent to the dashboard so it can distinguish "fix your token"
// from "the camera backend is down, retry shortly".
const (
	CloseAuthFailure     = websocket.ClosePolicyViolation // 1008
	CloseUpstreamFailure = websocket.CloseTryAgainLater   // 1013
)

// closeWriteTimeout bounds the best-effort close handshake on teardown.
const closeWriteTimeout = 5 * time.Second

// upstreamDialTimeout bounds the go2rtc companion dial.
const upstreamDialTimeout = 10 * time.Second

// TokenVerifier checks a credential presented on the query string.
// Browsers cannot set headers on a WebSocket handshake, so the token
// travels as a query parameter.
type TokenVerifier func(token string) error

// Signaling proxies signaling sessions to go2rtc.
type Signaling struct {
	cfg      config.CamerasConfig
	logger   *logging.Logger
	verify   TokenVerifier
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
}

// NewSignaling creates a signaling proxy.
func NewSignaling(cfg config.CamerasConfig, logger *logging.Logger, verify TokenVerifier) *Signaling {
	return &Signaling{
		cfg:    cfg,
		logger: logger.With("component", "signaling"),
		verify: verify,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			EnableCompression: false,
			// The API middleware already enforces CORS; the handshake
			// origin check would only duplicate it.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout:  upstreamDialTimeout,
			EnableCompression: false,
		},
	}
}

// ServeHTTP upgrades the request and relays it to go2rtc.
//
// Query parameters:
//   - src: the go2rtc stream name (required)
//   - token: the session JWT (required)
//
// The token is checked after the upgrade so the client receives a proper
// WebSocket close code rather than a failed handshake it cannot inspect.
func (s *Signaling) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	token := r.URL.Query().Get("token")

	client, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("signaling upgrade failed", "error", err)
		return
	}
	defer client.Close() //nolint:errcheck // Teardown path

	if src == "" {
		s.closeWith(client, CloseAuthFailure, "missing src")
		return
	}
	if err := s.verify(token); err != nil {
		s.logger.Warn("signaling auth rejected", "src", src)
		s.closeWith(client, CloseAuthFailure, "invalid token")
		return
	}

	upstream, err := s.dialUpstream(src)
	if err != nil {
		s.logger.Warn("go2rtc dial failed", "src", src, "error", err)
		s.closeWith(client, CloseUpstreamFailure, "camera backend unavailable")
		return
	}
	defer upstream.Close() //nolint:errcheck // Teardown path

	client.SetReadLimit(s.cfg.MaxMessageSize)
	upstream.SetReadLimit(s.cfg.MaxMessageSize)

	metrics.SignalSessions.Inc()
	defer metrics.SignalSessions.Dec()
	s.logger.Info("signaling session opened", "src", src)

	// Two independent forwarding loops. The first to fail ends the
	// session; the deferred closes unblock the other loop's read.
	errc := make(chan error, 2)
	go func() { errc <- relay(upstream, client) }()
	go func() { errc <- relay(client, upstream) }()

	err = <-errc
	s.logger.Info("signaling session closed", "src", src, "reason", err)

	// Best-effort close handshake towards both peers before the deferred
	// hard closes.
	deadline := time.Now().Add(closeWriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = client.WriteControl(websocket.CloseMessage, msg, deadline)   //nolint:errcheck // Best effort
	_ = upstream.WriteControl(websocket.CloseMessage, msg, deadline) //nolint:errcheck // Best effort
}

// dialUpstream opens the companion go2rtc WebSocket for a stream source.
func (s *Signaling) dialUpstream(src string) (*websocket.Conn, error) {
	u := fmt.Sprintf("%s/api/ws?src=%s", s.cfg.Go2RTCURL, url.QueryEscape(src))
	conn, resp, err := s.dialer.Dial(u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialling go2rtc: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dialling go2rtc: %w", err)
	}
	return conn, nil
}

// closeWith sends a close frame with the given code and hangs up.
func (s *Signaling) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(closeWriteTimeout)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline) //nolint:errcheck // Best effort
}

// relay copies messages from src to dst verbatim, preserving the message
// type. Signaling traffic is JSON text frames plus occasional binary
// candidates; the proxy does not care which.
func relay(dst, src *websocket.Conn) error {
	for {
		mt, msg, err := src.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := dst.WriteMessage(mt, msg); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
}
