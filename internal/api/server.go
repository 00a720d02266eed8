// Package api provides the HTTP API for the home panel backend.
//
// It exposes the live event stream (SSE), the camera signaling proxy,
// upstream service passthroughs (Proxmox, Frigate, automations, AI hub),
// and the metrics history endpoints backed by the SQLite store.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/home-panel-core/internal/events"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/database"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/home-panel-core/internal/proxy"
	"github.com/nerrad567/home-panel-core/internal/store"
	"github.com/nerrad567/home-panel-core/internal/upstream/aihub"
	"github.com/nerrad567/home-panel-core/internal/upstream/automation"
	"github.com/nerrad567/home-panel-core/internal/upstream/frigate"
	"github.com/nerrad567/home-panel-core/internal/upstream/gateway"
	"github.com/nerrad567/home-panel-core/internal/upstream/proxmox"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Pool       *events.Pool
	Store      *store.Store
	DB         *database.DB
	Proxmox    []*proxmox.Client
	Frigate    *frigate.Client
	Automation *automation.Client
	AIHub      *aihub.Client
	Gateway    *gateway.Client
	Signaling  *proxy.Signaling
	MQTT       *mqtt.Client     // optional
	Influx     *influxdb.Client // optional
	Version    string
}

// Server is the HTTP API server for the panel backend.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	pool       *events.Pool
	store      *store.Store
	db         *database.DB
	proxmox    []*proxmox.Client
	frigate    *frigate.Client
	automation *automation.Client
	aihub      *aihub.Client
	gateway    *gateway.Client
	signaling  *proxy.Signaling
	mqtt       *mqtt.Client
	influx     *influxdb.Client
	version    string
	server     *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called. MQTT and Influx are
// optional; the corresponding health entries report "disabled" when nil.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Pool == nil {
		return nil, fmt.Errorf("event pool is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("metrics store is required")
	}

	return &Server{
		cfg:        deps.Config,
		secCfg:     deps.Security,
		logger:     deps.Logger.With("component", "api"),
		pool:       deps.Pool,
		store:      deps.Store,
		db:         deps.DB,
		proxmox:    deps.Proxmox,
		frigate:    deps.Frigate,
		automation: deps.Automation,
		aihub:      deps.AIHub,
		gateway:    deps.Gateway,
		signaling:  deps.Signaling,
		mqtt:       deps.MQTT,
		influx:     deps.Influx,
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	// WriteTimeout is deliberately zero: the event stream and the camera
	// signaling proxy hold connections open indefinitely. Read timeouts
	// still bound slow clients.
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
