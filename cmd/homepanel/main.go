// Home Panel Core - home infrastructure dashboard backend
//
// This is the main entry point for the Home Panel Core application.
// It aggregates the home lab behind a single API:
//   - Proxmox VE node and VM monitoring with power controls
//   - Frigate NVR events and live camera signaling (go2rtc proxy)
//   - Automation engine and AI hub passthroughs
//   - Real-time MQTT events re-fanned over Server-Sent Events
//   - SQLite metrics history with nightly downsampling
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/home-panel-core/migrations"

	"github.com/nerrad567/home-panel-core/internal/api"
	"github.com/nerrad567/home-panel-core/internal/auth"
	"github.com/nerrad567/home-panel-core/internal/collector"
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

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Home Panel Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	metricsStore := store.New(db, log)

	// Connect to the MQTT gateway event stream. The pool reconnects forever
	// in the background, so a gateway outage at boot is not fatal.
	pool := events.NewPool(cfg.Stream, log)
	if startErr := pool.Start(ctx); startErr != nil {
		return fmt.Errorf("starting event pool: %w", startErr)
	}
	defer func() {
		log.Info("stopping event pool")
		pool.Stop()
	}()
	log.Info("event pool started", "url", cfg.Stream.URL)

	// Connect to MQTT broker for presence announcements (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT announcer disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build upstream clients
	proxmoxClients := make([]*proxmox.Client, 0, len(cfg.Proxmox.Servers))
	proxmoxTimeout := time.Duration(cfg.Proxmox.Timeout) * time.Second
	for _, srv := range cfg.Proxmox.Servers {
		proxmoxClients = append(proxmoxClients, proxmox.New(srv, proxmoxTimeout, log))
	}
	log.Info("Proxmox clients configured", "servers", len(proxmoxClients))

	frigateClient := frigate.New(cfg.Frigate, log)
	automationClient := automation.New(cfg.Automation, log)
	aihubClient := aihub.New(cfg.AIHub, log)
	gatewayClient := gateway.New(cfg.Stream, log)

	// Start the metrics collector
	metricsCollector := collector.New(cfg.Metrics, log, metricsStore, proxmoxClients, pool, influxClient)
	if startErr := metricsCollector.Start(ctx); startErr != nil {
		return fmt.Errorf("starting metrics collector: %w", startErr)
	}
	defer func() {
		log.Info("stopping metrics collector")
		metricsCollector.Stop()
	}()
	log.Info("metrics collector started",
		"server_interval", cfg.Metrics.ServerInterval,
		"vm_interval", cfg.Metrics.VMInterval,
	)

	// Camera signaling proxy (optional - requires a go2rtc instance)
	var signaling *proxy.Signaling
	if cfg.Cameras.Go2RTCURL != "" {
		jwtSecret := cfg.Security.JWT.Secret
		signaling = proxy.NewSignaling(cfg.Cameras, log, func(token string) error {
			_, verifyErr := auth.ParseToken(token, jwtSecret)
			return verifyErr
		})
		log.Info("camera signaling proxy configured", "upstream", cfg.Cameras.Go2RTCURL)
	} else {
		log.Info("camera signaling disabled (no go2rtc URL configured)")
	}

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		Security:   cfg.Security,
		Logger:     log,
		Pool:       pool,
		Store:      metricsStore,
		DB:         db,
		Proxmox:    proxmoxClients,
		Frigate:    frigateClient,
		Automation: automationClient,
		AIHub:      aihubClient,
		Gateway:    gatewayClient,
		Signaling:  signaling,
		MQTT:       mqttClient,
		Influx:     influxClient,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
	)

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Metrics collector
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Event pool
	// 6. Database

	log.Info("Home Panel Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMEPANEL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMEPANEL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
//
// The event pool is deliberately excluded: it reconnects forever and its
// degraded state is reported through /healthz instead of blocking startup.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
