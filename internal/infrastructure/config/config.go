package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Home Panel Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Stream     StreamConfig     `yaml:"stream"`
	Cameras    CamerasConfig    `yaml:"cameras"`
	Proxmox    ProxmoxConfig    `yaml:"proxmox"`
	Frigate    FrigateConfig    `yaml:"frigate"`
	Automation AutomationConfig `yaml:"automation"`
	AIHub      AIHubConfig      `yaml:"ai_hub"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// StreamConfig contains settings for the upstream MQTT gateway event stream.
type StreamConfig struct {
	// URL is the SSE endpoint of the MQTT HTTP gateway.
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// BufferSize is the per-subscriber inbox capacity. When a subscriber's
	// inbox is full, new events for that subscriber are dropped.
	BufferSize int `yaml:"buffer_size"`

	// KeepaliveInterval is how long (seconds) a subscriber waits without a
	// matching event before receiving a keepalive marker.
	KeepaliveInterval int `yaml:"keepalive_interval"`

	// ReconnectInterval is the fixed delay (seconds) between upstream
	// reconnect attempts. Reconnection retries forever.
	ReconnectInterval int `yaml:"reconnect_interval"`
}

// CamerasConfig contains camera signaling settings.
type CamerasConfig struct {
	// Go2RTCURL is the base WebSocket URL of the go2rtc instance,
	// e.g. "ws://10.0.0.5:1984".
	Go2RTCURL string `yaml:"go2rtc_url"`

	// MaxMessageSize is the per-message read limit (bytes) on both legs of
	// the signaling proxy. Offers and candidates can be large.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// ProxmoxConfig contains Proxmox VE cluster settings.
type ProxmoxConfig struct {
	Servers []ProxmoxServerConfig `yaml:"servers"`
	Timeout int                   `yaml:"timeout"`
}

// ProxmoxServerConfig describes a single Proxmox server.
type ProxmoxServerConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	TokenID string `yaml:"token_id"`
	Secret  string `yaml:"secret"`
	// VerifyTLS defaults to false: home Proxmox installs ship self-signed
	// certificates.
	VerifyTLS bool `yaml:"verify_tls"`
}

// FrigateConfig contains Frigate NVR settings.
type FrigateConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"`
}

// AutomationConfig contains automation engine settings.
type AutomationConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"`
}

// AIHubConfig contains AI hub settings.
type AIHubConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains settings for the optional broker status announcer.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains metrics collection and retention settings.
type MetricsConfig struct {
	// ServerInterval is how often (seconds) node metrics are collected.
	ServerInterval int `yaml:"server_interval"`
	// VMInterval is how often (seconds) VM metrics are collected.
	VMInterval int `yaml:"vm_interval"`
	// DownsampleSchedule is a cron expression for the daily downsampling run.
	DownsampleSchedule string          `yaml:"downsample_schedule"`
	Retention          RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains retention windows (hours) per aggregation level.
type RetentionConfig struct {
	Raw       int `yaml:"raw"`
	Minute    int `yaml:"minute"`
	FiveMin   int `yaml:"five_min"`
	ThirtyMin int `yaml:"thirty_min"`
	Hour      int `yaml:"hour"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	// AccessToken is the shared dashboard credential exchanged at login
	// for a JWT. Compared in constant time.
	AccessToken string    `yaml:"access_token"`
	JWT         JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// ExpireDays is the access token lifetime in days.
	ExpireDays int `yaml:"expire_days"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMEPANEL_SECTION_KEY
// For example: HOMEPANEL_DATABASE_PATH, HOMEPANEL_STREAM_URL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Stream: StreamConfig{
			BufferSize:        100,
			KeepaliveInterval: 30,
			ReconnectInterval: 5,
		},
		Cameras: CamerasConfig{
			MaxMessageSize: 10 * 1024 * 1024,
		},
		Proxmox: ProxmoxConfig{
			Timeout: 10,
		},
		Frigate: FrigateConfig{
			Timeout: 10,
		},
		Automation: AutomationConfig{
			Timeout: 10,
		},
		AIHub: AIHubConfig{
			Timeout: 60,
		},
		Database: DatabaseConfig{
			Path:        "./data/homepanel.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homepanel-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Metrics: MetricsConfig{
			ServerInterval:     10,
			VMInterval:         30,
			DownsampleSchedule: "0 3 * * *",
			Retention: RetentionConfig{
				Raw:       1,
				Minute:    24,
				FiveMin:   24 * 7,
				ThirtyMin: 24 * 30,
				Hour:      24 * 365,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				ExpireDays: 7,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMEPANEL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("HOMEPANEL_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Stream
	if v := os.Getenv("HOMEPANEL_STREAM_URL"); v != "" {
		cfg.Stream.URL = v
	}
	if v := os.Getenv("HOMEPANEL_STREAM_USERNAME"); v != "" {
		cfg.Stream.Username = v
	}
	if v := os.Getenv("HOMEPANEL_STREAM_PASSWORD"); v != "" {
		cfg.Stream.Password = v
	}

	// Database
	if v := os.Getenv("HOMEPANEL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT announcer
	if v := os.Getenv("HOMEPANEL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMEPANEL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMEPANEL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HOMEPANEL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - shared secrets (IMPORTANT: always override in production)
	if v := os.Getenv("HOMEPANEL_ACCESS_TOKEN"); v != "" {
		cfg.Security.AccessToken = v
	}
	if v := os.Getenv("HOMEPANEL_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Stream validation
	if c.Stream.URL == "" {
		errs = append(errs, "stream.url is required (set HOMEPANEL_STREAM_URL environment variable)")
	}
	if c.Stream.BufferSize < 1 {
		errs = append(errs, "stream.buffer_size must be at least 1")
	}
	if c.Stream.KeepaliveInterval < 1 {
		errs = append(errs, "stream.keepalive_interval must be at least 1 second")
	}
	if c.Stream.ReconnectInterval < 1 {
		errs = append(errs, "stream.reconnect_interval must be at least 1 second")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Proxmox validation
	for i, srv := range c.Proxmox.Servers {
		if srv.Name == "" {
			errs = append(errs, fmt.Sprintf("proxmox.servers[%d].name is required", i))
		}
		if srv.URL == "" {
			errs = append(errs, fmt.Sprintf("proxmox.servers[%d].url is required", i))
		}
	}

	// Security validation - shared secrets are REQUIRED.
	// The dashboard fronts VM power controls and camera streams; empty or
	// weak secrets would let anyone on the network forge tokens.
	const minJWTSecretLength = 32
	if c.Security.AccessToken == "" {
		errs = append(errs, "security.access_token is required (set HOMEPANEL_ACCESS_TOKEN environment variable)")
	}
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set HOMEPANEL_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// KeepaliveDuration returns the subscriber keepalive interval as a Duration.
func (c *StreamConfig) KeepaliveDuration() time.Duration {
	return time.Duration(c.KeepaliveInterval) * time.Second
}

// ReconnectDuration returns the fixed upstream reconnect delay as a Duration.
func (c *StreamConfig) ReconnectDuration() time.Duration {
	return time.Duration(c.ReconnectInterval) * time.Second
}
