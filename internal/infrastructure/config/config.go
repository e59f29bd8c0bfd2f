package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Hub backends.
const (
	HubBackendMQTT   = "mqtt"
	HubBackendHue    = "hue"
	HubBackendMemory = "memory"
)

// Config is the root configuration structure for FrameHub Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Hub      HubConfig      `yaml:"hub"`
	Registry RegistryConfig `yaml:"registry"`
	Control  ControlConfig  `yaml:"control"`
	Database DatabaseConfig `yaml:"database"`
	Audit    AuditConfig    `yaml:"audit"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig identifies this installation.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// HubConfig selects and configures the home-automation hub adapter.
type HubConfig struct {
	// Backend is one of "mqtt", "hue" or "memory".
	Backend string `yaml:"backend"`

	// TopicRoot is the MQTT topic prefix of the hub protocol (mqtt backend).
	TopicRoot string `yaml:"topic_root"`

	// RequestTimeout bounds a single request/response exchange with the hub.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Hue HueConfig `yaml:"hue"`
}

// HueConfig contains Philips Hue bridge settings (hue backend).
type HueConfig struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	// PollInterval is how often light state is polled for changes.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RegistryConfig contains accessory mirror settings.
type RegistryConfig struct {
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// ControlConfig contains command coordinator settings.
type ControlConfig struct {
	WriteTimeout              time.Duration `yaml:"write_timeout"`
	MaxParallelWrites         int           `yaml:"max_parallel_writes"`
	ResyncAfterPartialFailure bool          `yaml:"resync_after_partial_failure"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AuditConfig controls the command journal.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// RetentionDays removes journal entries older than this. 0 keeps everything.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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
}

// InfluxDBConfig contains InfluxDB connection settings for command telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path skips step 2, so a deployment can be configured from the
// environment alone.
//
// Environment variables follow the pattern: FRAMEHUB_SECTION_KEY
// For example: FRAMEHUB_HUB_BACKEND, FRAMEHUB_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file, or ""
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "FrameHub",
		},
		Hub: HubConfig{
			Backend:        HubBackendMQTT,
			TopicRoot:      "framehub/hub",
			RequestTimeout: 10 * time.Second,
			Hue: HueConfig{
				PollInterval: 2 * time.Second,
			},
		},
		Registry: RegistryConfig{
			RefreshTimeout: 15 * time.Second,
		},
		Control: ControlConfig{
			WriteTimeout:      10 * time.Second,
			MaxParallelWrites: 8,
		},
		Database: DatabaseConfig{
			Path:        "./data/framehub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "framehub-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "framehub",
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FRAMEHUB_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}

	// Hub
	setString("FRAMEHUB_HUB_BACKEND", &cfg.Hub.Backend)
	setString("FRAMEHUB_HUB_TOPIC_ROOT", &cfg.Hub.TopicRoot)
	setDuration("FRAMEHUB_HUB_REQUEST_TIMEOUT", &cfg.Hub.RequestTimeout)
	setString("FRAMEHUB_HUE_HOST", &cfg.Hub.Hue.Host)
	setString("FRAMEHUB_HUE_USERNAME", &cfg.Hub.Hue.Username)

	// Control
	setDuration("FRAMEHUB_CONTROL_WRITE_TIMEOUT", &cfg.Control.WriteTimeout)

	// Database
	setString("FRAMEHUB_DATABASE_PATH", &cfg.Database.Path)

	// MQTT
	setString("FRAMEHUB_MQTT_HOST", &cfg.MQTT.Broker.Host)
	setInt("FRAMEHUB_MQTT_PORT", &cfg.MQTT.Broker.Port)
	setString("FRAMEHUB_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("FRAMEHUB_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	// API
	setString("FRAMEHUB_API_HOST", &cfg.API.Host)
	setInt("FRAMEHUB_API_PORT", &cfg.API.Port)

	// InfluxDB
	setString("FRAMEHUB_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	// Logging
	setString("FRAMEHUB_LOG_LEVEL", &cfg.Logging.Level)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Hub validation
	switch c.Hub.Backend {
	case HubBackendMQTT:
		if c.Hub.TopicRoot == "" {
			errs = append(errs, "hub.topic_root is required for the mqtt backend")
		}
	case HubBackendHue:
		if c.Hub.Hue.Host == "" {
			errs = append(errs, "hub.hue.host is required for the hue backend")
		}
		if c.Hub.Hue.Username == "" {
			errs = append(errs, "hub.hue.username is required for the hue backend (set FRAMEHUB_HUE_USERNAME)")
		}
		if c.Hub.Hue.PollInterval <= 0 {
			errs = append(errs, "hub.hue.poll_interval must be positive")
		}
	case HubBackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("hub.backend must be mqtt, hue or memory (got %q)", c.Hub.Backend))
	}
	if c.Hub.RequestTimeout <= 0 {
		errs = append(errs, "hub.request_timeout must be positive")
	}

	if c.Registry.RefreshTimeout <= 0 {
		errs = append(errs, "registry.refresh_timeout must be positive")
	}

	if c.Control.WriteTimeout <= 0 {
		errs = append(errs, "control.write_timeout must be positive")
	}
	if c.Control.MaxParallelWrites < 1 {
		errs = append(errs, "control.max_parallel_writes must be at least 1")
	}

	if c.Audit.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when audit is enabled")
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "audit.retention_days must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns timeouts.read as a Duration.
func (c APIConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// WriteTimeout returns timeouts.write as a Duration. Command handlers wait
// for the hub inside it, so keep it above control.write_timeout.
func (c APIConfig) WriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// IdleTimeout returns timeouts.idle as a Duration.
func (c APIConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
