package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
  name: "Test Home"
hub:
  backend: "mqtt"
  topic_root: "test/hub"
  request_timeout: "3s"
registry:
  refresh_timeout: "20s"
control:
  write_timeout: "2500ms"
  max_parallel_writes: 4
  resync_after_partial_failure: true
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Hub.TopicRoot != "test/hub" {
		t.Errorf("Hub.TopicRoot = %q, want %q", cfg.Hub.TopicRoot, "test/hub")
	}
	if cfg.Hub.RequestTimeout != 3*time.Second {
		t.Errorf("Hub.RequestTimeout = %v, want 3s", cfg.Hub.RequestTimeout)
	}
	if cfg.Registry.RefreshTimeout != 20*time.Second {
		t.Errorf("Registry.RefreshTimeout = %v, want 20s", cfg.Registry.RefreshTimeout)
	}
	if cfg.Control.WriteTimeout != 2500*time.Millisecond {
		t.Errorf("Control.WriteTimeout = %v, want 2.5s", cfg.Control.WriteTimeout)
	}
	if cfg.Control.MaxParallelWrites != 4 {
		t.Errorf("Control.MaxParallelWrites = %d, want 4", cfg.Control.MaxParallelWrites)
	}
	if !cfg.Control.ResyncAfterPartialFailure {
		t.Error("Control.ResyncAfterPartialFailure = false, want true")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	// Untouched sections keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled should default to true")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("FRAMEHUB_HUB_BACKEND", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Hub.Backend != HubBackendMemory {
		t.Errorf("Hub.Backend = %q, want %q", cfg.Hub.Backend, HubBackendMemory)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
site:
  id: ""
hub:
  backend: "zigbee"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"site.id is required", "hub.backend must be"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Hub.Backend = "zwave" },
			wantErr: "hub.backend",
		},
		{
			name:    "mqtt backend without topic root",
			mutate:  func(c *Config) { c.Hub.TopicRoot = "" },
			wantErr: "hub.topic_root",
		},
		{
			name: "hue backend without credentials",
			mutate: func(c *Config) {
				c.Hub.Backend = HubBackendHue
				c.Hub.Hue.Host = "10.0.0.2"
			},
			wantErr: "hub.hue.username",
		},
		{
			name: "hue backend complete",
			mutate: func(c *Config) {
				c.Hub.Backend = HubBackendHue
				c.Hub.Hue.Host = "10.0.0.2"
				c.Hub.Hue.Username = "abcdef"
			},
		},
		{
			name:    "memory backend ignores topic root",
			mutate:  func(c *Config) { c.Hub.Backend = HubBackendMemory; c.Hub.TopicRoot = "" },
			wantErr: "",
		},
		{
			name:    "zero write timeout",
			mutate:  func(c *Config) { c.Control.WriteTimeout = 0 },
			wantErr: "control.write_timeout",
		},
		{
			name:    "zero parallel writes",
			mutate:  func(c *Config) { c.Control.MaxParallelWrites = 0 },
			wantErr: "control.max_parallel_writes",
		},
		{
			name:    "zero refresh timeout",
			mutate:  func(c *Config) { c.Registry.RefreshTimeout = 0 },
			wantErr: "registry.refresh_timeout",
		},
		{
			name:    "audit without database",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.API.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("API.ReadTimeout() = %v, want 30", got)
	}
	if got := cfg.API.WriteTimeout().Seconds(); got != 45 {
		t.Errorf("API.WriteTimeout() = %v, want 45", got)
	}
	if got := cfg.API.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("API.IdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("FRAMEHUB_HUB_BACKEND", "hue")
	t.Setenv("FRAMEHUB_HUE_HOST", "10.0.0.2")
	t.Setenv("FRAMEHUB_HUE_USERNAME", "bridge-user")
	t.Setenv("FRAMEHUB_CONTROL_WRITE_TIMEOUT", "750ms")
	t.Setenv("FRAMEHUB_DATABASE_PATH", "/custom/path.db")
	t.Setenv("FRAMEHUB_MQTT_HOST", "mqtt.example.com")
	t.Setenv("FRAMEHUB_MQTT_PORT", "8883")
	t.Setenv("FRAMEHUB_MQTT_USERNAME", "testuser")
	t.Setenv("FRAMEHUB_MQTT_PASSWORD", "testpass")
	t.Setenv("FRAMEHUB_API_PORT", "9000")
	t.Setenv("FRAMEHUB_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("FRAMEHUB_LOG_LEVEL", "debug")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Hub.Backend", cfg.Hub.Backend, "hue"},
		{"Hub.Hue.Host", cfg.Hub.Hue.Host, "10.0.0.2"},
		{"Hub.Hue.Username", cfg.Hub.Hue.Username, "bridge-user"},
		{"Control.WriteTimeout", cfg.Control.WriteTimeout, 750 * time.Millisecond},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Broker.Port", cfg.MQTT.Broker.Port, 8883},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Port", cfg.API.Port, 9000},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestApplyEnvOverrides_InvalidValues(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("FRAMEHUB_API_PORT", "eighty")
	t.Setenv("FRAMEHUB_CONTROL_WRITE_TIMEOUT", "soon")

	err := applyEnvOverrides(cfg)
	if err == nil {
		t.Fatal("applyEnvOverrides() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "FRAMEHUB_API_PORT") || !strings.Contains(err.Error(), "FRAMEHUB_CONTROL_WRITE_TIMEOUT") {
		t.Errorf("error %q should name both variables", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default kept", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate: %v", err)
	}
	if cfg.Hub.Backend != HubBackendMQTT {
		t.Errorf("defaultConfig Hub.Backend = %q, want %q", cfg.Hub.Backend, HubBackendMQTT)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}

// TestLoad_ShippedExample keeps configs/config.yaml loadable.
func TestLoad_ShippedExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("Load(configs/config.yaml) error = %v", err)
	}
	if cfg.Hub.Backend != HubBackendMQTT {
		t.Errorf("Hub.Backend = %q, want %q", cfg.Hub.Backend, HubBackendMQTT)
	}
	if cfg.Site.Name != "My Home" {
		t.Errorf("Site.Name = %q, want %q", cfg.Site.Name, "My Home")
	}
}
