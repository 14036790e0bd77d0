package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validBase() *Config {
	cfg := defaultConfig()
	cfg.Stream.URI = "wss://stream.example.com/streaming/"
	cfg.Vehicles = []Vehicle{{VIN: "5YJ3E1EA7KF000001", Number: 1}}
	return cfg
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
mqtt:
  broker:
    host: "mqtt.example.com"
    port: 8883
    tls: true
    client_id: "test-bridge"
  qos: 1
  topic_prefix: "fleet/cars"
stream:
  uri: "wss://stream.example.com/streaming/"
  token: "abc123"
vehicles:
  - vin: "5YJ3E1EA7KF000001"
    number: 1
  - vin: "5YJ3E1EA7KF000002"
    number: 2
`
	cfg, err := Load(writeConfigFile(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS should be true")
	}
	if cfg.MQTT.TopicPrefix != "fleet/cars" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "fleet/cars")
	}
	if cfg.Stream.Token != "abc123" {
		t.Errorf("Stream.Token = %q, want %q", cfg.Stream.Token, "abc123")
	}
	if len(cfg.Vehicles) != 2 {
		t.Fatalf("len(Vehicles) = %d, want 2", len(cfg.Vehicles))
	}
	if cfg.Vehicles[1].Number != 2 {
		t.Errorf("Vehicles[1].Number = %d, want 2", cfg.Vehicles[1].Number)
	}

	// Defaults survive a partial file.
	if cfg.Stream.PingInterval != 10 {
		t.Errorf("Stream.PingInterval = %d, want default 10", cfg.Stream.PingInterval)
	}
	if cfg.Stream.Reconnect.MaxDelay != 300 {
		t.Errorf("Stream.Reconnect.MaxDelay = %d, want default 300", cfg.Stream.Reconnect.MaxDelay)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfigFile(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_NoVehiclesFails(t *testing.T) {
	content := `
stream:
  uri: "wss://stream.example.com/streaming/"
`
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")

	_, err := Load(writeConfigFile(t, content))
	if err == nil {
		t.Error("Load() expected validation error for empty fleet, got nil")
	}
}

func TestLoad_CIPlaceholderVehicles(t *testing.T) {
	content := `
stream:
  uri: "wss://stream.example.com/streaming/"
`
	t.Setenv("CI", "true")

	cfg, err := Load(writeConfigFile(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Vehicles) != 2 {
		t.Fatalf("len(Vehicles) = %d, want 2 placeholders", len(cfg.Vehicles))
	}
	if cfg.Vehicles[0].VIN != "TESTVIN123456789" {
		t.Errorf("Vehicles[0].VIN = %q, want placeholder", cfg.Vehicles[0].VIN)
	}
}

func TestLoad_VehiclesFromEnv(t *testing.T) {
	content := `
stream:
  uri: "wss://stream.example.com/streaming/"
`
	t.Setenv("VIN_CAR_1", "5YJ3E1EA7KF000001")
	t.Setenv("VIN_CAR_3", "5YJ3E1EA7KF000003")

	cfg, err := Load(writeConfigFile(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Vehicles) != 2 {
		t.Fatalf("len(Vehicles) = %d, want 2", len(cfg.Vehicles))
	}
	// Gaps in the numbering are preserved, not compacted.
	if cfg.Vehicles[1].Number != 3 {
		t.Errorf("Vehicles[1].Number = %d, want 3", cfg.Vehicles[1].Number)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing stream uri",
			mutate:  func(c *Config) { c.Stream.URI = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "empty topic prefix",
			mutate:  func(c *Config) { c.MQTT.TopicPrefix = "" },
			wantErr: true,
		},
		{
			name:    "no vehicles",
			mutate:  func(c *Config) { c.Vehicles = nil },
			wantErr: true,
		},
		{
			name: "too many vehicles",
			mutate: func(c *Config) {
				c.Vehicles = nil
				for i := 1; i <= maxVehicles+1; i++ {
					c.Vehicles = append(c.Vehicles, Vehicle{VIN: "TESTVIN", Number: i})
				}
			},
			wantErr: true,
		},
		{
			name: "duplicate vehicle number",
			mutate: func(c *Config) {
				c.Vehicles = []Vehicle{
					{VIN: "5YJ3E1EA7KF000001", Number: 1},
					{VIN: "5YJ3E1EA7KF000002", Number: 1},
				}
			},
			wantErr: true,
		},
		{
			name:    "vehicle without vin",
			mutate:  func(c *Config) { c.Vehicles = []Vehicle{{Number: 1}} },
			wantErr: true,
		},
		{
			name:    "jitter out of range",
			mutate:  func(c *Config) { c.Stream.Reconnect.Jitter = 1.5 },
			wantErr: true,
		},
		{
			name: "max delay below base",
			mutate: func(c *Config) {
				c.Stream.Reconnect.BaseDelay = 60
				c.Stream.Reconnect.MaxDelay = 30
			},
			wantErr: true,
		},
		{
			name: "ping timeout below interval",
			mutate: func(c *Config) {
				c.Stream.PingInterval = 30
				c.Stream.PingTimeout = 10
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("FLEETBRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("FLEETBRIDGE_MQTT_PORT", "8883")
	t.Setenv("FLEETBRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("FLEETBRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("FLEETBRIDGE_MQTT_TOPIC_PREFIX", "fleet/cars")
	t.Setenv("FLEETBRIDGE_STREAM_URI", "wss://env.example.com/streaming/")
	t.Setenv("FLEETBRIDGE_STREAM_TOKEN", "env-token")

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.MQTT.TopicPrefix != "fleet/cars" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "fleet/cars")
	}
	if cfg.Stream.URI != "wss://env.example.com/streaming/" {
		t.Errorf("Stream.URI = %q, want env override", cfg.Stream.URI)
	}
	if cfg.Stream.Token != "env-token" {
		t.Errorf("Stream.Token = %q, want %q", cfg.Stream.Token, "env-token")
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		Stream: StreamConfig{
			PingInterval:     10,
			PingTimeout:      30,
			SubscribeTimeout: 10,
			Reconnect: ReconnectConfig{
				BaseDelay: 5,
				MaxDelay:  300,
			},
		},
	}

	if got := cfg.PingIntervalDuration().Seconds(); got != 10 {
		t.Errorf("PingIntervalDuration() = %v, want 10", got)
	}
	if got := cfg.PingTimeoutDuration().Seconds(); got != 30 {
		t.Errorf("PingTimeoutDuration() = %v, want 30", got)
	}
	if got := cfg.SubscribeTimeoutDuration().Seconds(); got != 10 {
		t.Errorf("SubscribeTimeoutDuration() = %v, want 10", got)
	}
	if got := cfg.BaseDelayDuration().Seconds(); got != 5 {
		t.Errorf("BaseDelayDuration() = %v, want 5", got)
	}
	if got := cfg.MaxDelayDuration().Seconds(); got != 300 {
		t.Errorf("MaxDelayDuration() = %v, want 300", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.TopicPrefix == "" {
		t.Error("defaultConfig should have non-empty MQTT.TopicPrefix")
	}
	if cfg.Stream.Reconnect.BaseDelay != 5 {
		t.Errorf("defaultConfig Stream.Reconnect.BaseDelay = %d, want 5", cfg.Stream.Reconnect.BaseDelay)
	}
	if cfg.Stream.Reconnect.Jitter != 0.1 {
		t.Errorf("defaultConfig Stream.Reconnect.Jitter = %v, want 0.1", cfg.Stream.Reconnect.Jitter)
	}
	if cfg.Fields.File == "" {
		t.Error("defaultConfig should have non-empty Fields.File")
	}
}
