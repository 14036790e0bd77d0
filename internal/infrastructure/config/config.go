package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// maxVehicles caps the fleet size a single bridge instance will stream.
const maxVehicles = 10

// Config is the root configuration structure for Fleet Bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig    `yaml:"mqtt"`
	Stream   StreamConfig  `yaml:"stream"`
	Vehicles []Vehicle     `yaml:"vehicles"`
	Fields   FieldsConfig  `yaml:"fields"`
	Logging  LoggingConfig `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
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

// StreamConfig contains upstream telemetry WebSocket settings.
type StreamConfig struct {
	URI                string          `yaml:"uri"`
	Token              string          `yaml:"token"`
	AcceptInvalidCerts bool            `yaml:"accept_invalid_certs"`
	PingInterval       int             `yaml:"ping_interval"`
	PingTimeout        int             `yaml:"ping_timeout"`
	SubscribeTimeout   int             `yaml:"subscribe_timeout"`
	Reconnect          ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains the exponential backoff parameters used when the
// upstream stream drops.
type ReconnectConfig struct {
	BaseDelay int     `yaml:"base_delay"`
	MaxDelay  int     `yaml:"max_delay"`
	Jitter    float64 `yaml:"jitter"`
}

// Vehicle identifies one streamed vehicle. Number is the stable index used
// in topic paths so that renaming or re-ordering VINs does not move topics.
type Vehicle struct {
	VIN    string `yaml:"vin"`
	Number int    `yaml:"number"`
}

// FieldsConfig points at the field metadata CSV.
type FieldsConfig struct {
	File string `yaml:"file"`
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
// Environment variables follow the pattern: FLEETBRIDGE_SECTION_KEY
// For example: FLEETBRIDGE_MQTT_HOST, FLEETBRIDGE_STREAM_TOKEN
//
// Vehicles may also be supplied via VIN_CAR_1 .. VIN_CAR_10; each set
// variable appends a vehicle with the matching number.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyVehicleEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fleetbridge",
			},
			QoS:         1,
			TopicPrefix: "myteslamate/cars",
		},
		Stream: StreamConfig{
			PingInterval:     10,
			PingTimeout:      30,
			SubscribeTimeout: 10,
			Reconnect: ReconnectConfig{
				BaseDelay: 5,
				MaxDelay:  300,
				Jitter:    0.1,
			},
		},
		Fields: FieldsConfig{
			File: "./configs/fleet_streaming_fields.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FLEETBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("FLEETBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FLEETBRIDGE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("FLEETBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FLEETBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("FLEETBRIDGE_MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}

	// Stream
	if v := os.Getenv("FLEETBRIDGE_STREAM_URI"); v != "" {
		cfg.Stream.URI = v
	}
	if v := os.Getenv("FLEETBRIDGE_STREAM_TOKEN"); v != "" {
		cfg.Stream.Token = v
	}

	// Logging
	if v := os.Getenv("FLEETBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyVehicleEnv appends vehicles declared through VIN_CAR_n variables.
// In CI, where no real fleet exists, placeholder VINs are injected so the
// full pipeline can still run end to end.
func applyVehicleEnv(cfg *Config) {
	for i := 1; i <= maxVehicles; i++ {
		vin := os.Getenv(fmt.Sprintf("VIN_CAR_%d", i))
		if vin == "" {
			continue
		}
		cfg.Vehicles = append(cfg.Vehicles, Vehicle{VIN: vin, Number: i})
	}

	if len(cfg.Vehicles) == 0 && (os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "") {
		cfg.Vehicles = []Vehicle{
			{VIN: "TESTVIN123456789", Number: 1},
			{VIN: "TESTVIN987654321", Number: 2},
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	// Stream validation
	if c.Stream.URI == "" {
		errs = append(errs, "stream.uri is required")
	}
	if c.Stream.PingInterval < 1 {
		errs = append(errs, "stream.ping_interval must be at least 1 second")
	}
	if c.Stream.PingTimeout < c.Stream.PingInterval {
		errs = append(errs, "stream.ping_timeout must be at least stream.ping_interval")
	}
	if c.Stream.SubscribeTimeout < 1 {
		errs = append(errs, "stream.subscribe_timeout must be at least 1 second")
	}
	if c.Stream.Reconnect.BaseDelay < 1 {
		errs = append(errs, "stream.reconnect.base_delay must be at least 1 second")
	}
	if c.Stream.Reconnect.MaxDelay < c.Stream.Reconnect.BaseDelay {
		errs = append(errs, "stream.reconnect.max_delay must be at least base_delay")
	}
	if c.Stream.Reconnect.Jitter < 0 || c.Stream.Reconnect.Jitter > 1 {
		errs = append(errs, "stream.reconnect.jitter must be between 0 and 1")
	}

	// Fleet validation. A bridge with nothing to stream is a deployment
	// mistake, not an idle success.
	if len(c.Vehicles) == 0 {
		errs = append(errs, "at least one vehicle is required (set vehicles in config or VIN_CAR_1)")
	}
	if len(c.Vehicles) > maxVehicles {
		errs = append(errs, fmt.Sprintf("at most %d vehicles are supported", maxVehicles))
	}
	seen := make(map[int]bool, len(c.Vehicles))
	for _, v := range c.Vehicles {
		if v.VIN == "" {
			errs = append(errs, "vehicles entries require a vin")
		}
		if v.Number < 1 || v.Number > maxVehicles {
			errs = append(errs, fmt.Sprintf("vehicle %q: number must be between 1 and %d", v.VIN, maxVehicles))
			continue
		}
		if seen[v.Number] {
			errs = append(errs, fmt.Sprintf("vehicle number %d assigned more than once", v.Number))
		}
		seen[v.Number] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PingIntervalDuration returns the WebSocket ping interval as a Duration.
func (c *Config) PingIntervalDuration() time.Duration {
	return time.Duration(c.Stream.PingInterval) * time.Second
}

// PingTimeoutDuration returns the WebSocket pong deadline as a Duration.
func (c *Config) PingTimeoutDuration() time.Duration {
	return time.Duration(c.Stream.PingTimeout) * time.Second
}

// SubscribeTimeoutDuration returns the subscription confirm window as a Duration.
func (c *Config) SubscribeTimeoutDuration() time.Duration {
	return time.Duration(c.Stream.SubscribeTimeout) * time.Second
}

// BaseDelayDuration returns the reconnect base delay as a Duration.
func (c *Config) BaseDelayDuration() time.Duration {
	return time.Duration(c.Stream.Reconnect.BaseDelay) * time.Second
}

// MaxDelayDuration returns the reconnect delay ceiling as a Duration.
func (c *Config) MaxDelayDuration() time.Duration {
	return time.Duration(c.Stream.Reconnect.MaxDelay) * time.Second
}
