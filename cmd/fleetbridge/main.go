// Fleet Bridge - vehicle telemetry stream to MQTT
//
// This is the main entry point for the Fleet Bridge application.
// The bridge maintains one WebSocket session per configured vehicle,
// normalizes the telemetry it receives and publishes the results to
// per-vehicle MQTT topics for dashboards and automations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetstream/fleetbridge/internal/bridges/fleet"
	"github.com/fleetstream/fleetbridge/internal/infrastructure/config"
	"github.com/fleetstream/fleetbridge/internal/infrastructure/logging"
	"github.com/fleetstream/fleetbridge/internal/infrastructure/mqtt"
	"github.com/fleetstream/fleetbridge/internal/telemetry"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Fleet Bridge",
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
	log.Info("configuration loaded", "path", configPath, "vehicles", len(cfg.Vehicles))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Load field metadata; a missing or broken file degrades to the
	// built-in table rather than failing startup.
	registry := telemetry.LoadRegistry(cfg.Fields.File, log.With("component", "telemetry"))
	converter := telemetry.NewConverter(registry, log.With("component", "telemetry"))

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Start the fleet bridge
	bridge, err := startFleetBridge(ctx, cfg, mqttClient, converter, log)
	if err != nil {
		return fmt.Errorf("starting fleet bridge: %w", err)
	}
	defer func() {
		log.Info("stopping fleet bridge")
		bridge.Stop()
	}()

	// Verify the broker connection before settling in
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Fleet Bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FLEETBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FLEETBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startFleetBridge wires the stream dialer and sessions and starts them.
func startFleetBridge(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client, converter *telemetry.Converter, log *logging.Logger) (*fleet.Bridge, error) {
	dialer := &fleet.WSDialer{
		PingInterval:       cfg.PingIntervalDuration(),
		PingTimeout:        cfg.PingTimeoutDuration(),
		AcceptInvalidCerts: cfg.Stream.AcceptInvalidCerts,
	}
	if cfg.Stream.AcceptInvalidCerts {
		log.Warn("TLS certificate verification disabled for stream endpoint")
	}

	vehicles := make([]fleet.VehicleSpec, 0, len(cfg.Vehicles))
	for _, v := range cfg.Vehicles {
		vehicles = append(vehicles, fleet.VehicleSpec{VIN: v.VIN, Car: v.Number})
	}

	bridge, err := fleet.NewBridge(fleet.BridgeOptions{
		URI:              cfg.Stream.URI,
		Token:            cfg.Stream.Token,
		SubscribeTimeout: cfg.SubscribeTimeoutDuration(),
		BaseDelay:        cfg.BaseDelayDuration(),
		MaxDelay:         cfg.MaxDelayDuration(),
		Jitter:           cfg.Stream.Reconnect.Jitter,
		Vehicles:         vehicles,
		Dialer:           dialer,
		Publisher:        mqttClient,
		Topics:           mqttClient.Topics(),
		QoS:              byte(cfg.MQTT.QoS),
		Converter:        converter,
		Logger:           log.With("component", "fleet"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating fleet bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting fleet bridge: %w", err)
	}
	log.Info("fleet bridge started", "vehicles", len(vehicles), "uri", cfg.Stream.URI)

	return bridge, nil
}
