// Package mqtt provides MQTT client connectivity for Fleet Bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Fleet Bridge is a one-way pump: vehicle telemetry arrives over a
// WebSocket stream and is published to per-vehicle MQTT topics. The
// bridge never subscribes; consumers (dashboards, automations, loggers)
// attach on the broker side.
//
//	Vehicle Stream → Fleet Bridge → MQTT Broker → Consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.Topics().VehicleField(1, "battery_level")
//	client.Publish(topic, []byte("75"), 1, true)
package mqtt
