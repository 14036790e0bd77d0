package mqtt

import "fmt"

// DefaultTopicPrefix is the topic prefix used when none is configured.
const DefaultTopicPrefix = "myteslamate/cars"

// Topics builds Fleet Bridge MQTT topics under a configurable prefix.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Vehicle topics are keyed by the vehicle's configured number, not its VIN,
// so topic paths stay stable if a VIN is swapped:
//
//	topics := mqtt.Topics{Prefix: "myteslamate/cars"}
//	topics.VehicleField(1, "speed_kmh")  // "myteslamate/cars/1/speed_kmh"
type Topics struct {
	Prefix string
}

// prefix returns the configured prefix, falling back to the default.
func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// VehicleField returns the topic for one normalized telemetry field.
//
// Example: myteslamate/cars/1/battery_level
func (t Topics) VehicleField(car int, field string) string {
	return fmt.Sprintf("%s/%d/%s", t.prefix(), car, field)
}

// VehicleState returns the topic for a vehicle's connectivity state.
//
// Example: myteslamate/cars/1/state
func (t Topics) VehicleState(car int) string {
	return fmt.Sprintf("%s/%d/state", t.prefix(), car)
}

// VehicleVIN returns the topic carrying the vehicle's VIN.
//
// Example: myteslamate/cars/1/vin
func (t Topics) VehicleVIN(car int) string {
	return fmt.Sprintf("%s/%d/vin", t.prefix(), car)
}

// BridgeStatus returns the bridge's own liveness topic, used for the
// retained online/offline status and the LWT.
//
// Example: myteslamate/cars/bridge/status
func (t Topics) BridgeStatus() string {
	return fmt.Sprintf("%s/bridge/status", t.prefix())
}
