package telemetry

import (
	"regexp"
	"strings"
)

// Acronym runs are split before a following capitalised word so that
// "ACChargingPower" becomes "ac_charging_power" rather than "accharging_power".
var (
	acronymBoundary = regexp.MustCompile(`([A-Z][A-Z]+)([A-Z][a-z])`)
	camelBoundary   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// CanonicalName converts a vendor field identifier to its canonical MQTT
// topic suffix: lowercase, underscore-separated at word boundaries.
//
//	"VehicleSpeed"    → "vehicle_speed"
//	"ACChargingPower" → "ac_charging_power"
//	"simple"          → "simple"
//
// The derivation is deterministic: the same input always yields the same
// topic.
func CanonicalName(name string) string {
	s := acronymBoundary.ReplaceAllString(name, "${1}_${2}")
	s = camelBoundary.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}
