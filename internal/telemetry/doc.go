// Package telemetry implements the field-normalization pipeline for the
// fleet streaming bridge.
//
// Vehicles report telemetry as tagged values keyed by vendor field names
// (e.g. "VehicleSpeed"). This package converts each raw field into an
// MQTT-ready value:
//
//   - Unit conversion (miles → km, mph → km/h, °F → °C)
//   - Type coercion driven by per-field metadata (real, integer, boolean, …)
//   - Canonical topic derivation (camelCase → snake_case, with fixed topic
//     names for distance and speed fields)
//
// # Field metadata
//
// Per-field metadata (semantic type, category) is loaded once at startup
// from a CSV export of the vendor's streaming field list. A missing or
// malformed file degrades to a built-in table covering the distance, speed,
// temperature and location field sets — metadata problems never abort
// startup.
//
// # Discovery
//
// Field identifiers without metadata still produce a topic (mechanically
// derived) and are recorded in a discovery set so operators get a one-time
// notice per previously-unseen field. The set is safe for concurrent use
// by all vehicle sessions.
//
// # Thread Safety
//
// The Registry and Converter are read-mostly and safe for concurrent use
// from multiple goroutines.
package telemetry
