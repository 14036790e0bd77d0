package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// shiftStatePrefix is stripped from gear values so "ShiftStateP" publishes as "P".
const shiftStatePrefix = "ShiftState"

// fahrenheitThreshold drives the unit guess for temperature fields: the feed
// sometimes delivers °F and sometimes °C, so values above 50 are assumed
// Fahrenheit and converted. Values at or below 50 pass through unconverted.
// Downstream consumers depend on this exact threshold — do not "fix" it.
const fahrenheitThreshold = 50

// RawValue is the tagged value union as received on the wire. At most one
// tag is populated per instance. A value with Invalid set is accepted but
// yields no publishable output.
type RawValue struct {
	StringValue     *string         `json:"stringValue,omitempty"`
	DoubleValue     *float64        `json:"doubleValue,omitempty"`
	IntValue        *int64          `json:"intValue,omitempty"`
	BoolValue       *bool           `json:"boolValue,omitempty"`
	NumberValue     *float64        `json:"numberValue,omitempty"`
	LocationValue   map[string]any  `json:"locationValue,omitempty"`
	ShiftStateValue *string         `json:"shiftStateValue,omitempty"`
	Invalid         bool            `json:"invalid,omitempty"`
}

// NormalizedValue is the MQTT-ready result of converting one raw field.
// Formatted is the empty string exactly when the value must not be
// published (invalid flag set, unrecognised tag, or failed conversion).
type NormalizedValue struct {
	Topic     string
	Value     any
	Formatted string
}

// Converter turns raw tagged field values into normalized, MQTT-ready
// values, applying unit conversion and type coercion per the field
// registry's metadata.
//
// Safe for concurrent use by multiple vehicle sessions.
type Converter struct {
	registry *Registry
	logger   Logger
}

// NewConverter creates a converter backed by the given registry.
func NewConverter(registry *Registry, logger Logger) *Converter {
	return &Converter{
		registry: registry,
		logger:   logger,
	}
}

// Convert processes a single field and returns its topic, typed value and
// publish-ready string. Callers must publish only when Formatted is
// non-empty.
func (c *Converter) Convert(field string, raw RawValue) NormalizedValue {
	result := NormalizedValue{
		Topic: c.registry.Topic(field),
	}

	// Invalid values are accepted but never published.
	if raw.Invalid {
		c.logDebug("field flagged invalid, suppressed", "field", field)
		return result
	}

	// Locations pass through unconverted as structured values.
	if raw.LocationValue != nil && isLocationField(field) {
		result.Value = raw.LocationValue
		result.Formatted = marshalLocation(raw.LocationValue)
		return result
	}

	// Extract and coerce the populated tag.
	var value any
	switch {
	case raw.ShiftStateValue != nil:
		value = strings.TrimPrefix(*raw.ShiftStateValue, shiftStatePrefix)
	case raw.StringValue != nil:
		value = c.coerce(field, *raw.StringValue)
	case raw.DoubleValue != nil:
		value = c.coerce(field, *raw.DoubleValue)
	case raw.IntValue != nil:
		value = c.coerce(field, *raw.IntValue)
	case raw.BoolValue != nil:
		value = *raw.BoolValue
	case raw.NumberValue != nil:
		value = c.coerce(field, *raw.NumberValue)
	default:
		c.logWarn("unrecognised value tag, suppressed", "field", field)
		return result
	}

	// Domain conversion by field category. Distance and speed fields always
	// publish under their fixed metric topic, regardless of what the
	// registry derived for the field name.
	switch {
	case isDistanceField(field):
		result.Value = optional(MilesToKilometers(value))
		result.Topic = distanceTopics[field]
	case isSpeedField(field):
		result.Value = optional(MilesToKilometers(value))
		result.Topic = speedTopics[field]
	case isTemperatureField(field) && exceedsFahrenheitThreshold(value):
		result.Value = optional(FahrenheitToCelsius(value))
	default:
		result.Value = value
	}

	result.Formatted = formatValue(field, result.Value)
	return result
}

// coerce converts a raw tag value to the field's semantic type.
//
// Unknown fields infer float vs integer from the presence of a decimal
// point in the textual form; unparseable values pass through unchanged.
// Known fields coerce per metadata type, yielding nil (suppressed) on
// parse failure.
func (c *Converter) coerce(field string, v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && s == "" {
		return nil
	}

	semType, known := c.registry.TypeOf(field)
	if !known {
		return inferValue(field, v)
	}

	switch semType {
	case "real":
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		if isLocationField(field) {
			return f
		}
		return round2(f)
	case "integer":
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		return int64(f)
	case "boolean":
		return coerceBool(v)
	default:
		// enum, string and friends publish as text.
		return fmt.Sprint(v)
	}
}

// inferValue handles fields without metadata: numbers stay numeric (floats
// rounded to two decimals), everything else passes through untouched.
func inferValue(field string, v any) any {
	switch t := v.(type) {
	case float64:
		if isLocationField(field) {
			return t
		}
		return round2(t)
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		if strings.Contains(t, ".") {
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return v
			}
			if isLocationField(field) {
				return f
			}
			return round2(f)
		}
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return v
		}
		return n
	default:
		return v
	}
}

// coerceBool maps wire values to booleans: native bools pass through,
// strings match {"true","1","yes"} case-insensitively, numbers are true
// when non-zero.
func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(t) {
		case "true", "1", "yes":
			return true
		default:
			return false
		}
	default:
		if f, ok := toFloat(v); ok {
			return f != 0
		}
		return v != nil
	}
}

// exceedsFahrenheitThreshold reports whether a coerced value is numeric and
// above the Fahrenheit guess threshold.
func exceedsFahrenheitThreshold(v any) bool {
	f, ok := toFloat(v)
	return ok && f > fahrenheitThreshold
}

// optional maps a (value, ok) conversion result to a nullable value.
func optional(f float64, ok bool) any {
	if !ok {
		return nil
	}
	return f
}

// formatValue renders the MQTT payload text: nil → empty (suppressed),
// locations → serialized JSON, floats → fixed two decimals, everything
// else → plain text.
func formatValue(field string, v any) string {
	if v == nil {
		return ""
	}

	if isLocationField(field) {
		if loc, ok := v.(map[string]any); ok {
			return marshalLocation(loc)
		}
	}

	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}

	return fmt.Sprint(v)
}

// marshalLocation serializes a structured location value.
func marshalLocation(loc map[string]any) string {
	data, err := json.Marshal(loc)
	if err != nil {
		return ""
	}
	return string(data)
}

// logDebug logs a debug message if a logger is set.
func (c *Converter) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// logWarn logs a warning if a logger is set.
func (c *Converter) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
