package telemetry

import (
	"math"
	"strconv"
)

// milesToKmRatio is the exact conversion factor used by the vehicle feed.
const milesToKmRatio = 1.60934

// MilesToKilometers converts a distance in miles to kilometres, rounded to
// two decimal places. The same conversion applies to speeds (mph → km/h).
//
// Accepts numeric values or numeric strings. Returns ok=false when the
// value is absent (nil or empty string) or not parseable as a number.
func MilesToKilometers(v any) (float64, bool) {
	miles, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return round2(miles * milesToKmRatio), true
}

// FahrenheitToCelsius converts a temperature in °F to °C, rounded to two
// decimal places. Same absence/parse-failure contract as MilesToKilometers.
func FahrenheitToCelsius(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return round2((f - 32) * 5 / 9), true
}

// toFloat extracts a float64 from the value types seen on the wire.
// Empty strings and nil count as absent, not as zero.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		if t == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// round2 rounds to two decimal places.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
