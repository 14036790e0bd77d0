package telemetry

import (
	"testing"
)

func testConverter(t *testing.T) *Converter {
	t.Helper()
	reg := LoadRegistry(writeMetadataFile(t, testMetadataCSV), nil)
	return NewConverter(reg, nil)
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(n int64) *int64       { return &n }
func strPtr(s string) *string     { return &s }
func boolPtr(b bool) *bool        { return &b }

func TestConvert_DistanceField(t *testing.T) {
	c := testConverter(t)

	got := c.Convert("EstBatteryRange", RawValue{DoubleValue: floatPtr(100)})

	// The fixed km topic always wins, regardless of the derived name.
	if got.Topic != "battery_range_estimated_km" {
		t.Errorf("Topic = %q, want %q", got.Topic, "battery_range_estimated_km")
	}
	if got.Value != 160.93 {
		t.Errorf("Value = %v, want 160.93", got.Value)
	}
	if got.Formatted != "160.93" {
		t.Errorf("Formatted = %q, want %q", got.Formatted, "160.93")
	}
}

func TestConvert_SpeedField(t *testing.T) {
	c := testConverter(t)

	got := c.Convert("VehicleSpeed", RawValue{IntValue: intPtr(50)})

	if got.Topic != "speed_kmh" {
		t.Errorf("Topic = %q, want %q", got.Topic, "speed_kmh")
	}
	if got.Value != 80.47 {
		t.Errorf("Value = %v, want 80.47", got.Value)
	}
	if got.Formatted != "80.47" {
		t.Errorf("Formatted = %q, want %q", got.Formatted, "80.47")
	}
}

func TestConvert_TemperatureHeuristic(t *testing.T) {
	c := testConverter(t)

	// Above the threshold: assumed Fahrenheit, converted.
	hot := c.Convert("OutsideTemp", RawValue{DoubleValue: floatPtr(98.6)})
	if hot.Value != 37.0 {
		t.Errorf("98.6°F Value = %v, want 37.0", hot.Value)
	}
	if hot.Formatted != "37.00" {
		t.Errorf("98.6°F Formatted = %q, want %q", hot.Formatted, "37.00")
	}

	// At or below the threshold: assumed already Celsius, unconverted.
	mild := c.Convert("OutsideTemp", RawValue{DoubleValue: floatPtr(20)})
	if mild.Value != 20.0 {
		t.Errorf("20° Value = %v, want 20.0", mild.Value)
	}
	if mild.Formatted != "20.00" {
		t.Errorf("20° Formatted = %q, want %q", mild.Formatted, "20.00")
	}
}

func TestConvert_InvalidNeverPublishes(t *testing.T) {
	c := testConverter(t)

	tests := []struct {
		name string
		raw  RawValue
	}{
		{"invalid double", RawValue{DoubleValue: floatPtr(100), Invalid: true}},
		{"invalid string", RawValue{StringValue: strPtr("88"), Invalid: true}},
		{"invalid bool", RawValue{BoolValue: boolPtr(true), Invalid: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Convert("VehicleSpeed", tt.raw); got.Formatted != "" {
				t.Errorf("Formatted = %q, want empty (suppressed)", got.Formatted)
			}
		})
	}
}

func TestConvert_UnrecognisedTagSuppressed(t *testing.T) {
	c := testConverter(t)

	if got := c.Convert("VehicleSpeed", RawValue{}); got.Formatted != "" {
		t.Errorf("Formatted = %q, want empty (suppressed)", got.Formatted)
	}
}

func TestConvert_ShiftState(t *testing.T) {
	c := testConverter(t)

	tests := []struct {
		input string
		want  string
	}{
		{"ShiftStateP", "P"},
		{"ShiftStateD", "D"},
		{"ShiftStateR", "R"},
		{"N", "N"}, // no prefix, kept as-is
	}

	for _, tt := range tests {
		got := c.Convert("ShiftState", RawValue{ShiftStateValue: strPtr(tt.input)})
		if got.Formatted != tt.want {
			t.Errorf("ShiftStateValue %q: Formatted = %q, want %q", tt.input, got.Formatted, tt.want)
		}
	}
}

func TestConvert_Location(t *testing.T) {
	c := testConverter(t)

	loc := map[string]any{"latitude": 51.5074, "longitude": -0.1278}
	got := c.Convert("Location", RawValue{LocationValue: loc})

	if got.Topic != "location" {
		t.Errorf("Topic = %q, want %q", got.Topic, "location")
	}
	want := `{"latitude":51.5074,"longitude":-0.1278}`
	if got.Formatted != want {
		t.Errorf("Formatted = %q, want %q", got.Formatted, want)
	}
}

func TestConvert_LocationTagOnNonLocationField(t *testing.T) {
	c := testConverter(t)

	loc := map[string]any{"latitude": 51.5074}
	if got := c.Convert("VehicleSpeed", RawValue{LocationValue: loc}); got.Formatted != "" {
		t.Errorf("Formatted = %q, want empty (suppressed)", got.Formatted)
	}
}

func TestConvert_BooleanCoercion(t *testing.T) {
	c := testConverter(t)

	tests := []struct {
		name string
		raw  RawValue
		want string
	}{
		{"native bool", RawValue{BoolValue: boolPtr(true)}, "true"},
		{"string true", RawValue{StringValue: strPtr("true")}, "true"},
		{"string one", RawValue{StringValue: strPtr("1")}, "true"},
		{"string yes", RawValue{StringValue: strPtr("YES")}, "true"},
		{"string no", RawValue{StringValue: strPtr("no")}, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Convert("Locked", tt.raw)
			if got.Formatted != tt.want {
				t.Errorf("Formatted = %q, want %q", got.Formatted, tt.want)
			}
		})
	}
}

func TestConvert_IntegerCoercion(t *testing.T) {
	c := testConverter(t)

	got := c.Convert("BatteryLevel", RawValue{IntValue: intPtr(75)})
	if got.Formatted != "75" {
		t.Errorf("Formatted = %q, want %q", got.Formatted, "75")
	}

	// Real-typed wire values truncate to integer.
	got = c.Convert("BatteryLevel", RawValue{DoubleValue: floatPtr(75.9)})
	if got.Formatted != "75" {
		t.Errorf("truncated Formatted = %q, want %q", got.Formatted, "75")
	}
}

func TestConvert_UnknownFieldInference(t *testing.T) {
	c := testConverter(t)

	tests := []struct {
		name string
		raw  RawValue
		want string
	}{
		{"decimal string becomes float", RawValue{StringValue: strPtr("12.345")}, "12.35"},
		{"plain digits become integer", RawValue{StringValue: strPtr("42")}, "42"},
		{"unparseable passes through", RawValue{StringValue: strPtr("hello")}, "hello"},
		{"double rounds", RawValue{DoubleValue: floatPtr(3.14159)}, "3.14"},
		{"int stays int", RawValue{IntValue: intPtr(7)}, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Convert("SomeNewSensor", tt.raw)
			if got.Formatted != tt.want {
				t.Errorf("Formatted = %q, want %q", got.Formatted, tt.want)
			}
			if got.Topic != "some_new_sensor" {
				t.Errorf("Topic = %q, want %q", got.Topic, "some_new_sensor")
			}
		})
	}
}

func TestConvert_UnparseableRealSuppressed(t *testing.T) {
	c := testConverter(t)

	// A known real-typed field with a non-numeric payload yields no output
	// for that field only.
	if got := c.Convert("OutsideTemp", RawValue{StringValue: strPtr("n/a")}); got.Formatted != "" {
		t.Errorf("Formatted = %q, want empty (suppressed)", got.Formatted)
	}
}
