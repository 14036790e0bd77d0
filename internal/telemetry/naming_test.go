package telemetry

import "testing"

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"VehicleSpeed", "vehicle_speed"},
		{"EstBatteryRange", "est_battery_range"},
		{"ACChargingPower", "ac_charging_power"},
		{"TestCase", "test_case"},
		{"simple", "simple"},
		{"Odometer", "odometer"},
		{"DCChargingEnergyIn", "dc_charging_energy_in"},
		{"Version2Field", "version2_field"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CanonicalName(tt.input); got != tt.want {
				t.Errorf("CanonicalName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// The derivation must be deterministic: repeated calls yield the same topic.
func TestCanonicalName_Deterministic(t *testing.T) {
	inputs := []string{"VehicleSpeed", "ACChargingPower", "simple", "BMSState"}
	for _, in := range inputs {
		first := CanonicalName(in)
		for i := 0; i < 3; i++ {
			if got := CanonicalName(in); got != first {
				t.Fatalf("CanonicalName(%q) not deterministic: %q then %q", in, first, got)
			}
		}
	}
}
