package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid mps", MPS, true},
		{"valid mph", MPH, true},
		{"valid kmph", KMPH, true},
		{"valid kph", KPH, true},
		{"invalid unit", "furlongs", false},
		{"empty unit", "", false},
		{"uppercase MPS", "MPS", false}, // Case-sensitive
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	result := GetValidUnitsString()
	expected := "mps, mph, kmph, kph"
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		unit     string
		expected float64
	}{
		{"0 m/s to mps", 0.0, MPS, 0.0},
		{"1.4 m/s to mps", 1.4, MPS, 1.4},

		// 1 m/s = 2.2369362920544 mph
		{"1 m/s to mph", 1.0, MPH, 2.2369362920544},
		{"1.4 m/s to mph", 1.4, MPH, 3.13171080887616},

		// 1 m/s = 3.6 km/h
		{"1 m/s to kmph", 1.0, KMPH, 3.6},
		{"1.4 m/s to kmph", 1.4, KMPH, 5.04},
		{"1 m/s to kph", 1.0, KPH, 3.6},

		// Unknown unit falls back to m/s
		{"1 m/s to unknown", 1.0, "unknown", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedMPS, tt.unit)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.unit, result, tt.expected)
			}
		})
	}
}

func TestConvertToMPS(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		fromUnit string
		expected float64
	}{
		{"5 mps to mps", 5.0, MPS, 5.0},
		{"2.2369 mph to mps", 2.2369362920544, MPH, 1.0},
		{"3.6 kmph to mps", 3.6, KMPH, 1.0},
		{"3.6 kph to mps", 3.6, KPH, 1.0},
		{"unknown unit passes through", 5.0, "unknown", 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToMPS(tt.speed, tt.fromUnit)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("ConvertToMPS(%f, %s) = %f, want %f", tt.speed, tt.fromUnit, result, tt.expected)
			}
		})
	}
}

func TestRoundTripConversions(t *testing.T) {
	originalMPS := 1.55

	for _, unit := range ValidUnits {
		converted := ConvertSpeed(originalMPS, unit)
		backToMPS := ConvertToMPS(converted, unit)
		if math.Abs(backToMPS-originalMPS) > 1e-10 {
			t.Errorf("%s round-trip: started %f m/s, got %f m/s", unit, originalMPS, backToMPS)
		}
	}
}
