package normalize

import (
	"math"
	"testing"
)

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected float64
	}{
		{"plain number", 42.5, 42.5},
		{"integer", 7, 7},
		{"zero", 0.0, 0},
		{"negative passes through", -3.5, -3.5},
		{"NaN", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
		{"numeric string", "12.5", 12.5},
		{"numeric string with spaces", "  12.5  ", 12.5},
		{"sentinel N/A", "N/A", 0},
		{"sentinel n/a lowercase", "n/a", 0},
		{"sentinel with spaces", "  N/A ", 0},
		{"unparseable string", "beaucoup", 0},
		{"empty string", "", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
		{"array", []any{1.0, 2.0}, 0},
		{"object with value", map[string]any{"value": 5.0, "amount": 9.0}, 5},
		{"object with amount only", map[string]any{"amount": 9.0}, 9},
		{"object value wins over amount", map[string]any{"amount": 9.0, "value": "5"}, 5},
		{"object first numeric member", map[string]any{"foo": "x", "bar": 7.0}, 7},
		{"object no numeric candidate", map[string]any{"foo": "x", "bar": "y"}, 0},
		{"object nil value falls through", map[string]any{"value": nil, "amount": 3.0}, 3},
		{"nested value object", map[string]any{"value": map[string]any{"amount": "150"}}, 150},
		{"empty object", map[string]any{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceNumber(tt.input); got != tt.expected {
				t.Errorf("CoerceNumber(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCoerceNumber_SortedKeyScan(t *testing.T) {
	// With several numeric members and no value/amount, the lowest key wins;
	// map iteration order alone would be nondeterministic.
	in := map[string]any{"zeta": 9.0, "alpha": 1.0, "mid": 5.0}
	for i := 0; i < 20; i++ {
		if got := CoerceNumber(in); got != 1 {
			t.Fatalf("CoerceNumber scan = %v, want 1 (sorted key order)", got)
		}
	}
}

func TestCoerceNonNegative(t *testing.T) {
	if got := coerceNonNegative(-12.5); got != 0 {
		t.Errorf("coerceNonNegative(-12.5) = %v, want 0", got)
	}
	if got := coerceNonNegative("99.9"); got != 99.9 {
		t.Errorf("coerceNonNegative(\"99.9\") = %v, want 99.9", got)
	}
}
