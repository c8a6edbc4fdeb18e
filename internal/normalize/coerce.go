// Package normalize turns raw invoice bundles, as delivered by the upstream
// extraction pipeline, into canonical records. Bundles are loosely shaped:
// the same logical field may sit at the top level, under an "invoice"
// sub-object, or inside "recommendations", and numeric fields arrive as
// numbers, numeric strings, sentinel strings like "N/A", or sub-objects with
// a value/amount member. Everything here is total: malformed input degrades
// to documented defaults, never to an error.
package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// CoerceNumber resolves a loosely typed value to a finite number. It never
// fails: anything unresolvable is 0.
//
// Strings are trimmed and parsed as decimals; "N/A" (any casing) is 0.
// Objects resolve through a "value" member, then an "amount" member, then the
// first member holding a number, recursively. Go maps do not preserve JSON
// key order, so the first-member scan walks keys in sorted order to stay
// deterministic across runs.
func CoerceNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "N/A") {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return finite(f)
	case map[string]any:
		if inner, ok := t["value"]; ok && inner != nil {
			return CoerceNumber(inner)
		}
		if inner, ok := t["amount"]; ok && inner != nil {
			return CoerceNumber(inner)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if isNumber(t[k]) {
				return CoerceNumber(t[k])
			}
		}
		return 0
	default:
		// nil, bool, arrays, anything exotic.
		return 0
	}
}

// coerceNonNegative is CoerceNumber clamped at zero, for record fields whose
// invariant is "non-negative finite".
func coerceNonNegative(v any) float64 {
	f := CoerceNumber(v)
	if f < 0 {
		return 0
	}
	return f
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64:
		return true
	}
	return false
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
