package hub

import (
	"encoding/json"
	"math"
	"strconv"
)

// Characteristic values arrive as whatever the transport decoded: JSON
// numbers become float64, in-process hubs use int. These helpers normalise
// them.

// BoolValue converts a characteristic value to bool.
func BoolValue(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case int:
		return val != 0, true
	case int64:
		return val != 0, true
	case float64:
		return val != 0, true
	case json.Number:
		n, err := val.Int64()
		return n != 0, err == nil
	case string:
		b, err := strconv.ParseBool(val)
		return b, err == nil
	default:
		return false, false
	}
}

// IntValue converts a characteristic value to int, rounding floats.
func IntValue(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int8:
		return int(val), true
	case int16:
		return int(val), true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case uint8:
		return int(val), true
	case uint16:
		return int(val), true
	case uint32:
		return int(val), true
	case float32:
		return int(math.Round(float64(val))), true
	case float64:
		return int(math.Round(val)), true
	case json.Number:
		f, err := val.Float64()
		return int(math.Round(f)), err == nil
	default:
		return 0, false
	}
}

// FloatValue converts a characteristic value to float64.
func FloatValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		if i, ok := IntValue(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}
