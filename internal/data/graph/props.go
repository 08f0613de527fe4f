package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// SanitizeProps returns a copy of props that a property graph accepts: scalars
// are kept, lists and nested objects become JSON strings, and nil values are
// dropped because setting a property to null would delete it.
func SanitizeProps(props map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k == "" || v == nil {
			continue
		}
		sv, err := sanitizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("graph: property %q: %w", k, err)
		}
		out[k] = sv
	}
	return out, nil
}

func sanitizeValue(v any) (any, error) {
	switch t := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint8, uint16, uint32,
		float32, float64:
		return t, nil
	case uint:
		return fromUint(uint64(t)), nil
	case uint64:
		return fromUint(t), nil
	case uintptr:
		return fromUint(uint64(t)), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case json.RawMessage:
		return string(t), nil
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// fromUint keeps values that fit the graph's signed 64-bit integers and
// stores anything larger as its decimal string.
func fromUint(u uint64) any {
	if u > math.MaxInt64 {
		return strconv.FormatUint(u, 10)
	}
	return int64(u)
}
