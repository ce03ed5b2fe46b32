package canon

import (
	"encoding/json"
	"math"

	"github.com/lukaspfisterch/dbl-observer/obserr"
)

// Marshal converts a Go value decoded from JSON (as produced by
// encoding/json with UseNumber enabled, or hand-built from map[string]any /
// []any / string / bool / nil / json.Number / int / int64 / float64) into a
// Value, enforcing the canonical payload constraints: object keys must be
// strings, numeric leaves must be integers, floats/NaN/Infinity are
// rejected rather than silently truncated.
func Marshal(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		i, err := numberToInt(x)
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		i, err := floatToInt(x)
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			cv, err := Marshal(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = cv
		}
		return Array(elems...), nil
	case map[string]any:
		members := make([]Member, 0, len(x))
		for k, e := range x {
			cv, err := Marshal(e)
			if err != nil {
				return Value{}, err
			}
			members = append(members, Member{Key: k, Value: cv})
		}
		return Object(members...), nil
	default:
		return Value{}, obserr.Canonicalization("unsupported payload leaf type", nil)
	}
}

func numberToInt(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, obserr.Canonicalization("payload number is not a valid integer: "+n.String(), err)
	}
	return floatToInt(f)
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) {
		return 0, obserr.Canonicalization("payload number is NaN", nil)
	}
	if math.IsInf(f, 0) {
		return 0, obserr.Canonicalization("payload number is Infinity", nil)
	}
	if f != math.Trunc(f) {
		return 0, obserr.Canonicalization("payload number has a fractional component", nil)
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, obserr.Canonicalization("payload number exceeds int64 range", nil)
	}
	return int64(f), nil
}
