package store

import "reflect"

// matches reports whether r holds every filter value. A field missing from
// r only matches a nil filter value.
func matches(r Record, filters Filter) bool {
	for k, want := range filters {
		got, ok := r[k]
		if !ok {
			if want != nil {
				return false
			}
			continue
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares a decoded JSON value with a Go value. Numbers compare
// by value since the decoder turns every JSON number into a float64.
func valuesEqual(got, want any) bool {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	if gok || wok {
		return gok && wok && gf == wf
	}
	return reflect.DeepEqual(got, want)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
