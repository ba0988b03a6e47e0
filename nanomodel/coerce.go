package nanomodel

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// toNumber normalizes every Go integer kind to int64 and every float kind
// to float64. Numeric strings are parsed.
func toNumber(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	case string:
		return parseNumber(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), nil
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return toNumber(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: expected number, got %T", ErrInvalidValue, v)
}

func parseNumber(s string) (any, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
	}
	return f, nil
}

// integral turns floats without a fractional part back into int64, which
// is what JSON-backed storage hands back for integers.
func integral(v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f)
	}
	return f
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case *bool:
		return *t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, t)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: expected boolean, got %T", ErrInvalidValue, v)
}

func toText(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case *string:
		return *t, nil
	case fmt.Stringer:
		return t.String(), nil
	}

	// Simple kinds convert through their default formatting, complex ones
	// are never silently turned into strings.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr:
		return "", fmt.Errorf("%w: cannot convert %T to text", ErrInvalidValue, v)
	}
	return fmt.Sprintf("%v", v), nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not an RFC3339 time", ErrInvalidValue, t)
		}
		return parsed.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: expected time, got %T", ErrInvalidValue, v)
}

// toSlice copies any Go slice or array into []any.
func toSlice(v any) ([]any, error) {
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: expected list, got %T", ErrInvalidValue, v)
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// toMap copies any map with string keys into map[string]any.
func toMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = e
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: expected map with string keys, got %T", ErrInvalidValue, v)
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}
