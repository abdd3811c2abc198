package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// RawRecord is a single card object exactly as the card API returned it.
// Only the fields the catalog reads have typed accessors; everything else is
// carried through untouched for the detail view.
type RawRecord map[string]any

// ID returns the record's integer identity key. Missing, fractional or
// non-numeric ids are reported as invalid.
func (r RawRecord) ID() (int, bool) {
	return r.Int("id")
}

// Name returns the record's card name when it is a non-empty string.
func (r RawRecord) Name() (string, bool) {
	name := r.String("name")
	return name, name != ""
}

// Aliases returns the string members of the record's alias list in order.
func (r RawRecord) Aliases() []string {
	return r.Strings("aliases")
}

// String returns the string stored under key, or "" when absent or not a string.
func (r RawRecord) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the integral number stored under key.
func (r RawRecord) Int(key string) (int, bool) {
	return asInt(r[key])
}

// Strings returns the string members of the array stored under key.
func (r RawRecord) Strings(key string) []string {
	items, ok := r[key].([]any)
	if !ok {
		if typed, ok := r[key].([]string); ok {
			return append([]string(nil), typed...)
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether key is present with a non-null value.
func (r RawRecord) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Objects returns the object members of the array stored under key.
func (r RawRecord) Objects(key string) []RawRecord {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]RawRecord, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, RawRecord(m))
		}
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(string(n), 10, 64)
		if err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}
