// Package rawrecord provides typed accessors over the loosely-typed JSON
// objects found in hydration payloads and structured-data blocks.
//
// Every accessor resolves a field by trying an ordered list of alternate key
// names, the first key that is present with the expected type wins.
package rawrecord

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Record is a decoded JSON object, no key is guaranteed to be present.
type Record = map[string]any

// AsRecord returns v as a Record if it is a JSON object.
func AsRecord(v any) (Record, bool) {
	rec, ok := v.(map[string]any)
	if !ok || rec == nil {
		return nil, false
	}
	return rec, true
}

// Object returns the value under key if it is a JSON object.
func Object(rec Record, key string) (Record, bool) {
	if rec == nil {
		return nil, false
	}
	return AsRecord(rec[key])
}

// FirstValue returns the value of the first key present in rec.
func FirstValue(rec Record, keys ...string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	for _, key := range keys {
		value, ok := rec[key]
		if ok {
			return value, true
		}
	}
	return nil, false
}

// FirstString returns the first value under keys that is a string, the string
// may be empty.
func FirstString(rec Record, keys ...string) string {
	value, _ := LookupString(rec, keys...)
	return value
}

// LookupString is FirstString that also reports whether any key held a string.
func LookupString(rec Record, keys ...string) (string, bool) {
	if rec == nil {
		return "", false
	}
	for _, key := range keys {
		value, ok := rec[key].(string)
		if ok {
			return value, true
		}
	}
	return "", false
}

// FirstNonEmpty returns the first value under keys that is a non-empty string.
func FirstNonEmpty(rec Record, keys ...string) string {
	if rec == nil {
		return ""
	}
	for _, key := range keys {
		value, ok := rec[key].(string)
		if ok && value != "" {
			return value
		}
	}
	return ""
}

// FirstNumber returns the value of the first key present in rec as a number.
// JSON numbers are returned as is, numeric strings are parsed and anything
// else (including a non-finite number) degrades to 0.
func FirstNumber(rec Record, keys ...string) float64 {
	value, ok := FirstValue(rec, keys...)
	if !ok {
		return 0
	}
	return Number(value)
}

// Number coerces a single JSON value the way FirstNumber does.
func Number(value any) float64 {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// Items returns the object entries of value when it is either an array or an
// object wrapping an array under "items". Non-object entries are skipped.
func Items(value any) []Record {
	switch v := value.(type) {
	case []any:
		return Objects(v)
	case map[string]any:
		arr, ok := v["items"].([]any)
		if ok {
			return Objects(arr)
		}
	}
	return nil
}

// Objects filters entries down to the ones that are JSON objects, preserving order.
func Objects(entries []any) []Record {
	out := make([]Record, 0, len(entries))
	for _, entry := range entries {
		rec, ok := AsRecord(entry)
		if ok {
			out = append(out, rec)
		}
	}
	return out
}

const isoLayout = "2006-01-02T15:04:05.000Z"

// ISODate normalizes a date string to ISO-8601 UTC with millisecond precision.
// Anything that is not a parsable, non-empty string yields "".
func ISODate(value any) string {
	str, ok := value.(string)
	if !ok {
		return ""
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		parsed, err = dateparse.ParseIn(str, time.UTC)
		if err != nil {
			return ""
		}
	}
	return parsed.UTC().Format(isoLayout)
}
