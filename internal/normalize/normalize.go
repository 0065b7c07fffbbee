// Package normalize converts raw dataset fields into typed values.
//
// The dumps mark a missing value with the literal token \N. Every function in
// this package is total: malformed input maps to nil (or false), never to an
// error, so a single dirty field cannot abort a load.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Null trims raw and returns nil for the empty string or the null sentinel.
func Null(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" || s == imdbload.NullSentinel {
		return nil
	}
	return &s
}

// Required returns the trimmed value, or the sentinel literal itself when the
// value is missing. Used for NOT NULL text columns.
func Required(raw string) string {
	if s := Null(raw); s != nil {
		return *s
	}
	return imdbload.NullSentinel
}

// Int parses a base-10 integer. Missing or unparseable input yields nil.
func Int(raw string) *int32 {
	s := Null(raw)
	if s == nil {
		return nil
	}
	n, err := strconv.ParseInt(*s, 10, 32)
	if err != nil {
		return nil
	}
	v := int32(n)
	return &v
}

// Year is Int; the dumps carry years as plain integers.
func Year(raw string) *int32 {
	return Int(raw)
}

// Float parses a decimal number. Missing, unparseable or non-finite input
// (inf, NaN) yields nil.
func Float(raw string) *float64 {
	s := Null(raw)
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

// Bool is true only for "1". Everything else, including "true", is false.
func Bool(raw string) bool {
	s := Null(raw)
	return s != nil && *s == "1"
}

// List splits a comma-separated field. Elements are trimmed and empty ones
// dropped; order and duplicates are preserved.
func List(raw string) []string {
	s := Null(raw)
	if s == nil {
		return nil
	}
	parts := strings.Split(*s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FloatOr returns Float(raw) or def when it is nil.
func FloatOr(raw string, def float64) float64 {
	if f := Float(raw); f != nil {
		return *f
	}
	return def
}

// IntOr returns Int(raw) or def when it is nil.
func IntOr(raw string, def int32) int32 {
	if n := Int(raw); n != nil {
		return *n
	}
	return def
}
