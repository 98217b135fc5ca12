// Package normalize holds the coercion and normalization rules shared by all
// marketplace adapters.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// ParseInt extracts an integer from free text. Whitespace of any kind
// (including non-breaking and narrow spaces used as thousands separators) is
// removed first, then the first run of digits is parsed. Text without digits
// yields nil, never zero.
//
//	"122 900 zł" -> 122900
//	"1 598 cm3"  -> 1598
//	"N/A"        -> nil
func ParseInt(s string) *int {
	if s == "" {
		return nil
	}
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	run := digitRun.FindString(compact)
	if run == "" {
		return nil
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return nil
	}
	return &n
}

// ParseIntAny coerces a decoded JSON value to an integer. Non-negative
// numbers are truncated, strings go through ParseInt, anything else is nil.
func ParseIntAny(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return nonNegative(t)
	case int64:
		return nonNegative(int(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 || t >= 1e15 {
			return nil
		}
		return nonNegative(int(t))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return nonNegative(int(i))
		}
		if f, err := t.Float64(); err == nil {
			return ParseIntAny(f)
		}
		return nil
	case string:
		return ParseInt(t)
	default:
		return nil
	}
}

// MinorUnits converts an amount expressed in hundredths (grosz) to whole units
func MinorUnits(v any) *int {
	var f float64
	switch t := v.(type) {
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f / 100)
	return &n
}

// ParseFloatAny coerces ratings such as 4.7 or "4,7"
func ParseFloatAny(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// String renders a decoded JSON scalar as text, empty for nil
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return CleanText(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func nonNegative(n int) *int {
	if n < 0 {
		return nil
	}
	return &n
}
