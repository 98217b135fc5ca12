package extract

import (
	"encoding/json"

	"github.com/kameel77/auto-scraper/internal/normalize"
)

// Object is a decoded JSON object
type Object = map[string]any

// Lookup walks nested objects by key. A missing key or a non-object on the
// way yields nil.
func Lookup(v any, path ...string) any {
	cur := v
	for _, key := range path {
		obj, ok := cur.(Object)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

// ObjectAt is Lookup restricted to object results
func ObjectAt(v any, path ...string) Object {
	obj, _ := Lookup(v, path...).(Object)
	return obj
}

// ListAt is Lookup restricted to array results
func ListAt(v any, path ...string) []any {
	list, _ := Lookup(v, path...).([]any)
	return list
}

// TextAt returns the value at path as text. Objects of the form
// {"text": "..."} used for dictionary values are unwrapped.
func TextAt(v any, path ...string) string {
	return Text(Lookup(v, path...))
}

// Text renders a scalar or a {"text": ...} object as cleaned text
func Text(v any) string {
	if obj, ok := v.(Object); ok {
		return normalize.String(obj["text"])
	}
	return normalize.String(v)
}

// IsInteger reports whether v is a JSON number without fractional part
func IsInteger(v any) bool {
	switch t := v.(type) {
	case int, int64:
		return true
	case float64:
		return t == float64(int64(t))
	case json.Number:
		_, err := t.Int64()
		return err == nil
	default:
		return false
	}
}

// LabelValues collapses a list of {label, value} pairs into a map. The
// first occurrence of a label wins.
func LabelValues(list []any) map[string]string {
	out := make(map[string]string, len(list))
	for _, item := range list {
		label := TextAt(item, "label")
		if label == "" {
			continue
		}
		if _, dup := out[label]; dup {
			continue
		}
		if value := Text(Lookup(item, "value")); value != "" {
			out[label] = value
		}
	}
	return out
}

// Strings returns the non-empty text items of list
func Strings(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := Text(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
