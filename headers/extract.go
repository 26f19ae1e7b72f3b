// Package headers holds typed accessors over the flat string-keyed maps the ad server uses for
// envelope fields and per-candidate metadata.
//
// Every accessor is side-effect free and total: a malformed value degrades to "absent" (or the
// supplied default) and never to an error or a panic.
package headers

import (
	"math"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// Map is a flat view of a JSON object. String values are stored unquoted; every other value is
// stored as its raw JSON text.
type Map map[string]string

const percentSuffix = "%"

// Has reports whether key is present, even with an empty value.
func (h Map) Has(key string) bool {
	_, ok := h[key]
	return ok
}

// ExtractString returns the value stored under key, or "" if it is absent.
func ExtractString(h Map, key string) string {
	return h[key]
}

// ExtractBoolean returns true iff the value stored under key is exactly "1". It returns def if the
// key is absent.
func ExtractBoolean(h Map, key string, def bool) bool {
	value, ok := h[key]
	if !ok {
		return def
	}
	return value == "1"
}

// ExtractInt parses the value under key as a decimal number, truncating any fraction toward zero.
// The second return value is false if the key is missing, empty or unparsable.
func ExtractInt(h Map, key string) (int, bool) {
	value, ok := h[key]
	if !ok {
		return 0, false
	}
	return parseInt(value)
}

// ExtractIntWithDefault behaves like ExtractInt but substitutes def on any failure.
func ExtractIntWithDefault(h Map, key string, def int) int {
	if i, ok := ExtractInt(h, key); ok {
		return i
	}
	return def
}

// ExtractPercentage parses values such as "50", "50%" or "12.5 %". Values below 0 or above 100
// are treated as unparsable.
func ExtractPercentage(h Map, key string) (int, bool) {
	value, ok := h[key]
	if !ok {
		return 0, false
	}
	value = strings.TrimSpace(value)
	value = strings.TrimSpace(strings.TrimSuffix(value, percentSuffix))

	f, ok := parseFloat(value)
	if !ok || f < 0 || f > 100 {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

// ExtractIntList parses a comma-separated list of integers. A single invalid field invalidates
// the whole header.
func ExtractIntList(h Map, key string) ([]int, bool) {
	value, ok := h[key]
	if !ok || strings.TrimSpace(value) == "" {
		return nil, false
	}

	fields := strings.Split(value, ",")
	list := make([]int, 0, len(fields))
	for _, field := range fields {
		i, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, false
		}
		list = append(list, i)
	}
	return list, true
}

// ExtractStringList parses the value under key as a JSON array of strings. Anything else,
// including an array holding a non-string element, is treated as absent.
func ExtractStringList(h Map, key string) ([]string, bool) {
	value, ok := h[key]
	if !ok {
		return nil, false
	}

	raw := []byte(value)
	if _, dataType, _, err := jsonparser.Get(raw); err != nil || dataType != jsonparser.Array {
		return nil, false
	}

	list := make([]string, 0, 2)
	valid := true
	_, err := jsonparser.ArrayEach(raw, func(item []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil || dataType != jsonparser.String {
			valid = false
			return
		}
		s, err := jsonparser.ParseString(item)
		if err != nil {
			valid = false
			return
		}
		list = append(list, s)
	})
	if err != nil || !valid {
		return nil, false
	}
	return list, true
}

func parseFloat(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseInt(value string) (int, bool) {
	f, ok := parseFloat(value)
	if !ok {
		return 0, false
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
