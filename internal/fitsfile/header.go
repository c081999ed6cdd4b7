package fitsfile

import (
	"math"
	"strconv"
	"strings"
)

// Header is a flat keyword to value map of one HDU. Values are int, int64,
// float64, bool or string as decoded from the cards.
type Header map[string]any

// String returns a keyword value as trimmed text.
func (h Header) String(key string) (string, bool) {
	v, ok := h[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}

// Int returns a keyword value as an integer. Integral floats and numeric
// strings are accepted; ok is false when the keyword is absent, and err is
// set when it is present but not an integer.
func (h Header) Int(key string) (n int, ok bool, err error) {
	v, present := h[key]
	if !present || v == nil {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int:
		return val, true, nil
	case int64:
		return int(val), true, nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return 0, true, &ValueError{Key: key, Value: v}
		}
		return int(val), true, nil
	case string:
		parsed, perr := strconv.Atoi(strings.TrimSpace(val))
		if perr != nil {
			return 0, true, &ValueError{Key: key, Value: v}
		}
		return parsed, true, nil
	}
	return 0, true, &ValueError{Key: key, Value: v}
}

// Float returns a keyword value as a float.
func (h Header) Float(key string) (f float64, ok bool, err error) {
	v, present := h[key]
	if !present || v == nil {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		return val, true, nil
	case int:
		return float64(val), true, nil
	case int64:
		return float64(val), true, nil
	case string:
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if perr != nil {
			return 0, true, &ValueError{Key: key, Value: v}
		}
		return parsed, true, nil
	}
	return 0, true, &ValueError{Key: key, Value: v}
}

// ValueError reports a keyword whose value has the wrong type.
type ValueError struct {
	Key   string
	Value any
}

func (e *ValueError) Error() string {
	return "header keyword " + e.Key + " has unusable value " + strconv.Quote(stringify(e.Value))
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return "?"
}
