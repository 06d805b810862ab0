package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Action is a structured instruction naming a tool and its parameters,
// derived from model output.
type Action struct {
	Tool   string `json:"tool"`
	Params Params `json:"params"`
}

// Clone returns a deep copy of a. A nil receiver yields nil.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}
	return &Action{Tool: a.Tool, Params: a.Params.Clone()}
}

// Params maps parameter names to scalar values (string, bool, number or nil).
type Params map[string]any

// Clone returns a shallow copy; values are scalars so this is a full copy.
// A nil Params clones to an empty, non-nil map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether key is present, even when its value is nil.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value under key rendered as a string, or "".
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Int returns the value under key as an integer. Numbers, json.Number and
// numeric strings are accepted; anything else (or a missing key) yields def.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case string:
		v = strings.TrimSpace(v)
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	}
	return def
}
