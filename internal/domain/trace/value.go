package trace

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

// Extension value kinds.
const (
	KindInvalid ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindMap
)

// Value is an extension value: a string, integer, float, bool or a flat map
// of scalar values.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
	m    map[string]Value
}

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// MapValue wraps a flat map. Nested maps are not allowed and are dropped.
func MapValue(m map[string]Value) Value {
	flat := make(map[string]Value, len(m))
	for k, v := range m {
		if v.kind == KindMap || v.kind == KindInvalid {
			continue
		}
		flat[k] = v
	}
	return Value{kind: KindMap, m: flat}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Int returns the integer payload.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload.
func (v Value) Float() float64 { return v.f }

// Bool returns the bool payload.
func (v Value) Bool() bool { return v.b }

// Map returns a copy of the map payload.
func (v Value) Map() map[string]Value {
	out := make(map[string]Value, len(v.m))
	for k, e := range v.m {
		out[k] = e
	}
	return out
}

// IsPresent is the single presence predicate shared by every validator:
// not invalid, not an empty string, not NaN or infinite, not an empty map
// and no non-finite float inside a map.
func (v Value) IsPresent() bool {
	switch v.kind {
	case KindString:
		return strings.TrimSpace(v.s) != ""
	case KindFloat:
		return IsFinite(v.f)
	case KindInt, KindBool:
		return true
	case KindMap:
		for _, e := range v.m {
			if e.kind == KindFloat && !IsFinite(e.f) {
				return false
			}
		}
		return len(v.m) > 0
	default:
		return false
	}
}

// IsFinite reports whether f is neither NaN nor infinite. Non-finite
// floats have no JSON encoding.
func IsFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Interface returns the payload as a plain Go value for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// Text renders the value in the flat wire representation: '.' decimal
// separator, floats always carry a fractional part, maps as k1=v1-k2=v2
// with sorted keys.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return FormatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(v.m[k].Text())
		}
		return sb.String()
	default:
		return ""
	}
}

func (v Value) String() string { return v.Text() }

// HasTextForm reports whether ParseValue reads Text back as v. Strings
// such as "42" or "a=b" do not; neither do maps whose keys or values use
// the '-' and '=' separators.
func (v Value) HasTextForm() bool { return ParseValue(v.Text()).Equal(v) }

// FormatFloat formats f with a '.' separator and at least one fractional digit.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseValue infers a Value from its flat text form: integer, then float,
// then bool, then map, falling back to string.
func ParseValue(s string) Value {
	if s == "" {
		return StringValue(s)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(i)
	}
	if looksNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FloatValue(f)
		}
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return BoolValue(b)
	}
	if m, ok := parseFlatMap(s); ok {
		return MapValue(m)
	}
	return StringValue(s)
}

// looksNumeric rejects inputs such as "Inf" or "NaN" that ParseFloat accepts.
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}

// parseFlatMap parses k1=v1-k2=v2. A '-' only starts a new entry when the
// following segment contains '='; otherwise it belongs to the value, which
// keeps negative numbers intact.
func parseFlatMap(s string) (map[string]Value, bool) {
	if !strings.Contains(s, "=") {
		return nil, false
	}
	segments := strings.Split(s, "-")
	out := map[string]Value{}
	var key string
	var val strings.Builder
	flush := func() {
		if key != "" {
			out[key] = ParseValue(val.String())
		}
	}
	for i, seg := range segments {
		if k, rest, ok := strings.Cut(seg, "="); ok && k != "" {
			flush()
			key = k
			val.Reset()
			val.WriteString(rest)
			continue
		}
		if i == 0 || key == "" {
			return nil, false
		}
		val.WriteByte('-')
		val.WriteString(seg)
	}
	flush()
	for _, v := range out {
		if v.kind == KindMap || strings.Contains(v.s, "=") {
			return nil, false
		}
	}
	return out, len(out) > 0
}
