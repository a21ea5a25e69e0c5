package trace

import (
	"math"
	"strconv"
	"strings"
)

// Tri is a tri-state boolean.
type Tri int8

// Tri-state values.
const (
	Unset Tri = iota
	True
	False
)

// TriOf converts b to True or False.
func TriOf(b bool) Tri {
	if b {
		return True
	}
	return False
}

// IsSet reports whether t carries a value.
func (t Tri) IsSet() bool { return t != Unset }

// Bool returns the value; false when unset.
func (t Tri) Bool() bool { return t == True }

// Reserved flat keys routed into dedicated result fields.
const (
	KeySuccess    = "success"
	KeyCompletion = "completion"
	KeyResponse   = "response"
	KeyScore      = "score"
)

// Well-known extension keys.
const (
	ExtHealth   = "health"
	ExtPosition = "position"
	ExtProgress = "progress"
)

const extensionBase = "https://w3id.org/xapi/seriousgames/extensions/"

var extensionIRIs = map[string]string{
	ExtHealth:   extensionBase + ExtHealth,
	ExtPosition: extensionBase + ExtPosition,
	ExtProgress: extensionBase + ExtProgress,
}

// ExtensionIRI maps a well-known extension key to its IRI.
func ExtensionIRI(key string) (string, bool) {
	iri, ok := extensionIRIs[key]
	return iri, ok
}

// ExtensionKey maps an extension IRI back to its short key. Unknown IRIs are
// returned unchanged.
func ExtensionKey(iri string) string {
	if strings.HasPrefix(iri, extensionBase) {
		if k := strings.TrimPrefix(iri, extensionBase); extensionIRIs[k] != "" {
			return k
		}
	}
	return iri
}

// IsReserved reports whether key is routed into a dedicated result field.
func IsReserved(key string) bool {
	switch key {
	case KeySuccess, KeyCompletion, KeyResponse, KeyScore:
		return true
	}
	return false
}

// Result is the optional outcome attached to an event.
type Result struct {
	Success    Tri
	Completion Tri
	Response   string
	Score      float64
	Extensions map[string]Value
}

// NewResult returns an empty result with Score unset.
func NewResult() Result {
	return Result{Score: math.NaN()}
}

// HasScore reports whether Score is set.
func (r Result) HasScore() bool { return !math.IsNaN(r.Score) }

// IsEmpty reports whether nothing is set.
func (r Result) IsEmpty() bool {
	return !r.Success.IsSet() && !r.Completion.IsSet() && r.Response == "" && !r.HasScore() && len(r.Extensions) == 0
}

// SetExtension stores key/value in the free-form map.
func (r *Result) SetExtension(key string, v Value) {
	if r.Extensions == nil {
		r.Extensions = map[string]Value{}
	}
	r.Extensions[key] = v
}

// Set ingests a flat key/value: reserved keys go to their dedicated field,
// everything else into Extensions.
func (r *Result) Set(key string, v Value) error {
	const op = "trace.result.set"
	switch key {
	case KeySuccess, KeyCompletion:
		b, ok := boolOf(v)
		if !ok {
			return errorf(op, ErrUnmarshalling, "%s expects a bool, got %q", key, v.Text())
		}
		if key == KeySuccess {
			r.Success = TriOf(b)
		} else {
			r.Completion = TriOf(b)
		}
	case KeyResponse:
		r.Response = v.Text()
	case KeyScore:
		f, ok := floatOf(v)
		if !ok {
			return errorf(op, ErrUnmarshalling, "score expects a number, got %q", v.Text())
		}
		r.Score = f
	default:
		r.SetExtension(key, v)
	}
	return nil
}

// Merge copies every key of ext into r through Set.
func (r *Result) Merge(ext map[string]Value) error {
	for k, v := range ext {
		if err := r.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Equal compares two results; NaN scores compare equal.
func (r Result) Equal(o Result) bool {
	if r.Success != o.Success || r.Completion != o.Completion || r.Response != o.Response {
		return false
	}
	if r.HasScore() != o.HasScore() || (r.HasScore() && r.Score != o.Score) {
		return false
	}
	if len(r.Extensions) != len(o.Extensions) {
		return false
	}
	for k, v := range r.Extensions {
		ov, ok := o.Extensions[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (r Result) Clone() Result {
	out := r
	if r.Extensions != nil {
		out.Extensions = make(map[string]Value, len(r.Extensions))
		for k, v := range r.Extensions {
			out.Extensions[k] = v
		}
	}
	return out
}

func boolOf(v Value) (bool, bool) {
	switch v.Kind() {
	case KindBool:
		return v.Bool(), true
	case KindString:
		b, err := strconv.ParseBool(v.Str())
		return b, err == nil
	}
	return false, false
}

func floatOf(v Value) (float64, bool) {
	switch v.Kind() {
	case KindFloat:
		return v.Float(), IsFinite(v.Float())
	case KindInt:
		return float64(v.Int()), true
	case KindString:
		f, err := strconv.ParseFloat(v.Str(), 64)
		return f, err == nil && IsFinite(f)
	}
	return 0, false
}
