package trace

import (
	"context"
	"strings"

	"github.com/okian/gametrace/pkg/logger"
)

// IsPresent reports whether v is not nil, not an empty string and not a
// NaN or infinite float.
func IsPresent(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case *string:
		return x != nil && strings.TrimSpace(*x) != ""
	case float64:
		return IsFinite(x)
	case float32:
		return IsFinite(float64(x))
	case Value:
		return x.IsPresent()
	default:
		return true
	}
}

// Policy decides what happens when a validation fails: strict policies
// return a typed *Error, lenient ones log a warning and let the caller
// substitute a default or drop the field.
type Policy struct {
	Strict bool
	Logger logger.Logger
}

// Complain is the single validation primitive. When ok is true it returns
// (true, nil). Otherwise a strict policy returns (false, *Error) and a
// lenient one logs msg at warn level and returns (false, nil).
func (p Policy) Complain(ctx context.Context, ok bool, kind error, op, msg string) (bool, error) {
	if ok {
		return true, nil
	}
	if p.Strict {
		return false, NewKind(op, kind, msg)
	}
	if p.Logger != nil {
		p.Logger.Warn(ctx, msg, logger.String("op", op), logger.String("kind", kind.Error()))
	}
	return false, nil
}

// Verb validates a verb string. Unknown verbs are kept verbatim in
// lenient mode; when fallback is set it is used instead.
func (p Policy) Verb(ctx context.Context, op, s string, fallback *Verb) (Verb, error) {
	v := ParseVerb(s)
	valid, err := p.Complain(ctx, IsPresent(s), ErrVerb, op, "verb is empty")
	if valid {
		valid, err = p.Complain(ctx, v.IsKnown(), ErrVerb, op, "unknown verb "+quote(v.Name))
	}
	if err != nil {
		return Verb{}, err
	}
	if !valid && fallback != nil {
		return *fallback, nil
	}
	return v, nil
}

// TargetType validates typ against vocab (VocabularyNone accepts any
// vocabulary). Lenient fallback is the vocabulary's generic member, or the
// raw string when no vocabulary is required.
func (p Policy) TargetType(ctx context.Context, op, typ string, vocab Vocabulary) (string, error) {
	if _, err := p.Complain(ctx, IsPresent(typ), ErrTarget, op, "target type is empty"); err != nil {
		return "", err
	}
	k, known := LookupKind(typ)
	ok := known && (vocab == VocabularyNone || k.Vocabulary == vocab)
	valid, err := p.Complain(ctx, ok, ErrTarget, op, "unknown target type "+quote(typ)+" for "+vocab.String())
	if err != nil {
		return "", err
	}
	if valid {
		return k.Name, nil
	}
	if vocab != VocabularyNone {
		return vocab.Generic().Name, nil
	}
	return strings.ToLower(strings.TrimSpace(typ)), nil
}

// TargetID validates a target id. The returned bool is false when the
// trace must be dropped.
func (p Policy) TargetID(ctx context.Context, op, id string) (bool, error) {
	return p.Complain(ctx, IsPresent(id), ErrTarget, op, "target id is empty")
}

// Extension validates an extension key/value pair. The returned bool is
// false when the pair must be dropped.
func (p Policy) Extension(ctx context.Context, op, key string, v Value) (bool, error) {
	if ok, err := p.Complain(ctx, IsPresent(key), ErrKeyExtension, op, "extension key is empty"); !ok {
		return false, err
	}
	if ok, err := p.Complain(ctx, v.IsPresent(), ErrValueExtension, op, "extension "+quote(key)+" has no value"); !ok {
		return false, err
	}
	if v.Kind() != KindMap {
		return true, nil
	}
	return p.Complain(ctx, v.HasTextForm(), ErrValueExtension, op, "map extension "+quote(key)+" does not survive its k=v-k=v form")
}

func quote(s string) string { return "\"" + s + "\"" }
