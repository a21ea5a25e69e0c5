package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/okian/gametrace/internal/domain/trace"
)

// TimestampLayout is the ISO-8601 UTC layout used in statements.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Statement is the xAPI statement shape emitted per event.
type Statement struct {
	Actor     json.RawMessage  `json:"actor,omitempty"`
	Verb      StatementVerb    `json:"verb"`
	Object    StatementObject  `json:"object"`
	Result    *StatementResult `json:"result,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// StatementVerb is the statement verb.
type StatementVerb struct {
	ID string `json:"id"`
}

// StatementObject is the statement activity.
type StatementObject struct {
	ID         string              `json:"id"`
	Definition StatementDefinition `json:"definition"`
}

// StatementDefinition carries the activity type IRI.
type StatementDefinition struct {
	Type string `json:"type"`
}

// StatementResult is the optional outcome block.
type StatementResult struct {
	Success    *bool          `json:"success,omitempty"`
	Completion *bool          `json:"completion,omitempty"`
	Response   string         `json:"response,omitempty"`
	Score      *Score         `json:"score,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Score is the xAPI score block; only raw is produced.
type Score struct {
	Raw float64 `json:"raw"`
}

// ToStatement converts e into a statement. Unknown verbs or target types
// fail under a strict policy and are emitted verbatim otherwise.
func ToStatement(ctx context.Context, p trace.Policy, e trace.Event, s Session) (Statement, error) {
	const op = "codec.xapi"
	verbID := e.Verb.IRI()
	if ok, err := p.Complain(ctx, verbID != "", trace.ErrVerb, op, "no IRI for verb \""+e.Verb.Name+"\""); err != nil {
		return Statement{}, trace.WrapKind(op, trace.ErrXAPI, err)
	} else if !ok {
		verbID = e.Verb.Name
	}

	k, known := e.Target.Kind()
	typeID := k.IRI
	if ok, err := p.Complain(ctx, known, trace.ErrTarget, op, "no IRI for target type \""+e.Target.Type+"\""); err != nil {
		return Statement{}, trace.WrapKind(op, trace.ErrXAPI, err)
	} else if !ok {
		typeID = e.Target.Type
	}

	st := Statement{
		Actor:     s.Actor,
		Verb:      StatementVerb{ID: verbID},
		Object:    StatementObject{ID: s.ObjectBase + e.Target.ID, Definition: StatementDefinition{Type: typeID}},
		Timestamp: e.Timestamp.UTC().Format(TimestampLayout),
	}
	if !e.Result.IsEmpty() {
		st.Result = toStatementResult(e.Result)
	}
	return st, nil
}

func toStatementResult(r trace.Result) *StatementResult {
	out := &StatementResult{Response: r.Response}
	if r.Success.IsSet() {
		b := r.Success.Bool()
		out.Success = &b
	}
	if r.Completion.IsSet() {
		b := r.Completion.Bool()
		out.Completion = &b
	}
	if r.HasScore() {
		out.Score = &Score{Raw: r.Score}
	}
	if len(r.Extensions) > 0 {
		out.Extensions = make(map[string]any, len(r.Extensions))
		for k, v := range r.Extensions {
			if iri, ok := trace.ExtensionIRI(k); ok {
				k = iri
			}
			out.Extensions[k] = v.Interface()
		}
	}
	return out
}

// MarshalXAPI encodes one event as a statement object.
func MarshalXAPI(ctx context.Context, p trace.Policy, e trace.Event, s Session) (string, error) {
	st, err := ToStatement(ctx, p, e, s)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(st)
	if err != nil {
		return "", trace.WrapKind("codec.xapi", trace.ErrXAPI, err)
	}
	return string(b), nil
}

// MarshalXAPIBatch encodes events as a JSON array of statements.
func MarshalXAPIBatch(ctx context.Context, p trace.Policy, events []trace.Event, s Session) (string, error) {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		st, err := MarshalXAPI(ctx, p, e, s)
		if err != nil {
			return "", err
		}
		parts = append(parts, st)
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

// UnmarshalXAPI decodes a statement array back into events. It exists for
// debugging and tests; objectBase is stripped from object ids.
func UnmarshalXAPI(data []byte, objectBase string) ([]trace.Event, error) {
	const op = "codec.unmarshal_xapi"
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []struct {
		Verb      StatementVerb   `json:"verb"`
		Object    StatementObject `json:"object"`
		Timestamp string          `json:"timestamp"`
		Result    *struct {
			Success    *bool          `json:"success"`
			Completion *bool          `json:"completion"`
			Response   string         `json:"response"`
			Score      *rawScore      `json:"score"`
			Extensions map[string]any `json:"extensions"`
		} `json:"result"`
	}
	if err := dec.Decode(&raw); err != nil {
		return nil, trace.WrapKind(op, trace.ErrUnmarshalling, err)
	}

	events := make([]trace.Event, 0, len(raw))
	for _, st := range raw {
		ts, err := time.Parse(time.RFC3339Nano, st.Timestamp)
		if err != nil {
			return nil, trace.WrapKind(op, trace.ErrUnmarshalling, err)
		}
		verb, ok := trace.VerbFromIRI(st.Verb.ID)
		if !ok {
			verb = trace.ParseVerb(st.Verb.ID)
		}
		typ := st.Object.Definition.Type
		if k, ok := trace.KindFromIRI(typ); ok {
			typ = k.Name
		}
		e := trace.NewEvent(ts.UTC(), verb, trace.Target{Type: typ, ID: strings.TrimPrefix(st.Object.ID, objectBase)})
		if r := st.Result; r != nil {
			if r.Success != nil {
				e.Result.Success = trace.TriOf(*r.Success)
			}
			if r.Completion != nil {
				e.Result.Completion = trace.TriOf(*r.Completion)
			}
			e.Result.Response = r.Response
			if r.Score != nil {
				f, err := r.Score.Raw.Float64()
				if err != nil {
					return nil, trace.WrapKind(op, trace.ErrUnmarshalling, err)
				}
				e.Result.Score = f
			}
			for k, v := range r.Extensions {
				val, ok := valueOf(v)
				if !ok {
					return nil, trace.NewKind(op, trace.ErrValueExtension, "unsupported value for "+k)
				}
				e.Result.SetExtension(trace.ExtensionKey(k), val)
			}
		}
		events = append(events, e)
	}
	return events, nil
}

type rawScore struct {
	Raw json.Number `json:"raw"`
}

func valueOf(v any) (trace.Value, bool) {
	switch x := v.(type) {
	case string:
		return trace.StringValue(x), true
	case bool:
		return trace.BoolValue(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return trace.IntValue(i), true
		}
		f, err := x.Float64()
		return trace.FloatValue(f), err == nil
	case map[string]any:
		m := make(map[string]trace.Value, len(x))
		for k, e := range x {
			val, ok := valueOf(e)
			if !ok || val.Kind() == trace.KindMap {
				return trace.Value{}, false
			}
			m[k] = val
		}
		return trace.MapValue(m), true
	default:
		return trace.Value{}, false
	}
}
