package codec

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gametrace/internal/domain/trace"
)

// MarshalCSV encodes e as timestamp,verb,target_type,target_id[,key,value]*.
// The timestamp is Unix milliseconds. Backslashes, commas and line breaks
// are escaped as `\\`, `\,`, `\n` and `\r`. A string extension whose text
// would read back as another kind is tagged with a leading `\s`.
func MarshalCSV(e trace.Event) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(e.Timestamp.UnixMilli(), 10))
	writeField(&sb, e.Verb.Name)
	writeField(&sb, e.Target.Type)
	writeField(&sb, e.Target.ID)

	r := e.Result
	if r.Success.IsSet() {
		writePair(&sb, trace.KeySuccess, strconv.FormatBool(r.Success.Bool()))
	}
	if r.Completion.IsSet() {
		writePair(&sb, trace.KeyCompletion, strconv.FormatBool(r.Completion.Bool()))
	}
	if r.Response != "" {
		writePair(&sb, trace.KeyResponse, r.Response)
	}
	if r.HasScore() {
		writePair(&sb, trace.KeyScore, trace.FormatFloat(r.Score))
	}
	keys := make([]string, 0, len(r.Extensions))
	for k := range r.Extensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := r.Extensions[k]
		writeField(&sb, k)
		sb.WriteByte(',')
		if v.Kind() == trace.KindString && !v.HasTextForm() {
			sb.WriteString(stringTag)
		}
		sb.WriteString(EscapeCSV(v.Text()))
	}
	return sb.String()
}

// MarshalCSVBatch encodes events one per line, each line terminated by \n.
func MarshalCSVBatch(events []trace.Event) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(MarshalCSV(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeField(sb *strings.Builder, s string) {
	sb.WriteByte(',')
	sb.WriteString(EscapeCSV(s))
}

func writePair(sb *strings.Builder, k, v string) {
	writeField(sb, k)
	writeField(sb, v)
}

// stringTag opens a value field that must be read back as a string.
const stringTag = `\s`

var csvEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, "\n", `\n`, "\r", `\r`)

// EscapeCSV escapes backslashes, commas and line breaks.
func EscapeCSV(s string) string {
	return csvEscaper.Replace(s)
}

// splitRaw splits line on unescaped commas, leaving escapes in place.
func splitRaw(line string) []string {
	var fields []string
	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case ',':
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	return append(fields, line[start:])
}

// unescapeCSV reverses EscapeCSV. Unknown escapes are kept as written.
func unescapeCSV(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '\\', ',':
			sb.WriteByte(s[i+1])
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(c)
			sb.WriteByte(s[i+1])
		}
		i++
	}
	return sb.String()
}

// SplitCSV splits line on unescaped commas and unescapes each field.
func SplitCSV(line string) []string {
	fields := splitRaw(line)
	for i, f := range fields {
		fields[i] = unescapeCSV(f)
	}
	return fields
}

// parseCSVValue reads a raw value field, honoring the string tag.
func parseCSVValue(key, raw string) trace.Value {
	if tagged, ok := strings.CutPrefix(raw, stringTag); ok {
		return trace.StringValue(unescapeCSV(tagged))
	}
	text := unescapeCSV(raw)
	if key == trace.KeyResponse {
		return trace.StringValue(text)
	}
	return trace.ParseValue(text)
}

// UnmarshalCSV decodes one CSV line. The target type is resolved against
// the vocabulary index; unknown types are kept lowercased. Reserved keys are
// routed into their result fields.
func UnmarshalCSV(line string) (trace.Event, error) {
	const op = "codec.unmarshal_csv"
	raw := splitRaw(strings.TrimRight(line, "\r\n"))
	if len(raw) < 4 {
		return trace.Event{}, trace.NewKind(op, trace.ErrTrace, "expected at least 4 fields, got "+strconv.Itoa(len(raw)))
	}
	if (len(raw)-4)%2 != 0 {
		return trace.Event{}, trace.NewKind(op, trace.ErrTrace, "extension key without value")
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw[0]), 10, 64)
	if err != nil {
		return trace.Event{}, trace.WrapKind(op, trace.ErrTrace, err)
	}
	verb, typ, id := unescapeCSV(raw[1]), unescapeCSV(raw[2]), unescapeCSV(raw[3])
	if !trace.IsPresent(verb) || !trace.IsPresent(typ) || !trace.IsPresent(id) {
		return trace.Event{}, trace.NewKind(op, trace.ErrTrace, "verb, target type and target id are required")
	}

	typ = strings.ToLower(strings.TrimSpace(typ))
	if k, ok := trace.LookupKind(typ); ok {
		typ = k.Name
	}
	e := trace.NewEvent(time.UnixMilli(ms).UTC(), trace.ParseVerb(verb), trace.Target{Type: typ, ID: id})

	for i := 4; i < len(raw); i += 2 {
		key := unescapeCSV(raw[i])
		if key == "" {
			return trace.Event{}, trace.NewKind(op, trace.ErrKeyExtension, "empty key at field "+strconv.Itoa(i))
		}
		if err := e.Result.Set(key, parseCSVValue(key, raw[i+1])); err != nil {
			return trace.Event{}, err
		}
	}
	return e, nil
}

// UnmarshalCSVBatch decodes every non-blank line of text.
func UnmarshalCSVBatch(text string) ([]trace.Event, error) {
	var events []trace.Event
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := UnmarshalCSV(line)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
