// Package codec translates trace events to and from their wire encodings:
// CSV lines (round-trip safe, also used for backups) and xAPI statements.
package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okian/gametrace/internal/domain/trace"
)

// Format selects a wire encoding.
type Format string

// Supported formats. JSON is an alias of XAPI; XML is accepted and encodes
// nothing.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXAPI Format = "xapi"
	FormatXML  Format = "xml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXAPI, FormatXML:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// IsJSON reports whether batches in this format are JSON arrays.
func (f Format) IsJSON() bool { return f == FormatJSON || f == FormatXAPI }

// ContentType returns the HTTP content type for payloads in this format.
func (f Format) ContentType() string {
	switch {
	case f.IsJSON():
		return "application/json"
	case f == FormatXML:
		return "application/xml"
	default:
		return "text/csv"
	}
}

// Session carries the handshake-resolved data the xAPI encoding needs.
type Session struct {
	// Actor is the raw xAPI actor object; omitted from statements when empty.
	Actor json.RawMessage
	// ObjectBase is prefixed to every target id.
	ObjectBase string
}

// Codec encodes batches in one format under one validation policy.
type Codec struct {
	format Format
	policy trace.Policy
}

// New builds a Codec.
func New(format Format, policy trace.Policy) *Codec {
	return &Codec{format: format, policy: policy}
}

// Format returns the configured format.
func (c *Codec) Format() Format { return c.format }

// MarshalBatch encodes events as one delivery payload.
func (c *Codec) MarshalBatch(ctx context.Context, events []trace.Event, s Session) (string, error) {
	switch {
	case c.format.IsJSON():
		return MarshalXAPIBatch(ctx, c.policy, events, s)
	case c.format == FormatXML:
		return "", nil
	default:
		return MarshalCSVBatch(events), nil
	}
}

// MarshalValid encodes events as one delivery payload, leaving out every
// event that cannot be encoded. It returns the payload, the number of
// events left out and the first encoding error.
func (c *Codec) MarshalValid(ctx context.Context, events []trace.Event, s Session) (string, int, error) {
	if !c.format.IsJSON() {
		out, err := c.MarshalBatch(ctx, events, s)
		return out, 0, err
	}
	parts := make([]string, 0, len(events))
	var first error
	for _, e := range events {
		st, err := MarshalXAPI(ctx, c.policy, e, s)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		parts = append(parts, st)
	}
	if len(parts) == 0 {
		return "", len(events), first
	}
	return "[" + strings.Join(parts, ",") + "]", len(events) - len(parts), first
}

// Merge appends payload to existing log content in this format.
func (c *Codec) Merge(existing, payload string) string {
	return Merge(c.format, existing, payload)
}

// Merge appends payload to existing: JSON arrays are spliced textually,
// everything else is concatenated.
func Merge(f Format, existing, payload string) string {
	if f.IsJSON() {
		return SpliceJSONArrays(existing, payload)
	}
	return existing + payload
}

// SpliceJSONArrays joins two JSON array texts by dropping the closing
// bracket of the first and the opening bracket of the second. Neither side
// is parsed.
func SpliceJSONArrays(existing, batch string) string {
	a := strings.TrimSpace(existing)
	b := strings.TrimSpace(batch)
	switch {
	case isEmptyArray(a):
		return b
	case isEmptyArray(b):
		return a
	}
	return strings.TrimSuffix(a, "]") + "," + strings.TrimPrefix(b, "[")
}

func isEmptyArray(s string) bool {
	if s == "" {
		return true
	}
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
	return strings.HasPrefix(s, "[") && inner == ""
}
