// Package trace contains the trace data model: verbs, target vocabularies,
// results, extension values and the validation policy applied to them.
package trace

import "time"

// Event is one recorded gameplay action.
type Event struct {
	Timestamp time.Time
	Verb      Verb
	Target    Target
	Result    Result
}

// NewEvent builds an event with an empty result.
func NewEvent(ts time.Time, verb Verb, target Target) Event {
	return Event{Timestamp: ts, Verb: verb, Target: target, Result: NewResult()}
}

// SameTrace compares verb, target and result, ignoring the timestamp.
func (e Event) SameTrace(o Event) bool {
	return e.Verb == o.Verb && e.Target == o.Target && e.Result.Equal(o.Result)
}
