package app

import (
	"context"
	"errors"

	"github.com/okian/gametrace/internal/adapters/mq/queue"
	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/okian/gametrace/pkg/metrics"
)

// Trace queues a free-form trace. Empty arguments are rejected in every
// mode; unknown verbs and target types are rejected only in strict mode
// and kept verbatim otherwise.
func (t *Tracker) Trace(ctx context.Context, verb, targetType, targetID string) error {
	const op = "tracker.trace"
	if !trace.IsPresent(verb) || !trace.IsPresent(targetType) || !trace.IsPresent(targetID) {
		err := trace.NewKind(op, trace.ErrTrace, "verb, target type and target id are required")
		recordRejected(err)
		return err
	}
	v, err := t.policy.Verb(ctx, op, verb, nil)
	if err != nil {
		recordRejected(err)
		return err
	}
	typ, err := t.policy.TargetType(ctx, op, targetType, trace.VocabularyNone)
	if err != nil {
		recordRejected(err)
		return err
	}
	return t.enqueue(ctx, trace.NewEvent(t.now(), v, trace.Target{Type: typ, ID: targetID}))
}

// enqueue consumes the staging area into e and queues it. The staging lock
// is held across the queue append so staged values land on the event that
// is queued first. A full queue rejects the trace under a strict policy and
// drops it with a warning otherwise; staging is kept either way.
func (t *Tracker) enqueue(ctx context.Context, e trace.Event) error {
	ready, err := t.push(ctx, e)
	if ready != nil {
		ready()
	}
	return err
}

func (t *Tracker) push(ctx context.Context, e trace.Event) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.staged) > 0 {
		if err := e.Result.Merge(t.staged); err != nil {
			recordRejected(err)
			return nil, err
		}
	}
	if err := t.queue.Enqueue(ctx, e); err != nil {
		metrics.RecordTraceRejected("queue")
		if t.settings.Strict || !errors.Is(err, queue.ErrFull) {
			return nil, err
		}
		t.logger.Warn(ctx, "trace queue full, trace dropped", logger.String("verb", e.Verb.Name))
		return nil, nil
	}
	t.staged = make(map[string]trace.Value)
	metrics.RecordTraceEnqueued(e.Verb.Name)

	if n := t.settings.BatchSize; n > 0 && t.queue.Len()%n == 0 {
		return t.batchReady, nil
	}
	return nil, nil
}

func errorKind(err error) string {
	for _, k := range []struct {
		err  error
		name string
	}{
		{trace.ErrTrace, "trace"},
		{trace.ErrVerb, "verb"},
		{trace.ErrTarget, "target"},
		{trace.ErrKeyExtension, "key_extension"},
		{trace.ErrValueExtension, "value_extension"},
		{trace.ErrUnmarshalling, "unmarshalling"},
		{trace.ErrXAPI, "xapi"},
	} {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "other"
}

func recordRejected(err error) { metrics.RecordTraceRejected(errorKind(err)) }

func recordDropped(kind error) { metrics.RecordTraceRejected(errorKind(kind) + "_dropped") }
