package app

import (
	"context"

	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
)

// The setters stage a value that the next queued trace picks up, whatever
// its verb. Staging is shared by every goroutine using the tracker.

// SetScore stages the result score. Values outside [0,1] are kept with a
// warning.
func (t *Tracker) SetScore(ctx context.Context, score float64) error {
	if trace.IsFinite(score) && (score < 0 || score > 1) {
		t.logger.Warn(ctx, "score outside [0,1]", logger.Float64("score", score))
	}
	return t.stage(ctx, "tracker.set_score", trace.KeyScore, trace.FloatValue(score))
}

// SetSuccess stages the result success flag.
func (t *Tracker) SetSuccess(ctx context.Context, success bool) error {
	return t.stage(ctx, "tracker.set_success", trace.KeySuccess, trace.BoolValue(success))
}

// SetCompletion stages the result completion flag.
func (t *Tracker) SetCompletion(ctx context.Context, completion bool) error {
	return t.stage(ctx, "tracker.set_completion", trace.KeyCompletion, trace.BoolValue(completion))
}

// SetResponse stages the result response.
func (t *Tracker) SetResponse(ctx context.Context, response string) error {
	return t.stage(ctx, "tracker.set_response", trace.KeyResponse, trace.StringValue(response))
}

// SetHealth stages the health extension.
func (t *Tracker) SetHealth(ctx context.Context, health float64) error {
	return t.stage(ctx, "tracker.set_health", trace.ExtHealth, trace.FloatValue(health))
}

// SetPosition stages the position extension as an x/y/z map.
func (t *Tracker) SetPosition(ctx context.Context, x, y, z float64) error {
	if !trace.IsFinite(x) || !trace.IsFinite(y) || !trace.IsFinite(z) {
		_, err := t.policy.Complain(ctx, false, trace.ErrValueExtension, "tracker.set_position", "position has a non-finite coordinate")
		if err != nil {
			recordRejected(err)
		} else {
			recordDropped(trace.ErrValueExtension)
		}
		return err
	}
	return t.stage(ctx, "tracker.set_position", trace.ExtPosition, trace.MapValue(map[string]trace.Value{
		"x": trace.FloatValue(x),
		"y": trace.FloatValue(y),
		"z": trace.FloatValue(z),
	}))
}

// SetProgress stages the progress extension.
func (t *Tracker) SetProgress(ctx context.Context, progress float64) error {
	return t.stage(ctx, "tracker.set_progress", trace.ExtProgress, trace.FloatValue(progress))
}

// SetVar stages an arbitrary extension. Reserved keys are routed to their
// result fields when the trace is queued.
func (t *Tracker) SetVar(ctx context.Context, key string, v trace.Value) error {
	return t.stage(ctx, "tracker.set_var", key, v)
}

func (t *Tracker) stage(ctx context.Context, op, key string, v trace.Value) error {
	ok, err := t.policy.Extension(ctx, op, key, v)
	if ok && trace.IsReserved(key) {
		// Reject reserved values now so the merge at enqueue cannot fail.
		check := trace.NewResult()
		ok, err = t.policy.Complain(ctx, check.Set(key, v) == nil, trace.ErrValueExtension, op,
			"value "+v.Text()+" does not fit "+key)
	}
	if err != nil {
		recordRejected(err)
		return err
	}
	if !ok {
		recordDropped(trace.ErrValueExtension)
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged[key] = v
	return nil
}
