package app

import (
	"context"
	"math"

	"github.com/okian/gametrace/internal/domain/trace"
)

// Completable traces progress through games, levels, quests and the like.
type Completable struct{ t *Tracker }

// Accessible traces screens, areas and other places the player visits.
type Accessible struct{ t *Tracker }

// Alternative traces choices: questions, menus, dialogs.
type Alternative struct{ t *Tracker }

// GameObject traces interaction with enemies, NPCs and items.
type GameObject struct{ t *Tracker }

// Completable returns the completable verb tracker.
func (t *Tracker) Completable() Completable { return Completable{t} }

// Accessible returns the accessible verb tracker.
func (t *Tracker) Accessible() Accessible { return Accessible{t} }

// Alternative returns the alternative verb tracker.
func (t *Tracker) Alternative() Alternative { return Alternative{t} }

// GameObject returns the game object verb tracker.
func (t *Tracker) GameObject() GameObject { return GameObject{t} }

// Initialized traces the start of a completable. kind defaults to game.
func (c Completable) Initialized(ctx context.Context, id string, kind ...trace.Kind) error {
	return c.t.track(ctx, "completable.initialized", trace.VerbInitialized, trace.VocabularyCompletable, trace.KindGame, id, kind, nil)
}

// Progressed traces partial progress, stored in the progress extension.
func (c Completable) Progressed(ctx context.Context, id string, progress float64, kind ...trace.Kind) error {
	const op = "completable.progressed"
	ok, err := c.t.policy.Extension(ctx, op, trace.ExtProgress, trace.FloatValue(progress))
	if err != nil {
		recordRejected(err)
		return err
	}
	return c.t.track(ctx, op, trace.VerbProgressed, trace.VocabularyCompletable, trace.KindGame, id, kind,
		func(r *trace.Result) {
			if ok {
				r.SetExtension(trace.ExtProgress, trace.FloatValue(progress))
			}
		})
}

// Completed traces the end of a completable. A NaN score leaves the score
// unset; an infinite one is rejected.
func (c Completable) Completed(ctx context.Context, id string, success bool, score float64, kind ...trace.Kind) error {
	const op = "completable.completed"
	ok, err := c.t.policy.Complain(ctx, !math.IsInf(score, 0), trace.ErrValueExtension, op, "score is infinite")
	if err != nil {
		recordRejected(err)
		return err
	}
	return c.t.track(ctx, op, trace.VerbCompleted, trace.VocabularyCompletable, trace.KindGame, id, kind,
		func(r *trace.Result) {
			r.Success = trace.TriOf(success)
			r.Completion = trace.True
			if ok && !math.IsNaN(score) {
				r.Score = score
			}
		})
}

// Accessed traces entering an accessible. kind defaults to screen.
func (a Accessible) Accessed(ctx context.Context, id string, kind ...trace.Kind) error {
	return a.t.track(ctx, "accessible.accessed", trace.VerbAccessed, trace.VocabularyAccessible, trace.KindScreen, id, kind, nil)
}

// Skipped traces skipping an accessible.
func (a Accessible) Skipped(ctx context.Context, id string, kind ...trace.Kind) error {
	return a.t.track(ctx, "accessible.skipped", trace.VerbSkipped, trace.VocabularyAccessible, trace.KindScreen, id, kind, nil)
}

// Selected traces choosing optionID. kind defaults to question.
func (a Alternative) Selected(ctx context.Context, id, optionID string, kind ...trace.Kind) error {
	return a.t.trackOption(ctx, "alternative.selected", trace.VerbSelected, id, optionID, kind)
}

// Unlocked traces unlocking optionID.
func (a Alternative) Unlocked(ctx context.Context, id, optionID string, kind ...trace.Kind) error {
	return a.t.trackOption(ctx, "alternative.unlocked", trace.VerbUnlocked, id, optionID, kind)
}

// Interacted traces interacting with a game object. kind defaults to
// gameobject.
func (g GameObject) Interacted(ctx context.Context, id string, kind ...trace.Kind) error {
	return g.t.track(ctx, "gameobject.interacted", trace.VerbInteracted, trace.VocabularyGameObject, trace.KindGameObject, id, kind, nil)
}

// Used traces using a game object.
func (g GameObject) Used(ctx context.Context, id string, kind ...trace.Kind) error {
	return g.t.track(ctx, "gameobject.used", trace.VerbUsed, trace.VocabularyGameObject, trace.KindGameObject, id, kind, nil)
}

func (t *Tracker) trackOption(ctx context.Context, op string, verb trace.KnownVerb, id, optionID string, kind []trace.Kind) error {
	ok, err := t.policy.Complain(ctx, trace.IsPresent(optionID), trace.ErrValueExtension, op, "option id is empty")
	if err != nil {
		recordRejected(err)
		return err
	}
	return t.track(ctx, op, verb, trace.VocabularyAlternative, trace.KindQuestion, id, kind, func(r *trace.Result) {
		if ok {
			r.Response = optionID
		}
	})
}

// track validates id and kind against vocab and queues the event. In
// lenient mode an empty id drops the trace and leaves staging untouched; a
// kind from another vocabulary becomes the vocabulary's generic kind.
func (t *Tracker) track(ctx context.Context, op string, verb trace.KnownVerb, vocab trace.Vocabulary, def trace.Kind, id string, kind []trace.Kind, fill func(*trace.Result)) error {
	ok, err := t.policy.TargetID(ctx, op, id)
	if err != nil {
		recordRejected(err)
		return err
	}
	if !ok {
		recordDropped(trace.ErrTarget)
		return nil
	}

	k := def
	if len(kind) > 0 {
		k = kind[0]
	}
	typ, err := t.policy.TargetType(ctx, op, k.Name, vocab)
	if err != nil {
		recordRejected(err)
		return err
	}

	e := trace.NewEvent(t.now(), trace.NewVerb(verb), trace.Target{Type: typ, ID: id})
	if fill != nil {
		fill(&e.Result)
	}
	return t.enqueue(ctx, e)
}
