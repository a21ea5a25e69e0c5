package trace_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVerbVocabulary(t *testing.T) {
	Convey("Given verb strings", t, func() {
		Convey("When the verb is well known", func() {
			v := trace.ParseVerb("  Accessed ")

			Convey("Then it resolves to its IRI", func() {
				So(v.IsKnown(), ShouldBeTrue)
				So(v.Name, ShouldEqual, "accessed")
				So(v.IRI(), ShouldEqual, "https://w3id.org/xapi/seriousgames/verbs/accessed")
			})
		})

		Convey("When the verb is unknown", func() {
			v := trace.ParseVerb("jumped")

			Convey("Then it is kept verbatim without an IRI", func() {
				So(v.IsKnown(), ShouldBeFalse)
				So(v.Name, ShouldEqual, "jumped")
				So(v.IRI(), ShouldEqual, "")
			})
		})

		Convey("When resolving from an IRI", func() {
			v, ok := trace.VerbFromIRI("http://id.tincanapi.com/verb/skipped")
			So(ok, ShouldBeTrue)
			So(v, ShouldResemble, trace.NewVerb(trace.VerbSkipped))
		})
	})
}

func TestTargetVocabulary(t *testing.T) {
	Convey("Given the flat target vocabulary", t, func() {
		Convey("Then every member round-trips through name and IRI", func() {
			for _, k := range trace.Kinds() {
				byName, ok := trace.LookupKind(k.Name)
				So(ok, ShouldBeTrue)
				So(byName, ShouldResemble, k)
				byIRI, ok := trace.KindFromIRI(k.IRI)
				So(ok, ShouldBeTrue)
				So(byIRI, ShouldResemble, k)
			}
		})

		Convey("Then each vocabulary has a generic member", func() {
			So(trace.VocabularyCompletable.Generic(), ShouldResemble, trace.KindCompletable)
			So(trace.VocabularyAccessible.Generic(), ShouldResemble, trace.KindAccessible)
			So(trace.VocabularyAlternative.Generic(), ShouldResemble, trace.KindAlternative)
			So(trace.VocabularyGameObject.Generic(), ShouldResemble, trace.KindGameObject)
		})

		Convey("Then irregular IRIs are preserved", func() {
			So(trace.KindGame.IRI, ShouldEqual, "https://w3id.org/xapi/seriousgames/activity-types/serious-game")
			So(trace.KindQuestion.IRI, ShouldEqual, "http://adlnet.gov/expapi/activities/question")
			So(trace.KindNPC.IRI, ShouldEqual, "https://w3id.org/xapi/seriousgames/activity-types/non-player-character")
		})
	})
}

func TestValues(t *testing.T) {
	Convey("Given extension values", t, func() {
		Convey("When rendering text", func() {
			So(trace.IntValue(42).Text(), ShouldEqual, "42")
			So(trace.FloatValue(2).Text(), ShouldEqual, "2.0")
			So(trace.FloatValue(0.25).Text(), ShouldEqual, "0.25")
			So(trace.BoolValue(true).Text(), ShouldEqual, "true")
			m := trace.MapValue(map[string]trace.Value{
				"y": trace.FloatValue(-1.5),
				"x": trace.FloatValue(3),
			})
			So(m.Text(), ShouldEqual, "x=3.0-y=-1.5")
		})

		Convey("When parsing text", func() {
			So(trace.ParseValue("42").Equal(trace.IntValue(42)), ShouldBeTrue)
			So(trace.ParseValue("2.0").Equal(trace.FloatValue(2)), ShouldBeTrue)
			So(trace.ParseValue("false").Equal(trace.BoolValue(false)), ShouldBeTrue)
			So(trace.ParseValue("NaN").Equal(trace.StringValue("NaN")), ShouldBeTrue)
			So(trace.ParseValue("hello").Equal(trace.StringValue("hello")), ShouldBeTrue)

			m := trace.ParseValue("x=3.0-y=-1.5-z=0")
			So(m.Kind(), ShouldEqual, trace.KindMap)
			So(m.Map()["y"].Equal(trace.FloatValue(-1.5)), ShouldBeTrue)
			So(m.Map()["z"].Equal(trace.IntValue(0)), ShouldBeTrue)
		})

		Convey("When checking presence", func() {
			So(trace.IsPresent(nil), ShouldBeFalse)
			So(trace.IsPresent(""), ShouldBeFalse)
			So(trace.IsPresent("  "), ShouldBeFalse)
			So(trace.IsPresent(math.NaN()), ShouldBeFalse)
			So(trace.IsPresent(0.0), ShouldBeTrue)
			So(trace.IsPresent(trace.StringValue("")), ShouldBeFalse)
			So(trace.IsPresent(trace.IntValue(0)), ShouldBeTrue)
		})

		Convey("When a float is infinite", func() {
			So(trace.IsPresent(math.Inf(1)), ShouldBeFalse)
			So(trace.FloatValue(math.Inf(-1)).IsPresent(), ShouldBeFalse)
			So(trace.MapValue(map[string]trace.Value{
				"x": trace.FloatValue(1),
				"y": trace.FloatValue(math.Inf(1)),
			}).IsPresent(), ShouldBeFalse)
		})
	})
}

func TestResultRouting(t *testing.T) {
	Convey("Given an empty result", t, func() {
		r := trace.NewResult()
		So(r.IsEmpty(), ShouldBeTrue)
		So(r.HasScore(), ShouldBeFalse)

		Convey("When reserved keys are ingested", func() {
			So(r.Set(trace.KeySuccess, trace.BoolValue(true)), ShouldBeNil)
			So(r.Set(trace.KeyCompletion, trace.StringValue("false")), ShouldBeNil)
			So(r.Set(trace.KeyResponse, trace.StringValue("R")), ShouldBeNil)
			So(r.Set(trace.KeyScore, trace.IntValue(1)), ShouldBeNil)
			So(r.Set("lives", trace.IntValue(3)), ShouldBeNil)

			Convey("Then they land in dedicated fields", func() {
				So(r.Success, ShouldEqual, trace.True)
				So(r.Completion, ShouldEqual, trace.False)
				So(r.Response, ShouldEqual, "R")
				So(r.Score, ShouldEqual, 1.0)
				So(len(r.Extensions), ShouldEqual, 1)
				So(r.Extensions["lives"].Int(), ShouldEqual, 3)
			})
		})

		Convey("When a reserved key carries a bad value", func() {
			err := r.Set(trace.KeyScore, trace.StringValue("lots"))

			Convey("Then an unmarshalling error is returned", func() {
				So(errors.Is(err, trace.ErrUnmarshalling), ShouldBeTrue)
				So(errors.Is(err, trace.ErrTracker), ShouldBeTrue)
			})
		})

		Convey("When the score is not finite", func() {
			So(errors.Is(r.Set(trace.KeyScore, trace.FloatValue(math.Inf(1))), trace.ErrUnmarshalling), ShouldBeTrue)
			So(errors.Is(r.Set(trace.KeyScore, trace.StringValue("-Inf")), trace.ErrUnmarshalling), ShouldBeTrue)
			So(r.HasScore(), ShouldBeFalse)
		})
	})
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()

	Convey("Given a strict policy", t, func() {
		p := trace.Policy{Strict: true, Logger: logger.Nop()}

		Convey("When a verb is unknown", func() {
			_, err := p.Verb(ctx, "test", "jumped", nil)
			So(errors.Is(err, trace.ErrVerb), ShouldBeTrue)
		})

		Convey("When a target type is from another vocabulary", func() {
			_, err := p.TargetType(ctx, "test", "level", trace.VocabularyAccessible)
			So(errors.Is(err, trace.ErrTarget), ShouldBeTrue)
		})

		Convey("When an extension value is NaN", func() {
			ok, err := p.Extension(ctx, "test", "score", trace.FloatValue(math.NaN()))
			So(ok, ShouldBeFalse)
			So(errors.Is(err, trace.ErrValueExtension), ShouldBeTrue)
		})

		Convey("When an extension value is infinite", func() {
			ok, err := p.Extension(ctx, "test", "health", trace.FloatValue(math.Inf(1)))
			So(ok, ShouldBeFalse)
			So(errors.Is(err, trace.ErrValueExtension), ShouldBeTrue)
		})

		Convey("When a map extension does not survive its text form", func() {
			for _, m := range []map[string]trace.Value{
				{"hit-points": trace.IntValue(3)},
				{"label": trace.StringValue("42")},
				{"eq": trace.StringValue("a=b")},
			} {
				ok, err := p.Extension(ctx, "test", "stats", trace.MapValue(m))
				So(ok, ShouldBeFalse)
				So(errors.Is(err, trace.ErrValueExtension), ShouldBeTrue)
			}
		})

		Convey("When a map extension survives its text form", func() {
			ok, err := p.Extension(ctx, "test", "position", trace.MapValue(map[string]trace.Value{
				"x": trace.FloatValue(1.5),
				"y": trace.FloatValue(-2),
				"z": trace.IntValue(0),
			}))
			So(ok, ShouldBeTrue)
			So(err, ShouldBeNil)
		})

		Convey("When an extension key is empty", func() {
			_, err := p.Extension(ctx, "test", "", trace.IntValue(1))
			So(errors.Is(err, trace.ErrKeyExtension), ShouldBeTrue)
		})
	})

	Convey("Given a lenient policy", t, func() {
		var buf bytes.Buffer
		p := trace.Policy{Strict: false, Logger: logger.New(&buf, slog.LevelWarn)}

		Convey("When a target type is unknown", func() {
			typ, err := p.TargetType(ctx, "test", "boss", trace.VocabularyGameObject)

			Convey("Then the generic member is substituted and a warning logged", func() {
				So(err, ShouldBeNil)
				So(typ, ShouldEqual, "gameobject")
				So(buf.String(), ShouldContainSubstring, "unknown target type")
			})
		})

		Convey("When a verb is unknown with a fallback", func() {
			fallback := trace.NewVerb(trace.VerbInteracted)
			v, err := p.Verb(ctx, "test", "poked", &fallback)
			So(err, ShouldBeNil)
			So(v, ShouldResemble, fallback)
		})

		Convey("When the target id is empty", func() {
			ok, err := p.TargetID(ctx, "test", "")
			So(ok, ShouldBeFalse)
			So(err, ShouldBeNil)
		})
	})
}

func TestEventComparison(t *testing.T) {
	Convey("Given two events differing only in time", t, func() {
		a := trace.NewEvent(time.Now(), trace.NewVerb(trace.VerbUsed), trace.Target{Type: "item", ID: "key"})
		b := a
		b.Timestamp = a.Timestamp.Add(time.Hour)
		b.Result = a.Result.Clone()

		So(a.SameTrace(b), ShouldBeTrue)

		b.Result.SetExtension("k", trace.StringValue("v"))
		So(a.SameTrace(b), ShouldBeFalse)
		So(a.Result.Extensions, ShouldBeNil)
	})
}
