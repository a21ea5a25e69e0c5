package codec_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/sebdah/goldie/v2"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	strict  = trace.Policy{Strict: true, Logger: logger.Nop()}
	lenient = trace.Policy{Strict: false, Logger: logger.Nop()}
	session = codec.Session{
		Actor:      json.RawMessage(`{"name":"player"}`),
		ObjectBase: "https://example.org/games/demo/",
	}
)

func sampleEvents() []trace.Event {
	first := trace.NewEvent(
		time.Date(2024, time.January, 2, 3, 4, 5, 678_000_000, time.UTC),
		trace.NewVerb(trace.VerbInitialized),
		trace.Target{Type: "level", ID: "L1"},
	)
	first.Result.Response = "R"
	first.Result.Score = 0.5

	second := trace.NewEvent(
		time.Date(2024, time.January, 2, 3, 4, 6, 0, time.UTC),
		trace.NewVerb(trace.VerbAccessed),
		trace.Target{Type: "screen", ID: "menu"},
	)
	second.Result.Success = trace.True
	second.Result.SetExtension(trace.ExtHealth, trace.IntValue(3))
	second.Result.SetExtension(trace.ExtPosition, trace.MapValue(map[string]trace.Value{
		"x": trace.FloatValue(1.5),
		"y": trace.FloatValue(-2.5),
	}))
	return []trace.Event{first, second}
}

func TestCSVGolden(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "csv_batch", []byte(codec.MarshalCSVBatch(sampleEvents())))
}

func TestXAPIGolden(t *testing.T) {
	out, err := codec.MarshalXAPIBatch(context.Background(), strict, sampleEvents(), session)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	g := goldie.New(t)
	g.Assert(t, "xapi_batch", []byte(out))
}

func TestCSVRoundTrip(t *testing.T) {
	Convey("Given well-formed events with known targets", t, func() {
		events := sampleEvents()
		third := trace.NewEvent(time.Now(), trace.NewVerb(trace.VerbCompleted), trace.Target{Type: "quest", ID: "q,1"})
		third.Result.Completion = trace.False
		third.Result.Score = 1
		third.Result.SetExtension("note", trace.StringValue("left, then right"))
		third.Result.SetExtension("lives", trace.IntValue(-2))
		events = append(events, third)

		awkward := trace.NewEvent(time.UnixMilli(5000), trace.NewVerb(trace.VerbUsed), trace.Target{Type: "item", ID: `key\`})
		awkward.Result.Response = "left\nright"
		awkward.Result.SetExtension("dir", trace.StringValue(`dir\`))
		awkward.Result.SetExtension("note", trace.StringValue("line1\nline2\r"))
		awkward.Result.SetExtension("code", trace.StringValue("42"))
		awkward.Result.SetExtension("ratio", trace.StringValue("-0.5"))
		awkward.Result.SetExtension("pair", trace.StringValue("a=b"))
		awkward.Result.SetExtension("flag", trace.StringValue("true"))
		awkward.Result.SetExtension("raw", trace.StringValue(`\s,\n`))
		events = append(events, awkward)

		Convey("When each is marshalled and unmarshalled", func() {
			for _, e := range events {
				line := codec.MarshalCSV(e)
				got, err := codec.UnmarshalCSV(line)

				Convey("Then verb, target and result survive for "+e.Target.ID, func() {
					So(err, ShouldBeNil)
					So(got.SameTrace(e), ShouldBeTrue)
					So(got.Timestamp.UnixMilli(), ShouldEqual, e.Timestamp.UnixMilli())
				})
			}
		})
	})
}

func TestCSVBatchRoundTrip(t *testing.T) {
	Convey("Given a batch whose values carry line breaks and backslashes", t, func() {
		e := trace.NewEvent(time.UnixMilli(1000), trace.NewVerb(trace.VerbAccessed), trace.Target{Type: "screen", ID: "menu"})
		e.Result.SetExtension("note", trace.StringValue("one\ntwo"))
		e.Result.SetExtension("path", trace.StringValue(`C:\games\`))
		other := trace.NewEvent(time.UnixMilli(2000), trace.NewVerb(trace.VerbSkipped), trace.Target{Type: "cutscene", ID: "intro"})

		text := codec.MarshalCSVBatch([]trace.Event{e, other})

		Convey("Then every event stays on its own line", func() {
			So(strings.Count(text, "\n"), ShouldEqual, 2)
		})

		Convey("Then the batch reads back unchanged", func() {
			got, err := codec.UnmarshalCSVBatch(text)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].SameTrace(e), ShouldBeTrue)
			So(got[1].SameTrace(other), ShouldBeTrue)
		})
	})
}

func TestCSVEscaping(t *testing.T) {
	Convey("Given values that need escaping or a kind tag", t, func() {
		e := trace.NewEvent(time.UnixMilli(1000), trace.NewVerb(trace.VerbUsed), trace.Target{Type: "item", ID: "potion"})
		e.Result.SetExtension("code", trace.StringValue("42"))
		e.Result.SetExtension("path", trace.StringValue(`C:\games\`))
		e.Result.SetExtension("text", trace.StringValue("a\nb"))

		Convey("Then the line uses the escapes", func() {
			So(codec.MarshalCSV(e), ShouldEqual, `1000,used,item,potion,code,\s42,path,C:\\games\\,text,a\nb`)
		})

		Convey("Then split fields are unescaped", func() {
			So(codec.SplitCSV(`a\,b,c\\,d\ne`), ShouldResemble, []string{"a,b", `c\`, "d\ne"})
		})
	})

	Convey("Given an extension value with a comma", t, func() {
		e := trace.NewEvent(time.UnixMilli(1000), trace.NewVerb(trace.VerbUsed), trace.Target{Type: "item", ID: "potion"})
		e.Result.SetExtension("said", trace.StringValue("yes, please"))

		line := codec.MarshalCSV(e)

		Convey("Then the comma is escaped", func() {
			So(line, ShouldEqual, `1000,used,item,potion,said,yes\, please`)
		})

		Convey("Then it round-trips exactly", func() {
			got, err := codec.UnmarshalCSV(line)
			So(err, ShouldBeNil)
			So(got.Result.Extensions["said"].Str(), ShouldEqual, "yes, please")
		})
	})
}

func TestCSVUnmarshalErrors(t *testing.T) {
	Convey("Given malformed CSV lines", t, func() {
		cases := map[string]string{
			"too few fields": "1000,accessed,screen",
			"odd tail":       "1000,accessed,screen,menu,lonely",
			"bad timestamp":  "yesterday,accessed,screen,menu",
			"empty id":       "1000,accessed,screen,",
		}
		for name, line := range cases {
			Convey("Then "+name+" is a trace error", func() {
				_, err := codec.UnmarshalCSV(line)
				So(errors.Is(err, trace.ErrTrace), ShouldBeTrue)
			})
		}

		Convey("Then a bad score value is an unmarshalling error", func() {
			_, err := codec.UnmarshalCSV("1000,accessed,screen,menu,score,high")
			So(errors.Is(err, trace.ErrUnmarshalling), ShouldBeTrue)
		})
	})

	Convey("Given an unknown target type", t, func() {
		e, err := codec.UnmarshalCSV("1000,accessed,Vault,door")
		So(err, ShouldBeNil)
		So(e.Target.Type, ShouldEqual, "vault")
	})
}

func TestXAPI(t *testing.T) {
	ctx := context.Background()

	Convey("Given a completable event with response and score", t, func() {
		e := sampleEvents()[0]
		out, err := codec.MarshalXAPIBatch(ctx, strict, []trace.Event{e}, session)
		So(err, ShouldBeNil)

		var decoded []map[string]any
		So(json.Unmarshal([]byte(out), &decoded), ShouldBeNil)

		Convey("Then the statement carries the expected fields", func() {
			So(len(decoded), ShouldEqual, 1)
			st := decoded[0]
			So(st["verb"].(map[string]any)["id"], ShouldEqual, "http://adlnet.gov/expapi/verbs/initialized")
			result := st["result"].(map[string]any)
			So(result["response"], ShouldEqual, "R")
			So(result["score"].(map[string]any)["raw"], ShouldEqual, 0.5)
			So(st["object"].(map[string]any)["id"], ShouldEqual, "https://example.org/games/demo/L1")
		})
	})

	Convey("Given an event with an unknown target type", t, func() {
		e := trace.NewEvent(time.Now(), trace.NewVerb(trace.VerbUsed), trace.Target{Type: "widget", ID: "w"})

		Convey("Then strict mode fails with an xAPI target error", func() {
			_, err := codec.MarshalXAPI(ctx, strict, e, session)
			So(errors.Is(err, trace.ErrXAPI), ShouldBeTrue)
			So(errors.Is(err, trace.ErrTarget), ShouldBeTrue)
		})

		Convey("Then lenient mode emits the raw type", func() {
			out, err := codec.MarshalXAPI(ctx, lenient, e, session)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"type":"widget"`)
		})
	})

	Convey("Given a marshalled batch", t, func() {
		out, err := codec.MarshalXAPIBatch(ctx, strict, sampleEvents(), session)
		So(err, ShouldBeNil)

		Convey("When it is read back", func() {
			events, err := codec.UnmarshalXAPI([]byte(out), session.ObjectBase)

			Convey("Then the events match", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 2)
				for i, e := range sampleEvents() {
					So(events[i].SameTrace(e), ShouldBeTrue)
					So(events[i].Timestamp.Equal(e.Timestamp), ShouldBeTrue)
				}
			})
		})

		Convey("When the payload is not an array", func() {
			_, err := codec.UnmarshalXAPI([]byte(`{"verb":{}}`), "")
			So(errors.Is(err, trace.ErrUnmarshalling), ShouldBeTrue)
		})
	})
}

func TestSplice(t *testing.T) {
	Convey("Given JSON array texts", t, func() {
		So(codec.SpliceJSONArrays("", `[{"a":1}]`), ShouldEqual, `[{"a":1}]`)
		So(codec.SpliceJSONArrays(`[{"a":1}]`, "[]"), ShouldEqual, `[{"a":1}]`)
		So(codec.SpliceJSONArrays("[{\"a\":1}]\n", `[{"b":2},{"c":3}]`), ShouldEqual, `[{"a":1},{"b":2},{"c":3}]`)

		Convey("Then the spliced text is still valid JSON", func() {
			var v []map[string]int
			merged := codec.Merge(codec.FormatXAPI, `[{"a":1}]`, `[{"b":2}]`)
			So(json.Unmarshal([]byte(merged), &v), ShouldBeNil)
			So(len(v), ShouldEqual, 2)
		})

		Convey("Then CSV content is concatenated", func() {
			So(codec.Merge(codec.FormatCSV, "a\n", "b\n"), ShouldEqual, "a\nb\n")
		})
	})
}

func TestFormats(t *testing.T) {
	Convey("Given format names", t, func() {
		f, err := codec.ParseFormat("XAPI")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, codec.FormatXAPI)
		So(f.ContentType(), ShouldEqual, "application/json")

		_, err = codec.ParseFormat("yaml")
		So(errors.Is(err, codec.ErrUnknownFormat), ShouldBeTrue)

		Convey("Then xml encodes to nothing", func() {
			c := codec.New(codec.FormatXML, strict)
			out, err := c.MarshalBatch(context.Background(), sampleEvents(), session)
			So(err, ShouldBeNil)
			So(strings.TrimSpace(out), ShouldEqual, "")
		})
	})
}
