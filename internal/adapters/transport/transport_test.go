package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/gametrace/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSend(t *testing.T) {
	Convey("Given a test server", t, func() {
		var gotHeader, gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Get("Authorization")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			switch r.URL.Path {
			case "/slow":
				time.Sleep(200 * time.Millisecond)
			case "/fail":
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("down"))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		tr := New(WithLogger(logger.Nop()), WithTimeout(50*time.Millisecond))
		ctx := context.Background()

		Convey("When the request succeeds", func() {
			resp, err := tr.Send(ctx, http.MethodPost, srv.URL+"/ok", map[string]string{"Authorization": "tok"}, []byte("payload"))

			Convey("Then headers, body and response are carried", func() {
				So(err, ShouldBeNil)
				So(resp.OK(), ShouldBeTrue)
				So(string(resp.Body), ShouldEqual, `{"ok":true}`)
				So(gotHeader, ShouldEqual, "tok")
				So(gotBody, ShouldEqual, "payload")
			})
		})

		Convey("When the server answers non-2xx", func() {
			resp, err := tr.Send(ctx, http.MethodPost, srv.URL+"/fail", nil, nil)

			Convey("Then the status is an error but the response is kept", func() {
				So(errors.Is(err, ErrStatus), ShouldBeTrue)
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
				So(string(resp.Body), ShouldEqual, "down")
			})
		})

		Convey("When the server is slower than the deadline", func() {
			_, err := tr.Send(ctx, http.MethodGet, srv.URL+"/slow", nil, nil)

			Convey("Then the request times out", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})

	Convey("Given a nil transport", t, func() {
		var tr *HTTP
		_, err := tr.Send(context.Background(), http.MethodGet, "http://localhost", nil, nil)
		So(errors.Is(err, ErrNoClient), ShouldBeTrue)
	})
}
