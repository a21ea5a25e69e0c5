package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	worker "github.com/okian/gametrace/internal/adapters/mq/worker"
	logging "github.com/okian/gametrace/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type countingFlusher struct {
	calls   atomic.Int64
	failing atomic.Bool
}

func (f *countingFlusher) Flush(ctx context.Context) error {
	f.calls.Add(1)
	if f.failing.Load() {
		return errors.New("collector down")
	}
	return nil
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestAutoFlusher(t *testing.T) {
	convey.Convey("Given an AutoFlusher", t, func() {
		f := &countingFlusher{}

		convey.Convey("When created with options", func() {
			w := worker.NewAutoFlusher(f,
				worker.WithName("test"),
				worker.WithInterval(time.Hour),
				worker.WithLogger(logging.Nop()),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running with a short interval", func() {
			w := worker.NewAutoFlusher(f, worker.WithInterval(10*time.Millisecond), worker.WithLogger(logging.Nop()))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("Then it flushes repeatedly", func() {
				convey.So(waitFor(func() bool { return f.calls.Load() >= 3 }), convey.ShouldBeTrue)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When triggered manually", func() {
			w := worker.NewAutoFlusher(f, worker.WithInterval(time.Hour), worker.WithFinalFlush(false), worker.WithLogger(logging.Nop()))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)
			w.Trigger()

			convey.Convey("Then it flushes without waiting for the interval", func() {
				convey.So(waitFor(func() bool { return f.calls.Load() == 1 }), convey.ShouldBeTrue)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(f.calls.Load(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When flushes fail", func() {
			f.failing.Store(true)
			w := worker.NewAutoFlusher(f, worker.WithInterval(5*time.Millisecond), worker.WithLogger(logging.Nop()))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("Then the loop keeps going", func() {
				convey.So(waitFor(func() bool { return f.calls.Load() >= 2 }), convey.ShouldBeTrue)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When shutting down", func() {
			w := worker.NewAutoFlusher(f, worker.WithInterval(time.Hour), worker.WithLogger(logging.Nop()))
			go w.Run(context.Background())

			err := w.Shutdown(context.Background())

			convey.Convey("Then a final flush runs", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.calls.Load(), convey.ShouldEqual, 1)
			})

			convey.Convey("Then a second shutdown is harmless", func() {
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the loop never started", func() {
			w := worker.NewAutoFlusher(f, worker.WithLogger(logging.Nop()))
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			convey.Convey("Then shutdown times out", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When context is cancelled", func() {
			w := worker.NewAutoFlusher(f, worker.WithInterval(time.Hour), worker.WithLogger(logging.Nop()))
			ctx, cancel := context.WithCancel(context.Background())
			stopped := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(stopped)
			}()
			cancel()

			convey.Convey("Then the loop stops", func() {
				select {
				case <-stopped:
				case <-time.After(time.Second):
					convey.So("timeout", convey.ShouldBeEmpty)
				}
			})
		})
	})
}
