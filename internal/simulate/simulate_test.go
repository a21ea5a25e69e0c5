package simulate_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/app"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/okian/gametrace/internal/simulate"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	convey.Convey("Given a started local tracker", t, func() {
		ctx := context.Background()
		store := storage.NewMemoryStore()
		s := app.DefaultSettings()
		s.StorageType = app.StorageLocal
		tr := app.New(app.WithSettings(s), app.WithLogger(logger.Nop()), app.WithStorage(store))
		convey.So(tr.Start(ctx, ""), convey.ShouldBeNil)

		convey.Convey("When three players play two levels", func() {
			stats, err := simulate.Run(ctx, tr, simulate.Config{Players: 3, Levels: 2, ActionsPerLevel: 5, Logger: logger.Nop()})
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every trace is accepted and queued", func() {
				convey.So(stats.TracesAttempted, convey.ShouldEqual, 3*2*7)
				convey.So(stats.TracesAccepted, convey.ShouldEqual, stats.TracesAttempted)
				convey.So(stats.TracesRejected, convey.ShouldEqual, 0)
				convey.So(tr.Status().Queued, convey.ShouldEqual, 42)
			})

			convey.Convey("Then a flush writes one CSV line per trace", func() {
				convey.So(tr.Flush(ctx), convey.ShouldBeNil)
				data, err := store.Load(ctx, s.LogFile)
				convey.So(err, convey.ShouldBeNil)
				events, err := codec.UnmarshalCSVBatch(string(data))
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(events), convey.ShouldEqual, 42)
				convey.So(strings.Count(string(data), ",initialized,level,"), convey.ShouldEqual, 6)
				convey.So(strings.Count(string(data), ",completed,level,"), convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When the config has no players", func() {
			_, err := simulate.Run(ctx, tr, simulate.Config{Levels: 1, Logger: logger.Nop()})

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, simulate.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
