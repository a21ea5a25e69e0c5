package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/gametrace/internal/adapters/mq/worker"
	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/adapters/transport"
	"github.com/okian/gametrace/internal/app"
	"github.com/okian/gametrace/internal/config"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/okian/gametrace/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// session is a started tracker with its storage, background flusher and
// optional metrics endpoint.
type session struct {
	tracker *app.Tracker
	store   storage.Store
	flusher *worker.AutoFlusher
	metrics *http.Server
	log     logger.Logger
}

func openSession(ctx context.Context, cfg *config.Config, log logger.Logger) (*session, error) {
	store, err := storage.Open(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	tr := app.New(
		app.WithSettings(cfg.Settings(ctx)),
		app.WithLogger(log.Named("tracker")),
		app.WithTransport(transport.New(
			transport.WithTimeout(cfg.RequestTimeout()),
			transport.WithLogger(log.Named("transport")),
		)),
		app.WithStorage(store),
	)
	if err := tr.Start(ctx, ""); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("start tracker: %w", err)
	}

	s := &session{tracker: tr, store: store, log: log}
	if iv := cfg.FlushInterval(); iv > 0 {
		s.flusher = worker.NewAutoFlusher(tr,
			worker.WithInterval(iv),
			worker.WithLogger(log.Named("flusher")),
		)
		tr.OnBatchReady(s.flusher.Trigger)
		go s.flusher.Run(ctx)
	}
	if cfg.MetricsAddr != "" {
		s.metrics = serveMetrics(ctx, cfg.MetricsAddr, log)
	}
	return s, nil
}

// close drains the queue, stops the tracker and releases storage. Events
// that could not be delivered stay in the pending snapshot when
// persist_pending is on.
func (s *session) close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if s.flusher != nil {
		errs = append(errs, s.flusher.Shutdown(sctx))
	}
	errs = append(errs, drain(sctx, s.tracker))

	st := s.tracker.Status()
	if st.Pending > 0 || st.Unlogged > 0 {
		s.log.Warn(ctx, "undelivered traces at exit",
			logger.Int("pending_batches", st.Pending),
			logger.Int("unlogged_events", st.Unlogged))
	}
	errs = append(errs, s.tracker.Stop(ctx), s.store.Close())
	if s.metrics != nil {
		errs = append(errs, s.metrics.Shutdown(sctx))
	}
	return errors.Join(errs...)
}

// drain flushes until the queue is empty. Every flush removes its batch
// from the queue, so the loop ends.
func drain(ctx context.Context, tr *app.Tracker) error {
	var errs []error
	for tr.Status().Queued > 0 && ctx.Err() == nil {
		if err := tr.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func serveMetrics(ctx context.Context, addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "serving metrics", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()
	return srv
}
