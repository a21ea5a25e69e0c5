package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/gametrace/internal/adapters/http/collector"
	"github.com/okian/gametrace/internal/adapters/http/swagger"
	"github.com/okian/gametrace/internal/adapters/storage"
	"github.com/okian/gametrace/internal/domain/dedupe"
	"github.com/okian/gametrace/pkg/logger"
	"github.com/spf13/cobra"
)

// CollectorOptions holds flags for the collector command.
type CollectorOptions struct {
	*RootOptions
	Addr    string
	BaseURL string
	Users   []string
	Codes   []string
	Dedupe  int
}

// NewCollectorCommand creates the collector command.
func NewCollectorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CollectorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Serve a development collector",
		Long: `Serve the login, start and track endpoints a tracker talks to, plus
/stats, /healthz, /metrics and the API docs at /api-docs. Received batches are stored per session
under data_dir using store_backend.

Examples:
  gametrace collector --addr :9080 --user ana:secret --code demo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollector(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default collector_addr)")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "prefix for object ids and actor home pages")
	cmd.Flags().StringSliceVar(&opts.Users, "user", nil, "name:password accepted by login, repeatable")
	cmd.Flags().StringSliceVar(&opts.Codes, "code", nil, "accepted tracking code, repeatable (default: any)")
	cmd.Flags().IntVar(&opts.Dedupe, "dedupe", 0, "drop repeated batches, remembering this many per server (0 disables)")

	return cmd
}

func parseUsers(pairs []string) (map[string]string, error) {
	users := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, pass, ok := strings.Cut(p, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --user %q, want name:password", p)
		}
		users[name] = pass
	}
	return users, nil
}

func runCollector(cmd *cobra.Command, opts *CollectorOptions) error {
	ctx := cmd.Context()
	cfg, err := opts.load(ctx)
	if err != nil {
		return err
	}
	users, err := parseUsers(opts.Users)
	if err != nil {
		return err
	}
	addr := opts.Addr
	if addr == "" {
		addr = cfg.CollectorAddr
	}

	store, err := storage.Open(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	log := opts.Logger.Named("collector")
	copts := []collector.Option{
		collector.WithUsers(users),
		collector.WithTrackingCodes(opts.Codes...),
		collector.WithStore(store),
		collector.WithLogger(log),
	}
	if opts.BaseURL != "" {
		copts = append(copts, collector.WithBaseURL(opts.BaseURL))
	}
	if opts.Dedupe > 0 {
		copts = append(copts, collector.WithDedupe(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(opts.Dedupe))))
	}
	mux := http.NewServeMux()
	collector.NewServer(copts...).Register(ctx, mux)
	swagger.Register(ctx, mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}
