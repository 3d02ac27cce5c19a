package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/plotline"
	"github.com/aretw0/plotline/internal/config"
	httpadapter "github.com/aretw0/plotline/pkg/adapters/http"
	"github.com/aretw0/plotline/pkg/allocator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShutdownTimeout is the grace period for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configure the HTTP server.
type ServeOptions struct {
	// Addr overrides server.addr when set.
	Addr   string
	Debug  bool
	Logger *slog.Logger
}

// RunServe serves the HTTP API until ctx is cancelled. Token allocation is the default
// because a server handles concurrent runs.
func RunServe(ctx context.Context, cfg *config.Config, opts ServeOptions) error {
	svc, err := Build(ctx, cfg, BuildOptions{
		DefaultStrategy: allocator.StrategyToken,
		Metrics:         true,
		Debug:           opts.Debug,
		Logger:          opts.Logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	handler, err := httpadapter.NewHandler(svc.Engine,
		httpadapter.WithResultStore(svc.Results),
		httpadapter.WithMetricsHandler(promhttp.HandlerFor(svc.Registry, promhttp.HandlerOpts{})),
		httpadapter.WithLogger(opts.Logger),
		httpadapter.WithVersion(plotline.Version),
		httpadapter.WithRunTimeout(cfg.Server.RunTimeout),
	)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return listen(ctx, srv, opts.Logger, svc.Engine.Root())
}

func listen(ctx context.Context, srv *http.Server, logger *slog.Logger, root string) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting plotline server", "addr", srv.Addr, "root", root)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("Plotline server stopped gracefully")
		return nil
	}
}
