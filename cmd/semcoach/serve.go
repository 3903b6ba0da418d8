package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360studio/semcoach/api"
	"github.com/c360studio/semcoach/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coaching HTTP API",
		Long: `Serve the coaching API under /api, Prometheus metrics under /metrics and a
liveness probe under /healthz.

When a project config file (semcoach.yaml) is in use, edits to it are picked
up without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(parent context.Context, flags *globalFlags, addrOverride string) error {
	logger := newLogger(os.Stderr, flags.logLevel)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loader := flags.loader(logger)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addrOverride != "" {
		cfg.Server.Addr = addrOverride
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	services := app.Build(cfg)
	handler := api.NewHandler(services, logger)

	mux := http.NewServeMux()
	handler.RegisterHTTPHandlers("api", mux)
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Semcoach listening", "addr", cfg.Server.Addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if loader.ProjectConfigPath() != "" {
		watcher, err := config.NewWatcher(loader, cfg, func(next *config.Config) {
			// Storage and listen address are fixed for the life of the process.
			next.Storage = cfg.Storage
			next.Server = cfg.Server
			handler.Swap(app.Build(next))
		}, logger)
		if err != nil {
			logger.Warn("Config hot reload disabled", "error", err)
		} else {
			g.Go(func() error {
				return watcher.Run(gctx)
			})
		}
	}

	return g.Wait()
}
