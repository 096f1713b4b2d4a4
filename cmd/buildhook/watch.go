package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildhook/internal/config"
	herrors "git.home.luguber.info/inful/buildhook/internal/errors"
	"git.home.luguber.info/inful/buildhook/internal/metrics"
	"git.home.luguber.info/inful/buildhook/internal/watch"
)

// runWatch runs the steps once, then re-runs them whenever an input file
// changes. Metrics are exposed over HTTP when configured.
func runWatch(cfg *config.Config, buildRoot string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, cleanup, err := buildRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Metrics.Listen != "" {
		reg := prom.NewRegistry()
		runner.WithRecorder(metrics.NewPrometheusRecorder(reg))
		go serveMetrics(ctx, cfg.Metrics.Listen, reg)
	}

	rebuild := func(ctx context.Context) {
		if _, err := runner.Run(ctx, buildRoot); err != nil {
			slog.Error("Rebuild failed", "error", err)
		}
	}

	inputs := make([]string, 0, len(cfg.Steps))
	for _, step := range cfg.Steps {
		inputs = append(inputs, step.Input)
	}

	watcher, err := watch.New(buildRoot, inputs,
		cfg.Watch.DebounceDuration(), cfg.Watch.IntervalDuration(), rebuild)
	if err != nil {
		return herrors.Wrap(err, herrors.CategoryRuntime, herrors.SeverityError, "failed to create watcher")
	}

	// Initial run before watching; a failure here is reported but does not
	// stop watch mode, the operator may be about to fix the input.
	if _, err := runner.Run(ctx, buildRoot); err != nil {
		slog.Error("Initial run failed", "error", err)
	}

	if err := watcher.Start(ctx); err != nil {
		return herrors.Wrap(err, herrors.CategoryRuntime, herrors.SeverityError, "failed to start watcher")
	}

	slog.Info("Watching for input changes, press Ctrl-C to stop")
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := watcher.Stop(stopCtx); err != nil {
		slog.Warn("Failed to stop watcher cleanly", "error", err)
	}

	return nil
}

func serveMetrics(ctx context.Context, listen string, reg *prom.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	server := &http.Server{Addr: listen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving metrics", "listen", listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server failed", "error", err)
	}
}
